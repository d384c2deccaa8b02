// Package tool binds a tool's schema, requirement rules and logic together
// and dispatches calls through the resolution engine.
package tool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"xcodemcp/internal/domain"
	"xcodemcp/internal/resolve"
	"xcodemcp/internal/schema"
)

// LogicFunc is a tool's business logic. It only ever sees validated,
// merge-complete parameters.
type LogicFunc func(ctx context.Context, p resolve.Params, exec domain.Executor) (domain.ToolResponse, error)

// Tool is one callable operation.
type Tool struct {
	Name        string
	Description string
	Schema      *schema.Schema
	Rules       []schema.Rule
	Logic       LogicFunc
}

// New checks the declaration and returns the tool.
func New(name, description string, s *schema.Schema, rules []schema.Rule, logic LogicFunc) (*Tool, error) {
	if name == "" {
		return nil, errors.New("tool name is empty")
	}
	if s == nil {
		return nil, fmt.Errorf("tool %s: schema is nil", name)
	}
	if logic == nil {
		return nil, fmt.Errorf("tool %s: logic is nil", name)
	}
	if err := s.CheckRules(rules); err != nil {
		return nil, fmt.Errorf("tool %s: %w", name, err)
	}
	return &Tool{Name: name, Description: description, Schema: s, Rules: rules, Logic: logic}, nil
}

// MustNew is New that panics on a malformed declaration.
func MustNew(name, description string, s *schema.Schema, rules []schema.Rule, logic LogicFunc) *Tool {
	t, err := New(name, description, s, rules, logic)
	if err != nil {
		panic(err)
	}
	return t
}

// Outcome labels how a dispatch ended. Diagnostic outcomes reuse the
// resolve.Kind strings.
const (
	OutcomeOK        = "ok"
	OutcomeToolError = "tool_error"
)

// Dispatcher runs the resolve-then-execute pipeline for a tool.
type Dispatcher struct {
	engine  *resolve.Engine
	store   domain.SessionStore
	newExec func() domain.Executor
	logger  *slog.Logger
}

// NewDispatcher wires the engine to the session store and an executor
// factory. newExec is called once per successful resolution.
func NewDispatcher(engine *resolve.Engine, store domain.SessionStore, newExec func() domain.Executor, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{engine: engine, store: store, newExec: newExec, logger: logger}
}

// Dispatch resolves raw against t's schema, rules and the current session
// defaults. A diagnostic short-circuits; otherwise t.Logic runs. Errors
// and panics from the logic become error-shaped responses.
func (d *Dispatcher) Dispatch(ctx context.Context, t *Tool, raw map[string]any) (resp domain.ToolResponse, outcome string) {
	params, diag := d.engine.Resolve(resolve.Request{
		Tool:     t.Name,
		Args:     raw,
		Schema:   t.Schema,
		Rules:    t.Rules,
		Defaults: d.store.GetAll(),
	})
	if diag != nil {
		d.logger.Debug("call rejected", "tool", t.Name, "kind", diag.Kind, "fields", diag.Fields)
		return diag.Response(), string(diag.Kind)
	}
	if filled := sessionFilled(params); len(filled) > 0 {
		d.logger.Debug("filled from session defaults", "tool", t.Name, "fields", filled)
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("tool logic panicked", "tool", t.Name, "panic", r)
			resp = domain.ErrorResponse(panicMessage(r))
			outcome = OutcomeToolError
		}
	}()

	resp, err := t.Logic(ctx, params, d.newExec())
	if err != nil {
		d.logger.Warn("tool failed", "tool", t.Name, "err", err)
		return domain.ErrorResponse(err.Error()), OutcomeToolError
	}
	if resp.IsError {
		return resp, OutcomeToolError
	}
	return resp, OutcomeOK
}

// Dispatch runs one call of t through a default engine.
func Dispatch(ctx context.Context, raw map[string]any, t *Tool, store domain.SessionStore, newExec func() domain.Executor) domain.ToolResponse {
	resp, _ := NewDispatcher(resolve.NewEngine(nil, ""), store, newExec, nil).Dispatch(ctx, t, raw)
	return resp
}

// sessionFilled lists the resolved fields taken from session defaults.
func sessionFilled(p resolve.Params) []string {
	var out []string
	for _, name := range p.Names() {
		if p.Source(name) == resolve.SourceSession {
			out = append(out, name)
		}
	}
	return out
}

func panicMessage(r any) string {
	if err, ok := r.(error); ok {
		return err.Error()
	}
	return fmt.Sprint(r)
}
