package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"xcodemcp/internal/domain"
)

// Recorder receives one observation per dispatched call.
type Recorder interface {
	ObserveCall(tool, outcome string, duration time.Duration)
}

// Definition is the public description of a tool advertised to clients.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// Registry holds all available tools and executes them.
type Registry struct {
	mu         sync.RWMutex
	tools      map[string]*Tool
	dispatcher *Dispatcher
	recorder   Recorder
	audit      domain.AuditSink
	logger     *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRecorder reports every call to rec.
func WithRecorder(rec Recorder) RegistryOption {
	return func(r *Registry) { r.recorder = rec }
}

// WithAudit writes an audit entry for every call.
func WithAudit(sink domain.AuditSink) RegistryOption {
	return func(r *Registry) { r.audit = sink }
}

// NewRegistry creates an empty registry that runs calls through dispatcher.
func NewRegistry(logger *slog.Logger, dispatcher *Dispatcher, opts ...RegistryOption) *Registry {
	r := &Registry{
		tools:      make(map[string]*Tool),
		dispatcher: dispatcher,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds t. Names are unique.
func (r *Registry) Register(t *Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.tools[t.Name]; dup {
		return fmt.Errorf("tool %s already registered", t.Name)
	}
	r.tools[t.Name] = t
	r.logger.Debug("registered tool", "name", t.Name)
	return nil
}

// Get returns the tool registered as name, or nil.
func (r *Registry) Get(name string) *Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Names returns registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Definitions returns the public view of every tool, sorted by name.
// Session-backed fields are omitted from the input schemas.
func (r *Registry) Definitions() []Definition {
	names := r.Names()
	defs := make([]Definition, 0, len(names))
	for _, n := range names {
		t := r.Get(n)
		if t == nil {
			continue
		}
		defs = append(defs, Definition{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.Schema.PublicJSON(),
		})
	}
	return defs
}

// Call dispatches a call by tool name. An unknown name yields an error
// response listing the available tools.
func (r *Registry) Call(ctx context.Context, name string, args map[string]any) domain.ToolResponse {
	start := time.Now()
	t := r.Get(name)

	var (
		resp    domain.ToolResponse
		outcome string
	)
	if t == nil {
		resp = domain.ErrorResponse(fmt.Sprintf("Unknown tool: %s (available: %s)", name, strings.Join(r.Names(), ", ")))
		outcome = "unknown_tool"
	} else {
		resp, outcome = r.dispatcher.Dispatch(ctx, t, args)
	}
	elapsed := time.Since(start)

	r.logger.Info("tool call", "tool", name, "outcome", outcome, "duration", elapsed)
	if r.recorder != nil {
		r.recorder.ObserveCall(name, outcome, elapsed)
	}
	if r.audit != nil {
		r.writeAudit(ctx, name, outcome, args, resp, elapsed)
	}
	return resp
}

func (r *Registry) writeAudit(ctx context.Context, name, outcome string, args map[string]any, resp domain.ToolResponse, elapsed time.Duration) {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		argsJSON = []byte("{}")
	}
	entry := domain.AuditEntry{
		Tool:       name,
		Outcome:    outcome,
		Arguments:  string(argsJSON),
		DurationMs: elapsed.Milliseconds(),
	}
	if resp.IsError {
		entry.Message = firstLine(resp.Text())
	}
	if err := r.audit.LogAudit(ctx, entry); err != nil {
		r.logger.Warn("audit write failed", "tool", name, "err", err)
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
