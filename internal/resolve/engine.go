// Package resolve merges explicit call arguments with session defaults,
// enforces requirement rules and validates every field before a tool's
// logic runs.
package resolve

import (
	"fmt"
	"log/slog"
	"strings"

	"xcodemcp/internal/schema"
)

// DefaultSetDefaultsTool is the tool named in session-default hints.
const DefaultSetDefaultsTool = "session_set_defaults"

// Request is one call to resolve.
type Request struct {
	Tool     string
	Args     map[string]any // explicit, untyped arguments as sent by the caller
	Schema   *schema.Schema
	Rules    []schema.Rule
	Defaults map[string]any // snapshot of the session store
}

// Engine evaluates Requests. It holds no per-call state and is safe for
// concurrent use.
type Engine struct {
	logger       *slog.Logger
	defaultsTool string
}

// NewEngine returns an engine whose hints point at defaultsTool.
func NewEngine(logger *slog.Logger, defaultsTool string) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if defaultsTool == "" {
		defaultsTool = DefaultSetDefaultsTool
	}
	return &Engine{logger: logger, defaultsTool: defaultsTool}
}

// Resolve runs normalize, merge, rule evaluation and field validation in
// that order and stops at the first failing stage. It never panics.
func (e *Engine) Resolve(req Request) (params Params, diag *Diagnostic) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("resolve panicked", "tool", req.Tool, "panic", r)
			params = Params{}
			diag = &Diagnostic{
				Kind:    KindFieldValidationFailed,
				Title:   titleValidationFailed,
				Details: fmt.Sprintf("internal error: %v", r),
			}
		}
	}()

	if req.Schema == nil {
		return Params{}, &Diagnostic{Kind: KindFieldValidationFailed, Title: titleValidationFailed, Details: "tool has no schema"}
	}

	explicit := Normalize(req.Args)
	defaults := Normalize(req.Defaults)

	merged := make(map[string]any, len(explicit))
	origin := make(map[string]Source, len(explicit))
	explicitFields := 0
	for _, f := range req.Schema.Fields() {
		name := f.Name
		if v, ok := explicit[name]; ok {
			merged[name] = v
			origin[name] = SourceExplicit
			explicitFields++
			continue
		}
		if !f.SessionBacked {
			continue
		}
		if v, ok := defaults[name]; ok {
			merged[name] = v
			origin[name] = SourceSession
		}
	}
	for name := range explicit {
		if !req.Schema.Has(name) {
			e.logger.Debug("dropping undeclared argument", "tool", req.Tool, "arg", name)
		}
	}
	sessionDriven := explicitFields == 0

	for _, r := range req.Rules {
		if r.Kind != schema.KindExclusivePair {
			continue
		}
		a, b := r.Fields[0], r.Fields[1]
		if has(merged, a) && has(merged, b) {
			return Params{}, mutuallyExclusive(a, b)
		}
	}

	for _, r := range req.Rules {
		if r.Kind != schema.KindAllOf {
			continue
		}
		var missing []string
		for _, f := range r.Fields {
			if !has(merged, f) {
				missing = append(missing, f)
			}
		}
		if len(missing) > 0 {
			return Params{}, e.missingRequired(r, missing, sessionDriven)
		}
	}

	for _, r := range req.Rules {
		if r.Kind != schema.KindOneOf {
			continue
		}
		var present []string
		for _, f := range r.Fields {
			if has(merged, f) {
				present = append(present, f)
			}
		}
		switch {
		case len(present) == 0:
			return Params{}, e.missingRequired(r, r.Fields, sessionDriven)
		case len(present) > 1:
			return Params{}, mutuallyExclusive(present...)
		}
	}

	var violations []string
	var invalid []string
	for _, f := range req.Schema.Fields() {
		v, ok := merged[f.Name]
		if !ok {
			if f.Required {
				violations = append(violations, f.Name+": Required")
				invalid = append(invalid, f.Name)
			}
			continue
		}
		coerced, err := validateField(f, v)
		if err != nil {
			violations = append(violations, fmt.Sprintf("%s: %v", f.Name, err))
			invalid = append(invalid, f.Name)
			continue
		}
		merged[f.Name] = coerced
	}
	if len(violations) > 0 {
		return Params{}, &Diagnostic{
			Kind:    KindFieldValidationFailed,
			Fields:  invalid,
			Title:   titleValidationFailed,
			Details: strings.Join(violations, "\n"),
		}
	}

	return Params{values: merged, origin: origin}, nil
}

// validateField runs one validator, turning a panic into a reason.
func validateField(f schema.Field, v any) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("validator failed: %v", r)
		}
	}()
	return f.Validator.Validate(v)
}

func (e *Engine) missingRequired(r schema.Rule, missing []string, sessionDriven bool) *Diagnostic {
	d := &Diagnostic{Kind: KindMissingRequired, Fields: missing}

	summary := r.Message
	if r.Kind == schema.KindOneOf {
		if summary == "" {
			summary = "Provide one of: " + strings.Join(r.Fields, ", ")
		}
	} else if summary == "" {
		summary = "Required: " + strings.Join(r.Fields, ", ")
	}

	if sessionDriven {
		d.Title = titleMissingDefaults
		d.Details = summary + "\nMissing: " + strings.Join(missing, ", ")
		d.Hint = e.setDefaultsHint(r, missing)
		return d
	}

	d.Title = titleValidationFailed
	lines := []string{summary}
	if r.Kind == schema.KindOneOf {
		lines = append(lines, joinFields(missing)+": none provided (supply exactly one)")
	} else {
		for _, f := range missing {
			lines = append(lines, f+": Required")
		}
	}
	d.Details = strings.Join(lines, "\n")
	d.Hint = fmt.Sprintf("Pass the missing parameters explicitly or store them with %s.", e.defaultsTool)
	return d
}

func (e *Engine) setDefaultsHint(r schema.Rule, missing []string) string {
	keys := missing
	prefix := "Set with: "
	if r.Kind == schema.KindOneOf {
		keys = missing[:1]
		prefix = "Set one with: "
	}
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = fmt.Sprintf("%q: \"...\"", k)
	}
	return fmt.Sprintf("%s%s { %s }", prefix, e.defaultsTool, strings.Join(pairs, ", "))
}

func has(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}

// Normalize returns a copy of args without nil values and without strings
// that are empty or whitespace-only. Normalize(Normalize(x)) == Normalize(x).
func Normalize(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		if isBlank(v) {
			continue
		}
		out[k] = v
	}
	return out
}

func isBlank(v any) bool {
	switch s := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(s) == ""
	default:
		return false
	}
}
