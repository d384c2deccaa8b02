package resolve

import (
	"encoding/json"
	"fmt"
	"maps"
	"sort"
)

// Source tells where a resolved value came from.
type Source int

const (
	SourceNone Source = iota
	SourceExplicit
	SourceSession
)

func (s Source) String() string {
	switch s {
	case SourceExplicit:
		return "explicit"
	case SourceSession:
		return "session"
	default:
		return "none"
	}
}

// Params is the validated, merge-complete argument bag handed to tool
// logic. Values are already coerced by their field validators, so the typed
// accessors only fail on programming errors and return zero values then.
type Params struct {
	values map[string]any
	origin map[string]Source
}

// NewParams wraps already validated values. Intended for tests of tool logic.
func NewParams(values map[string]any) Params {
	origin := make(map[string]Source, len(values))
	for k := range values {
		origin[k] = SourceExplicit
	}
	return Params{values: maps.Clone(values), origin: origin}
}

// Has reports whether name resolved to a value.
func (p Params) Has(name string) bool {
	_, ok := p.values[name]
	return ok
}

// Get returns the raw resolved value.
func (p Params) Get(name string) (any, bool) {
	v, ok := p.values[name]
	return v, ok
}

// Source reports where name's value came from.
func (p Params) Source(name string) Source {
	return p.origin[name]
}

// String returns name as a string, or "" when absent.
func (p Params) String(name string) string {
	s, _ := p.values[name].(string)
	return s
}

// StringOr returns name as a string, or fallback when absent.
func (p Params) StringOr(name, fallback string) string {
	if s, ok := p.values[name].(string); ok {
		return s
	}
	return fallback
}

// Int returns name as an int, or 0 when absent.
func (p Params) Int(name string) int {
	n, _ := p.values[name].(int)
	return n
}

// Float returns name as a float64, or 0 when absent.
func (p Params) Float(name string) float64 {
	f, _ := p.values[name].(float64)
	return f
}

// Bool returns name as a bool, or false when absent.
func (p Params) Bool(name string) bool {
	b, _ := p.values[name].(bool)
	return b
}

// Strings returns an array field as []string. Non-string items are skipped.
func (p Params) Strings(name string) []string {
	raw, _ := p.values[name].([]any)
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// StringMap returns an object field as map[string]string.
func (p Params) StringMap(name string) map[string]string {
	m, _ := p.values[name].(map[string]string)
	return m
}

// Map returns a copy of every resolved value.
func (p Params) Map() map[string]any {
	return maps.Clone(p.values)
}

// Names returns resolved field names, sorted.
func (p Params) Names() []string {
	names := make([]string, 0, len(p.values))
	for k := range p.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Bind decodes the resolved values into a struct using its json tags.
func Bind[T any](p Params) (T, error) {
	var out T
	data, err := json.Marshal(p.values)
	if err != nil {
		return out, fmt.Errorf("encode params: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decode params: %w", err)
	}
	return out, nil
}
