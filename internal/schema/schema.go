// Package schema declares the named parameters a tool accepts and the
// presence rules that span several of them.
package schema

import (
	"fmt"
	"strings"
)

// Field describes one named parameter.
type Field struct {
	Name        string
	Validator   Validator
	Description string
	// SessionBacked fields may be satisfied by session defaults and are
	// hidden from the public schema.
	SessionBacked bool
	// Required fields must be present after the merge with session defaults.
	Required bool
}

// Arg declares an optional, caller-supplied field.
func Arg(name string, v Validator, description string) Field {
	return Field{Name: name, Validator: v, Description: description}
}

// RequiredArg declares a caller-supplied field that must be present.
func RequiredArg(name string, v Validator, description string) Field {
	return Field{Name: name, Validator: v, Description: description, Required: true}
}

// SessionArg declares a field that session defaults may satisfy.
func SessionArg(name string, v Validator, description string) Field {
	return Field{Name: name, Validator: v, Description: description, SessionBacked: true}
}

// Schema is an ordered set of fields. The zero value is not usable; build
// one with New.
type Schema struct {
	fields []Field
	index  map[string]int
}

// New builds a schema, rejecting empty or duplicate names and nil validators.
func New(fields ...Field) (*Schema, error) {
	s := &Schema{fields: make([]Field, 0, len(fields)), index: make(map[string]int, len(fields))}
	for _, f := range fields {
		if strings.TrimSpace(f.Name) == "" {
			return nil, fmt.Errorf("field name is empty")
		}
		if f.Validator == nil {
			return nil, fmt.Errorf("field %q has no validator", f.Name)
		}
		if f.SessionBacked && f.Required {
			return nil, fmt.Errorf("field %q: session-backed fields express presence through rules", f.Name)
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, fmt.Errorf("duplicate field %q", f.Name)
		}
		s.index[f.Name] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	return s, nil
}

// MustNew is New that panics on a malformed declaration. Tool catalogs are
// static, so a bad declaration is a programming error.
func MustNew(fields ...Field) *Schema {
	s, err := New(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Fields returns every field in declaration order (the internal view).
func (s *Schema) Fields() []Field {
	return append([]Field(nil), s.fields...)
}

// Field looks up a field by name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Has reports whether name is declared.
func (s *Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Names returns field names in declaration order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// Public returns the fields a caller must supply explicitly.
func (s *Schema) Public() []Field {
	out := make([]Field, 0, len(s.fields))
	for _, f := range s.fields {
		if !f.SessionBacked {
			out = append(out, f)
		}
	}
	return out
}

// SessionKeys returns the names of session-backed fields.
func (s *Schema) SessionKeys() []string {
	var keys []string
	for _, f := range s.fields {
		if f.SessionBacked {
			keys = append(keys, f.Name)
		}
	}
	return keys
}

// PublicJSON renders the public view as a JSON Schema object. Callers may
// still pass session-backed fields explicitly, so extra properties are allowed.
func (s *Schema) PublicJSON() map[string]any {
	out := objectSchema(s.Public())
	out["additionalProperties"] = true
	return out
}

func objectSchema(fields []Field) map[string]any {
	props := make(map[string]any, len(fields))
	var required []string
	for _, f := range fields {
		prop := f.Validator.JSONSchema()
		if f.Description != "" {
			prop["description"] = f.Description
		}
		props[f.Name] = prop
		if f.Required {
			required = append(required, f.Name)
		}
	}
	out := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

// CheckRules verifies that every field a rule mentions is declared and that
// each rule is well formed.
func (s *Schema) CheckRules(rules []Rule) error {
	var errs []string
	for i, r := range rules {
		if err := r.wellFormed(); err != nil {
			errs = append(errs, fmt.Sprintf("rule %d (%s): %v", i, r.Kind, err))
			continue
		}
		for _, name := range r.Fields {
			if !s.Has(name) {
				errs = append(errs, fmt.Sprintf("rule %d (%s): unknown field %q", i, r.Kind, name))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid requirement rules:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
