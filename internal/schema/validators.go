package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Validator checks and coerces one argument value. Validate receives the raw,
// JSON-decoded value and returns the coerced value or a short reason.
type Validator interface {
	Validate(value any) (any, error)
	JSONSchema() map[string]any
}

// formats backs String().Format. validator.Validate is safe for concurrent use.
var formats = validator.New()

var formatReasons = map[string]string{
	"url":        "must be a valid URL",
	"uri":        "must be a valid URI",
	"hostname":   "must be a valid hostname",
	"semver":     "must be a semantic version",
	"printascii": "must contain printable ASCII only",
	"alphanum":   "must be alphanumeric",
}

// StringValidator accepts strings, optionally non-empty or of a given format.
type StringValidator struct {
	nonEmpty bool
	format   string
}

// String accepts any string.
func String() *StringValidator { return &StringValidator{} }

// NonEmpty rejects strings that are empty after trimming.
func (v *StringValidator) NonEmpty() *StringValidator {
	v.nonEmpty = true
	return v
}

// Format constrains the string with a go-playground/validator tag such as
// "url" or "hostname".
func (v *StringValidator) Format(tag string) *StringValidator {
	v.format = tag
	return v
}

func (v *StringValidator) Validate(value any) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, typeMismatch("string", value)
	}
	if v.nonEmpty && strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("must not be empty")
	}
	if v.format != "" {
		if err := formats.Var(s, v.format); err != nil {
			if reason, ok := formatReasons[v.format]; ok {
				return nil, fmt.Errorf("%s", reason)
			}
			return nil, fmt.Errorf("must satisfy format %q", v.format)
		}
	}
	return s, nil
}

func (v *StringValidator) JSONSchema() map[string]any {
	out := map[string]any{"type": "string"}
	if v.format != "" {
		out["format"] = v.format
	}
	if v.nonEmpty {
		out["minLength"] = 1
	}
	return out
}

// UUIDValidator accepts canonical 36-character UUID strings.
type UUIDValidator struct{}

// UUID accepts canonical UUIDs such as simulator UDIDs.
func UUID() UUIDValidator { return UUIDValidator{} }

func (UUIDValidator) Validate(value any) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, typeMismatch("string", value)
	}
	if len(s) != 36 || uuid.Validate(s) != nil {
		return nil, fmt.Errorf("must be a valid UUID")
	}
	return s, nil
}

func (UUIDValidator) JSONSchema() map[string]any {
	return map[string]any{"type": "string", "format": "uuid"}
}

// EnumValidator accepts one of a fixed set of strings.
type EnumValidator struct {
	values []string
}

// Enum accepts exactly one of values.
func Enum(values ...string) EnumValidator { return EnumValidator{values: values} }

func (v EnumValidator) Validate(value any) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, typeMismatch("string", value)
	}
	for _, allowed := range v.values {
		if s == allowed {
			return s, nil
		}
	}
	return nil, fmt.Errorf("must be one of: %s", strings.Join(v.values, ", "))
}

func (v EnumValidator) JSONSchema() map[string]any {
	return map[string]any{"type": "string", "enum": append([]string(nil), v.values...)}
}

// IntValidator accepts integral numbers with optional bounds.
type IntValidator struct {
	min, max *int
}

// Int accepts integers. JSON numbers with no fractional part qualify.
func Int() *IntValidator { return &IntValidator{} }

// Min sets an inclusive lower bound.
func (v *IntValidator) Min(n int) *IntValidator {
	v.min = &n
	return v
}

// Max sets an inclusive upper bound.
func (v *IntValidator) Max(n int) *IntValidator {
	v.max = &n
	return v
}

func (v *IntValidator) Validate(value any) (any, error) {
	n, ok := toInt(value)
	if !ok {
		if f, isNum := toFloat(value); isNum && !math.IsInf(f, 0) && f == math.Trunc(f) {
			return nil, v.outOfRange(f)
		}
		return nil, typeMismatch("integer", value)
	}
	if v.min != nil && n < *v.min {
		return nil, fmt.Errorf("must be >= %d", *v.min)
	}
	if v.max != nil && n > *v.max {
		return nil, fmt.Errorf("must be <= %d", *v.max)
	}
	return n, nil
}

// outOfRange explains an integral value too large for int, preferring the
// declared bound when it is the one violated.
func (v *IntValidator) outOfRange(f float64) error {
	switch {
	case v.min != nil && f < float64(*v.min):
		return fmt.Errorf("must be >= %d", *v.min)
	case v.max != nil && f > float64(*v.max):
		return fmt.Errorf("must be <= %d", *v.max)
	}
	return fmt.Errorf("integer out of range")
}

func (v *IntValidator) JSONSchema() map[string]any {
	out := map[string]any{"type": "integer"}
	if v.min != nil {
		out["minimum"] = *v.min
	}
	if v.max != nil {
		out["maximum"] = *v.max
	}
	return out
}

// NumberValidator accepts any finite number with optional bounds.
type NumberValidator struct {
	min, max *float64
}

// Number accepts integers and floats.
func Number() *NumberValidator { return &NumberValidator{} }

// Min sets an inclusive lower bound.
func (v *NumberValidator) Min(n float64) *NumberValidator {
	v.min = &n
	return v
}

// Max sets an inclusive upper bound.
func (v *NumberValidator) Max(n float64) *NumberValidator {
	v.max = &n
	return v
}

func (v *NumberValidator) Validate(value any) (any, error) {
	f, ok := toFloat(value)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, typeMismatch("number", value)
	}
	if v.min != nil && f < *v.min {
		return nil, fmt.Errorf("must be >= %g", *v.min)
	}
	if v.max != nil && f > *v.max {
		return nil, fmt.Errorf("must be <= %g", *v.max)
	}
	return f, nil
}

func (v *NumberValidator) JSONSchema() map[string]any {
	out := map[string]any{"type": "number"}
	if v.min != nil {
		out["minimum"] = *v.min
	}
	if v.max != nil {
		out["maximum"] = *v.max
	}
	return out
}

// BoolValidator accepts booleans.
type BoolValidator struct{}

// Bool accepts true or false.
func Bool() BoolValidator { return BoolValidator{} }

func (BoolValidator) Validate(value any) (any, error) {
	b, ok := value.(bool)
	if !ok {
		return nil, typeMismatch("boolean", value)
	}
	return b, nil
}

func (BoolValidator) JSONSchema() map[string]any { return map[string]any{"type": "boolean"} }

// ArrayValidator accepts arrays whose items all pass elem.
type ArrayValidator struct {
	elem Validator
}

// ArrayOf accepts arrays of elem.
func ArrayOf(elem Validator) ArrayValidator { return ArrayValidator{elem: elem} }

func (v ArrayValidator) Validate(value any) (any, error) {
	var items []any
	switch arr := value.(type) {
	case []any:
		items = arr
	case []string:
		items = make([]any, len(arr))
		for i, s := range arr {
			items[i] = s
		}
	default:
		return nil, typeMismatch("array", value)
	}
	out := make([]any, len(items))
	for i, item := range items {
		coerced, err := v.elem.Validate(item)
		if err != nil {
			return nil, fmt.Errorf("[%d] %v", i, err)
		}
		out[i] = coerced
	}
	return out, nil
}

func (v ArrayValidator) JSONSchema() map[string]any {
	return map[string]any{"type": "array", "items": v.elem.JSONSchema()}
}

// StringMapValidator accepts objects whose values are all strings, such as
// environment variable maps.
type StringMapValidator struct{}

// StringMap accepts {string: string} objects.
func StringMap() StringMapValidator { return StringMapValidator{} }

func (StringMapValidator) Validate(value any) (any, error) {
	switch m := value.(type) {
	case map[string]string:
		return m, nil
	case map[string]any:
		out := make(map[string]string, len(m))
		for k, raw := range m {
			s, ok := raw.(string)
			if !ok {
				return nil, fmt.Errorf("value for %q must be a string, got %s", k, jsonType(raw))
			}
			out[k] = s
		}
		return out, nil
	default:
		return nil, typeMismatch("object", value)
	}
}

func (StringMapValidator) JSONSchema() map[string]any {
	return map[string]any{"type": "object", "additionalProperties": map[string]any{"type": "string"}}
}

func typeMismatch(want string, got any) error {
	return fmt.Errorf("expected %s, received %s", want, jsonType(got))
}

// jsonType names the JSON type of a decoded value.
func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float32, float64, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, json.Number:
		return "number"
	case []any, []string:
		return "array"
	case map[string]any, map[string]string:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case float64:
		return floatToInt(n)
	case float32:
		return floatToInt(float64(n))
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}

// floatToInt accepts integral floats that fit in int64. NaN and infinities
// fail the bound checks.
func floatToInt(f float64) (int, bool) {
	if f != math.Trunc(f) || !(f >= math.MinInt64 && f < math.MaxInt64) {
		return 0, false
	}
	return int(f), true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		if i, ok := toInt(v); ok {
			return float64(i), true
		}
		return 0, false
	}
}
