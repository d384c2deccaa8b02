package schema

import "fmt"

// RuleKind tags a Rule.
type RuleKind int

const (
	// KindAllOf requires every listed field.
	KindAllOf RuleKind = iota + 1
	// KindOneOf requires exactly one listed field.
	KindOneOf
	// KindExclusivePair forbids both listed fields at once.
	KindExclusivePair
)

func (k RuleKind) String() string {
	switch k {
	case KindAllOf:
		return "allOf"
	case KindOneOf:
		return "oneOf"
	case KindExclusivePair:
		return "exclusivePair"
	default:
		return "unknown"
	}
}

// Rule is a presence constraint over fields, evaluated after the merge with
// session defaults. Rules are values; build them with AllOf, OneOf or
// ExclusivePair.
type Rule struct {
	Kind    RuleKind
	Fields  []string
	Message string
}

// AllOf requires every field in fields.
func AllOf(fields []string, message string) Rule {
	return Rule{Kind: KindAllOf, Fields: append([]string(nil), fields...), Message: message}
}

// OneOf requires exactly one field in fields.
func OneOf(fields []string, message string) Rule {
	return Rule{Kind: KindOneOf, Fields: append([]string(nil), fields...), Message: message}
}

// ExclusivePair forbids a and b from both being present.
func ExclusivePair(a, b string) Rule {
	return Rule{Kind: KindExclusivePair, Fields: []string{a, b}}
}

func (r Rule) wellFormed() error {
	switch r.Kind {
	case KindAllOf:
		if len(r.Fields) == 0 {
			return fmt.Errorf("needs at least one field")
		}
	case KindOneOf:
		if len(r.Fields) < 2 {
			return fmt.Errorf("needs at least two fields")
		}
	case KindExclusivePair:
		if len(r.Fields) != 2 || r.Fields[0] == r.Fields[1] {
			return fmt.Errorf("needs two distinct fields")
		}
	default:
		return fmt.Errorf("unknown rule kind %d", int(r.Kind))
	}
	return nil
}

// ExclusivePairs returns the pairs declared in rules, including the implicit
// pairs of every OneOf group.
func ExclusivePairs(rules []Rule) [][2]string {
	var out [][2]string
	for _, r := range rules {
		switch r.Kind {
		case KindExclusivePair:
			out = append(out, [2]string{r.Fields[0], r.Fields[1]})
		case KindOneOf:
			for i := 0; i < len(r.Fields); i++ {
				for j := i + 1; j < len(r.Fields); j++ {
					out = append(out, [2]string{r.Fields[i], r.Fields[j]})
				}
			}
		}
	}
	return out
}
