package resolve

import (
	"fmt"
	"strings"

	"xcodemcp/internal/domain"
)

// Kind classifies why a call was rejected before reaching tool logic.
type Kind string

const (
	KindMissingRequired       Kind = "missing_required"
	KindMutuallyExclusive     Kind = "mutually_exclusive"
	KindFieldValidationFailed Kind = "field_validation_failed"
)

const (
	titleMissingDefaults  = "Missing required session defaults"
	titleValidationFailed = "Parameter validation failed"
	titleMutuallyExcl     = "Mutually exclusive parameters provided"
)

// Diagnostic is a terminal rejection of a call. It renders to an
// error-shaped ToolResponse.
type Diagnostic struct {
	Kind    Kind
	Fields  []string // fields the diagnostic is about, in schema order
	Title   string
	Details string
	Hint    string
}

func (d *Diagnostic) Error() string {
	return d.Title + ": " + d.Details
}

// Text renders the diagnostic as the single text block sent to the caller.
func (d *Diagnostic) Text() string {
	var b strings.Builder
	b.WriteString("Error: ")
	b.WriteString(d.Title)
	if d.Details != "" {
		b.WriteString("\n")
		b.WriteString(d.Details)
	}
	if d.Hint != "" {
		b.WriteString("\n")
		b.WriteString(d.Hint)
	}
	return b.String()
}

// Response converts the diagnostic into the response envelope.
func (d *Diagnostic) Response() domain.ToolResponse {
	return domain.ErrorResponse(d.Text())
}

func mutuallyExclusive(fields ...string) *Diagnostic {
	return &Diagnostic{
		Kind:    KindMutuallyExclusive,
		Fields:  fields,
		Title:   titleMutuallyExcl,
		Details: fmt.Sprintf("%s. Provide only one.", joinFields(fields)),
	}
}

func joinFields(fields []string) string {
	switch len(fields) {
	case 0:
		return ""
	case 1:
		return fields[0]
	case 2:
		return fields[0] + " and " + fields[1]
	}
	return strings.Join(fields[:len(fields)-1], ", ") + " and " + fields[len(fields)-1]
}
