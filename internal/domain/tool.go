package domain

import "encoding/json"

// ContentItem is one entry of a tool response: either text or a base64 image.
type ContentItem struct {
	Type     string `json:"type"` // "text" | "image"
	Text     string `json:"text,omitempty"`
	Data     string `json:"data,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// NextStep suggests a follow-up tool call to the agent.
type NextStep struct {
	Tool     string         `json:"tool"`
	Label    string         `json:"label"`
	Params   map[string]any `json:"params,omitempty"`
	Priority int            `json:"priority"`
}

// ToolResponse is the envelope every tool invocation produces.
type ToolResponse struct {
	Content   []ContentItem `json:"content"`
	IsError   bool          `json:"isError,omitempty"`
	NextSteps []NextStep    `json:"nextSteps,omitempty"`
}

// TextContent builds a text content item.
func TextContent(text string) ContentItem {
	return ContentItem{Type: "text", Text: text}
}

// ImageContent builds an image content item from base64 data.
func ImageContent(data, mimeType string) ContentItem {
	return ContentItem{Type: "image", Data: data, MimeType: mimeType}
}

// TextResponse returns a successful response with a single text item.
func TextResponse(text string) ToolResponse {
	return ToolResponse{Content: []ContentItem{TextContent(text)}}
}

// ErrorResponse returns an error-shaped response with a single text item.
func ErrorResponse(text string) ToolResponse {
	return ToolResponse{Content: []ContentItem{TextContent(text)}, IsError: true}
}

// Text concatenates all text items, one per line.
func (r ToolResponse) Text() string {
	var out []byte
	for _, c := range r.Content {
		if c.Type != "text" {
			continue
		}
		if len(out) > 0 {
			out = append(out, '\n')
		}
		out = append(out, c.Text...)
	}
	return string(out)
}

// JSON renders the envelope for CLI output.
func (r ToolResponse) JSON() string {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}
