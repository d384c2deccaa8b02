package mcpserver

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"xcodemcp/internal/domain"
	"xcodemcp/internal/executor"
	"xcodemcp/internal/resolve"
	"xcodemcp/internal/session"
	"xcodemcp/internal/tool"
	"xcodemcp/internal/tools"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestToResult_TextAndImage(t *testing.T) {
	res := ToResult(domain.ToolResponse{
		Content: []domain.ContentItem{
			domain.TextContent("hello"),
			domain.ImageContent("aGk=", "image/png"),
		},
	})
	if res.IsError {
		t.Fatal("unexpected error flag")
	}
	if len(res.Content) != 2 {
		t.Fatalf("expected 2 items, got %d", len(res.Content))
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok || text.Text != "hello" {
		t.Errorf("unexpected text item: %#v", res.Content[0])
	}
	img, ok := res.Content[1].(mcp.ImageContent)
	if !ok || img.Data != "aGk=" || img.MIMEType != "image/png" {
		t.Errorf("unexpected image item: %#v", res.Content[1])
	}
}

func TestToResult_ErrorAndNextSteps(t *testing.T) {
	res := ToResult(domain.ToolResponse{
		Content: []domain.ContentItem{domain.TextContent("failed")},
		IsError: true,
		NextSteps: []domain.NextStep{
			{Tool: "b", Label: "Second", Priority: 2},
			{Tool: "a", Label: "First", Params: map[string]any{"x": 1}, Priority: 1},
		},
	})
	if !res.IsError {
		t.Fatal("error flag lost")
	}
	last := res.Content[len(res.Content)-1].(mcp.TextContent)
	want := "Next steps:\n1. First: a {\"x\":1}\n2. Second: b"
	if last.Text != want {
		t.Errorf("got %q, want %q", last.Text, want)
	}
}

func TestToResult_EmptyContent(t *testing.T) {
	res := ToResult(domain.ToolResponse{})
	if len(res.Content) != 1 {
		t.Fatalf("expected placeholder content, got %d", len(res.Content))
	}
}

func TestHandler_DispatchesThroughRegistry(t *testing.T) {
	store := session.NewStore()
	d := tool.NewDispatcher(resolve.NewEngine(testLogger(), ""), store, func() domain.Executor { return executor.NewMock() }, testLogger())
	reg := tool.NewRegistry(testLogger(), d)
	if err := tools.Register(reg, store, nil); err != nil {
		t.Fatalf("register: %v", err)
	}
	s, err := New("xcodemcp", "test", reg, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var req mcp.CallToolRequest
	req.Params.Name = "session_set_defaults"
	req.Params.Arguments = map[string]any{"scheme": "App"}
	res, err := s.handler("session_set_defaults")(context.Background(), req)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %#v", res.Content)
	}
	if v, _ := store.Get("scheme"); v != "App" {
		t.Errorf("store not updated: %v", v)
	}

	req.Params.Name = "boot_sim"
	req.Params.Arguments = nil
	res, _ = s.handler("boot_sim")(context.Background(), req)
	if !res.IsError {
		t.Fatal("expected missing defaults error")
	}
}
