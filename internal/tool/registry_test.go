package tool

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"xcodemcp/internal/domain"
	"xcodemcp/internal/executor"
	"xcodemcp/internal/resolve"
	"xcodemcp/internal/schema"
	"xcodemcp/internal/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type recordedCall struct {
	tool    string
	outcome string
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (f *fakeRecorder) ObserveCall(tool, outcome string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedCall{tool, outcome})
}

type fakeAudit struct {
	entries []domain.AuditEntry
	err     error
}

func (f *fakeAudit) LogAudit(_ context.Context, e domain.AuditEntry) error {
	f.entries = append(f.entries, e)
	return f.err
}

func echoTool(t *testing.T) *Tool {
	t.Helper()
	s := schema.MustNew(
		schema.SessionArg("scheme", schema.String(), "Scheme"),
		schema.Arg("extra", schema.String(), "Extra"),
	)
	return MustNew("echo", "Echo the scheme", s,
		[]schema.Rule{schema.AllOf([]string{"scheme"}, "")},
		func(ctx context.Context, p resolve.Params, _ domain.Executor) (domain.ToolResponse, error) {
			return domain.TextResponse("scheme=" + p.String("scheme")), nil
		})
}

func newTestRegistry(store domain.SessionStore, opts ...RegistryOption) *Registry {
	engine := resolve.NewEngine(testLogger(), "")
	d := NewDispatcher(engine, store, func() domain.Executor { return executor.NewMock() }, testLogger())
	return NewRegistry(testLogger(), d, opts...)
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := newTestRegistry(session.NewStore())
	if err := reg.Register(echoTool(t)); err != nil {
		t.Fatalf("register: %v", err)
	}
	got := reg.Get("echo")
	if got == nil || got.Name != "echo" {
		t.Fatalf("expected to find registered tool, got %v", got)
	}
	if reg.Get("nonexistent") != nil {
		t.Fatal("expected nil for unknown tool")
	}
}

func TestRegistry_DuplicateRegistration(t *testing.T) {
	reg := newTestRegistry(session.NewStore())
	if err := reg.Register(echoTool(t)); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register(echoTool(t)); err == nil {
		t.Fatal("expected error on duplicate name")
	}
}

func TestRegistry_Names_Sorted(t *testing.T) {
	reg := newTestRegistry(session.NewStore())
	for _, name := range []string{"beta", "alpha"} {
		tl := echoTool(t)
		tl.Name = name
		if err := reg.Register(tl); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	names := reg.Names()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "beta" {
		t.Fatalf("unexpected names: %v", names)
	}
}

func TestRegistry_Definitions_HideSessionFields(t *testing.T) {
	reg := newTestRegistry(session.NewStore())
	if err := reg.Register(echoTool(t)); err != nil {
		t.Fatalf("register: %v", err)
	}
	defs := reg.Definitions()
	if len(defs) != 1 {
		t.Fatalf("expected 1 definition, got %d", len(defs))
	}
	props := defs[0].InputSchema["properties"].(map[string]any)
	if _, ok := props["scheme"]; ok {
		t.Error("session-backed field should not be public")
	}
	if _, ok := props["extra"]; !ok {
		t.Error("explicit field should be public")
	}
}

func TestRegistry_Call_UsesSessionDefaults(t *testing.T) {
	store := session.NewStore()
	store.SetDefaults(map[string]any{"scheme": "App"})
	rec := &fakeRecorder{}
	reg := newTestRegistry(store, WithRecorder(rec))
	if err := reg.Register(echoTool(t)); err != nil {
		t.Fatalf("register: %v", err)
	}

	resp := reg.Call(context.Background(), "echo", map[string]any{})
	if resp.IsError {
		t.Fatalf("unexpected error: %s", resp.Text())
	}
	if resp.Text() != "scheme=App" {
		t.Errorf("got %q", resp.Text())
	}
	if len(rec.calls) != 1 || rec.calls[0].outcome != OutcomeOK {
		t.Errorf("recorder: %+v", rec.calls)
	}
}

func TestRegistry_Call_MissingDefaults(t *testing.T) {
	rec := &fakeRecorder{}
	audit := &fakeAudit{}
	reg := newTestRegistry(session.NewStore(), WithRecorder(rec), WithAudit(audit))
	if err := reg.Register(echoTool(t)); err != nil {
		t.Fatalf("register: %v", err)
	}

	resp := reg.Call(context.Background(), "echo", nil)
	if !resp.IsError {
		t.Fatal("expected error response")
	}
	if !strings.Contains(resp.Text(), "Missing required session defaults") {
		t.Errorf("unexpected text: %s", resp.Text())
	}
	if rec.calls[0].outcome != string(resolve.KindMissingRequired) {
		t.Errorf("outcome: %q", rec.calls[0].outcome)
	}
	if len(audit.entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(audit.entries))
	}
	e := audit.entries[0]
	if e.Tool != "echo" || e.Message != "Error: Missing required session defaults" {
		t.Errorf("unexpected audit entry: %+v", e)
	}
}

func TestRegistry_Call_Unknown(t *testing.T) {
	rec := &fakeRecorder{}
	reg := newTestRegistry(session.NewStore(), WithRecorder(rec))
	if err := reg.Register(echoTool(t)); err != nil {
		t.Fatalf("register: %v", err)
	}
	resp := reg.Call(context.Background(), "missing", nil)
	if !resp.IsError {
		t.Fatal("expected error for unknown tool")
	}
	if !strings.Contains(resp.Text(), "available: echo") {
		t.Errorf("should list available tools: %s", resp.Text())
	}
	if rec.calls[0].outcome != "unknown_tool" {
		t.Errorf("outcome: %q", rec.calls[0].outcome)
	}
}

func TestRegistry_Call_AuditFailureIsNotFatal(t *testing.T) {
	store := session.NewStore()
	store.SetDefaults(map[string]any{"scheme": "App"})
	audit := &fakeAudit{err: errors.New("disk full")}
	reg := newTestRegistry(store, WithAudit(audit))
	if err := reg.Register(echoTool(t)); err != nil {
		t.Fatalf("register: %v", err)
	}
	resp := reg.Call(context.Background(), "echo", map[string]any{"extra": "x"})
	if resp.IsError {
		t.Fatalf("audit failure leaked into response: %s", resp.Text())
	}
	if audit.entries[0].Arguments != `{"extra":"x"}` {
		t.Errorf("arguments: %s", audit.entries[0].Arguments)
	}
}
