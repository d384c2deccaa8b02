package executor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"xcodemcp/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestCommand() *Command {
	return New(Config{TimeoutSeconds: 5, MaxOutputBytes: 4096, Logger: testLogger()})
}

func TestNew_Defaults(t *testing.T) {
	c := New(Config{})
	if c.shell != defaultShell {
		t.Errorf("shell: got %q", c.shell)
	}
	if c.maxOutputBytes != defaultMaxOutputBytes {
		t.Errorf("maxOutputBytes: got %d", c.maxOutputBytes)
	}
	if c.timeout.Seconds() != defaultTimeout {
		t.Errorf("timeout: got %v", c.timeout)
	}
}

func TestExecute_EmptyCommand_Error(t *testing.T) {
	c := newTestCommand()
	if _, err := c.Execute(context.Background(), nil, domain.ExecOptions{}); err == nil {
		t.Fatal("expected error for nil command")
	}
	if _, err := c.Execute(context.Background(), []string{"  "}, domain.ExecOptions{}); err == nil {
		t.Fatal("expected error for blank command")
	}
}

func TestExecute_Echo_Success(t *testing.T) {
	c := newTestCommand()
	res, err := c.Execute(context.Background(), []string{"echo", "hello"}, domain.ExecOptions{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Success || !strings.Contains(res.Output, "hello") {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestExecute_NonZeroExit_ReportedInResult(t *testing.T) {
	c := newTestCommand()
	res, err := c.Execute(context.Background(), []string{"sh", "-c", "echo oops >&2; exit 3"}, domain.ExecOptions{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode: got %d", res.ExitCode)
	}
	if !strings.Contains(res.Error, "oops") {
		t.Errorf("stderr not captured: %q", res.Error)
	}
}

func TestExecute_UseShell_QuotesArguments(t *testing.T) {
	c := newTestCommand()
	res, err := c.Execute(context.Background(), []string{"echo", "it's a $HOME"}, domain.ExecOptions{UseShell: true})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if strings.TrimSpace(res.Output) != "it's a $HOME" {
		t.Errorf("argument was not passed literally: %q", res.Output)
	}
}

func TestExecute_EnvAndDir(t *testing.T) {
	c := newTestCommand()
	dir := t.TempDir()
	res, err := c.Execute(context.Background(), []string{"sh", "-c", "echo $XCM_TEST; pwd"}, domain.ExecOptions{
		Env: map[string]string{"XCM_TEST": "present"},
		Dir: dir,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(res.Output, "present") {
		t.Errorf("env not applied: %q", res.Output)
	}
	if !strings.Contains(res.Output, dir) {
		t.Errorf("dir not applied: %q", res.Output)
	}
}

func TestExecute_BaseEnv_OverriddenPerCall(t *testing.T) {
	c := New(Config{
		TimeoutSeconds: 5,
		Env:            map[string]string{"XCM_BASE": "base", "XCM_OVERRIDE": "base"},
		Logger:         testLogger(),
	})
	res, err := c.Execute(context.Background(), []string{"sh", "-c", "echo $XCM_BASE-$XCM_OVERRIDE"}, domain.ExecOptions{
		Env: map[string]string{"XCM_OVERRIDE": "call"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if strings.TrimSpace(res.Output) != "base-call" {
		t.Errorf("got %q, want base-call", res.Output)
	}
}

func TestExecute_DefaultDir(t *testing.T) {
	dir := t.TempDir()
	c := New(Config{TimeoutSeconds: 5, Dir: dir, Logger: testLogger()})
	res, err := c.Execute(context.Background(), []string{"pwd"}, domain.ExecOptions{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(res.Output, filepath.Base(dir)) {
		t.Errorf("default dir not applied: %q", res.Output)
	}
}

func TestExecute_Timeout(t *testing.T) {
	c := New(Config{TimeoutSeconds: 1, Logger: testLogger()})
	res, err := c.Execute(context.Background(), []string{"sleep", "5"}, domain.ExecOptions{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Success || res.ExitCode != -1 {
		t.Errorf("expected timeout result, got %+v", res)
	}
}

func TestExecute_TruncatesOutput(t *testing.T) {
	c := New(Config{TimeoutSeconds: 5, MaxOutputBytes: 10, Logger: testLogger()})
	res, err := c.Execute(context.Background(), []string{"sh", "-c", "printf '%050d' 0"}, domain.ExecOptions{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.HasSuffix(res.Output, "(output truncated)") {
		t.Errorf("expected truncation marker, got %q", res.Output)
	}
}

func TestExecute_Detached_ReturnsPID(t *testing.T) {
	c := newTestCommand()
	res, err := c.Execute(context.Background(), []string{"sleep", "0.1"}, domain.ExecOptions{Detached: true})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Success || res.PID <= 0 {
		t.Errorf("unexpected detached result: %+v", res)
	}
}

func TestExecute_MissingBinary_Error(t *testing.T) {
	c := newTestCommand()
	if _, err := c.Execute(context.Background(), []string{"xcodemcp-no-such-binary"}, domain.ExecOptions{}); err == nil {
		t.Fatal("expected error for missing binary")
	}
}

func TestShellJoin(t *testing.T) {
	got := shellJoin([]string{"xcrun", "simctl", "", "a b", "it's"})
	want := `xcrun simctl '' 'a b' 'it'\''s'`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestMock_ScriptedResults(t *testing.T) {
	m := NewMock(
		domain.CommandResult{Success: true, Output: "first"},
		domain.CommandResult{Success: false, Error: "second"},
	)
	ctx := context.Background()
	r1, _ := m.Execute(ctx, []string{"a"}, domain.ExecOptions{})
	r2, _ := m.Execute(ctx, []string{"b"}, domain.ExecOptions{})
	r3, _ := m.Execute(ctx, []string{"c"}, domain.ExecOptions{Label: "third"})
	if r1.Output != "first" || r2.Error != "second" || r3.Error != "second" {
		t.Errorf("unexpected results: %+v %+v %+v", r1, r2, r3)
	}
	calls := m.Calls()
	if len(calls) != 3 || calls[2].Opts.Label != "third" {
		t.Errorf("calls not recorded: %+v", calls)
	}
	if got := m.LastCommand(); len(got) != 1 || got[0] != "c" {
		t.Errorf("LastCommand: %v", got)
	}
}

func TestMock_FailWithAndHook(t *testing.T) {
	boom := errors.New("boom")
	m := NewMock().FailWith(boom)
	if _, err := m.Execute(context.Background(), []string{"x"}, domain.ExecOptions{}); !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}

	m = NewMock()
	m.OnExecute = func(command []string, _ domain.ExecOptions) (domain.CommandResult, error) {
		return domain.CommandResult{Success: true, Output: strings.Join(command, "+")}, nil
	}
	res, _ := m.Execute(context.Background(), []string{"a", "b"}, domain.ExecOptions{})
	if res.Output != "a+b" {
		t.Errorf("hook not used: %+v", res)
	}
}
