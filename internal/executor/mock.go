package executor

import (
	"context"
	"sync"

	"xcodemcp/internal/domain"
)

// Call is one recorded Execute invocation.
type Call struct {
	Command []string
	Opts    domain.ExecOptions
}

// Mock is a scripted executor for tests. Results are returned in order; once
// exhausted the last one repeats. OnExecute, when set, takes precedence.
type Mock struct {
	mu        sync.Mutex
	results   []domain.CommandResult
	err       error
	calls     []Call
	OnExecute func(command []string, opts domain.ExecOptions) (domain.CommandResult, error)
}

var _ domain.Executor = (*Mock)(nil)

// NewMock returns a Mock that answers with results in order. With no results
// every call succeeds with empty output.
func NewMock(results ...domain.CommandResult) *Mock {
	return &Mock{results: results}
}

// FailWith makes every call return err.
func (m *Mock) FailWith(err error) *Mock {
	m.err = err
	return m
}

func (m *Mock) Execute(ctx context.Context, command []string, opts domain.ExecOptions) (domain.CommandResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{Command: append([]string(nil), command...), Opts: opts})
	idx := len(m.calls) - 1
	hook := m.OnExecute
	m.mu.Unlock()

	if hook != nil {
		return hook(command, opts)
	}
	if m.err != nil {
		return domain.CommandResult{}, m.err
	}
	if len(m.results) == 0 {
		return domain.CommandResult{Success: true}, nil
	}
	if idx >= len(m.results) {
		idx = len(m.results) - 1
	}
	return m.results[idx], nil
}

// Calls returns every recorded call.
func (m *Mock) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// LastCommand returns the most recent command, or nil.
func (m *Mock) LastCommand() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	return m.calls[len(m.calls)-1].Command
}
