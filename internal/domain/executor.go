package domain

import "context"

// ExecOptions tunes a single command execution.
type ExecOptions struct {
	Label    string            // human readable name used in logs
	UseShell bool              // run the joined command through the shell
	Env      map[string]string // extra environment, merged over the process env
	Dir      string            // working directory
	Detached bool              // start and return without waiting
}

// CommandResult is what an Executor reports back.
type CommandResult struct {
	Success  bool   `json:"success"`
	Output   string `json:"output"`
	Error    string `json:"error,omitempty"`
	ExitCode int    `json:"exitCode"`
	PID      int    `json:"pid,omitempty"` // set for detached runs
}

// Executor runs external commands on behalf of tool logic.
type Executor interface {
	Execute(ctx context.Context, command []string, opts ExecOptions) (CommandResult, error)
}

// SessionStore is the shared, process-wide defaults mapping read by every tool call.
type SessionStore interface {
	SetDefaults(partial map[string]any)
	Clear()
	Delete(keys ...string)
	Replace(set map[string]any, drop []string) []string
	Get(key string) (any, bool)
	GetAll() map[string]any
}

// AuditEntry records one dispatched tool call.
type AuditEntry struct {
	Tool       string
	Outcome    string // ok | tool_error | missing_required | mutually_exclusive | field_validation_failed
	Arguments  string // JSON of the explicit arguments
	Message    string
	DurationMs int64
}

// AuditSink persists AuditEntry records.
type AuditSink interface {
	LogAudit(ctx context.Context, entry AuditEntry) error
}
