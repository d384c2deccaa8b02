// Package executor runs external commands for tool logic.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"xcodemcp/internal/domain"
)

const (
	defaultTimeout        = 300
	defaultMaxOutputBytes = 1 << 20
	defaultShell          = "/bin/sh"
)

// Config tunes a Command executor.
type Config struct {
	TimeoutSeconds int
	MaxOutputBytes int
	Shell          string
	Env            map[string]string // applied to every command, under ExecOptions.Env
	Dir            string            // working directory when ExecOptions.Dir is empty
	Logger         *slog.Logger
}

// Command runs commands with os/exec.
type Command struct {
	timeout        time.Duration
	maxOutputBytes int
	shell          string
	env            map[string]string
	dir            string
	logger         *slog.Logger
}

var _ domain.Executor = (*Command)(nil)

// New returns a Command executor, filling zero config values with defaults.
func New(cfg Config) *Command {
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = defaultTimeout
	}
	if cfg.MaxOutputBytes <= 0 {
		cfg.MaxOutputBytes = defaultMaxOutputBytes
	}
	if cfg.Shell == "" {
		cfg.Shell = defaultShell
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Command{
		timeout:        time.Duration(cfg.TimeoutSeconds) * time.Second,
		maxOutputBytes: cfg.MaxOutputBytes,
		shell:          cfg.Shell,
		env:            cfg.Env,
		dir:            cfg.Dir,
		logger:         cfg.Logger,
	}
}

// Execute runs command. A non-zero exit is reported through the result, not
// the error; the error is reserved for commands that could not run at all.
func (c *Command) Execute(ctx context.Context, command []string, opts domain.ExecOptions) (domain.CommandResult, error) {
	if len(command) == 0 || strings.TrimSpace(command[0]) == "" {
		return domain.CommandResult{}, errors.New("empty command")
	}
	label := opts.Label
	if label == "" {
		label = command[0]
	}

	if opts.Detached {
		return c.startDetached(command, opts, label)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := c.build(ctx, command, opts)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	c.logger.Debug("command finished", "label", label, "duration", time.Since(start), "err", err)

	res := domain.CommandResult{
		Output: c.truncate(stdout.String()),
		Error:  c.truncate(stderr.String()),
	}
	if err == nil {
		res.Success = true
		return res, nil
	}
	if ctx.Err() != nil {
		res.ExitCode = -1
		res.Error = strings.TrimSpace(res.Error + "\ncommand timed out or cancelled")
		return res, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	return res, fmt.Errorf("run %s: %w", label, err)
}

func (c *Command) build(ctx context.Context, command []string, opts domain.ExecOptions) *exec.Cmd {
	var cmd *exec.Cmd
	if opts.UseShell {
		cmd = exec.CommandContext(ctx, c.shell, "-c", shellJoin(command))
	} else {
		cmd = exec.CommandContext(ctx, command[0], command[1:]...)
	}
	cmd.Dir = opts.Dir
	if cmd.Dir == "" {
		cmd.Dir = c.dir
	}
	if len(c.env) > 0 || len(opts.Env) > 0 {
		// Later entries win in os/exec, so per-call values override the base env.
		cmd.Env = os.Environ()
		for k, v := range c.env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
		for k, v := range opts.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}
	return cmd
}

// startDetached starts a long-running process (log capture, app launch with
// console) and returns immediately. The process outlives the call.
func (c *Command) startDetached(command []string, opts domain.ExecOptions, label string) (domain.CommandResult, error) {
	cmd := c.build(context.Background(), command, opts)
	if err := cmd.Start(); err != nil {
		return domain.CommandResult{}, fmt.Errorf("start %s: %w", label, err)
	}
	pid := cmd.Process.Pid
	go func() {
		err := cmd.Wait()
		c.logger.Debug("detached command exited", "label", label, "pid", pid, "err", err)
	}()
	c.logger.Info("detached command started", "label", label, "pid", pid)
	return domain.CommandResult{Success: true, PID: pid}, nil
}

func (c *Command) truncate(s string) string {
	if c.maxOutputBytes > 0 && len(s) > c.maxOutputBytes {
		return s[:c.maxOutputBytes] + "\n... (output truncated)"
	}
	return s
}

// shellJoin quotes each argument so the shell sees the same argv.
func shellJoin(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		if a != "" && !strings.ContainsAny(a, " \t\n'\"\\$`*?[]{}()<>|&;#~!") {
			quoted[i] = a
			continue
		}
		quoted[i] = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
	}
	return strings.Join(quoted, " ")
}
