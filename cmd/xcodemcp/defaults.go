package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"xcodemcp/internal/schema"
	"xcodemcp/internal/storage"
	"xcodemcp/internal/tool"
	"xcodemcp/internal/tools"

	"github.com/spf13/cobra"
)

func defaultsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "defaults",
		Short: "Show and edit session defaults",
		Long: `Manage the session defaults tools fall back to. Without session.persist the
values only live for this process, so these commands are mostly useful with
persistence enabled.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the current session defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionTool(cmd, "session_show_defaults", nil)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set key=value...",
		Short: "Set session defaults (e.g. scheme=App simulatorName='iPhone 16')",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseAssignments(args, tools.SessionSchema())
			if err != nil {
				return err
			}
			return runSessionTool(cmd, "session_set_defaults", values)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear [key...]",
		Short: "Remove some or all session defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			var callArgs map[string]any
			if len(args) > 0 {
				keys := make([]any, len(args))
				for i, k := range args {
					keys[i] = k
				}
				callArgs = map[string]any{"keys": keys}
			}
			return runSessionTool(cmd, "session_clear_defaults", callArgs)
		},
	})

	return cmd
}

// runSessionTool routes a defaults subcommand through the registered session
// tool so the CLI gets the same validation and exclusivity handling.
func runSessionTool(cmd *cobra.Command, name string, args map[string]any) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Session.Persist && name != "session_show_defaults" {
		logger.Warn("session.persist is disabled; changes are discarded when this command exits")
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	resp := a.registry.Call(cmd.Context(), name, args)
	fmt.Println(resp.Text())
	if resp.IsError {
		return fmt.Errorf("%s failed", name)
	}
	return nil
}

// parseAssignments turns key=value pairs into call arguments for the fields
// of s. String fields keep the raw text, so scheme=2024 stays "2024". Other
// fields decode the value as JSON (true, 3, ["a"]) and fall back to the raw
// text, leaving type errors to the field validator.
func parseAssignments(pairs []string, s *schema.Schema) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		key, raw, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", p)
		}
		field, ok := s.Field(key)
		if !ok {
			return nil, fmt.Errorf("unknown key %q (known: %s)", key, strings.Join(s.Names(), ", "))
		}
		if field.Validator.JSONSchema()["type"] == "string" {
			out[key] = raw
			continue
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		out[key] = v
	}
	return out, nil
}

func auditCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recent tool calls from the audit log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := storage.NewSQLiteStore(cfg.Session.DBPath, logger)
			if err != nil {
				return fmt.Errorf("open audit log: %w", err)
			}
			defer db.Close()

			records, err := db.RecentAudit(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println("No audit records.")
				if !cfg.Audit.Enabled {
					fmt.Println("Enable with: xcodemcp config set audit.enabled true")
				}
				return nil
			}
			for _, r := range records {
				fmt.Println(formatAuditRecord(r))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of records to show")
	return cmd
}

func formatAuditRecord(r storage.AuditRecord) string {
	line := fmt.Sprintf("%s  %-22s %-24s %6dms",
		r.CreatedAt.Local().Format(time.DateTime), r.Tool, r.Outcome, r.DurationMs)
	if r.Outcome != tool.OutcomeOK && r.Message != "" {
		line += "  " + r.Message
	}
	return line
}
