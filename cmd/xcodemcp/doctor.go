package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"xcodemcp/internal/config"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

// requiredBinaries are looked up on PATH. axe is only needed by the UI tools.
var requiredBinaries = []struct {
	name     string
	optional bool
}{
	{"xcrun", false},
	{"xcodebuild", false},
	{"axe", true},
}

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your xcodemcp installation",
		Long: `Verifies that the configuration, project config, database and Xcode command
line tools are set up. Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			fmt.Printf("xcodemcp doctor v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			passed, failed, warned := 0, 0, 0

			// 1. Config file
			var cfg *config.Config
			if _, err := os.Stat(cfgPath); err != nil {
				printWarn("Config file", fmt.Sprintf("not found at %s (using defaults)", cfgPath))
				warned++
				cfg = config.Defaults()
				cfg.Session.DBPath = config.ExpandPath(cfg.Session.DBPath)
			} else {
				loaded, err := config.Load(cfgPath)
				if err != nil {
					printFail("Config validation", err.Error())
					failed++
					fmt.Printf("\n%d passed, %d failed\n", passed, failed)
					return fmt.Errorf("config invalid")
				}
				printPass("Config file", cfgPath)
				passed++
				cfg = loaded
			}

			// 2. Workspace
			if info, err := os.Stat(cfg.General.Workspace); err != nil || !info.IsDir() {
				printFail("Workspace", fmt.Sprintf("not a directory: %s", cfg.General.Workspace))
				failed++
			} else {
				printPass("Workspace", cfg.General.Workspace)
				passed++
			}

			// 3. Project config
			projectPath := cfg.ProjectConfigPath()
			if pc, err := config.LoadProject(projectPath); err != nil {
				printFail("Project config", err.Error())
				failed++
			} else if len(pc.SessionDefaults) == 0 && len(pc.DisabledTools) == 0 {
				printWarn("Project config", fmt.Sprintf("none at %s", projectPath))
				warned++
			} else {
				printPass("Project config", fmt.Sprintf("%s (%d defaults)", projectPath, len(pc.SessionDefaults)))
				passed++
			}

			// 4. Database
			if cfg.Session.Persist || cfg.Audit.Enabled {
				if err := checkDatabase(cfg.Session.DBPath); err != nil {
					printFail("Database", err.Error())
					failed++
				} else {
					printPass("Database", cfg.Session.DBPath)
					passed++
				}
			}

			// 5. Command line tools
			for _, bin := range requiredBinaries {
				path, err := exec.LookPath(bin.name)
				switch {
				case err == nil:
					printPass(bin.name, path)
					passed++
				case bin.optional:
					printWarn(bin.name, "not on PATH (UI automation tools will fail)")
					warned++
				default:
					printFail(bin.name, "not on PATH (install Xcode command line tools)")
					failed++
				}
			}

			// 6. Metrics port
			if cfg.Metrics.Enabled {
				if err := checkAddr(cfg.Metrics.Addr); err != nil {
					printWarn("Metrics addr", fmt.Sprintf("%s may be in use: %v", cfg.Metrics.Addr, err))
					warned++
				} else {
					printPass("Metrics addr", cfg.Metrics.Addr+" available")
					passed++
				}
			}

			// 7. Log file
			if cfg.General.LogFile != "" {
				if err := os.MkdirAll(filepath.Dir(cfg.General.LogFile), 0o755); err != nil {
					printWarn("Log file", fmt.Sprintf("cannot create log directory: %v", err))
					warned++
				} else {
					printPass("Log file", cfg.General.LogFile)
					passed++
				}
			}

			fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
			fmt.Printf("Results: %d passed, %d warnings, %d failed\n", passed, warned, failed)
			if failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}
			return nil
		},
	}
}

func checkDatabase(dbPath string) error {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("cannot create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("cannot open: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("cannot ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS _doctor_test (id INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("not writable: %w", err)
	}
	db.ExecContext(ctx, "DROP TABLE IF EXISTS _doctor_test")
	return nil
}

func checkAddr(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return ln.Close()
}

func printPass(check, detail string) {
	fmt.Printf("  [PASS] %-20s %s\n", check, detail)
}

func printFail(check, detail string) {
	fmt.Printf("  [FAIL] %-20s %s\n", check, detail)
}

func printWarn(check, detail string) {
	fmt.Printf("  [WARN] %-20s %s\n", check, detail)
}
