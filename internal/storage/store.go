// Package storage persists session defaults and the tool-call audit log in
// SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"xcodemcp/internal/domain"
	"xcodemcp/internal/session"
)

// SQLiteStore implements session.Backend and domain.AuditSink.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var (
	_ session.Backend  = (*SQLiteStore)(nil)
	_ domain.AuditSink = (*SQLiteStore)(nil)
)

// AuditRecord is one stored audit row.
type AuditRecord struct {
	ID         int64
	Tool       string
	Outcome    string
	Arguments  string
	Message    string
	DurationMs int64
	CreatedAt  time.Time
}

func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection for SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := RunMigrations(db, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return &SQLiteStore{db: db, logger: logger}, nil
}

// LoadDefaults returns every stored session default. Values are JSON
// decoded, so numbers come back as float64.
func (s *SQLiteStore) LoadDefaults(ctx context.Context) (map[string]any, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM session_defaults`)
	if err != nil {
		return nil, fmt.Errorf("query session defaults: %w", err)
	}
	defer rows.Close()

	out := make(map[string]any)
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, err
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			s.logger.Warn("skipping unreadable session default", "key", key, "err", err)
			continue
		}
		out[key] = v
	}
	return out, rows.Err()
}

// SaveDefaults replaces the stored defaults with defaults.
func (s *SQLiteStore) SaveDefaults(ctx context.Context, defaults map[string]any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM session_defaults`); err != nil {
		return fmt.Errorf("clear session defaults: %w", err)
	}
	now := time.Now()
	for k, v := range defaults {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", k, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO session_defaults (key, value, updated_at) VALUES (?, ?, ?)`,
			k, string(raw), now,
		); err != nil {
			return fmt.Errorf("save %s: %w", k, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) LogAudit(ctx context.Context, entry domain.AuditEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_log (tool_name, outcome, arguments, message, duration_ms)
		 VALUES (?, ?, ?, ?, ?)`,
		entry.Tool, entry.Outcome, entry.Arguments, entry.Message, entry.DurationMs,
	)
	return err
}

// RecentAudit returns up to limit audit rows, newest first.
func (s *SQLiteStore) RecentAudit(ctx context.Context, limit int) ([]AuditRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tool_name, outcome, COALESCE(arguments, ''), COALESCE(message, ''), duration_ms, created_at
		 FROM audit_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	var out []AuditRecord
	for rows.Next() {
		var r AuditRecord
		if err := rows.Scan(&r.ID, &r.Tool, &r.Outcome, &r.Arguments, &r.Message, &r.DurationMs, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
