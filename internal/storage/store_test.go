package storage

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"xcodemcp/internal/domain"
	"xcodemcp/internal/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func testStore(t *testing.T) (*SQLiteStore, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "nested", "xcodemcp.db")
	s, err := NewSQLiteStore(dbPath, testLogger())
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, dbPath
}

func TestRunMigrations_FreshAndIdempotent(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "m.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	for i := 0; i < 2; i++ {
		if err := RunMigrations(db, testLogger()); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	version, err := GetSchemaVersion(db)
	if err != nil {
		t.Fatal(err)
	}
	if version != schemaVersion {
		t.Errorf("expected schema version %d, got %d", schemaVersion, version)
	}
}

func TestDefaults_RoundTrip(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	in := map[string]any{"scheme": "App", "useLatestOS": true, "retries": 3}
	if err := s.SaveDefaults(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.LoadDefaults(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got["scheme"] != "App" || got["useLatestOS"] != true || got["retries"] != 3.0 {
		t.Fatalf("unexpected defaults: %v", got)
	}

	if err := s.SaveDefaults(ctx, map[string]any{"scheme": "Other"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, _ = s.LoadDefaults(ctx)
	if len(got) != 1 || got["scheme"] != "Other" {
		t.Fatalf("save should replace the mapping, got %v", got)
	}
}

func TestDefaults_SurviveReopen(t *testing.T) {
	s, dbPath := testStore(t)
	store := session.NewStore(session.WithBackend(s), session.WithLogger(testLogger()))
	store.SetDefaults(map[string]any{"bundleId": "com.x"})
	s.Close()

	reopened, err := NewSQLiteStore(dbPath, testLogger())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	restored := session.NewStore(session.WithBackend(reopened))
	if v, ok := restored.Get("bundleId"); !ok || v != "com.x" {
		t.Fatalf("expected bundleId to survive restart, got %v", v)
	}
}

func TestAudit_LogAndRecent(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	entries := []domain.AuditEntry{
		{Tool: "build_sim", Outcome: "ok", Arguments: "{}", DurationMs: 1200},
		{Tool: "tap", Outcome: "missing_required", Arguments: `{"x":1}`, Message: "Error: Parameter validation failed"},
	}
	for _, e := range entries {
		if err := s.LogAudit(ctx, e); err != nil {
			t.Fatalf("LogAudit: %v", err)
		}
	}

	recent, err := s.RecentAudit(ctx, 10)
	if err != nil {
		t.Fatalf("RecentAudit: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(recent))
	}
	if recent[0].Tool != "tap" || recent[0].Message == "" {
		t.Errorf("newest first expected, got %+v", recent[0])
	}
	if recent[1].DurationMs != 1200 {
		t.Errorf("duration: %d", recent[1].DurationMs)
	}

	limited, _ := s.RecentAudit(ctx, 1)
	if len(limited) != 1 {
		t.Errorf("limit ignored: %d", len(limited))
	}
}
