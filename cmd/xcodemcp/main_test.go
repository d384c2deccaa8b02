package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"xcodemcp/internal/config"
	"xcodemcp/internal/storage"
	"xcodemcp/internal/tools"
)

func init() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.General.Workspace = dir
	cfg.General.LogLevel = "error"
	cfg.Session.DBPath = filepath.Join(dir, "xcodemcp.db")
	return cfg
}

func TestParseAssignments(t *testing.T) {
	got, err := parseAssignments([]string{
		"scheme=2024",
		"configuration=true",
		"useLatestOS=true",
		"simulatorName=iPhone 16",
		"derivedDataPath=",
	}, tools.SessionSchema())
	if err != nil {
		t.Fatalf("parseAssignments: %v", err)
	}
	if got["scheme"] != "2024" || got["configuration"] != "true" {
		t.Errorf("string fields should keep raw text: %#v", got)
	}
	if got["useLatestOS"] != true || got["simulatorName"] != "iPhone 16" || got["derivedDataPath"] != "" {
		t.Errorf("unexpected values: %#v", got)
	}
	if _, err := parseAssignments([]string{"noequals"}, tools.SessionSchema()); err == nil {
		t.Error("expected error for missing '='")
	}
	if _, err := parseAssignments([]string{"=value"}, tools.SessionSchema()); err == nil {
		t.Error("expected error for empty key")
	}
	_, err = parseAssignments([]string{"count=3"}, tools.SessionSchema())
	if err == nil || !strings.Contains(err.Error(), "scheme") {
		t.Errorf("expected unknown key error listing known keys, got %v", err)
	}
}

func TestParseAssignments_NonStringFallsBackToRaw(t *testing.T) {
	got, err := parseAssignments([]string{"useLatestOS=yes"}, tools.SessionSchema())
	if err != nil {
		t.Fatalf("parseAssignments: %v", err)
	}
	if got["useLatestOS"] != "yes" {
		t.Errorf("useLatestOS = %#v, want raw text for the validator to judge", got["useLatestOS"])
	}
}

func TestNewApp_SeedsFromProjectConfig(t *testing.T) {
	cfg := testConfig(t)
	pc := &config.ProjectConfig{
		SessionDefaults: map[string]any{"scheme": "App"},
		DisabledTools:   []string{"tap"},
	}
	if err := config.SaveProject(cfg.ProjectConfigPath(), pc); err != nil {
		t.Fatalf("SaveProject: %v", err)
	}
	cfg.Tools.Disabled = []string{"type_text"}

	a, err := newApp(cfg)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.Close()

	if v, _ := a.store.Get("scheme"); v != "App" {
		t.Errorf("scheme not seeded: %v", v)
	}
	if a.registry.Get("tap") != nil || a.registry.Get("type_text") != nil {
		t.Error("disabled tools should not be registered")
	}
	if a.registry.Get("boot_sim") == nil {
		t.Error("boot_sim should be registered")
	}
	if a.db != nil || a.collector != nil {
		t.Error("storage and metrics should be off by default")
	}
}

func TestNewApp_PersistedDefaultsWinOverProjectSeed(t *testing.T) {
	cfg := testConfig(t)
	cfg.Session.Persist = true
	config.SaveProject(cfg.ProjectConfigPath(), &config.ProjectConfig{
		SessionDefaults: map[string]any{"scheme": "FromFile", "configuration": "Release"},
	})

	first, err := newApp(cfg)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	resp := first.registry.Call(context.Background(), "session_set_defaults", map[string]any{"scheme": "Chosen"})
	if resp.IsError {
		t.Fatalf("set defaults failed: %s", resp.Text())
	}
	first.Close()

	second, err := newApp(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()
	if v, _ := second.store.Get("scheme"); v != "Chosen" {
		t.Errorf("scheme = %v, want persisted value", v)
	}
	if v, _ := second.store.Get("configuration"); v != "Release" {
		t.Errorf("configuration = %v", v)
	}
}

func TestNewApp_ProjectSeedRespectsExclusivePairs(t *testing.T) {
	cfg := testConfig(t)
	cfg.Session.Persist = true

	first, err := newApp(cfg)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	resp := first.registry.Call(context.Background(), "session_set_defaults", map[string]any{"simulatorName": "iPhone 16"})
	if resp.IsError {
		t.Fatalf("set defaults failed: %s", resp.Text())
	}
	first.Close()

	config.SaveProject(cfg.ProjectConfigPath(), &config.ProjectConfig{
		SessionDefaults: map[string]any{
			"simulatorId": "5A8E7C9B-3D21-4F6A-9B0E-1C2D3E4F5A6B",
			"scheme":      "App",
		},
	})

	second, err := newApp(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()
	if _, ok := second.store.Get("simulatorId"); ok {
		t.Error("simulatorId must not be seeded while simulatorName is stored")
	}
	if v, _ := second.store.Get("simulatorName"); v != "iPhone 16" {
		t.Errorf("simulatorName = %v, want persisted value", v)
	}
	if v, _ := second.store.Get("scheme"); v != "App" {
		t.Errorf("scheme = %v, want seeded value", v)
	}
}

func TestNewApp_AuditAndMetricsWired(t *testing.T) {
	cfg := testConfig(t)
	cfg.Audit.Enabled = true
	cfg.Metrics.Enabled = true

	a, err := newApp(cfg)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.Close()

	a.registry.Call(context.Background(), "boot_sim", nil)

	records, err := a.db.RecentAudit(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentAudit: %v", err)
	}
	if len(records) != 1 || records[0].Tool != "boot_sim" || records[0].Outcome != "missing_required" {
		t.Errorf("unexpected audit records: %+v", records)
	}
	if a.collector == nil {
		t.Fatal("collector not created")
	}
}

func TestFormatAuditRecord(t *testing.T) {
	ts := time.Date(2026, 3, 1, 9, 30, 0, 0, time.Local)
	ok := formatAuditRecord(storage.AuditRecord{Tool: "clean", Outcome: "ok", DurationMs: 12, CreatedAt: ts, Message: "ignored"})
	if strings.Contains(ok, "ignored") {
		t.Errorf("message shown for ok call: %q", ok)
	}
	if !strings.HasPrefix(ok, "2026-03-01 09:30:00") {
		t.Errorf("unexpected timestamp: %q", ok)
	}
	bad := formatAuditRecord(storage.AuditRecord{Tool: "boot_sim", Outcome: "missing_required", CreatedAt: ts, Message: "Error: Missing required session defaults"})
	if !strings.HasSuffix(bad, "Error: Missing required session defaults") {
		t.Errorf("message missing: %q", bad)
	}
}
