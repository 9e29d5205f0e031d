package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{
		"basic_config": {"server_address": ":9000", "token_ttl": 30},
		"databases": {"sqlite3": {"dsn": "portal.db"}},
		"data": {"cyber_incidents_path": "DATA/cyber_incidents.csv", "it_tickets_path": "/abs/it_tickets.csv"},
		"dashboard_roles": {"cyber": ["admin", "cybersecurity"]}
	}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BasicConfig.ServerAddress != ":9000" || cfg.BasicConfig.TokenTTL != 30 {
		t.Fatalf("unexpected basic config: %+v", cfg.BasicConfig)
	}
	if got := cfg.Databases["sqlite3"].DSN; got != filepath.Join(dir, "portal.db") {
		t.Fatalf("sqlite dsn not resolved: %s", got)
	}
	if got := cfg.Data.CyberIncidentsPath; got != filepath.Join(dir, "DATA", "cyber_incidents.csv") {
		t.Fatalf("cyber path not resolved: %s", got)
	}
	if cfg.Data.ITTicketsPath != "/abs/it_tickets.csv" {
		t.Fatalf("absolute path rewritten: %s", cfg.Data.ITTicketsPath)
	}
	if len(cfg.DashboardRoles["cyber"]) != 2 {
		t.Fatalf("dashboard roles not decoded: %+v", cfg.DashboardRoles)
	}
}

func TestLoadAddressOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"databases": {"sqlite3": {"dsn": ":memory:"}}}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("INSIGHTPORTAL_ADDR", ":7777")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BasicConfig.ServerAddress != ":7777" {
		t.Fatalf("expected env override, got %q", cfg.BasicConfig.ServerAddress)
	}
	if cfg.Databases["sqlite3"].DSN != ":memory:" {
		t.Fatalf("memory dsn rewritten: %q", cfg.Databases["sqlite3"].DSN)
	}
}

func TestLoadRequiresDatabase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"basic_config": {}}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error without databases")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing config")
	}
}
