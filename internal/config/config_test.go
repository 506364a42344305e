package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"caseline/internal/config"
)

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":8377" || cfg.Server.BasePath != "/v0" {
		t.Fatalf("unexpected server defaults: %+v", cfg.Server)
	}
	if cfg.Sweep.Schedule != "@every 1m" || cfg.Retention.ArchiveAfterDays != 30 {
		t.Fatalf("unexpected sweep/retention defaults: %+v %+v", cfg.Sweep, cfg.Retention)
	}
}

func TestLoadReadsWorkspaceFile(t *testing.T) {
	dir := t.TempDir()
	raw := []byte("server:\n  addr: \":9000\"\nretention:\n  archive_after_days: 7\n")
	if err := os.WriteFile(filepath.Join(dir, "caseline.yml"), raw, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":9000" {
		t.Fatalf("addr not overridden: %s", cfg.Server.Addr)
	}
	if cfg.Retention.ArchiveAfterDays != 7 {
		t.Fatalf("retention not overridden: %d", cfg.Retention.ArchiveAfterDays)
	}
	// Unset fields keep their defaults.
	if cfg.Sweep.Schedule != "@every 1m" {
		t.Fatalf("sweep default lost: %s", cfg.Sweep.Schedule)
	}
}

func TestValidate(t *testing.T) {
	cfg := config.Default()
	cfg.Retention.ArchiveAfterDays = -1
	if err := cfg.Validate(); err == nil {
		t.Fatalf("negative retention accepted")
	}

	cfg = config.Default()
	cfg.Sweep.Schedule = ""
	if err := cfg.Validate(); err == nil {
		t.Fatalf("empty schedule accepted while sweep enabled")
	}
	cfg.Sweep.Disabled = true
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled sweep should not require a schedule: %v", err)
	}
}

func TestFromYAMLRejectsGarbage(t *testing.T) {
	if _, err := config.FromYAML([]byte(":-not yaml::")); err == nil {
		t.Fatalf("garbage yaml accepted")
	}
}
