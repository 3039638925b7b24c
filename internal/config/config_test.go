package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultWorkersPositive(t *testing.T) {
	s := Default()
	if s.Workers < 1 {
		t.Fatalf("Default().Workers = %d, want >= 1", s.Workers)
	}
	if s.KillGracePeriod <= 0 {
		t.Fatalf("Default().KillGracePeriod = %v, want > 0", s.KillGracePeriod)
	}
}

func TestLoadSettingsFile(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "tasks.csv")
	yamlPath := filepath.Join(dir, ".taskpanel.yaml")
	if err := os.WriteFile(yamlPath, []byte("workers: 7\nkill_grace_period_ms: 500\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(csvPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Workers != 7 {
		t.Fatalf("Workers = %d, want 7", s.Workers)
	}
	if s.KillGracePeriod.Milliseconds() != 500 {
		t.Fatalf("KillGracePeriod = %v, want 500ms", s.KillGracePeriod)
	}
}

func TestEnvOverridesSettingsFile(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "tasks.csv")
	yamlPath := filepath.Join(dir, ".taskpanel.yaml")
	if err := os.WriteFile(yamlPath, []byte("workers: 7\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TASKPANEL_WORKERS", "3")

	s, err := Load(csvPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Workers != 3 {
		t.Fatalf("Workers = %d, want 3 (env should override file)", s.Workers)
	}
}
