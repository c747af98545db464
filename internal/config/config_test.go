package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultsWhenDefaultFileMissing(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.History.MaxEntries != 20 {
		t.Errorf("Expected 20 max entries, got %d", cfg.History.MaxEntries)
	}
	if cfg.History.DedupeWindow != time.Minute {
		t.Errorf("Expected 1m window, got %v", cfg.History.DedupeWindow)
	}
	if cfg.Geo.Provider != "ipinfo" {
		t.Errorf("Expected ipinfo provider, got %q", cfg.Geo.Provider)
	}
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Expected error for missing explicit config")
	}
}

func TestLoad_YAMLAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
database:
  path: /tmp/x.db
history:
  max_entries: 5
  dedupe_window: 30s
geo:
  locale: ko
`
	if err := os.WriteFile(path, []byte(yml), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("IPSCOPE_HISTORY_MAX", "7")
	t.Setenv("IPSCOPE_DEDUPE_WINDOW", "2m")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Database.Path != "/tmp/x.db" {
		t.Errorf("Expected db path from yaml, got %q", cfg.Database.Path)
	}
	if cfg.History.MaxEntries != 7 {
		t.Errorf("Expected env override 7, got %d", cfg.History.MaxEntries)
	}
	if cfg.History.DedupeWindow != 2*time.Minute {
		t.Errorf("Expected env override 2m, got %v", cfg.History.DedupeWindow)
	}
	if cfg.Geo.Locale != "ko" {
		t.Errorf("Expected locale ko, got %q", cfg.Geo.Locale)
	}
	if cfg.Trace.URL == "" {
		t.Error("Expected default trace url to survive yaml load")
	}
}

func TestEnvCredential(t *testing.T) {
	cfg := Default()
	cfg.AI.EnvVar = "IPSCOPE_TEST_KEY"
	t.Setenv("IPSCOPE_TEST_KEY", "secret")
	if got := cfg.EnvCredential(); got != "secret" {
		t.Errorf("Expected secret, got %q", got)
	}
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir failed: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })
}
