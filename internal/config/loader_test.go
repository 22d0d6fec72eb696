package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

// TestLoadFrom_DefaultsAndExpansion 默认值兜底与 ${VAR:default} 展开
func TestLoadFrom_DefaultsAndExpansion(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", `
app:
  name: ${AD_STUDIO_TEST_NAME:fallback-name}
scriptwriter:
  base_url: ${AD_STUDIO_TEST_URL}
`)
	t.Setenv("APP_ENV", "test")

	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.App.Name != "fallback-name" {
		t.Fatalf("app.name = %q, want fallback-name", cfg.App.Name)
	}
	if cfg.Scriptwriter.BaseURL != "${AD_STUDIO_TEST_URL}" {
		t.Fatalf("undefined variable should be kept verbatim, got %q", cfg.Scriptwriter.BaseURL)
	}
	if cfg.Storage.Backend != StorageBackendMemory {
		t.Fatalf("storage.backend = %q, want memory", cfg.Storage.Backend)
	}
	if cfg.Refine.MaxRetries != 2 || cfg.Refine.RetryBackoff != time.Second {
		t.Fatalf("refine defaults = %+v", cfg.Refine)
	}
	if cfg.Scriptwriter.GenerateTimeout != 120*time.Second || cfg.Scriptwriter.RefineTimeout != 60*time.Second {
		t.Fatalf("scriptwriter timeouts = %+v", cfg.Scriptwriter)
	}
	if cfg.Feedback.TruncateLength != 80 {
		t.Fatalf("feedback.truncate_length = %d", cfg.Feedback.TruncateLength)
	}
}

// TestLoadFrom_EnvFileMerge 环境配置覆盖默认配置
func TestLoadFrom_EnvFileMerge(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", `
storage:
  backend: memory
versions:
  max_history: 5
`)
	writeConfig(t, dir, "config.staging.yaml", `
storage:
  backend: sqlite
  sqlite:
    path: /tmp/x.db
`)
	t.Setenv("APP_ENV", "staging")

	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Storage.Backend != StorageBackendSQLite || cfg.Storage.SQLite.Path != "/tmp/x.db" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	if cfg.Versions.MaxHistory != 5 {
		t.Fatalf("versions.max_history = %d, want 5", cfg.Versions.MaxHistory)
	}
}

func TestLoadFrom_RejectsUnknownBackend(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", "storage:\n  backend: floppy\n")
	t.Setenv("APP_ENV", "test")

	if _, err := LoadFrom(dir); err == nil {
		t.Fatal("expected error for unknown storage backend")
	}
}

func TestLoadFrom_MissingFile(t *testing.T) {
	if _, err := LoadFrom(t.TempDir()); err == nil {
		t.Fatal("expected error when config.yaml is missing")
	}
}

func TestLoadFrom_RedisBackendNeedsRedis(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", "storage:\n  backend: redis\n")
	t.Setenv("APP_ENV", "test")

	if _, err := LoadFrom(dir); err == nil {
		t.Fatal("expected error when redis backend is chosen without cache.redis.enabled")
	}
}
