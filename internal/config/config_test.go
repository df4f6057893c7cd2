package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"URL", "QUERY", "LIMIT", "CONTEXT", "RANGE_MINUTES", "LOG_FILE", "LOG_LEVEL", "EXPORT_DIR"} {
		t.Setenv(envPrefix+"_"+name, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	clearEnv(t)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"), nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.URL != defaultURL {
		t.Fatalf("URL = %q, want %q", cfg.URL, defaultURL)
	}
	if cfg.DefaultQuery != defaultQuery {
		t.Fatalf("DefaultQuery = %q, want %q", cfg.DefaultQuery, defaultQuery)
	}
	if cfg.Limit != 200 || cfg.ContextRadius != 5 || cfg.RangeMinutes != 10 {
		t.Fatalf("Limit/Context/Range = %d/%d/%d, want 200/5/10", cfg.Limit, cfg.ContextRadius, cfg.RangeMinutes)
	}
	wantLog, err := expandPath(defaultLogFile)
	if err != nil {
		t.Fatalf("expandPath(defaultLogFile) returned error: %v", err)
	}
	if cfg.LogFile != wantLog {
		t.Fatalf("LogFile = %q, want %q", cfg.LogFile, wantLog)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestLoad_DefaultPathUnderHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	clearEnv(t)

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if want := filepath.Join(home, ".config", "lokctl", "config.toml"); cfg.Path != want {
		t.Fatalf("Path = %q, want %q", cfg.Path, want)
	}
}

func TestLoad_ParsesTOML(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	clearEnv(t)

	path := writeConfig(t, `
url = "  http://loki.internal:3100  "
query = '{job="api"}'
limit = 50
context = 30
range_minutes = 2
log_file = "~/logs/lokctl.log"
log_level = "DEBUG"
`)
	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.URL != "http://loki.internal:3100" {
		t.Fatalf("URL = %q, want trimmed value", cfg.URL)
	}
	if cfg.DefaultQuery != `{job="api"}` {
		t.Fatalf("DefaultQuery = %q, want %q", cfg.DefaultQuery, `{job="api"}`)
	}
	if cfg.Limit != 50 || cfg.ContextRadius != 30 || cfg.RangeMinutes != 2 {
		t.Fatalf("Limit/Context/Range = %d/%d/%d, want 50/30/2", cfg.Limit, cfg.ContextRadius, cfg.RangeMinutes)
	}
	if !strings.HasPrefix(cfg.LogFile, home) {
		t.Fatalf("LogFile = %q, want it under HOME %q", cfg.LogFile, home)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearEnv(t)
	t.Setenv("LOKI_URL", "http://env:3100")
	t.Setenv("LOKI_RANGE_MINUTES", "45")

	path := writeConfig(t, `
url = "http://file:3100"
range_minutes = 2
limit = 75
`)
	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.URL != "http://env:3100" {
		t.Fatalf("URL = %q, want env value", cfg.URL)
	}
	if cfg.RangeMinutes != 45 {
		t.Fatalf("RangeMinutes = %d, want 45", cfg.RangeMinutes)
	}
	if cfg.Limit != 75 {
		t.Fatalf("Limit = %d, want file value 75", cfg.Limit)
	}
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearEnv(t)
	t.Setenv("LOKI_URL", "http://env:3100")
	t.Setenv("LOKI_LIMIT", "300")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse([]string{"--url", "http://flag:3100"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"), fs)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.URL != "http://flag:3100" {
		t.Fatalf("URL = %q, want flag value", cfg.URL)
	}
	if cfg.Limit != 300 {
		t.Fatalf("Limit = %d, want env value 300 (flag not set)", cfg.Limit)
	}
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearEnv(t)
	t.Setenv("LOKI_LIMIT", "lots")
	t.Setenv("LOKI_CONTEXT", "-3")

	path := writeConfig(t, "range_minutes = 0\n")
	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Limit != defaultLimit {
		t.Fatalf("Limit = %d, want %d", cfg.Limit, defaultLimit)
	}
	if cfg.ContextRadius != defaultContext {
		t.Fatalf("ContextRadius = %d, want %d", cfg.ContextRadius, defaultContext)
	}
	if cfg.RangeMinutes != defaultRangeMinutes {
		t.Fatalf("RangeMinutes = %d, want %d", cfg.RangeMinutes, defaultRangeMinutes)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearEnv(t)

	path := writeConfig(t, "url = [unterminated")
	_, err := Load(path, nil)
	if err == nil {
		t.Fatalf("Load returned nil error for invalid TOML")
	}
	if !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("error = %q, want parse config prefix", err)
	}
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/exports")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	if want := filepath.Join(home, "exports"); got != want {
		t.Fatalf("expandPath = %q, want %q", got, want)
	}
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath(blank) returned nil error")
	}
}
