package prefs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writePrefs(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	p, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if p != Defaults() {
		t.Fatalf("Load = %+v, want %+v", p, Defaults())
	}
}

func TestLoad_ReadsDefaultLocation(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	writePrefs(t, filepath.Join(home, ".config", "lokctl", "prefs.toml"), "theme = \"Slate\"\ntime_layout = \"15:04:05\"\n")

	p, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if p.Theme != "Slate" {
		t.Fatalf("Theme = %q, want %q", p.Theme, "Slate")
	}
	if p.TimeLayout != "15:04:05" {
		t.Fatalf("TimeLayout = %q, want %q", p.TimeLayout, "15:04:05")
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subdir", "prefs.toml")

	if err := Save(path, Prefs{Theme: "Kanagawa"}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if p.Theme != "Kanagawa" {
		t.Fatalf("Theme = %q, want %q", p.Theme, "Kanagawa")
	}
	if p.TimeLayout != defaultTimeLayout {
		t.Fatalf("TimeLayout = %q, want %q", p.TimeLayout, defaultTimeLayout)
	}
}

func TestLoad_BlankValuesFallBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")
	writePrefs(t, path, "theme = \"  \"\n")

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if p.Theme != defaultTheme {
		t.Fatalf("Theme = %q, want %q", p.Theme, defaultTheme)
	}
}

func TestLoad_InvalidTOMLFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")
	writePrefs(t, path, "not valid toml {{{\n")

	p, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "parse prefs") {
		t.Fatalf("Load error = %v, want parse prefs error", err)
	}
	if p != Defaults() {
		t.Fatalf("Load = %+v, want defaults", p)
	}
}
