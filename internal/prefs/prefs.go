// Package prefs persists lokctl display preferences in
// ~/.config/lokctl/prefs.toml. Unlike config, prefs are written back by the
// TUI (e.g. when the theme is cycled).
package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Prefs holds user preferences.
type Prefs struct {
	Theme string `toml:"theme"`
	// TimeLayout is a Go time layout for the local timestamp column.
	TimeLayout string `toml:"time_layout,omitempty"`
}

const (
	defaultPrefsPath  = "~/.config/lokctl/prefs.toml"
	defaultTheme      = "Nightfox"
	defaultTimeLayout = "2006-01-02 15:04:05.000"
)

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Defaults returns the preferences used when nothing is stored.
func Defaults() Prefs {
	return Prefs{Theme: defaultTheme, TimeLayout: defaultTimeLayout}
}

// Load reads preferences from path. Missing or unreadable files yield the
// defaults. A file that is not valid TOML also yields the defaults, together
// with the parse error so callers can report it; prefs never block startup.
func Load(path string) (Prefs, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Defaults(), nil
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return Defaults(), nil
	}

	var p Prefs
	if err := toml.Unmarshal(data, &p); err != nil {
		return Defaults(), fmt.Errorf("parse prefs %s: %w", resolved, err)
	}
	return p.normalized(), nil
}

// Save writes p to path, creating directories as needed.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	data, err := toml.Marshal(p.normalized())
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}
	if err := os.WriteFile(resolved, data, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

func (p Prefs) normalized() Prefs {
	p.Theme = strings.TrimSpace(p.Theme)
	if p.Theme == "" {
		p.Theme = defaultTheme
	}
	if strings.TrimSpace(p.TimeLayout) == "" {
		p.TimeLayout = defaultTimeLayout
	}
	return p
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		path = defaultPrefsPath
	}
	trimmed := strings.TrimSpace(path)
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
