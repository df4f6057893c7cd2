// Package export writes loaded entries to a plain-text file.
package export

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/five82/lokctl/internal/loki"
)

const (
	filePrefix   = "lokctl-logs-"
	fileSuffix   = ".log"
	maxAttempts  = 100
	filePerm     = 0o644
	openExclMode = os.O_WRONLY | os.O_CREATE | os.O_EXCL
)

// openFile creates path exclusively. Tests replace it to inject write
// failures.
var openFile = func(path string) (io.WriteCloser, error) {
	return os.OpenFile(path, openExclMode, filePerm)
}

// Render serialises entries as "<timestamp> <line>" joined by newlines, with
// no trailing newline.
func Render(entries []loki.LogEntry) string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.Timestamp + " " + e.Line
	}
	return strings.Join(lines, "\n")
}

// FileName returns the export name for the given instant.
func FileName(now time.Time) string {
	return fmt.Sprintf("%s%d%s", filePrefix, now.UnixMilli(), fileSuffix)
}

// Write creates a new export file in dir and returns its path. An existing
// file is never overwritten; a numeric suffix is added instead.
func Write(dir string, now time.Time, entries []loki.LogEntry) (string, error) {
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	content := Render(entries)
	base := strings.TrimSuffix(FileName(now), fileSuffix)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		name := base + fileSuffix
		if attempt > 0 {
			name = fmt.Sprintf("%s-%d%s", base, attempt, fileSuffix)
		}
		path := filepath.Join(dir, name)

		file, err := openFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrExist) {
				continue
			}
			return "", fmt.Errorf("create export file: %w", err)
		}
		if err := writeAndClose(file, content); err != nil {
			_ = os.Remove(path)
			return "", err
		}
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		return path, nil
	}
	return "", fmt.Errorf("create export file: %d names taken for %s", maxAttempts, base)
}

// writeAndClose writes content and closes w. A failed write still closes w.
func writeAndClose(w io.WriteCloser, content string) error {
	if _, err := io.WriteString(w, content); err != nil {
		_ = w.Close()
		return fmt.Errorf("write export file: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close export file: %w", err)
	}
	return nil
}
