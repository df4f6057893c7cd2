package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the resolved lokctl settings.
type Config struct {
	// Path is the config file that was consulted, whether or not it exists.
	Path string

	URL          string
	DefaultQuery string
	Limit        int
	// ContextRadius is in seconds.
	ContextRadius int64
	RangeMinutes  int
	LogFile       string
	LogLevel      string
	ExportDir     string
}

const (
	defaultConfigPath   = "~/.config/lokctl/config.toml"
	defaultURL          = "http://localhost:3100"
	defaultQuery        = `{job="varlogs"}`
	defaultLimit        = 200
	defaultContext      = 5
	defaultRangeMinutes = 10
	defaultLogFile      = "~/.local/state/lokctl/lokctl.log"
	defaultLogLevel     = "info"
	defaultExportDir    = "."

	envPrefix = "LOKI"
)

// Keys shared by the TOML file, the LOKI_* environment and the flags.
const (
	KeyURL          = "url"
	KeyQuery        = "query"
	KeyLimit        = "limit"
	KeyContext      = "context"
	KeyRangeMinutes = "range_minutes"
	KeyLogFile      = "log_file"
	KeyLogLevel     = "log_level"
	KeyExportDir    = "export_dir"
)

// flagNames maps config keys to flag names.
var flagNames = map[string]string{
	KeyURL:          "url",
	KeyQuery:        "query",
	KeyLimit:        "limit",
	KeyContext:      "context",
	KeyRangeMinutes: "range-minutes",
	KeyLogFile:      "log-file",
	KeyLogLevel:     "log-level",
	KeyExportDir:    "export-dir",
}

// RegisterFlags defines the configuration flags on fs. Flags only take
// effect when set explicitly.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(flagNames[KeyURL], "", "Loki base URL (default "+defaultURL+")")
	fs.String(flagNames[KeyQuery], "", "default LogQL query")
	fs.Int(flagNames[KeyLimit], 0, fmt.Sprintf("result limit (default %d)", defaultLimit))
	fs.Int64(flagNames[KeyContext], 0, fmt.Sprintf("context radius in seconds (default %d)", defaultContext))
	fs.Int(flagNames[KeyRangeMinutes], 0, fmt.Sprintf("follow lookback in minutes (default %d)", defaultRangeMinutes))
	fs.String(flagNames[KeyLogFile], "", "log file (default "+defaultLogFile+")")
	fs.String(flagNames[KeyLogLevel], "", "log level: debug, info, warn, error")
	fs.String(flagNames[KeyExportDir], "", "directory for exported logs")
}

// Load resolves the configuration from flags, LOKI_* environment variables,
// the TOML file at path and the defaults, in that order. A missing file is
// not an error. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyURL, defaultURL)
	v.SetDefault(KeyQuery, defaultQuery)
	v.SetDefault(KeyLimit, defaultLimit)
	v.SetDefault(KeyContext, defaultContext)
	v.SetDefault(KeyRangeMinutes, defaultRangeMinutes)
	v.SetDefault(KeyLogFile, defaultLogFile)
	v.SetDefault(KeyLogLevel, defaultLogLevel)
	v.SetDefault(KeyExportDir, defaultExportDir)

	if flags != nil {
		for key, name := range flagNames {
			if f := flags.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	data, err := os.ReadFile(resolved)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("open config: %w", err)
	default:
		if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg := Config{
		Path:          resolved,
		URL:           stringOr(v.GetString(KeyURL), defaultURL),
		DefaultQuery:  stringOr(v.GetString(KeyQuery), defaultQuery),
		Limit:         positiveOr(v.GetInt(KeyLimit), defaultLimit),
		ContextRadius: int64(positiveOr(v.GetInt(KeyContext), defaultContext)),
		RangeMinutes:  positiveOr(v.GetInt(KeyRangeMinutes), defaultRangeMinutes),
		LogFile:       mustExpand(stringOr(v.GetString(KeyLogFile), defaultLogFile)),
		LogLevel:      strings.ToLower(stringOr(v.GetString(KeyLogLevel), defaultLogLevel)),
		ExportDir:     mustExpand(stringOr(v.GetString(KeyExportDir), defaultExportDir)),
	}
	return cfg, nil
}

func stringOr(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

// positiveOr also covers unparsable values, which viper reads as zero.
func positiveOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
