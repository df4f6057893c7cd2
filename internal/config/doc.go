// Package config resolves lokctl settings.
//
// # Sources
//
// Values are taken from the first source that sets them:
//
//  1. Command-line flags registered with RegisterFlags, when set explicitly
//  2. LOKI_* environment variables (LOKI_URL, LOKI_QUERY, LOKI_LIMIT,
//     LOKI_CONTEXT, LOKI_RANGE_MINUTES, LOKI_LOG_FILE, LOKI_LOG_LEVEL,
//     LOKI_EXPORT_DIR)
//  3. The TOML file, ~/.config/lokctl/config.toml unless a path is given
//  4. Built-in defaults
//
// A missing config file is not an error. Limit, context and range values
// that are non-positive or unparsable fall back to their defaults.
//
// # Defaults
//
//   - url: http://localhost:3100
//   - query: {job="varlogs"}
//   - limit: 200
//   - context: 5 (seconds either side of the selected entry)
//   - range_minutes: 10 (how far back follow mode starts on an empty view)
//   - log_file: ~/.local/state/lokctl/lokctl.log
//   - log_level: info
//   - export_dir: current directory
//
// # TOML Format
//
//	url = "http://loki.internal:3100"
//	query = '{job="api"}'
//	limit = 500
//	context = 10
//	log_level = "debug"
//
// Tilde expansion is applied to the config path, log_file and export_dir.
package config
