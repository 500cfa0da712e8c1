// Package config loads kanjidex's TOML configuration.
//
// # Configuration Discovery
//
// Load follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use $XDG_CONFIG_HOME/kanjidex/config.toml
//  3. If the config file doesn't exist, fall back to defaults
//  4. If the file exists but fields are missing, blank or non-positive, use defaults
//
// # Configuration Fields
//
//	api_base_url             WaniKani API root (https://api.wanikani.com/v2)
//	data_dir                 Badger directory ($XDG_DATA_HOME/kanjidex/db)
//	log_file                 zap log file ($XDG_STATE_HOME/kanjidex/kanjidex.log)
//	log_level                debug, info, warn or error (info)
//	listen_addr              local HTTP API address (127.0.0.1:7488)
//	autosave_delay_ms        edit debounce (750)
//	request_timeout_seconds  per-request API timeout (15)
//	max_image_bytes          image import cap (5 MiB)
//	sync_interval_minutes    periodic progress refresh, 0 disables (0)
//
// Paths may start with ~ and are made absolute.
//
// # Error Handling
//
// A missing file is not an error. Open, read and TOML parse failures are
// returned wrapped ("open config", "read config", "parse config").
package config
