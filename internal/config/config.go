package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	toml "github.com/pelletier/go-toml/v2"
)

// AppName names the XDG subdirectories kanjidex uses.
const AppName = "kanjidex"

// Config is the resolved application configuration.
type Config struct {
	APIBaseURL     string
	DataDir        string
	LogFile        string
	LogLevel       string
	ListenAddr     string
	AutosaveDelay  time.Duration
	RequestTimeout time.Duration
	MaxImageBytes  int64
	// SyncInterval enables periodic progress refresh while the TUI or the
	// HTTP server runs. Zero disables it.
	SyncInterval   time.Duration
}

const (
	defaultAPIBaseURL     = "https://api.wanikani.com/v2"
	defaultLogLevel       = "info"
	defaultListenAddr     = "127.0.0.1:7488"
	defaultAutosaveDelay  = 750 * time.Millisecond
	defaultRequestTimeout = 15 * time.Second
	defaultMaxImageBytes  = 5 << 20
)

// DefaultPath returns $XDG_CONFIG_HOME/kanjidex/config.toml.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.toml")
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		APIBaseURL:     defaultAPIBaseURL,
		DataDir:        filepath.Join(xdg.DataHome, AppName, "db"),
		LogFile:        filepath.Join(xdg.StateHome, AppName, AppName+".log"),
		LogLevel:       defaultLogLevel,
		ListenAddr:     defaultListenAddr,
		AutosaveDelay:  defaultAutosaveDelay,
		RequestTimeout: defaultRequestTimeout,
		MaxImageBytes:  defaultMaxImageBytes,
	}
}

// Load locates and parses the config file, falling back to defaults when it
// is missing. Blank or non-positive values also take their defaults.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		APIBaseURL            string `toml:"api_base_url"`
		DataDir               string `toml:"data_dir"`
		LogFile               string `toml:"log_file"`
		LogLevel              string `toml:"log_level"`
		ListenAddr            string `toml:"listen_addr"`
		AutosaveDelayMS       int    `toml:"autosave_delay_ms"`
		RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
		MaxImageBytes         int64  `toml:"max_image_bytes"`
		SyncIntervalMinutes   int    `toml:"sync_interval_minutes"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.APIBaseURL); v != "" {
		cfg.APIBaseURL = strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(raw.DataDir); v != "" {
		cfg.DataDir = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		cfg.LogFile = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(raw.ListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if raw.AutosaveDelayMS > 0 {
		cfg.AutosaveDelay = time.Duration(raw.AutosaveDelayMS) * time.Millisecond
	}
	if raw.RequestTimeoutSeconds > 0 {
		cfg.RequestTimeout = time.Duration(raw.RequestTimeoutSeconds) * time.Second
	}
	if raw.MaxImageBytes > 0 {
		cfg.MaxImageBytes = raw.MaxImageBytes
	}
	if raw.SyncIntervalMinutes > 0 {
		cfg.SyncInterval = time.Duration(raw.SyncIntervalMinutes) * time.Minute
	}

	return cfg, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultPath(), nil
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

// ExpandPath resolves a leading ~ and returns an absolute path.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
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
