package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/adrg/xdg"
)

func isolateXDG(t *testing.T) string {
	t.Helper()
	t.Cleanup(xdg.Reload)
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(home, "data"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(home, "state"))
	xdg.Reload()
	return home
}

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := isolateXDG(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIBaseURL != defaultAPIBaseURL {
		t.Fatalf("APIBaseURL = %q, want %q", cfg.APIBaseURL, defaultAPIBaseURL)
	}
	if want := filepath.Join(home, "data", AppName, "db"); cfg.DataDir != want {
		t.Fatalf("DataDir = %q, want %q", cfg.DataDir, want)
	}
	if want := filepath.Join(home, "state", AppName, "kanjidex.log"); cfg.LogFile != want {
		t.Fatalf("LogFile = %q, want %q", cfg.LogFile, want)
	}
	if cfg.AutosaveDelay != 750*time.Millisecond || cfg.RequestTimeout != 15*time.Second {
		t.Fatalf("durations = %v / %v", cfg.AutosaveDelay, cfg.RequestTimeout)
	}
	if cfg.MaxImageBytes != 5<<20 || cfg.ListenAddr != defaultListenAddr || cfg.LogLevel != "info" {
		t.Fatalf("unexpected defaults %#v", cfg)
	}
	if want := filepath.Join(home, "config", AppName, "config.toml"); DefaultPath() != want {
		t.Fatalf("DefaultPath = %q, want %q", DefaultPath(), want)
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := isolateXDG(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
api_base_url = "  http://localhost:9000/v2/  "
data_dir = "  ~/kanji/db  "
log_file = "~/kanji/app.log"
log_level = " DEBUG "
listen_addr = "0.0.0.0:8080"
autosave_delay_ms = 200
request_timeout_seconds = 3
max_image_bytes = 1024
sync_interval_minutes = 30
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIBaseURL != "http://localhost:9000/v2" {
		t.Fatalf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.DataDir != filepath.Join(home, "kanji", "db") {
		t.Fatalf("DataDir = %q, want it under HOME %q", cfg.DataDir, home)
	}
	if !strings.HasPrefix(cfg.LogFile, home) {
		t.Fatalf("LogFile = %q, want it under HOME %q", cfg.LogFile, home)
	}
	if cfg.LogLevel != "debug" || cfg.ListenAddr != "0.0.0.0:8080" {
		t.Fatalf("LogLevel/ListenAddr = %q / %q", cfg.LogLevel, cfg.ListenAddr)
	}
	if cfg.AutosaveDelay != 200*time.Millisecond || cfg.RequestTimeout != 3*time.Second || cfg.MaxImageBytes != 1024 {
		t.Fatalf("numeric fields = %v %v %d", cfg.AutosaveDelay, cfg.RequestTimeout, cfg.MaxImageBytes)
	}
	if cfg.SyncInterval != 30*time.Minute {
		t.Fatalf("SyncInterval = %v, want 30m", cfg.SyncInterval)
	}
}

func TestLoad_EmptyValuesUseDefaults(t *testing.T) {
	isolateXDG(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
api_base_url = "   "
data_dir = ""
autosave_delay_ms = -5
max_image_bytes = 0
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	want := Default()
	if cfg != want {
		t.Fatalf("Load = %#v, want defaults %#v", cfg, want)
	}
}

func TestLoad_InvalidTOMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`api_base_url = [`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err := Load(path)
	if err == nil {
		t.Fatalf("Load returned nil error, want parse error")
	}
	if !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("Load error = %q, want it to mention parse config", err.Error())
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := ExpandPath("~/a/b")
	if err != nil {
		t.Fatalf("ExpandPath returned error: %v", err)
	}
	want := filepath.Join(home, "a/b")
	if got != want {
		t.Fatalf("ExpandPath = %q, want %q", got, want)
	}
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath returned nil error, want error")
	}
}
