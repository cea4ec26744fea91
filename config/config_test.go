// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

const testAdmin = "0xadadadadadadadadadadadadadadadadadadadad"

// ---------------------------------------------------------------------------
// DefaultConfig tests
// ---------------------------------------------------------------------------

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"Backend", cfg.Backend, "bolt"},
		{"CacheSize", cfg.CacheSize, 1024},
		{"Network", cfg.Network, "mainnet"},
		{"LogLevel", cfg.LogLevel, "info"},
		{"LogFile", cfg.LogFile, ""},
		{"ArchiveDir", cfg.ArchiveDir, ""},
		{"Admin", cfg.Admin, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Errorf("got %v, want %v", tc.got, tc.want)
			}
		})
	}

	if cfg.DataDir == "" {
		t.Error("DataDir should not be empty")
	}
}

// ---------------------------------------------------------------------------
// SaveConfig / LoadConfig round-trip tests
// ---------------------------------------------------------------------------

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := ConfigPath(dir)

	original := Config{
		DataDir:    "/tmp/test-settle",
		Admin:      testAdmin,
		Backend:    "pebble",
		CacheSize:  64,
		Network:    "testnet",
		LogLevel:   "debug",
		LogFile:    "/tmp/settle.log",
		ArchiveDir: "/tmp/settle-archive",
	}

	if err := SaveConfig(path, original); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded != original {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", loaded, original)
	}
}

func TestSaveConfigCreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subdir", "config.yaml")

	if err := SaveConfig(path, DefaultConfig()); err != nil {
		t.Fatalf("SaveConfig should create parent dirs: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Config file not created: %v", err)
	}
}

func TestSaveConfig_OutputFormat(t *testing.T) {
	path := ConfigPath(t.TempDir())
	if err := SaveConfig(path, DefaultConfig()); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "# settlectl configuration") {
		t.Error("saved config should start with the header comment")
	}
	for _, key := range []string{"data_dir", "admin", "backend", "cache_size", "network", "log_level", "log_file", "archive_dir"} {
		if !strings.Contains(content, key+":") {
			t.Errorf("saved config should contain key %q", key)
		}
	}
}

// ---------------------------------------------------------------------------
// LoadConfig tests
// ---------------------------------------------------------------------------

func TestLoadConfigNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/config.yaml")
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("LoadConfig nonexistent: got %v, want ErrConfigNotFound", err)
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := ConfigPath(t.TempDir())
	if err := os.WriteFile(path, []byte("network: [unclosed\n"), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := LoadConfig(path)
	if !errors.Is(err, ErrInvalidConfigFile) {
		t.Errorf("LoadConfig bad yaml: got %v, want ErrInvalidConfigFile", err)
	}
}

func TestLoadConfigPartialKeepsDefaults(t *testing.T) {
	path := ConfigPath(t.TempDir())
	content := `# comment
network: testnet

log_level: debug
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Network != "testnet" {
		t.Errorf("Network = %q, want %q", cfg.Network, "testnet")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.Backend != "bolt" {
		t.Errorf("Backend = %q, want default %q", cfg.Backend, "bolt")
	}
	if cfg.CacheSize != 1024 {
		t.Errorf("CacheSize = %d, want default 1024", cfg.CacheSize)
	}
}

func TestLoadConfigUnknownKeysIgnored(t *testing.T) {
	path := ConfigPath(t.TempDir())
	if err := os.WriteFile(path, []byte("future_key: value\nnetwork: testnet\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig with unknown key: %v", err)
	}
	if cfg.Network != "testnet" {
		t.Errorf("Network = %q, want %q", cfg.Network, "testnet")
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := ConfigPath(t.TempDir())
	if err := os.WriteFile(path, []byte("log_level: info\nbackend: bolt\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SETTLE_LOG_LEVEL", "warn")
	t.Setenv("SETTLE_BACKEND", "memory")
	t.Setenv("SETTLE_CACHE_SIZE", "7")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want env override %q", cfg.LogLevel, "warn")
	}
	if cfg.Backend != "memory" {
		t.Errorf("Backend = %q, want env override %q", cfg.Backend, "memory")
	}
	if cfg.CacheSize != 7 {
		t.Errorf("CacheSize = %d, want env override 7", cfg.CacheSize)
	}
}

func TestLoadConfig_PermissionDenied(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission test not reliable on Windows")
	}
	if os.Getuid() == 0 {
		t.Skip("cannot test permission denial as root")
	}

	path := ConfigPath(t.TempDir())
	if err := os.WriteFile(path, []byte("network: testnet\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(path, 0000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(path, 0600) })

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("LoadConfig on unreadable file: expected error, got nil")
	}
	if errors.Is(err, ErrConfigNotFound) {
		t.Error("LoadConfig on unreadable file should not return ErrConfigNotFound")
	}
}

// ---------------------------------------------------------------------------
// ValidateConfig tests
// ---------------------------------------------------------------------------

func TestValidateConfigDefaults(t *testing.T) {
	if err := ValidateConfig(DefaultConfig()); err != nil {
		t.Errorf("ValidateConfig(DefaultConfig()) = %v, want nil", err)
	}
}

func TestValidateConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{
			name:    "empty_datadir",
			modify:  func(c *Config) { c.DataDir = "" },
			wantErr: ErrEmptyDataDir,
		},
		{
			name:    "bad_admin",
			modify:  func(c *Config) { c.Admin = "0x1234" },
			wantErr: ErrInvalidAdmin,
		},
		{
			name:    "null_admin",
			modify:  func(c *Config) { c.Admin = "0x0000000000000000000000000000000000000000" },
			wantErr: ErrInvalidAdmin,
		},
		{
			name:    "bad_backend",
			modify:  func(c *Config) { c.Backend = "sqlite" },
			wantErr: ErrInvalidBackend,
		},
		{
			name:    "negative_cache",
			modify:  func(c *Config) { c.CacheSize = -1 },
			wantErr: ErrInvalidCacheSize,
		},
		{
			name:    "bad_network",
			modify:  func(c *Config) { c.Network = "regtest" },
			wantErr: ErrInvalidNetwork,
		},
		{
			name:    "bad_loglevel",
			modify:  func(c *Config) { c.LogLevel = "verbose" },
			wantErr: ErrInvalidLogLevel,
		},
		{
			name:    "first_error_wins",
			modify:  func(c *Config) { c.DataDir = ""; c.Network = "devnet" },
			wantErr: ErrEmptyDataDir,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.modify(&cfg)
			err := ValidateConfig(cfg)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("ValidateConfig: got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestValidateConfigValidBackends(t *testing.T) {
	for _, backend := range []string{"memory", "bolt", "pebble"} {
		cfg := DefaultConfig()
		cfg.Backend = backend
		if err := ValidateConfig(cfg); err != nil {
			t.Errorf("ValidateConfig with backend %q: %v", backend, err)
		}
	}
}

func TestValidateConfig_LogLevelCaseInsensitive(t *testing.T) {
	for _, level := range []string{"INFO", "Debug", "WARN", "Error", "dEbUg"} {
		t.Run(level, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.LogLevel = level
			if err := ValidateConfig(cfg); err != nil {
				t.Errorf("ValidateConfig with LogLevel %q: %v", level, err)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Accessor tests
// ---------------------------------------------------------------------------

func TestAdminID(t *testing.T) {
	cfg := DefaultConfig()
	if _, err := cfg.AdminID(); !errors.Is(err, ErrInvalidAdmin) {
		t.Errorf("AdminID with empty admin: got %v, want ErrInvalidAdmin", err)
	}

	cfg.Admin = testAdmin
	id, err := cfg.AdminID()
	if err != nil {
		t.Fatalf("AdminID: %v", err)
	}
	if id.Hex() != testAdmin {
		t.Errorf("AdminID = %s, want %s", id.Hex(), testAdmin)
	}
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
	}
	for in, want := range tests {
		cfg := Config{LogLevel: in}
		if got := cfg.SlogLevel(); got != want {
			t.Errorf("SlogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRulesPath(t *testing.T) {
	cfg := Config{DataDir: "/d", Backend: BackendBolt}
	if got := cfg.RulesPath(); got != filepath.Join("/d", "rules.db") {
		t.Errorf("bolt RulesPath = %q", got)
	}
	cfg.Backend = BackendPebble
	if got := cfg.RulesPath(); got != filepath.Join("/d", "rules.pebble") {
		t.Errorf("pebble RulesPath = %q", got)
	}
	cfg.Backend = BackendMemory
	if got := cfg.RulesPath(); got != "" {
		t.Errorf("memory RulesPath = %q, want empty", got)
	}
}

func TestMainnet(t *testing.T) {
	if !(Config{Network: "mainnet"}).Mainnet() {
		t.Error("mainnet should render mainnet addresses")
	}
	if (Config{Network: "testnet"}).Mainnet() {
		t.Error("testnet should not render mainnet addresses")
	}
}

// ---------------------------------------------------------------------------
// ConfigPath / DefaultDataDir tests
// ---------------------------------------------------------------------------

func TestConfigPath(t *testing.T) {
	got := ConfigPath("/home/user/.settle")
	want := filepath.Join("/home/user/.settle", "config.yaml")
	if got != want {
		t.Errorf("ConfigPath = %q, want %q", got, want)
	}
}

func TestDefaultDataDir_EndsWith_DotSettle(t *testing.T) {
	if dir := DefaultDataDir(); !strings.HasSuffix(dir, ".settle") {
		t.Errorf("DefaultDataDir() = %q, want suffix %q", dir, ".settle")
	}
}
