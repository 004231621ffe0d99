package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/rexliu/wvrpc/pkg/frame"
)

// Environment variables overlaid by ApplyEnv.
const (
	EnvProxyTo    = "PROXY_TO"
	EnvOutputFile = "OUTPUT_FILE"
	EnvLogLevel   = "LOG_LEVEL"
	EnvFraming    = "WEBVIEW_FRAMING"
)

// LoggingConfig defines basic logging knobs.
type LoggingConfig struct {
	Level       string `toml:"level"`
	FilePath    string `toml:"filePath"`
	FileMaxSize int    `toml:"fileMaxSizeMB"`
	FileBackups int    `toml:"fileMaxBackups"`
}

// TransportConfig selects how messages are delimited on stdin/stdout.
type TransportConfig struct {
	Framing string `toml:"framing"`
}

// ProxyConfig defines the child command and the inbound tee file.
type ProxyConfig struct {
	Command    string `toml:"command"`
	OutputFile string `toml:"outputFile"`
}

// JournalConfig defines the optional SQLite frame journal.
type JournalConfig struct {
	Enabled     bool   `toml:"enabled"`
	DBPath      string `toml:"dbPath"`
	JournalMode string `toml:"journalMode"`
	Synchronous string `toml:"synchronous"`
}

// Config aggregates settings shared by the host, the proxy and wvctl.
type Config struct {
	Logging   LoggingConfig   `toml:"logging"`
	Transport TransportConfig `toml:"transport"`
	Proxy     ProxyConfig     `toml:"proxy"`
	Journal   JournalConfig   `toml:"journal"`
}

// Default returns a config with every optional field filled in.
func Default() *Config {
	cfg := &Config{
		Logging: LoggingConfig{
			Level:       "info",
			FileMaxSize: 10,
			FileBackups: 1,
		},
		Transport: TransportConfig{Framing: string(frame.NDJSON)},
		Journal: JournalConfig{
			DBPath:      "journal.db",
			JournalMode: "WAL",
			Synchronous: "NORMAL",
		},
	}
	return cfg
}

// Load reads config.toml from the provided path.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault behaves like Load but returns Default when path is empty.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Save writes cfg as TOML, creating the parent directory.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return f.Close()
}

// ApplyEnv overlays environment variables. lookup is usually os.LookupEnv.
func (cfg *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvProxyTo); ok {
		cfg.Proxy.Command = v
	}
	if v, ok := lookup(EnvOutputFile); ok {
		cfg.Proxy.OutputFile = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.Logging.Level = v
	}
	if v, ok := lookup(EnvFraming); ok && v != "" {
		cfg.Transport.Framing = v
	}
	return cfg.validate()
}

// Framing returns the parsed transport framing.
func (cfg *Config) Framing() frame.Framing {
	f, err := frame.ParseFraming(cfg.Transport.Framing)
	if err != nil {
		return frame.NDJSON
	}
	return f
}

var levels = map[string]bool{"": true, "trace": true, "debug": true, "info": true, "warn": true, "error": true}

func (cfg *Config) validate() error {
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	if !levels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level %q not one of trace, debug, info, warn, error", cfg.Logging.Level)
	}
	if cfg.Logging.FileMaxSize < 0 {
		return fmt.Errorf("logging.fileMaxSizeMB must not be negative")
	}
	if _, err := frame.ParseFraming(cfg.Transport.Framing); err != nil {
		return fmt.Errorf("transport.framing: %w", err)
	}
	if cfg.Journal.Enabled && cfg.Journal.DBPath == "" {
		return fmt.Errorf("journal.dbPath required when journal is enabled")
	}
	if cfg.Journal.JournalMode == "" {
		cfg.Journal.JournalMode = "WAL"
	}
	if cfg.Journal.Synchronous == "" {
		cfg.Journal.Synchronous = "NORMAL"
	}
	return nil
}
