package config

import (
	"path/filepath"
	"testing"

	"github.com/rexliu/wvrpc/pkg/frame"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile", "config.toml")
	cfg := Default()
	cfg.Transport.Framing = "null"
	cfg.Proxy.Command = "cat"
	cfg.Journal.Enabled = true
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if *loaded != *cfg {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", loaded, cfg)
	}
	if loaded.Framing() != frame.Null {
		t.Fatalf("expected null framing, got %s", loaded.Framing())
	}
}

func TestValidate(t *testing.T) {
	t.Run("unknown framing", func(t *testing.T) {
		cfg := Default()
		cfg.Transport.Framing = "lines"
		if err := cfg.validate(); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("journal without path", func(t *testing.T) {
		cfg := Default()
		cfg.Journal.Enabled = true
		cfg.Journal.DBPath = ""
		if err := cfg.validate(); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("level normalized", func(t *testing.T) {
		cfg := Default()
		cfg.Logging.Level = " DEBUG "
		if err := cfg.validate(); err != nil {
			t.Fatalf("validate: %v", err)
		}
		if cfg.Logging.Level != "debug" {
			t.Fatalf("expected debug, got %q", cfg.Logging.Level)
		}
	})

	t.Run("unknown level", func(t *testing.T) {
		cfg := Default()
		cfg.Logging.Level = "chatty"
		if err := cfg.validate(); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(env(map[string]string{
		EnvProxyTo:    "./webview",
		EnvOutputFile: "/tmp/in.log",
		EnvLogLevel:   "trace",
		EnvFraming:    "null",
	}))
	if err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.Proxy.Command != "./webview" || cfg.Proxy.OutputFile != "/tmp/in.log" {
		t.Fatalf("proxy not overlaid: %+v", cfg.Proxy)
	}
	if cfg.Logging.Level != "trace" || cfg.Framing() != frame.Null {
		t.Fatalf("unexpected overlay: %+v", cfg)
	}

	cfg = Default()
	if err := cfg.ApplyEnv(env(map[string]string{EnvFraming: "bogus"})); err == nil {
		t.Fatal("expected framing error")
	}
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault("")
	if err != nil {
		t.Fatalf("load default: %v", err)
	}
	if cfg.Framing() != frame.NDJSON {
		t.Fatalf("expected ndjson default, got %s", cfg.Framing())
	}
	if _, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
