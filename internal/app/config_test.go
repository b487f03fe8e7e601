package app_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"parley/internal/app"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := app.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg != app.DefaultConfig() {
		t.Fatalf("got %+v, want defaults", cfg)
	}
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	path := writeFile(t, `
self: alice
peer: bob
transport:
  kind: nats
  nats_url: nats://broker:4222
crypto:
  suite: chacha20-poly1305
  kdf: raw
log:
  level: debug
  format: json
`)
	cfg, err := app.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Self != "alice" || cfg.Peer != "bob" || cfg.Transport.Kind != "nats" || cfg.Crypto.KDF != "raw" {
		t.Fatalf("unexpected %+v", cfg)
	}
	if cfg.Transport.SubjectPrefix != "parley" || !cfg.Log.Mask {
		t.Fatal("unset keys should keep their defaults")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadConfig_EmptyFile(t *testing.T) {
	cfg, err := app.LoadConfig(writeFile(t, ""))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg != app.DefaultConfig() {
		t.Fatal("empty file should yield defaults")
	}
}

func TestLoadConfig_UnknownKey(t *testing.T) {
	_, err := app.LoadConfig(writeFile(t, "slef: alice\n"))
	if err == nil || !strings.Contains(err.Error(), "slef") {
		t.Fatalf("want unknown key error, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := app.DefaultConfig()
	valid.Self, valid.Peer = "alice", "bob"
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*app.Config)
	}{
		{"missing self", func(c *app.Config) { c.Self = "" }},
		{"missing peer", func(c *app.Config) { c.Peer = "" }},
		{"self is peer", func(c *app.Config) { c.Peer = "alice" }},
		{"unknown suite", func(c *app.Config) { c.Crypto.Suite = "des" }},
		{"unknown kdf", func(c *app.Config) { c.Crypto.KDF = "md5" }},
		{"unknown transport", func(c *app.Config) { c.Transport.Kind = "carrier-pigeon" }},
		{"nats subject token", func(c *app.Config) { c.Transport.Kind = "nats"; c.Self = "a.b" }},
		{"ws without url", func(c *app.Config) { c.Transport.URL = "" }},
		{"bad log level", func(c *app.Config) { c.Log.Level = "chatty" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("accepted")
			}
		})
	}
}

func TestConfig_ValidateRelay(t *testing.T) {
	cfg := app.DefaultConfig()
	if err := cfg.ValidateRelay(); err != nil {
		t.Fatalf("defaults rejected: %v", err)
	}
	cfg.Relay.Listen = ""
	if err := cfg.ValidateRelay(); err == nil {
		t.Fatal("empty listen accepted")
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := app.DefaultConfig()
	cfg.Self, cfg.Peer = "alice", "bob"
	cfg.Crypto.Suite = "chacha20-poly1305"

	if err := app.SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode %v, want 0600", info.Mode().Perm())
	}
	got, err := app.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got != cfg {
		t.Fatalf("got %+v, want %+v", got, cfg)
	}
}
