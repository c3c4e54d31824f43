package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != ":8645" {
		t.Fatalf("unexpected listen address %q", cfg.ListenAddress)
	}
	if cfg.NetworkName != "xmbl-local" {
		t.Fatalf("unexpected network name %q", cfg.NetworkName)
	}
	if cfg.JournalPath != filepath.Join(cfg.DataDir, "journal.db") {
		t.Fatalf("unexpected journal path %q", cfg.JournalPath)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not persisted: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if *reloaded != *cfg {
		t.Fatalf("reload mismatch: %+v vs %+v", reloaded, cfg)
	}
}

func TestLoadFillsMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := "ListenAddress = \":9999\"\nNetworkName = \"xmbl-test\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != ":9999" {
		t.Fatalf("explicit listen address not kept: %q", cfg.ListenAddress)
	}
	if cfg.NetworkName != "xmbl-test" {
		t.Fatalf("explicit network name not kept: %q", cfg.NetworkName)
	}
	if cfg.MetricsAddress != ":9464" {
		t.Fatalf("metrics default missing: %q", cfg.MetricsAddress)
	}
	if cfg.DataDir == "" || cfg.MirrorDSN == "" {
		t.Fatalf("path defaults missing: %+v", cfg)
	}
}

func TestRPCTokenFromEnv(t *testing.T) {
	t.Setenv(RPCTokenEnv, "  secret-token \n")
	if got := RPCToken(); got != "secret-token" {
		t.Fatalf("token = %q", got)
	}
}
