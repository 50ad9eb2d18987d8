package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aurxine/quack-quack/pkg/config"
)

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1})
	return slog.New(handler)
}

func TestDefaults(t *testing.T) {
	cfg, err := config.Load(newTestLogger(), "no-such-config")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Address != ":8080" {
		t.Errorf("Expected default address :8080, got %q", cfg.Server.Address)
	}
	if cfg.Session.Backend != "memory" {
		t.Errorf("Expected default backend memory, got %q", cfg.Session.Backend)
	}
	if cfg.Session.TTL != 24*time.Hour {
		t.Errorf("Expected default TTL 24h, got %v", cfg.Session.TTL)
	}
	if cfg.Transport.SendBuffer != 256 {
		t.Errorf("Expected default send buffer 256, got %d", cfg.Transport.SendBuffer)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("Expected default redis addr, got %q", cfg.Redis.Addr)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("QUACK_SERVER_ADDRESS", ":9999")
	t.Setenv("QUACK_SESSION_BACKEND", "redis")
	t.Setenv("QUACK_LOG_LEVEL", "debug")

	cfg, err := config.Load(newTestLogger(), "no-such-config")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Address != ":9999" {
		t.Errorf("Env override for address ignored, got %q", cfg.Server.Address)
	}
	if cfg.Session.Backend != "redis" {
		t.Errorf("Env override for backend ignored, got %q", cfg.Session.Backend)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Env override for log level ignored, got %q", cfg.Log.Level)
	}
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  address: ":7070"
  baseURL: "/quack/"
transport:
  readTimeout: 90s
session:
  ttl: 1h
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)

	cfg, err := config.Load(newTestLogger(), "config")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Address != ":7070" {
		t.Errorf("Expected address :7070, got %q", cfg.Server.Address)
	}
	if cfg.Server.BaseURL != "/quack" {
		t.Errorf("Expected trailing slash trimmed from base URL, got %q", cfg.Server.BaseURL)
	}
	if cfg.Transport.ReadTimeout != 90*time.Second {
		t.Errorf("Expected read timeout 90s, got %v", cfg.Transport.ReadTimeout)
	}
	if cfg.Session.TTL != time.Hour {
		t.Errorf("Expected TTL 1h, got %v", cfg.Session.TTL)
	}
}
