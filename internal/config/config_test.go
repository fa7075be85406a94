package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ariasnap.yaml")
	data := `
session_id: work
server:
  url: http://10.0.0.5:9222
browser:
  stealth: true
  resource_blocking: [images, fonts]
wait:
  load_timeout: 5s
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path, false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SessionID != "work" || cfg.Server.URL != "http://10.0.0.5:9222" {
		t.Fatalf("fields: got %+v", cfg)
	}
	if !cfg.Browser.Stealth || len(cfg.Browser.ResourceBlocking) != 2 {
		t.Fatalf("browser: got %+v", cfg.Browser)
	}
	if cfg.Wait.LoadTimeout != 5*time.Second {
		t.Fatalf("load timeout: got %v", cfg.Wait.LoadTimeout)
	}
	if cfg.Wait.SelectorTimeout != 30*time.Second || cfg.Server.HTTPTimeout != 10*time.Second {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")
	cfg, err := LoadFile(missing, true)
	if err != nil {
		t.Fatalf("optional missing: %v", err)
	}
	if cfg.Server.URL != "http://localhost:9222" {
		t.Fatalf("default url: got %q", cfg.Server.URL)
	}
	if _, err := LoadFile(missing, false); err == nil {
		t.Fatal("expected error for required missing file")
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("server: [unterminated"), 0o644)
	if _, err := LoadFile(path, false); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvSessionID:         "from-env",
		"ARIASNAP_SERVER":    "http://remote:9222",
		"ARIASNAP_LOG_LEVEL": "debug",
	}
	cfg := Default()
	cfg.ApplyEnv(func(k string) string { return env[k] })
	if cfg.SessionID != "from-env" || cfg.Server.URL != "http://remote:9222" {
		t.Fatalf("env: got %+v", cfg)
	}
	if cfg.Level() != slog.LevelDebug {
		t.Fatalf("level: got %v", cfg.Level())
	}

	cfg = Default()
	cfg.SessionID = "explicit"
	cfg.ApplyEnv(func(k string) string { return env[k] })
	if cfg.SessionID != "explicit" {
		t.Fatalf("explicit session overwritten: %q", cfg.SessionID)
	}
}
