package internal

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Sync.Confirm != "batch" || !cfg.Sync.Auto {
		t.Errorf("sync defaults = %+v", cfg.Sync)
	}
	if cfg.Remote.Enabled() {
		t.Error("remote should be disabled without base_url")
	}
}

func TestQueueConfig(t *testing.T) {
	cfg := QueueConfig{Path: "q.db"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty backend should default: %v", err)
	}
	if cfg.Backend != QueueBackendSQLite {
		t.Errorf("backend = %q, want sqlite", cfg.Backend)
	}
	if err := (&QueueConfig{Backend: "redis", Path: "x"}).Validate(); err == nil {
		t.Error("unknown backend should fail")
	}
	if err := (&QueueConfig{Backend: QueueBackendFile}).Validate(); err == nil {
		t.Error("missing path should fail")
	}
}

func TestRemoteConfig(t *testing.T) {
	if err := (&RemoteConfig{BaseURL: "https://records.example.org/api"}).Validate(); err == nil {
		t.Error("base_url without token_file should fail")
	}
	if err := (&RemoteConfig{BaseURL: "not a url", TokenFile: "t"}).Validate(); err == nil {
		t.Error("invalid base_url should fail")
	}
	cfg := RemoteConfig{BaseURL: "https://records.example.org/api", TokenFile: "/run/token"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid remote config: %v", err)
	}
}

func TestSyncConfig(t *testing.T) {
	cfg := SyncConfig{}
	if err := cfg.Validate(); err != nil || cfg.Confirm != "batch" {
		t.Errorf("empty confirm: err=%v confirm=%q", err, cfg.Confirm)
	}
	if err := (&SyncConfig{Confirm: "per_item"}).Validate(); err != nil {
		t.Errorf("per_item should pass: %v", err)
	}
	if err := (&SyncConfig{Confirm: "sometimes"}).Validate(); err == nil {
		t.Error("unknown confirm mode should fail")
	}
}

func TestLoadConfig_YAMLWithEnv(t *testing.T) {
	t.Setenv("ARCHIEVE_TEST_TOKEN", "s3cret")
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
app:
  log_level: debug
  http:
    port: 9090
queue:
  backend: file
  path: ./queue
remote:
  base_url: https://records.example.org/api
  token_file: /run/archieve/token
  timeout: 5s
capture:
  environment: PUBLICLOGIC
  module: DASHBOARD
sync:
  confirm: per_item
auth:
  mode: token
  token: ${ARCHIEVE_TEST_TOKEN}
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.App.HTTP.Port != 9090 || cfg.App.LogLevel != slog.LevelDebug {
		t.Errorf("app = %+v", cfg.App)
	}
	if cfg.Queue.Backend != QueueBackendFile || cfg.Remote.Timeout != 5*time.Second {
		t.Errorf("queue = %+v remote = %+v", cfg.Queue, cfg.Remote)
	}
	if cfg.Auth.Token != "s3cret" {
		t.Errorf("token = %q, want expanded env", cfg.Auth.Token)
	}
	if cfg.Calendar.PollInterval != 30*time.Second {
		t.Errorf("unset sections should keep defaults, got %v", cfg.Calendar.PollInterval)
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.App.HTTP.Port != 8080 {
		t.Errorf("port = %d, want default 8080", cfg.App.HTTP.Port)
	}
}
