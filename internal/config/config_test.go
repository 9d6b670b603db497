package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, "kusina.yaml", `
data_dir: /tmp/kusina
providers:
  default: anthropic
  anthropic:
    api_key: sk-test
    model: claude-test
orchestrator:
  request_timeout_seconds: 15
archive:
  enabled: true
gateways:
  http:
    enabled: true
    api_key_user_mapping:
      key-1: alice
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Providers.Default != "anthropic" {
		t.Errorf("default provider = %q", cfg.Providers.Default)
	}
	if got := cfg.Orchestrator.RequestTimeout().Seconds(); got != 15 {
		t.Errorf("request timeout = %vs, want 15s", got)
	}
	if cfg.Archive.ScheduleSpec() != "@every 5m" {
		t.Errorf("schedule = %q, want default", cfg.Archive.ScheduleSpec())
	}
	if cfg.Gateways.HTTP.Addr() != ":8080" {
		t.Errorf("addr = %q", cfg.Gateways.HTTP.Addr())
	}
	if cfg.StorageDriverName() != "sqlite" {
		t.Errorf("driver = %q, want sqlite", cfg.StorageDriverName())
	}
	if cfg.DatabasePath() != filepath.Join("/tmp/kusina", "kusina.db") {
		t.Errorf("db path = %q", cfg.DatabasePath())
	}
}

func TestLoad_JSONWithEnvOverride(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "from-env")
	t.Setenv("KUSINA_DB_DSN", "postgres://u:p@localhost/kusina")
	path := writeConfig(t, "kusina.json", `{"providers":{"openai":{"model":"gpt-test","api_key":"from-file"}}}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Providers.Default != "openai" {
		t.Errorf("default provider = %q, want openai", cfg.Providers.Default)
	}
	if cfg.Providers.OpenAI.APIKey != "from-env" {
		t.Errorf("api key = %q, env should win", cfg.Providers.OpenAI.APIKey)
	}
	if cfg.StorageDriverName() != "postgres" {
		t.Errorf("driver = %q, want postgres", cfg.StorageDriverName())
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing model", `{"providers":{"openai":{"api_key":"k"}}}`, "providers.openai.model"},
		{"unknown provider", `{"providers":{"default":"gemini"}}`, "not supported"},
		{"bad driver", `{"providers":{"openai":{"api_key":"k","model":"m"}},"storage":{"driver":"mysql"}}`, "storage.driver"},
		{"bad schedule", `{"providers":{"openai":{"api_key":"k","model":"m"}},"archive":{"enabled":true,"schedule":"not a cron"}}`, "archive.schedule"},
		{"ws without http", `{"providers":{"openai":{"api_key":"k","model":"m"}},"gateways":{"websocket":{"enabled":true}}}`, "websocket"},
		{"notify without sender", `{"providers":{"openai":{"api_key":"k","model":"m"}},"notification":{"enabled":true}}`, "notification"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OPENAI_API_KEY", "")
			t.Setenv("KUSINA_DB_DSN", "")
			t.Setenv("KUSINA_NOTIFY_WEBHOOK_URL", "")
			_, err := Load(writeConfig(t, "c.json", tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}
