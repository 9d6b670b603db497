package main

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/john-revops11/ai-kusina-helper-sub000/internal/agent"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/config"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/gateway/cli"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/gateway/httpapi"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DataDir: t.TempDir(),
		Providers: config.ProvidersConfig{
			OpenAI:    config.OpenAIConfig{APIKey: "sk-test", Model: "gpt-test"},
			Anthropic: config.AnthropicConfig{APIKey: "sk-ant-test", Model: "claude-test"},
		},
	}
}

func TestBuildProvider(t *testing.T) {
	cfg := testConfig(t)
	tests := []struct {
		name string
		want string
	}{
		{"", "openai"},
		{"openai", "openai"},
		{"anthropic", "anthropic"},
	}
	for _, tt := range tests {
		p, err := buildProvider(tt.name, cfg, discard())
		if err != nil {
			t.Fatalf("buildProvider(%q): %v", tt.name, err)
		}
		if p.Name() != tt.want {
			t.Errorf("buildProvider(%q).Name() = %q, want %q", tt.name, p.Name(), tt.want)
		}
	}
	if _, err := buildProvider("gemini", cfg, discard()); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestNewLLMProvider_Fallback(t *testing.T) {
	cfg := testConfig(t)
	cfg.Providers.Default = "openai"
	cfg.Providers.Fallback = []string{"nope", "anthropic"}

	p, err := newLLMProvider(cfg, nil, discard())
	if err != nil {
		t.Fatalf("newLLMProvider: %v", err)
	}
	if p.Name() != "openai>anthropic" {
		t.Errorf("Name() = %q, want openai>anthropic", p.Name())
	}
}

func TestInitShared_SQLite(t *testing.T) {
	ctx := context.Background()
	sc, err := initShared(ctx, testConfig(t), discard())
	defer sc.Cleanup()
	if err != nil {
		t.Fatalf("initShared: %v", err)
	}

	agents := sc.Orchestrator.Agents()
	if len(agents) != 4 {
		t.Fatalf("agents = %d, want 4", len(agents))
	}
	if agents[0].Name() != agent.ChatSupportName {
		t.Errorf("first agent = %q, want %s as fallback", agents[0].Name(), agent.ChatSupportName)
	}
	if sc.Dispatcher != nil {
		t.Error("notifications should be disabled without config")
	}

	n, err := sc.Store.Recipes().Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n == 0 {
		t.Error("recipe catalog was not seeded")
	}
}

func TestBuildGateways(t *testing.T) {
	cfg := testConfig(t)
	sc, err := initShared(context.Background(), cfg, discard())
	defer sc.Cleanup()
	if err != nil {
		t.Fatalf("initShared: %v", err)
	}

	gws := buildGateways(cfg, sc)
	if len(gws) != 1 {
		t.Fatalf("default gateways = %d, want 1", len(gws))
	}
	if _, ok := gws[0].(*cli.Gateway); !ok {
		t.Errorf("default gateway = %T, want *cli.Gateway", gws[0])
	}

	cfg.Gateways = config.GatewaysConfig{
		HTTP:      &config.HTTPGatewayConfig{Enabled: true, APIKeyUserMapping: map[string]string{"k": "u"}},
		WebSocket: &config.WebSocketGatewayConfig{Enabled: true},
	}
	gws = buildGateways(cfg, sc)
	if len(gws) != 1 {
		t.Fatalf("gateways = %d, want 1 (websocket is mounted on http)", len(gws))
	}
	if _, ok := gws[0].(*httpapi.Gateway); !ok {
		t.Errorf("gateway = %T, want *httpapi.Gateway", gws[0])
	}
}
