package observability

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/john-revops11/ai-kusina-helper-sub000/internal/config"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/llm"
)

// --- No-op Path ---

func TestNew_NilConfig(t *testing.T) {
	obs, err := New(nil, nil)
	if err != nil {
		t.Fatalf("New(nil) error: %v", err)
	}
	if obs != nil {
		t.Fatal("expected nil Observability for nil config")
	}
}

func TestNew_AllDisabled(t *testing.T) {
	obs, err := New(&config.ObservabilityConfig{}, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if obs == nil {
		t.Fatal("expected non-nil Observability")
	}
	if obs.Metrics != nil {
		t.Error("metrics should be nil when not enabled")
	}
	if obs.Tracer != nil {
		t.Error("tracer should be nil when not enabled")
	}
	if obs.Health == nil {
		t.Error("health checker should always be created")
	}
	if obs.MetricsHandler() != nil {
		t.Error("metrics handler should be nil when metrics are disabled")
	}
}

func TestObservability_NilSafe(t *testing.T) {
	var obs *Observability
	obs.Shutdown(context.Background())
	if obs.MetricsOrNil() != nil {
		t.Error("expected nil metrics from nil Observability")
	}
	if obs.TracerOrNil() != nil {
		t.Error("expected nil tracer from nil Observability")
	}
	// A nil TracerSetup still hands out a usable no-op tracer.
	_, span := obs.TracerOrNil().Tracer().Start(context.Background(), "noop")
	span.End()
}

// --- MetricsCollector ---

func TestMetricsCollector_Names(t *testing.T) {
	m := NewMetricsCollector()

	// Vec metrics only appear in Gather after first use.
	m.LLMRequestsTotal.WithLabelValues("openai", "success").Inc()
	m.AgentRequestsTotal.WithLabelValues("ChatSupport", "success").Inc()
	m.RouteDecisionsTotal.WithLabelValues("chat", "ChatSupport").Inc()
	m.NotificationsTotal.WithLabelValues("webhook", "success").Inc()
	m.HTTPRequestsTotal.WithLabelValues("GET", "/healthz", "200").Inc()
	m.Conversations.Set(3)

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("gather error: %v", err)
	}
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, expected := range []string{
		"kusina_llm_requests_total",
		"kusina_agent_requests_total",
		"kusina_router_decisions_total",
		"kusina_notification_sent_total",
		"kusina_http_requests_total",
		"kusina_conversations",
		"kusina_active_requests",
	} {
		if !names[expected] {
			t.Errorf("metric %q not found in registry", expected)
		}
	}
}

func TestMetricsHandler_Exposition(t *testing.T) {
	obs, err := New(&config.ObservabilityConfig{Metrics: &config.MetricsConfig{Enabled: true}}, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	obs.Metrics.AgentRequestsTotal.WithLabelValues("RecipeDiscovery", "fault").Inc()

	rec := httptest.NewRecorder()
	obs.MetricsHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, `kusina_agent_requests_total{agent="RecipeDiscovery",outcome="fault"} 1`) {
		t.Errorf("exposition missing agent counter:\n%s", body)
	}
}

func labelMap(pairs []*dto.LabelPair) map[string]string {
	m := make(map[string]string)
	for _, p := range pairs {
		m[p.GetName()] = p.GetValue()
	}
	return m
}

// --- HealthChecker ---

func TestHealthChecker_NoChecks(t *testing.T) {
	h := NewHealthChecker(nil)
	if status := h.CheckReady(context.Background()); !status.OK() {
		t.Errorf("status = %q, want ok", status.Status)
	}
}

func TestHealthChecker_NilReceiver(t *testing.T) {
	var h *HealthChecker
	h.AddCheck("db", func(ctx context.Context) error { return errors.New("down") })
	if status := h.CheckReady(context.Background()); !status.OK() {
		t.Errorf("nil checker status = %q, want ok", status.Status)
	}
}

func TestHealthChecker_OneFails(t *testing.T) {
	h := NewHealthChecker(nil)
	h.AddCheck("storage", func(ctx context.Context) error { return errors.New("connection refused") })
	h.AddCheck("agents", func(ctx context.Context) error { return nil })

	status := h.CheckReady(context.Background())
	if status.Status != "degraded" {
		t.Errorf("status = %q, want degraded", status.Status)
	}
	if got := status.Checks["storage"]; got.Status != "fail" || got.Message != "connection refused" {
		t.Errorf("storage check = %+v", got)
	}
	if status.Checks["agents"].Status != "ok" {
		t.Errorf("agents check = %q, want ok", status.Checks["agents"].Status)
	}
}

func TestHealthChecker_Liveness(t *testing.T) {
	h := NewHealthChecker(nil)
	h.AddCheck("storage", func(ctx context.Context) error { return errors.New("down") })
	if status := h.CheckHealth(); status.Status != "ok" {
		t.Errorf("liveness status = %q, want ok", status.Status)
	}
}

// --- InstrumentedProvider ---

type mockProvider struct {
	name   string
	resp   *llm.Response
	err    error
	called int
}

func (m *mockProvider) Name() string { return m.name }
func (m *mockProvider) SendMessage(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	m.called++
	return m.resp, m.err
}

func TestInstrumentedProvider_Success(t *testing.T) {
	obs := &Observability{Metrics: NewMetricsCollector()}
	inner := &mockProvider{
		name: "openai",
		resp: &llm.Response{Content: "hello", Usage: llm.Usage{InputTokens: 10, OutputTokens: 20}},
	}

	p := NewInstrumentedProvider(inner, obs)
	resp, err := p.SendMessage(context.Background(), &llm.Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "hello" || inner.called != 1 {
		t.Errorf("content = %q, calls = %d", resp.Content, inner.called)
	}
	if p.Name() != "openai" {
		t.Errorf("name = %q", p.Name())
	}

	reg := obs.Metrics.Registry
	if val := counterValue(t, reg, "kusina_llm_requests_total", prometheus.Labels{"provider": "openai", "status": "success"}); val != 1 {
		t.Errorf("requests_total = %v, want 1", val)
	}
	if val := counterValue(t, reg, "kusina_llm_tokens_used_total", prometheus.Labels{"provider": "openai", "direction": "output"}); val != 20 {
		t.Errorf("output tokens = %v, want 20", val)
	}
}

func TestInstrumentedProvider_Error(t *testing.T) {
	obs := &Observability{Metrics: NewMetricsCollector()}
	inner := &mockProvider{name: "anthropic", err: errors.New("api error")}

	p := NewInstrumentedProvider(inner, obs)
	if _, err := p.SendMessage(context.Background(), &llm.Request{}); err == nil {
		t.Fatal("expected error")
	}
	if val := counterValue(t, obs.Metrics.Registry, "kusina_llm_requests_total", prometheus.Labels{"provider": "anthropic", "status": "error"}); val != 1 {
		t.Errorf("error requests_total = %v, want 1", val)
	}
}

func TestInstrumentedProvider_Disabled(t *testing.T) {
	inner := &mockProvider{name: "openai"}
	if p := NewInstrumentedProvider(inner, nil); p != llm.Provider(inner) {
		t.Error("nil observability should return the provider unchanged")
	}
	if p := NewInstrumentedProvider(inner, &Observability{}); p != llm.Provider(inner) {
		t.Error("disabled observability should return the provider unchanged")
	}
}

// --- Route labels ---

func TestRouteLabel(t *testing.T) {
	for in, want := range map[string]string{
		"/v1/chat":                       "/v1/chat",
		"/v1/recipes/chicken-adobo":      "/v1/recipes/:id",
		"/v1/conversations/abc/messages": "/v1/conversations/:id/messages",
		"/v1/conversations":              "/v1/conversations",
		"/v1/conversations/":             "/v1/conversations/",
	} {
		if got := routeLabel(in); got != want {
			t.Errorf("routeLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

// --- Helpers ---

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels prometheus.Labels) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather error: %v", err)
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, metric := range f.GetMetric() {
			lm := labelMap(metric.GetLabel())
			match := true
			for k, v := range labels {
				if lm[k] != v {
					match = false
					break
				}
			}
			if match {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}
