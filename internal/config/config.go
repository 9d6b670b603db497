// Package config handles loading and validating Kusina configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

func init() {
	// Load .env file if it exists
	_ = godotenv.Load()
}

// Config is the root configuration for Kusina.
type Config struct {
	DataDir       string               `json:"data_dir,omitempty" yaml:"data_dir,omitempty"` // Default: ~/.kusina/data. Override: KUSINA_DATA_DIR env var.
	Storage       *StorageConfig       `json:"storage,omitempty" yaml:"storage,omitempty"`   // nil = SQLite under DataDir
	Providers     ProvidersConfig      `json:"providers" yaml:"providers"`
	Gateways      GatewaysConfig       `json:"gateways" yaml:"gateways"`
	Orchestrator  *OrchestratorConfig  `json:"orchestrator,omitempty" yaml:"orchestrator,omitempty"`
	Observability *ObservabilityConfig `json:"observability,omitempty" yaml:"observability,omitempty"` // nil = observability disabled
	Archive       *ArchiveConfig       `json:"archive,omitempty" yaml:"archive,omitempty"`             // nil = transcripts are not archived
	Notification  *NotificationConfig  `json:"notification,omitempty" yaml:"notification,omitempty"`   // nil = notifications disabled
}

// StorageConfig configures the persistence backend.
type StorageConfig struct {
	Driver   string                 `json:"driver" yaml:"driver"` // "sqlite" (default) or "postgres".
	SQLite   *SQLiteStorageConfig   `json:"sqlite,omitempty" yaml:"sqlite,omitempty"`
	Postgres *PostgresStorageConfig `json:"postgres,omitempty" yaml:"postgres,omitempty"`
}

// StorageDriver returns the configured driver, defaulting to "sqlite".
func (s *StorageConfig) StorageDriver() string {
	if s != nil && s.Driver != "" {
		return s.Driver
	}
	return "sqlite"
}

// SQLiteStorageConfig holds SQLite-specific settings.
type SQLiteStorageConfig struct {
	Path        string `json:"path,omitempty" yaml:"path,omitempty"` // Default: <data_dir>/kusina.db
	JournalMode string `json:"journal_mode" yaml:"journal_mode"`     // "wal" (default), "delete", "truncate", etc.
}

// PostgresStorageConfig holds PostgreSQL-specific settings.
// DSN can be overridden by KUSINA_DB_DSN.
type PostgresStorageConfig struct {
	DSN              string `json:"dsn" yaml:"dsn"`
	MaxOpenConns     int    `json:"max_open_conns" yaml:"max_open_conns"`           // Default: 25
	MaxIdleConns     int    `json:"max_idle_conns" yaml:"max_idle_conns"`           // Default: 5
	ConnMaxLifetimeS int    `json:"conn_max_lifetime_s" yaml:"conn_max_lifetime_s"` // Default: 1800 (30 min)
	ConnMaxIdleTimeS int    `json:"conn_max_idle_time_s" yaml:"conn_max_idle_time_s"`
}

// ProvidersConfig selects the LLM backends used by the chat, cooking tip and
// recipe generation paths.
type ProvidersConfig struct {
	Default   string          `json:"default" yaml:"default"`                       // "openai" or "anthropic". Empty = "openai".
	Fallback  []string        `json:"fallback,omitempty" yaml:"fallback,omitempty"` // Tried in order when the default fails.
	OpenAI    OpenAIConfig    `json:"openai" yaml:"openai"`
	Anthropic AnthropicConfig `json:"anthropic" yaml:"anthropic"`
}

type OpenAIConfig struct {
	APIKey  string `json:"api_key" yaml:"api_key"`
	Model   string `json:"model" yaml:"model"`
	BaseURL string `json:"base_url" yaml:"base_url"` // Optional. Defaults to https://api.openai.com/v1.
}

type AnthropicConfig struct {
	APIKey  string `json:"api_key" yaml:"api_key"`
	Model   string `json:"model" yaml:"model"`
	BaseURL string `json:"base_url" yaml:"base_url"`
}

// OrchestratorConfig tunes the request path.
type OrchestratorConfig struct {
	RequestTimeoutSeconds int `json:"request_timeout_seconds" yaml:"request_timeout_seconds"` // 0 = no deadline.
}

// RequestTimeout returns the per-request deadline, or 0 for none.
func (o *OrchestratorConfig) RequestTimeout() time.Duration {
	if o != nil && o.RequestTimeoutSeconds > 0 {
		return time.Duration(o.RequestTimeoutSeconds) * time.Second
	}
	return 0
}

// GatewaysConfig defines which gateways are enabled and their settings.
// Nil pointers mean the gateway is not configured.
type GatewaysConfig struct {
	CLI       *CLIGatewayConfig       `json:"cli,omitempty" yaml:"cli,omitempty"`
	HTTP      *HTTPGatewayConfig      `json:"http,omitempty" yaml:"http,omitempty"`
	WebSocket *WebSocketGatewayConfig `json:"websocket,omitempty" yaml:"websocket,omitempty"` // Mounted on the HTTP gateway.
}

// CLIGatewayConfig configures the interactive CLI gateway.
type CLIGatewayConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// HTTPGatewayConfig configures the HTTP API gateway.
type HTTPGatewayConfig struct {
	Enabled             bool              `json:"enabled" yaml:"enabled"`
	EnableDocs          bool              `json:"enable_docs" yaml:"enable_docs"`
	ListenAddr          string            `json:"listen_addr" yaml:"listen_addr"`
	MaxRequestSizeBytes int64             `json:"max_request_size_bytes" yaml:"max_request_size_bytes"`
	APIKeyUserMapping   map[string]string `json:"api_key_user_mapping" yaml:"api_key_user_mapping"` // API key → user ID.
	RateLimit           RateLimitConfig   `json:"rate_limit" yaml:"rate_limit"`
}

// Addr returns the listen address with a default of ":8080".
func (h *HTTPGatewayConfig) Addr() string {
	if h != nil && h.ListenAddr != "" {
		return h.ListenAddr
	}
	return ":8080"
}

// WebSocketGatewayConfig configures the chat websocket.
type WebSocketGatewayConfig struct {
	Enabled                  bool   `json:"enabled" yaml:"enabled"`
	Path                     string `json:"path" yaml:"path"`                                             // Default: "/v1/ws/chat".
	HeartbeatIntervalSeconds int    `json:"heartbeat_interval_seconds" yaml:"heartbeat_interval_seconds"` // Default: 30.
}

// WSPath returns the websocket path with a default of "/v1/ws/chat".
func (w *WebSocketGatewayConfig) WSPath() string {
	if w != nil && w.Path != "" {
		return w.Path
	}
	return "/v1/ws/chat"
}

// WSHeartbeatInterval returns the ping interval with a default of 30s.
func (w *WebSocketGatewayConfig) WSHeartbeatInterval() time.Duration {
	if w != nil && w.HeartbeatIntervalSeconds > 0 {
		return time.Duration(w.HeartbeatIntervalSeconds) * time.Second
	}
	return 30 * time.Second
}

// RateLimitConfig configures per-user rate limiting for a gateway.
type RateLimitConfig struct {
	RequestsPerMinute int `json:"requests_per_minute" yaml:"requests_per_minute"`
	BurstSize         int `json:"burst_size" yaml:"burst_size"`
}

// ObservabilityConfig configures metrics, tracing and health checks.
// When nil, all observability features are disabled.
type ObservabilityConfig struct {
	Metrics *MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Tracing *TracingConfig `json:"tracing,omitempty" yaml:"tracing,omitempty"`
}

// MetricsConfig configures Prometheus metrics exposition.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"` // Default: "/metrics"
}

// MetricsPath returns the exposition path with a default of "/metrics".
func (m *MetricsConfig) MetricsPath() string {
	if m != nil && m.Path != "" {
		return m.Path
	}
	return "/metrics"
}

// TracingConfig configures OpenTelemetry distributed tracing.
type TracingConfig struct {
	Enabled     bool    `json:"enabled" yaml:"enabled"`
	Endpoint    string  `json:"endpoint" yaml:"endpoint"`         // OTLP endpoint, e.g. "localhost:4317"
	Protocol    string  `json:"protocol" yaml:"protocol"`         // "grpc" or "http". Default: "grpc"
	ServiceName string  `json:"service_name" yaml:"service_name"` // Default: "kusina"
	SampleRate  float64 `json:"sample_rate" yaml:"sample_rate"`   // 0.0–1.0. Default: 1.0
	Insecure    bool    `json:"insecure" yaml:"insecure"`
}

// ArchiveConfig configures periodic transcript snapshots.
type ArchiveConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Schedule string `json:"schedule" yaml:"schedule"` // Cron spec or descriptor. Default: "@every 5m".
}

// ScheduleSpec returns the cron spec with a default of "@every 5m".
func (a *ArchiveConfig) ScheduleSpec() string {
	if a != nil && a.Schedule != "" {
		return a.Schedule
	}
	return "@every 5m"
}

// NotificationConfig configures the fault notification hook.
type NotificationConfig struct {
	Enabled bool                     `json:"enabled" yaml:"enabled"`
	Webhook *WebhookNotifyConfig     `json:"webhook,omitempty" yaml:"webhook,omitempty"`
	Slack   *SlackNotificationConfig `json:"slack,omitempty" yaml:"slack,omitempty"`
}

// WebhookNotifyConfig configures the generic JSON webhook sender.
// URL can be overridden by KUSINA_NOTIFY_WEBHOOK_URL.
type WebhookNotifyConfig struct {
	URL          string            `json:"url" yaml:"url"`
	Headers      map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	AllowPrivate bool              `json:"allow_private" yaml:"allow_private"` // Permit loopback/private targets (local dev).
}

// SlackNotificationConfig configures a Slack incoming webhook.
type SlackNotificationConfig struct {
	WebhookURL string `json:"webhook_url" yaml:"webhook_url"`
	Channel    string `json:"channel,omitempty" yaml:"channel,omitempty"`
}

// DefaultConfigPath returns the default config file path (~/.kusina/config.yaml).
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "configs/kusina.yaml"
	}
	return filepath.Join(home, ".kusina", "config.yaml")
}

// Load reads a JSON or YAML config file and returns a validated Config.
// The format is detected by file extension: .yml/.yaml for YAML, everything else for JSON.
// Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return nil, fmt.Errorf("resolving config path %s: %w", path, err)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", resolved, err)
	}

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(resolved)); ext {
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML config %s: %w", resolved, err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing JSON config %s: %w", resolved, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.Providers.OpenAI.APIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.Providers.Anthropic.APIKey = v
	}
	if v := os.Getenv("KUSINA_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("KUSINA_DB_DSN"); v != "" {
		if c.Storage == nil {
			c.Storage = &StorageConfig{Driver: "postgres"}
		}
		if c.Storage.Postgres == nil {
			c.Storage.Postgres = &PostgresStorageConfig{}
		}
		c.Storage.Postgres.DSN = v
	}
	if v := os.Getenv("KUSINA_NOTIFY_WEBHOOK_URL"); v != "" {
		if c.Notification == nil {
			c.Notification = &NotificationConfig{Enabled: true}
		}
		if c.Notification.Webhook == nil {
			c.Notification.Webhook = &WebhookNotifyConfig{}
		}
		c.Notification.Webhook.URL = v
	}
}

// resolvePath expands ~ to the user home directory and returns an absolute path.
func resolvePath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") || path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[1:])
	}
	return filepath.Abs(path)
}

// ResolvedDataDir returns the data directory, resolving ~ if needed.
func (c *Config) ResolvedDataDir() string {
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "data"
		}
		return filepath.Join(home, ".kusina", "data")
	}
	resolved, err := resolvePath(c.DataDir)
	if err != nil {
		return c.DataDir
	}
	return resolved
}

// DatabasePath returns the SQLite database path.
func (c *Config) DatabasePath() string {
	if c.Storage != nil && c.Storage.SQLite != nil && c.Storage.SQLite.Path != "" {
		return c.Storage.SQLite.Path
	}
	return filepath.Join(c.ResolvedDataDir(), "kusina.db")
}

// StorageDriverName returns the effective storage driver name.
func (c *Config) StorageDriverName() string {
	return c.Storage.StorageDriver()
}

func (c *Config) validate() error {
	if c.Providers.Default == "" {
		c.Providers.Default = "openai"
	}
	if err := c.validateProvider(c.Providers.Default); err != nil {
		return err
	}
	for _, name := range c.Providers.Fallback {
		if err := c.validateProvider(name); err != nil {
			return fmt.Errorf("providers.fallback: %w", err)
		}
	}

	switch c.StorageDriverName() {
	case "sqlite":
	case "postgres":
		if c.Storage.Postgres == nil || c.Storage.Postgres.DSN == "" {
			return fmt.Errorf("storage.postgres.dsn is required (set KUSINA_DB_DSN env var)")
		}
	default:
		return fmt.Errorf("storage.driver %q is not supported (use sqlite or postgres)", c.Storage.Driver)
	}

	if c.Orchestrator != nil && c.Orchestrator.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("orchestrator.request_timeout_seconds must not be negative")
	}

	if c.Archive != nil && c.Archive.Enabled {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(c.Archive.ScheduleSpec()); err != nil {
			return fmt.Errorf("archive.schedule %q: %w", c.Archive.Schedule, err)
		}
	}

	if c.Gateways.WebSocket != nil && c.Gateways.WebSocket.Enabled {
		if c.Gateways.HTTP == nil || !c.Gateways.HTTP.Enabled {
			return fmt.Errorf("gateways.websocket requires the http gateway to be enabled")
		}
	}

	if c.Notification != nil && c.Notification.Enabled {
		if c.Notification.Webhook == nil && c.Notification.Slack == nil {
			return fmt.Errorf("notification is enabled but no webhook or slack sender is configured")
		}
	}
	return nil
}

// validateProvider checks that the named LLM provider has the required fields.
func (c *Config) validateProvider(name string) error {
	switch name {
	case "openai":
		if c.Providers.OpenAI.Model == "" {
			return fmt.Errorf("providers.openai.model is required")
		}
		if c.Providers.OpenAI.APIKey == "" {
			return fmt.Errorf("providers.openai.api_key is required (set OPENAI_API_KEY env var)")
		}
	case "anthropic":
		if c.Providers.Anthropic.Model == "" {
			return fmt.Errorf("providers.anthropic.model is required")
		}
		if c.Providers.Anthropic.APIKey == "" {
			return fmt.Errorf("providers.anthropic.api_key is required (set ANTHROPIC_API_KEY env var)")
		}
	default:
		return fmt.Errorf("provider %q is not supported (use openai or anthropic)", name)
	}
	return nil
}
