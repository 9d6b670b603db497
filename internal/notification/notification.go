// Package notification delivers fault notifications (the user-visible
// "toast" hook) to external channels such as a JSON webhook or Slack.
//
// Delivery never blocks a request: the orchestrator calls Notify from its
// own goroutine, and send errors are logged, never returned.
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/john-revops11/ai-kusina-helper-sub000/internal/agent"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/config"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/observability"
)

// DefaultSendTimeout bounds a single delivery attempt.
const DefaultSendTimeout = 10 * time.Second

// Level is the severity shown by the receiving channel.
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Sender is the interface for a single notification channel backend.
type Sender interface {
	// Type returns the channel type identifier ("webhook", "slack").
	Type() string
	// Send delivers one message.
	Send(ctx context.Context, msg *Message) error
}

// Message is the payload delivered through a channel.
type Message struct {
	Level          Level             `json:"level"`
	Title          string            `json:"title"`
	Body           string            `json:"body"`
	ConversationID string            `json:"conversationId,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// FromAgentNotification converts an orchestrator fault into a Message.
func FromAgentNotification(n agent.Notification) *Message {
	meta := map[string]string{
		"timestamp": n.Timestamp.UTC().Format(time.RFC3339),
	}
	if n.AgentName != "" {
		meta["agent"] = n.AgentName
	}
	if n.CorrelationID != "" {
		meta["correlation_id"] = n.CorrelationID
	}
	if n.Error != "" {
		meta["error"] = n.Error
	}
	return &Message{
		Level:          LevelError,
		Title:          n.Title,
		Body:           n.Body,
		ConversationID: n.ConversationID,
		Metadata:       meta,
	}
}

// Dispatcher fans a notification out to every registered Sender.
// It implements agent.Notifier and is safe for concurrent use.
type Dispatcher struct {
	mu      sync.RWMutex
	senders []Sender
	timeout time.Duration
	metrics *observability.MetricsCollector
	logger  *slog.Logger
}

// NewDispatcher creates a dispatcher with no senders.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{timeout: DefaultSendTimeout, logger: logger}
}

// NewFromConfig builds a dispatcher from config. It returns nil when
// notifications are disabled.
func NewFromConfig(cfg *config.NotificationConfig, metrics *observability.MetricsCollector, logger *slog.Logger) (*Dispatcher, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}
	d := NewDispatcher(logger).WithMetrics(metrics)
	if cfg.Webhook != nil && cfg.Webhook.URL != "" {
		s, err := NewWebhookSender(*cfg.Webhook, logger)
		if err != nil {
			return nil, err
		}
		d.RegisterSender(s)
	}
	if cfg.Slack != nil && cfg.Slack.WebhookURL != "" {
		d.RegisterSender(NewSlackSender(*cfg.Slack, logger))
	}
	if d.Len() == 0 {
		return nil, fmt.Errorf("notification enabled but no sender configured")
	}
	return d, nil
}

// WithMetrics records per-sender delivery outcomes. m may be nil.
func (d *Dispatcher) WithMetrics(m *observability.MetricsCollector) *Dispatcher {
	d.metrics = m
	return d
}

// WithTimeout overrides DefaultSendTimeout.
func (d *Dispatcher) WithTimeout(timeout time.Duration) *Dispatcher {
	d.timeout = timeout
	return d
}

// RegisterSender adds a channel backend.
func (d *Dispatcher) RegisterSender(s Sender) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.senders = append(d.senders, s)
}

// Len returns the number of registered senders.
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.senders)
}

// Notify implements agent.Notifier.
func (d *Dispatcher) Notify(ctx context.Context, n agent.Notification) {
	d.Send(ctx, FromAgentNotification(n))
}

// Send delivers msg to every sender concurrently and waits for all of them,
// each bounded by the send timeout.
func (d *Dispatcher) Send(ctx context.Context, msg *Message) {
	d.mu.RLock()
	senders := make([]Sender, len(d.senders))
	copy(senders, d.senders)
	d.mu.RUnlock()

	var wg sync.WaitGroup
	for _, s := range senders {
		wg.Add(1)
		go func(s Sender) {
			defer wg.Done()
			d.deliver(ctx, s, msg)
		}(s)
	}
	wg.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, s Sender, msg *Message) {
	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	status := "success"
	if err := s.Send(sendCtx, msg); err != nil {
		status = "failure"
		d.logger.WarnContext(ctx, "notification send failed",
			slog.String("sender", s.Type()),
			slog.String("conversation_id", msg.ConversationID),
			slog.String("error", err.Error()),
		)
	} else {
		d.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Type()),
			slog.String("conversation_id", msg.ConversationID),
		)
	}
	if d.metrics != nil {
		d.metrics.NotificationsTotal.WithLabelValues(s.Type(), status).Inc()
	}
}

var _ agent.Notifier = (*Dispatcher)(nil)
