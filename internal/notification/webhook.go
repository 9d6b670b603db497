package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/john-revops11/ai-kusina-helper-sub000/internal/config"
)

// WebhookSender sends notifications via HTTP POST to a configured URL.
// Includes SSRF protection: blocks requests to private IP ranges unless
// AllowPrivate is set.
type WebhookSender struct {
	url          string
	headers      map[string]string
	allowPrivate bool
	httpClient   *http.Client
	resolver     *net.Resolver
	logger       *slog.Logger
}

// NewWebhookSender creates a webhook notification sender.
func NewWebhookSender(cfg config.WebhookNotifyConfig, logger *slog.Logger) (*WebhookSender, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("webhook URL scheme must be http or https, got %q", u.Scheme)
	}
	return &WebhookSender{
		url:          cfg.URL,
		headers:      cfg.Headers,
		allowPrivate: cfg.AllowPrivate,
		httpClient: &http.Client{
			// Do not follow redirects: a redirect could point at an internal host.
			CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		resolver: net.DefaultResolver,
		logger:   logger,
	}, nil
}

func (s *WebhookSender) Type() string { return "webhook" }

func (s *WebhookSender) Send(ctx context.Context, msg *Message) error {
	if !s.allowPrivate {
		if err := s.checkPublic(ctx); err != nil {
			return fmt.Errorf("webhook URL rejected: %w", err)
		}
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Kusina-Webhook/1.0")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// checkPublic resolves the webhook host and rejects loopback, private,
// link-local and unspecified addresses.
func (s *WebhookSender) checkPublic(ctx context.Context) error {
	u, err := url.Parse(s.url)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	hostname := u.Hostname()
	if strings.EqualFold(hostname, "localhost") {
		return fmt.Errorf("loopback addresses not allowed")
	}

	addrs, err := s.resolver.LookupIPAddr(ctx, hostname)
	if err != nil {
		return fmt.Errorf("DNS lookup failed for %q: %w", hostname, err)
	}
	for _, addr := range addrs {
		if isInternal(addr.IP) {
			return fmt.Errorf("private/internal IP %s not allowed", addr.IP)
		}
	}
	return nil
}

func isInternal(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified()
}
