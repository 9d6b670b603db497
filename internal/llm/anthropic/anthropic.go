// Package anthropic implements the LLM provider interface for the Anthropic
// Messages API using the official SDK.
package anthropic

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/john-revops11/ai-kusina-helper-sub000/internal/llm"
)

const (
	defaultBaseURL  = "https://api.anthropic.com"
	jsonInstruction = "Respond with a single JSON object and nothing else."
)

// Client implements llm.Provider using the Anthropic Messages API.
type Client struct {
	client     *anthropic.Client
	model      anthropic.Model
	baseURL    string
	name       string
	httpClient *http.Client
	maxRetries int // -1 = SDK default
	logger     *slog.Logger
}

// Option configures the Anthropic client.
type Option func(*Client)

// WithBaseURL overrides the API base URL (useful for testing).
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithName overrides the provider name reported in logs and metrics.
func WithName(name string) Option {
	return func(c *Client) { c.name = name }
}

// WithMaxRetries sets how many times the SDK retries a failed call.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// NewClient creates an Anthropic provider.
func NewClient(apiKey, model string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		model:      anthropic.Model(model),
		baseURL:    defaultBaseURL,
		name:       "anthropic",
		maxRetries: -1,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}

	sdkOpts := []option.RequestOption{
		option.WithBaseURL(c.baseURL),
		option.WithAPIKey(apiKey),
	}
	if c.httpClient != nil {
		sdkOpts = append(sdkOpts, option.WithHTTPClient(c.httpClient))
	}
	if c.maxRetries >= 0 {
		sdkOpts = append(sdkOpts, option.WithMaxRetries(c.maxRetries))
	}
	client := anthropic.NewClient(sdkOpts...)
	c.client = &client
	return c
}

func (c *Client) Name() string { return c.name }

// SendMessage sends the conversation to the Messages API.
func (c *Client) SendMessage(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	msg, err := c.client.Messages.New(ctx, c.buildParams(req))
	if err != nil {
		return nil, fmt.Errorf("%s messages: %w", c.name, err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, llm.ErrEmptyResponse
	}

	resp := &llm.Response{
		Content:    text.String(),
		Model:      string(msg.Model),
		StopReason: string(msg.StopReason),
		Usage: llm.Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}

	c.logger.DebugContext(ctx, "llm request completed",
		slog.String("provider", c.name),
		slog.String("model", string(c.model)),
		slog.Int("input_tokens", resp.Usage.InputTokens),
		slog.Int("output_tokens", resp.Usage.OutputTokens),
		slog.String("stop_reason", resp.StopReason),
	)
	return resp, nil
}

func (c *Client) buildParams(req *llm.Request) anthropic.MessageNewParams {
	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == llm.RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: int64(req.Tokens()),
		Messages:  messages,
	}

	// The Messages API has no JSON response mode; ask for it in the system prompt.
	system := req.SystemPrompt
	if req.JSON {
		if system != "" {
			system += "\n\n"
		}
		system += jsonInstruction
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	return params
}

var _ llm.Provider = (*Client)(nil)
