// Package openai implements the LLM provider interface on top of the official
// OpenAI Go SDK (Chat Completions).
package openai

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/john-revops11/ai-kusina-helper-sub000/internal/llm"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client implements llm.Provider using the OpenAI Chat Completions API.
type Client struct {
	client     openai.Client
	model      string
	baseURL    string
	name       string
	httpClient *http.Client
	maxRetries int // -1 = SDK default
	logger     *slog.Logger
}

// Option configures the OpenAI client.
type Option func(*Client)

// WithBaseURL overrides the API base URL (OpenAI-compatible servers, tests).
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

// NewClient creates an OpenAI provider.
func NewClient(apiKey, model string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		model:      model,
		baseURL:    defaultBaseURL,
		name:       "openai",
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
	c.client = openai.NewClient(sdkOpts...)
	return c
}

func (c *Client) Name() string { return c.name }

// SendMessage sends the conversation as a single non-streaming completion.
func (c *Client) SendMessage(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	params := c.buildParams(req)

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%s chat completion: %w", c.name, err)
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return nil, llm.ErrEmptyResponse
	}

	choice := completion.Choices[0]
	resp := &llm.Response{
		Content:    choice.Message.Content,
		Model:      completion.Model,
		StopReason: stopReason(choice.FinishReason),
		Usage: llm.Usage{
			InputTokens:  int(completion.Usage.PromptTokens),
			OutputTokens: int(completion.Usage.CompletionTokens),
		},
	}

	c.logger.DebugContext(ctx, "llm request completed",
		slog.String("provider", c.name),
		slog.String("model", c.model),
		slog.Int("input_tokens", resp.Usage.InputTokens),
		slog.Int("output_tokens", resp.Usage.OutputTokens),
		slog.String("stop_reason", resp.StopReason),
	)
	return resp, nil
}

func (c *Client) buildParams(req *llm.Request) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	for _, m := range req.Messages {
		switch m.Role {
		case llm.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               openai.ChatModel(c.model),
		MaxCompletionTokens: openai.Int(int64(req.Tokens())),
	}
	if req.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		}
	}
	return params
}

// stopReason maps OpenAI finish reasons onto the provider-neutral vocabulary.
func stopReason(finish string) string {
	switch finish {
	case "stop":
		return "end_turn"
	case "length":
		return "max_tokens"
	default:
		return finish
	}
}

var _ llm.Provider = (*Client)(nil)
