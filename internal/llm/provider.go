// Package llm defines the provider-agnostic interface the recipe agents use to
// talk to a language model.
package llm

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned by providers when the model produced no text.
var ErrEmptyResponse = errors.New("llm returned an empty response")

// Provider is the abstraction over any LLM backend (OpenAI, Anthropic).
type Provider interface {
	// SendMessage sends a conversation to the LLM and returns its response.
	SendMessage(ctx context.Context, req *Request) (*Response, error)
	// Name returns the provider identifier (e.g. "openai").
	Name() string
}

// Request is a full conversation sent to the LLM.
type Request struct {
	SystemPrompt string
	Messages     []Message
	MaxTokens    int  // 0 = DefaultMaxTokens
	JSON         bool // Ask for a single JSON object as the answer.
}

// DefaultMaxTokens caps a reply when the request does not set MaxTokens.
const DefaultMaxTokens = 1024

// Tokens returns the effective token cap.
func (r *Request) Tokens() int {
	if r.MaxTokens > 0 {
		return r.MaxTokens
	}
	return DefaultMaxTokens
}

// Message is a single turn in the conversation.
type Message struct {
	Role    Role
	Content string
}

// Role identifies who sent a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Response is what the LLM returns.
type Response struct {
	Content    string
	Model      string
	Usage      Usage
	StopReason string
}

// Usage tracks token consumption.
type Usage struct {
	InputTokens  int
	OutputTokens int
}
