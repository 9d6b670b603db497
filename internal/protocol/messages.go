// Package protocol defines the chat websocket message types.
// All messages are JSON-encoded and wrapped in an Envelope.
package protocol

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/john-revops11/ai-kusina-helper-sub000/internal/agent"
)

// MessageType identifies the kind of message on the chat socket.
type MessageType string

const (
	// Client → server
	MsgChatRequest MessageType = "chat.request"

	// Server → client
	MsgChatResponse MessageType = "chat.response"
	MsgPing         MessageType = "ping"

	// Server → client, for frames that could not be handled.
	MsgError MessageType = "error"
)

// Error codes carried by ErrorPayload.
const (
	CodeInvalidMessage = "invalid_message"
	CodeUnknownType    = "unknown_type"
	CodeRateLimited    = "rate_limited"
)

// Envelope is the top-level wrapper for every websocket frame.
// Replies reuse the ID of the request they answer.
type Envelope struct {
	Type      MessageType     `json:"type"`
	ID        string          `json:"id"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEnvelope creates an Envelope with a fresh ID and current timestamp.
func NewEnvelope(msgType MessageType, payload any) (*Envelope, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = data
	}
	return &Envelope{
		Type:      msgType,
		ID:        uuid.New().String(),
		Payload:   raw,
		Timestamp: time.Now().UTC(),
	}, nil
}

// Reply creates an envelope answering e, carrying e's ID.
func (e *Envelope) Reply(msgType MessageType, payload any) (*Envelope, error) {
	env, err := NewEnvelope(msgType, payload)
	if err != nil {
		return nil, err
	}
	if e != nil && e.ID != "" {
		env.ID = e.ID
	}
	return env, nil
}

// Decode unmarshals the Payload into the given target.
func (e *Envelope) Decode(target any) error {
	return json.Unmarshal(e.Payload, target)
}

// ChatContext is the optional cooking context a client may send.
type ChatContext struct {
	CurrentRecipeID string             `json:"currentRecipeId,omitempty"`
	CurrentStep     *int               `json:"currentStep,omitempty"`
	Preferences     *agent.Preferences `json:"preferences,omitempty"`
	Extra           map[string]any     `json:"extra,omitempty"`
}

// ChatRequest is the payload of MsgChatRequest. It is also the body of the
// HTTP chat endpoint.
type ChatRequest struct {
	Message        string       `json:"message"`
	Agent          string       `json:"agent,omitempty"`
	ConversationID string       `json:"conversationId,omitempty"`
	Context        *ChatContext `json:"context,omitempty"`
}

// ChatResponse is the payload of MsgChatResponse.
type ChatResponse struct {
	ConversationID string          `json:"conversationId"`
	CorrelationID  string          `json:"correlationId"`
	Response       *agent.Response `json:"response"`
}

// ErrorPayload is sent with MsgError for protocol-level errors.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AgentContext builds the per-request agent context for userID.
func (r *ChatRequest) AgentContext(userID string) *agent.Context {
	actx := &agent.Context{
		UserID:         userID,
		ConversationID: r.ConversationID,
	}
	if c := r.Context; c != nil {
		actx.CurrentRecipeID = c.CurrentRecipeID
		actx.CurrentStep = c.CurrentStep
		actx.Preferences = c.Preferences
		actx.Extra = c.Extra
	}
	return actx
}
