// Package gateway defines the interface for user-facing entry points and
// the chat path they share.
package gateway

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"log/slog"

	"github.com/john-revops11/ai-kusina-helper-sub000/internal/agent"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/protocol"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/recipe"
)

// Gateway is a user-facing interface (CLI, HTTP, WebSocket, MCP).
type Gateway interface {
	// Start launches the gateway's event loop and blocks until the gateway
	// exits or the context is canceled. Returns an error only on failure.
	Start(ctx context.Context) error

	// Stop performs graceful shutdown. The context carries a deadline
	// for the grace period. In-flight requests should drain before returning.
	Stop(ctx context.Context) error
}

// Chat turns a ChatRequest into an orchestrator call. Gateways that know
// the caller's user id share it so stored preferences are applied the same
// way everywhere.
type Chat struct {
	orch   *agent.Orchestrator
	prefs  recipe.PreferenceStore // nil = never load stored preferences
	logger *slog.Logger
}

// NewChat creates the shared chat path. prefs may be nil.
func NewChat(orch *agent.Orchestrator, prefs recipe.PreferenceStore, logger *slog.Logger) *Chat {
	return &Chat{orch: orch, prefs: prefs, logger: logger}
}

// Orchestrator returns the wrapped orchestrator.
func (c *Chat) Orchestrator() *agent.Orchestrator {
	return c.orch
}

// Handle processes req on behalf of userID. It never fails: faults are
// already folded into the Response by the orchestrator.
func (c *Chat) Handle(ctx context.Context, userID string, req *protocol.ChatRequest) *protocol.ChatResponse {
	actx := req.AgentContext(userID)
	if actx.ConversationID == "" {
		actx.ConversationID = c.orch.CreateNewConversation()
	}
	if actx.Preferences == nil {
		actx.Preferences = c.loadPreferences(ctx, userID)
	}

	correlationID := NewCorrelationID()
	ctx = agent.WithCorrelationID(ctx, correlationID)

	resp := c.orch.ProcessRequest(ctx, req.Message, req.Agent, actx)
	return &protocol.ChatResponse{
		ConversationID: actx.ConversationID,
		CorrelationID:  correlationID,
		Response:       resp,
	}
}

func (c *Chat) loadPreferences(ctx context.Context, userID string) *agent.Preferences {
	if c.prefs == nil || userID == "" {
		return nil
	}
	prefs, err := c.prefs.GetPreferences(ctx, userID)
	if err != nil {
		if !errors.Is(err, recipe.ErrNotFound) {
			c.logger.WarnContext(ctx, "loading preferences failed",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
		return nil
	}
	return prefs
}

// NewCorrelationID returns a random 16-hex-digit id.
func NewCorrelationID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// LookupAPIKey returns the user mapped to apiKey, or "". Every key is
// compared so the timing does not depend on which one matched.
func LookupAPIKey(keys map[string]string, apiKey string) string {
	if apiKey == "" {
		return ""
	}
	userID := ""
	for key, user := range keys {
		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(key)) == 1 {
			userID = user
		}
	}
	return userID
}
