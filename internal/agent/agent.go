// Package agent defines the conversational agent contract and the
// orchestration core: registry, router, conversation history and the
// Orchestrator façade that ties them together.
package agent

import (
	"context"
	"errors"
	"time"
)

// ErrNoAgents is returned when routing is attempted against an empty registry.
// An empty registry is a startup ordering bug, not a per-request condition.
var ErrNoAgents = errors.New("no agents registered")

// Agent is a specialized handler that can answer an utterance.
type Agent interface {
	// Name returns the stable, unique name the agent is registered under.
	Name() string

	// Handle answers the utterance. A returned error is a handler fault;
	// a Response with Success=false is a legitimate, reported failure.
	Handle(ctx context.Context, utterance string, actx *Context) (*Response, error)
}

// Skill levels recognized in Preferences.
const (
	SkillBeginner     = "beginner"
	SkillIntermediate = "intermediate"
	SkillAdvanced     = "advanced"
)

// Preferences is the user's cooking profile.
type Preferences struct {
	DietaryRestrictions []string `json:"dietaryRestrictions,omitempty"`
	SkillLevel          string   `json:"skillLevel,omitempty"`
	FavoriteCuisines    []string `json:"favoriteCuisines,omitempty"`
	SavedRecipeIDs      []string `json:"savedRecipeIds,omitempty"`
	CookedRecipeIDs     []string `json:"cookedRecipeIds,omitempty"`
}

// Context is the per-request situational data passed to a handler.
// ConversationID and PreviousMessages are owned by the Orchestrator;
// values supplied by callers for PreviousMessages are discarded.
type Context struct {
	UserID           string         `json:"userId,omitempty"`
	Preferences      *Preferences   `json:"preferences,omitempty"`
	CurrentRecipeID  string         `json:"currentRecipeId,omitempty"`
	CurrentStep      *int           `json:"currentStep,omitempty"`
	ConversationID   string         `json:"conversationId,omitempty"`
	PreviousMessages []Message      `json:"previousMessages,omitempty"`
	Extra            map[string]any `json:"extra,omitempty"`
}

// Step returns the current step ordinal, or 0 when none is set.
func (c *Context) Step() int {
	if c == nil || c.CurrentStep == nil {
		return 0
	}
	return *c.CurrentStep
}

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser  Sender = "user"
	SenderAgent Sender = "agent"
)

// Message is a single immutable turn in a conversation.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Sender    Sender    `json:"sender"`
	AgentName string    `json:"agentName,omitempty"` // Set on agent messages only.
}

// Source tells the caller where an answer came from.
type Source string

const (
	SourceDatabase Source = "database"
	SourceAI       Source = "ai"
	SourceCombined Source = "combined"
)

// SuggestedAction is a follow-up the UI can offer as a button.
type SuggestedAction struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// Response is the normalized result of handling one utterance.
type Response struct {
	Message          string            `json:"message"`
	Success          bool              `json:"success"`
	Data             any               `json:"data,omitempty"`
	SuggestedActions []SuggestedAction `json:"suggestedActions,omitempty"`
	Source           Source            `json:"source,omitempty"`
	Error            string            `json:"error,omitempty"`
}
