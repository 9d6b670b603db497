// Package chatsupport implements the general cooking Q&A agent.
package chatsupport

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/john-revops11/ai-kusina-helper-sub000/internal/agent"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/handlers"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/llm"
)

// Name is the registry name of this agent.
const Name = agent.ChatSupportName

const maxReplyTokens = 800

const systemPrompt = `You are Kusina, a friendly home-cooking assistant with a soft spot for Filipino food.
Answer cooking questions clearly and briefly: techniques, substitutions, food safety, pantry tips.

Guidelines:
- Keep answers under 150 words unless the user asks for detail
- Prefer ingredients a home cook can find in a regular supermarket
- Never give medical or allergy advice beyond suggesting the user check labels
- If the user wants a full recipe, suggest they ask "recipe for <dish>"`

// Agent answers free-form cooking questions with an LLM.
type Agent struct {
	provider llm.Provider
	logger   *slog.Logger
}

// New creates the chat support agent.
func New(provider llm.Provider, logger *slog.Logger) *Agent {
	return &Agent{provider: provider, logger: logger}
}

func (a *Agent) Name() string { return Name }

func (a *Agent) Handle(ctx context.Context, utterance string, actx *agent.Context) (*agent.Response, error) {
	var history []agent.Message
	var prefs *agent.Preferences
	if actx != nil {
		history = actx.PreviousMessages
		prefs = actx.Preferences
	}

	resp, err := a.provider.SendMessage(ctx, &llm.Request{
		SystemPrompt: buildSystemPrompt(prefs),
		Messages:     handlers.History(history, utterance, handlers.DefaultHistoryTurns),
		MaxTokens:    maxReplyTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("chat support: %w", err)
	}

	answer := strings.TrimSpace(resp.Content)
	if answer == "" {
		return nil, fmt.Errorf("chat support: %w", llm.ErrEmptyResponse)
	}

	a.logger.DebugContext(ctx, "chat support answered",
		slog.String("provider", a.provider.Name()),
		slog.Int("input_tokens", resp.Usage.InputTokens),
		slog.Int("output_tokens", resp.Usage.OutputTokens),
	)

	return &agent.Response{
		Message: answer,
		Success: true,
		Source:  agent.SourceAI,
		SuggestedActions: []agent.SuggestedAction{{
			Type:  handlers.ActionSearchRecipes,
			Label: "Find a recipe",
			Value: utterance,
		}},
	}, nil
}

// buildSystemPrompt tailors the prompt to the user's profile.
func buildSystemPrompt(prefs *agent.Preferences) string {
	if prefs == nil {
		return systemPrompt
	}
	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\nAbout this user:")
	if prefs.SkillLevel != "" {
		fmt.Fprintf(&b, "\n- Skill level: %s", prefs.SkillLevel)
	}
	if len(prefs.FavoriteCuisines) > 0 {
		fmt.Fprintf(&b, "\n- Favorite cuisines: %s", strings.Join(prefs.FavoriteCuisines, ", "))
	}
	if len(prefs.DietaryRestrictions) > 0 {
		fmt.Fprintf(&b, "\n- Dietary restrictions: %s", strings.Join(prefs.DietaryRestrictions, ", "))
	}
	return b.String()
}

var _ agent.Agent = (*Agent)(nil)
