// Package handlers holds what the four recipe agents share: suggested action
// types, conversation history mapping and LLM answer cleanup.
package handlers

import (
	"strings"

	"github.com/john-revops11/ai-kusina-helper-sub000/internal/agent"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/llm"
)

// Suggested action types understood by the clients.
const (
	ActionSearchRecipes = "search_recipes"
	ActionViewRecipe    = "view_recipe"
	ActionStartTimer    = "start_timer"
	ActionNextStep      = "next_step"
	ActionPreviousStep  = "previous_step"
	ActionSetPreference = "set_preferences"
)

// DefaultHistoryTurns is how many earlier messages are replayed to the LLM.
const DefaultHistoryTurns = 10

// History maps the tail of a conversation to LLM turns, ending with
// utterance. The orchestrator has already appended utterance to the
// conversation, so a trailing copy of it is not repeated.
func History(messages []agent.Message, utterance string, maxTurns int) []llm.Message {
	if n := len(messages); n > 0 {
		last := messages[n-1]
		if last.Sender == agent.SenderUser && last.Content == utterance {
			messages = messages[:n-1]
		}
	}
	if maxTurns > 0 && len(messages) > maxTurns {
		messages = messages[len(messages)-maxTurns:]
	}

	out := make([]llm.Message, 0, len(messages)+1)
	for _, m := range messages {
		role := llm.RoleUser
		if m.Sender == agent.SenderAgent {
			role = llm.RoleAssistant
		}
		// Conversations sent to the model must open with a user turn.
		if len(out) == 0 && role == llm.RoleAssistant {
			continue
		}
		out = append(out, llm.Message{Role: role, Content: m.Content})
	}
	return append(out, llm.Message{Role: llm.RoleUser, Content: utterance})
}

// ExtractJSONObject returns the first balanced JSON object in s, skipping
// markdown fences and prose around it. It returns "" when there is none.
func ExtractJSONObject(s string) string {
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i, c := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if start != -1 {
				inString = true
			}
		case '{':
			if start == -1 {
				start = i
			}
			depth++
		case '}':
			if start == -1 {
				continue
			}
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// Restrictions returns the caller's dietary restrictions, if any.
func Restrictions(actx *agent.Context) []string {
	if actx == nil || actx.Preferences == nil {
		return nil
	}
	return actx.Preferences.DietaryRestrictions
}

// Failure builds a reported failure the user can read.
func Failure(message string, actions ...agent.SuggestedAction) *agent.Response {
	return &agent.Response{
		Message:          message,
		Success:          false,
		SuggestedActions: actions,
	}
}

// Lower normalizes an utterance for keyword matching.
func Lower(utterance string) string {
	return strings.ToLower(strings.TrimSpace(utterance))
}
