package postgres

import (
	"fmt"

	"github.com/john-revops11/ai-kusina-helper-sub000/internal/agent"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/archive"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/recipe"
)

// --- Recipe ---

func toRecipeModel(r *recipe.Recipe) (*RecipeModel, error) {
	m := &RecipeModel{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Cuisine:     r.Cuisine,
		Difficulty:  r.Difficulty,
		PrepMinutes: r.PrepMinutes,
		CookMinutes: r.CookMinutes,
		Servings:    r.Servings,
		Source:      string(r.Source),
		CreatedAt:   r.CreatedAt,
	}
	var err error
	if m.Tags, err = toJSONB(nonNil(r.Tags)); err != nil {
		return nil, fmt.Errorf("encoding tags: %w", err)
	}
	if m.DietaryTags, err = toJSONB(nonNil(r.DietaryTags)); err != nil {
		return nil, fmt.Errorf("encoding dietary tags: %w", err)
	}
	if m.Ingredients, err = toJSONB(r.Ingredients); err != nil {
		return nil, fmt.Errorf("encoding ingredients: %w", err)
	}
	if m.Steps, err = toJSONB(r.Steps); err != nil {
		return nil, fmt.Errorf("encoding steps: %w", err)
	}
	if m.Source == "" {
		m.Source = string(recipe.OriginUser)
	}
	return m, nil
}

func toRecipeDomain(m *RecipeModel) (*recipe.Recipe, error) {
	r := &recipe.Recipe{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		Cuisine:     m.Cuisine,
		Difficulty:  m.Difficulty,
		PrepMinutes: m.PrepMinutes,
		CookMinutes: m.CookMinutes,
		Servings:    m.Servings,
		Source:      recipe.Origin(m.Source),
		CreatedAt:   m.CreatedAt,
	}
	for _, f := range []struct {
		col JSONB
		dst any
	}{
		{m.Tags, &r.Tags},
		{m.DietaryTags, &r.DietaryTags},
		{m.Ingredients, &r.Ingredients},
		{m.Steps, &r.Steps},
	} {
		if err := fromJSONB(f.col, f.dst); err != nil {
			return nil, fmt.Errorf("decoding recipe %s: %w", m.ID, err)
		}
	}
	return r, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// --- Transcript ---

func toTranscriptModel(t *archive.Transcript) (*TranscriptModel, error) {
	msgs, err := toJSONB(t.Messages)
	if err != nil {
		return nil, fmt.Errorf("encoding messages: %w", err)
	}
	return &TranscriptModel{
		ConversationID: t.ConversationID,
		Messages:       msgs,
		MessageCount:   len(t.Messages),
		StartedAt:      t.StartedAt,
		LastMessageAt:  t.LastMessageAt,
		ArchivedAt:     t.ArchivedAt,
	}, nil
}

func toTranscriptDomain(m *TranscriptModel) (*archive.Transcript, error) {
	t := &archive.Transcript{
		ConversationID: m.ConversationID,
		StartedAt:      m.StartedAt,
		LastMessageAt:  m.LastMessageAt,
		ArchivedAt:     m.ArchivedAt,
	}
	var msgs []agent.Message
	if err := fromJSONB(m.Messages, &msgs); err != nil {
		return nil, fmt.Errorf("decoding transcript %s: %w", m.ConversationID, err)
	}
	t.Messages = msgs
	return t, nil
}
