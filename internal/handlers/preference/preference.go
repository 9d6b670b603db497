// Package preference implements the agent that learns and recalls a user's
// cooking profile.
package preference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"github.com/john-revops11/ai-kusina-helper-sub000/internal/agent"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/handlers"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/recipe"
)

// Name is the registry name of this agent.
const Name = agent.UserPreferenceName

// Cuisines the agent recognizes in "I like ..." statements.
var Cuisines = []string{
	"filipino", "thai", "vietnamese", "japanese", "korean", "chinese", "indian",
	"italian", "mexican", "french", "spanish", "greek", "mediterranean", "american",
}

var (
	allergyPattern   = regexp.MustCompile(`allergic to ([a-z ,\-]+?)(?:\s+(?:and|but)\s+(?:i|i'm|my|we)\b|[.!?;]|$)`)
	allergySeparator = regexp.MustCompile(`\s*(?:,|\band\b|\bor\b)\s*`)
	likeWords        = []string{"like", "prefer", "favorite", "favourite", "love"}
)

// Checked in order; the first phrase found sets the skill level.
var skillWords = []struct{ phrase, level string }{
	{"beginner", agent.SkillBeginner},
	{"new to cook", agent.SkillBeginner},
	{"intermediate", agent.SkillIntermediate},
	{"advanced", agent.SkillAdvanced},
	{"expert", agent.SkillAdvanced},
}

// Agent reads preference statements and persists them per user.
type Agent struct {
	store  recipe.PreferenceStore
	logger *slog.Logger
}

// New creates the preference agent.
func New(store recipe.PreferenceStore, logger *slog.Logger) *Agent {
	return &Agent{store: store, logger: logger}
}

func (a *Agent) Name() string { return Name }

func (a *Agent) Handle(ctx context.Context, utterance string, actx *agent.Context) (*agent.Response, error) {
	if actx == nil || actx.UserID == "" {
		return handlers.Failure("Please sign in so I can remember your preferences."), nil
	}

	current, err := a.load(ctx, actx)
	if err != nil {
		return nil, err
	}

	update := Parse(utterance)
	if update.empty() {
		return &agent.Response{
			Message: summarize(current),
			Success: true,
			Data:    current,
			Source:  agent.SourceDatabase,
		}, nil
	}

	merged := merge(current, update)
	if err := a.store.SavePreferences(ctx, actx.UserID, merged); err != nil {
		return nil, fmt.Errorf("saving preferences for %s: %w", actx.UserID, err)
	}

	a.logger.InfoContext(ctx, "preferences updated",
		slog.String("user_id", actx.UserID),
		slog.Int("restrictions", len(merged.DietaryRestrictions)),
		slog.Int("cuisines", len(merged.FavoriteCuisines)),
	)

	return &agent.Response{
		Message: "Got it! I'll remember that. " + describe(update),
		Success: true,
		Data:    merged,
		Source:  agent.SourceDatabase,
		SuggestedActions: []agent.SuggestedAction{
			{Type: handlers.ActionSearchRecipes, Label: "Find recipes for me"},
		},
	}, nil
}

// load returns the stored profile, falling back to whatever the caller sent.
func (a *Agent) load(ctx context.Context, actx *agent.Context) (agent.Preferences, error) {
	stored, err := a.store.GetPreferences(ctx, actx.UserID)
	switch {
	case err == nil:
		return *stored, nil
	case errors.Is(err, recipe.ErrNotFound):
		if actx.Preferences != nil {
			return *actx.Preferences, nil
		}
		return agent.Preferences{}, nil
	default:
		return agent.Preferences{}, fmt.Errorf("loading preferences for %s: %w", actx.UserID, err)
	}
}

// Update is what one utterance says about the user.
type Update struct {
	Restrictions []string
	SkillLevel   string
	Cuisines     []string
}

func (u Update) empty() bool {
	return len(u.Restrictions) == 0 && u.SkillLevel == "" && len(u.Cuisines) == 0
}

// Parse extracts dietary restrictions, allergies ("allergic to shrimp" becomes
// "no-shrimp"), a skill level and liked cuisines from an utterance.
func Parse(utterance string) Update {
	lower := strings.ReplaceAll(handlers.Lower(utterance), " free", "-free")
	var u Update

	for _, r := range recipe.DietaryRestrictions {
		if strings.Contains(lower, r) {
			u.Restrictions = append(u.Restrictions, r)
		}
	}

	if m := allergyPattern.FindStringSubmatch(lower); m != nil {
		for _, item := range allergySeparator.Split(m[1], -1) {
			item = strings.TrimSpace(item)
			for _, filler := range []string{"all ", "any "} {
				item = strings.TrimPrefix(item, filler)
			}
			if item != "" {
				u.Restrictions = append(u.Restrictions, recipe.AllergyPrefix+item)
			}
		}
	}

	for _, sw := range skillWords {
		if strings.Contains(lower, sw.phrase) {
			u.SkillLevel = sw.level
			break
		}
	}

	if containsAny(lower, likeWords) {
		for _, c := range Cuisines {
			if strings.Contains(lower, c) {
				u.Cuisines = append(u.Cuisines, c)
			}
		}
	}
	return u
}

func merge(p agent.Preferences, u Update) agent.Preferences {
	p.DietaryRestrictions = union(p.DietaryRestrictions, u.Restrictions)
	p.FavoriteCuisines = union(p.FavoriteCuisines, u.Cuisines)
	if u.SkillLevel != "" {
		p.SkillLevel = u.SkillLevel
	}
	return p
}

func union(have, add []string) []string {
	out := slices.Clone(have)
	for _, v := range add {
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

func describe(u Update) string {
	var parts []string
	if len(u.Restrictions) > 0 {
		parts = append(parts, "Dietary: "+strings.Join(u.Restrictions, ", ")+".")
	}
	if u.SkillLevel != "" {
		parts = append(parts, "Skill level: "+u.SkillLevel+".")
	}
	if len(u.Cuisines) > 0 {
		parts = append(parts, "Favorite cuisines: "+strings.Join(u.Cuisines, ", ")+".")
	}
	return strings.Join(parts, " ")
}

func summarize(p agent.Preferences) string {
	if len(p.DietaryRestrictions) == 0 && p.SkillLevel == "" && len(p.FavoriteCuisines) == 0 {
		return "I don't have any preferences saved for you yet. Tell me about dietary needs, allergies, your skill level or cuisines you like."
	}
	return "Here's what I know about you. " + describe(Update{
		Restrictions: p.DietaryRestrictions,
		SkillLevel:   p.SkillLevel,
		Cuisines:     p.FavoriteCuisines,
	})
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

var _ agent.Agent = (*Agent)(nil)
