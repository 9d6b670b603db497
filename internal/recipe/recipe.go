// Package recipe holds the recipe domain: the catalog types, the storage
// contracts the agents depend on and the dietary filter.
package recipe

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/john-revops11/ai-kusina-helper-sub000/internal/agent"
)

// ErrNotFound is returned when a recipe or preference record does not exist.
var ErrNotFound = errors.New("not found")

// Origin records how a recipe entered the catalog.
type Origin string

const (
	OriginSeed Origin = "seed"
	OriginUser Origin = "user"
	OriginAI   Origin = "ai"
)

// Recipe is a complete, cookable recipe.
type Recipe struct {
	ID          string       `json:"id" yaml:"id"`
	Title       string       `json:"title" yaml:"title"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Cuisine     string       `json:"cuisine,omitempty" yaml:"cuisine,omitempty"`
	Difficulty  string       `json:"difficulty,omitempty" yaml:"difficulty,omitempty"` // beginner|intermediate|advanced
	PrepMinutes int          `json:"prepMinutes,omitempty" yaml:"prep_minutes,omitempty"`
	CookMinutes int          `json:"cookMinutes,omitempty" yaml:"cook_minutes,omitempty"`
	Servings    int          `json:"servings,omitempty" yaml:"servings,omitempty"`
	Tags        []string     `json:"tags,omitempty" yaml:"tags,omitempty"`
	DietaryTags []string     `json:"dietaryTags,omitempty" yaml:"dietary_tags,omitempty"`
	Ingredients []Ingredient `json:"ingredients" yaml:"ingredients"`
	Steps       []Step       `json:"steps" yaml:"steps"`
	Source      Origin       `json:"source,omitempty" yaml:"source,omitempty"`
	CreatedAt   time.Time    `json:"createdAt,omitempty" yaml:"-"`
}

// Ingredient is one line of a recipe's ingredient list.
type Ingredient struct {
	Name     string  `json:"name" yaml:"name"`
	Quantity float64 `json:"quantity,omitempty" yaml:"quantity,omitempty"`
	Unit     string  `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// Step is one instruction. Number is 1-based.
type Step struct {
	Number       int    `json:"number" yaml:"number"`
	Instruction  string `json:"instruction" yaml:"instruction"`
	TimerMinutes int    `json:"timerMinutes,omitempty" yaml:"timer_minutes,omitempty"`
}

// TotalMinutes is prep plus cook time.
func (r *Recipe) TotalMinutes() int {
	return r.PrepMinutes + r.CookMinutes
}

// Validate checks the fields every stored recipe must carry.
func (r *Recipe) Validate() error {
	switch {
	case strings.TrimSpace(r.Title) == "":
		return errors.New("recipe title is required")
	case len(r.Ingredients) == 0:
		return errors.New("recipe needs at least one ingredient")
	case len(r.Steps) == 0:
		return errors.New("recipe needs at least one step")
	}
	for i, s := range r.Steps {
		if strings.TrimSpace(s.Instruction) == "" {
			return errors.New("recipe step has no instruction")
		}
		if s.Number == 0 {
			r.Steps[i].Number = i + 1
		}
	}
	return nil
}

// Query describes a catalog search.
type Query struct {
	Text        string
	Cuisine     string
	ExcludeTags []string
	Limit       int // 0 = DefaultSearchLimit
}

// DefaultSearchLimit bounds search results when Query.Limit is unset.
const DefaultSearchLimit = 5

// Store is the recipe catalog.
type Store interface {
	Get(ctx context.Context, id string) (*Recipe, error)
	Search(ctx context.Context, q Query) ([]Recipe, error)
	Save(ctx context.Context, r *Recipe) error
	Count(ctx context.Context) (int, error)
}

// PreferenceStore persists per-user cooking preferences.
type PreferenceStore interface {
	// GetPreferences returns ErrNotFound for a user with no saved profile.
	GetPreferences(ctx context.Context, userID string) (*agent.Preferences, error)
	SavePreferences(ctx context.Context, userID string, prefs agent.Preferences) error
}

// Known dietary restrictions a recipe can satisfy via its DietaryTags.
var DietaryRestrictions = []string{
	"vegetarian", "vegan", "gluten-free", "dairy-free", "nut-free", "pescatarian", "halal",
}

// AllergyPrefix marks a restriction that excludes an ingredient, e.g. "no-shrimp".
const AllergyPrefix = "no-"

// Matches reports whether the recipe is acceptable under every restriction.
// Dietary restrictions must appear in DietaryTags; "no-<x>" restrictions
// reject recipes with an ingredient mentioning x. Unknown restrictions are
// ignored.
func (r *Recipe) Matches(restrictions []string) bool {
	for _, raw := range restrictions {
		restriction := strings.ToLower(strings.TrimSpace(raw))
		if restriction == "" {
			continue
		}
		if ingredient, ok := strings.CutPrefix(restriction, AllergyPrefix); ok {
			if r.HasIngredient(ingredient) {
				return false
			}
			continue
		}
		if isKnownRestriction(restriction) && !r.hasDietaryTag(restriction) {
			return false
		}
	}
	return true
}

// HasIngredient reports whether any ingredient name contains name.
func (r *Recipe) HasIngredient(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return false
	}
	for _, ing := range r.Ingredients {
		if strings.Contains(strings.ToLower(ing.Name), name) {
			return true
		}
	}
	return false
}

func (r *Recipe) hasDietaryTag(tag string) bool {
	for _, t := range r.DietaryTags {
		if strings.EqualFold(t, tag) {
			return true
		}
		// A vegan dish is also vegetarian and dairy-free.
		if strings.EqualFold(t, "vegan") && (tag == "vegetarian" || tag == "dairy-free") {
			return true
		}
	}
	return false
}

func isKnownRestriction(s string) bool {
	for _, k := range DietaryRestrictions {
		if k == s {
			return true
		}
	}
	return false
}

// Filter returns the recipes that satisfy every restriction.
func Filter(recipes []Recipe, restrictions []string) []Recipe {
	if len(restrictions) == 0 {
		return recipes
	}
	out := recipes[:0:0]
	for _, r := range recipes {
		if r.Matches(restrictions) {
			out = append(out, r)
		}
	}
	return out
}
