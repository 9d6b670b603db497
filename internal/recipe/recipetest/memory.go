// Package recipetest provides in-memory recipe and preference stores for
// tests of packages that depend on the recipe contracts.
package recipetest

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/john-revops11/ai-kusina-helper-sub000/internal/agent"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/recipe"
)

// Store is a map-backed recipe.Store. Search matches Query.Text against
// title, description, cuisine and ingredient names, case-insensitively.
type Store struct {
	mu      sync.RWMutex
	recipes map[string]recipe.Recipe
	saves   int
}

// NewStore returns a store holding the given recipes.
func NewStore(recipes ...recipe.Recipe) *Store {
	s := &Store{recipes: make(map[string]recipe.Recipe)}
	for _, r := range recipes {
		s.recipes[r.ID] = r
	}
	return s
}

func (s *Store) Get(ctx context.Context, id string) (*recipe.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.recipes[id]
	if !ok {
		return nil, recipe.ErrNotFound
	}
	return &r, nil
}

func (s *Store) Search(ctx context.Context, q recipe.Query) ([]recipe.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	text := strings.ToLower(strings.TrimSpace(q.Text))
	var out []recipe.Recipe
	for _, r := range s.recipes {
		if q.Cuisine != "" && !strings.EqualFold(r.Cuisine, q.Cuisine) {
			continue
		}
		if text != "" && !matchesText(r, text) {
			continue
		}
		if hasAnyTag(r, q.ExcludeTags) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })

	limit := q.Limit
	if limit <= 0 {
		limit = recipe.DefaultSearchLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func matchesText(r recipe.Recipe, text string) bool {
	fields := []string{r.Title, r.Description, r.Cuisine}
	for _, ing := range r.Ingredients {
		fields = append(fields, ing.Name)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), text) {
			return true
		}
	}
	return false
}

func hasAnyTag(r recipe.Recipe, tags []string) bool {
	for _, t := range tags {
		if slices.Contains(r.Tags, t) || slices.Contains(r.DietaryTags, t) {
			return true
		}
	}
	return false
}

func (s *Store) Save(ctx context.Context, r *recipe.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recipes[r.ID] = *r
	s.saves++
	return nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.recipes), nil
}

// Saves returns how many times Save was called.
func (s *Store) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

// PreferenceStore is a map-backed recipe.PreferenceStore.
type PreferenceStore struct {
	mu    sync.RWMutex
	prefs map[string]agent.Preferences
}

// NewPreferenceStore returns an empty preference store.
func NewPreferenceStore() *PreferenceStore {
	return &PreferenceStore{prefs: make(map[string]agent.Preferences)}
}

func (p *PreferenceStore) GetPreferences(ctx context.Context, userID string) (*agent.Preferences, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	prefs, ok := p.prefs[userID]
	if !ok {
		return nil, recipe.ErrNotFound
	}
	return &prefs, nil
}

func (p *PreferenceStore) SavePreferences(ctx context.Context, userID string, prefs agent.Preferences) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prefs[userID] = prefs
	return nil
}

var (
	_ recipe.Store           = (*Store)(nil)
	_ recipe.PreferenceStore = (*PreferenceStore)(nil)
)
