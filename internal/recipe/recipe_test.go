package recipe

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func adobo() Recipe {
	return Recipe{
		ID:          "chicken-adobo",
		Title:       "Chicken Adobo",
		DietaryTags: []string{"dairy-free", "nut-free"},
		Ingredients: []Ingredient{{Name: "chicken thighs"}, {Name: "soy sauce"}, {Name: "garlic"}},
		Steps:       []Step{{Number: 1, Instruction: "Marinate."}},
	}
}

func TestMatches(t *testing.T) {
	vegan := Recipe{DietaryTags: []string{"vegan"}, Ingredients: []Ingredient{{Name: "tofu"}}}

	tests := []struct {
		name         string
		recipe       Recipe
		restrictions []string
		want         bool
	}{
		{"no restrictions", adobo(), nil, true},
		{"tag present", adobo(), []string{"dairy-free"}, true},
		{"tag missing", adobo(), []string{"vegetarian"}, false},
		{"case and space insensitive", adobo(), []string{"  Nut-Free "}, true},
		{"allergy excludes ingredient", adobo(), []string{"no-garlic"}, false},
		{"allergy partial ingredient name", adobo(), []string{"no-soy"}, false},
		{"allergy not present", adobo(), []string{"no-shrimp"}, true},
		{"unknown restriction ignored", adobo(), []string{"low-sodium"}, true},
		{"vegan implies vegetarian", vegan, []string{"vegetarian", "dairy-free"}, true},
		{"all must hold", adobo(), []string{"dairy-free", "gluten-free"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.recipe.Matches(tt.restrictions); got != tt.want {
				t.Errorf("Matches(%v) = %v, want %v", tt.restrictions, got, tt.want)
			}
		})
	}
}

func TestFilter(t *testing.T) {
	veg := Recipe{ID: "pancit", DietaryTags: []string{"vegan"}}
	got := Filter([]Recipe{adobo(), veg}, []string{"vegetarian"})
	if len(got) != 1 || got[0].ID != "pancit" {
		t.Fatalf("Filter = %+v", got)
	}
	if all := Filter([]Recipe{adobo(), veg}, nil); len(all) != 2 {
		t.Errorf("nil restrictions should keep everything, got %d", len(all))
	}
}

func TestValidate(t *testing.T) {
	r := adobo()
	r.Steps = []Step{{Instruction: "a"}, {Instruction: "b"}}
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if r.Steps[1].Number != 2 {
		t.Errorf("missing step numbers should be filled, got %d", r.Steps[1].Number)
	}

	for name, mutate := range map[string]func(*Recipe){
		"no title":       func(r *Recipe) { r.Title = " " },
		"no ingredients": func(r *Recipe) { r.Ingredients = nil },
		"no steps":       func(r *Recipe) { r.Steps = nil },
		"empty step":     func(r *Recipe) { r.Steps = []Step{{Number: 1}} },
	} {
		bad := adobo()
		mutate(&bad)
		if err := bad.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestDefaultCatalog(t *testing.T) {
	recipes, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("DefaultCatalog: %v", err)
	}
	if len(recipes) < 5 {
		t.Fatalf("catalog has %d recipes", len(recipes))
	}
	for _, r := range recipes {
		if r.ID == "" || r.Source != OriginSeed {
			t.Errorf("recipe %q: id=%q source=%q", r.Title, r.ID, r.Source)
		}
		for i, s := range r.Steps {
			if s.Number != i+1 {
				t.Errorf("recipe %q step %d numbered %d", r.ID, i, s.Number)
			}
		}
	}
}

func TestLoadCatalog_Errors(t *testing.T) {
	tests := map[string]string{
		"unknown field": "recipes:\n  - title: X\n    flavour: 1\n",
		"invalid":       "recipes:\n  - title: X\n",
		"duplicate id": `recipes:
  - {title: Adobo, ingredients: [{name: a}], steps: [{instruction: s}]}
  - {title: Adobo, ingredients: [{name: a}], steps: [{instruction: s}]}
`,
	}
	for name, doc := range tests {
		if _, err := LoadCatalog(strings.NewReader(doc)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestSlug(t *testing.T) {
	for in, want := range map[string]string{
		"Chicken Adobo":       "chicken-adobo",
		"  Kare-Kare!! ":      "kare-kare",
		"Pancit (Bihon) 2.0 ": "pancit-bihon-2-0",
	} {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}

// countingStore is a minimal Store for Seed.
type countingStore struct {
	existing int
	saved    []string
}

func (s *countingStore) Get(ctx context.Context, id string) (*Recipe, error) { return nil, ErrNotFound }
func (s *countingStore) Search(ctx context.Context, q Query) ([]Recipe, error) {
	return nil, nil
}
func (s *countingStore) Save(ctx context.Context, r *Recipe) error {
	s.saved = append(s.saved, r.ID)
	return nil
}
func (s *countingStore) Count(ctx context.Context) (int, error) { return s.existing, nil }

func TestSeed(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	empty := &countingStore{}
	if err := Seed(context.Background(), empty, logger); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if len(empty.saved) == 0 {
		t.Error("empty store should be seeded")
	}

	full := &countingStore{existing: 3}
	if err := Seed(context.Background(), full, logger); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if len(full.saved) != 0 {
		t.Error("non-empty store must not be reseeded")
	}
}
