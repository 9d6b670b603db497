package recipe

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// catalogFile is the on-disk shape of a recipe catalog.
type catalogFile struct {
	Recipes []Recipe `yaml:"recipes"`
}

// LoadCatalog parses a YAML catalog. Recipes without an id get one derived
// from the title; recipes without a source are marked as seed data.
func LoadCatalog(r io.Reader) ([]Recipe, error) {
	var file catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("parsing recipe catalog: %w", err)
	}

	seen := make(map[string]bool, len(file.Recipes))
	now := time.Now().UTC()
	for i := range file.Recipes {
		rec := &file.Recipes[i]
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("catalog entry %d (%q): %w", i, rec.Title, err)
		}
		if rec.ID == "" {
			rec.ID = Slug(rec.Title)
		}
		if seen[rec.ID] {
			return nil, fmt.Errorf("catalog entry %d: duplicate id %q", i, rec.ID)
		}
		seen[rec.ID] = true
		if rec.Source == "" {
			rec.Source = OriginSeed
		}
		rec.CreatedAt = now
	}
	return file.Recipes, nil
}

// DefaultCatalog returns the built-in recipe catalog.
func DefaultCatalog() ([]Recipe, error) {
	return LoadCatalog(bytes.NewReader(defaultCatalog))
}

// Import saves every recipe into store and returns how many were written.
func Import(ctx context.Context, store Store, recipes []Recipe) (int, error) {
	for i := range recipes {
		if err := store.Save(ctx, &recipes[i]); err != nil {
			return i, fmt.Errorf("saving recipe %q: %w", recipes[i].ID, err)
		}
	}
	return len(recipes), nil
}

// Seed loads the built-in catalog into store when it is empty.
func Seed(ctx context.Context, store Store, logger *slog.Logger) error {
	n, err := store.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting recipes: %w", err)
	}
	if n > 0 {
		logger.DebugContext(ctx, "recipe catalog already seeded", slog.Int("recipes", n))
		return nil
	}

	recipes, err := DefaultCatalog()
	if err != nil {
		return err
	}
	written, err := Import(ctx, store, recipes)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "recipe catalog seeded", slog.Int("recipes", written))
	return nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slug turns a title into a url-safe id: "Chicken Adobo" → "chicken-adobo".
func Slug(title string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(title), "-"), "-")
}
