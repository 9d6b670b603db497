package postgres

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/john-revops11/ai-kusina-helper-sub000/internal/recipe"
)

// Compile-time interface check.
var _ recipe.Store = (*RecipeRepository)(nil)

// RecipeRepository implements recipe.Store with GORM.
type RecipeRepository struct {
	db *gorm.DB
}

// NewRecipeRepository creates a RecipeRepository.
func NewRecipeRepository(db *gorm.DB) *RecipeRepository {
	return &RecipeRepository{db: db}
}

func (r *RecipeRepository) Get(ctx context.Context, id string) (*recipe.Recipe, error) {
	var model RecipeModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, recipe.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting recipe %s: %w", id, err)
	}
	return toRecipeDomain(&model)
}

// Search matches Query.Text case-insensitively against title, description,
// cuisine and the ingredient list. ExcludeTags are applied after loading.
func (r *RecipeRepository) Search(ctx context.Context, q recipe.Query) ([]recipe.Recipe, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = recipe.DefaultSearchLimit
	}

	tx := r.db.WithContext(ctx).Model(&RecipeModel{})
	if text := strings.ToLower(strings.TrimSpace(q.Text)); text != "" {
		like := "%" + escapeLike(text) + "%"
		tx = tx.Where(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\' `+
			`OR LOWER(cuisine) LIKE ? ESCAPE '\' OR LOWER(CAST(ingredients AS TEXT)) LIKE ? ESCAPE '\')`,
			like, like, like, like)
	}
	if q.Cuisine != "" {
		tx = tx.Where("LOWER(cuisine) = ?", strings.ToLower(q.Cuisine))
	}
	if len(q.ExcludeTags) == 0 {
		tx = tx.Limit(limit)
	}

	var models []RecipeModel
	if err := tx.Order("title").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("searching recipes: %w", err)
	}

	out := make([]recipe.Recipe, 0, len(models))
	for i := range models {
		rec, err := toRecipeDomain(&models[i])
		if err != nil {
			return nil, err
		}
		if hasAnyTag(rec, q.ExcludeTags) {
			continue
		}
		out = append(out, *rec)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// Save inserts the recipe or replaces the stored copy with the same id.
func (r *RecipeRepository) Save(ctx context.Context, rec *recipe.Recipe) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	model, err := toRecipeModel(rec)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "description", "cuisine", "difficulty", "prep_minutes", "cook_minutes", "servings", "tags", "dietary_tags", "ingredients", "steps", "source", "updated_at"}),
		}).
		Create(model).Error; err != nil {
		return fmt.Errorf("saving recipe %s: %w", rec.ID, err)
	}
	return nil
}

func (r *RecipeRepository) Count(ctx context.Context) (int, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&RecipeModel{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting recipes: %w", err)
	}
	return int(n), nil
}

func hasAnyTag(r *recipe.Recipe, tags []string) bool {
	for _, t := range tags {
		t = strings.ToLower(t)
		if slices.Contains(r.Tags, t) || slices.Contains(r.DietaryTags, t) {
			return true
		}
	}
	return false
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
