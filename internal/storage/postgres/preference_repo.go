package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/john-revops11/ai-kusina-helper-sub000/internal/agent"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/recipe"
)

// Compile-time interface check.
var _ recipe.PreferenceStore = (*PreferenceRepository)(nil)

// PreferenceRepository implements recipe.PreferenceStore with GORM.
type PreferenceRepository struct {
	db *gorm.DB
}

// NewPreferenceRepository creates a PreferenceRepository.
func NewPreferenceRepository(db *gorm.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

func (r *PreferenceRepository) GetPreferences(ctx context.Context, userID string) (*agent.Preferences, error) {
	var model PreferenceModel
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, recipe.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting preferences for %s: %w", userID, err)
	}

	var prefs agent.Preferences
	if err := fromJSONB(model.Preferences, &prefs); err != nil {
		return nil, fmt.Errorf("decoding preferences for %s: %w", userID, err)
	}
	return &prefs, nil
}

func (r *PreferenceRepository) SavePreferences(ctx context.Context, userID string, prefs agent.Preferences) error {
	data, err := toJSONB(prefs)
	if err != nil {
		return fmt.Errorf("encoding preferences: %w", err)
	}
	model := PreferenceModel{UserID: userID, Preferences: data}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"preferences", "updated_at"}),
		}).
		Create(&model).Error; err != nil {
		return fmt.Errorf("saving preferences for %s: %w", userID, err)
	}
	return nil
}
