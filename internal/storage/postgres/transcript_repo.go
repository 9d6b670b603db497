package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/john-revops11/ai-kusina-helper-sub000/internal/archive"
)

// Compile-time interface check.
var _ archive.TranscriptStore = (*TranscriptRepository)(nil)

// TranscriptRepository implements archive.TranscriptStore with GORM.
type TranscriptRepository struct {
	db *gorm.DB
}

// NewTranscriptRepository creates a TranscriptRepository.
func NewTranscriptRepository(db *gorm.DB) *TranscriptRepository {
	return &TranscriptRepository{db: db}
}

// SaveTranscript upserts the snapshot keyed by conversation id.
func (r *TranscriptRepository) SaveTranscript(ctx context.Context, t *archive.Transcript) error {
	model, err := toTranscriptModel(t)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "conversation_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"messages", "message_count", "last_message_at", "archived_at"}),
		}).
		Create(model).Error; err != nil {
		return fmt.Errorf("saving transcript %s: %w", t.ConversationID, err)
	}
	return nil
}

func (r *TranscriptRepository) GetTranscript(ctx context.Context, conversationID string) (*archive.Transcript, error) {
	var model TranscriptModel
	err := r.db.WithContext(ctx).Where("conversation_id = ?", conversationID).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, archive.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting transcript %s: %w", conversationID, err)
	}
	return toTranscriptDomain(&model)
}
