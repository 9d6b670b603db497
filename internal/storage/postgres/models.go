package postgres

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// JSONB is a json.RawMessage that implements the driver.Valuer and sql.Scanner interfaces
// for GORM JSONB columns. SQLite stores the same value as text.
type JSONB json.RawMessage

// Value implements driver.Valuer.
func (j JSONB) Value() (driver.Value, error) {
	if len(j) == 0 {
		return "null", nil
	}
	return string(j), nil
}

// Scan implements sql.Scanner.
func (j *JSONB) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*j = nil
	case []byte:
		*j = append((*j)[:0], v...)
	case string:
		*j = JSONB(v)
	default:
		return fmt.Errorf("scanning JSONB: unsupported type %T", src)
	}
	return nil
}

func toJSONB(v any) (JSONB, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return JSONB(b), nil
}

func fromJSONB(j JSONB, v any) error {
	if len(j) == 0 {
		return nil
	}
	return json.Unmarshal(j, v)
}

// RecipeModel maps to the "recipes" table.
type RecipeModel struct {
	ID          string `gorm:"primaryKey"`
	Title       string `gorm:"not null;index"`
	Description string
	Cuisine     string `gorm:"index"`
	Difficulty  string
	PrepMinutes int
	CookMinutes int
	Servings    int
	Tags        JSONB  `gorm:"type:jsonb;not null;default:'[]'"`
	DietaryTags JSONB  `gorm:"type:jsonb;not null;default:'[]'"`
	Ingredients JSONB  `gorm:"type:jsonb;not null;default:'[]'"`
	Steps       JSONB  `gorm:"type:jsonb;not null;default:'[]'"`
	Source      string `gorm:"not null;default:'seed'"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (RecipeModel) TableName() string { return "recipes" }

// PreferenceModel maps to the "user_preferences" table.
type PreferenceModel struct {
	UserID      string `gorm:"primaryKey"`
	Preferences JSONB  `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (PreferenceModel) TableName() string { return "user_preferences" }

// TranscriptModel maps to the "conversation_transcripts" table.
// One row per conversation, replaced on every archive run.
type TranscriptModel struct {
	ConversationID string `gorm:"primaryKey"`
	Messages       JSONB  `gorm:"type:jsonb;not null;default:'[]'"`
	MessageCount   int    `gorm:"not null;default:0"`
	StartedAt      time.Time
	LastMessageAt  time.Time `gorm:"index"`
	ArchivedAt     time.Time
}

func (TranscriptModel) TableName() string { return "conversation_transcripts" }
