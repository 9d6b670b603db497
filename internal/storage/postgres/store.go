package postgres

import (
	"context"

	"github.com/john-revops11/ai-kusina-helper-sub000/internal/archive"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/recipe"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/storage"
)

// Store implements storage.Store on top of a PostgreSQL DB.
type Store struct {
	db          *DB
	recipes     *RecipeRepository
	preferences *PreferenceRepository
	transcripts *TranscriptRepository
}

// NewStore creates a Store from an open DB.
func NewStore(db *DB) *Store {
	g := db.GormDB()
	return &Store{
		db:          db,
		recipes:     NewRecipeRepository(g),
		preferences: NewPreferenceRepository(g),
		transcripts: NewTranscriptRepository(g),
	}
}

func (s *Store) Recipes() recipe.Store                { return s.recipes }
func (s *Store) Preferences() recipe.PreferenceStore  { return s.preferences }
func (s *Store) Transcripts() archive.TranscriptStore { return s.transcripts }

func (s *Store) Migrate(ctx context.Context) error { return AutoMigrate(ctx, s.db.GormDB()) }
func (s *Store) Ping(ctx context.Context) error    { return s.db.Ping(ctx) }
func (s *Store) Close() error                      { return s.db.Close() }
func (s *Store) Driver() string                    { return storage.DriverPostgres }

// compile-time interface check
var _ storage.Store = (*Store)(nil)
