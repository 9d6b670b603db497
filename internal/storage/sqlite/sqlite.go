// Package sqlite implements the unified Store interface using SQLite via GORM.
// Uses modernc.org/sqlite (pure Go, no CGO) through the glebarez/sqlite GORM driver.
//
// Key differences from the PostgreSQL backend:
//   - WAL mode enabled by default for concurrent reads
//   - JSONB columns hold JSON text
//   - A single open connection serializes writers
package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/john-revops11/ai-kusina-helper-sub000/internal/archive"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/recipe"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/storage"
	pgstore "github.com/john-revops11/ai-kusina-helper-sub000/internal/storage/postgres"
)

// Config holds SQLite-specific configuration.
type Config struct {
	Path        string // Database file path.
	JournalMode string // WAL mode by default.
}

// Store implements storage.Store backed by SQLite.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
	path   string

	recipes     *pgstore.RecipeRepository
	preferences *pgstore.PreferenceRepository
	transcripts *pgstore.TranscriptRepository
}

// Open creates a new SQLite-backed Store.
func Open(cfg Config, slogger *slog.Logger) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	// Ensure parent directory exists.
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
	}

	journalMode := cfg.JournalMode
	if journalMode == "" {
		journalMode = "wal"
	}

	// Build DSN with pragmas.
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(%s)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", cfg.Path, journalMode)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  pgstore.NewGormLogger(slogger),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	s := &Store{
		db:          db,
		logger:      slogger,
		path:        cfg.Path,
		recipes:     pgstore.NewRecipeRepository(db),
		preferences: pgstore.NewPreferenceRepository(db),
		transcripts: pgstore.NewTranscriptRepository(db),
	}

	slogger.Info("sqlite store opened", slog.String("path", cfg.Path), slog.String("journal_mode", journalMode))
	return s, nil
}

// Migrate runs GORM AutoMigrate with the same models as the PostgreSQL backend.
func (s *Store) Migrate(ctx context.Context) error {
	if err := pgstore.AutoMigrate(ctx, s.db); err != nil {
		return fmt.Errorf("sqlite auto-migrate: %w", err)
	}
	s.logger.Info("sqlite migrations complete")
	return nil
}

func (s *Store) Recipes() recipe.Store                { return s.recipes }
func (s *Store) Preferences() recipe.PreferenceStore  { return s.preferences }
func (s *Store) Transcripts() archive.TranscriptStore { return s.transcripts }

// Ping checks the database file is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return pgstore.Ping(ctx, s.db)
}

// Close closes the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Driver returns "sqlite".
func (s *Store) Driver() string { return storage.DriverSQLite }

// compile-time interface check
var _ storage.Store = (*Store)(nil)
