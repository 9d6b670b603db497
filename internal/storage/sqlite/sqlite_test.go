package sqlite

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/john-revops11/ai-kusina-helper-sub000/internal/agent"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/archive"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/recipe"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := Open(Config{Path: filepath.Join(t.TempDir(), "kusina.db")}, logger)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return s
}

func TestOpen_RequiresPath(t *testing.T) {
	if _, err := Open(Config{}, slog.New(slog.NewTextHandler(io.Discard, nil))); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestStore_Lifecycle(t *testing.T) {
	s := openTestStore(t)
	if s.Driver() != "sqlite" {
		t.Errorf("driver = %q", s.Driver())
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
	// Migrate is idempotent.
	if err := s.Migrate(context.Background()); err != nil {
		t.Errorf("second Migrate: %v", err)
	}
}

func TestRecipes_SaveGetSearch(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t).Recipes()

	if err := recipe.Seed(ctx, store, slog.New(slog.NewTextHandler(io.Discard, nil))); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	n, err := store.Count(ctx)
	if err != nil || n == 0 {
		t.Fatalf("Count = %d, %v", n, err)
	}

	got, err := store.Get(ctx, "chicken-adobo")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "Chicken Adobo" || len(got.Steps) == 0 || got.Steps[0].Number != 1 || got.Source != recipe.OriginSeed {
		t.Errorf("recipe = %+v", got)
	}

	if _, err := store.Get(ctx, "nope"); !errors.Is(err, recipe.ErrNotFound) {
		t.Errorf("missing recipe err = %v, want ErrNotFound", err)
	}

	// Title match, case-insensitive.
	hits, err := store.Search(ctx, recipe.Query{Text: "ADOBO"})
	if err != nil || len(hits) == 0 || hits[0].ID != "chicken-adobo" {
		t.Errorf("title search = %+v, %v", hits, err)
	}

	// Ingredient match.
	hits, err = store.Search(ctx, recipe.Query{Text: "coconut milk"})
	if err != nil || len(hits) == 0 {
		t.Errorf("ingredient search = %+v, %v", hits, err)
	}

	// LIKE wildcards in user text are literal.
	hits, _ = store.Search(ctx, recipe.Query{Text: "%"})
	if len(hits) != 0 {
		t.Errorf("wildcard search matched %d recipes", len(hits))
	}

	hits, _ = store.Search(ctx, recipe.Query{Text: "", Limit: 2})
	if len(hits) != 2 {
		t.Errorf("limit: got %d, want 2", len(hits))
	}
}

func TestRecipes_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t).Recipes()

	r := &recipe.Recipe{
		ID: "test-dish", Title: "Test Dish", Tags: []string{"quick"},
		Ingredients: []recipe.Ingredient{{Name: "egg", Quantity: 2}},
		Steps:       []recipe.Step{{Number: 1, Instruction: "Fry.", TimerMinutes: 3}},
		Source:      recipe.OriginAI,
	}
	if err := store.Save(ctx, r); err != nil {
		t.Fatalf("Save: %v", err)
	}
	r.Title = "Better Dish"
	if err := store.Save(ctx, r); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	got, err := store.Get(ctx, "test-dish")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "Better Dish" || got.Ingredients[0].Quantity != 2 || got.Steps[0].TimerMinutes != 3 || got.Source != recipe.OriginAI {
		t.Errorf("recipe = %+v", got)
	}
	if n, _ := store.Count(ctx); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}

	hits, _ := store.Search(ctx, recipe.Query{ExcludeTags: []string{"quick"}})
	if len(hits) != 0 {
		t.Errorf("excluded tag still returned: %+v", hits)
	}
}

func TestPreferences_RoundTrip(t *testing.T) {
	ctx := context.Background()
	prefs := openTestStore(t).Preferences()

	if _, err := prefs.GetPreferences(ctx, "alice"); !errors.Is(err, recipe.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	want := agent.Preferences{DietaryRestrictions: []string{"vegan", "no-peanuts"}, SkillLevel: "beginner"}
	if err := prefs.SavePreferences(ctx, "alice", want); err != nil {
		t.Fatalf("SavePreferences: %v", err)
	}
	want.FavoriteCuisines = []string{"thai"}
	if err := prefs.SavePreferences(ctx, "alice", want); err != nil {
		t.Fatalf("SavePreferences update: %v", err)
	}

	got, err := prefs.GetPreferences(ctx, "alice")
	if err != nil {
		t.Fatalf("GetPreferences: %v", err)
	}
	if got.SkillLevel != "beginner" || len(got.DietaryRestrictions) != 2 || len(got.FavoriteCuisines) != 1 {
		t.Errorf("prefs = %+v", got)
	}
}

func TestTranscripts_Upsert(t *testing.T) {
	ctx := context.Background()
	transcripts := openTestStore(t).Transcripts()

	if _, err := transcripts.GetTranscript(ctx, "c1"); !errors.Is(err, archive.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	now := time.Now().UTC()
	tr := &archive.Transcript{
		ConversationID: "c1",
		Messages:       []agent.Message{{ID: "m1", Content: "hi", Sender: agent.SenderUser, Timestamp: now}},
		StartedAt:      now,
		LastMessageAt:  now,
		ArchivedAt:     now,
	}
	if err := transcripts.SaveTranscript(ctx, tr); err != nil {
		t.Fatalf("SaveTranscript: %v", err)
	}
	tr.Messages = append(tr.Messages, agent.Message{ID: "m2", Content: "hello", Sender: agent.SenderAgent, AgentName: "ChatSupport", Timestamp: now})
	if err := transcripts.SaveTranscript(ctx, tr); err != nil {
		t.Fatalf("SaveTranscript update: %v", err)
	}

	got, err := transcripts.GetTranscript(ctx, "c1")
	if err != nil {
		t.Fatalf("GetTranscript: %v", err)
	}
	if len(got.Messages) != 2 || got.Messages[1].AgentName != "ChatSupport" {
		t.Errorf("transcript = %+v", got)
	}
}
