//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/john-revops11/ai-kusina-helper-sub000/internal/agent"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/archive"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/recipe"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set, skipping integration test")
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	db, err := Open(Config{DSN: dsn}, logger)
	if err != nil {
		t.Fatalf("opening postgres: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s := NewStore(db)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	return s
}

func uniqueID(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.New().String()[:8])
}

func TestRecipeRepository_SaveSearch(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id := uniqueID("tinola")
	r := &recipe.Recipe{
		ID: id, Title: "Integration Tinola " + id, Cuisine: "filipino",
		DietaryTags: []string{"dairy-free"},
		Ingredients: []recipe.Ingredient{{Name: "green papaya"}},
		Steps:       []recipe.Step{{Number: 1, Instruction: "Simmer."}},
	}
	if err := s.Recipes().Save(ctx, r); err != nil {
		t.Fatalf("Save: %v", err)
	}

	hits, err := s.Recipes().Search(ctx, recipe.Query{Text: id, Limit: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != id {
		t.Errorf("hits = %+v", hits)
	}
	if _, err := s.Recipes().Get(ctx, uniqueID("missing")); !errors.Is(err, recipe.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPreferenceRepository_ConcurrentUpserts(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	user := uniqueID("user")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			prefs := agent.Preferences{SkillLevel: fmt.Sprintf("level-%d", i)}
			if err := s.Preferences().SavePreferences(ctx, user, prefs); err != nil {
				t.Errorf("SavePreferences: %v", err)
			}
		}(i)
	}
	wg.Wait()

	got, err := s.Preferences().GetPreferences(ctx, user)
	if err != nil {
		t.Fatalf("GetPreferences: %v", err)
	}
	if got.SkillLevel == "" {
		t.Error("expected one of the concurrent writes to win")
	}
}

func TestTranscriptRepository_Upsert(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	id := uniqueID("conv")
	now := time.Now().UTC()

	tr := &archive.Transcript{ConversationID: id, StartedAt: now, LastMessageAt: now, ArchivedAt: now,
		Messages: []agent.Message{{ID: "m1", Content: "hi", Sender: agent.SenderUser, Timestamp: now}}}
	if err := s.Transcripts().SaveTranscript(ctx, tr); err != nil {
		t.Fatalf("SaveTranscript: %v", err)
	}
	tr.Messages = append(tr.Messages, agent.Message{ID: "m2", Content: "yo", Sender: agent.SenderAgent, Timestamp: now})
	if err := s.Transcripts().SaveTranscript(ctx, tr); err != nil {
		t.Fatalf("SaveTranscript update: %v", err)
	}

	got, err := s.Transcripts().GetTranscript(ctx, id)
	if err != nil {
		t.Fatalf("GetTranscript: %v", err)
	}
	if len(got.Messages) != 2 {
		t.Errorf("messages = %d, want 2", len(got.Messages))
	}
}
