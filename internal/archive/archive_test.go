package archive

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/john-revops11/ai-kusina-helper-sub000/internal/agent"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type memStore struct {
	mu    sync.Mutex
	saved map[string]Transcript
	saves int
	fail  string
}

func newMemStore() *memStore { return &memStore{saved: make(map[string]Transcript)} }

func (m *memStore) SaveTranscript(ctx context.Context, t *Transcript) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ConversationID == m.fail {
		return errors.New("disk full")
	}
	m.saved[t.ConversationID] = *t
	m.saves++
	return nil
}

func (m *memStore) GetTranscript(ctx context.Context, id string) (*Transcript, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.saved[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func userMsg(content string) agent.Message {
	return agent.Message{ID: content, Content: content, Sender: agent.SenderUser, Timestamp: time.Now().UTC()}
}

func TestNew_InvalidSchedule(t *testing.T) {
	if _, err := New(agent.NewInMemoryConversationStore(), newMemStore(), "every tuesday", discard()); err == nil {
		t.Fatal("expected schedule error")
	}
	for _, spec := range []string{"@every 5m", "*/10 * * * *", "@hourly"} {
		if _, err := New(agent.NewInMemoryConversationStore(), newMemStore(), spec, discard()); err != nil {
			t.Errorf("spec %q: %v", spec, err)
		}
	}
}

func TestRunOnce_OnlyChangedConversations(t *testing.T) {
	conversations := agent.NewInMemoryConversationStore()
	busy := conversations.CreateConversation()
	_ = conversations.CreateConversation() // empty, never archived
	conversations.AppendMessage(busy, userMsg("hi"))

	store := newMemStore()
	reg := prometheus.NewRegistry()
	a, err := New(conversations, store, "@every 1m", discard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a.WithMetrics(NewMetrics(reg))

	n, err := a.RunOnce(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("first run: n=%d err=%v", n, err)
	}

	// Nothing changed.
	if n, _ := a.RunOnce(context.Background()); n != 0 {
		t.Errorf("second run saved %d, want 0", n)
	}

	time.Sleep(time.Millisecond)
	conversations.AppendMessage(busy, userMsg("next"))
	if n, _ := a.RunOnce(context.Background()); n != 1 {
		t.Errorf("third run saved %d, want 1", n)
	}

	got, err := store.GetTranscript(context.Background(), busy)
	if err != nil {
		t.Fatalf("GetTranscript: %v", err)
	}
	if len(got.Messages) != 2 || got.Messages[1].Content != "next" {
		t.Errorf("transcript = %+v", got.Messages)
	}
	if store.count() != 2 {
		t.Errorf("saves = %d, want 2", store.count())
	}
	// The live store is never modified.
	if len(conversations.GetMessages(busy)) != 2 {
		t.Error("archiving must not touch the conversation store")
	}
}

func TestRunOnce_FailureRetriedNextRun(t *testing.T) {
	conversations := agent.NewInMemoryConversationStore()
	good := conversations.CreateConversation()
	bad := conversations.CreateConversation()
	conversations.AppendMessage(good, userMsg("a"))
	conversations.AppendMessage(bad, userMsg("b"))

	store := newMemStore()
	store.fail = bad
	a, _ := New(conversations, store, "@every 1m", discard())

	n, err := a.RunOnce(context.Background())
	if err == nil || n != 1 {
		t.Fatalf("n=%d err=%v, want 1 saved and an error", n, err)
	}

	store.fail = ""
	n, err = a.RunOnce(context.Background())
	if err != nil || n != 1 {
		t.Errorf("retry: n=%d err=%v, want the failed conversation saved", n, err)
	}
}

func TestStart_Cancel(t *testing.T) {
	conversations := agent.NewInMemoryConversationStore()
	id := conversations.CreateConversation()
	conversations.AppendMessage(id, userMsg("hello"))

	store := newMemStore()
	a, _ := New(conversations, store, "@every 1s", discard())
	cancel := a.Start(context.Background())
	defer cancel()

	deadline := time.After(5 * time.Second)
	for store.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("archiver never ran")
		case <-time.After(50 * time.Millisecond):
		}
	}
}
