package chatsupport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/john-revops11/ai-kusina-helper-sub000/internal/agent"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/llm"
)

type stubProvider struct {
	content string
	err     error
	last    *llm.Request
}

func (s *stubProvider) Name() string { return "stub" }
func (s *stubProvider) SendMessage(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	return &llm.Response{Content: s.content}, nil
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestHandle_Answer(t *testing.T) {
	p := &stubProvider{content: "  Use rice vinegar.  "}
	a := New(p, discard())

	actx := &agent.Context{
		Preferences: &agent.Preferences{SkillLevel: "beginner", FavoriteCuisines: []string{"filipino", "thai"}},
		PreviousMessages: []agent.Message{
			{Sender: agent.SenderUser, Content: "hi"},
			{Sender: agent.SenderAgent, Content: "hello"},
			{Sender: agent.SenderUser, Content: "what vinegar for adobo?"},
		},
	}
	resp, err := a.Handle(context.Background(), "what vinegar for adobo?", actx)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !resp.Success || resp.Message != "Use rice vinegar." || resp.Source != agent.SourceAI {
		t.Errorf("resp = %+v", resp)
	}
	if len(resp.SuggestedActions) != 1 || resp.SuggestedActions[0].Type != "search_recipes" {
		t.Errorf("actions = %+v", resp.SuggestedActions)
	}

	if !strings.Contains(p.last.SystemPrompt, "Skill level: beginner") ||
		!strings.Contains(p.last.SystemPrompt, "filipino, thai") {
		t.Errorf("system prompt not personalized:\n%s", p.last.SystemPrompt)
	}
	if len(p.last.Messages) != 3 {
		t.Errorf("messages = %+v, want 3 turns", p.last.Messages)
	}
}

func TestHandle_ProviderErrorIsFault(t *testing.T) {
	a := New(&stubProvider{err: errors.New("rate limited")}, discard())
	resp, err := a.Handle(context.Background(), "hello", nil)
	if err == nil || resp != nil {
		t.Fatalf("want fault, got resp=%+v err=%v", resp, err)
	}
}

func TestHandle_EmptyAnswerIsFault(t *testing.T) {
	a := New(&stubProvider{content: "   "}, discard())
	_, err := a.Handle(context.Background(), "hello", &agent.Context{})
	if !errors.Is(err, llm.ErrEmptyResponse) {
		t.Fatalf("err = %v, want ErrEmptyResponse", err)
	}
}

func TestName(t *testing.T) {
	if New(nil, discard()).Name() != "ChatSupport" {
		t.Error("unexpected name")
	}
}
