package cooking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/john-revops11/ai-kusina-helper-sub000/internal/agent"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/llm"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/recipe"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/recipe/recipetest"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func adobo() recipe.Recipe {
	return recipe.Recipe{
		ID:    "chicken-adobo",
		Title: "Chicken Adobo",
		Ingredients: []recipe.Ingredient{
			{Name: "chicken"}, {Name: "soy sauce"}, {Name: "vinegar"},
		},
		Steps: []recipe.Step{
			{Number: 1, Instruction: "Marinate the chicken."},
			{Number: 2, Instruction: "Simmer covered.", TimerMinutes: 30},
			{Number: 3, Instruction: "Reduce the sauce."},
		},
	}
}

func ctxAt(step int) *agent.Context {
	return &agent.Context{CurrentRecipeID: "chicken-adobo", CurrentStep: &step}
}

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

func stepOf(t *testing.T, resp *agent.Response) StepData {
	t.Helper()
	data, ok := resp.Data.(StepData)
	if !ok {
		t.Fatalf("Data = %T, want StepData", resp.Data)
	}
	return data
}

func TestHandle_Navigation(t *testing.T) {
	a := New(recipetest.NewStore(adobo()), nil, discard())

	tests := []struct {
		name      string
		utterance string
		step      int
		wantStep  int
		wantMsg   string
	}{
		{"next", "what's the next step?", 0, 1, "Step 2 of 3: Simmer covered."},
		{"previous", "go back", 2, 1, "Step 2 of 3"},
		{"previous at start", "previous step please", 0, 0, "already at the first step"},
		{"repeat", "say that again", 1, 1, "Step 2 of 3"},
		{"done", "next", 2, 2, "You're done"},
		{"out of range clamps", "repeat", 9, 2, "Step 3 of 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := a.Handle(context.Background(), tt.utterance, ctxAt(tt.step))
			if err != nil {
				t.Fatalf("Handle: %v", err)
			}
			if !resp.Success {
				t.Fatalf("resp = %+v", resp)
			}
			if !strings.Contains(resp.Message, tt.wantMsg) {
				t.Errorf("message = %q, want to contain %q", resp.Message, tt.wantMsg)
			}
			data := stepOf(t, resp)
			if data.Step != tt.wantStep || data.TotalSteps != 3 || data.RecipeID != "chicken-adobo" {
				t.Errorf("data = %+v, want step %d", data, tt.wantStep)
			}
		})
	}
}

func TestHandle_Timer(t *testing.T) {
	a := New(recipetest.NewStore(adobo()), nil, discard())

	resp, err := a.Handle(context.Background(), "set a timer for 5 minutes", ctxAt(0))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(resp.SuggestedActions) != 1 || resp.SuggestedActions[0].Type != "start_timer" || resp.SuggestedActions[0].Value != "300" {
		t.Errorf("actions = %+v", resp.SuggestedActions)
	}

	// Minutes come from the step when the utterance has none.
	resp, _ = a.Handle(context.Background(), "start the timer", ctxAt(1))
	if len(resp.SuggestedActions) != 1 || resp.SuggestedActions[0].Value != "1800" {
		t.Errorf("actions = %+v", resp.SuggestedActions)
	}

	// No minutes anywhere is a reported failure.
	resp, _ = a.Handle(context.Background(), "timer", ctxAt(0))
	if resp.Success || resp.Message == "" {
		t.Errorf("resp = %+v, want reported failure", resp)
	}
}

func TestHandle_Tip(t *testing.T) {
	p := &stubProvider{content: "Keep the lid on."}
	a := New(recipetest.NewStore(adobo()), p, discard())

	resp, err := a.Handle(context.Background(), "how do i know it's done?", ctxAt(1))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if resp.Source != agent.SourceCombined || resp.Message != "Keep the lid on." {
		t.Errorf("resp = %+v", resp)
	}
	if !strings.Contains(p.last.Messages[0].Content, "Simmer covered.") {
		t.Errorf("prompt not grounded on the step: %q", p.last.Messages[0].Content)
	}

	failing := New(recipetest.NewStore(adobo()), &stubProvider{err: errors.New("boom")}, discard())
	if _, err := failing.Handle(context.Background(), "how do i stir?", ctxAt(0)); err == nil {
		t.Error("provider error should be a fault")
	}
}

func TestHandle_TipWithoutProvider(t *testing.T) {
	a := New(recipetest.NewStore(adobo()), nil, discard())
	resp, err := a.Handle(context.Background(), "what should i watch for?", ctxAt(2))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !resp.Success || !strings.Contains(resp.Message, "Step 3 of 3") {
		t.Errorf("resp = %+v", resp)
	}
}

func TestHandle_ReportedFailures(t *testing.T) {
	a := New(recipetest.NewStore(adobo()), nil, discard())

	resp, err := a.Handle(context.Background(), "next", &agent.Context{})
	if err != nil || resp.Success || resp.Message == "" {
		t.Errorf("no recipe: resp=%+v err=%v", resp, err)
	}

	resp, err = a.Handle(context.Background(), "next", &agent.Context{CurrentRecipeID: "missing"})
	if err != nil || resp.Success || !strings.Contains(resp.Message, "missing") {
		t.Errorf("unknown recipe: resp=%+v err=%v", resp, err)
	}
}
