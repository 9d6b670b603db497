// Package cooking implements the step-by-step cooking guide.
package cooking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/john-revops11/ai-kusina-helper-sub000/internal/agent"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/handlers"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/llm"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/recipe"
)

// Name is the registry name of this agent.
const Name = agent.CookingAssistantName

const tipSystemPrompt = `You are a patient cooking coach standing next to a home cook.
Answer the question about the current step in two or three short sentences.
Stay on the step you are given; do not repeat the whole recipe.`

// StepData is the Response.Data of every successful cooking answer. Step is
// 0-based, the same as Context.CurrentStep.
type StepData struct {
	RecipeID   string `json:"recipeId"`
	Step       int    `json:"step"`
	TotalSteps int    `json:"totalSteps"`
}

type intent int

const (
	intentRepeat intent = iota
	intentNext
	intentPrevious
	intentTimer
	intentTip
)

var minutesPattern = regexp.MustCompile(`(\d+)\s*(?:minutes?|mins?|m\b)`)

// Agent walks the user through the recipe named by Context.CurrentRecipeID.
type Agent struct {
	recipes  recipe.Store
	provider llm.Provider // nil = tips fall back to repeating the step
	logger   *slog.Logger
}

// New creates the cooking assistant. provider may be nil.
func New(recipes recipe.Store, provider llm.Provider, logger *slog.Logger) *Agent {
	return &Agent{recipes: recipes, provider: provider, logger: logger}
}

func (a *Agent) Name() string { return Name }

func (a *Agent) Handle(ctx context.Context, utterance string, actx *agent.Context) (*agent.Response, error) {
	if actx == nil || actx.CurrentRecipeID == "" {
		return handlers.Failure("Pick a recipe first and I'll walk you through it step by step.",
			agent.SuggestedAction{Type: handlers.ActionSearchRecipes, Label: "Find a recipe"}), nil
	}

	r, err := a.recipes.Get(ctx, actx.CurrentRecipeID)
	if errors.Is(err, recipe.ErrNotFound) {
		return handlers.Failure(fmt.Sprintf("I couldn't find recipe %q. Try picking it again.", actx.CurrentRecipeID)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading recipe %s: %w", actx.CurrentRecipeID, err)
	}

	total := len(r.Steps)
	if total == 0 {
		return handlers.Failure(fmt.Sprintf("%s has no steps yet.", r.Title)), nil
	}
	step := min(max(actx.Step(), 0), total-1)

	switch classify(utterance) {
	case intentNext:
		if step >= total-1 {
			return &agent.Response{
				Message: fmt.Sprintf("That was the last step. You're done! Enjoy your %s.", r.Title),
				Success: true,
				Data:    StepData{RecipeID: r.ID, Step: step, TotalSteps: total},
				Source:  agent.SourceDatabase,
			}, nil
		}
		return a.stepResponse(r, step+1, ""), nil

	case intentPrevious:
		if step == 0 {
			return a.stepResponse(r, 0, "You're already at the first step."), nil
		}
		return a.stepResponse(r, step-1, ""), nil

	case intentTimer:
		return a.timerResponse(r, step, utterance), nil

	case intentTip:
		return a.tip(ctx, r, step, utterance)
	}
	return a.stepResponse(r, step, ""), nil
}

// classify picks the sub-intent. Order matters: "what should I do next"
// advances rather than asking for a tip.
func classify(utterance string) intent {
	lower := handlers.Lower(utterance)
	switch {
	case strings.Contains(lower, "next"):
		return intentNext
	case strings.Contains(lower, "previous"), strings.Contains(lower, "back"):
		return intentPrevious
	case strings.Contains(lower, "timer"):
		return intentTimer
	case strings.Contains(lower, "how do i"), strings.Contains(lower, "what should i"):
		return intentTip
	}
	return intentRepeat
}

func (a *Agent) stepResponse(r *recipe.Recipe, step int, prefix string) *agent.Response {
	s := r.Steps[step]
	msg := formatStep(s, step, len(r.Steps))
	if prefix != "" {
		msg = prefix + " " + msg
	}
	return &agent.Response{
		Message:          msg,
		Success:          true,
		Data:             StepData{RecipeID: r.ID, Step: step, TotalSteps: len(r.Steps)},
		Source:           agent.SourceDatabase,
		SuggestedActions: stepActions(s, step, len(r.Steps)),
	}
}

func (a *Agent) timerResponse(r *recipe.Recipe, step int, utterance string) *agent.Response {
	minutes := r.Steps[step].TimerMinutes
	if m := minutesPattern.FindStringSubmatch(handlers.Lower(utterance)); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			minutes = n
		}
	}
	if minutes <= 0 {
		return handlers.Failure(`This step has no set time. Tell me how long, like "set a timer for 5 minutes".`)
	}

	seconds := strconv.Itoa(minutes * 60)
	return &agent.Response{
		Message: fmt.Sprintf("Timer set for %d minute%s. I'll let you know when it's up.", minutes, plural(minutes)),
		Success: true,
		Data:    StepData{RecipeID: r.ID, Step: step, TotalSteps: len(r.Steps)},
		Source:  agent.SourceDatabase,
		SuggestedActions: []agent.SuggestedAction{{
			Type:  handlers.ActionStartTimer,
			Label: fmt.Sprintf("Start %d min timer", minutes),
			Value: seconds,
		}},
	}
}

func (a *Agent) tip(ctx context.Context, r *recipe.Recipe, step int, utterance string) (*agent.Response, error) {
	if a.provider == nil {
		return a.stepResponse(r, step, "Here's the step again."), nil
	}

	s := r.Steps[step]
	resp, err := a.provider.SendMessage(ctx, &llm.Request{
		SystemPrompt: tipSystemPrompt,
		Messages: []llm.Message{{
			Role: llm.RoleUser,
			Content: fmt.Sprintf("Recipe: %s\nCurrent step (%d of %d): %s\n\nQuestion: %s",
				r.Title, step+1, len(r.Steps), s.Instruction, utterance),
		}},
		MaxTokens: 300,
	})
	if err != nil {
		return nil, fmt.Errorf("cooking tip: %w", err)
	}
	answer := strings.TrimSpace(resp.Content)
	if answer == "" {
		return nil, fmt.Errorf("cooking tip: %w", llm.ErrEmptyResponse)
	}

	return &agent.Response{
		Message:          answer,
		Success:          true,
		Data:             StepData{RecipeID: r.ID, Step: step, TotalSteps: len(r.Steps)},
		Source:           agent.SourceCombined,
		SuggestedActions: stepActions(s, step, len(r.Steps)),
	}, nil
}

func formatStep(s recipe.Step, step, total int) string {
	msg := fmt.Sprintf("Step %d of %d: %s", step+1, total, s.Instruction)
	if s.TimerMinutes > 0 {
		msg += fmt.Sprintf(" (about %d minute%s)", s.TimerMinutes, plural(s.TimerMinutes))
	}
	return msg
}

func stepActions(s recipe.Step, step, total int) []agent.SuggestedAction {
	var actions []agent.SuggestedAction
	if s.TimerMinutes > 0 {
		actions = append(actions, agent.SuggestedAction{
			Type:  handlers.ActionStartTimer,
			Label: fmt.Sprintf("Start %d min timer", s.TimerMinutes),
			Value: strconv.Itoa(s.TimerMinutes * 60),
		})
	}
	if step > 0 {
		actions = append(actions, agent.SuggestedAction{Type: handlers.ActionPreviousStep, Label: "Previous step"})
	}
	if step < total-1 {
		actions = append(actions, agent.SuggestedAction{Type: handlers.ActionNextStep, Label: "Next step"})
	}
	return actions
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

var _ agent.Agent = (*Agent)(nil)
