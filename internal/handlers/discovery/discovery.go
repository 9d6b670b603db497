// Package discovery implements recipe search, with LLM generation as the
// fallback when the catalog has nothing that fits.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/john-revops11/ai-kusina-helper-sub000/internal/agent"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/handlers"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/llm"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/recipe"
)

// Name is the registry name of this agent.
const Name = agent.RecipeDiscoveryName

const generateSystemPrompt = `You are a recipe writer for a home-cooking app.
Write ONE complete recipe for the dish the user asks for.

Output ONLY a JSON object with this schema:
{
  "title": "Dish name",
  "description": "One sentence",
  "cuisine": "filipino",
  "difficulty": "beginner|intermediate|advanced",
  "prepMinutes": 10,
  "cookMinutes": 20,
  "servings": 4,
  "dietaryTags": ["vegetarian"],
  "ingredients": [{"name": "garlic", "quantity": 4, "unit": "cloves"}],
  "steps": [{"number": 1, "instruction": "...", "timerMinutes": 5}]
}

Rules:
- Between 3 and 12 steps
- Only list dietaryTags the recipe truly satisfies
- Respect every restriction the user lists`

// Agent finds recipes in the catalog and, when configured, writes new ones.
type Agent struct {
	recipes  recipe.Store
	provider llm.Provider // nil = search only
	logger   *slog.Logger
}

// New creates the discovery agent. provider may be nil.
func New(recipes recipe.Store, provider llm.Provider, logger *slog.Logger) *Agent {
	return &Agent{recipes: recipes, provider: provider, logger: logger}
}

func (a *Agent) Name() string { return Name }

func (a *Agent) Handle(ctx context.Context, utterance string, actx *agent.Context) (*agent.Response, error) {
	query := ExtractQuery(utterance)
	restrictions := handlers.Restrictions(actx)

	// Over-fetch so the dietary filter still leaves a full page.
	found, err := a.recipes.Search(ctx, recipe.Query{Text: query, Limit: recipe.DefaultSearchLimit * 3})
	if err != nil {
		return nil, fmt.Errorf("searching recipes: %w", err)
	}
	found = recipe.Filter(found, restrictions)
	if len(found) > recipe.DefaultSearchLimit {
		found = found[:recipe.DefaultSearchLimit]
	}

	if len(found) > 0 {
		return foundResponse(query, found), nil
	}
	if a.provider == nil {
		return handlers.Failure(fmt.Sprintf("No recipes found for %q.", query),
			agent.SuggestedAction{Type: handlers.ActionSearchRecipes, Label: "Try another search"}), nil
	}
	return a.generate(ctx, query, restrictions)
}

// ExtractQuery returns the dish the user is asking about: the text after the
// first discovery phrase, without leading articles or trailing punctuation.
func ExtractQuery(utterance string) string {
	lower := handlers.Lower(utterance)
	query := lower
	for _, phrase := range agent.DiscoveryKeywords {
		if i := strings.Index(lower, phrase); i >= 0 {
			query = lower[i+len(phrase):]
			break
		}
	}
	query = strings.Trim(query, " \t?!.,")
	for _, article := range []string{"a ", "an ", "some ", "the "} {
		query = strings.TrimPrefix(query, article)
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return lower
	}
	return query
}

func foundResponse(query string, found []recipe.Recipe) *agent.Response {
	titles := make([]string, len(found))
	actions := make([]agent.SuggestedAction, len(found))
	for i, r := range found {
		titles[i] = r.Title
		actions[i] = agent.SuggestedAction{Type: handlers.ActionViewRecipe, Label: r.Title, Value: r.ID}
	}

	noun := "recipes"
	if len(found) == 1 {
		noun = "recipe"
	}
	return &agent.Response{
		Message:          fmt.Sprintf("I found %d %s for %q: %s.", len(found), noun, query, strings.Join(titles, ", ")),
		Success:          true,
		Data:             found,
		Source:           agent.SourceDatabase,
		SuggestedActions: actions,
	}
}

// generate asks the LLM for one recipe, stores it and returns it.
func (a *Agent) generate(ctx context.Context, query string, restrictions []string) (*agent.Response, error) {
	prompt := fmt.Sprintf("Recipe for: %s", query)
	if len(restrictions) > 0 {
		prompt += "\nRestrictions: " + strings.Join(restrictions, ", ")
	}

	resp, err := a.provider.SendMessage(ctx, &llm.Request{
		SystemPrompt: generateSystemPrompt,
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		MaxTokens:    2048,
		JSON:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("generating recipe: %w", err)
	}

	r, err := parseRecipe(resp.Content)
	if err != nil || !r.Matches(restrictions) {
		a.logger.WarnContext(ctx, "discarding generated recipe",
			slog.String("query", query),
			slog.Any("error", err),
		)
		return handlers.Failure(fmt.Sprintf("I couldn't come up with a recipe for %q right now. Try rephrasing?", query)), nil
	}

	r.ID = recipe.Slug(r.Title) + "-" + uuid.New().String()[:8]
	r.Source = recipe.OriginAI
	r.CreatedAt = time.Now().UTC()
	if err := a.recipes.Save(ctx, r); err != nil {
		return nil, fmt.Errorf("saving generated recipe: %w", err)
	}

	a.logger.InfoContext(ctx, "generated recipe saved",
		slog.String("recipe_id", r.ID),
		slog.String("provider", a.provider.Name()),
	)

	return &agent.Response{
		Message: fmt.Sprintf("I couldn't find %q in the cookbook, so I wrote one: %s.", query, r.Title),
		Success: true,
		Data:    []recipe.Recipe{*r},
		Source:  agent.SourceAI,
		SuggestedActions: []agent.SuggestedAction{
			{Type: handlers.ActionViewRecipe, Label: r.Title, Value: r.ID},
		},
	}, nil
}

func parseRecipe(content string) (*recipe.Recipe, error) {
	raw := handlers.ExtractJSONObject(content)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in answer")
	}
	var r recipe.Recipe
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, fmt.Errorf("decoding recipe: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

var _ agent.Agent = (*Agent)(nil)
