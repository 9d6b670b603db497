package agent

import "strings"

// Names of the agents the router knows how to prefer.
const (
	CookingAssistantName = "CookingAssistant"
	RecipeDiscoveryName  = "RecipeDiscovery"
	UserPreferenceName   = "UserPreference"
	ChatSupportName      = "ChatSupport"
)

// Keyword tables for each routing rule. Matching is a case-insensitive
// substring test against the whole utterance.
var (
	CookingKeywords    = []string{"step", "how do i", "what should i", "timer", "next"}
	DiscoveryKeywords  = []string{"recipe for", "how to make", "find me a", "search for"}
	PreferenceKeywords = []string{"prefer", "like", "favorite", "dietary", "allergic"}
)

// Rule identifies which routing rule produced a decision.
type Rule string

const (
	RuleCooking    Rule = "cooking"
	RuleDiscovery  Rule = "discovery"
	RulePreference Rule = "preference"
	RuleChat       Rule = "chat"
	RuleExplicit   Rule = "explicit"
)

// Route is the outcome of a routing decision.
type Route struct {
	Agent     Agent
	Rule      Rule
	Preferred string // Name the matched rule asked for.
	Fallback  bool   // Preferred was not registered; Agent is the first registered.
}

// SelectAgent picks the handler for an utterance.
//
// Rules, evaluated in order, first match wins:
//  1. A current recipe is set and the utterance mentions a cooking keyword → CookingAssistant.
//  2. A discovery phrase → RecipeDiscovery.
//  3. A preference keyword → UserPreference.
//  4. Anything else → ChatSupport.
//
// When the preferred agent is not registered the first agent in registration
// order is used instead. ErrNoAgents is returned only for an empty registry.
func SelectAgent(utterance string, actx *Context, registry *Registry) (Agent, error) {
	route, err := RouteUtterance(utterance, actx, registry)
	if err != nil {
		return nil, err
	}
	return route.Agent, nil
}

// RouteUtterance is SelectAgent with the decision details attached.
func RouteUtterance(utterance string, actx *Context, registry *Registry) (Route, error) {
	rule, preferred := matchRule(utterance, actx)

	if a, ok := registry.Get(preferred); ok {
		return Route{Agent: a, Rule: rule, Preferred: preferred}, nil
	}

	agents := registry.List()
	if len(agents) == 0 {
		return Route{}, ErrNoAgents
	}
	return Route{Agent: agents[0], Rule: rule, Preferred: preferred, Fallback: true}, nil
}

func matchRule(utterance string, actx *Context) (Rule, string) {
	lower := strings.ToLower(utterance)

	if actx != nil && actx.CurrentRecipeID != "" && containsAny(lower, CookingKeywords) {
		return RuleCooking, CookingAssistantName
	}
	if containsAny(lower, DiscoveryKeywords) {
		return RuleDiscovery, RecipeDiscoveryName
	}
	if containsAny(lower, PreferenceKeywords) {
		return RulePreference, UserPreferenceName
	}
	return RuleChat, ChatSupportName
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
