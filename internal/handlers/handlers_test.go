package handlers

import (
	"testing"

	"github.com/john-revops11/ai-kusina-helper-sub000/internal/agent"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/llm"
)

func TestHistory(t *testing.T) {
	msgs := []agent.Message{
		{Sender: agent.SenderAgent, Content: "welcome"},
		{Sender: agent.SenderUser, Content: "hi"},
		{Sender: agent.SenderAgent, Content: "hello!", AgentName: "ChatSupport"},
		{Sender: agent.SenderUser, Content: "what is adobo?"},
	}

	got := History(msgs, "what is adobo?", 0)
	want := []llm.Message{
		{Role: llm.RoleUser, Content: "hi"},
		{Role: llm.RoleAssistant, Content: "hello!"},
		{Role: llm.RoleUser, Content: "what is adobo?"},
	}
	if len(got) != len(want) {
		t.Fatalf("History = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("turn %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestHistory_Bounded(t *testing.T) {
	var msgs []agent.Message
	for i := 0; i < 30; i++ {
		sender := agent.SenderUser
		if i%2 == 1 {
			sender = agent.SenderAgent
		}
		msgs = append(msgs, agent.Message{Sender: sender, Content: "m"})
	}
	got := History(msgs, "now", 4)
	if len(got) > 5 {
		t.Fatalf("len = %d, want at most 5", len(got))
	}
	if got[0].Role != llm.RoleUser || got[len(got)-1].Content != "now" {
		t.Errorf("History = %+v", got)
	}
}

func TestHistory_Empty(t *testing.T) {
	got := History(nil, "hello", DefaultHistoryTurns)
	if len(got) != 1 || got[0].Content != "hello" || got[0].Role != llm.RoleUser {
		t.Errorf("History = %+v", got)
	}
}

func TestExtractJSONObject(t *testing.T) {
	tests := map[string]string{
		`{"a":1}`:                               `{"a":1}`,
		"```json\n{\"a\":{\"b\":2}}\n```":       `{"a":{"b":2}}`,
		`Sure! {"title":"x } y"} hope it helps`: `{"title":"x } y"}`,
		`{"q":"say \"hi\" {"}`:                  `{"q":"say \"hi\" {"}`,
		"no json here":                          "",
		`{"unterminated": 1`:                    "",
	}
	for in, want := range tests {
		if got := ExtractJSONObject(in); got != want {
			t.Errorf("ExtractJSONObject(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRestrictions(t *testing.T) {
	if Restrictions(nil) != nil {
		t.Error("nil context should have no restrictions")
	}
	actx := &agent.Context{Preferences: &agent.Preferences{DietaryRestrictions: []string{"vegan"}}}
	if got := Restrictions(actx); len(got) != 1 || got[0] != "vegan" {
		t.Errorf("Restrictions = %v", got)
	}
}
