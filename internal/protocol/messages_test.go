package protocol

import (
	"encoding/json"
	"testing"

	"github.com/john-revops11/ai-kusina-helper-sub000/internal/agent"
)

func TestEnvelope_ReplyKeepsID(t *testing.T) {
	var req Envelope
	if err := json.Unmarshal([]byte(`{"type":"chat.request","id":"abc","payload":{"message":"next step","context":{"currentRecipeId":"adobo","currentStep":2}}}`), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	var chat ChatRequest
	if err := req.Decode(&chat); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	actx := chat.AgentContext("alice")
	if actx.UserID != "alice" || actx.CurrentRecipeID != "adobo" || actx.Step() != 2 {
		t.Errorf("context = %+v", actx)
	}

	reply, err := req.Reply(MsgChatResponse, ChatResponse{ConversationID: "c1", Response: &agent.Response{Message: "ok", Success: true}})
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if reply.ID != "abc" || reply.Type != MsgChatResponse {
		t.Errorf("reply = %+v", reply)
	}
	var out ChatResponse
	if err := reply.Decode(&out); err != nil || out.Response.Message != "ok" {
		t.Errorf("payload = %+v, err = %v", out, err)
	}
}

func TestNewEnvelope_FreshID(t *testing.T) {
	a, _ := NewEnvelope(MsgPing, nil)
	b, _ := NewEnvelope(MsgPing, nil)
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("ids %q and %q should be distinct", a.ID, b.ID)
	}
	if a.Payload != nil {
		t.Errorf("nil payload encoded as %s", a.Payload)
	}
}

func TestChatRequest_NoContext(t *testing.T) {
	r := ChatRequest{Message: "hi", ConversationID: "c1"}
	actx := r.AgentContext("")
	if actx.ConversationID != "c1" || actx.CurrentStep != nil {
		t.Errorf("context = %+v", actx)
	}
}
