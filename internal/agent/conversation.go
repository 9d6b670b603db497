package agent

import "time"

// ConversationStore holds the bounded message history of each conversation.
// Unknown ids are never an error: appends create the conversation and
// reads return an empty slice.
type ConversationStore interface {
	// CreateConversation allocates a fresh id with an empty history.
	CreateConversation() string

	// AppendMessage adds msg to the conversation, creating it if needed,
	// and evicts the oldest messages beyond MaxConversationMessages.
	AppendMessage(conversationID string, msg Message)

	// GetMessages returns a copy of the history, oldest first.
	GetMessages(conversationID string) []Message

	// List describes every known conversation, in no particular order.
	List() []ConversationInfo

	// Count returns the number of known conversations.
	Count() int
}

// ConversationInfo summarizes a conversation without copying its messages.
type ConversationInfo struct {
	ID           string
	MessageCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MaxConversationMessages is the sliding-window size of a conversation.
const MaxConversationMessages = 20
