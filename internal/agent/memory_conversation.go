package agent

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryConversationStore implements ConversationStore in process memory.
// Conversations live for the process lifetime; only their messages are
// bounded.
//
// The table lock only guards the map. Each conversation carries its own
// mutex so appends to one conversation never wait on another.
type InMemoryConversationStore struct {
	mu            sync.RWMutex
	conversations map[string]*conversation
	maxMessages   int
}

type conversation struct {
	mu        sync.Mutex
	messages  []Message
	createdAt time.Time
	updatedAt time.Time
}

// NewInMemoryConversationStore creates an empty store capped at
// MaxConversationMessages per conversation.
func NewInMemoryConversationStore() *InMemoryConversationStore {
	return &InMemoryConversationStore{
		conversations: make(map[string]*conversation),
		maxMessages:   MaxConversationMessages,
	}
}

func (s *InMemoryConversationStore) CreateConversation() string {
	id := uuid.New().String()
	s.getOrCreate(id)
	return id
}

func (s *InMemoryConversationStore) AppendMessage(conversationID string, msg Message) {
	c := s.getOrCreate(conversationID)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = append(c.messages, msg)
	if over := len(c.messages) - s.maxMessages; over > 0 {
		// Copy into a fresh slice so the evicted prefix can be collected.
		kept := make([]Message, s.maxMessages)
		copy(kept, c.messages[over:])
		c.messages = kept
	}
	c.updatedAt = time.Now().UTC()
}

func (s *InMemoryConversationStore) GetMessages(conversationID string) []Message {
	s.mu.RLock()
	c, ok := s.conversations[conversationID]
	s.mu.RUnlock()
	if !ok {
		return []Message{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]Message, len(c.messages))
	copy(cp, c.messages)
	return cp
}

func (s *InMemoryConversationStore) List() []ConversationInfo {
	s.mu.RLock()
	ids := make([]string, 0, len(s.conversations))
	convs := make([]*conversation, 0, len(s.conversations))
	for id, c := range s.conversations {
		ids = append(ids, id)
		convs = append(convs, c)
	}
	s.mu.RUnlock()

	infos := make([]ConversationInfo, len(convs))
	for i, c := range convs {
		c.mu.Lock()
		infos[i] = ConversationInfo{
			ID:           ids[i],
			MessageCount: len(c.messages),
			CreatedAt:    c.createdAt,
			UpdatedAt:    c.updatedAt,
		}
		c.mu.Unlock()
	}
	return infos
}

func (s *InMemoryConversationStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}

func (s *InMemoryConversationStore) getOrCreate(id string) *conversation {
	s.mu.RLock()
	c, ok := s.conversations[id]
	s.mu.RUnlock()
	if ok {
		return c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Re-check: another goroutine may have created it between the locks.
	if c, ok := s.conversations[id]; ok {
		return c
	}
	now := time.Now().UTC()
	c = &conversation{createdAt: now, updatedAt: now}
	s.conversations[id] = c
	return c
}

// Compile-time interface check.
var _ ConversationStore = (*InMemoryConversationStore)(nil)
