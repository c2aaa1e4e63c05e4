// Package conversation holds per-conversation chat history used to give
// the LLM context. State is process-lifetime only; nothing is persisted
// across restarts.
package conversation

import (
	"sync"
	"time"
)

// Role identifies the author of an entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Entry is one message in a conversation.
type Entry struct {
	Role       Role      `json:"role"`
	Content    string    `json:"content"`
	AppendedAt time.Time `json:"appended_at"`
}

// Store is the conversation-history abstraction. The memory implementation
// is the only one shipped; an external key-value store can be substituted
// without changing call sites.
type Store interface {
	// Get returns the ordered history for id. The returned slice is a copy.
	Get(id string) []Entry

	// Append adds one entry to the history for id, dropping the oldest
	// entries past the implementation's cap.
	Append(id string, role Role, content string)

	// Clear removes all history for id.
	Clear(id string)

	// Count returns the number of tracked conversations.
	Count() int
}

// MemoryStore is the in-process Store implementation. Each conversation is
// capped at maxEntries; appending past the cap drops the oldest entries.
type MemoryStore struct {
	mu         sync.Mutex
	histories  map[string][]Entry
	maxEntries int
}

// DefaultMaxEntries bounds per-conversation history growth.
const DefaultMaxEntries = 50

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore. maxEntries <= 0 applies
// DefaultMaxEntries.
func NewMemoryStore(maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &MemoryStore{
		histories:  make(map[string][]Entry),
		maxEntries: maxEntries,
	}
}

// Get returns a copy of the history for id, oldest first.
func (s *MemoryStore) Get(id string) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.histories[id]
	result := make([]Entry, len(history))
	copy(result, history)
	return result
}

// Clear removes all history for id.
func (s *MemoryStore) Clear(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.histories, id)
}

// Count returns the number of conversations with stored history.
func (s *MemoryStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.histories)
}

// Append adds one entry in a single locked step, trimming to the newest
// maxEntries.
func (s *MemoryStore) Append(id string, role Role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.histories[id], Entry{
		Role:       role,
		Content:    content,
		AppendedAt: time.Now(),
	})
	if len(history) > s.maxEntries {
		history = history[len(history)-s.maxEntries:]
	}
	s.histories[id] = history
}
