package session

import (
	"context"
	"sync"

	"github.com/mimilabs/mimi/internal/llm"
)

// MemoryStore is a process-local Store with the same trimming semantics as
// RedisStore. It backs tests and lets the assistant run without Redis at the
// cost of losing transcripts on restart.
type MemoryStore struct {
	mu         sync.Mutex
	maxHistory int
	transcript map[string][]llm.Message
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(maxHistory int) *MemoryStore {
	return &MemoryStore{
		maxHistory: maxHistory,
		transcript: make(map[string][]llm.Message),
	}
}

func (s *MemoryStore) History(_ context.Context, conversationID string) ([]llm.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := s.transcript[conversationID]
	out := make([]llm.Message, len(history))
	copy(out, history)
	return out, nil
}

func (s *MemoryStore) Append(_ context.Context, conversationID string, messages ...llm.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := append(s.transcript[conversationID], messages...)
	if s.maxHistory > 0 && len(history) > s.maxHistory {
		history = history[len(history)-s.maxHistory:]
	}
	s.transcript[conversationID] = history
	return nil
}

func (s *MemoryStore) Reset(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.transcript, conversationID)
	return nil
}
