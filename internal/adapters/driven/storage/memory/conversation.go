package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure ConversationStore implements the interface.
var _ driven.ConversationStore = (*ConversationStore)(nil)

type entry struct {
	value   []byte
	expires time.Time // zero means no expiry
}

// ConversationStore is an in-memory key-value store with expiry.
// Expired keys are dropped lazily on access.
type ConversationStore struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewConversationStore creates a new in-memory conversation store.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns the value for key, or nil if it is missing or expired.
func (s *ConversationStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	if !e.expires.IsZero() && !s.now().Before(e.expires) {
		delete(s.entries, key)
		return nil, nil
	}
	return slices.Clone(e.value), nil
}

// Set stores value under key and resets its expiry.
func (s *ConversationStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := entry{value: slices.Clone(value)}
	if ttl > 0 {
		e.expires = s.now().Add(ttl)
	}
	s.entries[key] = e
	return nil
}

// Delete removes key immediately.
func (s *ConversationStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
