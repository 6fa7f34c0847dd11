package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure ChatMemory implements the interface.
var _ driving.ChatService = (*ChatMemory)(nil)

// DefaultChatTTL is how long an idle conversation is kept.
const DefaultChatTTL = 24 * time.Hour

// ChatMemory keeps the ordered turns of each conversation as one JSON blob
// per owner and conversation ID. Every append rewrites the blob and
// refreshes its expiry. Concurrent appends to one conversation are
// last-write-wins.
type ChatMemory struct {
	store driven.ConversationStore
	ttl   time.Duration
}

// NewChatMemory creates chat memory over a conversation store.
func NewChatMemory(store driven.ConversationStore, ttl time.Duration) *ChatMemory {
	if ttl <= 0 {
		ttl = DefaultChatTTL
	}
	return &ChatMemory{store: store, ttl: ttl}
}

// ConversationKey returns the store key of an owner's conversation.
// Two owners using the same conversation ID never share a key.
func ConversationKey(owner, conversationID string) string {
	return "chat:" + owner + ":" + conversationID
}

// History returns the full conversation in order.
// A missing or expired conversation is empty.
func (m *ChatMemory) History(ctx context.Context, owner domain.Identity, conversationID string) ([]domain.ChatTurn, error) {
	if !owner.IsValid() {
		return nil, domain.ErrAccessDenied
	}
	if conversationID == "" {
		return nil, nil
	}
	blob, err := m.store.Get(ctx, ConversationKey(owner.Subject, conversationID))
	if err != nil {
		return nil, fmt.Errorf("read conversation: %w", err)
	}
	if len(blob) == 0 {
		return nil, nil
	}

	var turns []domain.ChatTurn
	if err := json.Unmarshal(blob, &turns); err != nil {
		logger.Warn("Discarding unreadable conversation %s: %v", conversationID, err)
		return nil, nil
	}
	return turns, nil
}

// Window returns at most the last n turns.
func (m *ChatMemory) Window(ctx context.Context, owner domain.Identity, conversationID string, n int) ([]domain.ChatTurn, error) {
	turns, err := m.History(ctx, owner, conversationID)
	if err != nil || n <= 0 || len(turns) <= n {
		return turns, err
	}
	return turns[len(turns)-n:], nil
}

// Append adds turns to the end of a conversation.
func (m *ChatMemory) Append(ctx context.Context, owner domain.Identity, conversationID string, turns ...domain.ChatTurn) error {
	if !owner.IsValid() {
		return domain.ErrAccessDenied
	}
	if conversationID == "" || len(turns) == 0 {
		return nil
	}
	for _, t := range turns {
		if !t.Role.IsValid() {
			return fmt.Errorf("chat role %q: %w", t.Role, domain.ErrInvalidInput)
		}
	}

	history, err := m.History(ctx, owner, conversationID)
	if err != nil {
		return err
	}
	history = append(history, turns...)

	blob, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encode conversation: %w", err)
	}
	if err := m.store.Set(ctx, ConversationKey(owner.Subject, conversationID), blob, m.ttl); err != nil {
		return fmt.Errorf("write conversation: %w", err)
	}
	return nil
}

// Reset purges the conversation immediately.
func (m *ChatMemory) Reset(ctx context.Context, owner domain.Identity, conversationID string) error {
	if !owner.IsValid() {
		return domain.ErrAccessDenied
	}
	if conversationID == "" {
		return fmt.Errorf("empty conversation id: %w", domain.ErrInvalidInput)
	}
	return m.store.Delete(ctx, ConversationKey(owner.Subject, conversationID))
}
