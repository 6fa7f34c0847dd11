package driven

import (
	"context"
	"time"
)

// ConversationStore is a key-value store with per-key expiry.
// It holds one serialised history blob per conversation.
type ConversationStore interface {
	// Get returns the value for key, or nil if it is missing or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key and resets its expiry to ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key immediately.
	Delete(ctx context.Context, key string) error
}
