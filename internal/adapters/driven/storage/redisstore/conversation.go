// Package redisstore provides a Redis-backed conversation store.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure ConversationStore implements the interface.
var _ driven.ConversationStore = (*ConversationStore)(nil)

// connectTimeout bounds the initial ping.
const connectTimeout = 5 * time.Second

// ConversationStore keeps conversation blobs in Redis with per-key TTL.
type ConversationStore struct {
	cli *redis.Client
}

// NewConversationStore wraps an existing client.
func NewConversationStore(cli *redis.Client) *ConversationStore {
	return &ConversationStore{cli: cli}
}

// NewConversationStoreFromURL connects using a redis:// URL and verifies
// the server is reachable.
func NewConversationStoreFromURL(ctx context.Context, redisURL string) (*ConversationStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	cli := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := cli.Ping(ctx).Err(); err != nil {
		cli.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", opt.Addr, err)
	}

	return NewConversationStore(cli), nil
}

// Get returns the value for key, or nil if it is missing or expired.
func (s *ConversationStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.cli.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get %s: %w", key, err)
	}
	return b, nil
}

// Set stores value under key and resets its expiry to ttl.
// A zero ttl keeps the key until it is deleted.
func (s *ConversationStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.cli.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set %s: %w", key, err)
	}
	return nil
}

// Delete removes key immediately.
func (s *ConversationStore) Delete(ctx context.Context, key string) error {
	if err := s.cli.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis: delete %s: %w", key, err)
	}
	return nil
}

// TTL returns the remaining lifetime of key.
func (s *ConversationStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	return s.cli.TTL(ctx, key).Result()
}

// Close closes the Redis client connection.
func (s *ConversationStore) Close() error {
	return s.cli.Close()
}
