package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func TestDocumentStore_CreateAndGet(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	rec := &domain.DocumentRecord{ID: "abc", Owner: "alice", Fingerprint: "abc", Name: "guide.pdf"}
	require.NoError(t, store.Create(ctx, rec))

	got, err := store.Get(ctx, "alice", "abc")
	require.NoError(t, err)
	assert.Equal(t, "guide.pdf", got.Name)
	assert.False(t, got.Indexed)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestDocumentStore_OwnerScoping(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &domain.DocumentRecord{ID: "abc", Owner: "alice"}))

	_, err := store.Get(ctx, "bob", "abc")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Same content for another owner is a separate record.
	require.NoError(t, store.Create(ctx, &domain.DocumentRecord{ID: "abc", Owner: "bob"}))
}

func TestDocumentStore_CreateDuplicate(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &domain.DocumentRecord{ID: "abc", Owner: "alice"}))

	err := store.Create(ctx, &domain.DocumentRecord{ID: "abc", Owner: "alice"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestDocumentStore_CreateConcurrent(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if store.Create(ctx, &domain.DocumentRecord{ID: "same", Owner: "alice"}) == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, created)
}

func TestDocumentStore_MarkIndexed(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &domain.DocumentRecord{ID: "abc", Owner: "alice"}))

	require.NoError(t, store.MarkIndexed(ctx, "alice", "abc", 12))

	got, err := store.Get(ctx, "alice", "abc")
	require.NoError(t, err)
	assert.True(t, got.Indexed)
	assert.Equal(t, 12, got.ChunkCount)

	assert.ErrorIs(t, store.MarkIndexed(ctx, "bob", "abc", 1), domain.ErrNotFound)
}

func TestDocumentStore_ListNewestFirst(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Create(ctx, &domain.DocumentRecord{ID: "old", Owner: "alice", CreatedAt: base}))
	require.NoError(t, store.Create(ctx, &domain.DocumentRecord{ID: "new", Owner: "alice", CreatedAt: base.Add(time.Hour)}))
	require.NoError(t, store.Create(ctx, &domain.DocumentRecord{ID: "other", Owner: "bob", CreatedAt: base}))

	list, err := store.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)
	assert.Equal(t, "old", list[1].ID)
}

func TestDocumentStore_Delete(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &domain.DocumentRecord{ID: "abc", Owner: "alice"}))

	require.NoError(t, store.Delete(ctx, "alice", "abc"))
	require.NoError(t, store.Delete(ctx, "alice", "abc"))

	_, err := store.Get(ctx, "alice", "abc")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSummaryStore_UpsertAndGet(t *testing.T) {
	store := NewSummaryStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "alice", "abc")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	sum := &domain.Summary{DocumentID: "abc", Owner: "alice", Overview: "v1", SuggestedQuestions: []string{"Why?"}, Version: 1}
	require.NoError(t, store.Upsert(ctx, sum))
	sum.SuggestedQuestions[0] = "mutated"

	got, err := store.Get(ctx, "alice", "abc")
	require.NoError(t, err)
	assert.Equal(t, []string{"Why?"}, got.SuggestedQuestions)

	require.NoError(t, store.Upsert(ctx, &domain.Summary{DocumentID: "abc", Owner: "alice", Overview: "v2", Version: 2}))
	got, err = store.Get(ctx, "alice", "abc")
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Overview)
	assert.Equal(t, 2, got.Version)

	_, err = store.Get(ctx, "bob", "abc")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
