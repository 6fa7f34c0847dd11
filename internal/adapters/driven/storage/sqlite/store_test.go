package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// setupTestStore creates a SQLite store in a temporary directory.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })
	return store
}

func testRecord(owner, id string, created time.Time) *domain.DocumentRecord {
	return &domain.DocumentRecord{
		ID:          id,
		Owner:       owner,
		Fingerprint: id,
		Name:        id + ".pdf",
		CreatedAt:   created,
	}
}

// ==================== Store Creation Tests ====================

func TestNewStore_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(dir, DatabaseFile), store.Path())
	assert.FileExists(t, store.Path())
}

func TestNewStore_ReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.DocumentStore().Create(ctx, testRecord("alice", "doc1", time.Time{})))
	require.NoError(t, store.Close())

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	rec, err := reopened.DocumentStore().Get(ctx, "alice", "doc1")
	require.NoError(t, err)
	assert.Equal(t, "doc1.pdf", rec.Name)

	var versions int
	require.NoError(t, reopened.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&versions))
	assert.Equal(t, 2, versions)
}

// ==================== Document Store Tests ====================

func TestDocumentStore_CreateAndGet(t *testing.T) {
	docs := setupTestStore(t).DocumentStore()
	ctx := context.Background()

	require.NoError(t, docs.Create(ctx, testRecord("alice", "doc1", time.Time{})))

	rec, err := docs.Get(ctx, "alice", "doc1")
	require.NoError(t, err)
	assert.Equal(t, "alice", rec.Owner)
	assert.Equal(t, "doc1", rec.Fingerprint)
	assert.False(t, rec.Indexed)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.Equal(t, rec.CreatedAt, rec.UpdatedAt)
}

func TestDocumentStore_CreateDuplicate(t *testing.T) {
	docs := setupTestStore(t).DocumentStore()
	ctx := context.Background()

	require.NoError(t, docs.Create(ctx, testRecord("alice", "doc1", time.Time{})))
	err := docs.Create(ctx, testRecord("alice", "doc1", time.Time{}))

	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestDocumentStore_ConcurrentCreateKeepsOneRow(t *testing.T) {
	docs := setupTestStore(t).DocumentStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := docs.Create(ctx, testRecord("alice", "doc1", time.Time{})); err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	list, err := docs.List(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestDocumentStore_OwnerScoped(t *testing.T) {
	docs := setupTestStore(t).DocumentStore()
	ctx := context.Background()

	require.NoError(t, docs.Create(ctx, testRecord("alice", "doc1", time.Time{})))
	require.NoError(t, docs.Create(ctx, testRecord("bob", "doc1", time.Time{})))

	_, err := docs.Get(ctx, "carol", "doc1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := docs.List(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "bob", list[0].Owner)
}

func TestDocumentStore_MarkIndexed(t *testing.T) {
	docs := setupTestStore(t).DocumentStore()
	ctx := context.Background()
	require.NoError(t, docs.Create(ctx, testRecord("alice", "doc1", time.Time{})))

	require.NoError(t, docs.MarkIndexed(ctx, "alice", "doc1", 42))

	rec, err := docs.Get(ctx, "alice", "doc1")
	require.NoError(t, err)
	assert.True(t, rec.Indexed)
	assert.Equal(t, 42, rec.ChunkCount)
}

func TestDocumentStore_MarkIndexedMissing(t *testing.T) {
	docs := setupTestStore(t).DocumentStore()

	err := docs.MarkIndexed(context.Background(), "alice", "missing", 1)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_ListNewestFirst(t *testing.T) {
	docs := setupTestStore(t).DocumentStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, docs.Create(ctx, testRecord("alice", "old", base)))
	require.NoError(t, docs.Create(ctx, testRecord("alice", "new", base.Add(time.Hour))))

	list, err := docs.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)
	assert.Equal(t, "old", list[1].ID)
}

func TestDocumentStore_DeleteRemovesSummary(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.DocumentStore().Create(ctx, testRecord("alice", "doc1", time.Time{})))
	require.NoError(t, store.SummaryStore().Upsert(ctx, &domain.Summary{
		DocumentID: "doc1", Owner: "alice", Overview: "o", Version: 1,
	}))

	require.NoError(t, store.DocumentStore().Delete(ctx, "alice", "doc1"))
	require.NoError(t, store.DocumentStore().Delete(ctx, "alice", "doc1"))

	_, err := store.DocumentStore().Get(ctx, "alice", "doc1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.SummaryStore().Get(ctx, "alice", "doc1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ==================== Summary Store Tests ====================

func TestSummaryStore_UpsertReplaces(t *testing.T) {
	sums := setupTestStore(t).SummaryStore()
	ctx := context.Background()

	_, err := sums.Get(ctx, "alice", "doc1")
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, sums.Upsert(ctx, &domain.Summary{
		DocumentID: "doc1", Owner: "alice", Overview: "first", Version: 1,
		SuggestedQuestions: []string{"What is this about?"},
	}))
	require.NoError(t, sums.Upsert(ctx, &domain.Summary{
		DocumentID: "doc1", Owner: "alice", Overview: "second", Version: 2,
	}))

	got, err := sums.Get(ctx, "alice", "doc1")
	require.NoError(t, err)
	assert.Equal(t, "second", got.Overview)
	assert.Equal(t, 2, got.Version)
	assert.Empty(t, got.SuggestedQuestions)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestSummaryStore_RoundTripsQuestions(t *testing.T) {
	sums := setupTestStore(t).SummaryStore()
	ctx := context.Background()
	questions := []string{"What is the main idea?", "Who wrote it?"}

	require.NoError(t, sums.Upsert(ctx, &domain.Summary{
		DocumentID: "doc1", Owner: "alice", Overview: "o", Version: 1, SuggestedQuestions: questions,
	}))

	got, err := sums.Get(ctx, "alice", "doc1")
	require.NoError(t, err)
	assert.Equal(t, questions, got.SuggestedQuestions)
}

// ==================== Index Store Tests ====================

func TestIndexStore_SaveLoad(t *testing.T) {
	idx := setupTestStore(t).IndexStore()
	ctx := context.Background()
	artifacts := &driven.IndexArtifacts{
		Vectors: []byte{1, 2, 3, 4},
		Chunks: []domain.Chunk{
			{Text: "first chunk of text", Source: "a.pdf", Page: 1},
			{Text: "second chunk of text", Source: "a.pdf", Page: 2},
		},
	}

	require.NoError(t, idx.Save(ctx, "alice", "doc1", artifacts))

	ok, err := idx.Exists(ctx, "alice", "doc1")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := idx.Load(ctx, "alice", "doc1")
	require.NoError(t, err)
	assert.Equal(t, artifacts.Vectors, got.Vectors)
	assert.Equal(t, artifacts.Chunks, got.Chunks)
}

func TestIndexStore_SaveReplaces(t *testing.T) {
	idx := setupTestStore(t).IndexStore()
	ctx := context.Background()

	require.NoError(t, idx.Save(ctx, "alice", "doc1", &driven.IndexArtifacts{
		Vectors: []byte{1},
		Chunks:  []domain.Chunk{{Text: "a"}, {Text: "b"}, {Text: "c"}},
	}))
	require.NoError(t, idx.Save(ctx, "alice", "doc1", &driven.IndexArtifacts{
		Vectors: []byte{2},
		Chunks:  []domain.Chunk{{Text: "z"}},
	}))

	got, err := idx.Load(ctx, "alice", "doc1")
	require.NoError(t, err)
	assert.Equal(t, []byte{2}, got.Vectors)
	assert.Equal(t, []domain.Chunk{{Text: "z"}}, got.Chunks)
}

func TestIndexStore_MissingAndDelete(t *testing.T) {
	idx := setupTestStore(t).IndexStore()
	ctx := context.Background()

	_, err := idx.Load(ctx, "alice", "doc1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, idx.Save(ctx, "alice", "doc1", &driven.IndexArtifacts{
		Vectors: []byte{1}, Chunks: []domain.Chunk{{Text: "a"}},
	}))
	require.NoError(t, idx.Delete(ctx, "alice", "doc1"))

	ok, err := idx.Exists(ctx, "alice", "doc1")
	require.NoError(t, err)
	assert.False(t, ok)

	var orphans int
	// Chunks go with their index.
	require.NoError(t, idx.(*indexStore).store.db.QueryRow("SELECT COUNT(*) FROM index_chunks").Scan(&orphans))
	assert.Zero(t, orphans)
}

func TestIndexStore_OwnerScoped(t *testing.T) {
	idx := setupTestStore(t).IndexStore()
	ctx := context.Background()

	require.NoError(t, idx.Save(ctx, "alice", "doc1", &driven.IndexArtifacts{Vectors: []byte{1}}))

	ok, err := idx.Exists(ctx, "bob", "doc1")
	require.NoError(t, err)
	assert.False(t, ok)
}

// ==================== Conversation Store Tests ====================

func TestConversationStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	conversations := setupTestStore(t).ConversationStore()

	got, err := conversations.Get(ctx, "chat:alice:c1")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, conversations.Set(ctx, "chat:alice:c1", []byte(`[{"role":"user"}]`), time.Hour))
	require.NoError(t, conversations.Set(ctx, "chat:alice:c1", []byte(`[]`), time.Hour))
	got, err = conversations.Get(ctx, "chat:alice:c1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[]`), got)

	require.NoError(t, conversations.Delete(ctx, "chat:alice:c1"))
	got, err = conversations.Get(ctx, "chat:alice:c1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestConversationStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	conversations := store.ConversationStore()

	require.NoError(t, conversations.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, conversations.Set(ctx, "forever", []byte("v"), 0))

	now = now.Add(30 * time.Second)
	got, err := conversations.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	// Writing refreshes the expiry.
	require.NoError(t, conversations.Set(ctx, "k", []byte("v2"), time.Minute))
	now = now.Add(45 * time.Second)
	got, err = conversations.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	now = now.Add(time.Minute)
	got, err = conversations.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = conversations.Get(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestConversationStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.ConversationStore().Set(ctx, "chat:local:c1", []byte("history"), time.Hour))
	require.NoError(t, first.Close())

	second, err := NewStore(dir)
	require.NoError(t, err)
	defer second.Close()

	got, err := second.ConversationStore().Get(ctx, "chat:local:c1")
	require.NoError(t, err)
	assert.Equal(t, []byte("history"), got)
}
