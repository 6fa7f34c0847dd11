package watcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

var owner = domain.Identity{Subject: "alice"}

// fakeIngest fingerprints bytes the way the real service does.
type fakeIngest struct {
	mu    sync.Mutex
	names []string
	err   error
}

func (f *fakeIngest) Ingest(_ context.Context, req domain.IngestRequest) (*domain.IngestResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.names = append(f.names, req.Name)
	sum := sha256.Sum256(req.Data)
	return &domain.IngestResult{DocumentID: hex.EncodeToString(sum[:]), Name: req.Name, Chunks: 1}, nil
}

type fakeDocuments struct {
	mu      sync.Mutex
	deleted []string
}

func (f *fakeDocuments) List(context.Context, domain.Identity) ([]domain.DocumentRecord, error) {
	return nil, nil
}

func (f *fakeDocuments) Get(context.Context, domain.Identity, string) (*domain.DocumentRecord, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeDocuments) Delete(_ context.Context, _ domain.Identity, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeDocuments) Deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func fingerprint(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func TestHandleFsEvent(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "report.pdf")
	writeFile(t, pdf, "%PDF-1.4")
	sub := filepath.Join(dir, "folder.pdf")
	require.NoError(t, os.Mkdir(sub, 0755))

	w := New(dir, &fakeIngest{}, nil, owner)

	tests := []struct {
		name     string
		path     string
		op       fsnotify.Op
		expected *Change
	}{
		{"create pdf", pdf, fsnotify.Create, &Change{Type: ChangeCreated, Path: pdf}},
		{"write pdf", pdf, fsnotify.Write, &Change{Type: ChangeUpdated, Path: pdf}},
		{"remove pdf", filepath.Join(dir, "gone.pdf"), fsnotify.Remove, &Change{Type: ChangeDeleted, Path: filepath.Join(dir, "gone.pdf")}},
		{"rename pdf", filepath.Join(dir, "old.PDF"), fsnotify.Rename, &Change{Type: ChangeDeleted, Path: filepath.Join(dir, "old.PDF")}},
		{"chmod ignored", pdf, fsnotify.Chmod, nil},
		{"directory ignored", sub, fsnotify.Create, nil},
		{"hidden ignored", filepath.Join(dir, ".draft.pdf"), fsnotify.Create, nil},
		{"non pdf ignored", filepath.Join(dir, "notes.txt"), fsnotify.Create, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := w.handleFsEvent(fsnotify.Event{Name: tt.path, Op: tt.op})
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestChangeType_String(t *testing.T) {
	assert.Equal(t, "created", ChangeCreated.String())
	assert.Equal(t, "updated", ChangeUpdated.String())
	assert.Equal(t, "deleted", ChangeDeleted.String())
	assert.Equal(t, "unknown", ChangeType(9).String())
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.pdf"), "%PDF a")
	writeFile(t, filepath.Join(dir, "nested", "b.pdf"), "%PDF b")
	writeFile(t, filepath.Join(dir, ".hidden", "c.pdf"), "%PDF c")
	writeFile(t, filepath.Join(dir, "readme.md"), "# hi")

	ingest := &fakeIngest{}
	w := New(dir, ingest, nil, owner)

	results, err := w.Scan(context.Background())

	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.NoError(t, r.Err)
		assert.Equal(t, ChangeCreated, r.Change)
	}
	assert.ElementsMatch(t, []string{"a.pdf", "b.pdf"}, ingest.names)
}

func TestScan_IngestErrorsAreReported(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.pdf"), "not really a pdf")
	w := New(dir, &fakeIngest{err: domain.ErrUnsupportedType}, nil, owner)

	results, err := w.Scan(context.Background())

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, domain.ErrUnsupportedType)
}

func TestApply_UpdateReplacesStaleDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.pdf")
	docs := &fakeDocuments{}
	w := New(dir, &fakeIngest{}, docs, owner)
	ctx := context.Background()

	writeFile(t, path, "v1")
	first := w.apply(ctx, Change{Type: ChangeCreated, Path: path})
	require.NoError(t, first.Err)

	writeFile(t, path, "v2")
	second := w.apply(ctx, Change{Type: ChangeUpdated, Path: path})
	require.NoError(t, second.Err)

	assert.Equal(t, fingerprint("v2"), second.DocumentID)
	assert.Equal(t, []string{fingerprint("v1")}, docs.Deleted())
}

func TestApply_DeleteKeepsSharedContent(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.pdf")
	b := filepath.Join(dir, "copy-of-a.pdf")
	docs := &fakeDocuments{}
	w := New(dir, &fakeIngest{}, docs, owner)
	ctx := context.Background()

	writeFile(t, a, "same")
	writeFile(t, b, "same")
	require.NoError(t, w.apply(ctx, Change{Type: ChangeCreated, Path: a}).Err)
	require.NoError(t, w.apply(ctx, Change{Type: ChangeCreated, Path: b}).Err)

	require.NoError(t, os.Remove(a))
	res := w.apply(ctx, Change{Type: ChangeDeleted, Path: a})
	require.NoError(t, res.Err)
	assert.Empty(t, docs.Deleted())

	require.NoError(t, os.Remove(b))
	res = w.apply(ctx, Change{Type: ChangeDeleted, Path: b})
	require.NoError(t, res.Err)
	assert.Equal(t, []string{fingerprint("same")}, docs.Deleted())
}

func TestApply_VanishedFileBecomesDelete(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, &fakeIngest{}, &fakeDocuments{}, owner)

	res := w.apply(context.Background(), Change{Type: ChangeCreated, Path: filepath.Join(dir, "never.pdf")})

	assert.NoError(t, res.Err)
	assert.Equal(t, ChangeDeleted, res.Change)
	assert.Empty(t, res.DocumentID)
}

func TestRun_IngestsNewFiles(t *testing.T) {
	dir := t.TempDir()
	docs := &fakeDocuments{}
	w := New(dir, &fakeIngest{}, docs, owner, WithDebounce(20*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan Result, 8)
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, results) }()

	path := filepath.Join(dir, "new.pdf")
	// The watch is registered asynchronously; keep touching the file
	// until an event is seen.
	var got Result
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("fresh"), 0644)
		select {
		case got = <-results:
			return true
		default:
			return false
		}
	}, 5*time.Second, 50*time.Millisecond)

	require.NoError(t, got.Err)
	assert.Equal(t, path, got.Path)
	assert.Equal(t, fingerprint("fresh"), got.DocumentID)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
