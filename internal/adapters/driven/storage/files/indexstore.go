// Package files provides a filesystem-backed document index store.
//
// Each (owner, document) unit lives in its own directory:
//
//	<root>/<hex(owner)>/<document>/
//	    CURRENT              name of the live generation
//	    gen-<uuid>/
//	        vectors.bin      serialised vector index
//	        chunks.json      chunk list at the same offsets
//
// A save writes a complete new generation and then replaces CURRENT with a
// rename, so readers observe either the previous unit or the new one.
package files

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure IndexStore implements the interface.
var _ driven.IndexStore = (*IndexStore)(nil)

const (
	currentFile = "CURRENT"
	vectorsFile = "vectors.bin"
	chunksFile  = "chunks.json"
	genPrefix   = "gen-"

	maxLoadAttempts = 3
)

var log = logger.Named("indexstore")

// IndexStore persists document indexes as files under a root directory.
type IndexStore struct {
	root string

	// Saves to one unit are serialised; different units proceed in parallel.
	locks sync.Map // unit dir -> *sync.Mutex
}

// NewIndexStore creates an index store rooted at dir.
func NewIndexStore(dir string) (*IndexStore, error) {
	if dir == "" {
		return nil, errors.New("index store: root directory is required")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("index store: create root: %w", err)
	}
	return &IndexStore{root: dir}, nil
}

// Root returns the root directory.
func (s *IndexStore) Root() string {
	return s.root
}

// Save writes both artifacts, replacing any previous unit.
func (s *IndexStore) Save(ctx context.Context, owner, documentID string, artifacts *driven.IndexArtifacts) error {
	dir, err := s.unitDir(owner, documentID)
	if err != nil {
		return err
	}

	mu := s.lock(dir)
	mu.Lock()
	defer mu.Unlock()

	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("index store: create unit: %w", err)
	}

	gen := genPrefix + uuid.NewString()
	genDir := filepath.Join(dir, gen)
	if err := os.Mkdir(genDir, 0700); err != nil {
		return fmt.Errorf("index store: create generation: %w", err)
	}

	chunks, err := json.Marshal(artifacts.Chunks)
	if err != nil {
		os.RemoveAll(genDir)
		return fmt.Errorf("index store: encode chunks: %w", err)
	}

	if err := writeFileSync(filepath.Join(genDir, vectorsFile), artifacts.Vectors); err != nil {
		os.RemoveAll(genDir)
		return err
	}
	if err := writeFileSync(filepath.Join(genDir, chunksFile), chunks); err != nil {
		os.RemoveAll(genDir)
		return err
	}

	// Last chance to back out before the new generation becomes visible.
	if err := ctx.Err(); err != nil {
		os.RemoveAll(genDir)
		return err
	}

	if err := replaceFile(filepath.Join(dir, currentFile), []byte(gen)); err != nil {
		os.RemoveAll(genDir)
		return err
	}

	s.removeStale(dir, gen)
	return nil
}

// Load reads both artifacts.
func (s *IndexStore) Load(ctx context.Context, owner, documentID string) (*driven.IndexArtifacts, error) {
	dir, err := s.unitDir(owner, documentID)
	if err != nil {
		return nil, err
	}

	// A concurrent save may retire the generation between reading CURRENT
	// and reading its files; retrying picks up the new generation.
	var lastErr error
	for range maxLoadAttempts {
		artifacts, err := loadCurrent(dir)
		if !errors.Is(err, errRetired) {
			return artifacts, err
		}
		lastErr = err
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("index store: %w", lastErr)
}

var errRetired = errors.New("generation retired")

func loadCurrent(dir string) (*driven.IndexArtifacts, error) {
	gen, err := os.ReadFile(filepath.Join(dir, currentFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("index store: read %s: %w", currentFile, err)
	}
	genDir := filepath.Join(dir, strings.TrimSpace(string(gen)))

	vectors, err := os.ReadFile(filepath.Join(genDir, vectorsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errRetired
		}
		return nil, fmt.Errorf("index store: read vectors: %w", err)
	}
	raw, err := os.ReadFile(filepath.Join(genDir, chunksFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errRetired
		}
		return nil, fmt.Errorf("index store: read chunks: %w", err)
	}

	var chunks []domain.Chunk
	if err := json.Unmarshal(raw, &chunks); err != nil {
		return nil, fmt.Errorf("index store: decode chunks: %w", err)
	}
	return &driven.IndexArtifacts{Vectors: vectors, Chunks: chunks}, nil
}

// Exists reports whether a unit exists.
func (s *IndexStore) Exists(_ context.Context, owner, documentID string) (bool, error) {
	dir, err := s.unitDir(owner, documentID)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(filepath.Join(dir, currentFile))
	switch {
	case err == nil:
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, fmt.Errorf("index store: %w", err)
	}
}

// Delete removes the unit.
func (s *IndexStore) Delete(_ context.Context, owner, documentID string) error {
	dir, err := s.unitDir(owner, documentID)
	if err != nil {
		return err
	}

	mu := s.lock(dir)
	mu.Lock()
	defer mu.Unlock()

	// Drop the pointer first so readers stop finding the unit.
	if err := os.Remove(filepath.Join(dir, currentFile)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("index store: delete: %w", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("index store: delete: %w", err)
	}
	return nil
}

// unitDir maps (owner, document) to a directory. Owners are hex encoded so
// any subject is a safe path segment; document IDs must already be one.
func (s *IndexStore) unitDir(owner, documentID string) (string, error) {
	if owner == "" {
		return "", fmt.Errorf("index store: empty owner: %w", domain.ErrInvalidInput)
	}
	if documentID == "" || documentID == "." || documentID == ".." ||
		strings.ContainsAny(documentID, `/\`) {
		return "", fmt.Errorf("index store: bad document id %q: %w", documentID, domain.ErrInvalidInput)
	}
	return filepath.Join(s.root, hex.EncodeToString([]byte(owner)), documentID), nil
}

func (s *IndexStore) lock(dir string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(dir, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// removeStale deletes every generation except keep. Failures only waste space.
func (s *IndexStore) removeStale(dir, keep string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Warn("list %s: %v", dir, err)
		return
	}
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || !strings.HasPrefix(name, genPrefix) || name == keep {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, name)); err != nil {
			log.Warn("remove stale generation %s: %v", name, err)
		}
	}
}

func writeFileSync(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("index store: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("index store: write %s: %w", filepath.Base(path), err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("index store: sync %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// replaceFile atomically replaces path with data.
func replaceFile(path string, data []byte) error {
	tmp := path + ".tmp-" + uuid.NewString()
	if err := writeFileSync(tmp, data); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("index store: publish: %w", err)
	}
	return nil
}
