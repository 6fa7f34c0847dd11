package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"mime"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

const pdfMediaType = "application/pdf"

var pdfMagic = []byte("%PDF-")

// IngestService builds document indexes from uploaded PDFs.
type IngestService struct {
	docs      driven.DocumentStore
	indexes   driven.IndexStore
	factory   driven.VectorIndexFactory
	extractor driven.PageExtractor
	pipeline  driven.PostProcessorPipeline
	embedder  *Embedder

	// builds collapses concurrent ingestion of the same owner and content.
	builds       singleflight.Group
	buildTimeout time.Duration
	now          func() time.Time
}

// DefaultBuildTimeout bounds a shared index build once it no longer
// follows the cancellation of the caller that started it.
const DefaultBuildTimeout = 10 * time.Minute

// NewIngestService creates a new ingest service.
func NewIngestService(
	docs driven.DocumentStore,
	indexes driven.IndexStore,
	factory driven.VectorIndexFactory,
	extractor driven.PageExtractor,
	pipeline driven.PostProcessorPipeline,
	embedder *Embedder,
) *IngestService {
	return &IngestService{
		docs:         docs,
		indexes:      indexes,
		factory:      factory,
		extractor:    extractor,
		pipeline:     pipeline,
		embedder:     embedder,
		buildTimeout: DefaultBuildTimeout,
		now:          time.Now,
	}
}

// Fingerprint returns the SHA-256 hex digest of data.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// IsPDF reports whether an upload is a PDF, by declared media type or by
// the file signature.
func IsPDF(contentType string, data []byte) bool {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil && mt == pdfMediaType {
		return true
	}
	head := data[:min(len(data), 1024)]
	return bytes.HasPrefix(bytes.TrimLeft(head, " \t\r\n\x00"), pdfMagic)
}

// Ingest indexes a document for its owner.
func (s *IngestService) Ingest(ctx context.Context, req domain.IngestRequest) (*domain.IngestResult, error) {
	if !req.Owner.IsValid() {
		return nil, domain.ErrAccessDenied
	}
	if len(req.Data) == 0 {
		return nil, fmt.Errorf("empty upload: %w", domain.ErrInvalidInput)
	}
	if !IsPDF(req.ContentType, req.Data) {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedType, req.ContentType)
	}

	fp := Fingerprint(req.Data)
	if strings.TrimSpace(req.Name) == "" {
		req.Name = fp[:12] + ".pdf"
	}

	logger.Section("Ingest")
	logger.Debug("Owner %s, document %s (%s), %d bytes", req.Owner.Subject, fp, req.Name, len(req.Data))

	// Only the caller that runs the build sets leader. Callers that joined
	// an in-flight build observe the shared outcome as already indexed.
	// The build ignores the leader's cancellation. Each caller stops
	// waiting when its own ctx is done.
	leader := false
	builds := s.builds.DoChan(req.Owner.Subject+"/"+fp, func() (any, error) {
		leader = true
		buildCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.buildTimeout)
		defer cancel()
		return s.ingest(buildCtx, req, fp)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-builds:
	}
	if res.Err != nil {
		return nil, res.Err
	}

	result := *res.Val.(*domain.IngestResult)
	if !leader {
		result.AlreadyIndexed = true
	}
	return &result, nil
}

func (s *IngestService) ingest(ctx context.Context, req domain.IngestRequest, fp string) (*domain.IngestResult, error) {
	owner := req.Owner.Subject

	rec, err := s.docs.Get(ctx, owner, fp)
	switch {
	case err == nil:
		if rec.Indexed && !req.Force {
			logger.Info("Document %s already indexed for %s", fp, owner)
			return &domain.IngestResult{DocumentID: fp, Name: rec.Name, Chunks: rec.ChunkCount, AlreadyIndexed: true}, nil
		}
	case errors.Is(err, domain.ErrNotFound):
		now := s.now()
		rec = &domain.DocumentRecord{
			ID:          fp,
			Owner:       owner,
			Fingerprint: fp,
			Name:        req.Name,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.docs.Create(ctx, rec); err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
			return nil, fmt.Errorf("create record: %w", err)
		}
	default:
		return nil, fmt.Errorf("get record: %w", err)
	}

	chunks, err := s.build(ctx, owner, fp, rec.Name, req.Data)
	if err != nil {
		return nil, err
	}

	if err := s.docs.MarkIndexed(ctx, owner, fp, chunks); err != nil {
		return nil, fmt.Errorf("mark indexed: %w", err)
	}
	logger.Info("Indexed %s for %s: %d chunks", rec.Name, owner, chunks)

	return &domain.IngestResult{DocumentID: fp, Name: rec.Name, Chunks: chunks}, nil
}

// build extracts, chunks, embeds and persists one document index.
// It returns the number of indexed chunks.
func (s *IngestService) build(ctx context.Context, owner, fp, name string, data []byte) (int, error) {
	pages, err := s.extractor.Extract(ctx, data)
	if err != nil {
		return 0, fmt.Errorf("extract: %w", err)
	}
	logger.Debug("Extracted %d pages", len(pages))

	raw, err := s.pipeline.Process(ctx, &driven.ChunkInput{Label: name, Pages: pages})
	if err != nil {
		return 0, fmt.Errorf("chunk: %w", err)
	}

	// Apply the embedder's floor here so chunk i stays aligned with vector i.
	chunks := make([]domain.Chunk, 0, len(raw))
	texts := make([]string, 0, len(raw))
	for _, c := range raw {
		if s.embedder.Usable(c.Text) {
			chunks = append(chunks, c)
			texts = append(texts, c.Text)
		}
	}
	if len(chunks) == 0 {
		return 0, domain.ErrEmptyInput
	}
	logger.Debug("Chunks: %d produced, %d kept", len(raw), len(chunks))

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, err
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("%w: %d vectors for %d chunks", domain.ErrEmbedding, len(vectors), len(chunks))
	}

	idx, err := s.factory.New(len(vectors[0]))
	if err != nil {
		return 0, fmt.Errorf("create index: %w", err)
	}
	if err := idx.Add(ctx, vectors); err != nil {
		return 0, fmt.Errorf("add vectors: %w", err)
	}
	blob, err := idx.MarshalBinary()
	if err != nil {
		return 0, fmt.Errorf("encode index: %w", err)
	}

	if err := s.indexes.Save(ctx, owner, fp, &driven.IndexArtifacts{Vectors: blob, Chunks: chunks}); err != nil {
		return 0, fmt.Errorf("save index: %w", err)
	}
	return len(chunks), nil
}
