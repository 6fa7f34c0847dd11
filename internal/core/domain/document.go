package domain

import (
	"fmt"
	"time"
)

// Page is the text of a single page as extracted from a source document.
type Page struct {
	// Number is the 1-based page number.
	Number int

	// Text is the extracted page text.
	Text string
}

// Chunk is a bounded passage of document text with provenance.
// Chunks are immutable once created and kept in reading order.
type Chunk struct {
	// Text is the passage content.
	Text string `json:"text"`

	// Source is the display label of the originating document.
	Source string `json:"source"`

	// Page is the originating page number.
	Page int `json:"page"`
}

// Source identifies where a retrieved passage came from.
type Source struct {
	Document string `json:"document"`
	Page     int    `json:"page"`
}

// String renders the source as it is shown to users.
func (s Source) String() string {
	return fmt.Sprintf("%s (Page %d)", s.Document, s.Page)
}

// DocumentRecord is the metadata kept for an uploaded document.
// A record is unique per (Owner, ID); ID is the content fingerprint.
type DocumentRecord struct {
	// ID identifies the document. It equals Fingerprint.
	ID string

	// Owner is the subject of the identity that uploaded the document.
	Owner string

	// Fingerprint is the SHA-256 hex digest of the raw bytes.
	Fingerprint string

	// Name is the display name, usually the uploaded file name.
	Name string

	// Indexed is true once the document index has been written.
	// Retrieval must not proceed while it is false.
	Indexed bool

	// ChunkCount is the number of chunks in the document index.
	ChunkCount int

	// CreatedAt is when the record was first created.
	CreatedAt time.Time

	// UpdatedAt is when the record was last changed.
	UpdatedAt time.Time
}

// IngestRequest describes a document upload.
type IngestRequest struct {
	// Owner is the uploading identity.
	Owner Identity

	// Name is the display name of the document.
	Name string

	// ContentType is the declared MIME type. Empty means sniff the bytes.
	ContentType string

	// Data is the raw document bytes.
	Data []byte

	// Force rebuilds the index even if it already exists.
	Force bool
}

// IngestResult reports the outcome of an ingestion.
type IngestResult struct {
	// DocumentID is the fingerprint of the document.
	DocumentID string `json:"document_id"`

	// Name is the display name of the document.
	Name string `json:"name"`

	// Chunks is the number of indexed chunks.
	Chunks int `json:"chunks"`

	// AlreadyIndexed is true when nothing was rebuilt.
	AlreadyIndexed bool `json:"already_indexed"`
}
