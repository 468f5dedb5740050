package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// DocumentKey identifies a document by the SHA-256 of its downloaded content.
// Identical URL and content always map to the same key, which doubles as the
// vector namespace, so a document is never ingested twice.
type DocumentKey string

// NewDocumentKey derives a document key from raw document bytes.
func NewDocumentKey(content []byte) DocumentKey {
	sum := sha256.Sum256(content)
	return DocumentKey(hex.EncodeToString(sum[:]))
}

// Namespace returns the vector store namespace for this document.
func (k DocumentKey) Namespace() string {
	return string(k)
}

// Chunk is a bounded, overlapping substring of a source document used as a
// retrieval unit. Chunks are immutable once produced.
type Chunk struct {
	Index     int
	Text      string
	CharStart int
	CharEnd   int
}

// IngestionStatus is the lifecycle state of a cached document.
type IngestionStatus string

const (
	IngestionStatusPending IngestionStatus = "pending"
	IngestionStatusReady   IngestionStatus = "ready"
	IngestionStatusFailed  IngestionStatus = "failed"
)

// Valid returns true if the status is a known ingestion status
func (s IngestionStatus) Valid() bool {
	switch s {
	case IngestionStatusPending, IngestionStatusReady, IngestionStatusFailed:
		return true
	}
	return false
}

// IngestionRecord tracks whether a document has been chunked, embedded and
// indexed. It is the source of truth for ingestion status only; the vectors
// themselves live in the vector index.
type IngestionRecord struct {
	DocumentKey DocumentKey
	DocumentURL string
	Status      IngestionStatus
	ChunkCount  int
	Namespace   string
	FailReason  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
