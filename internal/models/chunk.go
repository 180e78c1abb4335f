// Package models defines core data structures for sources, chunks, and retrieval results.
package models

import "time"

// SourceKind tags the provenance of a source document.
type SourceKind string

const (
	// SourceKindExternalDoc marks content supplied by an external document store.
	SourceKindExternalDoc SourceKind = "external-doc"
	// SourceKindApprovedOutput marks previously approved generated output fed back into the index.
	SourceKindApprovedOutput SourceKind = "approved-output"
	// SourceKindApprovedReply marks an approved reply indexed together with its parent content.
	SourceKindApprovedReply SourceKind = "approved-reply"
)

// Chunk is a contiguous slice of a source document, the atomic unit of
// indexing and retrieval. IDs are assigned by storage on insert and never
// reused; chunks are immutable after creation.
type Chunk struct {
	ID            int64      `json:"id" db:"id"`
	SourceID      string     `json:"source_id" db:"source_id"`
	SequenceIndex int        `json:"sequence_index" db:"sequence_index"`
	Content       string     `json:"content" db:"content"`
	TokenCount    int        `json:"token_count" db:"token_count"`
	SourceKind    SourceKind `json:"source_kind" db:"source_kind"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// SourceDocument describes a document to be (re-)indexed. The ID must be
// stable across re-indexes of the same logical source.
type SourceDocument struct {
	ID           string            `json:"id"`
	Title        string            `json:"title,omitempty"`
	Content      string            `json:"content"`
	Kind         SourceKind        `json:"source_kind,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified,omitempty"`
}

// Stats summarizes the indexed corpus.
type Stats struct {
	TotalChunks     int64            `json:"total_chunks"`
	DistinctSources int64            `json:"distinct_sources"`
	ChunksByKind    map[string]int64 `json:"chunks_by_kind"`
}
