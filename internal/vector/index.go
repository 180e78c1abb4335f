// Package vector provides similarity search over chunk embeddings with a
// capability-probed choice of backing index.
package vector

import (
	"context"
	"errors"
)

// ErrDimensionMismatch reports a vector whose length does not equal the
// index dimension. No partial write occurs.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Result is a single similarity hit.
type Result struct {
	ChunkID    int64
	Similarity float64 // cosine similarity in [0,1]
}

// Index stores one embedding per chunk id and answers nearest-neighbor
// queries by cosine similarity.
type Index interface {
	// Upsert inserts or replaces the vector for a chunk id.
	Upsert(ctx context.Context, chunkID int64, vec []float32) error
	// Search returns up to topK results with similarity >= threshold,
	// ordered by similarity descending, ties by chunk id ascending.
	Search(ctx context.Context, query []float32, topK int, threshold float64) ([]Result, error)
	// Delete removes the vector for a chunk id; absent ids are a no-op.
	Delete(ctx context.Context, chunkID int64) error
	// Size returns the number of stored vectors.
	Size() int
	// Kind identifies the active implementation ("memory" or "faiss").
	Kind() string
	// Save/Load persist the index contents at path (no-op for empty path).
	Save(path string) error
	Load(path string) error
	Close() error
}
