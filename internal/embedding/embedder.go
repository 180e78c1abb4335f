// Package embedding provides text embedding via ONNX, with caching and a
// process-wide provider.
package embedding

import (
	"context"
	"errors"
)

// ErrUnavailable reports that the embedding model could not be loaded or is
// not compiled in. Callers treat it as a degraded-capability condition:
// indexing and retrieval proceed lexical-only.
var ErrUnavailable = errors.New("embedding model unavailable")

// Embedder produces fixed-dimension vector embeddings for text. Embedding
// the same text twice yields the same vector.
type Embedder interface {
	// EmbedBatch returns one vector per input text, order preserved.
	// An empty input returns an empty slice and no error.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
