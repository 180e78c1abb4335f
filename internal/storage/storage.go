// Package storage defines the persistence interface for chunks, outputs,
// and retrieval logs.
package storage

import (
	"context"
	"errors"

	"github.com/feedforge/ragcore/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines chunk, output, and retrieval log persistence operations.
// Chunk ids are assigned on insert and are never reused, so a re-indexed
// source always gets fresh ids.
type Store interface {
	// Chunk operations
	InsertChunks(ctx context.Context, chunks []*models.Chunk) error
	ChunksBySource(ctx context.Context, sourceID string) ([]*models.Chunk, error)
	ChunkIDsBySource(ctx context.Context, sourceID string) ([]int64, error)
	ChunksByIDs(ctx context.Context, ids []int64) ([]*models.Chunk, error)
	DeleteChunksBySource(ctx context.Context, sourceID string) error
	HasChunks(ctx context.Context, sourceID string) (bool, error)
	Stats(ctx context.Context) (*models.Stats, error)

	// Output operations (feedback loop)
	CreateOutput(ctx context.Context, out *models.Output) error
	GetOutput(ctx context.Context, id int64) (*models.Output, error)
	ListApprovedOutputs(ctx context.Context) ([]*models.Output, error)

	// Retrieval audit log
	InsertRetrievalLog(ctx context.Context, log *models.RetrievalLog) error

	Close() error
}
