// Package indexer turns source documents into chunks and keeps storage, the
// lexical index, and the vector index in sync.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/feedforge/ragcore/internal/chunker"
	"github.com/feedforge/ragcore/internal/embedding"
	"github.com/feedforge/ragcore/internal/lexical"
	"github.com/feedforge/ragcore/internal/models"
	"github.com/feedforge/ragcore/internal/storage"
	"github.com/feedforge/ragcore/internal/vector"
)

// Indexer indexes source documents into storage, the lexical index, and the
// vector index. Re-indexing a source replaces its chunks as one generation:
// the old chunks are removed from every index before the new ones are
// written, and concurrent calls for the same source are serialized.
type Indexer struct {
	store        storage.Store
	provider     *embedding.Provider
	vectorIndex  vector.Index
	lexicalIndex *lexical.Index
	chunker      *chunker.Chunker
	logger       *zap.Logger

	mu      sync.Mutex
	sources map[string]*sourceLock
}

// sourceLock serializes index operations for one source id. Entries are
// refcounted so the map does not accumulate a mutex per source ever seen
// on a long-lived server.
type sourceLock struct {
	mu   sync.Mutex
	refs int
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithLogger sets a logger for debug and degradation events.
func WithLogger(l *zap.Logger) Option {
	return func(idx *Indexer) { idx.logger = l }
}

// New creates an indexer with the given dependencies.
func New(
	store storage.Store,
	provider *embedding.Provider,
	vectorIndex vector.Index,
	lexicalIndex *lexical.Index,
	ch *chunker.Chunker,
	opts ...Option,
) *Indexer {
	idx := &Indexer{
		store:        store,
		provider:     provider,
		vectorIndex:  vectorIndex,
		lexicalIndex: lexicalIndex,
		chunker:      ch,
		logger:       zap.NewNop(),
		sources:      make(map[string]*sourceLock),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// lockSource acquires the per-source mutex, creating the entry on first use.
// Every lockSource call is paired with unlockSource.
func (idx *Indexer) lockSource(sourceID string) {
	idx.mu.Lock()
	l, ok := idx.sources[sourceID]
	if !ok {
		l = &sourceLock{}
		idx.sources[sourceID] = l
	}
	l.refs++
	idx.mu.Unlock()
	l.mu.Lock()
}

// unlockSource releases the per-source mutex and drops the entry once no
// other operation holds or waits on it.
func (idx *Indexer) unlockSource(sourceID string) {
	idx.mu.Lock()
	l := idx.sources[sourceID]
	l.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(idx.sources, sourceID)
	}
	idx.mu.Unlock()
}

// IndexSource chunks and indexes one source document, replacing any previous
// generation of the same source id. It returns the number of chunks indexed.
// Empty or whitespace-only content yields zero chunks and no stored state.
//
// When the embedder is unavailable the source is still indexed lexically;
// the vector side is skipped and the degradation is logged.
func (idx *Indexer) IndexSource(ctx context.Context, doc *models.SourceDocument) (int, error) {
	if doc.ID == "" {
		return 0, fmt.Errorf("source document has no id")
	}

	idx.lockSource(doc.ID)
	defer idx.unlockSource(doc.ID)

	if err := idx.purgeLocked(ctx, doc.ID); err != nil {
		return 0, err
	}

	kind := doc.Kind
	if kind == "" {
		kind = models.SourceKindExternalDoc
	}
	chunks := idx.chunker.Chunk(Preprocess(doc.Content), doc.ID, kind)
	if len(chunks) == 0 {
		idx.logger.Debug("source produced no chunks", zap.String("source_id", doc.ID))
		return 0, nil
	}

	// Persist first so every indexed chunk has a durable id.
	if err := idx.store.InsertChunks(ctx, chunks); err != nil {
		return 0, fmt.Errorf("failed to store chunks: %w", err)
	}

	if err := idx.embedChunks(ctx, chunks); err != nil {
		return 0, err
	}

	for _, ch := range chunks {
		if err := idx.lexicalIndex.Upsert(ch.ID, ch.Content); err != nil {
			return 0, fmt.Errorf("failed to index chunk %d lexically: %w", ch.ID, err)
		}
	}

	idx.logger.Debug("source indexed",
		zap.String("source_id", doc.ID),
		zap.String("kind", string(kind)),
		zap.Int("chunks", len(chunks)),
	)
	return len(chunks), nil
}

// embedChunks embeds the chunk contents and upserts them into the vector
// index. An unavailable embedder degrades to lexical-only indexing; any
// other failure is returned.
func (idx *Indexer) embedChunks(ctx context.Context, chunks []*models.Chunk) error {
	embedder, err := idx.provider.Get()
	if err != nil {
		if errors.Is(err, embedding.ErrUnavailable) {
			idx.logger.Warn("embedder unavailable, indexing lexically only", zap.Error(err))
			return nil
		}
		return fmt.Errorf("failed to get embedder: %w", err)
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
	}
	vectors, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		if errors.Is(err, embedding.ErrUnavailable) {
			idx.logger.Warn("embedding failed, indexing lexically only", zap.Error(err))
			return nil
		}
		return fmt.Errorf("failed to generate embeddings: %w", err)
	}

	for i, ch := range chunks {
		if err := idx.vectorIndex.Upsert(ctx, ch.ID, vectors[i]); err != nil {
			return fmt.Errorf("failed to index chunk %d vector: %w", ch.ID, err)
		}
	}
	return nil
}

// BatchResult reports the outcome of indexing one source within a batch.
type BatchResult struct {
	SourceID string
	Chunks   int
	Err      error
}

// IndexBatch indexes each source independently. A failure in one source does
// not stop the rest; per-source outcomes are returned in input order.
func (idx *Indexer) IndexBatch(ctx context.Context, docs []*models.SourceDocument) []BatchResult {
	results := make([]BatchResult, 0, len(docs))
	for _, doc := range docs {
		n, err := idx.IndexSource(ctx, doc)
		if err != nil {
			idx.logger.Error("failed to index source",
				zap.String("source_id", doc.ID), zap.Error(err))
		}
		results = append(results, BatchResult{SourceID: doc.ID, Chunks: n, Err: err})
	}
	return results
}

// lockedSources reports how many per-source lock entries are live. Test hook.
func (idx *Indexer) lockedSources() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.sources)
}

// PurgeSource removes every chunk of a source from storage and both indexes.
// Purging an unknown source is a no-op.
func (idx *Indexer) PurgeSource(ctx context.Context, sourceID string) error {
	idx.lockSource(sourceID)
	defer idx.unlockSource(sourceID)
	return idx.purgeLocked(ctx, sourceID)
}

func (idx *Indexer) purgeLocked(ctx context.Context, sourceID string) error {
	ids, err := idx.store.ChunkIDsBySource(ctx, sourceID)
	if err != nil {
		return fmt.Errorf("failed to list chunks for %s: %w", sourceID, err)
	}
	for _, id := range ids {
		if err := idx.lexicalIndex.Delete(id); err != nil {
			return fmt.Errorf("failed to delete chunk %d from lexical index: %w", id, err)
		}
		if err := idx.vectorIndex.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete chunk %d from vector index: %w", id, err)
		}
	}
	if err := idx.store.DeleteChunksBySource(ctx, sourceID); err != nil {
		return fmt.Errorf("failed to delete chunks for %s: %w", sourceID, err)
	}
	if len(ids) > 0 {
		idx.logger.Debug("purged source",
			zap.String("source_id", sourceID), zap.Int("chunks", len(ids)))
	}
	return nil
}
