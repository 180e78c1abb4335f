package retriever

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/feedforge/ragcore/internal/embedding"
	"github.com/feedforge/ragcore/internal/lexical"
	"github.com/feedforge/ragcore/internal/models"
	"github.com/feedforge/ragcore/internal/query"
	"github.com/feedforge/ragcore/internal/storage"
	"github.com/feedforge/ragcore/internal/vector"
)

// Options tune the retrieval pipeline. Zero values are replaced by the
// defaults below.
type Options struct {
	// TopK is the default number of chunks returned per query.
	TopK int
	// CandidatePool is how many candidates each index contributes before
	// fusion. It is deliberately larger than TopK so fusion can promote
	// chunks that rank mid-pool on one side but high combined.
	CandidatePool int
	// ScoreThreshold drops fused candidates scoring below it.
	ScoreThreshold float64
	// LexicalWeight and VectorWeight are the fusion weights.
	LexicalWeight float64
	VectorWeight  float64
	// MinViableChunks is the minimum surviving count for a retrieval to
	// be reported as succeeded.
	MinViableChunks int
}

const (
	DefaultTopK            = 10
	DefaultCandidatePool   = 50
	DefaultScoreThreshold  = 0.5
	DefaultLexicalWeight   = 0.5
	DefaultVectorWeight    = 0.5
	DefaultMinViableChunks = 1
)

func (o *Options) applyDefaults() {
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	if o.CandidatePool <= 0 {
		o.CandidatePool = DefaultCandidatePool
	}
	if o.ScoreThreshold == 0 {
		o.ScoreThreshold = DefaultScoreThreshold
	}
	if o.LexicalWeight == 0 && o.VectorWeight == 0 {
		o.LexicalWeight = DefaultLexicalWeight
		o.VectorWeight = DefaultVectorWeight
	}
	if o.MinViableChunks <= 0 {
		o.MinViableChunks = DefaultMinViableChunks
	}
}

// Retriever answers queries against the lexical and vector indexes and
// hydrates the winning chunks from storage.
type Retriever struct {
	store        storage.Store
	provider     *embedding.Provider
	vectorIndex  vector.Index
	lexicalIndex *lexical.Index
	opts         Options
	logger       *zap.Logger
}

// New creates a retriever with the given dependencies.
func New(
	store storage.Store,
	provider *embedding.Provider,
	vectorIndex vector.Index,
	lexicalIndex *lexical.Index,
	opts Options,
	logger *zap.Logger,
) *Retriever {
	opts.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{
		store:        store,
		provider:     provider,
		vectorIndex:  vectorIndex,
		lexicalIndex: lexicalIndex,
		opts:         opts,
		logger:       logger,
	}
}

// Retrieve runs hybrid retrieval for a raw query. topK <= 0 uses the
// configured default. The result's Succeeded flag is false when fewer than
// the minimum viable number of chunks survive filtering; surviving chunks
// are still returned.
//
// When the embedder is unavailable, retrieval degrades to lexical-only and
// the degradation is logged. An invalid query is not an error: it yields an
// empty, unsucceeded result, logged at Warn. Callers that need to surface a
// validation error to users run query.Validate themselves first.
func (r *Retriever) Retrieve(ctx context.Context, rawQuery string, topK int) (*models.RetrievalResult, error) {
	start := time.Now()
	if topK <= 0 {
		topK = r.opts.TopK
	}

	normalized := query.Normalize(rawQuery)
	if err := query.Validate(normalized); err != nil {
		r.logger.Warn("invalid query, returning empty result",
			zap.String("query", rawQuery), zap.Error(err))
		return &models.RetrievalResult{
			Chunks:    []*models.RetrievedChunk{},
			Succeeded: false,
			Query:     normalized,
			QueryTime: time.Since(start).Milliseconds(),
		}, nil
	}
	expanded := query.Expand(normalized)

	var (
		lexResults []lexical.Result
		vecResults []vector.Result
		errChan    = make(chan error, 2)
		wg         sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results, err := r.lexicalIndex.Search(ctx, expanded, r.opts.CandidatePool)
		if err != nil {
			errChan <- fmt.Errorf("lexical search failed: %w", err)
			return
		}
		lexResults = results
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		results, err := r.searchVector(ctx, normalized)
		if err != nil {
			errChan <- err
			return
		}
		vecResults = results
	}()

	wg.Wait()
	close(errChan)
	for err := range errChan {
		if err != nil {
			return nil, err
		}
	}

	fused := Fuse(lexResults, vecResults, r.opts.LexicalWeight, r.opts.VectorWeight)

	filtered := fused[:0]
	for _, s := range fused {
		if s.Fused >= r.opts.ScoreThreshold {
			filtered = append(filtered, s)
		}
	}
	if len(filtered) > topK {
		filtered = filtered[:topK]
	}

	chunks, err := r.hydrate(ctx, filtered)
	if err != nil {
		return nil, err
	}

	result := &models.RetrievalResult{
		Chunks:    chunks,
		Succeeded: len(chunks) >= r.opts.MinViableChunks,
		Query:     normalized,
		QueryTime: time.Since(start).Milliseconds(),
	}
	r.logRetrieval(ctx, result)
	return result, nil
}

// searchVector embeds the query and searches the vector index. An
// unavailable embedder yields no vector candidates rather than an error.
func (r *Retriever) searchVector(ctx context.Context, normalized string) ([]vector.Result, error) {
	embedder, err := r.provider.Get()
	if err != nil {
		if errors.Is(err, embedding.ErrUnavailable) {
			r.logger.Warn("embedder unavailable, lexical-only retrieval", zap.Error(err))
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get embedder: %w", err)
	}

	vecs, err := embedder.EmbedBatch(ctx, []string{normalized})
	if err != nil {
		if errors.Is(err, embedding.ErrUnavailable) {
			r.logger.Warn("query embedding failed, lexical-only retrieval", zap.Error(err))
			return nil, nil
		}
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vecs) == 0 {
		return nil, nil
	}

	// Raw cosine similarity feeds fusion unfiltered; the fused score
	// threshold is the only relevance gate.
	results, err := r.vectorIndex.Search(ctx, vecs[0], r.opts.CandidatePool, 0)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	return results, nil
}

// hydrate loads the scored chunks from storage, preserving fusion order.
// Ids present in an index but missing from storage (a generation swapped
// out mid-query) are dropped.
func (r *Retriever) hydrate(ctx context.Context, scored []*ScoredChunk) ([]*models.RetrievedChunk, error) {
	if len(scored) == 0 {
		return []*models.RetrievedChunk{}, nil
	}

	ids := make([]int64, len(scored))
	for i, s := range scored {
		ids[i] = s.ChunkID
	}
	rows, err := r.store.ChunksByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}
	byID := make(map[int64]*models.Chunk, len(rows))
	for _, c := range rows {
		byID[c.ID] = c
	}

	out := make([]*models.RetrievedChunk, 0, len(scored))
	for _, s := range scored {
		chunk, ok := byID[s.ChunkID]
		if !ok {
			r.logger.Debug("dropping stale index hit", zap.Int64("chunk_id", s.ChunkID))
			continue
		}
		out = append(out, &models.RetrievedChunk{
			Chunk:        *chunk,
			LexicalScore: s.Lexical,
			VectorScore:  s.Vector,
			FusedScore:   s.Fused,
		})
	}
	return out, nil
}

// logRetrieval writes an advisory audit record. Failures are logged and
// never fail the retrieval.
func (r *Retriever) logRetrieval(ctx context.Context, result *models.RetrievalResult) {
	if len(result.Chunks) == 0 {
		return
	}

	log := &models.RetrievalLog{
		ID:    uuid.New().String(),
		Query: result.Query,
	}
	min, max, sum := result.Chunks[0].FusedScore, result.Chunks[0].FusedScore, 0.0
	for _, c := range result.Chunks {
		log.ChunkIDs = append(log.ChunkIDs, c.ID)
		sum += c.FusedScore
		if c.FusedScore < min {
			min = c.FusedScore
		}
		if c.FusedScore > max {
			max = c.FusedScore
		}
	}
	log.AvgScore = sum / float64(len(result.Chunks))
	log.MinScore = min
	log.MaxScore = max

	if err := r.store.InsertRetrievalLog(ctx, log); err != nil {
		r.logger.Warn("failed to write retrieval log", zap.Error(err))
	}
}
