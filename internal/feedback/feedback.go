// Package feedback folds approved outputs back into the retrieval corpus,
// so future queries can draw on content that already passed review.
package feedback

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/feedforge/ragcore/internal/indexer"
	"github.com/feedforge/ragcore/internal/models"
	"github.com/feedforge/ragcore/internal/storage"
)

// Loop indexes approved outputs as retrieval sources. Each output becomes a
// synthetic source whose id is derived from the output id, so re-processing
// the same output is idempotent.
type Loop struct {
	store   storage.Store
	indexer *indexer.Indexer
	logger  *zap.Logger
}

// New creates a feedback loop.
func New(store storage.Store, idx *indexer.Indexer, logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{store: store, indexer: idx, logger: logger}
}

// SourceID returns the synthetic source id for an output.
func SourceID(out *models.Output) string {
	if out.IsReply {
		return fmt.Sprintf("approved-reply-%d", out.ID)
	}
	return fmt.Sprintf("approved-output-%d", out.ID)
}

// IngestApproved indexes one approved output. Replies are indexed together
// with their parent's content so the chunk carries the conversation
// context. Outputs that are not approved are rejected; outputs already
// ingested are skipped. It returns the number of chunks indexed (zero for
// a skip).
func (l *Loop) IngestApproved(ctx context.Context, out *models.Output) (int, error) {
	if !out.Approved() {
		return 0, fmt.Errorf("output %d is %s, not approved", out.ID, out.Status)
	}

	sourceID := SourceID(out)
	exists, err := l.store.HasChunks(ctx, sourceID)
	if err != nil {
		return 0, fmt.Errorf("failed to check source %s: %w", sourceID, err)
	}
	if exists {
		l.logger.Debug("output already ingested", zap.Int64("output_id", out.ID))
		return 0, nil
	}

	content := out.Content
	kind := models.SourceKindApprovedOutput
	if out.IsReply {
		kind = models.SourceKindApprovedReply
		if out.ParentID != nil {
			parent, err := l.store.GetOutput(ctx, *out.ParentID)
			if err != nil {
				return 0, fmt.Errorf("failed to load parent of output %d: %w", out.ID, err)
			}
			content = parent.Content + "\n\n" + out.Content
		}
	}

	n, err := l.indexer.IndexSource(ctx, &models.SourceDocument{
		ID:      sourceID,
		Content: content,
		Kind:    kind,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to index output %d: %w", out.ID, err)
	}
	l.logger.Info("approved output ingested",
		zap.Int64("output_id", out.ID),
		zap.String("source_id", sourceID),
		zap.Int("chunks", n),
	)
	return n, nil
}

// Report summarizes one ProcessPending run.
type Report struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Chunks    int `json:"chunks"`
}

// ProcessPending ingests every approved output that is not yet in the
// corpus. Failures are isolated per output: one bad output does not stop
// the rest, and the report counts it as failed.
func (l *Loop) ProcessPending(ctx context.Context) (*Report, error) {
	outputs, err := l.store.ListApprovedOutputs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list approved outputs: %w", err)
	}

	report := &Report{}
	for _, out := range outputs {
		n, err := l.IngestApproved(ctx, out)
		switch {
		case err != nil:
			l.logger.Error("failed to ingest output",
				zap.Int64("output_id", out.ID), zap.Error(err))
			report.Failed++
		case n == 0:
			report.Skipped++
		default:
			report.Processed++
			report.Chunks += n
		}
	}
	return report, nil
}
