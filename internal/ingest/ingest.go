package ingest

import (
	"context"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/feedforge/ragcore/internal/extract"
	"github.com/feedforge/ragcore/internal/indexer"
	"github.com/feedforge/ragcore/internal/models"
)

// Service ties the drop-dir watcher to extraction and indexing. Each file
// under the root becomes a source whose id is the slash-separated path
// relative to the root, so moves within the tree re-index under a new id
// and overwrites replace the old generation.
type Service struct {
	root      string
	indexer   *indexer.Indexer
	extractor *extract.Extractor
	watcher   *Watcher
	logger    *zap.Logger
}

// NewService creates an ingest service rooted at dir.
func NewService(dir string, idx *indexer.Indexer, logger *zap.Logger) (*Service, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		root:      abs,
		indexer:   idx,
		extractor: extract.NewExtractor(),
		logger:    logger,
	}
	s.watcher = NewWatcher(abs, s.indexFile, s.removeFile, logger)
	return s, nil
}

// Start watches the drop directory and indexes files already present.
func (s *Service) Start(ctx context.Context) error {
	if err := s.watcher.Start(ctx); err != nil {
		return err
	}
	go s.watcher.SyncExisting()
	return nil
}

// Stop stops the watcher.
func (s *Service) Stop() {
	s.watcher.Stop()
}

// SourceID derives the source id for a file path under the root.
func (s *Service) SourceID(path string) string {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	return filepath.ToSlash(rel)
}

func (s *Service) indexFile(path string) {
	ctx := context.Background()
	text, err := s.extractor.Extract(path)
	if err != nil {
		s.logger.Error("failed to extract file",
			zap.String("path", path), zap.Error(err))
		return
	}

	sourceID := s.SourceID(path)
	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	n, err := s.indexer.IndexSource(ctx, &models.SourceDocument{
		ID:      sourceID,
		Title:   title,
		Content: text,
		Kind:    models.SourceKindExternalDoc,
	})
	if err != nil {
		s.logger.Error("failed to index file",
			zap.String("path", path), zap.Error(err))
		return
	}
	s.logger.Info("file ingested",
		zap.String("source_id", sourceID), zap.Int("chunks", n))
}

func (s *Service) removeFile(path string) {
	sourceID := s.SourceID(path)
	if err := s.indexer.PurgeSource(context.Background(), sourceID); err != nil {
		s.logger.Error("failed to purge removed file",
			zap.String("source_id", sourceID), zap.Error(err))
		return
	}
	s.logger.Info("file removed from index", zap.String("source_id", sourceID))
}
