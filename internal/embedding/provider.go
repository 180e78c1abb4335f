package embedding

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Config holds model settings for the provider.
type Config struct {
	ModelPath  string
	Dimensions int
	MaxTokens  int
	CacheSize  int
}

// Provider owns the process-wide embedder instance. Model loading is
// expensive, so it happens at most once; every caller shares the result.
// The provider is constructed at the application root and injected into the
// indexer and retriever; there is no package-level global.
type Provider struct {
	cfg    Config
	logger *zap.Logger

	once     sync.Once
	embedder Embedder
	err      error
}

// NewProvider creates a provider; the model is not loaded until Get.
func NewProvider(cfg Config, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = 384
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 256
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 10000
	}
	return &Provider{cfg: cfg, logger: logger}
}

// Get returns the shared embedder, loading the model on the first call.
// Concurrent first callers block until the single load finishes; all calls
// after a failed load return the same ErrUnavailable-wrapped error.
func (p *Provider) Get() (Embedder, error) {
	p.once.Do(func() {
		emb, err := NewONNXEmbedder(p.cfg.ModelPath, p.cfg.Dimensions, p.cfg.MaxTokens, p.cfg.CacheSize)
		if err != nil {
			p.logger.Warn("embedding model unavailable, lexical-only retrieval",
				zap.String("model_path", p.cfg.ModelPath), zap.Error(err))
			if !errors.Is(err, ErrUnavailable) {
				err = fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
			p.err = err
			return
		}
		p.logger.Info("embedding model loaded",
			zap.String("model_path", p.cfg.ModelPath), zap.Int("dimensions", p.cfg.Dimensions))
		p.embedder = emb
	})
	return p.embedder, p.err
}

// Close releases the loaded model, if any.
func (p *Provider) Close() error {
	if p.embedder != nil {
		return p.embedder.Close()
	}
	return nil
}

// NewStaticProvider wraps an already constructed embedder (tests, mock
// deployments) in a Provider.
func NewStaticProvider(e Embedder) *Provider {
	p := &Provider{logger: zap.NewNop()}
	p.once.Do(func() { p.embedder = e })
	return p
}
