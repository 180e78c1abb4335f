package vector

import (
	"fmt"

	"go.uber.org/zap"
)

// Kind identifiers for the factory.
const (
	KindMemory = "memory"
	KindFAISS  = "faiss"
	// KindAuto probes for FAISS once at startup and falls back to the
	// brute-force memory index. The choice is made here, not per call, so
	// the active mode is fixed and observable for the process lifetime.
	KindAuto = "auto"
)

// New creates a vector index of the requested kind.
func New(kind string, dimensions int, logger *zap.Logger) (Index, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch kind {
	case KindMemory, "":
		return NewMemoryIndex(dimensions)
	case KindFAISS:
		return NewFAISSIndex(dimensions)
	case KindAuto:
		if idx, err := NewFAISSIndex(dimensions); err == nil {
			logger.Info("vector index: FAISS", zap.Int("dimensions", dimensions))
			return idx, nil
		} else {
			logger.Warn("FAISS unavailable, using brute-force scan", zap.Error(err))
		}
		return NewMemoryIndex(dimensions)
	default:
		return nil, fmt.Errorf("unknown vector index kind: %s (supported: memory, faiss, auto)", kind)
	}
}

// FAISSAvailable reports whether FAISS support is compiled in
// (build tag -tags=faiss with CGO).
func FAISSAvailable() bool {
	idx, err := NewFAISSIndex(1)
	if err != nil {
		return false
	}
	_ = idx.Close()
	return true
}
