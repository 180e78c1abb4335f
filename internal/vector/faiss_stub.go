//go:build !faiss || !cgo
// +build !faiss !cgo

package vector

import "errors"

// FAISSIndex stub when built without -tags=faiss (see faiss.go).
type FAISSIndex struct{}

// NewFAISSIndex returns an error when FAISS support is not compiled in.
func NewFAISSIndex(_ int) (Index, error) {
	return nil, errors.New("FAISS support not compiled in (build with -tags=faiss and CGO)")
}
