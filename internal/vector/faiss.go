//go:build faiss && cgo
// +build faiss,cgo

package vector

/*
#cgo CFLAGS: -I/opt/homebrew/include -I/usr/local/include
#cgo LDFLAGS: -L/opt/homebrew/lib -L/usr/local/lib -lfaiss_c

#include <stdlib.h>
#include <faiss/c_api/Index_c.h>
#include <faiss/c_api/IndexFlat_c.h>
#include <faiss/c_api/index_io_c.h>
#include <faiss/c_api/error_c.h>
*/
import "C"

import (
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"unsafe"
)

// faissIndex uses FAISS IndexFlatIP over L2-normalized vectors, which is
// equivalent to cosine similarity. Deletions and replacements are handled
// by tombstoning the FAISS slot (the flat index cannot remove rows); search
// over-fetches to compensate and filters tombstoned slots out.
type faissIndex struct {
	index      *C.FaissIndexFlatIP
	dimensions int
	slotByID   map[int64]int64
	idBySlot   map[int64]int64
	nextSlot   int64
	dead       int64
	mu         sync.RWMutex
}

// NewFAISSIndex creates a FAISS-backed index with the given dimension.
func NewFAISSIndex(dimensions int) (Index, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive, got %d", dimensions)
	}
	var index *C.FaissIndexFlatIP
	if ret := C.faiss_IndexFlatIP_new_with(&index, C.idx_t(dimensions)); ret != 0 {
		return nil, fmt.Errorf("create FAISS index: %s", faissLastError())
	}
	return &faissIndex{
		index:      index,
		dimensions: dimensions,
		slotByID:   make(map[int64]int64),
		idBySlot:   make(map[int64]int64),
	}, nil
}

func faissLastError() string {
	cErr := C.faiss_get_last_error()
	if cErr == nil {
		return "unknown error"
	}
	return C.GoString(cErr)
}

// Kind returns "faiss".
func (f *faissIndex) Kind() string { return KindFAISS }

// Upsert appends the vector and tombstones any previous slot for this id.
func (f *faissIndex) Upsert(ctx context.Context, chunkID int64, vec []float32) error {
	if len(vec) != f.dimensions {
		return fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(vec), f.dimensions)
	}
	normalized := make([]float32, f.dimensions)
	copy(normalized, vec)
	normalizeUnit(normalized)

	f.mu.Lock()
	defer f.mu.Unlock()
	if old, ok := f.slotByID[chunkID]; ok {
		delete(f.idBySlot, old)
		f.dead++
	}
	if ret := C.faiss_Index_add(f.index, 1, (*C.float)(unsafe.Pointer(&normalized[0]))); ret != 0 {
		return fmt.Errorf("add vector to FAISS index: %s", faissLastError())
	}
	f.slotByID[chunkID] = f.nextSlot
	f.idBySlot[f.nextSlot] = chunkID
	f.nextSlot++
	return nil
}

// Search returns the nearest stored vectors at or above threshold.
func (f *faissIndex) Search(ctx context.Context, query []float32, topK int, threshold float64) ([]Result, error) {
	if len(query) != f.dimensions {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(query), f.dimensions)
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if topK <= 0 || len(f.slotByID) == 0 {
		return nil, nil
	}

	normalized := make([]float32, f.dimensions)
	copy(normalized, query)
	normalizeUnit(normalized)

	// Over-fetch by the tombstone count so live results are not crowded out.
	k := int64(topK) + f.dead
	total := int64(C.faiss_Index_ntotal(f.index))
	if k > total {
		k = total
	}
	distances := make([]float32, k)
	labels := make([]int64, k)
	ret := C.faiss_Index_search(
		f.index,
		1,
		(*C.float)(unsafe.Pointer(&normalized[0])),
		C.idx_t(k),
		(*C.float)(unsafe.Pointer(&distances[0])),
		(*C.idx_t)(unsafe.Pointer(&labels[0])),
	)
	if ret != 0 {
		return nil, fmt.Errorf("FAISS search failed: %s", faissLastError())
	}

	results := make([]Result, 0, topK)
	for i := range labels {
		if labels[i] < 0 {
			continue
		}
		id, live := f.idBySlot[labels[i]]
		if !live {
			continue
		}
		sim := math.Max(0, math.Min(1, float64(distances[i])))
		if sim < threshold {
			continue
		}
		results = append(results, Result{ChunkID: id, Similarity: sim})
		if len(results) == topK {
			break
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ChunkID < results[j].ChunkID
	})
	return results, nil
}

// Delete tombstones the slot for chunkID. Absent ids are a no-op.
func (f *faissIndex) Delete(ctx context.Context, chunkID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if slot, ok := f.slotByID[chunkID]; ok {
		delete(f.slotByID, chunkID)
		delete(f.idBySlot, slot)
		f.dead++
	}
	return nil
}

// Size returns the number of live vectors.
func (f *faissIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.slotByID)
}

type faissState struct {
	SlotByID map[int64]int64
	IDBySlot map[int64]int64
	NextSlot int64
	Dead     int64
}

// Save persists the FAISS index and slot mappings at path.
func (f *faissIndex) Save(path string) error {
	if path == "" {
		return nil
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	cPath := C.CString(path + ".faiss")
	defer C.free(unsafe.Pointer(cPath))
	if ret := C.faiss_write_index_fname(f.index, cPath); ret != 0 {
		return fmt.Errorf("save FAISS index: %s", faissLastError())
	}
	mapFile, err := os.Create(path + ".slots")
	if err != nil {
		return fmt.Errorf("create slot map file: %w", err)
	}
	defer mapFile.Close()
	state := faissState{SlotByID: f.slotByID, IDBySlot: f.idBySlot, NextSlot: f.nextSlot, Dead: f.dead}
	if err := gob.NewEncoder(mapFile).Encode(state); err != nil {
		return fmt.Errorf("encode slot map: %w", err)
	}
	return nil
}

// Load restores the FAISS index and slot mappings from path. Missing files
// are not an error.
func (f *faissIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	faissPath := path + ".faiss"
	if _, err := os.Stat(faissPath); os.IsNotExist(err) {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	cPath := C.CString(faissPath)
	defer C.free(unsafe.Pointer(cPath))
	var loaded *C.FaissIndex
	if ret := C.faiss_read_index_fname(cPath, 0, &loaded); ret != 0 {
		return fmt.Errorf("load FAISS index: %s", faissLastError())
	}
	if f.index != nil {
		C.faiss_Index_free(f.index)
	}
	f.index = loaded

	mapFile, err := os.Open(path + ".slots")
	if err != nil {
		if os.IsNotExist(err) {
			f.slotByID = make(map[int64]int64)
			f.idBySlot = make(map[int64]int64)
			f.nextSlot = 0
			f.dead = 0
			return nil
		}
		return fmt.Errorf("open slot map: %w", err)
	}
	defer mapFile.Close()
	var state faissState
	if err := gob.NewDecoder(mapFile).Decode(&state); err != nil {
		return fmt.Errorf("decode slot map: %w", err)
	}
	f.slotByID = state.SlotByID
	f.idBySlot = state.IDBySlot
	f.nextSlot = state.NextSlot
	f.dead = state.Dead
	return nil
}

// Close frees the FAISS index.
func (f *faissIndex) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.index != nil {
		C.faiss_Index_free(f.index)
		f.index = nil
	}
	return nil
}

// normalizeUnit scales the vector to unit L2 norm in place.
func normalizeUnit(x []float32) {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(1.0 / math.Sqrt(sum))
	for i := range x {
		x[i] *= norm
	}
}
