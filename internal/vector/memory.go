package vector

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// MemoryIndex is the exact brute-force fallback: a linear O(N·D) scan
// computing true cosine similarity. Correctness does not depend on an
// accelerated structure being present; this is always a valid backend.
type MemoryIndex struct {
	dimensions int
	vectors    map[int64][]float32
	mu         sync.RWMutex
}

// NewMemoryIndex creates an in-memory vector index with the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive, got %d", dimensions)
	}
	return &MemoryIndex{
		dimensions: dimensions,
		vectors:    make(map[int64][]float32),
	}, nil
}

// Kind returns "memory".
func (m *MemoryIndex) Kind() string { return "memory" }

// Upsert inserts or replaces the vector for chunkID.
func (m *MemoryIndex) Upsert(ctx context.Context, chunkID int64, vec []float32) error {
	if len(vec) != m.dimensions {
		return fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(vec), m.dimensions)
	}
	stored := make([]float32, m.dimensions)
	copy(stored, vec)
	m.mu.Lock()
	m.vectors[chunkID] = stored
	m.mu.Unlock()
	return nil
}

// Search scans all stored vectors and returns up to topK with cosine
// similarity at or above threshold.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, topK int, threshold float64) ([]Result, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(query), m.dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if topK <= 0 || len(m.vectors) == 0 {
		return nil, nil
	}

	results := make([]Result, 0, len(m.vectors))
	for id, vec := range m.vectors {
		sim := Cosine(query, vec)
		if sim < threshold {
			continue
		}
		results = append(results, Result{ChunkID: id, Similarity: sim})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ChunkID < results[j].ChunkID
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Delete removes the vector for chunkID. Absent ids are a no-op.
func (m *MemoryIndex) Delete(ctx context.Context, chunkID int64) error {
	m.mu.Lock()
	delete(m.vectors, chunkID)
	m.mu.Unlock()
	return nil
}

// Size returns the number of stored vectors.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.vectors)
}

// Save persists the index to path. Format: dimension (4), n (4), then per
// vector: id (8), vector (dimension*4), all little-endian.
func (m *MemoryIndex) Save(path string) error {
	if path == "" {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer f.Close()
	if err := binary.Write(f, binary.LittleEndian, uint32(m.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(len(m.vectors))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for id, vec := range m.vectors {
		if err := binary.Write(f, binary.LittleEndian, id); err != nil {
			return fmt.Errorf("write id: %w", err)
		}
		if err := binary.Write(f, binary.LittleEndian, vec); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// Load replaces the index contents from path. A missing file is not an
// error; the index is left unchanged. Dimensions must match.
func (m *MemoryIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()
	var dim, n uint32
	if err := binary.Read(f, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("read dimensions: %w", err)
	}
	if int(dim) != m.dimensions {
		return fmt.Errorf("%w: file has %d, index expects %d", ErrDimensionMismatch, dim, m.dimensions)
	}
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("read count: %w", err)
	}
	vectors := make(map[int64][]float32, n)
	for i := uint32(0); i < n; i++ {
		var id int64
		if err := binary.Read(f, binary.LittleEndian, &id); err != nil {
			return fmt.Errorf("read id: %w", err)
		}
		vec := make([]float32, m.dimensions)
		if err := binary.Read(f, binary.LittleEndian, vec); err != nil {
			return fmt.Errorf("read vector: %w", err)
		}
		vectors[id] = vec
	}
	m.mu.Lock()
	m.vectors = vectors
	m.mu.Unlock()
	return nil
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}

// Cosine returns the cosine similarity of two vectors, clamped to [0,1].
// Zero vectors yield 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return math.Max(0, math.Min(1, sim))
}
