package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

type memoryEntry struct {
	vector  []float32
	payload Payload
}

// MemoryIndex is an exact-search in-process store: a full linear cosine scan
// per query. Suitable for tests and single-instance deployments.
type MemoryIndex struct {
	mu          sync.RWMutex
	collections map[string][]memoryEntry
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{collections: make(map[string][]memoryEntry)}
}

func (m *MemoryIndex) Upsert(_ context.Context, collection string, vectors [][]float32, payloads []Payload) error {
	if len(vectors) != len(payloads) {
		return fmt.Errorf("vectors and payloads length mismatch: %d != %d", len(vectors), len(payloads))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.collections[collection]
	for i := range vectors {
		entry := memoryEntry{vector: vectors[i], payload: payloads[i]}
		replaced := false
		for j := range entries {
			if entries[j].payload.ID == entry.payload.ID {
				entries[j] = entry
				replaced = true
				break
			}
		}
		if !replaced {
			entries = append(entries, entry)
		}
	}
	m.collections[collection] = entries
	return nil
}

func (m *MemoryIndex) Query(_ context.Context, collection string, vector []float32, topK int) ([]Hit, error) {
	if topK <= 0 {
		topK = 5
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := m.collections[collection]
	hits := make([]Hit, 0, len(entries))
	for _, e := range entries {
		hits = append(hits, Hit{Score: cosine(vector, e.vector), Payload: e.payload})
	}

	// Stable sort keeps insertion order on score ties.
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if topK < len(hits) {
		hits = hits[:topK]
	}
	return hits, nil
}

func (m *MemoryIndex) Count(_ context.Context, collection string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.collections[collection]), nil
}

func (m *MemoryIndex) Stats(_ context.Context) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make(map[string]int, len(m.collections))
	for name, entries := range m.collections {
		stats[name] = len(entries)
	}
	return stats, nil
}

// cosine returns the cosine similarity of a and b, or 0 when either vector
// has zero magnitude.
func cosine(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	for _, x := range a {
		na += float64(x) * float64(x)
	}
	for _, x := range b {
		nb += float64(x) * float64(x)
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
