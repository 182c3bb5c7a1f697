package registry

import (
	"sync"

	"github.com/coder/hnsw"
)

const (
	hnswMaxNeighbors      = 16
	hnswEfSearch          = 64
	defaultHNSWCandidates = 8
)

// hnswIndex wraps the HNSW graph used as a candidate generator for large
// registries. Graph keys are enrollment sequence numbers; deleted sequences
// stay in the graph until the next rebuild and are filtered on lookup.
type hnswIndex struct {
	graph   *hnsw.Graph[int64]
	seqToID map[int64]string
	vectors map[int64][]float32
	stale   int
	mu      sync.RWMutex
}

func newHNSWIndex() *hnswIndex {
	return &hnswIndex{
		seqToID: make(map[int64]string),
		vectors: make(map[int64][]float32),
	}
}

func newGraph() *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors) // Standard HNSW formula
	g.EfSearch = hnswEfSearch
	g.Distance = hnsw.EuclideanDistance
	return g
}

func (h *hnswIndex) add(seq int64, id string, embedding []float32) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.graph == nil {
		h.graph = newGraph()
	}
	h.graph.Add(hnsw.MakeNode(seq, embedding))
	h.seqToID[seq] = id
	h.vectors[seq] = embedding
}

func (h *hnswIndex) delete(seq int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.seqToID[seq]; !ok {
		return
	}
	delete(h.seqToID, seq)
	delete(h.vectors, seq)
	h.stale++

	if h.stale > len(h.seqToID) {
		h.rebuildLocked()
	}
}

// rebuildLocked drops tombstoned nodes by building a fresh graph.
func (h *hnswIndex) rebuildLocked() {
	h.stale = 0
	if len(h.vectors) == 0 {
		h.graph = nil
		return
	}

	g := newGraph()
	for seq, v := range h.vectors {
		g.Add(hnsw.MakeNode(seq, v))
	}
	h.graph = g
}

// search returns the identifiers of up to k live nodes near query.
func (h *hnswIndex) search(query []float32, k int) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph == nil {
		return nil
	}

	// Ask for extra neighbours to make up for tombstones.
	neighbors := h.graph.Search(query, k+h.stale)

	ids := make([]string, 0, k)
	for _, n := range neighbors {
		id, ok := h.seqToID[n.Key]
		if !ok {
			continue
		}
		ids = append(ids, id)
		if len(ids) == k {
			break
		}
	}
	return ids
}
