// Package registry holds the enrolled face embeddings and answers
// nearest-neighbour queries against them.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/kozaktomas/facetrack/internal/facematch"
)

var (
	// ErrEmptyRegistry is returned by FindNearest when nothing is enrolled.
	ErrEmptyRegistry = errors.New("registry is empty")
	// ErrInvalidIdentifier is returned for identifiers that are blank after normalization.
	ErrInvalidIdentifier = errors.New("invalid identifier")
)

// EnrolledFace is a single enrollment: a unique identifier and its embedding.
type EnrolledFace struct {
	Identifier string    `json:"identifier"`
	Embedding  []float32 `json:"-"`
}

// Match is one registry entry scored against a query embedding.
type Match struct {
	Identifier string  `json:"identifier"`
	Distance   float64 `json:"distance"`
}

// Nearest holds the two closest entries to a query.
// With a single enrolled face SecondBest equals Best.
type Nearest struct {
	Best       Match `json:"best"`
	SecondBest Match `json:"second_best"`
}

// Options configures a Registry.
type Options struct {
	// Dimension is the required embedding length.
	Dimension int
	// HNSWMinEntries enables the approximate candidate index once the registry
	// holds at least this many faces. Zero disables the index.
	HNSWMinEntries int
	// HNSWCandidates is how many candidates the index returns for exact re-ranking.
	HNSWCandidates int
}

type entry struct {
	face EnrolledFace
	seq  int64
}

// Registry maps identifiers to embeddings. Iteration order is insertion
// order; re-enrolling an identifier moves it to the end.
// Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	opts    Options
	order   []string
	entries map[string]*entry
	seq     int64
	index   *hnswIndex
}

// New creates an empty registry.
func New(opts Options) *Registry {
	if opts.HNSWCandidates <= 0 {
		opts.HNSWCandidates = defaultHNSWCandidates
	}
	r := &Registry{
		opts:    opts,
		entries: make(map[string]*entry),
	}
	if opts.HNSWMinEntries > 0 {
		r.index = newHNSWIndex()
	}
	return r
}

// Enroll inserts or replaces the embedding for identifier.
// An existing entry is removed first so the new one lands at the end of the
// iteration order.
func (r *Registry) Enroll(identifier string, embedding []float32) error {
	id := facematch.NormalizeIdentifier(identifier)
	if id == "" {
		return ErrInvalidIdentifier
	}
	if r.opts.Dimension > 0 && len(embedding) != r.opts.Dimension {
		return fmt.Errorf("enroll %q: got %d values, want %d: %w",
			id, len(embedding), r.opts.Dimension, facematch.ErrDimensionMismatch)
	}

	emb := make([]float32, len(embedding))
	copy(emb, embedding)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeLocked(id)

	r.seq++
	e := &entry{face: EnrolledFace{Identifier: id, Embedding: emb}, seq: r.seq}
	r.entries[id] = e
	r.order = append(r.order, id)
	if r.index != nil {
		r.index.add(e.seq, id, emb)
	}

	return nil
}

// Remove deletes identifier. Removing an unknown identifier is a no-op.
func (r *Registry) Remove(identifier string) {
	id := facematch.NormalizeIdentifier(identifier)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(id)
}

func (r *Registry) removeLocked(id string) {
	e, ok := r.entries[id]
	if !ok {
		return
	}
	delete(r.entries, id)
	for i, o := range r.order {
		if o == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if r.index != nil {
		r.index.delete(e.seq)
	}
}

// Get returns the enrollment for identifier.
func (r *Registry) Get(identifier string) (EnrolledFace, bool) {
	id := facematch.NormalizeIdentifier(identifier)

	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return EnrolledFace{}, false
	}
	return copyFace(e.face), true
}

// All returns every enrollment in insertion order.
func (r *Registry) All() []EnrolledFace {
	r.mu.RLock()
	defer r.mu.RUnlock()

	faces := make([]EnrolledFace, 0, len(r.order))
	for _, id := range r.order {
		faces = append(faces, copyFace(r.entries[id].face))
	}
	return faces
}

// Len returns the number of enrolled faces.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// FindNearest returns the closest and second-closest enrollments to query by
// Euclidean distance. Ties resolve to the entry enrolled first.
func (r *Registry) FindNearest(query []float32) (Nearest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.order) == 0 {
		return Nearest{}, ErrEmptyRegistry
	}
	if r.opts.Dimension > 0 && len(query) != r.opts.Dimension {
		return Nearest{}, fmt.Errorf("query has %d values, want %d: %w",
			len(query), r.opts.Dimension, facematch.ErrDimensionMismatch)
	}

	if r.index != nil && len(r.order) >= r.opts.HNSWMinEntries {
		if n, ok, err := r.findNearestIndexed(query); err != nil || ok {
			return n, err
		}
	}

	return r.findNearestLinear(query)
}

func (r *Registry) findNearestLinear(query []float32) (Nearest, error) {
	var best, second Match
	found, foundSecond := false, false

	for _, id := range r.order {
		d, err := facematch.EuclideanDistance(query, r.entries[id].face.Embedding)
		if err != nil {
			return Nearest{}, fmt.Errorf("compare with %q: %w", id, err)
		}
		m := Match{Identifier: id, Distance: d}
		switch {
		case !found || d < best.Distance:
			if found {
				second, foundSecond = best, true
			}
			best, found = m, true
		case !foundSecond || d < second.Distance:
			second, foundSecond = m, true
		}
	}

	if !foundSecond {
		second = best
	}
	return Nearest{Best: best, SecondBest: second}, nil
}

// findNearestIndexed asks the HNSW index for candidates and re-ranks them
// exactly. ok is false when the index produced nothing usable.
func (r *Registry) findNearestIndexed(query []float32) (Nearest, bool, error) {
	ids := r.index.search(query, r.opts.HNSWCandidates)

	type scored struct {
		match Match
		seq   int64
	}
	candidates := make([]scored, 0, len(ids))
	for _, id := range ids {
		e, ok := r.entries[id]
		if !ok {
			continue
		}
		d, err := facematch.EuclideanDistance(query, e.face.Embedding)
		if err != nil {
			return Nearest{}, false, fmt.Errorf("compare with %q: %w", id, err)
		}
		candidates = append(candidates, scored{Match{Identifier: id, Distance: d}, e.seq})
	}
	if len(candidates) == 0 {
		return Nearest{}, false, nil
	}

	// Stable by enrollment sequence so ties keep the first-enrolled entry.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].match.Distance != candidates[j].match.Distance {
			return candidates[i].match.Distance < candidates[j].match.Distance
		}
		return candidates[i].seq < candidates[j].seq
	})

	n := Nearest{Best: candidates[0].match, SecondBest: candidates[0].match}
	if len(candidates) > 1 {
		n.SecondBest = candidates[1].match
	}
	return n, true, nil
}

func copyFace(f EnrolledFace) EnrolledFace {
	emb := make([]float32, len(f.Embedding))
	copy(emb, f.Embedding)
	return EnrolledFace{Identifier: f.Identifier, Embedding: emb}
}
