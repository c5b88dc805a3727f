package track

import (
	"sync"
	"sync/atomic"
)

// Registry is an id-indexed collection of tracks. Control callbacks
// address tracks by id, the render thread iterates a copy-on-write
// snapshot without taking locks.
type Registry struct {
	mu     sync.Mutex
	index  map[string]*Track
	tracks atomic.Value // []*Track
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	r := &Registry{
		index: make(map[string]*Track),
	}
	r.tracks.Store([]*Track(nil))
	return r
}

// Add registers a track and returns its id.
func (r *Registry) Add(t *Track) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.index[t.ID()] = t
	old := r.tracks.Load().([]*Track)
	tracks := make([]*Track, len(old), len(old)+1)
	copy(tracks, old)
	r.tracks.Store(append(tracks, t))
	return t.ID()
}

// Get returns a track by id.
func (r *Registry) Get(id string) (*Track, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.index[id]
	return t, ok
}

// Tracks returns the current snapshot. The returned slice must not be
// modified.
func (r *Registry) Tracks() []*Track {
	return r.tracks.Load().([]*Track)
}

// Each calls fn for every track in the registry.
func (r *Registry) Each(fn func(*Track)) {
	for _, t := range r.Tracks() {
		fn(t)
	}
}
