package index

import (
	"fmt"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/metrics"
)

// Registry caches the most recently observed descriptor set per collection.
// Each entry is an immutable slice replaced wholesale, so a reader sees either
// the old or the new set. Writers are serialized so a read-modify-write
// never publishes over a concurrent one. The cache is advisory and may be
// stale.
type Registry struct {
	mu      sync.Mutex
	cache   *lru.Cache[string, []Descriptor]
	hits    atomic.Uint64
	misses  atomic.Uint64
	metrics *metrics.Metrics
}

// NewRegistry creates a registry holding at most capacity collections.
func NewRegistry(capacity int, m *metrics.Metrics) (*Registry, error) {
	c, err := lru.New[string, []Descriptor](capacity)
	if err != nil {
		return nil, fmt.Errorf("creating registry cache: %w", err)
	}
	return &Registry{cache: c, metrics: m}, nil
}

// Get returns a caller-owned copy of the cached set for collection.
func (r *Registry) Get(collection string) ([]Descriptor, bool) {
	ds, ok := r.cache.Get(collection)
	r.metrics.RegistryLookup(ok)
	if !ok {
		r.misses.Add(1)
		return nil, false
	}
	r.hits.Add(1)
	return cloneAll(ds), true
}

// Replace publishes ds as the full set for collection.
func (r *Registry) Replace(collection string, ds []Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Add(collection, cloneAll(ds))
}

// Upsert publishes a new set with d added or replacing the entry with the
// same ID. It does nothing when no set is cached for collection.
func (r *Registry) Upsert(collection string, d Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.cache.Peek(collection)
	if !ok {
		return
	}
	next := make([]Descriptor, 0, len(cur)+1)
	replaced := false
	for _, e := range cur {
		if e.ID == d.ID {
			next = append(next, d.Clone())
			replaced = true
			continue
		}
		next = append(next, e)
	}
	if !replaced {
		next = append(next, d.Clone())
	}
	r.cache.Add(collection, next)
}

// Remove publishes a new set without id. It does nothing when no set is
// cached for collection.
func (r *Registry) Remove(collection, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.cache.Peek(collection)
	if !ok {
		return
	}
	next := make([]Descriptor, 0, len(cur))
	for _, e := range cur {
		if e.ID != id {
			next = append(next, e)
		}
	}
	r.cache.Add(collection, next)
}

// Resolve maps an index name to its handle using the cached set. ok is false
// when there is no set or no index carries that name.
func (r *Registry) Resolve(collection, name string) (handle string, ok bool) {
	cur, found := r.cache.Peek(collection)
	if !found {
		return "", false
	}
	for _, e := range cur {
		if e.Name == name {
			return e.Handle(), true
		}
	}
	return "", false
}

// Lookup returns the cached descriptor with id without counting a lookup.
func (r *Registry) Lookup(collection, id string) (Descriptor, bool) {
	cur, found := r.cache.Peek(collection)
	if !found {
		return Descriptor{}, false
	}
	for _, e := range cur {
		if e.ID == id {
			return e.Clone(), true
		}
	}
	return Descriptor{}, false
}

// Invalidate drops the cached set for collection.
func (r *Registry) Invalidate(collection string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Remove(collection)
}

func (r *Registry) Len() int {
	return r.cache.Len()
}

// Stats returns the hit and miss counts of Get.
func (r *Registry) Stats() (hits, misses uint64) {
	return r.hits.Load(), r.misses.Load()
}
