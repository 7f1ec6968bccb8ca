// Package refcache implements the memoization machinery behind the
// per-repository ref cache: a process-wide registry, lazily-loaded
// per-key values with an implicit "loaded" flag (cache presence), and
// explicit invalidation.
//
// Rather than a process-wide linked list of caches keyed by submodule
// name, this package keeps a mapping from submodule name to cache,
// built on a real cache library (ristretto) instead of a bespoke map,
// so eviction and an entry-count bound come for free, and a singleflight.Group
// so concurrent misses for the same key collapse into one loader call
// instead of racing duplicate disk walks.
package refcache

import (
	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/sync/singleflight"
)

// Loader produces the value for a cache miss.
type Loader func() (any, error)

// Registry is a process-wide, key-addressed memoization cache.
type Registry struct {
	store *ristretto.Cache[string, any]
	group singleflight.Group
}

// NewRegistry creates a Registry sized for a modest number of
// repositories/submodules, each holding a handful of reference arrays.
func NewRegistry() *Registry {
	c, err := ristretto.NewCache(&ristretto.Config[string, any]{
		NumCounters: 1e4,
		MaxCost:     1 << 26, // every entry is Set with cost 1, so this caps the entry count
		BufferItems: 64,
	})
	if err != nil {
		// NumCounters/MaxCost/BufferItems above are fixed constants
		// known to be valid; ristretto only errors on misconfiguration.
		panic(err)
	}
	return &Registry{store: c}
}

// GetOrLoad returns the memoized value for key, loading it with load on
// a miss. Concurrent misses for the same key share one load call.
func (r *Registry) GetOrLoad(key string, load Loader) (any, error) {
	if v, ok := r.store.Get(key); ok {
		return v, nil
	}
	v, err, _ := r.group.Do(key, func() (any, error) {
		if v, ok := r.store.Get(key); ok {
			return v, nil
		}
		val, err := load()
		if err != nil {
			return nil, err
		}
		r.store.Set(key, val, 1)
		r.store.Wait()
		return val, nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Invalidate drops key, forcing the next GetOrLoad to reload it.
func (r *Registry) Invalidate(key string) {
	r.store.Del(key)
	r.group.Forget(key)
}

// Close releases the Registry's background resources.
func (r *Registry) Close() { r.store.Close() }
