package refs

import (
	"path/filepath"
	"sync"

	"github.com/zeta-scm/refstore/refcache"
)

// Cache is the per-repository ref cache: two arrays (loose, packed),
// each loaded on first demand and retained until invalidated. ""
// denotes the main repository; any other string names a submodule,
// and repoPath is that submodule's own on-disk root.
type Cache struct {
	submodule string
	repoPath  string
	reg       *refcache.Registry
}

func newCache(reg *refcache.Registry, submodule, repoPath string) *Cache {
	return &Cache{submodule: submodule, repoPath: repoPath, reg: reg}
}

func (c *Cache) looseKey() string  { return c.submodule + "\x00loose" }
func (c *Cache) packedKey() string { return c.submodule + "\x00packed" }

// Loose returns the memoized loose-reference array, loading it on
// first use.
func (c *Cache) Loose() (*Array, error) {
	v, err := c.reg.GetOrLoad(c.looseKey(), func() (any, error) {
		return WalkLooseRefs(c.repoPath)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Array), nil
}

// Packed returns the memoized packed-refs array, loading it on first
// use.
func (c *Cache) Packed() (*Array, error) {
	v, err := c.reg.GetOrLoad(c.packedKey(), func() (any, error) {
		return ReadPackedRefsFile(filepath.Join(c.repoPath, PackedRefsFileName))
	})
	if err != nil {
		return nil, err
	}
	return v.(*Array), nil
}

// InvalidateLoose drops the memoized loose array. Called by the writer
// after every successful change.
func (c *Cache) InvalidateLoose() { c.reg.Invalidate(c.looseKey()) }

// InvalidatePacked drops the memoized packed array. Called by repack.
func (c *Cache) InvalidatePacked() { c.reg.Invalidate(c.packedKey()) }

// InvalidateAll drops both arrays, e.g. after a mutation that bypassed
// this store entirely.
func (c *Cache) InvalidateAll() {
	c.InvalidateLoose()
	c.InvalidatePacked()
}

// Registry is the process-wide registry of per-submodule Caches.
type Registry struct {
	backing *refcache.Registry
	mu      sync.Mutex
	caches  map[string]*Cache
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{backing: refcache.NewRegistry(), caches: make(map[string]*Cache)}
}

// For returns the Cache for the given submodule name ("" for the main
// repository) rooted at repoPath, creating it on first reference.
func (r *Registry) For(submodule, repoPath string) *Cache {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.caches[submodule]; ok {
		return c
	}
	c := newCache(r.backing, submodule, repoPath)
	r.caches[submodule] = c
	return c
}

// defaultRegistry backs Store values that don't provide their own,
// mirroring the single process-wide cache instance.
var defaultRegistry = NewRegistry()
