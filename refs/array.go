package refs

import (
	"github.com/emirpasic/gods/maps/treemap"

	"github.com/zeta-scm/refstore/plumbing"
)

// Array is the ordered, duplicate-free reference array: sorted
// ascending by name, no duplicates permitted at commit time. It is
// backed by a red-black tree keyed by name rather than a
// sorted slice, so Put/Get/Delete during incremental construction (the
// packed-refs reader, the loose-refs walk, the cache rebuild) stay
// O(log n) instead of requiring a full re-sort after every insert.
type Array struct {
	tree *treemap.Map // string(name) -> *plumbing.Reference
}

// NewArray returns an empty Array.
func NewArray() *Array {
	return &Array{tree: treemap.NewWithStringComparator()}
}

// Put inserts or replaces the entry named ref.Name(). Replacing an
// existing entry is how a loose copy occludes a packed one while both
// arrays are being assembled into one DB.
func (a *Array) Put(ref *plumbing.Reference) {
	a.tree.Put(string(ref.Name()), ref)
}

// PutIfAbsent inserts ref only if no entry with that name exists yet,
// reporting whether it did. Used by the packed-refs reader, where a
// later duplicate must not silently clobber the first.
func (a *Array) PutIfAbsent(ref *plumbing.Reference) (existing *plumbing.Reference, inserted bool) {
	if v, ok := a.tree.Get(string(ref.Name())); ok {
		return v.(*plumbing.Reference), false
	}
	a.tree.Put(string(ref.Name()), ref)
	return nil, true
}

func (a *Array) Get(name plumbing.ReferenceName) (*plumbing.Reference, bool) {
	v, ok := a.tree.Get(string(name))
	if !ok {
		return nil, false
	}
	return v.(*plumbing.Reference), true
}

func (a *Array) Delete(name plumbing.ReferenceName) {
	a.tree.Remove(string(name))
}

func (a *Array) Len() int { return a.tree.Size() }

// Slice returns the array's entries in ascending name order.
func (a *Array) Slice() []*plumbing.Reference {
	out := make([]*plumbing.Reference, 0, a.tree.Size())
	it := a.tree.Iterator()
	for it.Next() {
		out = append(out, it.Value().(*plumbing.Reference))
	}
	return out
}

// Clone returns a shallow copy: a new tree with the same entries.
// Entries themselves are immutable, so this is cheap and safe to share.
func (a *Array) Clone() *Array {
	cp := NewArray()
	it := a.tree.Iterator()
	for it.Next() {
		cp.tree.Put(it.Key(), it.Value())
	}
	return cp
}
