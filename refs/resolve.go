package refs

import (
	"os"
	"strings"

	"github.com/zeta-scm/refstore/plumbing"
)

// Resolved is the outcome of a successful Resolve: the name of the
// non-symbolic reference actually reached, its target, and the
// bitwise-OR of every flag picked up along the way.
type Resolved struct {
	Name   plumbing.ReferenceName
	Target plumbing.Hash
	Flags  plumbing.Flag
}

// Resolve follows name through symbolic indirection, loose-to-packed
// fallback, to a final hash reference. With reading
// true, a missing reference is an error; with reading false, a missing
// reference resolves successfully to a null target so a caller can
// prepare to create it.
func (s *Store) Resolve(name plumbing.ReferenceName, reading bool) (Resolved, error) {
	opts := plumbing.ValidateOptions{AllowOneLevel: true}
	if err := plumbing.CheckRefNameFormat(string(name), opts); err != nil {
		return Resolved{}, err
	}

	current := name
	var flags plumbing.Flag
	for depth := 0; ; depth++ {
		if depth >= MaxResolveDepth {
			return Resolved{}, plumbing.ErrMaxDepthExceeded
		}
		path := s.loosePath(current)
		fi, statErr := os.Lstat(path)
		if statErr != nil {
			if !os.IsNotExist(statErr) {
				return Resolved{}, statErr
			}
			packed, err := s.cache.Packed()
			if err != nil {
				return Resolved{}, err
			}
			if ref, ok := packed.Get(current); ok {
				return Resolved{Name: current, Target: ref.Target(), Flags: flags | plumbing.FlagPacked}, nil
			}
			if reading {
				return Resolved{}, plumbing.ErrReferenceNotFound
			}
			return Resolved{Name: current, Target: plumbing.ZeroHash, Flags: flags}, nil
		}

		if fi.Mode()&os.ModeSymlink != 0 {
			target, err := os.Readlink(path)
			if err == nil && strings.HasPrefix(target, plumbing.ReferencePrefix) && plumbing.ValidateReferenceName([]byte(target)) {
				current = plumbing.ReferenceName(target)
				flags |= plumbing.FlagSymbolic
				continue
			}
			return Resolved{}, plumbing.ErrBroken
		}

		if fi.IsDir() {
			return Resolved{}, plumbing.ErrIsDirectory
		}

		data, err := readBounded(path, 256)
		if err != nil {
			return Resolved{}, err
		}
		line := strings.TrimRight(string(data), " \t\r\n")
		ref := plumbing.NewReferenceFromLine(current, line, 0)
		if ref.IsBroken() {
			return Resolved{}, plumbing.ErrBroken
		}
		if ref.IsSymbolic() {
			current = ref.SymTarget()
			flags |= plumbing.FlagSymbolic
			continue
		}
		return Resolved{Name: current, Target: ref.Target(), Flags: flags}, nil
	}
}

// ResolveDup is Resolve with a caller-owned copy of the result name,
// for callers that cannot tolerate the resolver reusing internal
// storage across calls. That concern does not apply to this
// implementation, since Resolved.Name is already a distinct string
// value, but the entry point is kept for API parity.
func (s *Store) ResolveDup(name plumbing.ReferenceName, reading bool) (Resolved, error) {
	r, err := s.Resolve(name, reading)
	if err != nil {
		return Resolved{}, err
	}
	return Resolved{Name: plumbing.ReferenceName(string(r.Name)), Target: r.Target, Flags: r.Flags}, nil
}

// ReadRef resolves name and, if reading finds a live entry, returns it
// as a Reference carrying the accumulated flags.
func (s *Store) ReadRef(name plumbing.ReferenceName) (*plumbing.Reference, error) {
	r, err := s.Resolve(name, true)
	if err != nil {
		return nil, err
	}
	return plumbing.NewHashReference(r.Name, r.Target, r.Flags), nil
}

// PeelRef resolves name to a concrete object and, when it is an
// annotated tag, follows the tag chain to the first non-tag object
// using the packed peel annotation if known, falling back to the
// object-database collaborator's DerefTag.
func (s *Store) PeelRef(name plumbing.ReferenceName) (plumbing.Hash, error) {
	r, err := s.Resolve(name, true)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if r.Flags.Has(plumbing.FlagPacked) {
		packed, err := s.cache.Packed()
		if err != nil {
			return plumbing.ZeroHash, err
		}
		if ref, ok := packed.Get(r.Name); ok && ref.KnowsPeeled() {
			if !ref.Peeled().IsZero() {
				return ref.Peeled(), nil
			}
			return r.Target, nil
		}
	}
	if s.objects == nil {
		return r.Target, nil
	}
	if peeled, ok := s.objects.DerefTag(r.Target); ok {
		return peeled, nil
	}
	return r.Target, nil
}
