package refs

import (
	"path"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/zeta-scm/refstore/plumbing"
)

// ForEachOptions controls ForEach's filtering.
type ForEachOptions struct {
	// Prefix restricts iteration to names with this prefix; the prefix
	// is trimmed before the name is passed to the callback. Empty
	// means every reference.
	Prefix string
	// IncludeBroken makes broken entries and entries whose target is
	// not a known object visible instead of silently warned-and-skipped.
	IncludeBroken bool
}

// ForEach merges the loose, packed, and special-reference arrays in
// lexicographic order by full name, applying occlusion (a loose entry
// hides a packed entry of the same name), prefix filtering, and an
// object-existence check, invoking cb once per surviving name. Callbacks
// returning plumbing.ErrStop end iteration early without error.
func (s *Store) ForEach(opts ForEachOptions, cb func(*plumbing.Reference) error) error {
	loose, err := s.cache.Loose()
	if err != nil {
		return err
	}
	packed, err := s.cache.Packed()
	if err != nil {
		return err
	}
	merged := NewArray()
	for _, r := range packed.Slice() {
		merged.Put(r)
	}
	for _, r := range loose.Slice() {
		merged.Put(r) // loose occludes packed: later Put wins on same key
	}
	for _, r := range specialReferences(s.repoPath) {
		merged.Put(r)
	}

	for _, ref := range merged.Slice() {
		name := string(ref.Name())
		if opts.Prefix != "" && !strings.HasPrefix(name, opts.Prefix) {
			continue
		}
		if ref.IsBroken() && !opts.IncludeBroken {
			logrus.Warnf("ignoring broken ref %s", name)
			continue
		}
		if !opts.IncludeBroken && !ref.IsSymbolic() && !ref.IsBroken() {
			if s.objects != nil && !ref.Target().IsZero() && !s.objects.HasObject(ref.Target()) {
				logrus.Warnf("ignoring ref %s: target %s is not a known object", name, ref.Target())
				continue
			}
		}
		visible := ref
		if opts.Prefix != "" {
			visible = renameForCallback(ref, name[len(opts.Prefix):])
		}
		if err := cb(visible); err != nil {
			if err == plumbing.ErrStop {
				return nil
			}
			return err
		}
	}
	return nil
}

func renameForCallback(ref *plumbing.Reference, trimmed string) *plumbing.Reference {
	if ref.IsSymbolic() {
		return plumbing.NewSymbolicReference(plumbing.ReferenceName(trimmed), ref.SymTarget(), ref.Flags())
	}
	r := plumbing.NewHashReference(plumbing.ReferenceName(trimmed), ref.Target(), ref.Flags())
	if ref.KnowsPeeled() {
		r = r.WithPeeled(ref.Peeled())
	}
	return r
}

// Glob layers shell-style pattern matching above ForEach, matching
// against the full, untrimmed name.
func (s *Store) Glob(pattern string, opts ForEachOptions, cb func(*plumbing.Reference) error) error {
	return s.ForEach(opts, func(ref *plumbing.Reference) error {
		full := opts.Prefix + string(ref.Name())
		ok, err := path.Match(pattern, full)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		return cb(ref)
	})
}
