package refs

import (
	"os"

	"github.com/zeta-scm/refstore/identity"
	"github.com/zeta-scm/refstore/plumbing"
)

// DeleteRef removes name, whether it currently lives loose or packed,
// and repacks the packed file to drop any stale entry of the same name.
func (s *Store) DeleteRef(name plumbing.ReferenceName, expectedOld *plumbing.Hash, flags UpdateFlags, committer identity.Signature, message string) error {
	h, err := s.Lock(name, expectedOld, flags)
	if err != nil {
		return err
	}
	if err := os.Remove(s.loosePath(h.resolvedName)); err != nil && !os.IsNotExist(err) {
		_ = h.lock.Rollback()
		return err
	}
	if err := s.RepackWithout(h.resolvedName); err != nil {
		_ = h.lock.Rollback()
		return err
	}
	if err := s.logs.Delete(h.resolvedName); err != nil {
		_ = h.lock.Rollback()
		return err
	}
	s.cache.InvalidateAll()
	return h.lock.Rollback() // no content to install; the unlink above already applied
}

// RenameRef moves old to new, preserving the reflog, with rollback on
// any failure after the reflog has been staged for rename.
func (s *Store) RenameRef(old, new plumbing.ReferenceName, committer identity.Signature, message string) error {
	resolved, err := s.Resolve(old, true)
	if err != nil {
		return err
	}
	if resolved.Flags.Has(plumbing.FlagSymbolic) {
		return plumbing.ErrBadReferenceName{Name: string(old)}
	}
	if conflict := s.checkNameCollision(new); conflict != nil {
		return conflict
	}
	// Drop any pre-existing new (and its reflog) before old's reflog is
	// moved into place; a missing new is not an error.
	if err := s.DeleteRef(new, nil, NoDeref, committer, message); err != nil {
		return err
	}

	if err := s.logs.Rename(old, new); err != nil {
		return err
	}

	target := resolved.Target
	if err := s.DeleteRef(old, nil, NoDeref, committer, message); err != nil {
		_ = s.logs.Rename(new, old)
		return err
	}

	if err := s.WriteRef(new, target, nil, ForceWrite, committer, message); err != nil {
		_ = s.logs.Rename(new, old)
		_ = s.WriteRef(old, target, nil, ForceWrite, committer, message)
		return err
	}
	return nil
}

// RepackWithout rewrites the packed-refs file, dropping the entry named
// name (if any), under a lock on the packed file.
func (s *Store) RepackWithout(name plumbing.ReferenceName) error {
	packed, err := s.cache.Packed()
	if err != nil {
		return err
	}
	if _, ok := packed.Get(name); !ok {
		return nil
	}
	held, err := s.locks.Hold(s.packedRefsPath())
	if err != nil {
		return err
	}
	next := packed.Clone()
	next.Delete(name)
	if err := WritePackedRefs(held.File(), next); err != nil {
		_ = held.Rollback()
		return err
	}
	if err := held.Commit(); err != nil {
		return err
	}
	s.cache.InvalidatePacked()
	return nil
}
