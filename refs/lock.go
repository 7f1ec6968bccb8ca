package refs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/zeta-scm/refstore/identity"
	"github.com/zeta-scm/refstore/objectdb"
	"github.com/zeta-scm/refstore/plumbing"
)

// UpdateFlags are the writer policy bits.
type UpdateFlags uint8

const (
	// NoDeref makes the writer treat a symbolic reference as a scalar,
	// overwriting the symbolic file itself instead of following it.
	NoDeref UpdateFlags = 1 << iota
	// ForceWrite is implied for a newly created reference, and set
	// explicitly when replacing a symref under NoDeref even if the new
	// target equals the old one.
	ForceWrite
)

func (f UpdateFlags) has(bit UpdateFlags) bool { return f&bit != 0 }

// Disposition picks how a caller wants failures surfaced: silently, as
// a logged message, or as a fatal error. This implementation always
// returns a Go error; Disposition only controls
// whether UpdateRef also writes the failure to the log.
type Disposition int

const (
	DispQuiet Disposition = iota
	DispMessage
	DispFatal
)

// Handle is an acquired lock over one reference, ready for Write,
// Commit, or Rollback.
type Handle struct {
	store        *Store
	lock         *lockHold
	expectedOld  *plumbing.Hash
	resolvedName plumbing.ReferenceName
	originalName plumbing.ReferenceName
	flags        UpdateFlags
	newlyCreated bool
	done         bool
}

type lockHold interface {
	File() *os.File
	Write(string) error
	Commit() error
	Rollback() error
}

// Lock resolves name, verifies expectedOld (if supplied) against the
// resolved target, and acquires the per-reference lock file.
func (s *Store) Lock(name plumbing.ReferenceName, expectedOld *plumbing.Hash, flags UpdateFlags) (*Handle, error) {
	reading := expectedOld != nil
	resolved, err := s.Resolve(name, reading)
	if err == plumbing.ErrIsDirectory {
		if cleanErr := s.pruneEmptyAncestors(name); cleanErr == nil {
			resolved, err = s.Resolve(name, reading)
		}
	}
	if err != nil {
		return nil, err
	}

	newlyCreated := resolved.Target.IsZero() && !resolved.Flags.Has(plumbing.FlagSymbolic)
	if newlyCreated {
		if conflict := s.checkNameCollision(resolved.Name); conflict != nil {
			return nil, conflict
		}
		flags |= ForceWrite
	}

	// NODEREF treats a symbolic reference as a scalar: the lock (and the
	// write that follows) targets the original name's own file, not the
	// reference it points to. Without this, re-pointing an existing
	// symref (e.g. switching HEAD to a different branch) would instead
	// lock and overwrite the branch HEAD currently resolves to.
	lockName := resolved.Name
	if flags.has(NoDeref) && resolved.Flags.Has(plumbing.FlagSymbolic) {
		lockName = name
		flags |= ForceWrite
	}

	lockPath := s.loosePath(lockName)
	held, err := s.locks.Hold(lockPath)
	if err != nil {
		return nil, err
	}

	if expectedOld != nil && !expectedOld.IsZero() {
		if resolved.Target != *expectedOld {
			_ = held.Rollback()
			return nil, plumbing.ErrStaleValue
		}
	}

	return &Handle{
		store:        s,
		lock:         held,
		expectedOld:  expectedOld,
		resolvedName: lockName,
		originalName: name,
		flags:        flags,
		newlyCreated: newlyCreated,
	}, nil
}

// checkNameCollision enforces invariant 5: no live reference may be
// both a strict prefix and a full name of another (the "a" vs "a/b"
// directory/scalar collision).
func (s *Store) checkNameCollision(name plumbing.ReferenceName) error {
	loose, err := s.cache.Loose()
	if err != nil {
		return err
	}
	packed, err := s.cache.Packed()
	if err != nil {
		return err
	}
	full := string(name)
	check := func(arr *Array) error {
		for _, r := range arr.Slice() {
			other := string(r.Name())
			if other == full {
				continue
			}
			if hasPathPrefix(full, other) || hasPathPrefix(other, full) {
				return fmt.Errorf("%w: %s conflicts with %s", plumbing.ErrConflict, full, other)
			}
		}
		return nil
	}
	if err := check(loose); err != nil {
		return err
	}
	return check(packed)
}

func hasPathPrefix(name, prefix string) bool {
	return len(name) > len(prefix) && name[:len(prefix)] == prefix && name[len(prefix)] == '/'
}

// pruneEmptyAncestors removes name's loose path if it is an empty
// directory, then each parent left empty, up to refs/. This recovers
// from the case where "a/b" used to be a directory of now-dead refs and
// the caller wants to write scalar ref "a/b". A directory that still
// holds anything, including empty subdirectories, is left in place.
func (s *Store) pruneEmptyAncestors(name plumbing.ReferenceName) error {
	dir := s.loosePath(name)
	root := filepath.Join(s.repoPath, "refs")
	for dir != root && len(dir) > len(root) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return err
		}
		if len(entries) > 0 {
			return nil
		}
		if err := os.Remove(dir); err != nil {
			return err
		}
		dir = filepath.Dir(dir)
	}
	return nil
}

// Write installs new as h's reference target and, on success, appends
// to the relevant reflogs and invalidates the loose cache. The target
// object must already exist in the object database (invariant 7's
// prerequisite); if h's reference is a branch reference (HEAD or
// refs/heads/*), the target must additionally be a commit.
func (s *Store) Write(h *Handle, new plumbing.Hash, committer identity.Signature, message string) error {
	if !new.IsZero() {
		kind, _, err := s.objects.ReadObject(new)
		if err != nil {
			_ = h.lock.Rollback()
			return fmt.Errorf("%w: %s", plumbing.ErrObjectNotFound, new)
		}
		if h.resolvedName.IsBranchReference() && kind != objectdb.KindCommit {
			_ = h.lock.Rollback()
			return fmt.Errorf("%w: %s", plumbing.ErrNotACommit, new)
		}
	}

	old, _ := s.Resolve(h.resolvedName, false)
	if !h.flags.has(ForceWrite) && old.Target == new {
		return h.lock.Rollback()
	}
	if err := h.lock.Write(new.String() + "\n"); err != nil {
		_ = h.lock.Rollback()
		return err
	}
	if err := h.lock.Commit(); err != nil {
		return err
	}
	s.cache.InvalidateLoose()

	if s.cfg.WantsReflog(string(h.resolvedName)) {
		if err := s.logs.Append(h.resolvedName, old.Target, new, committer, message); err != nil {
			logrus.Warnf("reflog append failed for %s: %v", h.resolvedName, err)
		}
	}
	if h.resolvedName != h.originalName && s.cfg.WantsReflog(string(h.originalName)) {
		if err := s.logs.Append(h.originalName, old.Target, new, committer, message); err != nil {
			logrus.Warnf("reflog append failed for %s: %v", h.originalName, err)
		}
	}
	if h.originalName != plumbing.HEAD && s.cfg.WantsReflog(string(plumbing.HEAD)) {
		if head, err := s.Resolve(plumbing.HEAD, true); err == nil && head.Name == h.resolvedName {
			if err := s.logs.Append(plumbing.HEAD, old.Target, new, committer, message); err != nil {
				logrus.Warnf("reflog append failed for HEAD: %v", err)
			}
		}
	}
	return nil
}

// Commit releases h's lock without writing (used by callers that
// locked only to verify expected-old and now want to abandon the
// update). After a successful Write the lock is already released and
// this is a no-op.
func (h *Handle) Commit() error { return h.lock.Rollback() }

// Rollback releases h's lock, discarding any pending write.
func (h *Handle) Rollback() error { return h.lock.Rollback() }

// WriteRef is the lock+write+commit convenience wrapping Lock and
// Write for the common case.
func (s *Store) WriteRef(name plumbing.ReferenceName, new plumbing.Hash, expectedOld *plumbing.Hash, flags UpdateFlags, committer identity.Signature, message string) error {
	h, err := s.Lock(name, expectedOld, flags)
	if err != nil {
		return err
	}
	return s.Write(h, new, committer, message)
}

// CreateSymref locks name under NoDeref and installs a symbolic
// reference pointing at target, bypassing the hash-target write path.
func (s *Store) CreateSymref(name, target plumbing.ReferenceName, committer identity.Signature, message string) error {
	h, err := s.Lock(name, nil, NoDeref|ForceWrite)
	if err != nil {
		return err
	}
	if err := h.lock.Write(fmt.Sprintf("ref: %s\n", target)); err != nil {
		_ = h.lock.Rollback()
		return err
	}
	if err := h.lock.Commit(); err != nil {
		return err
	}
	s.cache.InvalidateLoose()
	if s.cfg.WantsReflog(string(name)) {
		if err := s.logs.Append(name, plumbing.ZeroHash, plumbing.ZeroHash, committer, message); err != nil {
			logrus.Warnf("reflog append failed for %s: %v", name, err)
		}
	}
	return nil
}

// UpdateRef is the high-level entry point
// "update_ref(action, name, new, old, flags, disposition)": a thin
// disposition-aware wrapper over WriteRef.
func UpdateRef(s *Store, action string, name plumbing.ReferenceName, new plumbing.Hash, old *plumbing.Hash, flags UpdateFlags, disposition Disposition, committer identity.Signature) error {
	err := s.WriteRef(name, new, old, flags, committer, action)
	if err != nil && disposition != DispQuiet {
		logrus.WithField("action", action).Warnf("update_ref %s: %v", name, err)
	}
	return err
}
