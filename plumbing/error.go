package plumbing

import (
	"errors"
	"fmt"
)

// ErrStop is returned by a ForEach callback to stop iteration early
// without surfacing an error to the caller.
var ErrStop = errors.New("stop iter")

// Error kinds surfaced by the reference store. Each is a
// distinct sentinel or typed error so callers can distinguish
// dispositions with errors.Is/errors.As.
var (
	// ErrReferenceNotFound is returned when the resolver reaches no
	// entry while reading (reading=true).
	ErrReferenceNotFound = errors.New("reference does not exist")
	// ErrIsDirectory is returned when the resolver encounters a
	// directory where a scalar reference file was expected.
	ErrIsDirectory = errors.New("reference path is a directory")
	// ErrBroken is returned when a reference's on-disk content is
	// present but unparseable.
	ErrBroken = errors.New("reference is broken")
	// ErrConflict is returned when a name collides with an existing
	// prefix/suffix reference (invariant 5).
	ErrConflict = errors.New("reference name conflicts with an existing reference")
	// ErrStaleValue is returned when expected-old differs from the
	// actual value on lock.
	ErrStaleValue = errors.New("reference value is stale")
	// ErrMaxDepthExceeded is returned when symbolic-reference
	// resolution exceeds the depth bound.
	ErrMaxDepthExceeded = errors.New("max symbolic reference recursion exceeded")
	// ErrPackedRefsBadFormat is returned for a malformed packed-refs
	// record.
	ErrPackedRefsBadFormat = errors.New("packed-refs: malformed record")
	// ErrPackedRefsConflict is returned when two packed-refs records
	// share a name but disagree on target; always fatal.
	ErrPackedRefsConflict = errors.New("packed-refs: conflicting duplicate entries")
	// ErrNotSpecialReference is returned by SpecialReference operations
	// given a name outside the special-reference set.
	ErrNotSpecialReference = errors.New("not a special reference name")
	// ErrObjectNotFound is returned when a write's target object is
	// absent from the object database.
	ErrObjectNotFound = errors.New("target object does not exist")
	// ErrNotACommit is returned when a branch reference's write target
	// is not a commit object.
	ErrNotACommit = errors.New("target object is not a commit")
)

// ErrBadReferenceName is returned by the name validator and by anything
// that calls it internally.
type ErrBadReferenceName struct {
	Name string
}

func (e ErrBadReferenceName) Error() string {
	return fmt.Sprintf("invalid reference name: %q", e.Name)
}

// ErrBadObjectID is returned when hex object-id syntax is rejected.
type ErrBadObjectID struct {
	Text string
}

func (e ErrBadObjectID) Error() string {
	return fmt.Sprintf("not a valid object id: %q", e.Text)
}

// ErrLockBusy is returned when a <path>.lock already exists.
type ErrLockBusy struct {
	Path string
}

func (e ErrLockBusy) Error() string {
	return fmt.Sprintf("unable to acquire lock on %q: lock file exists", e.Path)
}

// ErrReflogCorrupt describes a reflog that cannot be made sense of.
// ReadRefAt does not return it: like forward iteration, it skips
// corrupt lines.
type ErrReflogCorrupt struct {
	Name   string
	Reason string
}

func (e ErrReflogCorrupt) Error() string {
	return fmt.Sprintf("reflog %q is corrupt: %s", e.Name, e.Reason)
}
