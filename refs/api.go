package refs

import (
	"github.com/zeta-scm/refstore/plumbing"
	"github.com/zeta-scm/refstore/reflog"
)

// CheckRefNameFormat validates name against the reference-name grammar,
// with one-level names (HEAD, MERGE_HEAD, …) allowed.
func CheckRefNameFormat(name string) error {
	return plumbing.CheckRefNameFormat(name, plumbing.ValidateOptions{AllowOneLevel: true})
}

// Exists reports whether name currently resolves to a live entry,
// suitable as the exists callback ShortenUnambiguousRef and the
// rev-parse rule table expect.
func (s *Store) Exists(name plumbing.ReferenceName) bool {
	_, err := s.Resolve(name, true)
	return err == nil
}

// Shorten is ShortenUnambiguousRef bound to this store's own Exists.
func (s *Store) Shorten(name plumbing.ReferenceName, strict bool) string {
	return ShortenUnambiguousRef(name, strict, s.Exists)
}

// ForEachReflog parses name's reflog forward from the start, invoking
// cb once per well-formed entry.
func (s *Store) ForEachReflog(name plumbing.ReferenceName, cb func(reflog.Entry) error) error {
	return s.logs.IterForward(name, 0, cb)
}

// ReadRefAt answers "what did name point to at time at (or cnt entries
// ago)".
func (s *Store) ReadRefAt(name plumbing.ReferenceName, at int64, cnt int) (reflog.AtTimeResult, error) {
	return s.logs.LookupAt(name, at, cnt)
}
