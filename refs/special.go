package refs

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/zeta-scm/refstore/plumbing"
)

// specialReferenceNames are the auxiliary one-off references that live
// at the repository root, outside refs/, and carry no reflog: the
// pending-merge marker, the result of the last fetch, and the
// in-progress cherry-pick marker.
var specialReferenceNames = []string{"MERGE_HEAD", "FETCH_HEAD", "CHERRY_PICK_HEAD"}

// IsSpecialReference reports whether name is one of the recognized
// special references.
func IsSpecialReference(name plumbing.ReferenceName) bool {
	for _, n := range specialReferenceNames {
		if string(name) == n {
			return true
		}
	}
	return false
}

// specialReferences reads whichever special-reference files are
// present at repoPath's root, for inclusion in ForEach.
func specialReferences(repoPath string) []*plumbing.Reference {
	var out []*plumbing.Reference
	for _, name := range specialReferenceNames {
		data, err := readBounded(filepath.Join(repoPath, name), 256)
		if err != nil || len(data) == 0 {
			continue
		}
		line := strings.TrimRight(string(data), " \t\r\n")
		out = append(out, plumbing.NewReferenceFromLine(plumbing.ReferenceName(name), line, 0))
	}
	return out
}

// ReadSpecialReference reads one special reference directly, bypassing
// the resolver's symlink/packed handling (these files are always
// scalar, root-level, and reflog-free).
func (s *Store) ReadSpecialReference(name plumbing.ReferenceName) (*plumbing.Reference, error) {
	if !IsSpecialReference(name) {
		return nil, plumbing.ErrNotSpecialReference
	}
	data, err := readBounded(filepath.Join(s.repoPath, string(name)), 256)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, plumbing.ErrReferenceNotFound
		}
		return nil, err
	}
	if len(data) == 0 {
		return nil, plumbing.ErrReferenceNotFound
	}
	line := strings.TrimRight(string(data), " \t\r\n")
	ref := plumbing.NewReferenceFromLine(name, line, 0)
	if ref.IsBroken() {
		return nil, plumbing.ErrBroken
	}
	return ref, nil
}

// WriteSpecialReference writes (or overwrites) a special reference's
// scalar target directly; there is no lock, no reflog, and no packed
// fallback for these files.
func (s *Store) WriteSpecialReference(name plumbing.ReferenceName, target plumbing.Hash) error {
	if !IsSpecialReference(name) {
		return plumbing.ErrNotSpecialReference
	}
	path := filepath.Join(s.repoPath, string(name))
	return os.WriteFile(path, []byte(target.String()+"\n"), 0o666)
}

// DeleteSpecialReference removes a special reference's file, if present.
func (s *Store) DeleteSpecialReference(name plumbing.ReferenceName) error {
	if !IsSpecialReference(name) {
		return plumbing.ErrNotSpecialReference
	}
	err := os.Remove(filepath.Join(s.repoPath, string(name)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
