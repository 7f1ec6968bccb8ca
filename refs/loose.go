package refs

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeta-scm/refstore/plumbing"
)

const maxPathComponentBytes = 255

// WalkLooseRefs recursively enumerates regular files under
// "<repoPath>/refs", producing one reference entry per file whose
// relative path doesn't start with '.' and doesn't end in ".lock"
//. Malformed file contents are recorded with FlagBroken
// rather than returned as an error, so one bad ref can't halt the walk.
func WalkLooseRefs(repoPath string) (*Array, error) {
	arr := NewArray()
	root := filepath.Join(repoPath, "refs")
	if err := walkLooseDir(root, "refs", arr); err != nil {
		if os.IsNotExist(err) {
			return arr, nil
		}
		return nil, err
	}
	return arr, nil
}

func walkLooseDir(absDir, relPrefix string, arr *Array) error {
	entries, err := os.ReadDir(absDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		base := e.Name()
		if strings.HasPrefix(base, ".") || len(base) > maxPathComponentBytes {
			continue
		}
		if strings.HasSuffix(base, ".lock") {
			continue
		}
		absChild := filepath.Join(absDir, base)
		relChild := relPrefix + "/" + base
		if e.IsDir() {
			if err := walkLooseDir(absChild, relChild, arr); err != nil {
				return err
			}
			continue
		}
		ref, err := readLooseRefFile(absChild, plumbing.ReferenceName(relChild))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		arr.Put(ref)
	}
	return nil
}

// readLooseRefFile reads and parses a single loose reference file,
// tolerating a directory entry (reported via plumbing.ErrIsDirectory so
// callers can distinguish it from a genuinely malformed file).
func readLooseRefFile(path string, name plumbing.ReferenceName) (*plumbing.Reference, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return nil, plumbing.ErrIsDirectory
	}
	if fi.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(path)
		if err == nil && strings.HasPrefix(target, "refs/") && plumbing.ValidateReferenceName([]byte(target)) {
			return plumbing.NewSymbolicReference(name, plumbing.ReferenceName(target), 0), nil
		}
	}
	data, err := readBounded(path, 256)
	if err != nil {
		return nil, err
	}
	line := strings.TrimRight(string(data), " \t\r\n")
	return plumbing.NewReferenceFromLine(name, line, 0), nil
}

func readBounded(path string, max int) ([]byte, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fd.Close()
	buf := make([]byte, max)
	n, err := fd.Read(buf)
	if err != nil && n == 0 {
		if errors.Is(err, io.EOF) {
			return buf[:0], nil
		}
		return nil, err
	}
	return buf[:n], nil
}
