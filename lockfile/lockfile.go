// Package lockfile implements the lock-file primitive a reference
// store treats as an external collaborator: "acquire exclusive writer
// for path P, commit-or-rollback" semantics over a sidecar
// "<path>.lock" file, installed atomically via rename. The same
// open(O_CREAT|O_EXCL)+rename idiom recurs across the reference store,
// the reflog store, and the object database's special-reference
// files; this package is that idiom lifted into one place instead of
// copy-pasted repeatedly.
package lockfile

import (
	"os"
	"path/filepath"

	"github.com/zeta-scm/refstore/plumbing"
)

// Primitive is the contract.
type Primitive interface {
	// Hold creates "<path>.lock" exclusively and returns a handle, or
	// fails if it already exists.
	Hold(path string) (*Handle, error)
}

// Handle is a held lock over the on-disk target at Path. Exactly one of
// Commit or Rollback must be called to release it.
type Handle struct {
	Path     string // the target file the lock guards
	lockPath string
	file     *os.File
	done     bool
}

// OS is the default Primitive, backed by the real filesystem.
type OS struct{}

func (OS) Hold(path string) (*Handle, error) {
	lockPath := path + ".lock"
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, err
	}
	fd, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, plumbing.ErrLockBusy{Path: path}
		}
		return nil, err
	}
	return &Handle{Path: path, lockPath: lockPath, file: fd}, nil
}

// File exposes the lock file for writing the new content before commit.
func (h *Handle) File() *os.File { return h.file }

// Write is a convenience that writes content to the lock file.
func (h *Handle) Write(content string) error {
	_, err := h.file.WriteString(content)
	return err
}

// Commit closes the lock file and atomically renames it onto Path,
// installing the new content. Once Commit returns (successfully or
// not) the handle is released; calling Commit or Rollback again is a
// no-op.
func (h *Handle) Commit() error {
	if h.done {
		return nil
	}
	h.done = true
	if err := h.file.Close(); err != nil {
		_ = os.Remove(h.lockPath)
		return err
	}
	return os.Rename(h.lockPath, h.Path)
}

// Rollback closes and removes the lock file without touching Path.
func (h *Handle) Rollback() error {
	if h.done {
		return nil
	}
	h.done = true
	_ = h.file.Close()
	return os.Remove(h.lockPath)
}
