// Package reflog implements the per-reference append-only audit log:
// one text file per reference under "logs/<name>", entries of
// "old new committer timestamp tz \t message", forward iteration
// tolerant of corrupt lines, and at-time lookup.
package reflog

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/zeta-scm/refstore/identity"
	"github.com/zeta-scm/refstore/lockfile"
	"github.com/zeta-scm/refstore/plumbing"
)

const dirName = "logs"

// Entry is one reflog record.
type Entry struct {
	Old       plumbing.Hash
	New       plumbing.Hash
	Committer identity.Signature
	Message   string
}

// normalizeMessage collapses runs of whitespace to a single space and
// trims the result).
func normalizeMessage(msg string) string {
	fields := strings.Fields(msg)
	return strings.Join(fields, " ")
}

// minRecordBytes is the shortest a syntactically plausible line can be:
// two 40-character hex ids, each followed by a single space (82 bytes),
// plus at least one byte of committer data — used by the forward
// iterator's corrupt-line heuristic.
const minRecordBytes = 83

// DB is the reflog store for one repository root.
type DB struct {
	root string
	lock lockfile.Primitive
}

// NewDB creates a reflog store rooted at "<root>/logs".
func NewDB(root string) *DB {
	return &DB{root: root, lock: lockfile.OS{}}
}

func (d *DB) path(name plumbing.ReferenceName) string {
	return filepath.Join(d.root, dirName, string(name))
}

// Exists reports whether name has a reflog file.
func (d *DB) Exists(name plumbing.ReferenceName) bool {
	_, err := os.Stat(d.path(name))
	return err == nil
}

// Append writes a new entry for name, creating the log file (and its
// parent directories) if it doesn't already exist. This is the writer's
// single notification point.
func (d *DB) Append(name plumbing.ReferenceName, old, new plumbing.Hash, committer identity.Signature, message string) error {
	p := d.path(name)
	if err := os.MkdirAll(filepath.Dir(p), 0o777); err != nil {
		return err
	}
	fd, err := os.OpenFile(p, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o666)
	if err != nil {
		return err
	}
	defer fd.Close()
	line := formatEntry(Entry{Old: old, New: new, Committer: committer, Message: normalizeMessage(message)})
	_, err = fd.WriteString(line)
	return err
}

func formatEntry(e Entry) string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s %s\n", e.Old, e.New, e.Committer.String())
	}
	return fmt.Sprintf("%s %s %s\t%s\n", e.Old, e.New, e.Committer.String(), e.Message)
}

// parseLine parses one reflog record, returning ok=false for anything
// too corrupt to use: a line
// shorter than the minimum plausible length, a missing email-close '>',
// a missing timestamp, or a malformed timezone sign/digits.
func parseLine(line string) (Entry, bool) {
	if len(line) < minRecordBytes {
		return Entry{}, false
	}
	var e Entry
	rest := line
	pos := strings.IndexByte(rest, ' ')
	if pos == -1 {
		return Entry{}, false
	}
	e.Old = plumbing.NewHash(rest[:pos])
	rest = rest[pos+1:]
	pos = strings.IndexByte(rest, ' ')
	if pos == -1 {
		return Entry{}, false
	}
	e.New = plumbing.NewHash(rest[:pos])
	rest = rest[pos+1:]

	signaturePart := rest
	message := ""
	if pos = strings.IndexByte(rest, '\t'); pos != -1 {
		signaturePart = rest[:pos]
		message = rest[pos+1:]
	}
	if !bytes.ContainsRune([]byte(signaturePart), '>') {
		return Entry{}, false
	}
	close := strings.LastIndexByte(signaturePart, '>')
	if close == -1 || close+2 >= len(signaturePart) {
		return Entry{}, false
	}
	tsAndTZ := strings.TrimSpace(signaturePart[close+1:])
	fields := strings.Fields(tsAndTZ)
	if len(fields) != 2 {
		return Entry{}, false
	}
	if _, err := strconv.ParseInt(fields[0], 10, 64); err != nil {
		return Entry{}, false
	}
	tz := fields[1]
	if len(tz) != 5 || (tz[0] != '+' && tz[0] != '-') {
		return Entry{}, false
	}
	if _, err := strconv.Atoi(tz[1:3]); err != nil {
		return Entry{}, false
	}
	if _, err := strconv.Atoi(tz[3:5]); err != nil {
		return Entry{}, false
	}
	e.Committer.Decode([]byte(signaturePart))
	e.Message = message
	return e, true
}

// IterForward parses name's reflog line by line, starting at byte
// offset start, calling cb for every well-formed record. Corrupt lines
// are skipped silently; adjacent records whose
// old/new don't chain are logged as a warning but don't stop iteration
// (Testable Property 7).
func (d *DB) IterForward(name plumbing.ReferenceName, start int64, cb func(Entry) error) error {
	fd, err := os.Open(d.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer fd.Close()
	if start > 0 {
		if _, err := fd.Seek(start, io.SeekStart); err != nil {
			return err
		}
	}
	s := bufio.NewScanner(fd)
	var prev *Entry
	for s.Scan() {
		e, ok := parseLine(s.Text())
		if !ok {
			continue
		}
		if prev != nil && prev.New != e.Old {
			logrus.Warnf("reflog %s: entry discontinuity (expected old=%s, got %s)", name, prev.New, e.Old)
		}
		if err := cb(e); err != nil {
			if err == plumbing.ErrStop {
				return nil
			}
			return err
		}
		prev = &e
	}
	return s.Err()
}

// AtTimeResult is the outcome of LookupAt.
type AtTimeResult struct {
	Entry     Entry
	Index     int // 0 = most recent
	Predates  bool // at-time predates the oldest record
}

// LookupAt scans name's reflog for the record with the newest timestamp
// ≤ at. If at predates the oldest record, it returns the
// oldest record with Predates=true. cnt, when > 0, instead selects the
// cnt-th most recent record directly (0 = most recent), ignoring at.
func (d *DB) LookupAt(name plumbing.ReferenceName, at int64, cnt int) (AtTimeResult, error) {
	var entries []Entry
	if err := d.IterForward(name, 0, func(e Entry) error {
		entries = append(entries, e)
		return nil
	}); err != nil {
		return AtTimeResult{}, err
	}
	if len(entries) == 0 {
		return AtTimeResult{}, plumbing.ErrReferenceNotFound
	}
	if cnt > 0 {
		idx := len(entries) - 1 - cnt
		if idx < 0 {
			idx = 0
		}
		return AtTimeResult{Entry: entries[idx], Index: len(entries) - 1 - idx}, nil
	}
	// Entries are stored oldest-first in the file; walk from the end
	// (newest) to find the newest timestamp <= at.
	for i := len(entries) - 1; i >= 0; i-- {
		ts := entries[i].Committer.When.Unix()
		if ts <= at {
			return AtTimeResult{Entry: entries[i], Index: len(entries) - 1 - i}, nil
		}
	}
	return AtTimeResult{Entry: entries[0], Index: len(entries) - 1, Predates: true}, nil
}

// Delete removes name's reflog file, if present.
func (d *DB) Delete(name plumbing.ReferenceName) error {
	err := os.Remove(d.path(name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Rename moves oldName's reflog file to newName's, via a temporary
// staging path under "logs/refs/.tmp-renamed-log" so the move is atomic
// with respect to a concurrent reader even across directories.
func (d *DB) Rename(oldName, newName plumbing.ReferenceName) error {
	oldPath := d.path(oldName)
	if _, err := os.Stat(oldPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	stagingDir := filepath.Join(d.root, dirName, "refs")
	if err := os.MkdirAll(stagingDir, 0o777); err != nil {
		return err
	}
	staging := filepath.Join(stagingDir, ".tmp-renamed-log")
	if err := os.Rename(oldPath, staging); err != nil {
		return err
	}
	newPath := d.path(newName)
	if err := os.MkdirAll(filepath.Dir(newPath), 0o777); err != nil {
		_ = os.Rename(staging, oldPath)
		return err
	}
	if err := os.Rename(staging, newPath); err != nil {
		_ = os.Rename(staging, oldPath)
		return err
	}
	return nil
}
