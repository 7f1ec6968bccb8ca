// Package plumbing holds the low-level types shared by the reference
// store: object identifiers, reference names, reference records, and
// the error vocabulary every other package builds on.
package plumbing

import (
	"bytes"
	"encoding/hex"
	"sort"
)

const (
	// HashSize is the width in bytes of an object identifier.
	HashSize = 20
	// HashHexSize is the width in hex characters of an object identifier.
	HashHexSize = HashSize * 2
)

// Hash is a content-addressed object identifier.
type Hash [HashSize]byte

// ZeroHash is the sentinel "null/absent" identifier.
var ZeroHash Hash

// NewHash decodes a hex string into a Hash. Malformed input decodes to
// whatever bytes hex.Decode manages to produce; callers that need to
// reject malformed hex should use NewHashEx.
func NewHash(s string) Hash {
	b, _ := hex.DecodeString(s)
	var h Hash
	copy(h[:], b)
	return h
}

// NewHashEx decodes a hex string into a Hash, rejecting anything that
// isn't exactly HashHexSize lowercase hex characters.
func NewHashEx(s string) (Hash, error) {
	if !ValidateHashHex(s) {
		return ZeroHash, ErrBadObjectID{Text: s}
	}
	return NewHash(s), nil
}

// ValidateHashHex reports whether s is a syntactically valid hex id.
func ValidateHashHex(s string) bool {
	if len(s) != HashHexSize {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		default:
			return false
		}
	}
	return true
}

func (h Hash) IsZero() bool {
	return h == ZeroHash
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// HashSlice attaches sort.Interface to []Hash.
type HashSlice []Hash

func (p HashSlice) Len() int           { return len(p) }
func (p HashSlice) Less(i, j int) bool { return bytes.Compare(p[i][:], p[j][:]) < 0 }
func (p HashSlice) Swap(i, j int)      { p[i], p[j] = p[j], p[i] }

func SortHashes(hs []Hash) { sort.Sort(HashSlice(hs)) }
