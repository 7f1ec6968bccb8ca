package plumbing

import (
	"strings"
)

const (
	ReferencePrefix = "refs/"
	refHeadPrefix   = ReferencePrefix + "heads/"
	refTagPrefix    = ReferencePrefix + "tags/"
	refRemotePrefix = ReferencePrefix + "remotes/"
	refNotePrefix   = ReferencePrefix + "notes/"
	symrefPrefix    = "ref: "

	HEAD ReferenceName = "HEAD"
)

// RefRevParseRules mirrors git's shorten_unambiguous_ref rule table, in
// decreasing priority.
var RefRevParseRules = []string{
	"%s",
	"refs/%s",
	"refs/tags/%s",
	"refs/heads/%s",
	"refs/remotes/%s",
	"refs/remotes/%s/HEAD",
}

// ReferenceName is the full, slash-separated name of a reference.
type ReferenceName string

func (n ReferenceName) String() string { return string(n) }

func (n ReferenceName) IsBranch() bool { return strings.HasPrefix(string(n), refHeadPrefix) }
func (n ReferenceName) IsTag() bool    { return strings.HasPrefix(string(n), refTagPrefix) }
func (n ReferenceName) IsRemote() bool { return strings.HasPrefix(string(n), refRemotePrefix) }
func (n ReferenceName) IsNote() bool   { return strings.HasPrefix(string(n), refNotePrefix) }

// IsBranchReference reports whether n is subject to invariant 7's
// commit-only write restriction: HEAD itself, or any refs/heads/* name.
func (n ReferenceName) IsBranchReference() bool { return n == HEAD || n.IsBranch() }

// NewBranchReferenceName builds "refs/heads/<name>".
func NewBranchReferenceName(name string) ReferenceName {
	return ReferenceName(refHeadPrefix + name)
}

// NewTagReferenceName builds "refs/tags/<name>".
func NewTagReferenceName(name string) ReferenceName {
	return ReferenceName(refTagPrefix + name)
}

// NewRemoteReferenceName builds "refs/remotes/<remote>/<name>".
func NewRemoteReferenceName(remote, name string) ReferenceName {
	return ReferenceName(refRemotePrefix + remote + "/" + name)
}

// Flag is the reference-entry bit-set.
type Flag uint8

const (
	FlagSymbolic Flag = 1 << iota
	FlagPacked
	FlagBroken
	FlagKnowsPeeled
)

func (f Flag) Has(bit Flag) bool { return f&bit != 0 }

// ReferenceType distinguishes a symbolic reference from a hash
// reference. A reference that failed to parse has type Invalid and
// carries FlagBroken.
type ReferenceType int8

const (
	InvalidReference ReferenceType = iota
	HashReference
	SymbolicReference
)

// Reference is the immutable reference record.
// Entries are created by the parsers or the writer and never mutated
// in place; the cache replaces entries wholesale on invalidation.
type Reference struct {
	name      ReferenceName
	kind      ReferenceType
	target    Hash          // valid when kind == HashReference
	symTarget ReferenceName // valid when kind == SymbolicReference
	peeled    Hash          // valid target of an annotated-tag chain, or ZeroHash
	flags     Flag
}

// NewHashReference creates a reference whose target is an object id.
func NewHashReference(name ReferenceName, target Hash, flags Flag) *Reference {
	return &Reference{name: name, kind: HashReference, target: target, flags: flags}
}

// NewSymbolicReference creates a reference whose target is another
// reference name.
func NewSymbolicReference(name, target ReferenceName, flags Flag) *Reference {
	return &Reference{name: name, kind: SymbolicReference, symTarget: target, flags: flags | FlagSymbolic}
}

// NewBrokenReference creates a reference recorded with FlagBroken
// because its on-disk content could not be parsed.
func NewBrokenReference(name ReferenceName, flags Flag) *Reference {
	return &Reference{name: name, kind: InvalidReference, flags: flags | FlagBroken}
}

// WithPeeled returns a copy of r with peeled and FlagKnowsPeeled set.
// Entries are never mutated in place.
func (r *Reference) WithPeeled(peeled Hash) *Reference {
	cp := *r
	cp.peeled = peeled
	cp.flags |= FlagKnowsPeeled
	return &cp
}

// WithFlags returns a copy of r with extra bits or-ed into its flags.
func (r *Reference) WithFlags(extra Flag) *Reference {
	cp := *r
	cp.flags |= extra
	return &cp
}

func (r *Reference) Name() ReferenceName   { return r.name }
func (r *Reference) Type() ReferenceType   { return r.kind }
func (r *Reference) Target() Hash          { return r.target }
func (r *Reference) SymTarget() ReferenceName { return r.symTarget }
func (r *Reference) Peeled() Hash          { return r.peeled }
func (r *Reference) Flags() Flag           { return r.flags }
func (r *Reference) IsSymbolic() bool      { return r.flags.Has(FlagSymbolic) }
func (r *Reference) IsPacked() bool        { return r.flags.Has(FlagPacked) }
func (r *Reference) IsBroken() bool        { return r.flags.Has(FlagBroken) }
func (r *Reference) KnowsPeeled() bool     { return r.flags.Has(FlagKnowsPeeled) }

// NewReferenceFromLine parses the content of a loose reference file (or
// a packed-refs record's target column) into a Reference. It implements
// the tolerant scalar grammar: a "ref: <name>" symref line, or 40 hex
// characters optionally followed by whitespace and anything after it (a
// second token or further lines), which is ignored (the FETCH_HEAD
// tolerance).
func NewReferenceFromLine(name ReferenceName, line string, flags Flag) *Reference {
	if strings.HasPrefix(line, symrefPrefix) {
		target := strings.TrimSpace(line[len(symrefPrefix):])
		if ValidateOneLevel([]byte(target)) {
			return NewSymbolicReference(name, ReferenceName(target), flags)
		}
		return NewBrokenReference(name, flags)
	}
	if len(line) < HashHexSize {
		return NewBrokenReference(name, flags)
	}
	hexPart := line[:HashHexSize]
	if !ValidateHashHex(hexPart) {
		return NewBrokenReference(name, flags)
	}
	if len(line) > HashHexSize {
		// Tolerate whatever follows a whitespace separator, as used by
		// auxiliary files such as FETCH_HEAD.
		switch line[HashHexSize] {
		case ' ', '\t', '\n', '\r':
		default:
			return NewBrokenReference(name, flags)
		}
	}
	return NewHashReference(name, NewHash(hexPart), flags)
}

// String renders a reference the way a loose file or packed-refs record
// would store its target column (without the trailing newline).
func (r *Reference) String() string {
	switch r.kind {
	case HashReference:
		return r.target.String()
	case SymbolicReference:
		return symrefPrefix + string(r.symTarget)
	default:
		return ""
	}
}

// ReferenceSlice attaches sort.Interface, ordering ascending by name.
type ReferenceSlice []*Reference

func (p ReferenceSlice) Len() int           { return len(p) }
func (p ReferenceSlice) Less(i, j int) bool { return p[i].Name() < p[j].Name() }
func (p ReferenceSlice) Swap(i, j int)      { p[i], p[j] = p[j], p[i] }
