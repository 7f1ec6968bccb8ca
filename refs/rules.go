package refs

import (
	"strings"

	"github.com/zeta-scm/refstore/plumbing"
)

// rule is one entry of the name-shortening priority table.
type rule struct {
	prefix string
	suffix string
}

func (r rule) referenceName(short string) plumbing.ReferenceName {
	return plumbing.ReferenceName(r.prefix + short + r.suffix)
}

// shortName returns the short form of name under this rule, or "" if
// name doesn't match the rule's prefix/suffix shape.
func (r rule) shortName(name string) string {
	if !strings.HasPrefix(name, r.prefix) {
		return ""
	}
	rest := name[len(r.prefix):]
	if r.suffix == "" {
		return rest
	}
	if !strings.HasSuffix(rest, r.suffix) {
		return ""
	}
	return rest[:len(rest)-len(r.suffix)]
}

// revParseRules is the rev-parse shortening table, in decreasing priority:
// "%s", "refs/%s", "refs/tags/%s", "refs/heads/%s", "refs/remotes/%s",
// "refs/remotes/%s/HEAD".
var revParseRules = []rule{
	{},
	{prefix: "refs/"},
	{prefix: "refs/tags/"},
	{prefix: "refs/heads/"},
	{prefix: "refs/remotes/"},
	{prefix: "refs/remotes/", suffix: "/HEAD"},
}

// lookupRule resolves name through the rev-parse rules against exists,
// returning the first rule (in priority order) whose expansion is a
// live reference.
func lookupRule(name string, exists func(plumbing.ReferenceName) bool) (plumbing.ReferenceName, bool) {
	for _, r := range revParseRules {
		candidate := r.referenceName(name)
		if exists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// ShortenUnambiguousRef is the process-visible name-shortening
// function. It returns the shortest rule substitution that is
// unambiguous: in strict mode no other rule's expansion of the short
// name resolves; in lax mode no earlier (higher-priority) rule's
// expansion resolves. exists
// reports whether a candidate name is a live reference.
func ShortenUnambiguousRef(refname plumbing.ReferenceName, strict bool, exists func(plumbing.ReferenceName) bool) string {
	name := string(refname)
	for i := len(revParseRules) - 1; i > 0; i-- {
		short := revParseRules[i].shortName(name)
		if short == "" {
			continue
		}
		// Lax mode only re-checks the rules tried before this one in
		// the outer loop (the lower-index, higher-priority rules);
		// strict mode re-checks every other rule.
		rulesToFail := i
		if strict {
			rulesToFail = len(revParseRules)
		}
		ambiguous := false
		for j := 0; j < rulesToFail; j++ {
			if j == i {
				continue
			}
			if exists(revParseRules[j].referenceName(short)) {
				ambiguous = true
				break
			}
		}
		if !ambiguous {
			return short
		}
	}
	return name
}
