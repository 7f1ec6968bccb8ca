// Package identity carries the committer identity recorded in each
// reflog entry. Its wire form is the object layer's, not
// the ref store's own invention: "Name <email> unix-timestamp tz",
// exactly as a commit's author/committer line is written.
package identity

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
)

// Signature identifies who made a change and when.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

const timeZoneLength = 5

func (s *Signature) decodeTimeAndZone(b []byte) {
	space := bytes.IndexByte(b, ' ')
	if space == -1 {
		space = len(b)
	}
	ts, err := strconv.ParseInt(string(b[:space]), 10, 64)
	if err != nil {
		return
	}
	s.When = time.Unix(ts, 0).In(time.UTC)
	tzStart := space + 1
	if tzStart >= len(b) || tzStart+timeZoneLength > len(b) {
		return
	}
	tz := string(b[tzStart : tzStart+timeZoneLength])
	hours, err1 := strconv.ParseInt(tz[0:3], 10, 64)
	mins, err2 := strconv.ParseInt(tz[3:], 10, 64)
	if err1 != nil || err2 != nil {
		return
	}
	if hours < 0 {
		mins *= -1
	}
	loc := time.FixedZone("", int(hours*3600+mins*60))
	s.When = s.When.In(loc)
}

// Decode parses "Name <email> unix tz" into s. Malformed trailing
// fields are left at their zero value rather than rejected; the
// reflog forward-iterator is the one responsible for rejecting lines
// that are too corrupt to use, not this decoder.
func (s *Signature) Decode(b []byte) {
	open := bytes.LastIndexByte(b, '<')
	close := bytes.LastIndexByte(b, '>')
	if open == -1 || close == -1 || close < open {
		return
	}
	s.Name = string(bytes.TrimSpace(b[:open]))
	s.Email = string(b[open+1 : close])
	if close+2 < len(b) {
		s.decodeTimeAndZone(b[close+2:])
	}
}

const formatTimeZoneOnly = "-0700"

// String renders the signature as "Name <email> unix tz".
func (s *Signature) String() string {
	return fmt.Sprintf("%s <%s> %d %s", s.Name, s.Email, s.When.Unix(), s.When.Format(formatTimeZoneOnly))
}
