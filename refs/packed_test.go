package refs

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeta-scm/refstore/plumbing"
)

func TestParsePackedRefsRoundTrip(t *testing.T) {
	arr := NewArray()
	arr.Put(plumbing.NewHashReference(plumbing.NewBranchReferenceName("master"), plumbing.NewHash("adba50d9794b9ef3f7ec8cbc680f7f1fa3fbf9df"), plumbing.FlagPacked))
	tag := plumbing.NewHashReference(plumbing.NewTagReferenceName("v1.0.0"), plumbing.NewHash("bd9ddb6547b224fd6bb39b7f7fddf833b37f4ddb"), plumbing.FlagPacked)
	tag = tag.WithPeeled(plumbing.NewHash("cafebabe00000000000000000000000000000000"))
	arr.Put(tag)

	var buf bytes.Buffer
	require.NoError(t, WritePackedRefs(&buf, arr))

	parsed, err := ParsePackedRefs(strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Equal(t, 2, parsed.Len())

	m, ok := parsed.Get(plumbing.NewBranchReferenceName("master"))
	require.True(t, ok)
	assert.Equal(t, "adba50d9794b9ef3f7ec8cbc680f7f1fa3fbf9df", m.Target().String())

	v, ok := parsed.Get(plumbing.NewTagReferenceName("v1.0.0"))
	require.True(t, ok)
	assert.True(t, v.KnowsPeeled())
	assert.Equal(t, "cafebabe00000000000000000000000000000000", v.Peeled().String())
}

func TestParsePackedRefsDuplicateSameTargetCollapses(t *testing.T) {
	body := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa refs/heads/master\naaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa refs/heads/master\n"
	arr, err := ParsePackedRefs(strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, 1, arr.Len())
}

func TestParsePackedRefsDuplicateConflict(t *testing.T) {
	body := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa refs/heads/master\nbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb refs/heads/master\n"
	_, err := ParsePackedRefs(strings.NewReader(body))
	assert.ErrorIs(t, err, plumbing.ErrPackedRefsConflict)
}

func TestReadPackedRefsFileMissing(t *testing.T) {
	arr, err := ReadPackedRefsFile("/nonexistent/path/packed-refs")
	require.NoError(t, err)
	assert.Equal(t, 0, arr.Len())
}
