package plumbing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateReferenceName(t *testing.T) {
	good := []string{
		"refs/heads/master",
		"refs/tags/v1.0.0",
		"refs/remotes/origin/HEAD",
		"refs/heads/feature/nested/deep",
	}
	for _, n := range good {
		assert.True(t, ValidateReferenceName([]byte(n)), n)
	}

	bad := []string{
		"",
		"refs/heads/",
		"refs/heads/.foo",
		"refs/heads/foo.lock",
		"refs/heads/foo..bar",
		"refs/heads/foo.",
		"refs/heads/f~oo",
		"refs/heads/f^oo",
		"refs/heads/f:oo",
		"refs/heads/f?oo",
		"refs/heads/f[oo",
		"refs/heads/f\\oo",
		"refs/heads/fo*o",
		"refs/heads/@{foo}",
	}
	for _, n := range bad {
		assert.False(t, ValidateReferenceName([]byte(n)), n)
	}
}

func TestValidateOneLevel(t *testing.T) {
	assert.True(t, ValidateOneLevel([]byte("HEAD")))
	assert.True(t, ValidateOneLevel([]byte("MERGE_HEAD")))
	assert.False(t, ValidateReferenceName([]byte("HEAD")))
}

func TestValidatePattern(t *testing.T) {
	assert.True(t, ValidatePattern([]byte("refs/heads/*")))
	assert.False(t, ValidatePattern([]byte("refs/heads/fo*o")))
	assert.True(t, ValidatePattern([]byte("*")))
}

func TestDotLockSuffixBannedOnEveryComponent(t *testing.T) {
	// ".lock" is a per-component rule: it bans any component ending in
	// ".lock", not just a trailing one.
	assert.False(t, ValidateReferenceName([]byte("refs/heads/foo.lock/bar")))
	assert.False(t, ValidateReferenceName([]byte("refs/heads/foo.lock")))
	assert.True(t, ValidateReferenceName([]byte("refs/heads/foo.locked/bar")))
}

func TestCheckRefNameFormat(t *testing.T) {
	err := CheckRefNameFormat("refs/heads/master", ValidateOptions{})
	assert.NoError(t, err)

	err = CheckRefNameFormat("bad name", ValidateOptions{})
	assert.Error(t, err)
	var badName ErrBadReferenceName
	assert.ErrorAs(t, err, &badName)
}
