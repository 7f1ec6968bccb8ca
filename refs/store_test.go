package refs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeta-scm/refstore/config"
	"github.com/zeta-scm/refstore/identity"
	"github.com/zeta-scm/refstore/objectdb"
	"github.com/zeta-scm/refstore/plumbing"
)

func testSignature() identity.Signature {
	return identity.Signature{Name: "tester", Email: "tester@example.com"}
}

func newTestStore(t *testing.T) (*Store, string) {
	s, dir, _ := newTestStoreWithDB(t)
	return s, dir
}

func newTestStoreWithDB(t *testing.T) (*Store, string, *objectdb.Memory) {
	t.Helper()
	dir := t.TempDir()
	db := objectdb.NewMemory()
	s := NewSubmoduleStore(dir, dir, db, &config.Repository{})
	return s, dir, db
}

func TestWriteAndResolve(t *testing.T) {
	s, _, db := newTestStoreWithDB(t)
	target := plumbing.NewHash("adba50d9794b9ef3f7ec8cbc680f7f1fa3fbf9df")
	db.Put(target, objectdb.KindCommit, nil)
	err := s.WriteRef(plumbing.NewBranchReferenceName("mainline"), target, nil, 0, testSignature(), "create mainline")
	require.NoError(t, err)

	r, err := s.ReadRef(plumbing.NewBranchReferenceName("mainline"))
	require.NoError(t, err)
	assert.Equal(t, target, r.Target())
}

func TestResolveMissingFailsWhenReading(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Resolve(plumbing.NewBranchReferenceName("nope"), true)
	assert.ErrorIs(t, err, plumbing.ErrReferenceNotFound)
}

func TestResolveMissingSucceedsWhenNotReading(t *testing.T) {
	s, _ := newTestStore(t)
	res, err := s.Resolve(plumbing.NewBranchReferenceName("nope"), false)
	require.NoError(t, err)
	assert.True(t, res.Target.IsZero())
}

func TestSymbolicResolution(t *testing.T) {
	s, _, db := newTestStoreWithDB(t)
	target := plumbing.NewHash("bd9ddb6547b224fd6bb39b7f7fddf833b37f4ddb")
	db.Put(target, objectdb.KindCommit, nil)
	require.NoError(t, s.WriteRef(plumbing.NewBranchReferenceName("master"), target, nil, 0, testSignature(), "init"))
	require.NoError(t, s.CreateSymref(plumbing.HEAD, plumbing.NewBranchReferenceName("master"), testSignature(), "set HEAD"))

	res, err := s.Resolve(plumbing.HEAD, true)
	require.NoError(t, err)
	assert.Equal(t, target, res.Target)
	assert.True(t, res.Flags.Has(plumbing.FlagSymbolic))
}

func TestCreateSymrefRepointsExistingSymbolicReferenceItself(t *testing.T) {
	s, _, db := newTestStoreWithDB(t)
	masterTarget := plumbing.NewHash("bd9ddb6547b224fd6bb39b7f7fddf833b37f4ddb")
	developTarget := plumbing.NewHash("eeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee")
	db.Put(masterTarget, objectdb.KindCommit, nil)
	db.Put(developTarget, objectdb.KindCommit, nil)
	require.NoError(t, s.WriteRef(plumbing.NewBranchReferenceName("master"), masterTarget, nil, 0, testSignature(), "init"))
	require.NoError(t, s.WriteRef(plumbing.NewBranchReferenceName("develop"), developTarget, nil, 0, testSignature(), "init"))
	require.NoError(t, s.CreateSymref(plumbing.HEAD, plumbing.NewBranchReferenceName("master"), testSignature(), "set HEAD"))

	// Re-pointing HEAD must rewrite HEAD's own file, not the branch it
	// currently resolves to.
	require.NoError(t, s.CreateSymref(plumbing.HEAD, plumbing.NewBranchReferenceName("develop"), testSignature(), "switch branch"))

	res, err := s.Resolve(plumbing.HEAD, true)
	require.NoError(t, err)
	assert.Equal(t, developTarget, res.Target)

	// master must be untouched: still a live, non-symbolic branch at its
	// original target.
	masterRes, err := s.Resolve(plumbing.NewBranchReferenceName("master"), true)
	require.NoError(t, err)
	assert.Equal(t, masterTarget, masterRes.Target)
	assert.False(t, masterRes.Flags.Has(plumbing.FlagSymbolic))
}

func TestResolverDepthBound(t *testing.T) {
	s, dir := newTestStore(t)
	// Build a chain of 6 symbolic references: HEAD -> r0 -> r1 -> ... -> r5.
	// MaxResolveDepth is 5, so following it should exhaust the bound.
	prev := plumbing.HEAD
	for i := 0; i < 6; i++ {
		next := plumbing.NewBranchReferenceName(filepathBase(i))
		require.NoError(t, s.CreateSymref(prev, next, testSignature(), "chain"))
		prev = next
	}
	_ = dir
	_, err := s.Resolve(plumbing.HEAD, true)
	assert.ErrorIs(t, err, plumbing.ErrMaxDepthExceeded)
}

func filepathBase(i int) string {
	return "chain" + string(rune('a'+i))
}

func TestWriteBranchRejectsMissingObject(t *testing.T) {
	s, _ := newTestStore(t)
	target := plumbing.NewHash("ffffffffffffffffffffffffffffffffffffffff")
	err := s.WriteRef(plumbing.NewBranchReferenceName("orphan"), target, nil, 0, testSignature(), "create")
	assert.ErrorIs(t, err, plumbing.ErrObjectNotFound)
	_, resolveErr := s.Resolve(plumbing.NewBranchReferenceName("orphan"), true)
	assert.ErrorIs(t, resolveErr, plumbing.ErrReferenceNotFound)
}

func TestWriteBranchRejectsNonCommitTarget(t *testing.T) {
	s, _, db := newTestStoreWithDB(t)
	blobTarget := plumbing.NewHash("1234567890123456789012345678901234567890")
	db.Put(blobTarget, objectdb.KindBlob, nil)
	err := s.WriteRef(plumbing.NewBranchReferenceName("bad"), blobTarget, nil, 0, testSignature(), "create")
	assert.ErrorIs(t, err, plumbing.ErrNotACommit)
}

func TestWriteNonBranchAllowsNonCommitTarget(t *testing.T) {
	s, _, db := newTestStoreWithDB(t)
	blobTarget := plumbing.NewHash("1234567890123456789012345678901234567890")
	db.Put(blobTarget, objectdb.KindBlob, nil)
	err := s.WriteRef(plumbing.NewTagReferenceName("v1.0.0"), blobTarget, nil, 0, testSignature(), "create")
	require.NoError(t, err)
}

func TestPackedLooseOcclusion(t *testing.T) {
	s, dir, db := newTestStoreWithDB(t)
	packedHash := plumbing.NewHash("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	looseHash := plumbing.NewHash("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	db.Put(looseHash, objectdb.KindCommit, nil)
	name := plumbing.NewBranchReferenceName("feature")

	arr := NewArray()
	arr.Put(plumbing.NewHashReference(name, packedHash, plumbing.FlagPacked))
	f, err := os.Create(filepath.Join(dir, PackedRefsFileName))
	require.NoError(t, err)
	require.NoError(t, WritePackedRefs(f, arr))
	require.NoError(t, f.Close())
	s.cache.InvalidateAll()

	res, err := s.Resolve(name, true)
	require.NoError(t, err)
	assert.Equal(t, packedHash, res.Target)
	assert.True(t, res.Flags.Has(plumbing.FlagPacked))

	require.NoError(t, s.WriteRef(name, looseHash, nil, 0, testSignature(), "loose wins"))
	res, err = s.Resolve(name, true)
	require.NoError(t, err)
	assert.Equal(t, looseHash, res.Target)
	assert.False(t, res.Flags.Has(plumbing.FlagPacked))

	// Delete always repacks without the deleted name too, so after a full delete the name is gone from
	// both arrays.
	require.NoError(t, s.DeleteRef(name, nil, 0, testSignature(), "drop loose"))
	_, err = s.Resolve(name, true)
	assert.ErrorIs(t, err, plumbing.ErrReferenceNotFound)
}

func TestDeleteRef(t *testing.T) {
	s, _, db := newTestStoreWithDB(t)
	name := plumbing.NewBranchReferenceName("doomed")
	target := plumbing.NewHash("cccccccccccccccccccccccccccccccccccccccc")
	db.Put(target, objectdb.KindCommit, nil)
	require.NoError(t, s.WriteRef(name, target, nil, 0, testSignature(), "create"))
	require.NoError(t, s.DeleteRef(name, nil, 0, testSignature(), "remove"))
	_, err := s.Resolve(name, true)
	assert.ErrorIs(t, err, plumbing.ErrReferenceNotFound)
}

func TestRenameRef(t *testing.T) {
	s, _, db := newTestStoreWithDB(t)
	oldName := plumbing.NewBranchReferenceName("topic")
	newName := plumbing.NewBranchReferenceName("renamed-topic")
	target := plumbing.NewHash("dddddddddddddddddddddddddddddddddddddddd")
	db.Put(target, objectdb.KindCommit, nil)
	require.NoError(t, s.WriteRef(oldName, target, nil, 0, testSignature(), "create"))
	require.NoError(t, s.RenameRef(oldName, newName, testSignature(), "rename"))

	_, err := s.Resolve(oldName, true)
	assert.ErrorIs(t, err, plumbing.ErrReferenceNotFound)
	res, err := s.Resolve(newName, true)
	require.NoError(t, err)
	assert.Equal(t, target, res.Target)
}

func TestForEachPrefixTrim(t *testing.T) {
	s, _, db := newTestStoreWithDB(t)
	h1 := plumbing.NewHash("1111111111111111111111111111111111111111")
	h2 := plumbing.NewHash("2222222222222222222222222222222222222222")
	db.Put(h1, objectdb.KindCommit, nil)
	db.Put(h2, objectdb.KindCommit, nil)
	require.NoError(t, s.WriteRef(plumbing.NewBranchReferenceName("a"), h1, nil, 0, testSignature(), ""))
	require.NoError(t, s.WriteRef(plumbing.NewBranchReferenceName("b"), h2, nil, 0, testSignature(), ""))

	var names []string
	err := s.ForEach(ForEachOptions{Prefix: "refs/heads/"}, func(r *plumbing.Reference) error {
		names = append(names, string(r.Name()))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestCheckRefNameFormat(t *testing.T) {
	assert.NoError(t, CheckRefNameFormat("HEAD"))
	assert.NoError(t, CheckRefNameFormat("refs/heads/master"))
	assert.Error(t, CheckRefNameFormat("refs/heads/"))
}

func TestShortenUnambiguousRef(t *testing.T) {
	live := map[string]bool{
		"refs/heads/master": true,
		"refs/tags/master":  true,
	}
	exists := func(n plumbing.ReferenceName) bool { return live[string(n)] }
	// Both refs/heads/master and refs/tags/master exist, so bare
	// "master" is ambiguous, but "heads/master" under the "refs/%s"
	// rule is still unique: no other rule's expansion of "heads/master"
	// resolves to a live reference.
	short := ShortenUnambiguousRef(plumbing.NewBranchReferenceName("master"), true, exists)
	assert.Equal(t, "heads/master", short)
}

func TestShortenUnambiguousRefUnique(t *testing.T) {
	live := map[string]bool{"refs/heads/master": true}
	exists := func(n plumbing.ReferenceName) bool { return live[string(n)] }
	short := ShortenUnambiguousRef(plumbing.NewBranchReferenceName("master"), true, exists)
	assert.Equal(t, "master", short)
}
