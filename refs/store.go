package refs

import (
	"path/filepath"

	"github.com/zeta-scm/refstore/config"
	"github.com/zeta-scm/refstore/lockfile"
	"github.com/zeta-scm/refstore/objectdb"
	"github.com/zeta-scm/refstore/plumbing"
	"github.com/zeta-scm/refstore/reflog"
)

// PackedRefsFileName is the single coalesced-refs file at the root of
// every repository.
const PackedRefsFileName = "packed-refs"

// HeadFileName is the repository's HEAD symbolic reference file.
const HeadFileName = "HEAD"

// MaxResolveDepth bounds the number of symbolic indirections a resolve
// will follow before giving up with ErrMaxDepthExceeded.
const MaxResolveDepth = 5

// Store ties together everything one reference-store operation needs:
// where the repository lives on disk, its object database (for
// existence checks and tag peeling), its parsed config (for reflog
// policy), a lock primitive, and the memoized ref cache.
type Store struct {
	repoPath  string
	submodule string
	objects   objectdb.Database
	cfg       *config.Repository
	locks     lockfile.Primitive
	cache     *Cache
	logs      *reflog.DB
}

// NewStore creates a Store rooted at repoPath for the main repository
// (submodule ""). Pass a non-empty submodule name via NewSubmoduleStore
// to address a submodule's own reference namespace instead.
func NewStore(repoPath string, objects objectdb.Database, cfg *config.Repository) *Store {
	return NewSubmoduleStore("", repoPath, objects, cfg)
}

// NewSubmoduleStore creates a Store for the named submodule, rooted at
// its own repoPath, sharing the process-wide cache registry keyed by
// submodule name.
func NewSubmoduleStore(submodule, repoPath string, objects objectdb.Database, cfg *config.Repository) *Store {
	if cfg == nil {
		cfg = &config.Repository{}
	}
	return &Store{
		repoPath:  repoPath,
		submodule: submodule,
		objects:   objects,
		cfg:       cfg,
		locks:     lockfile.OS{},
		cache:     defaultRegistry.For(submodule, repoPath),
		logs:      reflog.NewDB(repoPath),
	}
}

func (s *Store) packedRefsPath() string {
	return filepath.Join(s.repoPath, PackedRefsFileName)
}

func (s *Store) loosePath(name plumbing.ReferenceName) string {
	return filepath.Join(s.repoPath, string(name))
}
