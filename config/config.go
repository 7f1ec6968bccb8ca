// Package config holds the slice of repository-level configuration the
// reference store actually consults, loaded the way git loads
// every other repository setting: a TOML file decoded with
// github.com/BurntSushi/toml.
package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Repository is the subset of repository configuration the ref store
// reads. A zero-value Repository reproduces the conventional defaults:
// not bare, and reflogs enabled for the standard four prefixes.
type Repository struct {
	Core struct {
		// Bare suppresses reflog creation even for HEAD and
		// refs/heads/* ("unless the repository is bare").
		Bare bool `toml:"bare"`
		// LogAllRefUpdates additionally extends reflog creation to
		// every reference, not just the standard prefixes, mirroring
		// git's core.logAllRefUpdates.
		LogAllRefUpdates bool `toml:"logAllRefUpdates"`
	} `toml:"core"`
}

// Load decodes a repository config file. A missing file is not an
// error: it yields the zero-value (non-bare, default prefixes) config.
func Load(path string) (*Repository, error) {
	var cfg Repository
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, err
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// standardReflogPrefixes are the reference-name prefixes that get a
// reflog on creation regardless of LogAllRefUpdates.
var standardReflogPrefixes = []string{"refs/heads/", "refs/remotes/", "refs/notes/"}

// WantsReflog reports whether name should have a reflog created for it
// on its first update: HEAD and the three standard prefixes always
// qualify (bare repositories aside), core.logAllRefUpdates extends
// that to everything else.
func (c *Repository) WantsReflog(name string) bool {
	if c.Core.Bare {
		return false
	}
	if name == "HEAD" {
		return true
	}
	for _, p := range standardReflogPrefixes {
		if len(name) >= len(p) && name[:len(p)] == p {
			return true
		}
	}
	return c.Core.LogAllRefUpdates
}
