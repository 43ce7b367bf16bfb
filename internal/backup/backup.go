// Package backup guards existing content before agentsync replaces it. A real
// file or directory in the way of a link is renamed aside, never deleted;
// backups stay on disk until the user removes them.
package backup

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/agentsync-labs/agentsync/internal/errors"
	"github.com/agentsync-labs/agentsync/internal/logging"
	"github.com/agentsync-labs/agentsync/internal/platform"
)

// Suffix is appended to a path to form its backup name.
const Suffix = ".backup"

// maxVersions bounds the search for a free versioned backup name.
const maxVersions = 1000

// Policy decides what happens when the backup name is already taken.
type Policy int

const (
	// PolicyFail reports a collision and leaves everything in place.
	PolicyFail Policy = iota
	// PolicyVersioned picks the first free name among path.backup,
	// path.backup.1, path.backup.2, ...
	PolicyVersioned
)

// Guard moves non-link entries out of the way before they are replaced.
type Guard struct {
	policy Policy
	logger zerolog.Logger
}

// New returns a Guard using the given collision policy.
func New(policy Policy) *Guard {
	return &Guard{
		policy: policy,
		logger: logging.GetLogger("backup"),
	}
}

// Protect makes path safe to replace with a link or directory. When path
// exists and is not a symlink it is renamed to its backup name, which is
// returned. A missing path or an existing symlink is left alone and the
// returned name is empty. After a nil error, path is absent or a symlink.
func (g *Guard) Protect(path string) (string, error) {
	t, err := platform.Inspect(path)
	if err != nil {
		return "", errors.FromFS(err, "inspecting", path)
	}
	if t == platform.EntryMissing || t == platform.EntrySymlink {
		return "", nil
	}

	dest, err := g.backupName(path)
	if err != nil {
		return "", err
	}
	if err := os.Rename(path, dest); err != nil {
		return "", errors.FromFS(err, "backing up", path)
	}

	g.logger.Info().Str("path", path).Str("backup", dest).Str("type", t.String()).Msg("Backed up existing entry")
	return dest, nil
}

func (g *Guard) backupName(path string) (string, error) {
	first := path + Suffix
	free, err := isFree(first)
	if err != nil {
		return "", err
	}
	if free {
		return first, nil
	}

	if g.policy != PolicyVersioned {
		return "", errors.Newf(errors.ErrBackupCollision, "backup %s already exists", first).
			WithDetail("path", path).
			WithHint(fmt.Sprintf("inspect %s, remove it once you no longer need it, then re-run (or enable versioned backups)", first))
	}

	for i := 1; i <= maxVersions; i++ {
		candidate := fmt.Sprintf("%s.%d", first, i)
		free, err := isFree(candidate)
		if err != nil {
			return "", err
		}
		if free {
			return candidate, nil
		}
	}
	return "", errors.Newf(errors.ErrBackupCollision, "no free backup name for %s after %d versions", path, maxVersions).
		WithDetail("path", path)
}

func isFree(path string) (bool, error) {
	t, err := platform.Inspect(path)
	if err != nil {
		return false, errors.FromFS(err, "inspecting", path)
	}
	return t == platform.EntryMissing, nil
}
