// Package target resolves the repository directory a command operates on.
package target

import (
	"path/filepath"

	agenterrors "github.com/agentsync-labs/agentsync/internal/errors"
	"github.com/agentsync-labs/agentsync/internal/platform"
)

// Resolve returns the absolute, cleaned path of an existing target
// directory. An empty path means the working directory.
func Resolve(path string) (string, error) {
	if path == "" {
		path = "."
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", agenterrors.FromFS(err, "resolving", path)
	}

	t, err := platform.Inspect(abs)
	if err != nil {
		return "", agenterrors.FromFS(err, "inspecting", abs)
	}
	switch t {
	case platform.EntryDir:
	case platform.EntrySymlink:
		resolved, err := filepath.EvalSymlinks(abs)
		if err != nil {
			return "", agenterrors.FromFS(err, "resolving", abs)
		}
		return Resolve(resolved)
	case platform.EntryMissing:
		return "", agenterrors.Newf(agenterrors.ErrFilesystem, "target %s does not exist", abs).
			WithDetail("path", abs)
	default:
		return "", agenterrors.Newf(agenterrors.ErrFilesystem, "target %s is not a directory", abs).
			WithDetail("path", abs)
	}
	return filepath.Clean(abs), nil
}
