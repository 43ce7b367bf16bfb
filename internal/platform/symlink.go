package platform

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
)

// tmpLinkSuffix names the scratch link used by ReplaceSymlink.
const tmpLinkSuffix = ".agentsync-tmp"

// EntryType classifies what currently sits at a path, without following links.
type EntryType int

const (
	// EntryMissing means nothing exists at the path.
	EntryMissing EntryType = iota
	// EntrySymlink means the path is a symbolic link (dangling or not).
	EntrySymlink
	// EntryDir means the path is a real directory.
	EntryDir
	// EntryFile means the path is a regular file or other non-link entry.
	EntryFile
)

// String returns a short human-readable name for the entry type.
func (t EntryType) String() string {
	switch t {
	case EntryMissing:
		return "missing"
	case EntrySymlink:
		return "symlink"
	case EntryDir:
		return "directory"
	case EntryFile:
		return "file"
	default:
		return "unknown"
	}
}

// Inspect reports the entry type at path using Lstat.
func Inspect(path string) (EntryType, error) {
	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return EntryMissing, nil
		}
		return EntryMissing, err
	}
	switch {
	case info.Mode()&os.ModeSymlink != 0:
		return EntrySymlink, nil
	case info.IsDir():
		return EntryDir, nil
	default:
		return EntryFile, nil
	}
}

// IsSymlink reports whether path is a symbolic link. A missing path is not.
func IsSymlink(path string) (bool, error) {
	t, err := Inspect(path)
	if err != nil {
		return false, err
	}
	return t == EntrySymlink, nil
}

// CreateSymlink creates a symbolic link at link pointing to target.
// On Windows this requires developer mode; the error says so.
func CreateSymlink(target, link string) error {
	if err := os.Symlink(target, link); err != nil {
		if runtime.GOOS == "windows" {
			return fmt.Errorf("creating symlink (enable Windows developer mode): %w", err)
		}
		return err
	}
	return nil
}

// ReplaceSymlink points link at target, replacing an existing symlink at link
// in a single rename. link must be absent or already a symlink; callers guard
// real files and directories with the backup package first.
func ReplaceSymlink(target, link string) error {
	t, err := Inspect(link)
	if err != nil {
		return err
	}
	switch t {
	case EntryMissing:
		return CreateSymlink(target, link)
	case EntrySymlink:
	default:
		return fmt.Errorf("refusing to replace %s %s with a symlink", t, link)
	}

	tmp := link + tmpLinkSuffix
	_ = os.Remove(tmp) // leftover from an interrupted run
	if err := CreateSymlink(target, tmp); err != nil {
		return err
	}
	if err := os.Rename(tmp, link); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// RemoveSymlink removes the symlink at path. It refuses to remove anything
// that is not a symlink.
func RemoveSymlink(path string) error {
	t, err := Inspect(path)
	if err != nil {
		return err
	}
	if t != EntrySymlink {
		return fmt.Errorf("%s is a %s, not a symlink", path, t)
	}
	return os.Remove(path)
}

// ReadSymlinkTarget returns the raw target of a symlink.
func ReadSymlinkTarget(path string) (string, error) {
	return os.Readlink(path)
}

// ResolveTarget returns the absolute, cleaned path a link target refers to.
// Relative targets are resolved against the directory holding the link.
func ResolveTarget(link, target string) string {
	if filepath.IsAbs(target) {
		return filepath.Clean(target)
	}
	return filepath.Clean(filepath.Join(filepath.Dir(link), target))
}

// PointsTo reports whether the symlink at link refers to want. Both sides are
// resolved relative to the link's directory before comparison, so a relative
// and an absolute spelling of the same path match.
func PointsTo(link, want string) (bool, error) {
	got, err := ReadSymlinkTarget(link)
	if err != nil {
		return false, err
	}
	return ResolveTarget(link, got) == ResolveTarget(link, want), nil
}

// Dangling reports whether the symlink at link points at a path that does not
// exist.
func Dangling(link string) (bool, error) {
	if _, err := os.Stat(link); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}
