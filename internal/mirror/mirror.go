// Package mirror keeps a tool-specific directory an exact copy of the
// markdown files in a shared directory. It exists for tools that cannot
// follow symlinks: files are copied, stale copies are deleted, and nothing
// outside the suffix filter is touched.
package mirror

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
)

// Suffix is the file-name filter for mirrored entries.
const Suffix = ".md"

// readBatch is how many directory entries Scan reads per call.
const readBatch = 64

// Entry is one file found by Scan.
type Entry struct {
	Name string
	Path string
	Mode fs.FileMode
}

// Scan returns a lazy sequence over the non-directory entries of dir whose
// names end in suffix. Each range over the sequence re-reads the directory;
// no state is kept between iterations. A missing dir yields nothing.
func Scan(fsys afero.Fs, dir, suffix string) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		f, err := fsys.Open(dir)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				yield(Entry{}, fmt.Errorf("opening %s: %w", dir, err))
			}
			return
		}
		defer f.Close()

		for {
			infos, err := f.Readdir(readBatch)
			for _, info := range infos {
				if info.IsDir() || filepath.Ext(info.Name()) != suffix {
					continue
				}
				e := Entry{Name: info.Name(), Path: filepath.Join(dir, info.Name()), Mode: info.Mode()}
				if !yield(e, nil) {
					return
				}
			}
			if err == io.EOF || (err == nil && len(infos) == 0) {
				return
			}
			if err != nil {
				yield(Entry{}, fmt.Errorf("reading %s: %w", dir, err))
				return
			}
		}
	}
}

// Result lists the file names a Sync touched, each sorted.
type Result struct {
	Added     []string
	Updated   []string
	Removed   []string
	Unchanged []string
	Warnings  []string
}

// Changed reports whether the sync modified the destination.
func (r *Result) Changed() bool {
	return len(r.Added)+len(r.Updated)+len(r.Removed) > 0
}

// Sync makes the Suffix files of dstDir equal to those of srcDir: new files
// are copied, differing files overwritten and files absent from srcDir
// deleted. Identical files are not rewritten.
func Sync(fsys afero.Fs, srcDir, dstDir string) (*Result, error) {
	if err := fsys.MkdirAll(dstDir, 0755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dstDir, err)
	}

	result := &Result{}
	upstream := make(map[string]bool)

	for e, err := range Scan(fsys, srcDir, Suffix) {
		if err != nil {
			return result, err
		}
		upstream[e.Name] = true

		data, err := afero.ReadFile(fsys, e.Path)
		if err != nil {
			// A dangling upstream link should not abort the whole mirror.
			result.Warnings = append(result.Warnings, fmt.Sprintf("skipping %s: %v", e.Path, err))
			continue
		}

		status, err := copyOne(fsys, data, filepath.Join(dstDir, e.Name))
		if err != nil {
			return result, err
		}
		switch status {
		case statusAdded:
			result.Added = append(result.Added, e.Name)
		case statusUpdated:
			result.Updated = append(result.Updated, e.Name)
		default:
			result.Unchanged = append(result.Unchanged, e.Name)
		}
	}

	var stale []string
	for e, err := range Scan(fsys, dstDir, Suffix) {
		if err != nil {
			return result, err
		}
		if !upstream[e.Name] {
			stale = append(stale, e.Path)
		}
	}
	for _, p := range stale {
		if err := fsys.Remove(p); err != nil {
			return result, fmt.Errorf("removing stale %s: %w", p, err)
		}
		result.Removed = append(result.Removed, filepath.Base(p))
	}

	sort.Strings(result.Added)
	sort.Strings(result.Updated)
	sort.Strings(result.Removed)
	sort.Strings(result.Unchanged)
	return result, nil
}

type copyStatus int

const (
	statusUnchanged copyStatus = iota
	statusAdded
	statusUpdated
)

func copyOne(fsys afero.Fs, data []byte, dst string) (copyStatus, error) {
	link, err := isSymlink(fsys, dst)
	if err != nil {
		return statusUnchanged, err
	}
	if link {
		// Writing through a link could modify the shared root.
		if err := fsys.Remove(dst); err != nil {
			return statusUnchanged, fmt.Errorf("removing link %s: %w", dst, err)
		}
		if err := afero.WriteFile(fsys, dst, data, 0644); err != nil {
			return statusUnchanged, fmt.Errorf("writing %s: %w", dst, err)
		}
		return statusUpdated, nil
	}

	existing, err := afero.ReadFile(fsys, dst)
	switch {
	case err == nil && bytes.Equal(existing, data):
		return statusUnchanged, nil
	case err == nil:
		if err := afero.WriteFile(fsys, dst, data, 0644); err != nil {
			return statusUnchanged, fmt.Errorf("writing %s: %w", dst, err)
		}
		return statusUpdated, nil
	case errors.Is(err, fs.ErrNotExist):
		if err := afero.WriteFile(fsys, dst, data, 0644); err != nil {
			return statusUnchanged, fmt.Errorf("writing %s: %w", dst, err)
		}
		return statusAdded, nil
	default:
		return statusUnchanged, fmt.Errorf("reading %s: %w", dst, err)
	}
}

func isSymlink(fsys afero.Fs, path string) (bool, error) {
	lstater, ok := fsys.(afero.Lstater)
	if !ok {
		return false, nil
	}
	info, lstatCalled, err := lstater.LstatIfPossible(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return lstatCalled && info.Mode()&os.ModeSymlink != 0, nil
}
