// Package ignore maintains a marker-delimited block in a target repository's
// .gitignore so machine-specific files produced by agentsync stay out of
// version control. The block is appended once and rewritten in place only
// when its contents change.
package ignore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/afero"
)

// FileName is the ignore-list file maintained in a target root.
const FileName = ".gitignore"

// Block describes the managed section of an ignore file.
type Block struct {
	// Marker names the block, e.g. "agentsync".
	Marker string
	// Always lists patterns that are always ignored.
	Always []string
	// Optional lists patterns written commented out unless enabled.
	Optional []string
	// EnableOptional uncomments the Optional patterns.
	EnableOptional bool
}

func (b Block) begin() string { return "# >>> " + b.Marker + " >>>" }
func (b Block) end() string   { return "# <<< " + b.Marker + " <<<" }

// Render returns the block text including markers and a trailing newline.
func (b Block) Render() string {
	var sb strings.Builder
	sb.WriteString(b.begin() + "\n")
	sb.WriteString("# Machine-specific files generated by " + b.Marker + ".\n")
	for _, p := range b.Always {
		sb.WriteString(p + "\n")
	}
	if len(b.Optional) > 0 {
		if b.EnableOptional {
			sb.WriteString("# Agent session history:\n")
		} else {
			sb.WriteString("# Uncomment to keep agent session history out of version control:\n")
		}
		for _, p := range b.Optional {
			if b.EnableOptional {
				sb.WriteString(p + "\n")
			} else {
				sb.WriteString("# " + p + "\n")
			}
		}
	}
	sb.WriteString(b.end() + "\n")
	return sb.String()
}

// Ensure makes the file at path contain exactly one copy of the block. It
// returns true when the file was written. A missing file is created.
func Ensure(fsys afero.Fs, path string, b Block) (bool, error) {
	content, err := afero.ReadFile(fsys, path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}
	existing := string(content)
	rendered := b.Render()

	start := strings.Index(existing, b.begin())
	if start >= 0 {
		rest := existing[start:]
		endIdx := strings.Index(rest, b.end())
		if endIdx < 0 {
			return false, fmt.Errorf("%s has an unterminated %q block; remove it and re-run", path, b.Marker)
		}
		stop := start + endIdx + len(b.end())
		if stop < len(existing) && existing[stop] == '\n' {
			stop++
		}
		if existing[start:stop] == rendered {
			return false, nil
		}
		updated := existing[:start] + rendered + existing[stop:]
		if err := afero.WriteFile(fsys, path, []byte(updated), 0o644); err != nil {
			return false, fmt.Errorf("writing %s: %w", path, err)
		}
		return true, nil
	}

	// Append. Keep a blank line between existing content and the block.
	prefix := ""
	if len(existing) > 0 {
		if !strings.HasSuffix(existing, "\n") {
			prefix = "\n"
		}
		prefix += "\n"
	}

	f, err := fsys.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return false, fmt.Errorf("opening %s for append: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(prefix + rendered); err != nil {
		return false, fmt.Errorf("writing to %s: %w", path, err)
	}
	return true, nil
}

// Contains reports whether the file at path already holds a block with the
// given marker.
func Contains(fsys afero.Fs, path, marker string) (bool, error) {
	content, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("reading %s: %w", path, err)
	}
	return strings.Contains(string(content), Block{Marker: marker}.begin()), nil
}
