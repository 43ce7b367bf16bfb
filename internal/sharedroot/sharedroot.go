// Package sharedroot opens and inspects the shared source-of-truth directory
// that every target repository links to. The shared root is read-only from
// agentsync's point of view.
package sharedroot

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	agenterrors "github.com/agentsync-labs/agentsync/internal/errors"
	"github.com/agentsync-labs/agentsync/internal/topology"
)

// knownSubtrees are the directories a shared root may hold. A directory with
// none of them is rejected so a typo never turns into links to nowhere.
var knownSubtrees = []string{
	topology.SharedSkills,
	topology.SharedWorkflows,
	topology.SharedRules,
	topology.SharedTemplates,
	topology.SharedScripts,
}

// Root is an opened shared root.
type Root struct {
	Path string
}

// Open validates path and returns the shared root. The path is made
// absolute and cleaned; symlinks in it are kept so links created against it
// follow the same spelling the user configured.
func Open(path string) (*Root, error) {
	if path == "" {
		return nil, agenterrors.New(agenterrors.ErrConfigMissing, "shared root is not configured").
			WithHint("pass --shared-root, set AGENTSYNC_SHARED_ROOT, or run `agentsync config set shared_root <path>`")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, agenterrors.Wrapf(err, agenterrors.ErrConfigMissing, "resolving shared root %s", path)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, agenterrors.Newf(agenterrors.ErrConfigMissing, "shared root %s does not exist", abs).
				WithDetail("path", abs).
				WithHint("check the shared root path or clone it first")
		}
		return nil, agenterrors.FromFS(err, "opening shared root", abs)
	}
	if !info.IsDir() {
		return nil, agenterrors.Newf(agenterrors.ErrConfigMissing, "shared root %s is not a directory", abs).
			WithDetail("path", abs)
	}

	r := &Root{Path: filepath.Clean(abs)}
	if !r.looksValid() {
		return nil, agenterrors.Newf(agenterrors.ErrConfigMissing,
			"shared root %s has none of skills/, workflows/, rules/, templates/, scripts/", abs).
			WithDetail("path", abs).
			WithHint("point the shared root at the directory that contains skills/ and workflows/")
	}
	return r, nil
}

// Sub returns the absolute path of a slash-separated path inside the root.
func (r *Root) Sub(rel string) string {
	return topology.Abs(r.Path, rel)
}

// Has reports whether the named subtree exists as a directory, following
// symlinks.
func (r *Root) Has(subtree string) bool {
	info, err := os.Stat(r.Sub(subtree))
	return err == nil && info.IsDir()
}

// ReadFile reads a file inside the root.
func (r *Root) ReadFile(rel string) ([]byte, error) {
	data, err := os.ReadFile(r.Sub(rel))
	if err != nil {
		return nil, fmt.Errorf("reading shared %s: %w", rel, err)
	}
	return data, nil
}

// Missing returns the known subtrees absent from the root.
func (r *Root) Missing() []string {
	var out []string
	for _, s := range knownSubtrees {
		if !r.Has(s) {
			out = append(out, s)
		}
	}
	return out
}

// Require fails with CONFIG_MISSING naming every listed subtree the root
// lacks.
func (r *Root) Require(subtrees ...string) error {
	var absent []string
	for _, s := range subtrees {
		if !r.Has(s) {
			absent = append(absent, s+"/")
		}
	}
	if len(absent) == 0 {
		return nil
	}
	return agenterrors.Newf(agenterrors.ErrConfigMissing, "shared root %s has no %s", r.Path, strings.Join(absent, ", ")).
		WithDetail("missing", absent).
		WithHint("add the missing directories to the shared root, or point --shared-root at a complete one")
}

func (r *Root) looksValid() bool {
	return len(r.Missing()) < len(knownSubtrees)
}

// FromExecutable derives a shared root from the location of the running
// binary. The binary is expected in <root>/scripts/ or <root>/bin/, or in the
// root itself. It returns false when no candidate looks like a shared root.
func FromExecutable(exe string) (string, bool) {
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	dir := filepath.Dir(exe)

	candidates := []string{dir}
	switch filepath.Base(dir) {
	case topology.SharedScripts, "bin":
		candidates = append([]string{filepath.Dir(dir)}, candidates...)
	}
	for _, c := range candidates {
		r := &Root{Path: c}
		if r.Has(topology.SharedSkills) || r.Has(topology.SharedWorkflows) {
			return c, true
		}
	}
	return "", false
}
