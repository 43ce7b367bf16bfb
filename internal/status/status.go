// Package status inspects a target without changing it and reports whether
// each managed artifact is where it should be.
package status

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	agenterrors "github.com/agentsync-labs/agentsync/internal/errors"
	"github.com/agentsync-labs/agentsync/internal/mirror"
	"github.com/agentsync-labs/agentsync/internal/platform"
	"github.com/agentsync-labs/agentsync/internal/settings"
	"github.com/agentsync-labs/agentsync/internal/sharedroot"
	"github.com/agentsync-labs/agentsync/internal/target"
	"github.com/agentsync-labs/agentsync/internal/topology"
)

// State is the health of one checked path.
type State string

const (
	StateOK          State = "ok"
	StateMissing     State = "missing"
	StateStale       State = "stale"
	StateWrongTarget State = "wrong-target"
	StateNotLink     State = "not-a-link"
	StateDrifted     State = "drifted"
	StateLegacy      State = "legacy"
)

// Short returns a tag of at most six characters.
func (s State) Short() string {
	switch s {
	case StateWrongTarget:
		return "wrong"
	case StateNotLink:
		return "nolink"
	default:
		return string(s)
	}
}

// Check is the verdict for one path.
type Check struct {
	Artifact topology.Artifact `json:"artifact"`
	Path     string            `json:"path"`
	State    State             `json:"state"`
	Detail   string            `json:"detail,omitempty"`
}

// Result is the status of one target.
type Result struct {
	Target     string  `json:"target"`
	SharedRoot string  `json:"shared_root"`
	Checks     []Check `json:"checks"`
}

// Problems counts checks that are not OK.
func (r *Result) Problems() int {
	n := 0
	for _, c := range r.Checks {
		if c.State != StateOK {
			n++
		}
	}
	return n
}

// Consistent reports whether every check passed.
func (r *Result) Consistent() bool { return r.Problems() == 0 }

type checker struct {
	fs     afero.Fs
	root   string
	shared *sharedroot.Root
	layout topology.Layout
	result *Result
}

// Inspect checks the target at path against the shared root. It never
// writes.
func Inspect(path, sharedPath string) (*Result, error) {
	root, err := target.Resolve(path)
	if err != nil {
		return nil, err
	}
	shared, err := sharedroot.Open(sharedPath)
	if err != nil {
		return nil, err
	}

	fsys := afero.NewOsFs()
	layout := topology.DefaultLayout()
	agentDir := topology.Abs(root, layout.AgentDir)
	if t, err := platform.Inspect(agentDir); err != nil {
		return nil, agenterrors.FromFS(err, "inspecting", agentDir)
	} else if t != platform.EntryDir {
		return nil, agenterrors.Newf(agenterrors.ErrNotInitialized, "%s is not initialized", root).
			WithDetail("path", agentDir)
	}
	s, err := settings.Load(fsys, settings.Path(root, layout.AgentDir))
	if err != nil {
		return nil, err
	}

	c := &checker{
		fs:     fsys,
		root:   root,
		shared: shared,
		layout: s.Apply(layout),
		result: &Result{Target: root, SharedRoot: shared.Path},
	}
	c.checkShared(topology.Skills)
	c.checkShared(topology.Workflows)
	c.checkRules()
	c.checkAliases()
	c.checkCommands()
	c.checkLocal(topology.AgentInstructions)
	c.checkLocal(topology.LocalDocs)
	c.checkLocal(topology.ToolSettings)
	return c.result, nil
}

func (c *checker) add(a topology.Artifact, rel string, s State, format string, args ...any) {
	detail := ""
	if format != "" {
		detail = fmt.Sprintf(format, args...)
	}
	c.result.Checks = append(c.result.Checks, Check{Artifact: a, Path: rel, State: s, Detail: detail})
}

func (c *checker) checkShared(a topology.Artifact) {
	p := c.layout.MustResolve(a)
	c.checkLink(a, p.Dests[0], c.shared.Sub(p.Source))
}

// checkLink classifies the entry at rel against the wanted link target.
func (c *checker) checkLink(a topology.Artifact, rel, want string) {
	dest := topology.Abs(c.root, rel)
	t, err := platform.Inspect(dest)
	if err != nil {
		c.add(a, rel, StateMissing, "%v", err)
		return
	}
	switch t {
	case platform.EntryMissing:
		c.add(a, rel, StateMissing, "")
		return
	case platform.EntryDir, platform.EntryFile:
		c.add(a, rel, StateNotLink, "%s", t)
		return
	}

	raw, err := platform.ReadSymlinkTarget(dest)
	if err != nil {
		c.add(a, rel, StateStale, "%v", err)
		return
	}
	if ok, _ := platform.PointsTo(dest, want); !ok {
		c.add(a, rel, StateWrongTarget, "-> %s, want %s", raw, want)
		return
	}
	if dangling, _ := platform.Dangling(dest); dangling {
		c.add(a, rel, StateStale, "-> %s does not exist", raw)
		return
	}
	c.add(a, rel, StateOK, "-> %s", raw)
}

func (c *checker) checkRules() {
	rel := c.layout.MustResolve(topology.Rules).Dests[0]
	shape, err := topology.DetectRulesShape(topology.Abs(c.root, rel))
	if err != nil {
		c.add(topology.Rules, rel, StateMissing, "%v", err)
		return
	}
	switch shape {
	case topology.ShapeLegacyLink:
		c.add(topology.Rules, rel, StateLegacy, "whole-directory link")
		return
	case topology.ShapeForeign:
		c.add(topology.Rules, rel, StateNotLink, "regular file")
		return
	case topology.ShapeAbsent:
		c.add(topology.Rules, rel, StateMissing, "")
		return
	}
	shared := c.layout.MustResolve(topology.RulesShared)
	c.checkLink(topology.RulesShared, shared.Dests[0], c.shared.Sub(shared.Source))
}

func (c *checker) checkAliases() {
	p := c.layout.MustResolve(topology.ToolAlias)
	primary := topology.Abs(c.root, p.Source)
	for _, alias := range p.Dests {
		if alias == p.Source {
			continue
		}
		target, err := filepath.Rel(c.root, primary)
		if err != nil {
			target = primary
		}
		c.checkLink(topology.ToolAlias, alias, target)
	}
}

// checkCommands compares the mirrored files with the shared workflows.
func (c *checker) checkCommands() {
	p := c.layout.MustResolve(topology.ToolCommands)
	rel := p.Dests[0]
	dir := topology.Abs(c.root, rel)
	if !c.shared.Has(p.Source) {
		c.add(topology.ToolCommands, rel, StateMissing, "shared root has no %s/", p.Source)
		return
	}
	t, err := platform.Inspect(dir)
	if err != nil || t == platform.EntryMissing {
		c.add(topology.ToolCommands, rel, StateMissing, "")
		return
	}
	if t != platform.EntryDir {
		c.add(topology.ToolCommands, rel, StateDrifted, "%s, not a directory", t)
		return
	}

	upstream := map[string][]byte{}
	for e, err := range mirror.Scan(c.fs, c.shared.Sub(p.Source), mirror.Suffix) {
		if err != nil {
			c.add(topology.ToolCommands, rel, StateDrifted, "%v", err)
			return
		}
		data, err := afero.ReadFile(c.fs, e.Path)
		if err != nil {
			continue
		}
		upstream[e.Name] = data
	}

	var missing, stale, differ int
	seen := map[string]bool{}
	for e, err := range mirror.Scan(c.fs, dir, mirror.Suffix) {
		if err != nil {
			c.add(topology.ToolCommands, rel, StateDrifted, "%v", err)
			return
		}
		seen[e.Name] = true
		want, ok := upstream[e.Name]
		if !ok {
			stale++
			continue
		}
		got, err := os.ReadFile(e.Path)
		if err != nil || !bytes.Equal(got, want) {
			differ++
		}
	}
	for name := range upstream {
		if !seen[name] {
			missing++
		}
	}
	if missing+stale+differ > 0 {
		c.add(topology.ToolCommands, rel, StateDrifted, "%d missing, %d stale, %d changed", missing, stale, differ)
		return
	}
	c.add(topology.ToolCommands, rel, StateOK, "%d files", len(upstream))
}

// checkLocal only verifies presence; local content is never judged.
func (c *checker) checkLocal(a topology.Artifact) {
	for _, rel := range c.layout.MustResolve(a).Dests {
		t, err := platform.Inspect(topology.Abs(c.root, rel))
		if err != nil || t == platform.EntryMissing {
			c.add(a, rel, StateMissing, "")
			continue
		}
		c.add(a, rel, StateOK, "")
	}
}
