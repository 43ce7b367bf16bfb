package linker

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/agentsync-labs/agentsync/internal/backup"
	"github.com/agentsync-labs/agentsync/internal/branding"
	agenterrors "github.com/agentsync-labs/agentsync/internal/errors"
	"github.com/agentsync-labs/agentsync/internal/logging"
	"github.com/agentsync-labs/agentsync/internal/platform"
	"github.com/agentsync-labs/agentsync/internal/report"
	"github.com/agentsync-labs/agentsync/internal/settings"
	"github.com/agentsync-labs/agentsync/internal/sharedroot"
	"github.com/agentsync-labs/agentsync/internal/stubs"
	"github.com/agentsync-labs/agentsync/internal/topology"
)

// toolSettingsMode keeps machine-local tool settings private to the user.
const toolSettingsMode = 0600

// Options configures a Linker.
type Options struct {
	Root     string
	Shared   *sharedroot.Root
	Settings *settings.Settings
	Guard    *backup.Guard
	Report   *report.Report
}

// Linker converges one target. It is used for a single run and is not safe
// for concurrent use.
type Linker struct {
	fs       afero.Fs
	root     string
	shared   *sharedroot.Root
	settings *settings.Settings
	layout   topology.Layout
	guard    *backup.Guard
	rep      *report.Report
	logger   zerolog.Logger
}

// New returns a Linker for opts.Root. A nil Settings means defaults.
func New(opts Options) *Linker {
	s := opts.Settings
	if s == nil {
		s = &settings.Settings{}
	}
	return &Linker{
		fs:       afero.NewOsFs(),
		root:     opts.Root,
		shared:   opts.Shared,
		settings: s,
		layout:   s.Apply(topology.DefaultLayout()),
		guard:    opts.Guard,
		rep:      opts.Report,
		logger:   logging.GetLogger("linker").With().Str("target", opts.Root).Logger(),
	}
}

// Layout returns the layout in effect for this target.
func (l *Linker) Layout() topology.Layout { return l.layout }

func (l *Linker) abs(rel string) string { return topology.Abs(l.root, rel) }

// rel turns an absolute path under the root into the slash form used in
// reports.
func (l *Linker) rel(p string) string {
	r, err := filepath.Rel(l.root, p)
	if err != nil {
		return p
	}
	return filepath.ToSlash(r)
}

func (l *Linker) stubData() stubs.Data {
	return stubs.Data{
		Project:  filepath.Base(l.root),
		CLIName:  branding.CLIName(),
		AgentDir: l.layout.AgentDir,
		Primary:  l.layout.Primary,
		Aliases:  l.layout.Aliases,
	}
}

// EnsureAgentDir creates the agent directory.
func (l *Linker) EnsureAgentDir() error {
	_, err := l.ensureDir(l.abs(l.layout.AgentDir))
	return err
}

// EnsureLocalDocs creates each local documentation directory with a README
// stub. Existing directories and READMEs are left alone.
func (l *Linker) EnsureLocalDocs() error {
	for _, dest := range l.layout.MustResolve(topology.LocalDocs).Dests {
		dir := l.abs(dest)
		ok, err := l.ensureDir(dir)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		name := path.Base(dest)
		data := l.stubData()
		data.Name = name
		if err := l.writeStub(filepath.Join(dir, "README.md"), stubs.ForLocalDoc(name), data); err != nil {
			return err
		}
	}
	return nil
}

// LinkShared points the destination of a linked artifact at its shared
// subtree. A missing subtree is a warning and the destination is left as is.
func (l *Linker) LinkShared(a topology.Artifact) error {
	p := l.layout.MustResolve(a)
	dest := l.abs(p.Dests[0])
	if !l.shared.Has(p.Source) {
		l.rep.Warn("shared root has no %s/; %s not linked", p.Source, p.Dests[0])
		return nil
	}
	return l.ensureLink(dest, l.shared.Sub(p.Source))
}

// EnsureRules converts whatever is at the rules path into the hybrid shape:
// a local directory holding a shared sublink and a README.
func (l *Linker) EnsureRules() error {
	p := l.layout.MustResolve(topology.Rules)
	dir := l.abs(p.Dests[0])

	shape, err := topology.DetectRulesShape(dir)
	if err != nil {
		return agenterrors.FromFS(err, "inspecting", dir)
	}
	plan := topology.MigrationPlan(shape)
	l.logger.Debug().Str("shape", shape.String()).Int("steps", len(plan)).Msg("Rules shape detected")

	for _, step := range plan {
		switch step {
		case topology.StepRemoveLegacyLink:
			if err := platform.RemoveSymlink(dir); err != nil {
				return agenterrors.FromFS(err, "removing legacy link", dir)
			}
			l.rep.AddRemoval(l.rel(dir), "legacy rules link")
		case topology.StepBackupForeign:
			if err := l.protect(dir); err != nil {
				return err
			}
		case topology.StepCreateDir:
			if _, err := l.ensureDir(dir); err != nil {
				return err
			}
		case topology.StepLinkShared:
			if err := l.LinkShared(topology.RulesShared); err != nil {
				return err
			}
		case topology.StepEnsureReadme:
			readme := l.abs(l.layout.MustResolve(topology.RulesReadme).Dests[0])
			if err := l.writeStub(readme, stubs.Rules, l.stubData()); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unhandled rules step %s", step)
		}
	}
	return nil
}

// EnsurePrimary materializes the primary instructions file from the shared
// template unless something already exists there. A missing template falls
// back to the built-in stub with a warning.
func (l *Linker) EnsurePrimary() error {
	p := l.layout.MustResolve(topology.AgentInstructions)
	dest := l.abs(p.Dests[0])
	exists, err := stubs.Exists(l.fs, dest)
	if err != nil {
		return agenterrors.FromFS(err, "inspecting", dest)
	}
	if exists {
		return nil
	}

	content, err := l.shared.ReadFile(p.Source)
	if err != nil {
		l.logger.Debug().Err(err).Msg("Template unavailable")
		l.rep.Warn("shared root has no %s; wrote the built-in %s", p.Source, p.Dests[0])
		content, err = stubs.Render(stubs.AgentInstructions, l.stubData())
		if err != nil {
			return err
		}
	}
	if err := stubs.WriteFile(l.fs, dest, content); err != nil {
		return agenterrors.FromFS(err, "writing", dest)
	}
	l.rep.AddFile(l.rel(dest))
	return nil
}

// EnsureAliases links every tool alias to the primary file with a relative
// link. Nothing is linked while the primary file is missing.
func (l *Linker) EnsureAliases() error {
	p := l.layout.MustResolve(topology.ToolAlias)
	primary := l.abs(p.Source)

	t, err := platform.Inspect(primary)
	if err != nil {
		return agenterrors.FromFS(err, "inspecting", primary)
	}
	if t == platform.EntryMissing {
		l.rep.Warn("%s is missing; tool aliases not linked", p.Source)
		return nil
	}

	// A primary that is itself a link to an alias must not get a link back.
	var primaryTarget string
	if t == platform.EntrySymlink {
		raw, err := platform.ReadSymlinkTarget(primary)
		if err != nil {
			return agenterrors.FromFS(err, "reading link", primary)
		}
		primaryTarget = platform.ResolveTarget(primary, raw)
	}

	for _, alias := range p.Dests {
		if alias == p.Source {
			continue
		}
		dest := l.abs(alias)
		if dest == primaryTarget {
			l.rep.Warn("%s links to %s; not linking %s back", p.Source, alias, alias)
			continue
		}
		target, err := filepath.Rel(filepath.Dir(dest), primary)
		if err != nil {
			return fmt.Errorf("relative path to %s: %w", primary, err)
		}
		if err := l.ensureLink(dest, target); err != nil {
			return err
		}
	}
	return nil
}

// EnsureToolSettings writes the tool settings stub if it is absent.
func (l *Linker) EnsureToolSettings() error {
	dest := l.abs(l.layout.MustResolve(topology.ToolSettings).Dests[0])
	wrote, err := stubs.WriteIfAbsent(l.fs, dest, stubs.Settings, l.stubData())
	if err != nil {
		return agenterrors.FromFS(err, "writing", dest)
	}
	if !wrote {
		return nil
	}
	if err := platform.Chmod(dest, toolSettingsMode); err != nil {
		return agenterrors.FromFS(err, "setting permissions on", dest)
	}
	l.rep.AddFile(l.rel(dest))
	return nil
}

// EnsureTargetSettings writes the commented per-target settings file if it
// is absent.
func (l *Linker) EnsureTargetSettings() error {
	dest := settings.Path(l.root, l.layout.AgentDir)
	return l.writeStub(dest, stubs.TargetSettings, l.stubData())
}

// ensureDir creates dir when nothing is there. It returns false, with a
// warning, when a file occupies the path.
func (l *Linker) ensureDir(dir string) (bool, error) {
	t, err := platform.Inspect(dir)
	if err != nil {
		return false, agenterrors.FromFS(err, "inspecting", dir)
	}
	switch t {
	case platform.EntryDir:
		return true, nil
	case platform.EntrySymlink:
		// A user-made link to a directory counts as present.
		info, err := os.Stat(dir)
		if err == nil && info.IsDir() {
			return true, nil
		}
		l.rep.Warn("%s is a link that does not resolve to a directory; left alone", l.rel(dir))
		return false, nil
	case platform.EntryFile:
		l.rep.Warn("%s exists and is not a directory; left alone", l.rel(dir))
		return false, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, agenterrors.FromFS(err, "creating", dir)
	}
	l.rep.AddFile(l.rel(dir) + "/")
	return true, nil
}

func (l *Linker) writeStub(dest, name string, data stubs.Data) error {
	wrote, err := stubs.WriteIfAbsent(l.fs, dest, name, data)
	if err != nil {
		return agenterrors.FromFS(err, "writing", dest)
	}
	if wrote {
		l.rep.AddFile(l.rel(dest))
	}
	return nil
}

func (l *Linker) protect(p string) error {
	b, err := l.guard.Protect(p)
	if err != nil {
		return err
	}
	if b != "" {
		l.rep.AddBackup(l.rel(p), l.rel(b))
	}
	return nil
}

// ensureLink makes dest a symlink to target. A link that already resolves to
// target is left untouched; anything real in the way is backed up first.
func (l *Linker) ensureLink(dest, target string) error {
	t, err := platform.Inspect(dest)
	if err != nil {
		return agenterrors.FromFS(err, "inspecting", dest)
	}
	if t == platform.EntrySymlink {
		ok, err := platform.PointsTo(dest, target)
		if err != nil {
			return agenterrors.FromFS(err, "reading link", dest)
		}
		if ok {
			l.logger.Debug().Str("path", l.rel(dest)).Msg("Link already current")
			return nil
		}
	}

	if err := l.protect(dest); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return agenterrors.FromFS(err, "creating parent of", dest)
	}
	if err := platform.ReplaceSymlink(target, dest); err != nil {
		return agenterrors.FromFS(err, "linking", dest)
	}

	l.logger.Info().Str("path", l.rel(dest)).Str("target", target).Msg("Linked")
	l.rep.AddLink(l.rel(dest), target, t == platform.EntrySymlink)
	return nil
}
