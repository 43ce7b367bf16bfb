package linker

import (
	"github.com/agentsync-labs/agentsync/internal/branding"
	agenterrors "github.com/agentsync-labs/agentsync/internal/errors"
	"github.com/agentsync-labs/agentsync/internal/ignore"
	"github.com/agentsync-labs/agentsync/internal/mirror"
	"github.com/agentsync-labs/agentsync/internal/platform"
	"github.com/agentsync-labs/agentsync/internal/settings"
	"github.com/agentsync-labs/agentsync/internal/topology"
)

// SyncCommands mirrors the shared workflows into the tool commands
// directory. A commands directory that is a link is replaced by a real one
// first so the shared root is never written through.
func (l *Linker) SyncCommands() error {
	p := l.layout.MustResolve(topology.ToolCommands)
	dir := l.abs(p.Dests[0])
	if !l.shared.Has(p.Source) {
		l.rep.Warn("shared root has no %s/; %s left untouched", p.Source, p.Dests[0])
		return nil
	}

	t, err := platform.Inspect(dir)
	if err != nil {
		return agenterrors.FromFS(err, "inspecting", dir)
	}
	switch t {
	case platform.EntrySymlink:
		if err := platform.RemoveSymlink(dir); err != nil {
			return agenterrors.FromFS(err, "removing link", dir)
		}
		l.rep.AddRemoval(l.rel(dir), "commands directory was a link")
	case platform.EntryFile:
		if err := l.protect(dir); err != nil {
			return err
		}
	}

	res, err := mirror.Sync(l.fs, l.shared.Sub(p.Source), dir)
	if res != nil {
		l.rep.MergeMirror(p.Dests[0], res.Added, res.Updated, res.Removed)
		for _, w := range res.Warnings {
			l.rep.Warn("%s", w)
		}
	}
	if err != nil {
		return agenterrors.FromFS(err, "mirroring into", dir)
	}
	l.logger.Debug().
		Int("added", len(res.Added)).
		Int("updated", len(res.Updated)).
		Int("removed", len(res.Removed)).
		Int("unchanged", len(res.Unchanged)).
		Msg("Commands mirrored")
	return nil
}

// EnsureIgnoreBlock writes or refreshes the managed block in the target's
// .gitignore.
func (l *Linker) EnsureIgnoreBlock() error {
	b := ignore.Block{
		Marker:         branding.BlockMarker(),
		Always:         []string{l.layout.SettingsFile},
		Optional:       []string{l.layout.HistoryDir + "/"},
		EnableOptional: l.settings.IgnoreHistory,
	}
	dest := l.abs(ignore.FileName)
	changed, err := ignore.Ensure(l.fs, dest, b)
	if err != nil {
		return agenterrors.FromFS(err, "updating", dest)
	}
	l.rep.IgnoreUpdated = changed
	return nil
}

// Stamp records the tool version in the agent directory. An unreadable stamp
// is replaced with a warning.
func (l *Linker) Stamp(toolVersion string) error {
	dest := settings.StatePath(l.root, l.layout.AgentDir)
	prev, err := settings.LoadState(l.fs, dest)
	if err != nil {
		l.rep.Warn("replacing unreadable %s: %v", l.rel(dest), err)
		prev = nil
	}
	next, warning := settings.NextState(prev, toolVersion)
	if warning != "" {
		l.rep.Warn("%s", warning)
	}
	changed, err := settings.SaveState(l.fs, dest, next)
	if err != nil {
		return agenterrors.FromFS(err, "writing", dest)
	}
	l.rep.StateUpdated = changed
	return nil
}
