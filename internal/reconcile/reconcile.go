// Package reconcile brings an initialized target back in line with the shared
// root. It converges linked and mirrored artifacts, fills in missing local
// files and never overwrites local content.
package reconcile

import (
	"github.com/spf13/afero"

	"github.com/agentsync-labs/agentsync/internal/backup"
	"github.com/agentsync-labs/agentsync/internal/branding"
	agenterrors "github.com/agentsync-labs/agentsync/internal/errors"
	"github.com/agentsync-labs/agentsync/internal/linker"
	"github.com/agentsync-labs/agentsync/internal/logging"
	"github.com/agentsync-labs/agentsync/internal/platform"
	"github.com/agentsync-labs/agentsync/internal/report"
	"github.com/agentsync-labs/agentsync/internal/settings"
	"github.com/agentsync-labs/agentsync/internal/sharedroot"
	"github.com/agentsync-labs/agentsync/internal/target"
	"github.com/agentsync-labs/agentsync/internal/topology"
)

// Operation names this run in reports.
const Operation = "update"

// Options configures a reconciliation run.
type Options struct {
	Target      string
	SharedRoot  string
	Policy      backup.Policy
	ToolVersion string
}

// Run reconciles opts.Target. Running it twice in a row yields an empty
// second report. The report is returned even on error.
func Run(opts Options) (*report.Report, error) {
	logger := logging.GetLogger("reconcile")
	done := logging.LogOperationStart(logger, Operation)
	defer done()

	root, err := target.Resolve(opts.Target)
	if err != nil {
		return nil, err
	}
	rep := report.New(Operation, root, opts.SharedRoot)

	shared, err := sharedroot.Open(opts.SharedRoot)
	if err != nil {
		return rep, err
	}
	rep.SharedRoot = shared.Path

	agentDir := topology.Abs(root, topology.DefaultLayout().AgentDir)
	if err := requireAgentDir(root, agentDir); err != nil {
		return rep, err
	}

	s, err := settings.Load(afero.NewOsFs(), settings.Path(root, topology.DefaultLayout().AgentDir))
	if err != nil {
		return rep, err
	}

	l := linker.New(linker.Options{
		Root:     root,
		Shared:   shared,
		Settings: s,
		Guard:    backup.New(opts.Policy),
		Report:   rep,
	})

	steps := []func() error{
		func() error { return l.LinkShared(topology.Skills) },
		func() error { return l.LinkShared(topology.Workflows) },
		l.EnsureRules,
		l.EnsureLocalDocs,
		l.EnsurePrimary,
		l.EnsureAliases,
		l.SyncCommands,
		l.EnsureToolSettings,
		l.EnsureTargetSettings,
		l.EnsureIgnoreBlock,
		func() error { return l.Stamp(opts.ToolVersion) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return rep, err
		}
	}

	logger.Info().Str("target", root).Str("summary", rep.Summary()).Msg("Reconciled")
	return rep, nil
}

func requireAgentDir(root, agentDir string) error {
	hint := "run `" + branding.CLIName() + " init` first"
	t, err := platform.Inspect(agentDir)
	if err != nil {
		return agenterrors.FromFS(err, "inspecting", agentDir)
	}
	switch t {
	case platform.EntryDir:
		return nil
	case platform.EntryMissing:
		return agenterrors.Newf(agenterrors.ErrNotInitialized, "%s is not initialized", root).
			WithDetail("path", agentDir).
			WithHint(hint)
	default:
		return agenterrors.Newf(agenterrors.ErrNotInitialized, "%s is a %s, not a directory", agentDir, t).
			WithDetail("path", agentDir).
			WithHint("move it aside, then " + hint)
	}
}
