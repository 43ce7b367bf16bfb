// Package provision performs first-time setup of the agent tree in a target
// repository.
package provision

import (
	"github.com/agentsync-labs/agentsync/internal/backup"
	"github.com/agentsync-labs/agentsync/internal/branding"
	agenterrors "github.com/agentsync-labs/agentsync/internal/errors"
	"github.com/agentsync-labs/agentsync/internal/linker"
	"github.com/agentsync-labs/agentsync/internal/logging"
	"github.com/agentsync-labs/agentsync/internal/platform"
	"github.com/agentsync-labs/agentsync/internal/report"
	"github.com/agentsync-labs/agentsync/internal/sharedroot"
	"github.com/agentsync-labs/agentsync/internal/target"
	"github.com/agentsync-labs/agentsync/internal/topology"
)

// Operation names this run in reports.
const Operation = "init"

// Options configures a provisioning run.
type Options struct {
	Target      string
	SharedRoot  string
	Policy      backup.Policy
	ToolVersion string
}

// Run provisions opts.Target. It refuses a target that already has an agent
// directory and writes nothing when the shared root is unusable or lacks
// one of the linked subtrees. Only update degrades to warnings for those. A failure
// part way leaves what was done so far; re-running `update` finishes it.
// The report is returned even on error.
func Run(opts Options) (*report.Report, error) {
	logger := logging.GetLogger("provision")
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
	if err := shared.Require(topology.SharedSkills, topology.SharedWorkflows, topology.SharedRules); err != nil {
		return rep, err
	}

	layout := topology.DefaultLayout()
	agentDir := topology.Abs(root, layout.AgentDir)
	t, err := platform.Inspect(agentDir)
	if err != nil {
		return rep, agenterrors.FromFS(err, "inspecting", agentDir)
	}
	if t != platform.EntryMissing {
		return rep, agenterrors.Newf(agenterrors.ErrAlreadyInitialized, "%s already has %s", root, layout.AgentDir).
			WithDetail("path", agentDir).
			WithHint("run `" + branding.CLIName() + " update` to refresh it")
	}

	l := linker.New(linker.Options{
		Root:   root,
		Shared: shared,
		Guard:  backup.New(opts.Policy),
		Report: rep,
	})

	steps := []func() error{
		l.EnsureAgentDir,
		l.EnsureLocalDocs,
		func() error { return l.LinkShared(topology.Skills) },
		func() error { return l.LinkShared(topology.Workflows) },
		l.EnsureRules,
		l.EnsurePrimary,
		l.EnsureAliases,
		l.SyncCommands,
		l.EnsureToolSettings,
		l.EnsureIgnoreBlock,
		l.EnsureTargetSettings,
		func() error { return l.Stamp(opts.ToolVersion) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return rep, err
		}
	}

	logger.Info().Str("target", root).Str("summary", rep.Summary()).Msg("Provisioned")
	return rep, nil
}
