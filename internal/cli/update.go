package cli

import (
	"github.com/spf13/cobra"

	"github.com/agentsync-labs/agentsync/internal/logging"
	"github.com/agentsync-labs/agentsync/internal/reconcile"
	"github.com/agentsync-labs/agentsync/internal/report"
)

func init() {
	rootCmd.AddCommand(updateCmd)
}

var updateCmd = &cobra.Command{
	Use:   "update [path...]",
	Short: "Bring repositories back in line with the shared root",
	Long: `Refresh links, mirror the shared workflows and fill in missing local files
in one or more initialized repositories (default: the current directory).

Targets are processed one at a time. A failing target does not stop the
rest; the exit status is that of the first failure.

  agentsync update
  agentsync update ~/src/api ~/src/web`,
	RunE: func(cmd *cobra.Command, args []string) error {
		targets := args
		if len(targets) == 0 {
			targets = []string{"."}
		}
		shared := sharedRoot()
		policy := backupPolicy()
		logger := logging.GetLogger("cli")

		var reps []*report.Report
		var firstErr error
		for _, t := range targets {
			rep, err := reconcile.Run(reconcile.Options{
				Target:      t,
				SharedRoot:  shared,
				Policy:      policy,
				ToolVersion: buildVersion,
			})
			if err != nil {
				logger.Warn().Err(err).Str("target", t).Msg("Update failed")
				if rep == nil {
					rep = report.New(reconcile.Operation, t, shared)
				}
				rep.Error = err.Error()
				if firstErr == nil {
					firstErr = err
				}
			}
			reps = append(reps, rep)
		}
		return emit(cmd, reps, firstErr)
	},
}
