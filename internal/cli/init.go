package cli

import (
	"github.com/spf13/cobra"

	"github.com/agentsync-labs/agentsync/internal/provision"
	"github.com/agentsync-labs/agentsync/internal/report"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Set up the agent tree in a repository",
	Long: `Set up .agent/ and the tool files in a repository (default: the current
directory) against the shared root.

Fails if .agent/ already exists; use update for that.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "."
		if len(args) == 1 {
			path = args[0]
		}
		rep, err := provision.Run(provision.Options{
			Target:      path,
			SharedRoot:  sharedRoot(),
			Policy:      backupPolicy(),
			ToolVersion: buildVersion,
		})
		if err != nil && rep != nil {
			rep.Error = err.Error()
		}
		return emit(cmd, []*report.Report{rep}, err)
	},
}

// emit renders reports and passes err through. A nil report means the run
// failed before touching anything and is skipped.
func emit(cmd *cobra.Command, reps []*report.Report, err error) error {
	var shown []*report.Report
	for _, r := range reps {
		if r != nil {
			shown = append(shown, r)
		}
	}
	if flagJSON {
		if jerr := report.WriteJSON(cmd.OutOrStdout(), shown); jerr != nil {
			return jerr
		}
		return err
	}
	r := newRenderer(cmd)
	for _, rep := range shown {
		r.Report(rep)
	}
	return err
}
