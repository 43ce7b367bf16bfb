package cli

import (
	"github.com/spf13/cobra"

	agenterrors "github.com/agentsync-labs/agentsync/internal/errors"
	"github.com/agentsync-labs/agentsync/internal/report"
	"github.com/agentsync-labs/agentsync/internal/status"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status [path]",
	Short: "Check links and mirrored commands without changing anything",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "."
		if len(args) == 1 {
			path = args[0]
		}
		res, err := status.Inspect(path, sharedRoot())
		if err != nil {
			return err
		}

		if flagJSON {
			if err := report.WriteJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
		} else {
			newRenderer(cmd).Status(res)
		}

		if !res.Consistent() {
			return agenterrors.Newf(agenterrors.ErrInconsistent, "%d problem(s) in %s", res.Problems(), res.Target).
				WithHint("run `update` to repair")
		}
		return nil
	},
}
