package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentsync-labs/agentsync/internal/backup"
	"github.com/agentsync-labs/agentsync/internal/branding"
	"github.com/agentsync-labs/agentsync/internal/config"
	agenterrors "github.com/agentsync-labs/agentsync/internal/errors"
	"github.com/agentsync-labs/agentsync/internal/logging"
	"github.com/agentsync-labs/agentsync/internal/report"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var (
	flagSharedRoot string
	flagVerbose    int
	flagJSON       bool
	flagVersioned  bool
	flagLogFile    bool
)

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` keeps the agent configuration of many repositories in step with one
shared directory of skills, workflows, rules and templates.

Shared content is linked, tool command directories get copies, and local
notes are never touched. Anything in the way is renamed to *.backup first.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.SetupLogger(cmd.ErrOrStderr(), flagVerbose, flagLogFile)
		config.Load()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagSharedRoot, "shared-root", "", "Shared root directory (overrides "+branding.EnvVar("SHARED_ROOT")+" and config)")
	pf.CountVarP(&flagVerbose, "verbose", "v", "Increase log verbosity (-v info, -vv debug, -vvv trace)")
	pf.BoolVar(&flagJSON, "json", false, "Print machine-readable JSON")
	pf.BoolVar(&flagVersioned, "versioned-backups", false, "Use numbered backups instead of failing when *.backup exists")
	pf.BoolVar(&flagLogFile, "log-file", false, "Also write logs to "+logging.LogFilePath())
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	err := rootCmd.Execute()
	if err != nil {
		printError(rootCmd.ErrOrStderr(), err)
	}
	return err
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
	if hint := agenterrors.Hint(err); hint != "" {
		fmt.Fprintf(w, "Hint: %s\n", hint)
	}
}

// sharedRoot resolves the shared root once per command.
func sharedRoot() string {
	path, source := config.ResolveSharedRoot(flagSharedRoot)
	logger := logging.GetLogger("cli")
	logger.Debug().Str("path", path).Str("source", string(source)).Msg("Shared root resolved")
	return path
}

func backupPolicy() backup.Policy {
	if flagVersioned || config.VersionedBackups() {
		return backup.PolicyVersioned
	}
	return backup.PolicyFail
}

func newRenderer(cmd *cobra.Command) *report.Renderer {
	out := cmd.OutOrStdout()
	color := false
	if f, ok := out.(*os.File); ok {
		color = report.ColorEnabled(f)
	}
	return report.NewRenderer(out, color)
}
