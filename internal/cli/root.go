// Package cli wires the cobra command tree. Grounded on the teacher's
// internal/cli/root.go: same charmbracelet/log style setup and
// verbosity-count flag, generalized from a pipeline-name/hub command
// tree to a single positional CSV argument.
package cli

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/taskpanel/taskpanel/internal/applog"
)

var (
	workersFlag int
	logRootFlag string
	verbosity   int
)

var rootCmd = &cobra.Command{
	Use:   "taskpanel <csv-file>",
	Short: "An interactive terminal task runner",
	Long:  "taskpanel runs the tasks described in a CSV table under a bounded worker pool, with live status, kill, and rerun.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTable(args[0])
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Flags().IntVarP(&workersFlag, "workers", "w", 0, "maximum number of tasks to run concurrently (default: number of CPUs)")
	rootCmd.Flags().StringVar(&logRootFlag, "log-root", "", "override the log directory root")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase output verbosity (-v info, -vv debug)")
	rootCmd.SetVersionTemplate("taskpanel-{{.Version}}\n")

	cobra.OnInitialize(func() {
		lvl := applog.Quiet
		switch {
		case verbosity >= 2:
			lvl = applog.Debug
		case verbosity == 1:
			lvl = applog.Verbose
		}
		applog.Init(lvl)
	})
}

// SetVersion sets the version string displayed by --version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute runs the root command and maps errors to process exit codes
// per SPEC_FULL.md §6: 1 for a load error, 2 when the run completed
// but at least one task ended in a non-SUCCESS state.
func Execute() {
	err := rootCmd.Execute()
	switch {
	case err == nil:
		return
	case err == errTasksFailed:
		os.Exit(2)
	default:
		log.Error(err)
		os.Exit(1)
	}
}
