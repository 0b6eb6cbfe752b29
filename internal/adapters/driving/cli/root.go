// Package cli implements the shtocker command line interface.
package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/betterinformatics/shtocker/internal/core/ports/driven"
	"github.com/betterinformatics/shtocker/internal/core/ports/driving"
	"github.com/betterinformatics/shtocker/internal/logger"
)

// Services used by the commands. Populated by wiring at startup and
// swapped for mocks in tests.
var (
	reconciler  driving.Reconciler
	credentials driven.CredentialsStore
	journal     driven.RunJournal

	version = "dev"
)

var (
	flagVerbose   bool
	flagConfigDir string
)

var rootCmd = &cobra.Command{
	Use:   "shtocker",
	Short: "Reconcile the exam paper archive with Better Informatics",
	Long: `shtocker walks the university exam paper archive and uploads every
paper that is not yet on the Better Informatics file collection,
comparing documents by content hash so nothing is uploaded twice.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		logger.SetVerbose(flagVerbose)
		openLogFile()
	},
}

// openLogFile routes a copy of all log output to <config>/shtocker.log.
// Failures are reported but never block the command.
func openLogFile() {
	dir := flagConfigDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return
		}
		dir = filepath.Join(home, ".shtocker")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		logger.Warn("Could not create log directory: %v", err)
		return
	}
	if err := logger.SetFile(filepath.Join(dir, "shtocker.log")); err != nil {
		logger.Warn("Could not open log file: %v", err)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false,
		"print additional debugging information")
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "",
		"configuration directory (default ~/.shtocker)")
}

// Execute runs the root command with the build version.
func Execute(v string) error {
	if v != "" {
		version = v
	}
	return rootCmd.Execute()
}
