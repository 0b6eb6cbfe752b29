package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var flagReportLimit int

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show recent reconciliation runs",
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().IntVarP(&flagReportLimit, "limit", "n", 10,
		"number of runs to show")

	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, _ []string) error {
	if _, err := ensureStores(); err != nil {
		return err
	}

	reports, err := journal.ListReports(context.Background(), flagReportLimit)
	if err != nil {
		return err
	}

	if len(reports) == 0 {
		cmd.Println("No runs recorded yet.")
		return nil
	}

	for _, r := range reports {
		cmd.Printf("%s  %s  uploaded=%d present=%d untracked=%d blocked=%d skipped=%d failed=%d\n",
			r.StartedAt.Format("2006-01-02 15:04"), r.ID,
			r.Uploaded, r.AlreadyPresent, r.Untracked, r.Blocked, r.Skipped, r.Failed)
		for _, f := range r.Failures {
			cmd.Printf("    failure: %s %q: %s\n", f.Code, f.Title, f.Err)
		}
	}
	return nil
}
