package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/betterinformatics/shtocker/internal/core/domain"
	"github.com/betterinformatics/shtocker/internal/core/ports/driving"
	"github.com/betterinformatics/shtocker/internal/logger"
	"github.com/betterinformatics/shtocker/internal/update"
)

// maxParallel caps concurrent paper processing. Both remote services
// are shared; anything wider gains little and risks throttling.
const maxParallel = 4

var (
	flagDryRun          bool
	flagInteractive     bool
	flagParallel        int
	flagYear            string
	flagPrefix          string
	flagSkipUpdateCheck bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Reconcile the archive against the file collection",
	Long: `Walks every page of the exam paper archive, compares each paper
against its destination category by content hash, and uploads the
papers that are missing. Papers on the known-bad list are never
uploaded, even when absent from the destination.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&flagDryRun, "dry-run", false,
		"decide and report, but upload nothing")
	runCmd.Flags().BoolVarP(&flagInteractive, "interactive", "i", false,
		"review each page's uploads before sending them")
	runCmd.Flags().IntVar(&flagParallel, "parallel", 1,
		fmt.Sprintf("number of papers processed concurrently (1-%d)", maxParallel))
	runCmd.Flags().StringVar(&flagYear, "year", "",
		"restrict the run to papers issued in one year, e.g. 2023")
	runCmd.Flags().StringVar(&flagPrefix, "prefix", "",
		"restrict the run to course codes with this prefix, e.g. INFR")
	runCmd.Flags().BoolVarP(&flagSkipUpdateCheck, "skip-update-check", "u", false,
		"skip checking for a newer release")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if !flagSkipUpdateCheck {
		checkForUpdates(ctx, cmd)
	}

	engine := reconciler
	if engine == nil {
		cfg, err := ensureStores()
		if err != nil {
			return err
		}
		engine, err = buildReconciler(ctx, cfg, flagInteractive, flagYear, flagPrefix)
		if err != nil {
			return err
		}
	}

	if flagDryRun {
		cmd.Println("Dry run: no uploads will be performed.")
	}

	parallel := flagParallel
	if parallel < 1 {
		parallel = 1
	}
	if parallel > maxParallel {
		logger.Warn("Capping --parallel %d at %d", parallel, maxParallel)
		parallel = maxParallel
	}

	report, err := runWithProgress(ctx, cmd, engine, driving.RunOptions{
		DryRun:       flagDryRun,
		Parallel:     parallel,
		AcademicYear: flagYear,
	})
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	printReport(cmd, report)
	return nil
}

// checkForUpdates warns when a newer release exists. Failures never
// block the run.
func checkForUpdates(ctx context.Context, cmd *cobra.Command) {
	res, err := update.NewChecker().Check(ctx, version)
	if err != nil {
		logger.Warn("Could not check for updates: %v", err)
		return
	}
	if res.Outdated {
		cmd.Printf("! New version available: %s. You are using %s.\n", res.Latest, res.Current)
		cmd.Printf("  See %s\n", update.RemoteURL)
	}
}

// runWithProgress runs the reconciliation while printing progress.
func runWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	engine driving.Reconciler,
	opts driving.RunOptions,
) (*domain.RunReport, error) {
	type result struct {
		report *domain.RunReport
		err    error
	}
	resCh := make(chan result, 1)
	go func() {
		report, err := engine.Run(ctx, opts)
		resCh <- result{report, err}
	}()

	// Poll status every 500ms
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	lastProcessed := 0
	for {
		select {
		case res := <-resCh:
			if lastProcessed > 0 {
				cmd.Println()
			}
			return res.report, res.err
		case <-ticker.C:
			status, err := engine.Status(ctx)
			if err == nil && status.Processed > lastProcessed {
				cmd.Printf("\rPage %d: processed %d papers (%d uploaded, %d errors)",
					status.Page, status.Processed, status.Uploaded, status.Errors)
				lastProcessed = status.Processed
			}
		}
	}
}

func printReport(cmd *cobra.Command, report *domain.RunReport) {
	cmd.Printf("Run complete in %s:\n", report.FinishedAt.Sub(report.StartedAt).Round(time.Second))
	cmd.Printf("  uploaded:        %d\n", report.Uploaded)
	cmd.Printf("  already present: %d\n", report.AlreadyPresent)
	cmd.Printf("  untracked:       %d\n", report.Untracked)
	cmd.Printf("  blocked:         %d\n", report.Blocked)
	cmd.Printf("  skipped:         %d\n", report.Skipped)
	cmd.Printf("  failed:          %d\n", report.Failed)

	for _, f := range report.Failures {
		cmd.Printf("  failure: %s %q: %s\n", f.Code, f.Title, f.Err)
	}
}
