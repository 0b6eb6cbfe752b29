package driving

import (
	"context"

	"github.com/betterinformatics/shtocker/internal/core/domain"
)

// Reconciler coordinates a full reconciliation pass over the source
// archive.
type Reconciler interface {
	// Run walks every source page, decides each exam, and uploads the
	// approved missing candidates. It returns the run's report; a
	// non-nil error means the run itself aborted, not that individual
	// items failed (those are in the report).
	Run(ctx context.Context, opts RunOptions) (*domain.RunReport, error)

	// Status returns a snapshot of the active run's progress.
	Status(ctx context.Context) (*RunStatus, error)
}

// RunOptions configures a reconciliation pass.
type RunOptions struct {
	// DryRun decides everything but uploads nothing.
	DryRun bool

	// Parallel bounds the number of concurrent item workers. Values
	// below 1 mean sequential processing.
	Parallel int

	// AcademicYear restricts the source listing to papers issued in
	// one year, e.g. "2023". Empty means all years.
	AcademicYear string
}

// RunStatus is a point-in-time snapshot of run progress.
type RunStatus struct {
	Running   bool
	Page      int
	Processed int
	Uploaded  int
	Errors    int
}
