package driven

import (
	"context"

	"github.com/betterinformatics/shtocker/internal/core/domain"
)

// RunJournal persists run reports so the operator can review earlier
// passes and re-run after failures.
type RunJournal interface {
	// SaveReport stores a completed run report.
	SaveReport(ctx context.Context, report domain.RunReport) error

	// ListReports returns the most recent reports, newest first.
	ListReports(ctx context.Context, limit int) ([]domain.RunReport, error)
}
