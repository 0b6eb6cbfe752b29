package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/betterinformatics/shtocker/internal/core/domain"
	"github.com/betterinformatics/shtocker/internal/core/ports/driven"
)

// Ensure runJournal implements the interface.
var _ driven.RunJournal = (*runJournal)(nil)

// runJournal persists completed run reports.
type runJournal struct {
	store *Store
}

// SaveReport stores a completed run report. Failures ride in a JSON
// column; there is no need to query inside them.
func (j *runJournal) SaveReport(ctx context.Context, report domain.RunReport) error {
	failures, err := json.Marshal(report.Failures)
	if err != nil {
		return fmt.Errorf("marshalling failures: %w", err)
	}

	_, err = j.store.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, uploaded, already_present,
			untracked, blocked, failed, skipped, failures)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, report.ID, report.StartedAt.UTC(), report.FinishedAt.UTC(),
		report.Uploaded, report.AlreadyPresent, report.Untracked,
		report.Blocked, report.Failed, report.Skipped, string(failures))
	if err != nil {
		return fmt.Errorf("saving run report: %w", err)
	}
	return nil
}

// ListReports returns the most recent reports, newest first.
func (j *runJournal) ListReports(ctx context.Context, limit int) ([]domain.RunReport, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := j.store.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, uploaded, already_present,
			untracked, blocked, failed, skipped, failures
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing run reports: %w", err)
	}
	defer rows.Close()

	var reports []domain.RunReport
	for rows.Next() {
		var r domain.RunReport
		var failures string
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Uploaded,
			&r.AlreadyPresent, &r.Untracked, &r.Blocked, &r.Failed,
			&r.Skipped, &failures); err != nil {
			return nil, fmt.Errorf("scanning run report: %w", err)
		}
		if err := json.Unmarshal([]byte(failures), &r.Failures); err != nil {
			return nil, fmt.Errorf("unmarshalling failures: %w", err)
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}
