package domain

import "time"

// RunReport summarises one reconciliation pass. It is printed at the end
// of a run and journaled so the operator can re-run or investigate.
type RunReport struct {
	// ID is the unique identifier for the run (UUID).
	ID string `json:"id"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the run completed.
	FinishedAt time.Time `json:"finished_at"`

	// Uploaded counts exams pushed to the destination.
	Uploaded int `json:"uploaded"`

	// AlreadyPresent counts exams whose identity already existed in
	// their category.
	AlreadyPresent int `json:"already_present"`

	// Untracked counts exams with no mapped category, including exams
	// in categories that were degraded after enumeration failures.
	Untracked int `json:"untracked"`

	// Blocked counts exams on the known-bad list.
	Blocked int `json:"blocked"`

	// Failed counts exams that could not be processed or uploaded.
	Failed int `json:"failed"`

	// Skipped counts approved candidates withheld from upload, either
	// by dry-run mode or by operator rejection.
	Skipped int `json:"skipped"`

	// Failures identifies the individual items behind Failed.
	Failures []Failure `json:"failures,omitempty"`
}

// Failure records an item the run could not process or upload.
type Failure struct {
	Code  string `json:"code"`
	Title string `json:"title"`
	Err   string `json:"error"`
}

// AddFailure records a failed item and bumps the counter.
func (r *RunReport) AddFailure(exam Exam, err error) {
	r.Failed++
	r.Failures = append(r.Failures, Failure{
		Code:  exam.Code,
		Title: exam.Title,
		Err:   err.Error(),
	})
}

// Total returns the number of exams the run accounted for.
func (r *RunReport) Total() int {
	return r.Uploaded + r.AlreadyPresent + r.Untracked + r.Blocked + r.Failed + r.Skipped
}
