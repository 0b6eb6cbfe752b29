package driving

import (
	"context"

	"github.com/betterinformatics/shtocker/internal/core/domain"
)

// CandidateGate decides which missing candidates proceed to upload.
// The automatic gate passes everything through; the interactive gate
// lets the operator approve or reject each candidate.
type CandidateGate interface {
	// Review returns the approved subset of candidates, preserving
	// order. An error aborts the run.
	Review(ctx context.Context, candidates []domain.Candidate) ([]domain.Candidate, error)
}
