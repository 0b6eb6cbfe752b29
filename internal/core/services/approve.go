package services

import (
	"context"

	"github.com/betterinformatics/shtocker/internal/core/domain"
	"github.com/betterinformatics/shtocker/internal/core/ports/driving"
)

// Ensure AutoGate implements the interface.
var _ driving.CandidateGate = (AutoGate{})

// AutoGate approves every candidate without operator input. Used when
// the run is not interactive.
type AutoGate struct{}

// Review returns the candidates unchanged.
func (AutoGate) Review(_ context.Context, candidates []domain.Candidate) ([]domain.Candidate, error) {
	return candidates, nil
}

// SelectApproved filters candidates by the operator's selection,
// preserving order. Indices absent from the selection (or mapped to
// false) are rejected.
func SelectApproved(candidates []domain.Candidate, selected map[int]bool) []domain.Candidate {
	approved := make([]domain.Candidate, 0, len(candidates))
	for i, cand := range candidates {
		if selected[i] {
			approved = append(approved, cand)
		}
	}
	return approved
}
