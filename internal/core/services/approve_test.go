package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betterinformatics/shtocker/internal/core/domain"
)

func TestAutoGate_ApprovesAll(t *testing.T) {
	candidates := []domain.Candidate{
		{Exam: domain.Exam{Code: "INFR1"}},
		{Exam: domain.Exam{Code: "INFR2"}},
	}

	approved, err := AutoGate{}.Review(context.Background(), candidates)
	require.NoError(t, err)
	assert.Equal(t, candidates, approved)
}

func TestSelectApproved(t *testing.T) {
	candidates := []domain.Candidate{
		{Exam: domain.Exam{Code: "A"}},
		{Exam: domain.Exam{Code: "B"}},
		{Exam: domain.Exam{Code: "C"}},
	}

	tests := []struct {
		name     string
		selected map[int]bool
		want     []string
	}{
		{"all", map[int]bool{0: true, 1: true, 2: true}, []string{"A", "B", "C"}},
		{"none", map[int]bool{}, []string{}},
		{"subset keeps order", map[int]bool{2: true, 0: true}, []string{"A", "C"}},
		{"explicit false rejects", map[int]bool{0: true, 1: false}, []string{"A"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			approved := SelectApproved(candidates, tt.selected)

			got := make([]string, 0, len(approved))
			for _, c := range approved {
				got = append(got, c.Exam.Code)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
