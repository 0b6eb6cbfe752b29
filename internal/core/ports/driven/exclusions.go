package driven

import (
	"context"

	"github.com/betterinformatics/shtocker/internal/core/domain"
)

// ExclusionStore holds the known-bad list: externally curated content
// identities that must never be uploaded, regardless of whether they
// are absent from the destination.
type ExclusionStore interface {
	// IsKnownBad reports whether the identity is on the known-bad list.
	IsKnownBad(ctx context.Context, id domain.ContentIdentity) bool
}
