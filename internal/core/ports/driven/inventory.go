package driven

import (
	"context"
	"io"

	"github.com/betterinformatics/shtocker/internal/core/domain"
)

// CategoryResolver maps a course code to its destination category.
type CategoryResolver interface {
	// Resolve returns the category for a code, or an error wrapping
	// domain.ErrUntrackedCode when no category is mapped. Untracked is
	// not a failure: the caller folds it into the exam's decision.
	Resolve(ctx context.Context, code string) (domain.Category, error)
}

// DestinationLister enumerates a destination category's holdings.
type DestinationLister interface {
	// ListItems returns all items currently in the category.
	ListItems(ctx context.Context, cat domain.Category) ([]domain.DestinationItem, error)

	// OpenItem returns the byte stream for an item. The caller must
	// close the stream.
	OpenItem(ctx context.Context, item domain.DestinationItem) (io.ReadCloser, error)
}

// DestinationInventory answers presence questions against a category's
// identity set. Implementations cache per category for the lifetime of
// a run: destination traffic is proportional to the number of distinct
// categories touched, not the number of source items compared.
type DestinationInventory interface {
	// Contains reports whether the category already holds the identity,
	// populating the category's identity set on first use. Enumeration
	// failures surface as a domain.FetchError after bounded retries.
	Contains(ctx context.Context, cat domain.Category, id domain.ContentIdentity) (bool, error)

	// Record adds an identity to the category's cached set after a
	// successful upload, so later items in the same run see it.
	Record(cat domain.Category, id domain.ContentIdentity)
}

// Uploader pushes an approved candidate to its destination category.
type Uploader interface {
	// Upload stores the candidate's bytes under its label and returns
	// the destination's identifier for the new item.
	Upload(ctx context.Context, cand domain.Candidate) (string, error)
}

// Pacer throttles calls to an external service.
type Pacer interface {
	// Wait blocks until the next call may proceed, or the context is
	// cancelled.
	Wait(ctx context.Context) error
}
