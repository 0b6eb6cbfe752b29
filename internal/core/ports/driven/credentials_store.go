package driven

import (
	"context"

	"github.com/betterinformatics/shtocker/internal/core/domain"
)

// CredentialsStore persists the destination bearer credential between
// runs. The format on disk is an adapter concern.
type CredentialsStore interface {
	// Save stores the credential, replacing any previous one.
	Save(ctx context.Context, creds domain.Credentials) error

	// Get retrieves the stored credential. Returns an error wrapping
	// domain.ErrNotFound when none is stored.
	Get(ctx context.Context) (*domain.Credentials, error)

	// Delete removes the stored credential.
	Delete(ctx context.Context) error
}
