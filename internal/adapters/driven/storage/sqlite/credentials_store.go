package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/betterinformatics/shtocker/internal/core/domain"
	"github.com/betterinformatics/shtocker/internal/core/ports/driven"
)

// Ensure credentialsStore implements the interface.
var _ driven.CredentialsStore = (*credentialsStore)(nil)

// credentialsStore persists the single destination credential.
type credentialsStore struct {
	store *Store
}

// Save stores the credential, replacing any previous one.
func (c *credentialsStore) Save(ctx context.Context, creds domain.Credentials) error {
	_, err := c.store.db.ExecContext(ctx, `
		INSERT INTO credentials (id, token, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET token = excluded.token, updated_at = excluded.updated_at
	`, creds.Token, creds.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}
	return nil
}

// Get retrieves the stored credential.
func (c *credentialsStore) Get(ctx context.Context) (*domain.Credentials, error) {
	row := c.store.db.QueryRowContext(ctx, "SELECT token, updated_at FROM credentials WHERE id = 1")

	var creds domain.Credentials
	var updatedAt time.Time
	if err := row.Scan(&creds.Token, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("credentials: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scanning credentials: %w", err)
	}

	creds.UpdatedAt = updatedAt
	return &creds, nil
}

// Delete removes the stored credential.
func (c *credentialsStore) Delete(ctx context.Context) error {
	_, err := c.store.db.ExecContext(ctx, "DELETE FROM credentials WHERE id = 1")
	if err != nil {
		return fmt.Errorf("deleting credentials: %w", err)
	}
	return nil
}
