package domain

import "time"

// Credentials holds the bearer credential for the destination service.
type Credentials struct {
	// Token is the bearer token presented on destination API calls.
	Token string `json:"token"`

	// UpdatedAt is when the credential was last stored.
	UpdatedAt time.Time `json:"updated_at"`
}
