package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ContentIdentity is the digest of a document's full byte content.
// Identity equality is the sole criterion for "same document";
// destination filenames are opaque and never used as an identity signal.
type ContentIdentity [sha256.Size]byte

// ParseIdentity decodes a hex-encoded content identity.
func ParseIdentity(s string) (ContentIdentity, error) {
	var id ContentIdentity

	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}
	if len(b) != sha256.Size {
		return id, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidIdentity, len(b), sha256.Size)
	}

	copy(id[:], b)
	return id, nil
}

// Hex returns the lowercase hex encoding of the identity.
func (id ContentIdentity) Hex() string {
	return hex.EncodeToString(id[:])
}

// String returns a shortened form for log output.
func (id ContentIdentity) String() string {
	return id.Hex()[:12]
}

// IdentitySet is a set of content identities.
type IdentitySet map[ContentIdentity]struct{}

// NewIdentitySet creates a set containing the given identities.
func NewIdentitySet(ids ...ContentIdentity) IdentitySet {
	s := make(IdentitySet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Contains reports whether the set holds the identity.
func (s IdentitySet) Contains(id ContentIdentity) bool {
	_, ok := s[id]
	return ok
}

// Add inserts the identity into the set.
func (s IdentitySet) Add(id ContentIdentity) {
	s[id] = struct{}{}
}
