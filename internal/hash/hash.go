// Package hash computes content identities from byte streams.
//
// The identity of a document is the SHA-256 digest of its full byte
// content. The accumulator consumes chunks incrementally so memory use
// is bounded regardless of document size, and the result depends only
// on the byte sequence, never on chunking boundaries.
package hash

import (
	"crypto/sha256"
	"hash"
	"io"

	"github.com/betterinformatics/shtocker/internal/core/domain"
)

// Hasher accumulates a content identity incrementally.
type Hasher struct {
	h hash.Hash
}

// New creates an empty accumulator.
func New() *Hasher {
	return &Hasher{h: sha256.New()}
}

// Feed adds a chunk to the accumulator.
func (h *Hasher) Feed(p []byte) {
	h.h.Write(p)
}

// Finalize returns the identity of everything fed so far.
func (h *Hasher) Finalize() domain.ContentIdentity {
	var id domain.ContentIdentity
	copy(id[:], h.h.Sum(nil))
	return id
}

// Reader consumes r to EOF and returns the identity of its contents.
// If the stream errors before completion the partial digest is
// discarded and the error returned.
func Reader(r io.Reader) (domain.ContentIdentity, error) {
	h := New()
	if _, err := io.Copy(h.h, r); err != nil {
		return domain.ContentIdentity{}, err
	}
	return h.Finalize(), nil
}

// Bytes returns the identity of a byte slice.
func Bytes(b []byte) domain.ContentIdentity {
	return domain.ContentIdentity(sha256.Sum256(b))
}
