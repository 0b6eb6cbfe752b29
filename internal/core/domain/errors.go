package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidIdentity indicates a malformed content identity.
	ErrInvalidIdentity = errors.New("invalid content identity")

	// ErrUntrackedCode indicates a course code with no mapped
	// destination category. Not fatal: the exam is skipped and reported.
	ErrUntrackedCode = errors.New("untracked course code")

	// ErrAuthRequired indicates the destination requires a credential
	// but none is configured.
	ErrAuthRequired = errors.New("authentication required")

	// ErrRateLimited indicates an external API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrRunInProgress indicates a reconciliation run is already active.
	ErrRunInProgress = errors.New("run in progress")
)

// StreamError indicates a source stream failed before the document was
// fully read. The partial digest is discarded, never reported.
type StreamError struct {
	URI string
	Err error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream %s: %v", e.URI, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// FetchError indicates destination enumeration for a category failed
// after bounded retries. The category is degraded, not the run.
type FetchError struct {
	CategorySlug string
	Attempts     int
	Err          error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch category %s after %d attempts: %v", e.CategorySlug, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// UploadError indicates a single upload failed. The run continues with
// the next item.
type UploadError struct {
	Code  string
	Title string
	Err   error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s %q: %v", e.Code, e.Title, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// IsStreamError checks if the error is a StreamError.
func IsStreamError(err error) bool {
	var e *StreamError
	return errors.As(err, &e)
}

// IsFetchError checks if the error is a FetchError.
func IsFetchError(err error) bool {
	var e *FetchError
	return errors.As(err, &e)
}

// IsUploadError checks if the error is an UploadError.
func IsUploadError(err error) bool {
	var e *UploadError
	return errors.As(err, &e)
}
