package dspace

import (
	"errors"
	"fmt"
)

// ErrNoBitstream indicates an item carried no ORIGINAL bundle
// bitstream to download.
var ErrNoBitstream = errors.New("dspace: item has no original bitstream")

// APIError represents a DSpace API error response.
type APIError struct {
	StatusCode int
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("dspace: API error %d (URL: %s)", e.StatusCode, e.URL)
}

// IsNotFound checks if the error indicates a resource was not found.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}
