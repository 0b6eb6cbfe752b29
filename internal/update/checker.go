// Package update checks whether a newer release of the tool exists.
// The check is advisory: any failure is reported as a warning and the
// run continues.
package update

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// RemoteURL is the project home, shown to the operator when a new
	// version is available.
	RemoteURL = "https://git.tardisproject.uk/betterinformatics/exam-shtocker"

	// RemoteVersionURL serves the latest released version string.
	RemoteVersionURL = RemoteURL + "/-/raw/main/VERSION"

	// DefaultTimeout bounds the version fetch so a slow mirror never
	// delays a run noticeably.
	DefaultTimeout = 5 * time.Second
)

// Result describes the outcome of a version check.
type Result struct {
	// Current is the running version.
	Current string

	// Latest is the version the remote advertises.
	Latest string

	// Outdated is true when the remote advertises a different version.
	Outdated bool
}

// Checker fetches the remote version string.
type Checker struct {
	url  string
	http *http.Client
}

// NewChecker creates a checker against the project's version URL.
func NewChecker() *Checker {
	return NewCheckerWithURL(RemoteVersionURL)
}

// NewCheckerWithURL creates a checker against a custom URL.
func NewCheckerWithURL(url string) *Checker {
	return &Checker{
		url:  url,
		http: &http.Client{Timeout: DefaultTimeout},
	}
}

// Check compares the running version against the remote one.
func (c *Checker) Check(ctx context.Context, current string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build version request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch remote version: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch remote version: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return nil, fmt.Errorf("read remote version: %w", err)
	}

	latest := strings.TrimSpace(string(body))
	if latest == "" {
		return nil, fmt.Errorf("remote version file is empty")
	}

	return &Result{
		Current:  current,
		Latest:   latest,
		Outdated: latest != current,
	}, nil
}
