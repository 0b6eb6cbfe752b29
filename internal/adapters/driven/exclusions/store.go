package exclusions

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/betterinformatics/shtocker/internal/core/domain"
	"github.com/betterinformatics/shtocker/internal/core/ports/driven"
	"github.com/betterinformatics/shtocker/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.ExclusionStore = (*Store)(nil)

// Store holds the known-bad identity set, loaded from an optional
// operator file on top of the embedded defaults.
type Store struct {
	path string

	mu  sync.RWMutex
	set domain.IdentitySet
}

// NewStore creates a store holding only the embedded defaults.
func NewStore() *Store {
	s := &Store{set: make(domain.IdentitySet)}
	// The embedded list is maintained with the code; it always parses.
	set, _ := parse(bytes.NewReader(defaultList))
	s.set = set
	return s
}

// Load reads an operator-maintained list file and merges it over the
// defaults. A missing file leaves the defaults in place.
func Load(path string) (*Store, error) {
	s := NewStore()
	s.path = path

	if path == "" {
		return s, nil
	}
	if err := s.Reload(); err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}
	return s, nil
}

// IsKnownBad reports whether the identity is on the known-bad list.
func (s *Store) IsKnownBad(_ context.Context, id domain.ContentIdentity) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set.Contains(id)
}

// Len returns the number of blocked identities.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.set)
}

// Reload re-reads the list file, replacing any previously loaded
// entries. The embedded defaults are always retained.
func (s *Store) Reload() error {
	f, err := os.Open(s.path)
	if err != nil {
		return err
	}
	defer f.Close()

	loaded, err := parse(f)
	if err != nil {
		return fmt.Errorf("parse %s: %w", s.path, err)
	}

	merged, _ := parse(bytes.NewReader(defaultList))
	for id := range loaded {
		merged.Add(id)
	}

	s.mu.Lock()
	s.set = merged
	s.mu.Unlock()

	logger.Debug("Known-bad list holds %d identities", len(merged))
	return nil
}

// parse reads hex digests line by line, skipping blanks and comments.
func parse(r io.Reader) (domain.IdentitySet, error) {
	set := make(domain.IdentitySet)

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		id, err := domain.ParseIdentity(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		set.Add(id)
	}
	return set, scanner.Err()
}
