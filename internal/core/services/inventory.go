package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/betterinformatics/shtocker/internal/core/domain"
	"github.com/betterinformatics/shtocker/internal/core/ports/driven"
	"github.com/betterinformatics/shtocker/internal/hash"
	"github.com/betterinformatics/shtocker/internal/logger"
)

// Ensure InventoryService implements the interface.
var _ driven.DestinationInventory = (*InventoryService)(nil)

const (
	// MaxFetchRetries is the number of retries after a failed category
	// enumeration.
	MaxFetchRetries = 3

	// FetchRetryDelay is the initial backoff between retries; it
	// doubles on each attempt.
	FetchRetryDelay = time.Second
)

// InventoryService caches destination category identities for the
// lifetime of one run. The first consultation of a category enumerates
// its items and streams each through the hasher; later consultations
// hit the cache. The destination is assumed append-only during a run,
// so entries are never invalidated, only extended by Record.
type InventoryService struct {
	lister     driven.DestinationLister
	maxRetries int
	retryDelay time.Duration

	group singleflight.Group

	mu     sync.RWMutex
	cache  map[string]domain.IdentitySet
	failed map[string]*domain.FetchError
}

// NewInventoryService creates an inventory with an empty cache.
func NewInventoryService(lister driven.DestinationLister) *InventoryService {
	return &InventoryService{
		lister:     lister,
		maxRetries: MaxFetchRetries,
		retryDelay: FetchRetryDelay,
		cache:      make(map[string]domain.IdentitySet),
		failed:     make(map[string]*domain.FetchError),
	}
}

// Contains reports whether the category already holds the identity,
// populating the category's identity set on first use. Concurrent
// callers for the same uncached category share a single population:
// exactly one enumeration runs, the rest wait for its result.
func (s *InventoryService) Contains(ctx context.Context, cat domain.Category, id domain.ContentIdentity) (bool, error) {
	set, err := s.identitiesFor(ctx, cat)
	if err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return set.Contains(id), nil
}

// Record adds an identity to the category's cached set.
func (s *InventoryService) Record(cat domain.Category, id domain.ContentIdentity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.cache[cat.Slug]
	if !ok {
		set = make(domain.IdentitySet)
		s.cache[cat.Slug] = set
	}
	set.Add(id)
}

// Size returns the number of cached identities for a category, or 0 if
// the category has not been consulted.
func (s *InventoryService) Size(cat domain.Category) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache[cat.Slug])
}

// identitiesFor returns the category's identity set, populating it on
// first use. A category whose population exhausted its retries stays
// failed for the rest of the run: later items hit the cached error
// instead of re-running the retry ladder.
func (s *InventoryService) identitiesFor(ctx context.Context, cat domain.Category) (domain.IdentitySet, error) {
	s.mu.RLock()
	set, ok := s.cache[cat.Slug]
	ferr := s.failed[cat.Slug]
	s.mu.RUnlock()
	if ok {
		return set, nil
	}
	if ferr != nil {
		return nil, ferr
	}

	v, err, _ := s.group.Do(cat.Slug, func() (any, error) {
		// A flight that finished while we queued may have settled.
		s.mu.RLock()
		set, ok := s.cache[cat.Slug]
		ferr := s.failed[cat.Slug]
		s.mu.RUnlock()
		if ok {
			return set, nil
		}
		if ferr != nil {
			return nil, ferr
		}

		set, perr := s.populate(ctx, cat)
		if perr != nil {
			var fetchErr *domain.FetchError
			if errors.As(perr, &fetchErr) {
				s.mu.Lock()
				s.failed[cat.Slug] = fetchErr
				s.mu.Unlock()
			}
			return nil, perr
		}

		s.mu.Lock()
		s.cache[cat.Slug] = set
		s.mu.Unlock()
		return set, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(domain.IdentitySet), nil
}

// populate enumerates a category with bounded retry and backoff.
func (s *InventoryService) populate(ctx context.Context, cat domain.Category) (domain.IdentitySet, error) {
	var lastErr error

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			delay := s.retryDelay << (attempt - 1)
			logger.Warn("Retrying category %s in %s (attempt %d/%d): %v",
				cat.Slug, delay, attempt, s.maxRetries, lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		set, err := s.enumerate(ctx, cat)
		if err == nil {
			logger.Debug("Category %s holds %d identities", cat.Slug, len(set))
			return set, nil
		}
		lastErr = err
	}

	return nil, &domain.FetchError{
		CategorySlug: cat.Slug,
		Attempts:     s.maxRetries + 1,
		Err:          lastErr,
	}
}

// enumerate downloads every item in the category and hashes its bytes.
func (s *InventoryService) enumerate(ctx context.Context, cat domain.Category) (domain.IdentitySet, error) {
	items, err := s.lister.ListItems(ctx, cat)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	set := make(domain.IdentitySet, len(items))
	for _, item := range items {
		id, err := s.hashItem(ctx, item)
		if err != nil {
			return nil, fmt.Errorf("hash %s: %w", item.Filename, err)
		}
		set.Add(id)
	}
	return set, nil
}

func (s *InventoryService) hashItem(ctx context.Context, item domain.DestinationItem) (domain.ContentIdentity, error) {
	rc, err := s.lister.OpenItem(ctx, item)
	if err != nil {
		return domain.ContentIdentity{}, err
	}
	defer rc.Close()

	return hash.Reader(rc)
}
