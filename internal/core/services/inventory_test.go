package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betterinformatics/shtocker/internal/core/domain"
	"github.com/betterinformatics/shtocker/internal/hash"
)

// fakeLister serves in-memory category contents and counts enumerations.
type fakeLister struct {
	mu        sync.Mutex
	contents  map[string][][]byte // slug -> item contents
	listCalls atomic.Int64
	failures  int   // number of ListItems calls to fail before succeeding
	listDelay time.Duration
	openErr   error
}

func (f *fakeLister) ListItems(_ context.Context, cat domain.Category) ([]domain.DestinationItem, error) {
	f.listCalls.Add(1)
	if f.listDelay > 0 {
		time.Sleep(f.listDelay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("service unavailable")
	}

	items := make([]domain.DestinationItem, len(f.contents[cat.Slug]))
	for i := range f.contents[cat.Slug] {
		items[i] = domain.DestinationItem{CategorySlug: cat.Slug, Filename: string(rune('a' + i))}
	}
	return items, nil
}

func (f *fakeLister) OpenItem(_ context.Context, item domain.DestinationItem) (io.ReadCloser, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := int(item.Filename[0] - 'a')
	return io.NopCloser(bytes.NewReader(f.contents[item.CategorySlug][idx])), nil
}

func fastInventory(lister *fakeLister) *InventoryService {
	s := NewInventoryService(lister)
	s.retryDelay = time.Millisecond
	return s
}

func TestInventory_Contains(t *testing.T) {
	lister := &fakeLister{contents: map[string][][]byte{
		"infr1": {[]byte("paper one"), []byte("paper two")},
	}}
	inv := fastInventory(lister)
	cat := domain.Category{Slug: "infr1", Code: "INFR1"}

	present, err := inv.Contains(context.Background(), cat, hash.Bytes([]byte("paper one")))
	require.NoError(t, err)
	assert.True(t, present)

	absent, err := inv.Contains(context.Background(), cat, hash.Bytes([]byte("paper three")))
	require.NoError(t, err)
	assert.False(t, absent)
}

func TestInventory_SingleEnumerationPerRun(t *testing.T) {
	lister := &fakeLister{contents: map[string][][]byte{
		"infr1": {[]byte("a"), []byte("b"), []byte("c")},
	}}
	inv := fastInventory(lister)
	cat := domain.Category{Slug: "infr1", Code: "INFR1"}

	for i := 0; i < 20; i++ {
		_, err := inv.Contains(context.Background(), cat, hash.Bytes([]byte("probe")))
		require.NoError(t, err)
	}

	assert.Equal(t, int64(1), lister.listCalls.Load(),
		"N comparisons must cost exactly one enumeration")
}

func TestInventory_AtMostOnePopulation_Concurrent(t *testing.T) {
	lister := &fakeLister{
		contents:  map[string][][]byte{"infr2": {[]byte("x")}},
		listDelay: 20 * time.Millisecond,
	}
	inv := fastInventory(lister)
	cat := domain.Category{Slug: "infr2", Code: "INFR2"}
	want := hash.Bytes([]byte("x"))

	var wg sync.WaitGroup
	results := make([]bool, 16)
	for i := 0; i < 16; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			present, err := inv.Contains(context.Background(), cat, want)
			assert.NoError(t, err)
			results[i] = present
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), lister.listCalls.Load(),
		"concurrent callers must share one population")
	for _, present := range results {
		assert.True(t, present, "all callers observe the completed set")
	}
}

func TestInventory_DistinctCategoriesEnumeratedSeparately(t *testing.T) {
	lister := &fakeLister{contents: map[string][][]byte{
		"infr1": {[]byte("a")},
		"infr2": {[]byte("b")},
	}}
	inv := fastInventory(lister)

	_, err := inv.Contains(context.Background(), domain.Category{Slug: "infr1"}, hash.Bytes([]byte("a")))
	require.NoError(t, err)
	_, err = inv.Contains(context.Background(), domain.Category{Slug: "infr2"}, hash.Bytes([]byte("b")))
	require.NoError(t, err)

	assert.Equal(t, int64(2), lister.listCalls.Load())
}

func TestInventory_RetriesThenSucceeds(t *testing.T) {
	lister := &fakeLister{
		contents: map[string][][]byte{"infr1": {[]byte("a")}},
		failures: 2,
	}
	inv := fastInventory(lister)

	present, err := inv.Contains(context.Background(), domain.Category{Slug: "infr1"}, hash.Bytes([]byte("a")))
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, int64(3), lister.listCalls.Load())
}

func TestInventory_FetchErrorAfterBoundedRetries(t *testing.T) {
	lister := &fakeLister{
		contents: map[string][][]byte{"infr1": {[]byte("a")}},
		failures: 100,
	}
	inv := fastInventory(lister)

	_, err := inv.Contains(context.Background(), domain.Category{Slug: "infr1"}, hash.Bytes([]byte("a")))
	require.Error(t, err)

	var fe *domain.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "infr1", fe.CategorySlug)
	assert.Equal(t, MaxFetchRetries+1, fe.Attempts)
	assert.Equal(t, int64(MaxFetchRetries+1), lister.listCalls.Load())
}

func TestInventory_FailedCategoryNotRetriedPerItem(t *testing.T) {
	lister := &fakeLister{
		contents: map[string][][]byte{"infr1": {[]byte("a")}},
		failures: 100,
	}
	inv := fastInventory(lister)
	cat := domain.Category{Slug: "infr1", Code: "INFR1"}

	for i := 0; i < 5; i++ {
		_, err := inv.Contains(context.Background(), cat, hash.Bytes([]byte("a")))
		var fe *domain.FetchError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, MaxFetchRetries+1, fe.Attempts)
	}

	assert.Equal(t, int64(MaxFetchRetries+1), lister.listCalls.Load(),
		"a dead category costs one retry ladder, not one per item")
}

func TestInventory_ItemStreamFailureRetried(t *testing.T) {
	lister := &fakeLister{
		contents: map[string][][]byte{"infr1": {[]byte("a")}},
		openErr:  errors.New("read timeout"),
	}
	inv := fastInventory(lister)

	_, err := inv.Contains(context.Background(), domain.Category{Slug: "infr1"}, hash.Bytes([]byte("a")))
	var fe *domain.FetchError
	require.ErrorAs(t, err, &fe)
	assert.ErrorContains(t, fe.Err, "read timeout")
}

func TestInventory_Record(t *testing.T) {
	lister := &fakeLister{contents: map[string][][]byte{"infr1": {}}}
	inv := fastInventory(lister)
	cat := domain.Category{Slug: "infr1", Code: "INFR1"}
	id := hash.Bytes([]byte("freshly uploaded"))

	present, err := inv.Contains(context.Background(), cat, id)
	require.NoError(t, err)
	require.False(t, present)

	inv.Record(cat, id)

	present, err = inv.Contains(context.Background(), cat, id)
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, 1, inv.Size(cat))
}

func TestInventory_ContextCancelledDuringBackoff(t *testing.T) {
	lister := &fakeLister{
		contents: map[string][][]byte{"infr1": {[]byte("a")}},
		failures: 100,
	}
	inv := NewInventoryService(lister) // real 1s delay

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := inv.Contains(ctx, domain.Category{Slug: "infr1"}, hash.Bytes([]byte("a")))
	assert.ErrorIs(t, err, context.Canceled)
}
