package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betterinformatics/shtocker/internal/core/domain"
	"github.com/betterinformatics/shtocker/internal/core/ports/driving"
	"github.com/betterinformatics/shtocker/internal/hash"
)

// stubCatalog serves exams from fixed pages with in-memory content.
type stubCatalog struct {
	pages   [][]domain.Exam
	content map[string][]byte // download URL -> bytes
	openErr map[string]error
}

func (c *stubCatalog) ListPage(_ context.Context, page int) ([]domain.Exam, bool, error) {
	if page >= len(c.pages) {
		return nil, true, nil
	}
	return c.pages[page], page == len(c.pages)-1, nil
}

func (c *stubCatalog) Open(_ context.Context, exam domain.Exam) (io.ReadCloser, error) {
	if err := c.openErr[exam.DownloadURL]; err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(c.content[exam.DownloadURL])), nil
}

// stubResolver maps course codes to categories.
type stubResolver struct {
	categories map[string]domain.Category
}

func (r *stubResolver) Resolve(_ context.Context, code string) (domain.Category, error) {
	cat, ok := r.categories[code]
	if !ok {
		return domain.Category{}, domain.ErrUntrackedCode
	}
	return cat, nil
}

// stubInventory holds per-category identity sets directly, with an
// optional per-category error.
type stubInventory struct {
	mu       sync.Mutex
	sets     map[string]domain.IdentitySet
	errs     map[string]error
	recorded int
}

func (s *stubInventory) Contains(_ context.Context, cat domain.Category, id domain.ContentIdentity) (bool, error) {
	if err := s.errs[cat.Slug]; err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets[cat.Slug].Contains(id), nil
}

func (s *stubInventory) Record(cat domain.Category, id domain.ContentIdentity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sets == nil {
		s.sets = make(map[string]domain.IdentitySet)
	}
	if s.sets[cat.Slug] == nil {
		s.sets[cat.Slug] = make(domain.IdentitySet)
	}
	s.sets[cat.Slug].Add(id)
	s.recorded++
}

// stubUploader records uploads and can fail selected labels.
type stubUploader struct {
	mu       sync.Mutex
	uploaded []domain.Candidate
	failFor  map[string]error // exam code -> error
}

func (u *stubUploader) Upload(_ context.Context, cand domain.Candidate) (string, error) {
	if err := u.failFor[cand.Exam.Code]; err != nil {
		return "", err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.uploaded = append(u.uploaded, cand)
	return "/exam/" + cand.Exam.Code, nil
}

type stubExclusions struct {
	bad domain.IdentitySet
}

func (s *stubExclusions) IsKnownBad(_ context.Context, id domain.ContentIdentity) bool {
	return s.bad.Contains(id)
}

// gateFunc adapts a function to the candidate gate interface.
type gateFunc func([]domain.Candidate) ([]domain.Candidate, error)

func (g gateFunc) Review(_ context.Context, c []domain.Candidate) ([]domain.Candidate, error) {
	return g(c)
}

func exam(code, title, url string) domain.Exam {
	return domain.Exam{
		Code:        code,
		Title:       title,
		Issued:      time.Date(2023, time.May, 1, 0, 0, 0, 0, time.UTC),
		DownloadURL: url,
	}
}

func newTestEngine(catalog *stubCatalog, resolver *stubResolver, inv *stubInventory, up *stubUploader, excl *stubExclusions) *Engine {
	return NewEngine(catalog, resolver, inv, up, excl, nil, nil, nil, nil)
}

func TestEngine_DecisionOutcomes(t *testing.T) {
	presentBytes := []byte("already on the destination")
	missingBytes := []byte("not yet uploaded")
	badBytes := []byte("known bad scan")

	catalog := &stubCatalog{
		pages: [][]domain.Exam{{
			exam("INFR08001", "Present paper", "u/present"),
			exam("INFR08001", "Missing paper", "u/missing"),
			exam("MATH00000", "Untracked paper", "u/untracked"),
			exam("INFR08001", "Bad paper", "u/bad"),
		}},
		content: map[string][]byte{
			"u/present":   presentBytes,
			"u/missing":   missingBytes,
			"u/untracked": []byte("whatever"),
			"u/bad":       badBytes,
		},
	}
	resolver := &stubResolver{categories: map[string]domain.Category{
		"INFR08001": {Slug: "infr08001", Code: "INFR08001"},
	}}
	inv := &stubInventory{sets: map[string]domain.IdentitySet{
		"infr08001": domain.NewIdentitySet(hash.Bytes(presentBytes)),
	}}
	up := &stubUploader{}
	excl := &stubExclusions{bad: domain.NewIdentitySet(hash.Bytes(badBytes))}

	engine := newTestEngine(catalog, resolver, inv, up, excl)
	report, err := engine.Run(context.Background(), driving.RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, report.AlreadyPresent)
	assert.Equal(t, 1, report.Uploaded)
	assert.Equal(t, 1, report.Untracked)
	assert.Equal(t, 1, report.Blocked)
	assert.Equal(t, 0, report.Failed)

	require.Len(t, up.uploaded, 1)
	assert.Equal(t, "Missing paper", up.uploaded[0].Exam.Title)
	assert.Equal(t, missingBytes, up.uploaded[0].Content)
}

func TestEngine_KnownBadWinsOverPresence(t *testing.T) {
	badBytes := []byte("corrupt scan")
	id := hash.Bytes(badBytes)

	catalog := &stubCatalog{
		pages:   [][]domain.Exam{{exam("INFR1", "Bad", "u/bad")}},
		content: map[string][]byte{"u/bad": badBytes},
	}
	resolver := &stubResolver{categories: map[string]domain.Category{
		"INFR1": {Slug: "infr1", Code: "INFR1"},
	}}
	// The identity is present in the destination AND on the known-bad
	// list: the block must win, nothing is counted present.
	inv := &stubInventory{sets: map[string]domain.IdentitySet{
		"infr1": domain.NewIdentitySet(id),
	}}
	up := &stubUploader{}
	excl := &stubExclusions{bad: domain.NewIdentitySet(id)}

	engine := newTestEngine(catalog, resolver, inv, up, excl)
	report, err := engine.Run(context.Background(), driving.RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Blocked)
	assert.Equal(t, 0, report.AlreadyPresent)
	assert.Empty(t, up.uploaded)
}

func TestEngine_ItemFailureDoesNotAbortRun(t *testing.T) {
	catalog := &stubCatalog{
		pages: [][]domain.Exam{{
			exam("INFR1", "Broken download", "u/broken"),
			exam("INFR1", "Fine paper", "u/fine"),
		}},
		content: map[string][]byte{"u/fine": []byte("fine")},
		openErr: map[string]error{"u/broken": errors.New("connection reset")},
	}
	resolver := &stubResolver{categories: map[string]domain.Category{
		"INFR1": {Slug: "infr1", Code: "INFR1"},
	}}
	inv := &stubInventory{sets: map[string]domain.IdentitySet{"infr1": {}}}
	up := &stubUploader{}

	engine := newTestEngine(catalog, resolver, inv, up, &stubExclusions{})
	report, err := engine.Run(context.Background(), driving.RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Uploaded)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "Broken download", report.Failures[0].Title)
	assert.Contains(t, report.Failures[0].Err, "connection reset")
}

func TestEngine_DegradedCategorySkipsItsItemsOnly(t *testing.T) {
	catalog := &stubCatalog{
		pages: [][]domain.Exam{{
			exam("BROKEN1", "Degraded category paper", "u/a"),
			exam("INFR1", "Healthy category paper", "u/b"),
		}},
		content: map[string][]byte{"u/a": []byte("aaa"), "u/b": []byte("bbb")},
	}
	resolver := &stubResolver{categories: map[string]domain.Category{
		"BROKEN1": {Slug: "broken1", Code: "BROKEN1"},
		"INFR1":   {Slug: "infr1", Code: "INFR1"},
	}}
	inv := &stubInventory{
		sets: map[string]domain.IdentitySet{"infr1": {}},
		errs: map[string]error{"broken1": &domain.FetchError{
			CategorySlug: "broken1", Attempts: 4, Err: errors.New("gateway timeout"),
		}},
	}
	up := &stubUploader{}

	engine := newTestEngine(catalog, resolver, inv, up, &stubExclusions{})
	report, err := engine.Run(context.Background(), driving.RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Untracked, "degraded category is skipped, not failed")
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 1, report.Uploaded, "healthy category still processed")
}

func TestEngine_PartialUploadFailure(t *testing.T) {
	catalog := &stubCatalog{
		pages: [][]domain.Exam{{
			exam("INFR1", "First", "u/1"),
			exam("INFR2", "Second", "u/2"),
			exam("INFR3", "Third", "u/3"),
		}},
		content: map[string][]byte{
			"u/1": []byte("one"), "u/2": []byte("two"), "u/3": []byte("three"),
		},
	}
	resolver := &stubResolver{categories: map[string]domain.Category{
		"INFR1": {Slug: "infr1"}, "INFR2": {Slug: "infr2"}, "INFR3": {Slug: "infr3"},
	}}
	inv := &stubInventory{sets: map[string]domain.IdentitySet{
		"infr1": {}, "infr2": {}, "infr3": {},
	}}
	up := &stubUploader{failFor: map[string]error{"INFR2": errors.New("413 too large")}}

	engine := newTestEngine(catalog, resolver, inv, up, &stubExclusions{})
	report, err := engine.Run(context.Background(), driving.RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Uploaded)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "INFR2", report.Failures[0].Code)
	assert.True(t, strings.Contains(report.Failures[0].Err, "413"))
}

func TestEngine_WithinRunDuplicateUploadedOnce(t *testing.T) {
	same := []byte("identical content, two listings")
	catalog := &stubCatalog{
		pages: [][]domain.Exam{{
			exam("INFR1", "Original listing", "u/orig"),
			exam("INFR1", "Duplicate listing", "u/dup"),
		}},
		content: map[string][]byte{"u/orig": same, "u/dup": same},
	}
	resolver := &stubResolver{categories: map[string]domain.Category{
		"INFR1": {Slug: "infr1"},
	}}
	inv := &stubInventory{sets: map[string]domain.IdentitySet{"infr1": {}}}
	up := &stubUploader{}

	engine := newTestEngine(catalog, resolver, inv, up, &stubExclusions{})
	report, err := engine.Run(context.Background(), driving.RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Uploaded)
	assert.Equal(t, 1, report.AlreadyPresent,
		"second listing sees the first upload's recorded identity")
	require.Len(t, up.uploaded, 1)
}

func TestEngine_DryRun(t *testing.T) {
	catalog := &stubCatalog{
		pages:   [][]domain.Exam{{exam("INFR1", "Would upload", "u/1")}},
		content: map[string][]byte{"u/1": []byte("new paper")},
	}
	resolver := &stubResolver{categories: map[string]domain.Category{
		"INFR1": {Slug: "infr1"},
	}}
	inv := &stubInventory{sets: map[string]domain.IdentitySet{"infr1": {}}}
	up := &stubUploader{}

	engine := newTestEngine(catalog, resolver, inv, up, &stubExclusions{})
	report, err := engine.Run(context.Background(), driving.RunOptions{DryRun: true})
	require.NoError(t, err)

	assert.Equal(t, 0, report.Uploaded)
	assert.Equal(t, 1, report.Skipped)
	assert.Empty(t, up.uploaded)
	assert.Equal(t, 0, inv.recorded)
}

func TestEngine_GateRejectionSkips(t *testing.T) {
	catalog := &stubCatalog{
		pages: [][]domain.Exam{{
			exam("INFR1", "Approved", "u/1"),
			exam("INFR1", "Rejected", "u/2"),
		}},
		content: map[string][]byte{"u/1": []byte("one"), "u/2": []byte("two")},
	}
	resolver := &stubResolver{categories: map[string]domain.Category{
		"INFR1": {Slug: "infr1"},
	}}
	inv := &stubInventory{sets: map[string]domain.IdentitySet{"infr1": {}}}
	up := &stubUploader{}

	gate := gateFunc(func(c []domain.Candidate) ([]domain.Candidate, error) {
		var keep []domain.Candidate
		for _, cand := range c {
			if cand.Exam.Title == "Approved" {
				keep = append(keep, cand)
			}
		}
		return keep, nil
	})

	engine := NewEngine(catalog, resolver, inv, up, &stubExclusions{}, nil, gate, nil, nil)
	report, err := engine.Run(context.Background(), driving.RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Uploaded)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, up.uploaded, 1)
	assert.Equal(t, "Approved", up.uploaded[0].Exam.Title)
}

func TestEngine_GateAbortStopsRun(t *testing.T) {
	catalog := &stubCatalog{
		pages:   [][]domain.Exam{{exam("INFR1", "Pending", "u/1")}},
		content: map[string][]byte{"u/1": []byte("one")},
	}
	resolver := &stubResolver{categories: map[string]domain.Category{
		"INFR1": {Slug: "infr1"},
	}}
	inv := &stubInventory{sets: map[string]domain.IdentitySet{"infr1": {}}}
	up := &stubUploader{}

	gate := gateFunc(func([]domain.Candidate) ([]domain.Candidate, error) {
		return nil, errors.New("aborted by operator")
	})

	engine := NewEngine(catalog, resolver, inv, up, &stubExclusions{}, nil, gate, nil, nil)
	_, err := engine.Run(context.Background(), driving.RunOptions{})
	require.Error(t, err)
	assert.ErrorContains(t, err, "aborted by operator")
	assert.Empty(t, up.uploaded)
}

func TestEngine_MultiplePages(t *testing.T) {
	catalog := &stubCatalog{
		pages: [][]domain.Exam{
			{exam("INFR1", "Page zero", "u/0")},
			{exam("INFR1", "Page one", "u/1")},
		},
		content: map[string][]byte{"u/0": []byte("zero"), "u/1": []byte("one")},
	}
	resolver := &stubResolver{categories: map[string]domain.Category{
		"INFR1": {Slug: "infr1"},
	}}
	inv := &stubInventory{sets: map[string]domain.IdentitySet{"infr1": {}}}
	up := &stubUploader{}

	engine := newTestEngine(catalog, resolver, inv, up, &stubExclusions{})
	report, err := engine.Run(context.Background(), driving.RunOptions{Parallel: 4})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Uploaded)
	assert.Equal(t, 2, report.Total())
}

func TestEngine_RejectsConcurrentRuns(t *testing.T) {
	engine := newTestEngine(&stubCatalog{}, &stubResolver{}, &stubInventory{}, &stubUploader{}, &stubExclusions{})

	require.True(t, engine.begin())
	_, err := engine.Run(context.Background(), driving.RunOptions{})
	assert.ErrorIs(t, err, domain.ErrRunInProgress)
	engine.end()
}

func TestEngine_StatusSnapshot(t *testing.T) {
	catalog := &stubCatalog{
		pages:   [][]domain.Exam{{exam("INFR1", "One", "u/1")}},
		content: map[string][]byte{"u/1": []byte("one")},
	}
	resolver := &stubResolver{categories: map[string]domain.Category{
		"INFR1": {Slug: "infr1"},
	}}
	inv := &stubInventory{sets: map[string]domain.IdentitySet{"infr1": {}}}

	engine := newTestEngine(catalog, resolver, inv, &stubUploader{}, &stubExclusions{})
	_, err := engine.Run(context.Background(), driving.RunOptions{})
	require.NoError(t, err)

	status, err := engine.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, status.Running)
	assert.Equal(t, 1, status.Processed)
	assert.Equal(t, 1, status.Uploaded)
}
