package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/betterinformatics/shtocker/internal/core/domain"
	"github.com/betterinformatics/shtocker/internal/core/ports/driven"
	"github.com/betterinformatics/shtocker/internal/core/ports/driving"
	"github.com/betterinformatics/shtocker/internal/hash"
	"github.com/betterinformatics/shtocker/internal/logger"
)

// Ensure Engine implements the interface.
var _ driving.Reconciler = (*Engine)(nil)

// Engine walks the source archive page by page, decides each exam
// against its destination category, and uploads the approved missing
// candidates. Failures are isolated: a bad item or category never
// aborts the rest of the run.
type Engine struct {
	catalog    driven.SourceCatalog
	resolver   driven.CategoryResolver
	inventory  driven.DestinationInventory
	uploader   driven.Uploader
	exclusions driven.ExclusionStore
	extractor  *DietExtractor
	gate       driving.CandidateGate
	journal    driven.RunJournal
	pacer      driven.Pacer

	mu     sync.RWMutex
	status driving.RunStatus
}

// NewEngine creates a reconciliation engine. The gate, journal, and
// pacer may be nil: a nil gate approves everything, a nil journal skips
// persistence, a nil pacer applies no delays.
func NewEngine(
	catalog driven.SourceCatalog,
	resolver driven.CategoryResolver,
	inventory driven.DestinationInventory,
	uploader driven.Uploader,
	exclusions driven.ExclusionStore,
	extractor *DietExtractor,
	gate driving.CandidateGate,
	journal driven.RunJournal,
	pacer driven.Pacer,
) *Engine {
	return &Engine{
		catalog:    catalog,
		resolver:   resolver,
		inventory:  inventory,
		uploader:   uploader,
		exclusions: exclusions,
		extractor:  extractor,
		gate:       gate,
		journal:    journal,
		pacer:      pacer,
	}
}

// Run performs one full reconciliation pass.
func (e *Engine) Run(ctx context.Context, opts driving.RunOptions) (*domain.RunReport, error) {
	if !e.begin() {
		return nil, domain.ErrRunInProgress
	}
	defer e.end()

	report := &domain.RunReport{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
	}

	for page := 0; ; page++ {
		e.setPage(page)

		exams, last, err := e.catalog.ListPage(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("list page %d: %w", page, err)
		}
		logger.Info("Page %d: %d exams listed", page, len(exams))

		candidates, err := e.decidePage(ctx, exams, opts, report)
		if err != nil {
			return nil, err
		}

		if err := e.uploadPage(ctx, candidates, opts, report); err != nil {
			return nil, err
		}

		if last {
			break
		}
	}

	report.FinishedAt = time.Now()
	e.logSummary(report)

	if e.journal != nil {
		if err := e.journal.SaveReport(ctx, *report); err != nil {
			logger.Warn("Could not journal run report: %v", err)
		}
	}
	return report, nil
}

// Status returns a snapshot of the active run's progress.
func (e *Engine) Status(_ context.Context) (*driving.RunStatus, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	status := e.status
	return &status, nil
}

// decidePage decides every exam on a page and returns the missing
// candidates in listing order. Item failures are recorded in the
// report; only run-level failures (cancellation) return an error.
//
// Cross-category work may proceed in parallel: the inventory's
// per-category population is serialised internally, so same-category
// comparisons always observe a fully populated identity set.
func (e *Engine) decidePage(
	ctx context.Context,
	exams []domain.Exam,
	opts driving.RunOptions,
	report *domain.RunReport,
) ([]domain.Candidate, error) {
	decisions := make([]domain.Decision, len(exams))
	candidates := make([]*domain.Candidate, len(exams))
	failures := make([]error, len(exams))

	limit := opts.Parallel
	if limit < 1 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, exam := range exams {
		i, exam := i, exam
		g.Go(func() error {
			if e.pacer != nil {
				if err := e.pacer.Wait(gctx); err != nil {
					return err
				}
			}

			d, cand, err := e.decideOne(gctx, exam)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failures[i] = err
			} else {
				decisions[i] = d
				candidates[i] = cand
			}
			e.bumpProcessed()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var missing []domain.Candidate
	for i, exam := range exams {
		if failures[i] != nil {
			logger.Warn("Failed %s: %v", exam, failures[i])
			report.AddFailure(exam, failures[i])
			e.bumpErrors()
			continue
		}

		switch decisions[i].Kind {
		case domain.DecisionAlreadyPresent:
			logger.Debug("Already present: %s", exam)
			report.AlreadyPresent++
		case domain.DecisionUntracked:
			report.Untracked++
		case domain.DecisionBlocked:
			logger.Info("Blocked by known-bad list: %s", exam)
			report.Blocked++
		case domain.DecisionMissing:
			missing = append(missing, *candidates[i])
		}
	}
	return missing, nil
}

// decideOne resolves, hashes, and classifies a single exam. A non-nil
// error marks the item failed; it never aborts the run.
func (e *Engine) decideOne(ctx context.Context, exam domain.Exam) (domain.Decision, *domain.Candidate, error) {
	cat, err := e.resolver.Resolve(ctx, exam.Code)
	if errors.Is(err, domain.ErrUntrackedCode) {
		logger.Warn("No category mapped for %s, skipping %q", exam.Code, exam.Title)
		return domain.Decision{Exam: exam, Kind: domain.DecisionUntracked, Reason: "no mapped category"}, nil, nil
	}
	if err != nil {
		return domain.Decision{}, nil, fmt.Errorf("resolve %s: %w", exam.Code, err)
	}

	// Stream the document through the hasher exactly once, buffering
	// the bytes so a missing exam can be uploaded without re-fetching.
	content, id, err := e.fetchAndHash(ctx, exam)
	if err != nil {
		return domain.Decision{}, nil, err
	}
	logger.Debug("%s identity %s", exam.Code, id.Hex())

	// Known-bad wins over everything, including destination presence.
	if e.exclusions != nil && e.exclusions.IsKnownBad(ctx, id) {
		return domain.Decision{Exam: exam, Kind: domain.DecisionBlocked, Identity: id}, nil, nil
	}

	present, err := e.inventory.Contains(ctx, cat, id)
	if err != nil {
		var fe *domain.FetchError
		if errors.As(err, &fe) {
			logger.Warn("Category %s unavailable, skipping %s: %v", cat.Slug, exam.Code, fe.Err)
			return domain.Decision{
				Exam:     exam,
				Kind:     domain.DecisionUntracked,
				Identity: id,
				Reason:   fmt.Sprintf("category unavailable: %v", fe.Err),
			}, nil, nil
		}
		return domain.Decision{}, nil, err
	}

	if present {
		return domain.Decision{Exam: exam, Kind: domain.DecisionAlreadyPresent, Identity: id}, nil, nil
	}

	label := fallbackLabel(exam)
	if e.extractor != nil {
		label = e.extractor.Extract(ctx, content, exam)
	}

	cand := &domain.Candidate{
		Exam:     exam,
		Category: cat,
		Identity: id,
		Label:    label,
		Content:  content,
	}
	return domain.Decision{Exam: exam, Kind: domain.DecisionMissing, Identity: id}, cand, nil
}

// fetchAndHash downloads the exam once, computing its identity while
// buffering the bytes.
func (e *Engine) fetchAndHash(ctx context.Context, exam domain.Exam) ([]byte, domain.ContentIdentity, error) {
	rc, err := e.catalog.Open(ctx, exam)
	if err != nil {
		return nil, domain.ContentIdentity{}, &domain.StreamError{URI: exam.DownloadURL, Err: err}
	}
	defer rc.Close()

	var buf bytes.Buffer
	id, err := hash.Reader(io.TeeReader(rc, &buf))
	if err != nil {
		return nil, domain.ContentIdentity{}, &domain.StreamError{URI: exam.DownloadURL, Err: err}
	}
	return buf.Bytes(), id, nil
}

// uploadPage gates the page's candidates and uploads the approved
// ones. A failed upload is reported and the rest are still attempted.
func (e *Engine) uploadPage(
	ctx context.Context,
	candidates []domain.Candidate,
	opts driving.RunOptions,
	report *domain.RunReport,
) error {
	approved := candidates
	if e.gate != nil {
		var err error
		approved, err = e.gate.Review(ctx, candidates)
		if err != nil {
			return fmt.Errorf("review candidates: %w", err)
		}
	}
	report.Skipped += len(candidates) - len(approved)

	for i := range approved {
		cand := &approved[i]

		if err := ctx.Err(); err != nil {
			return err
		}

		// Two identical papers can appear on one page; the first
		// upload records its identity so the second is not re-sent.
		present, err := e.inventory.Contains(ctx, cand.Category, cand.Identity)
		if err == nil && present {
			logger.Debug("Already present after earlier upload: %s", cand.Exam)
			report.AlreadyPresent++
			continue
		}

		if opts.DryRun {
			logger.Info("Dry run: would upload %s as %q", cand.Exam, cand.Label)
			report.Skipped++
			continue
		}

		if e.pacer != nil {
			if err := e.pacer.Wait(ctx); err != nil {
				return err
			}
		}

		dest, err := e.uploader.Upload(ctx, *cand)
		if err != nil {
			ue := &domain.UploadError{Code: cand.Exam.Code, Title: cand.Exam.Title, Err: err}
			logger.Warn("%v", ue)
			report.AddFailure(cand.Exam, ue)
			e.bumpErrors()
			continue
		}

		e.inventory.Record(cand.Category, cand.Identity)
		report.Uploaded++
		e.bumpUploaded()
		logger.Info("Uploaded %s as %q (%s)", cand.Exam, cand.Label, dest)
	}
	return nil
}

func (e *Engine) logSummary(report *domain.RunReport) {
	logger.Info("Run %s complete: %d uploaded, %d already present, %d untracked, %d blocked, %d failed, %d skipped",
		report.ID, report.Uploaded, report.AlreadyPresent, report.Untracked,
		report.Blocked, report.Failed, report.Skipped)
	for _, f := range report.Failures {
		logger.Warn("Failure: %s %q: %s", f.Code, f.Title, f.Err)
	}
}

// begin marks the run active; false means one is already running.
func (e *Engine) begin() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status.Running {
		return false
	}
	e.status = driving.RunStatus{Running: true}
	return true
}

func (e *Engine) end() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status.Running = false
}

func (e *Engine) setPage(page int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status.Page = page
}

func (e *Engine) bumpProcessed() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status.Processed++
}

func (e *Engine) bumpUploaded() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status.Uploaded++
}

func (e *Engine) bumpErrors() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status.Errors++
}
