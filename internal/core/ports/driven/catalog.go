package driven

import (
	"context"
	"io"

	"github.com/betterinformatics/shtocker/internal/core/domain"
)

// SourceCatalog enumerates exam papers from the source archive.
type SourceCatalog interface {
	// ListPage returns the exams on a page (0-indexed) and whether it
	// is the last page. Pages are bounded; the archive serves at most
	// 100 items per page.
	ListPage(ctx context.Context, page int) ([]domain.Exam, bool, error)

	// Open returns the byte stream for an exam's document. The caller
	// must close the stream.
	Open(ctx context.Context, exam domain.Exam) (io.ReadCloser, error)
}
