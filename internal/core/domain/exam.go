package domain

import (
	"fmt"
	"time"
)

// Exam represents one paper listed in the source archive.
// Exams are immutable once listed; they live for a single run.
type Exam struct {
	// Code is the course identifier used to map the paper to a
	// destination category.
	Code string

	// Title is the paper's title as given by the archive.
	Title string

	// Issued is the archive's issue date for the paper. May be zero
	// when the archive record carries no parseable date.
	Issued time.Time

	// DownloadURL resolves to the paper's document bytes.
	DownloadURL string
}

// YearLabel renders the issue date as "2006 Jan", matching how sittings
// are usually displayed. Empty when no date is known.
func (e Exam) YearLabel() string {
	if e.Issued.IsZero() {
		return ""
	}
	return e.Issued.Format("2006 Jan")
}

// String returns a human-readable one-line description.
func (e Exam) String() string {
	if label := e.YearLabel(); label != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Title, label)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Title)
}
