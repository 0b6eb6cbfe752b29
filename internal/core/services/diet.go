package services

import (
	"context"
	"fmt"
	"os"
	"regexp"

	"github.com/betterinformatics/shtocker/internal/core/domain"
	"github.com/betterinformatics/shtocker/internal/core/ports/driven"
	"github.com/betterinformatics/shtocker/internal/logger"
)

// dietPattern matches a sitting label on the first page of a paper:
// a month name (short or long), an optional day, and a 2- or 4-digit
// year, e.g. "May 2013", "December 2023", "Apr 27 05".
var dietPattern = regexp.MustCompile(
	`(?:Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|Jun(?:e)?|Jul(?:y)?|Aug(?:ust)?` +
		`|Sep(?:tember)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?)\D?(\d{1,2}\D?)?\D?((19[7-9]\d|20\d{2})|\d{2})`)

// DietExtractor derives the exam sitting (diet) label from a paper's
// first page. Extraction is best effort: any failure falls back to a
// placeholder label and never blocks an upload.
type DietExtractor struct {
	runner driven.CommandRunner
}

// NewDietExtractor creates an extractor backed by a command runner
// that invokes pdftotext.
func NewDietExtractor(runner driven.CommandRunner) *DietExtractor {
	return &DietExtractor{runner: runner}
}

// Extract returns the sitting label for the document, or a placeholder
// when the first page yields no recognisable diet.
func (e *DietExtractor) Extract(ctx context.Context, content []byte, exam domain.Exam) string {
	text, err := e.firstPageText(ctx, content)
	if err != nil {
		logger.Debug("Diet extraction failed for %s: %v", exam.Code, err)
		return fallbackLabel(exam)
	}

	if m := dietPattern.FindString(text); m != "" {
		return m
	}
	return fallbackLabel(exam)
}

// firstPageText extracts the text of the document's first page.
// pdftotext wants a file path, so the bytes go through a temp file.
func (e *DietExtractor) firstPageText(ctx context.Context, content []byte) (string, error) {
	f, err := os.CreateTemp("", "shtocker-*.pdf")
	if err != nil {
		return "", fmt.Errorf("temp file: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(content); err != nil {
		f.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	out, err := e.runner.Run(ctx, "pdftotext", "-f", "1", "-l", "1", f.Name(), "-")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func fallbackLabel(exam domain.Exam) string {
	return fmt.Sprintf("%s - Unknown diet", exam.Code)
}
