package driven

import "context"

// CommandRunner executes an external command and returns its stdout.
// Used for PDF text extraction via pdftotext.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}
