// Package exec runs external commands for the pieces of the pipeline
// that shell out, currently just pdftotext.
package exec

import (
	"bytes"
	"context"
	"fmt"
	osexec "os/exec"

	"github.com/betterinformatics/shtocker/internal/core/ports/driven"
)

// Ensure Runner implements the interface.
var _ driven.CommandRunner = (Runner{})

// Runner executes commands on the host.
type Runner struct{}

// Run executes a command and returns its stdout. Stderr is folded into
// the error so pdftotext diagnostics surface in failure logs.
func (Runner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := osexec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("%s: %w: %s", name, err, stderr.String())
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return stdout.Bytes(), nil
}
