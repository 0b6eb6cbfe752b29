// Command shtocker reconciles the university exam paper archive with
// the Better Informatics file collection.
package main

import (
	"fmt"
	"os"

	"github.com/betterinformatics/shtocker/internal/adapters/driving/cli"
)

// version is overridden at build time via -ldflags.
var version = "dev"

func main() {
	if err := cli.Execute(version); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
