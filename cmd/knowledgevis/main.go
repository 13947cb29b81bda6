// Command knowledgevis serves the session API and runs one-shot queries
// against a fill-in-the-blank prediction backend.
package main

import (
	"context"
	"os"

	"github.com/AdamCoscia/KnowledgeVIS/internal/interfaces/cli"
)

// Set via -ldflags at build time.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate

	// Execute reports the error itself.
	if err := cli.Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}
