// Command tinyrag is the CLI for the tiny-agents retrieval pipeline:
// build a database from raw documents, answer one query, or chat through
// the ReAct agent loop.
package main

import (
	"os"

	"github.com/soberm258/tiny-agents/cmd/tinyrag/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
