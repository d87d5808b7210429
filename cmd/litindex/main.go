// Command litindex is the entry point for the literature indexing engine.
package main

import (
	"os"

	"github.com/arcadia-bio/litindex/internal/adapters/driving/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
