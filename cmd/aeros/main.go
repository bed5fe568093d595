// Command aeros is the AeroStream SOP support bot CLI: ingest assembly
// manuals and Slack history, answer questions over the knowledge base, run
// the Slack bot and HTTP server, and evaluate retrieval quality.
package main

import (
	"fmt"
	"os"

	"github.com/aerostream/aeros/cmd/aeros/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
