// Command faqbot is the entry point for the FAQ answering service.
// It provides a CLI interface (via Cobra) and an HTTP API server that
// answers course FAQ questions with retrieval-augmented generation.
package main

import (
	"fmt"
	"os"

	"github.com/mkalyango/faqbot/cmd/faqbot/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
