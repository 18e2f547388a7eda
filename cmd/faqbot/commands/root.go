// Package commands defines all Cobra CLI commands for the faqbot binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/mkalyango/faqbot/internal/audit"
	"github.com/mkalyango/faqbot/internal/config"
	"github.com/mkalyango/faqbot/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "faqbot",
		Short: "faqbot — course FAQ assistant powered by LLMs",
		Long: `faqbot answers course FAQ questions with retrieval-augmented generation.

It searches an indexed FAQ corpus (Elasticsearch or Qdrant), builds a
grounded prompt from the best-matching entries, generates an answer with
an LLM, and judges the answer's relevance with a second LLM call.

Model backends are selected per request via the model identifier
(e.g. "openai/gpt-4o", "ollama/phi3"); credentials come from environment
variables or a YAML config file (~/.faqbot/config.yaml).
See 'faqbot --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.faqbot/config.yaml)")

	root.AddCommand(
		NewAskCmd(),
		NewServeCmd(),
		NewIngestCmd(),
		NewVersionCmd(),
	)

	return root
}
