package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/mkalyango/faqbot/internal/embedder"
	"github.com/mkalyango/faqbot/internal/logging"
	"github.com/mkalyango/faqbot/internal/rag"
	"github.com/mkalyango/faqbot/internal/server"
	"github.com/mkalyango/faqbot/internal/store"
	"github.com/mkalyango/faqbot/internal/tracing"
)

// NewServeCmd constructs the `faqbot serve` command, which starts the HTTP
// API server for the FAQ answer pipeline.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the faqbot HTTP API server",
		Long: `Start the faqbot HTTP API server on localhost.

The server exposes the chat endpoint (POST /api/chat), conversation history
and feedback endpoints backed by SQLite, health and readiness probes, and
Prometheus metrics on /metrics.

Examples:
  faqbot serve
  faqbot serve --port 9090
  SEARCH_BACKEND=qdrant faqbot serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting",
				slog.String("search_backend", getEnvOrDefault("SEARCH_BACKEND", "elasticsearch")))

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			if err := embedder.Validate(log); err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			client, closeClient, err := buildSearchClient()
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer closeClient()

			pipeline, err := buildPipeline(ctx, client)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			defaultStrategy, err := rag.ParseStrategy(getEnvOrDefault("DEFAULT_SEARCH_TYPE", string(rag.StrategyHybrid)))
			if err != nil {
				return fmt.Errorf("serve: DEFAULT_SEARCH_TYPE: %w", err)
			}
			if !pipeline.Supports(defaultStrategy) {
				return fmt.Errorf("serve: search backend does not support the default %q strategy", defaultStrategy)
			}

			// Open the conversation store. FAQBOT_DB overrides the default
			// path (~/.faqbot/faqbot.db). Set to "disabled" to run without
			// persistence.
			var conversationStore *store.SQLiteStore
			dbPath := os.Getenv("FAQBOT_DB")
			if dbPath != "disabled" {
				if dbPath == "" {
					dbPath, err = store.DefaultDBPath()
					if err != nil {
						log.Warn("store: could not resolve default DB path, disabling persistence", slog.Any("error", err))
					}
				}
				if dbPath != "" {
					st, stErr := store.Open(dbPath)
					if stErr != nil {
						log.Warn("store: failed to open, disabling persistence", slog.Any("error", stErr))
					} else {
						conversationStore = st
						defer func() { _ = st.Close() }()
						log.Info("store: opened", slog.String("path", dbPath))
					}
				}
			} else {
				log.Info("store: disabled via FAQBOT_DB=disabled")
			}

			pingers := []server.Pinger{
				&server.NamedPinger{Label: getEnvOrDefault("SEARCH_BACKEND", "elasticsearch"), PingFunc: client.Ping},
			}
			if conversationStore != nil {
				pingers = append(pingers, &server.NamedPinger{Label: "sqlite", PingFunc: conversationStore.Ping})
			}

			if !cmd.Flags().Changed("host") {
				host = getEnvOrDefault("FAQBOT_HOST", host)
			}
			if !cmd.Flags().Changed("port") {
				port = getEnvInt("FAQBOT_PORT", port)
			}

			srv, err := server.New(pipeline, conversationStore, &server.Config{
				Host:            host,
				Port:            port,
				Logger:          log,
				Pingers:         pingers,
				APIKey:          os.Getenv("FAQBOT_API_KEY"),
				DefaultModel:    getEnvOrDefault("DEFAULT_MODEL", "openai/gpt-3.5-turbo"),
				DefaultStrategy: defaultStrategy,
				Index:           getEnvOrDefault("INDEX_NAME", defaultIndex),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}
