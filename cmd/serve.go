package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alantheprice/appforge/pkg/config"
	"github.com/alantheprice/appforge/pkg/llm"
	"github.com/alantheprice/appforge/pkg/server"
	"github.com/alantheprice/appforge/pkg/store"
)

var (
	servePort     int
	serveProvider string
	serveModel    string
	serveToken    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server with the SSE generation endpoint",
	Long: `Serve exposes generation over HTTP: POST /api/generate streams run
progress as server-sent events, /api/projects/{id}/files lists persisted
artifacts, /ws mirrors events over a websocket and /health reports status.

The bearer token for /api/generate comes from --auth-token or the
APPFORGE_AUTH_TOKEN environment variable; with neither set the endpoint
is open.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "port to listen on (default from config)")
	serveCmd.Flags().StringVar(&serveProvider, "provider", "", "model provider (openai, deepinfra, ollama)")
	serveCmd.Flags().StringVar(&serveModel, "model", "", "override the generation model")
	serveCmd.Flags().StringVar(&serveToken, "auth-token", "", "bearer token required on generation requests")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(".")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if servePort > 0 {
		cfg.ServerPort = servePort
	}
	cfg.AuthToken = serveToken
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("APPFORGE_AUTH_TOKEN")
	}

	provider, err := llm.DetermineProvider(serveProvider)
	if err != nil {
		return err
	}
	model := serveModel
	if model == "" {
		model = modelFor(provider, cfg)
	}
	client, err := llm.NewUnifiedClient(provider, model)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.New(cfg, client, store.New()).Start(ctx)
}
