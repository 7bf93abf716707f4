package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/sprite-ai/repolens/internal/api"
	"github.com/sprite-ai/repolens/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve [path]",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP server that reviews the repository at path on request.

Endpoints:
  GET  /health       Health check
  GET  /api/state    Current session state
  POST /api/review   Start a review run
  POST /api/cancel   Cancel the run in flight
  GET  /api/models   Models installed on the Ollama host
  GET  /api/ws       WebSocket streaming state snapshots`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("addr", "a", "127.0.0.1", "address to listen on")
	serveCmd.Flags().IntP("port", "p", 6142, "port to listen on")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	port, _ := cmd.Flags().GetInt("port")

	root, err := resolveRoot(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	client := newClient(cfg)
	pipeline, err := newPipeline(cfg, client)
	if err != nil {
		return err
	}

	listen := fmt.Sprintf("%s:%d", addr, port)
	session := app.NewSession(cfg.Model, cfg.ReviewMode())
	srv := api.New(listen, session, pipeline, client, root)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
