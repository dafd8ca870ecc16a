package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/modscope/backend/internal/handlers"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the analysis HTTP server",
	Long: `Start the HTTP server exposing collection, load-order, conflict and
FOMOD analysis endpoints under /api.

Examples:
  modscope serve
  MODSCOPE_LISTEN_PORT=9090 modscope serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

const sweepInterval = time.Hour

func runServe(cmd *cobra.Command, args []string) error {
	application, err := initApp()
	if err != nil {
		return err
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sweepLoop(ctx, application)

	api := handlers.NewAPI(application.service, application.client)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", application.cfg.ListenPort),
		Handler: api.Routes(application.cfg.CORSOrigins),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// sweepLoop removes expired cache entries every hour until ctx is done.
func sweepLoop(ctx context.Context, application *app) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := application.store.Sweep(ctx)
			if err != nil {
				log.Printf("Warning: cache sweep: %v", err)
				continue
			}
			if removed > 0 {
				log.Printf("cache sweep removed %d entries", removed)
			}
		}
	}
}
