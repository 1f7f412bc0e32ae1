package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mjansen/bijleslab/internal/config"
	"github.com/mjansen/bijleslab/internal/stubserver"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a local practice backend with canned fixtures",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fixtures, err := stubserver.LoadFixtures(cfg.Serve.FixturesPath)
	if err != nil {
		return err
	}

	backend := stubserver.New(fixtures, slog.Default(), cfg.Serve.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Serve.Port,
		Handler:      backend.Routes(cfg.APIPrefix),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Practice backend listening", "addr", srv.Addr, "prefix", cfg.APIPrefix)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	stop()

	slog.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		return err
	}
	slog.Info("Server stopped")
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
