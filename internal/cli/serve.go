package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/phrazzld/scry-engine/internal/api"
	"github.com/phrazzld/scry-engine/internal/platform/token"
	"github.com/spf13/cobra"
)

// ServeCmd returns the command that runs the HTTP API.
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			defer app.cleanup()

			port, _ := cmd.Flags().GetInt("port")
			if port == 0 {
				port = app.config.Server.Port
			}

			tokens, err := token.NewService(app.config.Auth)
			if err != nil {
				return fmt.Errorf("failed to initialize token service: %w", err)
			}

			router := api.NewRouter(api.RouterDeps{
				Cards:    app.cards,
				Sessions: app.sessions,
				Stats:    app.stats,
				Tokens:   tokens,
				Logger:   app.logger,
				Now:      app.now,
			})

			server := &http.Server{
				Addr:              fmt.Sprintf(":%d", port),
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s listening on %s\n",
				color.New(color.FgGreen).Sprint("scry"), server.Addr)
			return runServer(ctx, server, app.logger, app.config.Server.ShutdownTimeout)
		},
	}
	cmd.Flags().Int("port", 0, "port to listen on (overrides server.port)")
	return cmd
}

// runServer serves until ctx is cancelled, then shuts down gracefully
// within shutdownTimeout.
func runServer(ctx context.Context, server *http.Server, logger *slog.Logger, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			logger.Error("server failed", "error", err)
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logger.Info("server shutdown completed")
	return nil
}
