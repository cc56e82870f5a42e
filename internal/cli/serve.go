package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelf/internal/api"
	"github.com/mesh-intelligence/shelf/internal/metrics"
	"github.com/mesh-intelligence/shelf/internal/shelf"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve collections over HTTP",
		Long: `Serve exposes every declared kind under /api/<Collection>:

  GET    /api/<Collection>?<query>   query
  HEAD   /api/<Collection>           current ETag
  POST   /api/<Collection>           add
  GET    /api/<Collection>/<id>      get
  PUT    /api/<Collection>/<id>      update
  DELETE /api/<Collection>/<id>      remove

Prometheus metrics are served on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			if listen == "" {
				listen = s.listen
			}

			m := metrics.New()
			sh := shelf.New(shelf.WithMetrics(m))
			if err := sh.Attach(s.config); err != nil {
				return fmt.Errorf("attaching shelf: %w", err)
			}
			defer func() {
				if err := sh.Detach(); err != nil {
					slog.Error("detaching shelf", "error", err)
				}
			}()

			srv := &http.Server{
				Addr:              listen,
				Handler:           api.NewServer(sh, api.WithMetrics(m), api.WithMiddlewares(api.LoggingMiddleware)),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, srv)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default: listen from config, 127.0.0.1:8080)")
	return cmd
}

// serve runs srv until ctx is done, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
