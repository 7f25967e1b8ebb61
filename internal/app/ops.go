package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	healthTimeout   = 2 * time.Second
	shutdownTimeout = 5 * time.Second
)

// OpsHandler routes the metrics endpoint and /healthz. /healthz answers 503
// while a configured backing service is unreachable.
func (a *App) OpsHandler() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		if err := a.Ping(ctx); err != nil {
			a.Logger.Warn("health check failed", "error", err)
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle(a.Config.Metrics.Path, promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{}))

	return router
}

// ServeOps serves OpsHandler on listener until ctx is done, then shuts the
// server down gracefully.
func (a *App) ServeOps(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:           a.OpsHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.Serve(listener)
	}()

	a.Logger.Info("ops server started", "addr", listener.Addr().String(), "metrics_path", a.Config.Metrics.Path)

	select {
	case err := <-serverErrCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-serverErrCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	a.Logger.Info("ops server stopped")
	return nil
}
