// Package admin serves the HTTP side channel of a running MapSync process:
// liveness, a JSON status summary and Prometheus metrics.
//
//	GET /healthz   200 "ok"
//	GET /status    session.Status as JSON
//	GET /metrics   Prometheus exposition of the session collectors
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mapsync-dev/mapsync/pkg/session"
)

// DefaultShutdownTimeout bounds graceful shutdown in Serve.
const DefaultShutdownTimeout = 5 * time.Second

// StatusSource reports the state of a session. *session.Controller
// implements it.
type StatusSource interface {
	Status() session.Status
}

// NewRouter builds the admin routes. A nil metrics leaves /metrics out.
func NewRouter(src StatusSource, metrics *session.Metrics, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(src.Status()); err != nil {
			logger.Warn("admin: encode status", "error", err)
		}
	})

	if reg := metrics.Registry(); reg != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(
			prometheus.Gatherers{reg},
			promhttp.HandlerOpts{ErrorLog: slog.NewLogLogger(logger.Handler(), slog.LevelWarn)},
		))
	}

	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("admin request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start))
		})
	}
}

// Serve listens on addr and serves h until ctx is done, then shuts down
// gracefully. The bound address is sent on ready when it is non-nil.
func Serve(ctx context.Context, addr string, h http.Handler, logger *slog.Logger, ready chan<- net.Addr) error {
	if logger == nil {
		logger = slog.Default()
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("admin listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()
	if ready != nil {
		ready <- ln.Addr()
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			logger.Error("admin shutdown", "error", err)
			return err
		}
		return nil
	}
}
