// Package server exposes the agent and the file tools over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/felixgeelhaar/fortify/ratelimit"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/petasbytes/fsagent/internal/dispatch"
	"github.com/petasbytes/fsagent/internal/logging"
	"github.com/petasbytes/fsagent/internal/runner"
)

// Agent answers a natural-language instruction. *runner.Runner satisfies it.
type Agent interface {
	Run(ctx context.Context, instruction string) (runner.Answer, error)
}

// Config tunes the HTTP surface.
type Config struct {
	// RateLimit is the number of /agent requests per second per client.
	RateLimit int
	Version   string
}

// Server routes HTTP requests to the agent and the dispatcher.
type Server struct {
	agent      Agent
	dispatcher *dispatch.Dispatcher
	limiter    ratelimit.RateLimiter
	version    string
}

// New builds a Server. agent may be nil, in which case /agent answers 503
// while the direct tool endpoints keep working.
func New(agent Agent, d *dispatch.Dispatcher, cfg Config) *Server {
	rate := cfg.RateLimit
	if rate <= 0 {
		rate = 10
	}
	return &Server{
		agent:      agent,
		dispatcher: d,
		limiter: ratelimit.New(&ratelimit.Config{
			Rate:  rate,
			Burst: rate,
		}),
		version: cfg.Version,
	}
}

// Routes returns the router with all middleware installed.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestContext)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/favicon.ico", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.With(s.rateLimit).Post("/agent", s.handleAgent)

	r.Route("/tools", func(r chi.Router) {
		r.Get("/", s.handleListTools)
		r.Post("/{name}", s.handleTool)
	})

	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then drains in-flight
// requests for up to ten seconds.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().
			Add(logging.Component("server")).
			Add(logging.Str("addr", addr)).
			Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		logging.Info().Add(logging.Component("server")).Msg("stopped")
		return nil
	}
}
