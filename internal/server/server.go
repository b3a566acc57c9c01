// ABOUTME: Server assembly - store, auth core, HTTP listener, session sweeper
// ABOUTME: Refuses to start serving if the persistence schema cannot be initialized

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/clubkinawa/lab-auth/internal/api"
	"github.com/clubkinawa/lab-auth/internal/auth"
	"github.com/clubkinawa/lab-auth/internal/config"
	"github.com/clubkinawa/lab-auth/internal/store"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// Server wires the store, auth core, and HTTP API together.
type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *store.SQLiteStore
	sessions   *auth.SessionManager
	httpServer *http.Server
}

// New creates a server from configuration. Failure to initialize the
// store (including its schema) is fatal: the process must not serve
// authentication traffic against an unready database.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}

	sessions := auth.NewSessionManager(st, st, cfg.Auth.SessionDuration)
	limiter := auth.NewSlidingWindowLimiter(cfg.Auth.RateLimitAttempts, cfg.Auth.RateLimitWindow)
	handler := api.New(st, st, sessions, limiter)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	return &Server{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		sessions: sessions,
		httpServer: &http.Server{
			Addr:    cfg.Server.HTTPAddr,
			Handler: mux,
		},
	}, nil
}

// Run serves HTTP until the context is canceled, then shuts down
// gracefully and closes the store.
func (s *Server) Run(ctx context.Context) error {
	sweepCtx, cancelSweep := context.WithCancel(ctx)
	defer cancelSweep()
	go s.runSweeper(sweepCtx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.httpServer.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = s.store.Close()
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("http shutdown", "error", err)
	}

	if err := s.store.Close(); err != nil {
		return fmt.Errorf("closing store: %w", err)
	}
	return nil
}

// runSweeper purges expired sessions on a fixed interval until the
// context is canceled. Purging races safely with validation, so the
// interval is a housekeeping choice, not a correctness one.
func (s *Server) runSweeper(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Auth.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.sessions.PurgeExpired(ctx); err != nil {
				s.logger.Warn("session sweep failed", "error", err)
			}
		}
	}
}
