// Package server defines the application container that composes the app's
// main dependencies: configuration, logger, and the data-access manager. It
// owns the HTTP server lifecycle including graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/sealevelil48/sealevel-dashboard/internal/config"
	"github.com/sealevelil48/sealevel-dashboard/internal/database"
)

// Server holds the shared resources passed to handlers. It is constructed
// once at process start; handlers receive it by reference.
type Server struct {
	Config *config.Config
	Logger *zerolog.Logger

	// DB is the data-access manager: pool, cache, executor, bulk writer,
	// metrics. Its construction performs the retry/fallback startup sequence.
	DB *database.Manager

	httpServer *http.Server
}

// New constructs the Server and initializes the data layer. Database
// initialization retries internally and may come up in degraded mode; only
// an unreachable store with fail-fatal policy (or a failed fallback) aborts
// startup.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*Server, error) {
	db, err := database.New(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return &Server{
		Config: cfg,
		Logger: logger,
		DB:     db,
	}, nil
}

// SetupHTTPServer configures the internal net/http server with the given
// handler (the Echo router).
func (s *Server) SetupHTTPServer(handler http.Handler) {
	s.httpServer = &http.Server{
		Addr:         ":" + s.Config.Server.Port,
		Handler:      handler,
		ReadTimeout:  time.Duration(s.Config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.Config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.Config.Server.IdleTimeout) * time.Second,
	}
}

// Start runs the HTTP server. It blocks until the server stops.
func (s *Server) Start() error {
	if s.httpServer == nil {
		return errors.New("HTTP server not initialized")
	}

	s.Logger.Info().
		Str("port", s.Config.Server.Port).
		Str("env", s.Config.Primary.Env).
		Bool("degraded", s.DB.Degraded()).
		Msg("starting server")

	return s.httpServer.ListenAndServe()
}

// Shutdown stops the HTTP server gracefully and closes the data layer.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.DB.Close()
	return nil
}
