package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/siherrmann/tmsrag/model"
)

// Server is the HTTP server of the document service.
type Server struct {
	server *http.Server
	config model.ServerConfig
	logger *slog.Logger
}

// NewServer wires the routes and middleware around service.
func NewServer(service Service, config *model.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	RegisterRoutes(mux, NewHandler(service, config.Upload.MaxBytes, logger))

	return &Server{
		server: &http.Server{
			Addr:         config.Server.Addr(),
			Handler:      withRequestID(withLogging(logger, withRecover(logger, mux))),
			ReadTimeout:  config.Server.ReadTimeout,
			WriteTimeout: config.Server.WriteTimeout,
		},
		config: config.Server,
		logger: logger,
	}
}

// Handler returns the root handler including middleware.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		shutdownErr <- s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("Starting server", slog.String("addr", s.server.Addr))

	err := s.server.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdownErr
	s.logger.Info("Server stopped")
	return err
}
