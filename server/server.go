package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

type Server struct {
	server      *http.Server
	logger      *slog.Logger
	gracePeriod time.Duration
	errs        chan error
}

func NewServer(handler http.Handler, port string, logger *slog.Logger) *Server {
	return &Server{
		server: &http.Server{
			Addr:              net.JoinHostPort("", port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger:      logger,
		gracePeriod: 5 * time.Second,
		errs:        make(chan error, 1),
	}
}

// Start binds the listener synchronously so a busy port is reported to the
// caller, then serves in the background.
func (srv *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", srv.server.Addr)
	if err != nil {
		return err
	}
	srv.Serve(listener)
	return nil
}

func (srv *Server) Serve(listener net.Listener) {
	srv.logger.Info("Server listening", slog.String("addr", listener.Addr().String()))
	go func() {
		if err := srv.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srv.logger.Error("Server stopped unexpectedly", slog.Any("error", err))
			srv.errs <- err
		}
		close(srv.errs)
	}()
}

// Wait blocks until ctx is cancelled or the server fails, then shuts down.
func (srv *Server) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return srv.Stop()
	case err, ok := <-srv.errs:
		if ok {
			return err
		}
		return nil
	}
}

func (srv *Server) Stop() error {
	srv.logger.Info("Shutting down server", slog.Duration("grace_period", srv.gracePeriod))
	ctx, cancel := context.WithTimeout(context.Background(), srv.gracePeriod)
	defer cancel()
	if err := srv.server.Shutdown(ctx); err != nil {
		srv.logger.Error("Failed to shut down the server", slog.Any("error", err))
		return err
	}
	srv.logger.Info("Server closed gracefully")
	return nil
}
