package utils

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultReadTimeout     = 60 * time.Second
	DefaultWriteTimeout    = DefaultReadTimeout
	DefaultShutdownTimeout = 30 * time.Second
)

// Server wraps http.Server with signal-driven graceful shutdown. Hooks
// registered with OnShutdown run after the listener stops, in reverse order
// of registration, so background workers drain after the last request.
type Server struct {
	*http.Server

	log             *zap.Logger
	shutdownTimeout time.Duration
	hooks           []func(context.Context) error
}

// NewServer creates a Server with timeouts and handler.
func NewServer(addr string, handler http.Handler, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		Server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       DefaultReadTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      DefaultWriteTimeout,
		},
		log:             log,
		shutdownTimeout: DefaultShutdownTimeout,
	}
}

// OnShutdown registers fn to run during graceful shutdown.
func (srv *Server) OnShutdown(fn func(context.Context) error) {
	srv.hooks = append(srv.hooks, fn)
}

// Run listens on srv.Addr and blocks until ctx is cancelled, SIGINT/SIGTERM
// arrives or the listener fails. It then shuts down gracefully.
func (srv *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}
	return srv.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (srv *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Server.Serve(ln)
	}()
	srv.log.Info("http server listening", zap.String("addr", ln.Addr().String()))

	var runErr error
	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = err
		}
	case <-ctx.Done():
		srv.log.Info("shutdown signal received, draining HTTP server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), srv.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		srv.log.Error("http server shutdown error", zap.Error(err))
	} else {
		srv.log.Info("http server shutdown success")
	}

	for i := len(srv.hooks) - 1; i >= 0; i-- {
		if err := srv.hooks[i](shutdownCtx); err != nil {
			srv.log.Warn("shutdown hook failed", zap.Error(err))
		}
	}
	return runErr
}
