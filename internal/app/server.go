package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

type namedServer struct {
	name string
	srv  *http.Server
}

func (a *App) servers() []namedServer {
	return []namedServer{
		{name: "api", srv: a.httpServer},
		{name: "stream", srv: a.sseServer},
	}
}

// Start runs the API and notification stream listeners. The returned channel
// closes once a termination signal arrives.
func (a *App) Start() <-chan struct{} {
	done := make(chan struct{})

	for _, s := range a.servers() {
		go listen(s)
	}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
		defer signal.Stop(sig)

		received := <-sig
		slog.Info("coursepulse received shutdown signal", "signal", received.String())

		if a.cancel != nil {
			a.cancel()
		}
		close(done)
	}()

	return done
}

func listen(s namedServer) {
	slog.Info("server listening", "server", s.name, "address", s.srv.Addr)

	if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped unexpectedly", "server", s.name, "error", err)
		os.Exit(1)
	}
}

// Stop halts the deadline sweep, drains in-flight requests and delivery
// workers, then releases infrastructure in registration order.
func (a *App) Stop(ctx context.Context) {
	if a.cancel != nil {
		a.cancel()
	}

	if a.stopSweep != nil {
		a.stopSweep()
	}

	for _, s := range a.servers() {
		if err := s.srv.Shutdown(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to shutdown server", "server", s.name, "error", err)
		}
	}

	if err := a.goroutine.Wait(); err != nil {
		slog.ErrorContext(ctx, "background worker exited with error", "error", err)
	}
	slog.InfoContext(ctx, "background workers drained")

	for _, closer := range a.closers {
		if err := closer.fn(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to close resource", "name", closer.name, "error", err)
		}
	}
}
