package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"signbridge/internal/logging"
	"signbridge/internal/overlay"
)

// serveOverlay exposes hub at ws://addr/ws until the returned stop is called.
func serveOverlay(addr string, hub *overlay.Hub, logger *slog.Logger) (func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("overlay listen: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("overlay server error", logging.Error(err))
		}
	}()
	logger.Info("overlay feed listening", logging.String("address", "ws://"+listener.Addr().String()+"/ws"))

	return func() {
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}, nil
}
