package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"gemstore/internal/app"
	"gemstore/internal/config"
	"gemstore/internal/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ln, err := net.Listen("tcp", cfg.AppPort)
	if err != nil {
		logger.Fatalf("Failed to listen on %s: %v", cfg.AppPort, err)
	}

	// Graceful shutdown handling
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, ln, cfg, logger); err != nil {
		logger.Fatalf("Server failed: %v", err)
	}
	logger.Info("Server gracefully stopped")
}

// serve runs the storefront on ln until ctx is cancelled, then drains
// in-flight requests and releases every resource.
func serve(ctx context.Context, ln net.Listener, cfg *config.Config, logger *logrus.Logger) error {
	server, err := app.New(cfg, logger)
	if err != nil {
		ln.Close()
		return err
	}
	defer func() {
		if err := server.Close(); err != nil {
			logger.WithError(err).Warn("Error releasing resources")
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", ln.Addr().String()).Info("Starting server")
		errCh <- server.Fiber.Listener(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	if err := server.Fiber.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.WithError(err).Error("Error during Fiber shutdown")
	}
	return nil
}
