package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/veritas-go/internal/config"
	"github.com/anime-shed/veritas-go/internal/container"
	"github.com/anime-shed/veritas-go/internal/logger"
)

// sessionIdleTTL is how long an idle session survives without activity
const sessionIdleTTL = 24 * time.Hour

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Configure(cfg.LogLevel, cfg.LogFormat)

	c, err := container.NewContainer(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	// Provider calls may take most of the request timeout, so the write
	// deadline gets some headroom beyond it.
	server := &http.Server{
		Addr:         cfg.ServerAddress(),
		Handler:      c.Handler(),
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"address":  cfg.ServerAddress(),
			"timeout":  cfg.RequestTimeout,
			"provider": c.Provider().Name(),
		}).Info("Starting HTTP server")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	stopEviction := make(chan struct{})
	go evictIdleSessions(c, stopEviction)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	close(stopEviction)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}
	if err := c.Close(); err != nil {
		logger.WithError(err).Warn("Failed to release resources")
	}

	logger.Info("Server exited")
}

func evictIdleSessions(c *container.Container, stop <-chan struct{}) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			n, err := c.EvictIdleSessions(context.Background(), sessionIdleTTL)
			if err != nil {
				logger.WithError(err).Warn("Failed to evict idle sessions")
			}
			if n > 0 {
				logger.WithField("count", n).Info("Evicted idle sessions")
			}
		}
	}
}
