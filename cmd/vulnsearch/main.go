// ABOUTME: Entry point for the VulnSearch vulnerability catalog search service.
// ABOUTME: Loads configuration, preloads the record store, and serves the search tools over HTTP.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jfeddern/VulnSearch/internal/cache"
	"github.com/jfeddern/VulnSearch/internal/config"
	"github.com/jfeddern/VulnSearch/internal/metrics"
	"github.com/jfeddern/VulnSearch/internal/server"
	"github.com/jfeddern/VulnSearch/internal/store"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load(os.Args[1:], os.Getenv)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	logger := newLogger(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown gracefully
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Received shutdown signal")
		cancel()
	}()

	service, err := NewService(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Server cannot start without the vulnerability data")
	}

	if err := service.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to start server")
	}
}

// newLogger sets up structured logging; level has already been validated
func newLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)
	return logger
}

type Service struct {
	config  *config.Config
	logger  *logrus.Logger
	handler http.Handler
}

// NewService preloads the record store and wires the HTTP handlers around it.
// It fails when the store cannot be built, so the service never serves without data.
func NewService(cfg *config.Config, logger *logrus.Logger) (*Service, error) {
	logger.WithFields(logrus.Fields{
		"data_path":  cfg.DataPath,
		"addr":       cfg.Addr(),
		"cache_size": cfg.CacheSize,
		"cache_ttl":  cfg.CacheTTL,
	}).Info("Initializing VulnSearch")

	records, err := store.GetInstance(cfg.DataPath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load vulnerability data: %w", err)
	}

	logger.WithField("records", records.Len()).Info("Vulnerability data loaded into memory")

	source := func() (server.RecordSource, error) {
		s, err := store.GetInstance(cfg.DataPath, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	}

	dataset := metrics.DatasetProviderFunc(func() (int, time.Time, bool) {
		s := store.Current()
		if s == nil {
			return 0, time.Time{}, false
		}
		return s.Len(), s.LoadedAt(), true
	})

	searchCache := cache.NewSearchCache(cfg.CacheSize, cfg.CacheTTL, logger)
	metricsHandler := metrics.NewMetricsHandler(dataset, logger)

	return &Service{
		config:  cfg,
		logger:  logger,
		handler: server.NewServer(source, searchCache, metricsHandler, logger),
	}, nil
}

func (s *Service) Start(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	s.logger.WithFields(logrus.Fields{
		"addr":  s.config.Addr(),
		"tools": []string{server.ToolSearch, server.ToolDetails},
	}).Info("Starting HTTP server")

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}

	return nil
}
