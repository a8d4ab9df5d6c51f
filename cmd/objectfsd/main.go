// Command objectfsd serves per-user file trees stored in an object store over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	objectfs "github.com/Jumpaku/go-objectfs"
	"github.com/Jumpaku/go-objectfs/httpapi"
	"github.com/Jumpaku/go-objectfs/store/gcsstore"
	"github.com/Jumpaku/go-objectfs/store/instrumented"
	"github.com/Jumpaku/go-objectfs/store/memstore"
	"github.com/Jumpaku/go-objectfs/store/s3store"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}
}

func newLogger(cfg Config) (*logrus.Logger, error) {
	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(level)
	switch cfg.LogFormat {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.LogFormat)
	}
	return logger, nil
}

// newGateway connects the configured backend. The returned close function releases its client.
func newGateway(ctx context.Context, cfg Config) (objectfs.Gateway, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Backend {
	case backendMemory:
		return memstore.New(), noop, nil
	case backendS3:
		store, err := s3store.New(ctx, cfg.S3)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil
	case backendGCS:
		store, err := gcsstore.New(ctx, cfg.GCS)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func newRouter(cfg Config, gateway objectfs.Gateway, logger logrus.FieldLogger) (http.Handler, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	namespace, err := objectfs.NewNamespace(cfg.BasePrefix)
	if err != nil {
		return nil, err
	}
	fs := objectfs.New(
		instrumented.New(gateway, instrumented.NewMetrics(reg)),
		objectfs.WithLogger(logger),
		objectfs.WithNamespace(namespace),
		objectfs.WithConcurrency(cfg.Concurrency),
	)

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.PathPrefix("/api/").Handler(httpapi.NewHandler(fs, httpapi.HeaderUserResolver(cfg.UserHeader), logger))
	return r, nil
}

func run(ctx context.Context, cfg Config, logger *logrus.Logger) error {
	gateway, closeGateway, err := newGateway(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect backend %s: %w", cfg.Backend, err)
	}
	defer func() {
		if err := closeGateway(); err != nil {
			logger.WithError(err).Warn("Failed to close backend")
		}
	}()

	handler, err := newRouter(cfg, gateway, logger)
	if err != nil {
		return err
	}
	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{"listen": cfg.Listen, "backend": cfg.Backend, "bucket": cfg.Bucket}).
			Info("Starting objectfsd")
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced shutdown: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}
