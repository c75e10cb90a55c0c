package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/facebookgo/clock"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/celerix-dev/celerix-console/internal/api"
	"github.com/celerix-dev/celerix-console/internal/config"
	"github.com/celerix-dev/celerix-console/internal/logging"
	"github.com/celerix-dev/celerix-console/internal/metrics"
	"github.com/celerix-dev/celerix-console/internal/notify"
	"github.com/celerix-dev/celerix-console/internal/schedule"
	"github.com/celerix-dev/celerix-console/internal/server"
	"github.com/celerix-dev/celerix-console/internal/session"
	"github.com/celerix-dev/celerix-console/internal/vault"
	"github.com/celerix-dev/celerix-console/pkg/sdk"
)

func main() {
	configPath := flag.String("config", os.Getenv("CELERIX_CONFIG"), "path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "celerix-consoled: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Log, os.Stderr, "celerix-consoled")
	slog.SetDefault(logger)
	logger.Info("starting console daemon", slog.String("http_port", cfg.Server.HTTPPort))

	if cfg.Admin.Password == "" {
		logger.Warn("no admin password configured, logins are disabled (set CELERIX_ADMIN_PASSWORD)")
	}

	// 1. Open the collection store
	store, err := sdk.Open(sdk.Options{
		Addr:       cfg.Store.RemoteAddr,
		DisableTLS: cfg.Server.DisableTLS,
		Driver:     cfg.Store.Driver,
		DataDir:    cfg.Store.DataDir,
		SQLitePath: cfg.Store.SQLitePath,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	names, _ := store.Collections()
	logger.Info("store opened", slog.String("mode", store.Mode), slog.Int("collections", len(names)))

	// 2. Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// 3. Sessions
	var key []byte
	if cfg.Admin.TokenKey != "" {
		if key, err = vault.ParseKey(cfg.Admin.TokenKey); err != nil {
			return fmt.Errorf("admin.token_key: %w", err)
		}
	}
	mgr, err := session.NewManager(store, schedule.New(clock.New()), session.Settings{
		Username:         cfg.Admin.Username,
		Password:         cfg.Admin.Password,
		TTL:              cfg.Admin.SessionTTL,
		Key:              key,
		DefaultTTL:       cfg.Notifications.DefaultTTL,
		DetectorTTL:      cfg.Notifications.DetectorTTL,
		DetectorInterval: cfg.Detector.Interval,
		CodePrefix:       cfg.Tracking.CodePrefix,
	},
		session.WithChime(notify.LogChime{Logger: logger}),
		session.WithLogger(logger),
		session.WithMetrics(m))
	if err != nil {
		return fmt.Errorf("session manager: %w", err)
	}

	// 4. TCP store protocol, for storefront processes sharing this store
	var router *server.Router
	if cfg.Server.StorePort != "" && store.Mode != "remote" {
		router = server.NewRouter(store)
		router.SetLogger(logger)
		if !cfg.Server.DisableTLS {
			cert, err := vault.GenerateSelfSignedCert()
			if err != nil {
				return fmt.Errorf("generate TLS certificate: %w", err)
			}
			router.SetCertificate(cert)
		} else {
			logger.Warn("store protocol TLS disabled")
		}
		go func() {
			if err := router.Listen(cfg.Server.StorePort); err != nil {
				logger.Error("store listener failed", slog.String("error", err.Error()))
			}
		}()
	}

	// 5. HTTP API
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), api.CORS())
	h := &api.Handler{Sessions: mgr, Gatherer: reg, Logger: logger}
	h.Routes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("console API listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 6. Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, finalizing writes")
	case runErr = <-errCh:
		logger.Error("HTTP server failed", slog.String("error", runErr.Error()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown", slog.String("error", err.Error()))
	}
	if router != nil {
		router.Stop()
	}
	mgr.Close()
	if err := store.Close(); err != nil {
		logger.Error("store close", slog.String("error", err.Error()))
	}
	logger.Info("persistence complete, exiting")
	return runErr
}
