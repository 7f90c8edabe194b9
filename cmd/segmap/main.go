package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"

	"segmap/internal/assetcache"
	"segmap/internal/config"
	"segmap/internal/handler"
	"segmap/internal/hub"
	"segmap/internal/metrics"
	"segmap/internal/middleware"
	"segmap/internal/orchestrator"
	"segmap/pkg/segmentapi"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var logHandler slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if strings.EqualFold(cfg.LogFormat, "text") {
		logHandler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	logger.Info("starting segmap server",
		"log_level", cfg.LogLevel.String(),
		"http_addr", cfg.HTTPAddr,
		"backend_url", cfg.BackendURL,
		"cache_backend", cfg.CacheBackend,
		"query_empty_segments", cfg.QueryEmptySegments,
	)

	store, err := newAssetStore(cfg, logger)
	if err != nil {
		logger.Error("failed to open asset store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	met := metrics.New()
	assets := assetcache.New(cfg.AssetCacheName, assetcache.DefaultManifest, os.DirFS(cfg.AssetDir), store, cfg.CacheTTL, met, logger)
	wsHub := hub.NewHub(met, logger)
	apiClient := segmentapi.New(cfg.BackendURL, cfg.FetchTimeout, logger)
	limiter := middleware.NewSessionLimiter(cfg.SessionLimitPerWindow, cfg.SessionLimitWindow, cfg.SessionLimitWhitelist, logger)

	wsHandler := handler.NewWSHandler(wsHub, apiClient, orchestrator.Options{
		QueryEmptySegments: cfg.QueryEmptySegments,
		Metrics:            met,
	}, cfg.WSSendBuffer, logger)
	sessionHandler := handler.NewSessionHandler(wsHub)
	healthHandler := handler.NewHealthHandler(assets, wsHub)

	r := chi.NewRouter()

	// Websocket upgrades need the raw ResponseWriter, so they bypass the
	// logging and gzip wrappers.
	r.With(limiter.Middleware).Get("/v1/ws", wsHandler.ServeWS)

	r.Group(func(r chi.Router) {
		r.Use(handler.RequestLogger(logger))
		r.Use(handler.CORSMiddleware)
		r.Use(handler.GzipMiddleware)

		r.Get("/v1/sessions/{id}", sessionHandler.GetSession)
		r.Get("/healthz", healthHandler.Healthz)
		r.Get("/readyz", healthHandler.Readyz)
		r.Get("/metrics", met.Handler(func() { met.SetActiveSessions(wsHub.Count()) }).ServeHTTP)

		r.Handle("/*", assets.Handler(http.FileServer(http.FS(os.DirFS(cfg.AssetDir)))))
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go wsHub.Run(ctx)
	go limiter.Run(ctx)

	go func() {
		if err := assets.Install(ctx); err != nil {
			logger.Error("asset cache install failed", "error", err)
		}
	}()

	go func() {
		logger.Info("starting HTTP server", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case <-ctx.Done():
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}

func newAssetStore(cfg *config.Config, logger *slog.Logger) (assetcache.Store, error) {
	switch cfg.CacheBackend {
	case config.CacheBackendRedis:
		return assetcache.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
	case config.CacheBackendValkey:
		return assetcache.NewValkeyStore(cfg.ValkeyAddr)
	default:
		return assetcache.NewMemoryStore(), nil
	}
}
