package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edgy2009/adboard/internal/analytics"
	"github.com/edgy2009/adboard/internal/api"
	"github.com/edgy2009/adboard/internal/board"
	"github.com/edgy2009/adboard/internal/config"
	"github.com/edgy2009/adboard/internal/db"
	"github.com/edgy2009/adboard/internal/engine"
	"github.com/edgy2009/adboard/internal/history"
	"github.com/edgy2009/adboard/internal/ingest"
	"github.com/edgy2009/adboard/internal/middleware"
	"github.com/edgy2009/adboard/internal/models"
	"github.com/edgy2009/adboard/internal/observability"
	"github.com/edgy2009/adboard/internal/ratelimit"
	"github.com/edgy2009/adboard/internal/weather"
	"github.com/edgy2009/adboard/internal/ws"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, err := observability.InitLoggerWithService(cfg.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to sync logger: %v\n", err)
		}
	}()

	if err := run(logger, cfg); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *zap.Logger, cfg config.Config) error {

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdownTracing, err := observability.InitTracing(ctx, logger, cfg.ServiceName, cfg.TempoEndpoint, cfg.TracingSampleRate)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer shutdownTracing()
	}

	metricsRegistry := observability.NewPrometheusRegistry()

	// Catalog sources in precedence order: Postgres, JSON file, embedded
	// defaults. Boards without a database still serve the stock catalog.
	catalog := models.NewInMemoryCatalog()
	var pg *db.Postgres
	switch {
	case cfg.PostgresDSN != "":
		var err error
		pg, err = db.InitPostgres(cfg.PostgresDSN, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)
		if err != nil {
			return fmt.Errorf("failed to connect postgres: %w", err)
		}
		defer pg.Close()
		if _, err := db.LoadCatalog(pg, catalog); err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
	case cfg.CatalogPath != "":
		if _, err := db.LoadCatalogFile(cfg.CatalogPath, catalog); err != nil {
			return fmt.Errorf("load catalog file: %w", err)
		}
	default:
		if err := catalog.SetAds(models.DefaultAds()); err != nil {
			return fmt.Errorf("install default catalog: %w", err)
		}
		logger.Info("Using embedded default catalog", zap.Int("ads", catalog.Len()))
	}

	var store *db.RedisStore
	if cfg.RedisAddr != "" {
		var err error
		store, err = db.InitRedis(cfg.RedisAddr)
		if err != nil {
			return fmt.Errorf("failed to connect redis: %w", err)
		}
		defer store.Close()
	}

	var analyticsSvc *analytics.Analytics
	var chDB *sql.DB
	if cfg.ClickHouseDSN != "" {
		var err error
		analyticsSvc, err = analytics.InitClickHouse(cfg.ClickHouseDSN, metricsRegistry, cfg.CHMaxOpenConns, cfg.CHMaxIdleConns, cfg.CHConnMaxLifetime, cfg.CHConnMaxIdleTime)
		if err != nil {
			return fmt.Errorf("failed to connect clickhouse: %w", err)
		}
		defer analyticsSvc.Close()
		chDB = analyticsSvc.DB
	}

	var hist history.Store
	switch cfg.HistoryBackend {
	case "redis":
		if store == nil {
			return fmt.Errorf("history backend %q requires REDIS_ADDR", cfg.HistoryBackend)
		}
		rs, err := history.NewRedisStore(store, cfg.BoardID, cfg.Decision.HistoryLimit, metricsRegistry)
		if err != nil {
			return fmt.Errorf("init redis history: %w", err)
		}
		hist = rs
	case "file":
		hist = history.NewFileStore(cfg.HistoryPath, cfg.Decision.HistoryLimit, cfg.HistoryLockTTL, logger, metricsRegistry)
	default:
		logger.Warn("Unknown history backend, keeping history in memory only",
			zap.String("backend", cfg.HistoryBackend))
		hist = history.NewMemoryStore(cfg.Decision.HistoryLimit)
	}

	// Sensor feeds come from the shared JSON files unless an MQTT broker is
	// configured, in which case sensors publish straight to the board.
	var envSource ingest.EnvironmentSource
	var audienceSource ingest.AudienceSource
	if cfg.MQTTBrokerURL != "" {
		bridge, err := ingest.NewMQTTBridge(cfg.MQTTBrokerURL, cfg.MQTTClientID, cfg.MQTTTopicPrefix, cfg.BoardID, cfg.FeedMaxAge, logger, metricsRegistry)
		if err != nil {
			return fmt.Errorf("failed to connect mqtt broker: %w", err)
		}
		defer bridge.Close()
		envSource = bridge.EnvironmentSource()
		audienceSource = bridge.AudienceSource()
	} else {
		envSource = ingest.NewFileEnvironmentSource(cfg.EnvFeedPath, cfg.FeedMaxAge, cfg.FeedReadTimeout)
		audienceSource = ingest.NewFileAudienceSource(cfg.AudienceFeedPath, cfg.FeedMaxAge, cfg.FeedReadTimeout)
	}
	reader := ingest.NewReader(envSource, audienceSource, cfg.Thresholds, logger, metricsRegistry)

	eng := engine.New(catalog, hist, analyticsSvc, cfg.Decision, cfg.BoardID, logger, metricsRegistry)

	hub := ws.NewHub(logger, metricsRegistry)
	go func() { _ = hub.Run(ctx) }()

	loop := board.NewLoop(eng, reader, hub, cfg.DisplayInterval, logger)
	go func() { _ = loop.Run(ctx) }()

	var weatherClient *weather.Client
	if cfg.WeatherAPIEnabled && cfg.WeatherAPIKey != "" {
		weatherClient = weather.NewClient(cfg.WeatherAPIURL, cfg.WeatherAPIKey, cfg.WeatherCity, cfg.WeatherTimeout, cfg.WeatherCacheTTL, logger, metricsRegistry)
	}

	limiter := ratelimit.NewClientLimiter(ratelimit.Config{
		Capacity:   cfg.RateLimitCapacity,
		RefillRate: cfg.RateLimitRefillRate,
		Enabled:    cfg.RateLimitEnabled,
	}, metricsRegistry)

	secret := []byte(cfg.TokenSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return fmt.Errorf("generate token secret: %w", err)
		}
		logger.Warn("TOKEN_SECRET not set, using an ephemeral secret; confirm URLs will not survive a restart")
	}

	r := mux.NewRouter()
	srvDeps := api.NewServer(logger, catalog, eng, reader, hist, analyticsSvc, weatherClient, store, pg, chDB, hub, limiter, loop, cfg.DebugTrace, secret, cfg.TokenTTL, metricsRegistry, cfg)

	// Board-facing endpoints: the display GUI pulls its next ad here and
	// confirms the render through the signed URL in the response.
	r.HandleFunc("/api/decision/next", srvDeps.NextDecisionHandler).Methods("GET")
	r.HandleFunc("/api/decision/preview", srvDeps.PreviewDecisionHandler).Methods("GET")
	r.HandleFunc("/display/confirm", srvDeps.ConfirmDisplayHandler).Methods("GET")

	// Dashboard endpoints.
	r.HandleFunc("/api/data", srvDeps.DataHandler).Methods("GET")
	r.HandleFunc("/api/history", srvDeps.HistoryHandler).Methods("GET")
	r.HandleFunc("/api/report", srvDeps.BoardReportHandler).Methods("GET")
	r.HandleFunc("/api/report/export", srvDeps.ReportExportHandler).Methods("GET")
	r.HandleFunc("/ws", srvDeps.WSHandler)

	// Catalog administration.
	r.HandleFunc("/api/ads", srvDeps.ListAds).Methods("GET")
	r.HandleFunc("/api/ads", srvDeps.CreateAd).Methods("POST")
	r.HandleFunc("/api/ads/{id}", srvDeps.UpdateAd).Methods("PUT")
	r.HandleFunc("/api/ads/{id}", srvDeps.DeleteAd).Methods("DELETE")
	r.HandleFunc("/api/reload", srvDeps.ReloadHandler).Methods("POST")

	r.HandleFunc("/healthz", srvDeps.HealthHandler).Methods("GET")
	r.HandleFunc("/readyz", srvDeps.ReadyHandler).Methods("GET")

	// Static file server for the dashboard assets
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.Dir("./static"))))

	// metrics endpoint (includes rate limiting metrics)
	r.Handle("/metrics", promhttp.Handler())

	handler := otelhttp.NewHandler(middleware.WithTraceLogger(logger)(r), "adboard")

	addr := ":" + cfg.Port

	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	logger.Info("Ad board running",
		zap.String("addr", addr),
		zap.String("board_id", cfg.BoardID),
		zap.Int("catalog_ads", catalog.Len()))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("listen: %w", err)
		}
	}()

	// Reload on pub/sub notifications from other boards sharing the catalog.
	if store != nil && pg != nil {
		sub := store.SubscribeCatalogUpdates(ctx)
		go func() {
			defer func() { _ = sub.Close() }()
			updates := sub.Channel()
			for {
				select {
				case <-ctx.Done():
					return
				case msg, ok := <-updates:
					if !ok {
						return
					}
					if msg.Payload == cfg.BoardID {
						continue
					}
					logger.Info("catalog update notification", zap.String("from_board", msg.Payload))
					if err := srvDeps.Reload(); err != nil {
						logger.Error("reload after notification", zap.Error(err))
					}
				}
			}
		}()
	}

	if cfg.ReloadInterval > 0 && pg != nil {
		ticker := time.NewTicker(cfg.ReloadInterval)
		go func() {
			for {
				select {
				case <-ticker.C:
					if err := srvDeps.Reload(); err != nil {
						logger.Error("auto reload", zap.Error(err))
					}
				case <-ctx.Done():
					ticker.Stop()
					return
				}
			}
		}()
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	return nil
}
