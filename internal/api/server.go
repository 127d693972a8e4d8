// Package api exposes the board's HTTP surface: the decision endpoints the
// physical display calls, the dashboard data and websocket feeds, admin
// catalog CRUD, reporting and health probes.
package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/edgy2009/adboard/internal/analytics"
	"github.com/edgy2009/adboard/internal/config"
	"github.com/edgy2009/adboard/internal/db"
	"github.com/edgy2009/adboard/internal/engine"
	"github.com/edgy2009/adboard/internal/history"
	"github.com/edgy2009/adboard/internal/ingest"
	"github.com/edgy2009/adboard/internal/models"
	"github.com/edgy2009/adboard/internal/observability"
	"github.com/edgy2009/adboard/internal/ratelimit"
	"github.com/edgy2009/adboard/internal/weather"
	"github.com/edgy2009/adboard/internal/ws"
)

var tracer = otel.Tracer("adboard")

// DisplaySource exposes the most recent decision of the display loop.
type DisplaySource interface {
	Current() *engine.Decision
}

// Server groups dependencies for HTTP handlers.
type Server struct {
	Logger       *zap.Logger
	Catalog      models.Catalog
	Engine       *engine.Engine
	Reader       *ingest.Reader
	History      history.Store
	Analytics    analytics.AnalyticsService
	Weather      *weather.Client
	Store        *db.RedisStore
	PG           *db.Postgres
	ClickHouseDB *sql.DB
	Hub          *ws.Hub
	Limiter      *ratelimit.ClientLimiter
	Display      DisplaySource
	DebugTrace   bool
	TokenSecret  []byte
	TokenTTL     time.Duration
	BoardID      string
	reloadMu     sync.Mutex
	Metrics      observability.MetricsRegistry
	Config       config.Config
}

// NewServer constructs a Server.
func NewServer(logger *zap.Logger, catalog models.Catalog, eng *engine.Engine, reader *ingest.Reader, hist history.Store, analyticsSvc analytics.AnalyticsService, weatherClient *weather.Client, store *db.RedisStore, pg *db.Postgres, ch *sql.DB, hub *ws.Hub, limiter *ratelimit.ClientLimiter, display DisplaySource, debug bool, secret []byte, ttl time.Duration, metrics observability.MetricsRegistry, cfg config.Config) *Server {
	return &Server{
		Logger:       logger,
		Catalog:      catalog,
		Engine:       eng,
		Reader:       reader,
		History:      hist,
		Analytics:    analyticsSvc,
		Weather:      weatherClient,
		Store:        store,
		PG:           pg,
		ClickHouseDB: ch,
		Hub:          hub,
		Limiter:      limiter,
		Display:      display,
		DebugTrace:   debug,
		TokenSecret:  secret,
		TokenTTL:     ttl,
		BoardID:      cfg.BoardID,
		Metrics:      metrics,
		Config:       cfg,
	}
}

// helper function to write JSON response
func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// clientIP extracts the caller's address for rate limiting.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// notifyUpdate fans a catalog mutation out to dashboard clients and, via
// redis pub/sub, to replica boards sharing the same Postgres catalog.
func (s *Server) notifyUpdate(action string, id string) {
	if s.Hub != nil {
		s.Hub.BroadcastCatalogUpdate(s.Catalog.Len())
	}

	if s.Store == nil || s.Store.Client == nil {
		s.Logger.Warn("redis store not available, skipping update notification")
		return
	}
	if err := s.Store.PublishCatalogUpdate(context.Background(), s.BoardID); err != nil {
		s.Logger.Error("failed to publish catalog update",
			zap.Error(err),
			zap.String("action", action),
			zap.String("ad_id", id))
	}
}

// Reload refreshes the ad catalog from Postgres.
func (s *Server) Reload() error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	if s.PG == nil {
		return fmt.Errorf("postgres unavailable")
	}

	count, err := db.LoadCatalog(s.PG, s.Catalog)
	if err != nil {
		return fmt.Errorf("reload catalog: %w", err)
	}

	if s.Hub != nil {
		s.Hub.BroadcastCatalogUpdate(count)
	}
	return nil
}
