package api

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/edgy2009/adboard/internal/engine"
	"github.com/edgy2009/adboard/internal/middleware"
	"github.com/edgy2009/adboard/internal/models"
	"github.com/edgy2009/adboard/internal/weather"
)

// dashboardData is the combined payload the dashboard polls. The
// environmental/audience/timestamp/server_time keys predate this server
// and stay stable for existing GUI clients.
type dashboardData struct {
	Environmental models.EnvironmentalContext  `json:"environmental"`
	Audience      models.AudienceProfile       `json:"audience"`
	Current       *engine.Decision             `json:"current,omitempty"`
	History       []models.DisplayHistoryEntry `json:"history"`
	Weather       *weather.Conditions          `json:"weather,omitempty"`
	// Forecast is the rule-based sky prediction from the sensor reading
	// combined with the API conditions, when both are available.
	Forecast   string         `json:"forecast,omitempty"`
	Catalog    catalogSummary `json:"catalog"`
	Timestamp  float64        `json:"timestamp"`
	ServerTime string         `json:"server_time"`
}

type catalogSummary struct {
	Ads int `json:"ads"`
	// ImageBaseURL lets the GUI build absolute creative URLs from the
	// relative image_file names in the catalog.
	ImageBaseURL string `json:"image_base_url,omitempty"`
}

// DataHandler handles GET /api/data requests with everything the dashboard
// renders in one round trip.
func (s *Server) DataHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "DataHandler",
		trace.WithAttributes(
			attribute.String("http.method", "GET"),
			attribute.String("http.route", "/api/data"),
		))
	defer span.End()

	logger := middleware.LoggerFromRequest(r, s.Logger)

	start := time.Now()
	const endpoint = "data"
	const method = "GET"

	out := dashboardData{
		Environmental: s.Reader.EnvironmentalContext(ctx),
		Audience:      s.Reader.AudienceProfile(ctx),
		History:       []models.DisplayHistoryEntry{},
		Catalog:       catalogSummary{Ads: s.Catalog.Len(), ImageBaseURL: s.Config.ImageBaseURL},
	}

	if s.Display != nil {
		out.Current = s.Display.Current()
	}

	if entries, err := s.History.Recent(ctx, 10); err != nil {
		// The dashboard keeps rendering with an empty history panel.
		logger.Warn("history unavailable", zap.Error(err))
	} else if entries != nil {
		out.History = entries
	}

	if s.Weather != nil && s.Weather.Available() {
		if cond, err := s.Weather.Current(ctx); err == nil {
			out.Weather = &cond
			if !out.Environmental.Fallback {
				out.Forecast = weather.PredictLocal(out.Environmental.RawTemperature, out.Environmental.RawHumidity, cond)
			}
		}
	}

	now := time.Now()
	out.Timestamp = float64(now.UnixMilli()) / 1000.0
	out.ServerTime = now.Format("2006-01-02 15:04:05")

	span.SetAttributes(
		attribute.Bool("audience_present", out.Audience.Present),
		attribute.Int("history_entries", len(out.History)),
	)

	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
	writeJSON(w, out)
}
