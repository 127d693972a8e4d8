package api

import (
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/edgy2009/adboard/internal/analytics"
	"github.com/edgy2009/adboard/internal/middleware"
	"github.com/edgy2009/adboard/internal/observability"
	"github.com/edgy2009/adboard/internal/token"
)

// ConfirmDisplayHandler handles GET /display/confirm requests. The physical
// board calls its confirm URL after actually rendering an ad; only then is
// the display counted. History is already appended at decision time.
func (s *Server) ConfirmDisplayHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "ConfirmDisplayHandler",
		trace.WithAttributes(
			attribute.String("http.method", "GET"),
			attribute.String("http.route", "/display/confirm"),
		))
	defer span.End()

	// Get trace-aware logger from middleware
	logger := middleware.LoggerFromRequest(r, s.Logger)

	start := time.Now()
	const endpoint = "confirm"
	const method = "GET"

	tok := r.URL.Query().Get("t")
	if tok == "" {
		logger.Warn("missing token")
		s.Metrics.IncrementRequests(endpoint, method, "401")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "token required", http.StatusUnauthorized)
		return
	}
	payload, err := token.Verify(tok, s.TokenSecret, s.TokenTTL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid token")
		logger.Warn("token verify", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, "401")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	if payload.BoardID != s.BoardID {
		logger.Warn("token for another board", zap.String("token_board_id", payload.BoardID))
		s.Metrics.IncrementRequests(endpoint, method, "400")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "unknown board", http.StatusBadRequest)
		return
	}

	span.SetAttributes(
		attribute.String("decision_id", payload.DecisionID),
		attribute.String("ad_id", payload.AdID),
	)

	// Record the display in ClickHouse for reporting. A board without an
	// analytics backend still counts displays in Prometheus.
	if s.Analytics != nil {
		if err := s.Analytics.RecordDisplay(ctx, s.BoardID, payload.DecisionID, payload.AdID); err != nil && !errors.Is(err, analytics.ErrUnavailable) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "analytics error")
			logger.Error("analytics record", zap.Error(err))
			s.Metrics.IncrementRequests(endpoint, method, "500")
			s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
			http.Error(w, "analytics error", http.StatusInternalServerError)
			return
		}
	}
	s.Metrics.IncrementDisplays(payload.AdID)

	if observability.ShouldSample(observability.GetSamplingRate()) {
		logger.Info("display confirmed",
			zap.String("decision_id", payload.DecisionID),
			zap.String("ad_id", payload.AdID),
			zap.String("event_type", "display"))
	}

	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))

	out := struct {
		Status     string `json:"status"`
		DecisionID string `json:"decision_id"`
		AdID       string `json:"ad_id"`
	}{"recorded", payload.DecisionID, payload.AdID}
	writeJSON(w, out)
}
