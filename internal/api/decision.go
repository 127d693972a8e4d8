package api

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/edgy2009/adboard/internal/engine"
	"github.com/edgy2009/adboard/internal/middleware"
	"github.com/edgy2009/adboard/internal/observability"
	"github.com/edgy2009/adboard/internal/token"
)

// allowRequest applies the per-client limiter. It writes the 429 response
// and records metrics when the client is over budget.
func (s *Server) allowRequest(w http.ResponseWriter, r *http.Request, endpoint, method string, start time.Time) bool {
	if s.Limiter == nil {
		return true
	}
	ip := clientIP(r)
	if s.Limiter.Allow(ip, endpoint) {
		return true
	}
	s.Logger.Warn("rate limit exceeded", zap.String("endpoint", endpoint), zap.String("client_ip", ip))
	s.Metrics.IncrementRequests(endpoint, method, "429")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
	http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
	return false
}

// NextDecisionHandler handles GET /api/decision/next requests. It runs a
// full decision cycle on demand and hands the caller a signed confirm URL
// to report the render back.
func (s *Server) NextDecisionHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "NextDecisionHandler",
		trace.WithAttributes(
			attribute.String("http.method", "GET"),
			attribute.String("http.route", "/api/decision/next"),
		))
	defer span.End()

	// Get trace-aware logger from middleware
	logger := middleware.LoggerFromRequest(r, s.Logger)

	start := time.Now()
	const endpoint = "decision_next"
	const method = "GET"

	if !s.allowRequest(w, r, endpoint, method, start) {
		return
	}

	env := s.Reader.EnvironmentalContext(ctx)
	audience := s.Reader.AudienceProfile(ctx)

	decision, err := s.Engine.Decide(ctx, env, audience)
	if err != nil {
		if errors.Is(err, engine.ErrEmptyCatalog) {
			logger.Warn("no ads available")
			s.Metrics.IncrementRequests(endpoint, method, "404")
			s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
			http.Error(w, "no ads available", http.StatusNotFound)
			return
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "decision failed")
		logger.Error("decision failed", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "decision failed", http.StatusInternalServerError)
		return
	}

	tok, err := token.Generate(decision.ID, decision.Selected.Ad.ID, s.BoardID, s.TokenSecret)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "token generation failed")
		logger.Error("failed to generate token", zap.Error(err), zap.String("decision_id", decision.ID))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "internal server error (token generation)", http.StatusInternalServerError)
		return
	}

	span.SetAttributes(
		attribute.String("decision_id", decision.ID),
		attribute.String("ad_id", decision.Selected.Ad.ID),
		attribute.String("stage", decision.Stage),
		attribute.Float64("combined_score", decision.Selected.CombinedScore),
	)
	if observability.ShouldSample(observability.GetSamplingRate()) {
		logger.Info("decision served",
			zap.String("decision_id", decision.ID),
			zap.String("ad_id", decision.Selected.Ad.ID),
			zap.String("event_type", "decision_served"))
	}

	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))

	out := struct {
		*engine.Decision
		ConfirmURL string `json:"confirm_url"`
	}{decision, "/display/confirm?t=" + url.QueryEscape(tok)}
	writeJSON(w, out)
}

// PreviewDecisionHandler handles GET /api/decision/preview requests. The
// pipeline runs against the live contexts but records nothing, so the
// repetition penalty is unaffected. ?debug=1 includes the stage trace.
func (s *Server) PreviewDecisionHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "PreviewDecisionHandler",
		trace.WithAttributes(
			attribute.String("http.method", "GET"),
			attribute.String("http.route", "/api/decision/preview"),
		))
	defer span.End()

	logger := middleware.LoggerFromRequest(r, s.Logger)

	start := time.Now()
	const endpoint = "decision_preview"
	const method = "GET"

	debugEnabled := s.DebugTrace || r.URL.Query().Get("debug") == "1"

	env := s.Reader.EnvironmentalContext(ctx)
	audience := s.Reader.AudienceProfile(ctx)

	decision, err := s.Engine.Preview(ctx, env, audience, debugEnabled)
	if err != nil {
		if errors.Is(err, engine.ErrEmptyCatalog) {
			logger.Warn("no ads available")
			s.Metrics.IncrementRequests(endpoint, method, "404")
			s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
			http.Error(w, "no ads available", http.StatusNotFound)
			return
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "preview failed")
		logger.Error("preview failed", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "preview failed", http.StatusInternalServerError)
		return
	}

	span.SetAttributes(
		attribute.String("ad_id", decision.Selected.Ad.ID),
		attribute.String("stage", decision.Stage),
	)

	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
	writeJSON(w, decision)
}
