package api

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/edgy2009/adboard/internal/models"
)

// HistoryHandler handles GET /api/history requests. ?limit= caps the
// returned entries; the store never holds more than the rolling window.
func (s *Server) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "history"
	const method = "GET"

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.Metrics.IncrementRequests(endpoint, method, "400")
			s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := s.History.Recent(r.Context(), limit)
	if err != nil {
		s.Logger.Error("read history", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []models.DisplayHistoryEntry{}
	}

	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))

	out := struct {
		Entries []models.DisplayHistoryEntry `json:"entries"`
		Count   int                          `json:"count"`
	}{entries, len(entries)}
	writeJSON(w, out)
}
