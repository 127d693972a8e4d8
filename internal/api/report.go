package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/edgy2009/adboard/internal/reporting"
)

// parseReportDays reads the optional days query parameter (default: 7,
// max: 365). The bool result reports whether the value was valid.
func parseReportDays(r *http.Request) (int, bool) {
	days := 7
	if daysParam := r.URL.Query().Get("days"); daysParam != "" {
		parsedDays, err := strconv.Atoi(daysParam)
		if err != nil || parsedDays <= 0 {
			return 0, false
		}
		if parsedDays > 365 {
			parsedDays = 365
		}
		days = parsedDays
	}
	return days, true
}

// BoardReportHandler handles GET /api/report requests. Aggregates the
// board's display activity over the requested window.
//
// Query Parameters:
//   - days: Number of days to include in the report (default: 7, max: 365)
//
// Response: JSON containing BoardSummary with per-ad and hourly breakdowns
func (s *Server) BoardReportHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "report"
	const method = "GET"

	// Check if ClickHouse is available
	if s.ClickHouseDB == nil {
		s.Logger.Error("clickhouse unavailable")
		s.Metrics.IncrementRequests(endpoint, method, "500")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "analytics database unavailable", http.StatusInternalServerError)
		return
	}

	days, ok := parseReportDays(r)
	if !ok {
		s.Metrics.IncrementRequests(endpoint, method, "400")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "invalid days parameter", http.StatusBadRequest)
		return
	}

	summary, err := reporting.GenerateBoardReport(r.Context(), s.ClickHouseDB, s.BoardID, days)
	if err != nil {
		s.Logger.Error("failed to generate board report",
			zap.String("board_id", s.BoardID),
			zap.Int("days", days),
			zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "failed to generate report", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(summary); err != nil {
		s.Logger.Error("failed to encode board report response",
			zap.String("board_id", s.BoardID),
			zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		return
	}

	s.Logger.Info("board report generated",
		zap.String("board_id", s.BoardID),
		zap.Int("days", days),
		zap.Int64("decisions", summary.TotalDecisions),
		zap.Int64("displays", summary.TotalDisplays))

	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
}

// ReportExportHandler handles GET /api/report/export requests and streams
// the same report as an XLSX workbook.
func (s *Server) ReportExportHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "report_export"
	const method = "GET"

	if s.ClickHouseDB == nil {
		s.Logger.Error("clickhouse unavailable")
		s.Metrics.IncrementRequests(endpoint, method, "500")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "analytics database unavailable", http.StatusInternalServerError)
		return
	}

	days, ok := parseReportDays(r)
	if !ok {
		s.Metrics.IncrementRequests(endpoint, method, "400")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "invalid days parameter", http.StatusBadRequest)
		return
	}

	summary, err := reporting.GenerateBoardReport(r.Context(), s.ClickHouseDB, s.BoardID, days)
	if err != nil {
		s.Logger.Error("failed to generate board report",
			zap.String("board_id", s.BoardID),
			zap.Int("days", days),
			zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "failed to generate report", http.StatusInternalServerError)
		return
	}

	data, err := reporting.ExportXLSX(summary)
	if err != nil {
		s.Logger.Error("failed to export board report",
			zap.String("board_id", s.BoardID),
			zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "failed to export report", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("board-report-%s-%s.xlsx", s.BoardID, time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write(data)

	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
}
