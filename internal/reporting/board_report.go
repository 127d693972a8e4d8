// Package reporting builds board performance reports from the ClickHouse
// display_events table: per-ad totals, display share, average decision
// scores and an hourly activity breakdown over a rolling window.
package reporting

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AdMetrics aggregates decision and display activity for one ad.
// Share is the ad's percentage of confirmed displays; while no display has
// been confirmed it falls back to the ad's share of decisions.
type AdMetrics struct {
	AdID        string    `json:"ad_id"`
	Decisions   int64     `json:"decisions"`    // Decision cycles that selected this ad
	Displays    int64     `json:"displays"`     // Confirmed renders on the physical board
	Share       float64   `json:"share"`        // Percentage of board activity, 0-100
	AvgScore    float64   `json:"avg_score"`    // Mean combined score at decision time
	LastDecided time.Time `json:"last_decided"` // Most recent decision for this ad
}

// HourlyMetrics is one hour of board activity.
type HourlyMetrics struct {
	Hour        time.Time `json:"hour"`
	Decisions   int64     `json:"decisions"`
	Displays    int64     `json:"displays"`
	AudiencePct float64   `json:"audience_pct"` // Share of decisions made with an audience present, 0-100
}

// BoardSummary is the full report for one board over the reporting window.
type BoardSummary struct {
	BoardID          string          `json:"board_id"`
	Days             int             `json:"days"`
	GeneratedAt      time.Time       `json:"generated_at"`
	TotalDecisions   int64           `json:"total_decisions"`
	TotalDisplays    int64           `json:"total_displays"`
	ConfirmationRate float64         `json:"confirmation_rate"` // Displays per 100 decisions
	Ads              []AdMetrics     `json:"ads"`
	Hourly           []HourlyMetrics `json:"hourly"`
}

// GenerateBoardReport queries ClickHouse for a board's display activity and
// assembles per-ad totals, display shares and the hourly breakdown.
func GenerateBoardReport(ctx context.Context, db *sql.DB, boardID string, days int) (*BoardSummary, error) {
	summary := &BoardSummary{
		BoardID:     boardID,
		Days:        days,
		GeneratedAt: time.Now(),
	}

	ads, err := getAdMetrics(ctx, db, boardID, days)
	if err != nil {
		return nil, fmt.Errorf("get ad metrics: %w", err)
	}

	for i := range ads {
		summary.TotalDecisions += ads[i].Decisions
		summary.TotalDisplays += ads[i].Displays
	}

	// A board whose GUI never confirms has zero displays; decision share
	// keeps the report meaningful in that mode.
	for i := range ads {
		switch {
		case summary.TotalDisplays > 0:
			ads[i].Share = float64(ads[i].Displays) / float64(summary.TotalDisplays) * 100
		case summary.TotalDecisions > 0:
			ads[i].Share = float64(ads[i].Decisions) / float64(summary.TotalDecisions) * 100
		}
	}
	summary.Ads = ads

	if summary.TotalDecisions > 0 {
		summary.ConfirmationRate = float64(summary.TotalDisplays) / float64(summary.TotalDecisions) * 100
	}

	hourly, err := getHourlyMetrics(ctx, db, boardID, days)
	if err != nil {
		return nil, fmt.Errorf("get hourly metrics: %w", err)
	}
	summary.Hourly = hourly

	return summary, nil
}

// getAdMetrics queries ClickHouse for per-ad decision and display totals
// over the given number of days, ordered by display count descending.
func getAdMetrics(ctx context.Context, db *sql.DB, boardID string, days int) ([]AdMetrics, error) {
	query := `
		SELECT
			ad_id,
			countIf(event_type = 'decision') as decisions,
			countIf(event_type = 'display') as displays,
			round(if(decisions > 0, avgIf(score, event_type = 'decision'), 0), 4) as avg_score,
			maxIf(timestamp, event_type = 'decision') as last_decided
		FROM display_events
		WHERE board_id = ?
			AND timestamp >= now() - INTERVAL ? DAY
		GROUP BY ad_id
		ORDER BY displays DESC, decisions DESC`

	rows, err := db.QueryContext(ctx, query, boardID, days)
	if err != nil {
		return nil, fmt.Errorf("query ad metrics: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var metrics []AdMetrics
	for rows.Next() {
		var m AdMetrics
		err := rows.Scan(&m.AdID, &m.Decisions, &m.Displays, &m.AvgScore, &m.LastDecided)
		if err != nil {
			return nil, fmt.Errorf("scan ad metrics: %w", err)
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

// getHourlyMetrics queries ClickHouse for hour-by-hour board activity over
// the given number of days, most recent hour first.
func getHourlyMetrics(ctx context.Context, db *sql.DB, boardID string, days int) ([]HourlyMetrics, error) {
	query := `
		SELECT
			toStartOfHour(timestamp) as hour,
			countIf(event_type = 'decision') as decisions,
			countIf(event_type = 'display') as displays,
			round(if(decisions > 0, countIf(event_type = 'decision' AND audience_present = 1) / decisions * 100, 0), 2) as audience_pct
		FROM display_events
		WHERE board_id = ?
			AND timestamp >= now() - INTERVAL ? DAY
		GROUP BY hour
		ORDER BY hour DESC`

	rows, err := db.QueryContext(ctx, query, boardID, days)
	if err != nil {
		return nil, fmt.Errorf("query hourly metrics: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var metrics []HourlyMetrics
	for rows.Next() {
		var m HourlyMetrics
		err := rows.Scan(&m.Hour, &m.Decisions, &m.Displays, &m.AudiencePct)
		if err != nil {
			return nil, fmt.Errorf("scan hourly metrics: %w", err)
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}
