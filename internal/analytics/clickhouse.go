// Package analytics records decision and display events in ClickHouse so
// reports can be built without touching the board's hot path.
package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	_ "github.com/ClickHouse/clickhouse-go/v2"

	"github.com/edgy2009/adboard/internal/models"
	"github.com/edgy2009/adboard/internal/observability"
)

// AnalyticsService defines the interface for analytics operations.
// Implementations should handle cases where underlying storage is unavailable
// by returning ErrUnavailable.
type AnalyticsService interface {
	// RecordDecision records the outcome of one decision cycle with the
	// contexts it was made under.
	RecordDecision(ctx context.Context, boardID, decisionID, adID, stage string, score float64, env models.EnvironmentalContext, audience models.AudienceProfile) error
	// RecordDisplay records a confirmed display of a previously decided ad.
	RecordDisplay(ctx context.Context, boardID, decisionID, adID string) error
}

// ErrUnavailable is returned when the analytics DB is not configured.
var ErrUnavailable = fmt.Errorf("analytics unavailable")

// Analytics wraps a ClickHouse DB connection.
type Analytics struct {
	DB      *sql.DB
	Metrics observability.MetricsRegistry
}

// EventRecord mirrors a row in the display_events table.
type EventRecord struct {
	Timestamp          time.Time `json:"timestamp"`
	EventType          string    `json:"event_type"`
	BoardID            string    `json:"board_id"`
	DecisionID         string    `json:"decision_id"`
	AdID               string    `json:"ad_id"`
	Stage              *string   `json:"stage"`
	Score              float64   `json:"score"`
	TemperatureCat     *string   `json:"temperature_category"`
	HumidityCat        *string   `json:"humidity_category"`
	RawTemperature     float64   `json:"raw_temperature"`
	RawHumidity        float64   `json:"raw_humidity"`
	Weather            *string   `json:"weather"`
	AudiencePresent    uint8     `json:"audience_present"`
	AudienceCount      int32     `json:"audience_count"`
	AgeGroup           *string   `json:"age_group"`
	GenderDistribution *string   `json:"gender_distribution"`
}

// InitClickHouse connects to ClickHouse and ensures the display_events table
// exists. Pool sizing comes from config so boards on small hardware can cap it.
func InitClickHouse(dsn string, metrics observability.MetricsRegistry, maxOpen, maxIdle int, connMaxLifetime, connMaxIdleTime time.Duration) (*Analytics, error) {
	db, err := sql.Open("clickhouse", dsn)
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)
	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	create := `CREATE TABLE IF NOT EXISTS display_events (
       timestamp            DateTime,
       event_type           String,
       board_id             String,
       decision_id          String,
       ad_id                String,
       stage                Nullable(String),
       score                Float64,
       temperature_category Nullable(String),
       humidity_category    Nullable(String),
       raw_temperature      Float64,
       raw_humidity         Float64,
       weather              Nullable(String),
       audience_present     UInt8,
       audience_count       Int32,
       age_group            Nullable(String),
       gender_distribution  Nullable(String)
   ) ENGINE=MergeTree() ORDER BY (event_type, timestamp)`
	if _, err := db.ExecContext(context.Background(), create); err != nil {
		return nil, fmt.Errorf("clickhouse create table: %w", err)
	}

	zap.L().Info("Connected to ClickHouse")
	return &Analytics{DB: db, Metrics: metrics}, nil
}

// RecordDecision inserts a decision row with its environmental and audience
// snapshot.
func (a *Analytics) RecordDecision(ctx context.Context, boardID, decisionID, adID, stage string, score float64, env models.EnvironmentalContext, audience models.AudienceProfile) error {
	if a == nil || a.DB == nil {
		return ErrUnavailable
	}

	var present uint8
	if audience.Present {
		present = 1
	}
	var ageGroup, genderDist sql.NullString
	if audience.Present {
		ageGroup = sql.NullString{String: audience.AgeGroup, Valid: true}
		genderDist = sql.NullString{String: audience.GenderDistribution, Valid: true}
	}
	var weather sql.NullString
	if env.Weather != "" {
		weather = sql.NullString{String: env.Weather, Valid: true}
	}

	stmt := `INSERT INTO display_events (timestamp, event_type, board_id, decision_id, ad_id, stage, score, temperature_category, humidity_category, raw_temperature, raw_humidity, weather, audience_present, audience_count, age_group, gender_distribution) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := a.DB.ExecContext(ctx, stmt,
		time.Now(), "decision", boardID, decisionID, adID,
		sql.NullString{String: stage, Valid: stage != ""}, score,
		sql.NullString{String: env.TemperatureCategory, Valid: true},
		sql.NullString{String: env.HumidityCategory, Valid: true},
		env.RawTemperature, env.RawHumidity, weather,
		present, int32(audience.Count), ageGroup, genderDist,
	); err != nil {
		zap.L().Error("clickhouse insert failed", zap.Error(err), zap.String("event_type", "decision"))
		return fmt.Errorf("insert decision event: %w", err)
	}
	return nil
}

// RecordDisplay inserts a display confirmation row.
func (a *Analytics) RecordDisplay(ctx context.Context, boardID, decisionID, adID string) error {
	if a == nil || a.DB == nil {
		return ErrUnavailable
	}

	stmt := `INSERT INTO display_events (timestamp, event_type, board_id, decision_id, ad_id, score, raw_temperature, raw_humidity, audience_present, audience_count) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := a.DB.ExecContext(ctx, stmt,
		time.Now(), "display", boardID, decisionID, adID, 0.0, 0.0, 0.0, uint8(0), int32(0),
	); err != nil {
		zap.L().Error("clickhouse insert failed", zap.Error(err), zap.String("event_type", "display"))
		return fmt.Errorf("insert display event: %w", err)
	}
	return nil
}

// GetEventsByDecisionID returns all events for a decision ordered by timestamp.
func (a *Analytics) GetEventsByDecisionID(id string) ([]EventRecord, error) {
	if a == nil || a.DB == nil {
		return nil, ErrUnavailable
	}
	query := `SELECT timestamp, event_type, board_id, decision_id, ad_id, stage, score, temperature_category, humidity_category, raw_temperature, raw_humidity, weather, audience_present, audience_count, age_group, gender_distribution FROM display_events WHERE decision_id=? ORDER BY timestamp`
	rows, err := a.DB.QueryContext(context.Background(), query, id)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			zap.L().Warn("rows close", zap.Error(err))
		}
	}()

	var events []EventRecord
	for rows.Next() {
		var ev EventRecord
		if err := rows.Scan(&ev.Timestamp, &ev.EventType, &ev.BoardID, &ev.DecisionID, &ev.AdID, &ev.Stage, &ev.Score, &ev.TemperatureCat, &ev.HumidityCat, &ev.RawTemperature, &ev.RawHumidity, &ev.Weather, &ev.AudiencePresent, &ev.AudienceCount, &ev.AgeGroup, &ev.GenderDistribution); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return events, nil
}

// Close terminates the ClickHouse connection.
func (a *Analytics) Close() {
	if a != nil && a.DB != nil {
		if err := a.DB.Close(); err != nil {
			zap.L().Error("clickhouse close", zap.Error(err))
		}
	}
}
