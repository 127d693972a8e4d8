package reporting

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestGenerateBoardReport(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	lastDecided := time.Date(2026, 8, 24, 14, 0, 0, 0, time.UTC)
	adRows := sqlmock.NewRows([]string{"ad_id", "decisions", "displays", "avg_score", "last_decided"}).
		AddRow("ice cream", int64(10), int64(6), 1.2345, lastDecided).
		AddRow("umbrella", int64(5), int64(2), 0.8, lastDecided.Add(-time.Hour))
	mock.ExpectQuery(`(?s)SELECT.*FROM display_events.*GROUP BY ad_id`).
		WithArgs("board-1", 7).
		WillReturnRows(adRows)

	hourlyRows := sqlmock.NewRows([]string{"hour", "decisions", "displays", "audience_pct"}).
		AddRow(lastDecided, int64(8), int64(5), 62.5).
		AddRow(lastDecided.Add(-time.Hour), int64(7), int64(3), 0.0)
	mock.ExpectQuery(`(?s)SELECT.*FROM display_events.*GROUP BY hour`).
		WithArgs("board-1", 7).
		WillReturnRows(hourlyRows)

	summary, err := GenerateBoardReport(context.Background(), db, "board-1", 7)
	if err != nil {
		t.Fatalf("GenerateBoardReport: %v", err)
	}

	if summary.TotalDecisions != 15 {
		t.Errorf("expected 15 total decisions, got %d", summary.TotalDecisions)
	}
	if summary.TotalDisplays != 8 {
		t.Errorf("expected 8 total displays, got %d", summary.TotalDisplays)
	}
	if math.Abs(summary.ConfirmationRate-8.0/15.0*100) > 0.001 {
		t.Errorf("unexpected confirmation rate %f", summary.ConfirmationRate)
	}

	if len(summary.Ads) != 2 {
		t.Fatalf("expected 2 ads, got %d", len(summary.Ads))
	}
	if summary.Ads[0].AdID != "ice cream" || math.Abs(summary.Ads[0].Share-75.0) > 0.001 {
		t.Errorf("unexpected top ad: %+v", summary.Ads[0])
	}
	if math.Abs(summary.Ads[1].Share-25.0) > 0.001 {
		t.Errorf("expected 25%% share for umbrella, got %f", summary.Ads[1].Share)
	}

	if len(summary.Hourly) != 2 {
		t.Fatalf("expected 2 hourly rows, got %d", len(summary.Hourly))
	}
	if summary.Hourly[0].AudiencePct != 62.5 {
		t.Errorf("unexpected audience pct %f", summary.Hourly[0].AudiencePct)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestGenerateBoardReport_DecisionShareFallback(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	adRows := sqlmock.NewRows([]string{"ad_id", "decisions", "displays", "avg_score", "last_decided"}).
		AddRow("zara", int64(9), int64(0), 1.0, time.Now()).
		AddRow("laptop", int64(3), int64(0), 0.5, time.Now())
	mock.ExpectQuery(`(?s)SELECT.*GROUP BY ad_id`).WillReturnRows(adRows)
	mock.ExpectQuery(`(?s)SELECT.*GROUP BY hour`).
		WillReturnRows(sqlmock.NewRows([]string{"hour", "decisions", "displays", "audience_pct"}))

	summary, err := GenerateBoardReport(context.Background(), db, "board-1", 1)
	if err != nil {
		t.Fatalf("GenerateBoardReport: %v", err)
	}

	if summary.ConfirmationRate != 0 {
		t.Errorf("expected zero confirmation rate, got %f", summary.ConfirmationRate)
	}
	if math.Abs(summary.Ads[0].Share-75.0) > 0.001 {
		t.Errorf("expected decision share 75%%, got %f", summary.Ads[0].Share)
	}
	if math.Abs(summary.Ads[1].Share-25.0) > 0.001 {
		t.Errorf("expected decision share 25%%, got %f", summary.Ads[1].Share)
	}
	if len(summary.Hourly) != 0 {
		t.Errorf("expected no hourly rows, got %d", len(summary.Hourly))
	}
}

func TestGenerateBoardReport_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT.*GROUP BY ad_id`).WillReturnError(context.DeadlineExceeded)

	_, err = GenerateBoardReport(context.Background(), db, "board-1", 7)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "get ad metrics") {
		t.Errorf("expected wrapped ad metrics error, got %v", err)
	}
}
