package main

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/edgy2009/adboard/internal/analytics"
	"github.com/edgy2009/adboard/internal/config"
	"github.com/edgy2009/adboard/internal/engine"
	"github.com/edgy2009/adboard/internal/history"
	"github.com/edgy2009/adboard/internal/models"
	"github.com/edgy2009/adboard/internal/observability"
)

func newTestBoardServer(catalog models.Catalog) *BoardServer {
	policy := config.DecisionPolicy{
		GenderMismatchFactor:      0.10,
		AgeMismatchFactor:         0.20,
		PerfectMatchBonus:         2.0,
		TemperatureMismatchFactor: 0.20,
		HumidityMismatchFactor:    0.70,
		HistoryDecayRate:          0.90,
		HistoryLimit:              50,
		TopCandidates:             3,
		WeightsWithAudience:       config.ScoreWeights{Demographic: 0.70, Environmental: 0.10, History: 0.20},
		WeightsWithoutAudience:    config.ScoreWeights{Demographic: 0.10, Environmental: 0.60, History: 0.30},
	}
	var analyticsSvc *analytics.Analytics
	eng := engine.New(catalog, history.NewMemoryStore(0), analyticsSvc, policy, "board-test", zap.NewNop(), observability.NewNoOpRegistry())
	return &BoardServer{
		catalog: catalog,
		engine:  eng,
		boardID: "board-test",
		thresholds: config.ClassifierThresholds{
			TempHighC:       25,
			TempLowC:        15,
			HumidityHighPct: 70,
			HumidityLowPct:  40,
		},
		logger: zap.NewNop(),
	}
}

func TestListAdsReturnsWholeCatalog(t *testing.T) {
	s := newTestBoardServer(models.NewTestCatalog())

	_, out, err := s.ListAds(context.Background(), nil, ListAdsInput{})
	if err != nil {
		t.Fatalf("ListAds failed: %v", err)
	}
	if out.Count != len(models.DefaultAds()) {
		t.Errorf("expected %d ads, got %d", len(models.DefaultAds()), out.Count)
	}
}

func TestListAdsFiltersByTargeting(t *testing.T) {
	s := newTestBoardServer(models.NewTestCatalog())

	_, out, err := s.ListAds(context.Background(), nil, ListAdsInput{AgeGroup: models.AgeSenior, Gender: models.GenderFemale})
	if err != nil {
		t.Fatalf("ListAds failed: %v", err)
	}
	for _, ad := range out.Ads {
		if !models.FieldMatches(ad.AgeGroup, models.AgeSenior) {
			t.Errorf("ad %s age_group %q does not match senior", ad.ID, ad.AgeGroup)
		}
		if !models.FieldMatches(ad.Gender, models.GenderFemale) {
			t.Errorf("ad %s gender %q does not match female", ad.ID, ad.Gender)
		}
	}
	if out.Count == 0 {
		t.Error("expected the stock catalog to contain senior-compatible ads")
	}
}

func TestPreviewDecisionScoresHypotheticalContext(t *testing.T) {
	s := newTestBoardServer(models.NewTestCatalog())

	_, out, err := s.PreviewDecision(context.Background(), nil, PreviewDecisionInput{
		Temperature:        32,
		Humidity:           80,
		Weather:            "sunny",
		AudiencePresent:    true,
		AudienceCount:      3,
		AgeGroup:           models.AgeChild,
		GenderDistribution: models.GenderMixed,
	})
	if err != nil {
		t.Fatalf("PreviewDecision failed: %v", err)
	}
	if out.Decision == nil {
		t.Fatal("expected a decision")
	}
	if out.Decision.Environment.TemperatureCategory != models.TempHot {
		t.Errorf("expected hot classification for 32C, got %s", out.Decision.Environment.TemperatureCategory)
	}
	if !out.Decision.Audience.Present {
		t.Error("expected the audience profile to carry present=true")
	}
	if out.Decision.Selected.Ad.ID == "" {
		t.Error("expected a selected ad")
	}
}

func TestPreviewDecisionDefaultsAbsentAudience(t *testing.T) {
	s := newTestBoardServer(models.NewTestCatalog())

	_, out, err := s.PreviewDecision(context.Background(), nil, PreviewDecisionInput{
		Temperature: 10,
		Humidity:    50,
	})
	if err != nil {
		t.Fatalf("PreviewDecision failed: %v", err)
	}
	if out.Decision.Audience.Present {
		t.Error("expected absent audience when audience_present is false")
	}
	if out.Decision.Environment.TemperatureCategory != models.TempCold {
		t.Errorf("expected cold classification for 10C, got %s", out.Decision.Environment.TemperatureCategory)
	}
}

func TestPreviewDecisionEmptyCatalog(t *testing.T) {
	s := newTestBoardServer(models.NewInMemoryCatalog())

	_, _, err := s.PreviewDecision(context.Background(), nil, PreviewDecisionInput{Temperature: 20, Humidity: 50})
	if err == nil {
		t.Fatal("expected an error for an empty catalog")
	}
}

func TestDisplayReportWithoutClickHouse(t *testing.T) {
	s := newTestBoardServer(models.NewTestCatalog())

	_, _, err := s.DisplayReport(context.Background(), nil, DisplayReportInput{})
	if err == nil {
		t.Fatal("expected an error when ClickHouse is not configured")
	}
	if !strings.Contains(err.Error(), "CLICKHOUSE_DSN") {
		t.Errorf("error should point at the missing configuration, got %v", err)
	}
}
