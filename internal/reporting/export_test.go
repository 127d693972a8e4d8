package reporting

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

func testSummary() *BoardSummary {
	now := time.Date(2026, 8, 24, 15, 0, 0, 0, time.UTC)
	return &BoardSummary{
		BoardID:          "board-1",
		Days:             7,
		GeneratedAt:      now,
		TotalDecisions:   15,
		TotalDisplays:    8,
		ConfirmationRate: 53.33,
		Ads: []AdMetrics{
			{AdID: "ice cream", Decisions: 10, Displays: 6, Share: 75, AvgScore: 1.23, LastDecided: now},
			{AdID: "umbrella", Decisions: 5, Displays: 2, Share: 25, AvgScore: 0.8, LastDecided: now.Add(-time.Hour)},
		},
		Hourly: []HourlyMetrics{
			{Hour: now.Truncate(time.Hour), Decisions: 8, Displays: 5, AudiencePct: 62.5},
		},
	}
}

func TestExportXLSX(t *testing.T) {
	data, err := ExportXLSX(testSummary())
	if err != nil {
		t.Fatalf("ExportXLSX: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected workbook bytes")
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 {
		t.Fatalf("expected 2 sheets, got %v", sheets)
	}
	for _, want := range []string{summarySheet, adSheet} {
		if idx, err := f.GetSheetIndex(want); err != nil || idx < 0 {
			t.Errorf("missing sheet %q (index %d, err %v)", want, idx, err)
		}
	}

	board, err := f.GetCellValue(summarySheet, "B1")
	if err != nil {
		t.Fatalf("get cell: %v", err)
	}
	if board != "board-1" {
		t.Errorf("expected board id in B1, got %q", board)
	}

	topAd, err := f.GetCellValue(adSheet, "A2")
	if err != nil {
		t.Fatalf("get cell: %v", err)
	}
	if topAd != "ice cream" {
		t.Errorf("expected top ad in A2, got %q", topAd)
	}
}

func TestExportXLSX_EmptyReport(t *testing.T) {
	data, err := ExportXLSX(&BoardSummary{BoardID: "board-1", Days: 1, GeneratedAt: time.Now()})
	if err != nil {
		t.Fatalf("ExportXLSX: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	header, err := f.GetCellValue(adSheet, "A1")
	if err != nil {
		t.Fatalf("get cell: %v", err)
	}
	if header != "Ad ID" {
		t.Errorf("expected ad sheet header, got %q", header)
	}
}
