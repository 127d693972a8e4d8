package reporting

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet = "Summary"
	adSheet      = "Ad Performance"
)

// ExportXLSX renders a board summary as an XLSX workbook with a summary
// sheet (totals plus the hourly breakdown) and a per-ad sheet.
func ExportXLSX(summary *BoardSummary) ([]byte, error) {
	f := excelize.NewFile()

	if err := writeSummarySheet(f, summary); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := writeAdSheet(f, summary); err != nil {
		_ = f.Close()
		return nil, err
	}
	_ = f.DeleteSheet("Sheet1")

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSummarySheet(f *excelize.File, summary *BoardSummary) error {
	index, err := f.NewSheet(summarySheet)
	if err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	f.SetActiveSheet(index)

	labels := []struct {
		label string
		value interface{}
	}{
		{"Board", summary.BoardID},
		{"Window (days)", summary.Days},
		{"Generated", summary.GeneratedAt.Format("2006-01-02 15:04:05")},
		{"Total decisions", summary.TotalDecisions},
		{"Total displays", summary.TotalDisplays},
		{"Confirmation rate (%)", summary.ConfirmationRate},
	}
	for i, row := range labels {
		if err := setCell(f, summarySheet, 1, i+1, row.label); err != nil {
			return err
		}
		if err := setCell(f, summarySheet, 2, i+1, row.value); err != nil {
			return err
		}
	}

	headerRow := len(labels) + 2
	if err := writeHeader(f, summarySheet, headerRow, []string{"Hour", "Decisions", "Displays", "Audience (%)"}); err != nil {
		return err
	}
	for i, h := range summary.Hourly {
		row := headerRow + 1 + i
		values := []interface{}{h.Hour.Format("2006-01-02 15:04"), h.Decisions, h.Displays, h.AudiencePct}
		for col, v := range values {
			if err := setCell(f, summarySheet, col+1, row, v); err != nil {
				return err
			}
		}
	}

	if err := f.SetColWidth(summarySheet, "A", "A", 22); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	return nil
}

func writeAdSheet(f *excelize.File, summary *BoardSummary) error {
	if _, err := f.NewSheet(adSheet); err != nil {
		return fmt.Errorf("create ad sheet: %w", err)
	}

	if err := writeHeader(f, adSheet, 1, []string{"Ad ID", "Decisions", "Displays", "Share (%)", "Avg Score", "Last Decided"}); err != nil {
		return err
	}
	for i, ad := range summary.Ads {
		row := i + 2
		values := []interface{}{ad.AdID, ad.Decisions, ad.Displays, ad.Share, ad.AvgScore, ad.LastDecided.Format("2006-01-02 15:04:05")}
		for col, v := range values {
			if err := setCell(f, adSheet, col+1, row, v); err != nil {
				return err
			}
		}
	}

	if err := f.SetColWidth(adSheet, "A", "A", 20); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetColWidth(adSheet, "F", "F", 20); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	// Keep the header visible when scrolling long catalogs.
	if err := f.SetPanes(adSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze panes: %w", err)
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, row int, headers []string) error {
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return fmt.Errorf("set header style: %w", err)
		}
	}
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("convert coordinates: %w", err)
	}
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		return fmt.Errorf("set cell %s: %w", cell, err)
	}
	return nil
}
