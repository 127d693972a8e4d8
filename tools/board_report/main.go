// Board Report Tool generates display performance reports for an ad board.
//
// This tool connects directly to ClickHouse to query the display event log
// and generates formatted reports showing which ads the board selected and
// rendered, how display time was shared, and how activity varied by hour.
//
// Usage:
//
//	go run ./tools/board_report -board-id=board-1 -days=7
//
// The tool outputs a formatted report including:
//   - Overall totals (decisions, confirmed displays, confirmation rate)
//   - Per-ad breakdown with display share and average decision score
//   - Hourly activity with audience presence
//   - Automated insights on rotation and confirmation health
//
// Configuration:
//
//	-board-id: Board to report on (default: BOARD_ID or board-1)
//	-days: Number of days to include in the report (default: 7)
//	-clickhouse-dsn: ClickHouse connection string (default: tcp://localhost:9000)
//	-xlsx: Optional. Write the report as an Excel workbook to this path
//
// Environment Variables:
//
//	BOARD_ID: Default board ID
//	CLICKHOUSE_DSN: ClickHouse connection string (overridden by -clickhouse-dsn flag)
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"

	"github.com/edgy2009/adboard/internal/reporting"
)

func main() {
	var (
		boardID  = flag.String("board-id", getEnv("BOARD_ID", "board-1"), "Board ID to generate report for")
		days     = flag.Int("days", 7, "Number of days to include in report")
		dsn      = flag.String("clickhouse-dsn", getEnv("CLICKHOUSE_DSN", "tcp://localhost:9000"), "ClickHouse DSN")
		xlsxPath = flag.String("xlsx", "", "Write the report as an Excel workbook to this path")
	)
	flag.Parse()

	if *boardID == "" {
		fmt.Fprintf(os.Stderr, "Error: board-id is required\n")
		flag.Usage()
		os.Exit(1)
	}

	db, err := sql.Open("clickhouse", *dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to ClickHouse: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database connection: %v\n", err)
		}
	}()

	if err := db.PingContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error pinging ClickHouse: %v\n", err)
		os.Exit(1)
	}

	summary, err := reporting.GenerateBoardReport(context.Background(), db, *boardID, *days)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
		os.Exit(1)
	}

	printBoardReport(summary)

	if *xlsxPath != "" {
		data, err := reporting.ExportXLSX(summary)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error exporting workbook: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*xlsxPath, data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing workbook: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Workbook written to %s\n", *xlsxPath)
	}
}

// printBoardReport outputs a formatted board performance report to stdout:
// overall totals, the per-ad breakdown, the hourly activity table and
// automated insights on rotation and confirmation health.
func printBoardReport(summary *reporting.BoardSummary) {
	fmt.Printf("═══════════════════════════════════════════════════════════════════════════════════\n")
	fmt.Printf("                               BOARD DISPLAY REPORT                                \n")
	fmt.Printf("═══════════════════════════════════════════════════════════════════════════════════\n")
	fmt.Printf("Board ID: %s\n", summary.BoardID)
	fmt.Printf("Report Period: %d days (ending %s)\n", summary.Days, time.Now().Format("2006-01-02"))
	fmt.Printf("Generated: %s\n\n", summary.GeneratedAt.Format("2006-01-02 15:04:05"))

	// Overall Performance
	fmt.Printf("📊 OVERALL ACTIVITY\n")
	fmt.Printf("───────────────────────────────────────────────────────────────────────────────────\n")
	fmt.Printf("Total Decisions:     %s\n", formatNumber(summary.TotalDecisions))
	fmt.Printf("Confirmed Displays:  %s\n", formatNumber(summary.TotalDisplays))
	fmt.Printf("Confirmation Rate:   %.1f%%\n", summary.ConfirmationRate)
	fmt.Printf("Ads in Rotation:     %d\n", len(summary.Ads))
	fmt.Printf("\n")

	// Per-Ad Breakdown
	if len(summary.Ads) > 0 {
		fmt.Printf("📺 AD BREAKDOWN\n")
		fmt.Printf("───────────────────────────────────────────────────────────────────────────────────\n")
		fmt.Printf("Ad ID            | Decisions | Displays |  Share  | Avg Score | Last Decided       \n")
		fmt.Printf("-----------------|-----------|----------|---------|-----------|--------------------\n")
		for _, ad := range summary.Ads {
			fmt.Printf("%-16s | %9s | %8s | %6.1f%% | %9.3f | %s\n",
				ad.AdID,
				formatNumber(ad.Decisions),
				formatNumber(ad.Displays),
				ad.Share,
				ad.AvgScore,
				ad.LastDecided.Format("2006-01-02 15:04"),
			)
		}
		fmt.Printf("\n")
	}

	// Hourly Breakdown
	if len(summary.Hourly) > 0 {
		fmt.Printf("🕐 HOURLY ACTIVITY\n")
		fmt.Printf("───────────────────────────────────────────────────────────────────────────────────\n")
		fmt.Printf("Hour             | Decisions | Displays | Audience Present \n")
		fmt.Printf("-----------------|-----------|----------|------------------\n")
		for _, h := range summary.Hourly {
			fmt.Printf("%-16s | %9s | %8s | %15.1f%%\n",
				h.Hour.Format("2006-01-02 15:00"),
				formatNumber(h.Decisions),
				formatNumber(h.Displays),
				h.AudiencePct,
			)
		}
		fmt.Printf("\n")
	}

	// Insights
	fmt.Printf("💡 INSIGHTS\n")
	fmt.Printf("───────────────────────────────────────────────────────────────────────────────────\n")

	if summary.TotalDecisions == 0 {
		fmt.Printf("⚠️  No decisions recorded - check that the board loop is running and feeds are fresh\n")
	} else if summary.TotalDisplays == 0 {
		fmt.Printf("⚠️  No confirmed displays - check that the board GUI requests the confirm URL\n")
	} else if summary.ConfirmationRate < 50 {
		fmt.Printf("⚠️  Low confirmation rate (%.1f%%) - the GUI may be dropping decisions\n", summary.ConfirmationRate)
	} else {
		fmt.Printf("✅ Healthy confirmation rate (%.1f%%)\n", summary.ConfirmationRate)
	}

	if len(summary.Ads) > 1 {
		top := summary.Ads[0]
		if top.Share > 50 {
			fmt.Printf("⚠️  Ad %s holds %.1f%% of display time - rotation is heavily skewed\n", top.AdID, top.Share)
		} else {
			fmt.Printf("✅ Display time is spread across %d ads (top share %.1f%%)\n", len(summary.Ads), top.Share)
		}
	} else if len(summary.Ads) == 1 {
		fmt.Printf("⚠️  Only one ad active in the window - the catalog may be too small\n")
	}

	var audienceHours int
	for _, h := range summary.Hourly {
		if h.AudiencePct > 0 {
			audienceHours++
		}
	}
	if len(summary.Hourly) > 0 && audienceHours == 0 {
		fmt.Printf("🔍 No audience detected in any hour - check the camera feed\n")
	}

	fmt.Printf("═══════════════════════════════════════════════════════════════════════════════════\n")
}

// formatNumber formats large integers with comma separators for improved readability.
// Example: 1234567 becomes "1,234,567"
func formatNumber(n int64) string {
	str := fmt.Sprintf("%d", n)
	if len(str) <= 3 {
		return str
	}

	result := ""
	for i, digit := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(digit)
	}
	return result
}

// getEnv retrieves an environment variable value or returns a default value if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
