// Command mcp-server exposes the board's catalog, decision engine and
// reporting over the Model Context Protocol so agent tooling can inspect
// inventory, preview selections and pull display reports without going
// through the HTTP API.
package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2" // ClickHouse driver
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/edgy2009/adboard/internal/analytics"
	"github.com/edgy2009/adboard/internal/classify"
	"github.com/edgy2009/adboard/internal/config"
	"github.com/edgy2009/adboard/internal/db"
	"github.com/edgy2009/adboard/internal/engine"
	"github.com/edgy2009/adboard/internal/history"
	"github.com/edgy2009/adboard/internal/models"
	"github.com/edgy2009/adboard/internal/observability"
	"github.com/edgy2009/adboard/internal/reporting"
)

type ListAdsInput struct {
	AgeGroup    string `json:"age_group,omitempty"`
	Gender      string `json:"gender,omitempty"`
	Temperature string `json:"temperature,omitempty"`
	Humidity    string `json:"humidity,omitempty"`
}

type ListAdsOutput struct {
	Ads   []models.Ad `json:"ads"`
	Count int         `json:"count"`
}

type PreviewDecisionInput struct {
	Temperature        float64 `json:"temperature"`
	Humidity           float64 `json:"humidity"`
	Weather            string  `json:"weather,omitempty"`
	AudiencePresent    bool    `json:"audience_present"`
	AudienceCount      int     `json:"audience_count,omitempty"`
	AgeGroup           string  `json:"age_group,omitempty"`
	GenderDistribution string  `json:"gender_distribution,omitempty"`
	Debug              bool    `json:"debug,omitempty"`
}

type PreviewDecisionOutput struct {
	Decision *engine.Decision `json:"decision"`
}

type DisplayReportInput struct {
	BoardID string `json:"board_id,omitempty"`
	Days    int    `json:"days,omitempty"`
}

type DisplayReportOutput struct {
	Summary *reporting.BoardSummary `json:"summary"`
}

// BoardServer holds the dependencies behind the MCP tools.
type BoardServer struct {
	catalog    models.Catalog
	engine     *engine.Engine
	ch         *sql.DB
	boardID    string
	thresholds config.ClassifierThresholds
	logger     *zap.Logger
}

// ListAds implements the list_ads tool. Empty filter fields match
// everything; set fields use the catalog's two-sided wildcard rule.
func (s *BoardServer) ListAds(ctx context.Context, req *mcp.CallToolRequest, input ListAdsInput) (*mcp.CallToolResult, ListAdsOutput, error) {
	criteria := models.Criteria{}
	if input.AgeGroup != "" {
		criteria[models.FieldAgeGroup] = input.AgeGroup
	}
	if input.Gender != "" {
		criteria[models.FieldGender] = input.Gender
	}
	if input.Temperature != "" {
		criteria[models.FieldTemperature] = input.Temperature
	}
	if input.Humidity != "" {
		criteria[models.FieldHumidity] = input.Humidity
	}

	var ads []models.Ad
	if len(criteria) == 0 {
		ads = s.catalog.GetAllAds()
	} else {
		ads = s.catalog.FilterAds(criteria)
	}
	if ads == nil {
		ads = []models.Ad{}
	}

	s.logger.Info("list_ads", zap.Int("matched", len(ads)), zap.Any("criteria", criteria))
	return nil, ListAdsOutput{Ads: ads, Count: len(ads)}, nil
}

// PreviewDecision implements the preview_decision tool: it scores a
// hypothetical context through the full pipeline without recording history
// or analytics, so agents can ask "what would the board show if".
func (s *BoardServer) PreviewDecision(ctx context.Context, req *mcp.CallToolRequest, input PreviewDecisionInput) (*mcp.CallToolResult, PreviewDecisionOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	env := classify.Environment(models.EnvironmentReading{
		Timestamp:   time.Now().UTC(),
		Temperature: input.Temperature,
		Humidity:    input.Humidity,
		Weather:     input.Weather,
	}, s.thresholds)

	audience := models.AbsentAudience()
	if input.AudiencePresent {
		count := input.AudienceCount
		if count == 0 {
			count = 1
		}
		ageGroup := input.AgeGroup
		if ageGroup == "" {
			ageGroup = models.AgeAll
		}
		distribution := input.GenderDistribution
		if distribution == "" {
			distribution = models.GenderMixed
		}
		audience = models.AudienceProfile{
			Present:            true,
			Count:              count,
			AgeGroup:           ageGroup,
			GenderDistribution: distribution,
			Timestamp:          time.Now().UTC(),
		}
	}

	decision, err := s.engine.Preview(ctx, env, audience, input.Debug)
	if err != nil {
		return nil, PreviewDecisionOutput{}, fmt.Errorf("preview decision: %w", err)
	}

	s.logger.Info("preview_decision",
		zap.String("ad_id", decision.Selected.Ad.ID),
		zap.String("stage", decision.Stage),
		zap.String("temperature_category", env.TemperatureCategory),
		zap.Bool("audience_present", audience.Present))
	return nil, PreviewDecisionOutput{Decision: decision}, nil
}

// DisplayReport implements the display_report tool over the ClickHouse
// display event log.
func (s *BoardServer) DisplayReport(ctx context.Context, req *mcp.CallToolRequest, input DisplayReportInput) (*mcp.CallToolResult, DisplayReportOutput, error) {
	if s.ch == nil {
		return nil, DisplayReportOutput{}, fmt.Errorf("analytics not configured: set CLICKHOUSE_DSN")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	boardID := input.BoardID
	if boardID == "" {
		boardID = s.boardID
	}
	days := input.Days
	if days <= 0 {
		days = 7
	}

	summary, err := reporting.GenerateBoardReport(ctx, s.ch, boardID, days)
	if err != nil {
		return nil, DisplayReportOutput{}, fmt.Errorf("generate report: %w", err)
	}

	s.logger.Info("display_report",
		zap.String("board_id", boardID),
		zap.Int("days", days),
		zap.Int64("decisions", summary.TotalDecisions))
	return nil, DisplayReportOutput{Summary: summary}, nil
}

func main() {
	// Logger goes to stderr; stdout belongs to the MCP stdio transport.
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}

	zcfg.EncoderConfig.TimeKey = "ts"
	zcfg.EncoderConfig.LevelKey = "level"
	zcfg.EncoderConfig.NameKey = "logger"
	zcfg.EncoderConfig.CallerKey = "caller"
	zcfg.EncoderConfig.MessageKey = "msg"
	zcfg.EncoderConfig.StacktraceKey = "stacktrace"

	logger, err := zcfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger = logger.Named("adboard-mcp").With(zap.String("service", "adboard-mcp"))

	logger.Info("Starting ad board MCP server")

	cfg := config.Load()
	metrics := observability.NewNoOpRegistry()

	catalog := models.NewInMemoryCatalog()
	switch {
	case cfg.PostgresDSN != "":
		pg, err := db.InitPostgres(cfg.PostgresDSN, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)
		if err != nil {
			logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
		}
		defer pg.Close()
		count, err := db.LoadCatalog(pg, catalog)
		if err != nil {
			logger.Fatal("Failed to load catalog", zap.Error(err))
		}
		logger.Info("Catalog loaded from Postgres", zap.Int("ads", count))
	case cfg.CatalogPath != "":
		count, err := db.LoadCatalogFile(cfg.CatalogPath, catalog)
		if err != nil {
			logger.Fatal("Failed to load catalog file", zap.Error(err))
		}
		logger.Info("Catalog loaded from file", zap.String("path", cfg.CatalogPath), zap.Int("ads", count))
	default:
		if err := catalog.SetAds(models.DefaultAds()); err != nil {
			logger.Fatal("Failed to seed catalog", zap.Error(err))
		}
		logger.Info("Using embedded catalog", zap.Int("ads", catalog.Len()))
	}

	// Read-only ClickHouse handle for reports; the server keeps working
	// without it, only display_report is refused.
	var chDB *sql.DB
	if cfg.ClickHouseDSN != "" {
		chDB, err = sql.Open("clickhouse", cfg.ClickHouseDSN)
		if err != nil {
			logger.Warn("Failed to open ClickHouse, reports disabled", zap.Error(err))
			chDB = nil
		} else {
			chDB.SetMaxOpenConns(5)
			if err := chDB.PingContext(context.Background()); err != nil {
				logger.Warn("ClickHouse ping failed, reports disabled", zap.Error(err))
				chDB.Close()
				chDB = nil
			} else {
				logger.Info("ClickHouse connected")
				defer chDB.Close()
			}
		}
	}

	// A file-backed history makes previews reflect what the live board
	// actually displayed recently; otherwise previews score with a blank
	// repetition record.
	var hist history.Store
	if cfg.HistoryBackend == "file" {
		hist = history.NewFileStore(cfg.HistoryPath, cfg.Decision.HistoryLimit, cfg.HistoryLockTTL, logger, metrics)
	} else {
		hist = history.NewMemoryStore(cfg.Decision.HistoryLimit)
	}

	var analyticsSvc *analytics.Analytics
	eng := engine.New(catalog, hist, analyticsSvc, cfg.Decision, cfg.BoardID, logger, metrics)

	boardServer := &BoardServer{
		catalog:    catalog,
		engine:     eng,
		ch:         chDB,
		boardID:    cfg.BoardID,
		thresholds: cfg.Thresholds,
		logger:     logger,
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "adboard",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_ads",
		Description: "List the advertisement catalog, optionally filtered by targeting fields",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"age_group": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"child", "teen", "adult", "senior", "all"},
					"description": "Filter by target age group (optional)",
				},
				"gender": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"male", "female", "both"},
					"description": "Filter by target gender (optional)",
				},
				"temperature": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"hot", "mild", "cold", "any"},
					"description": "Filter by target temperature band (optional)",
				},
				"humidity": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"high", "medium", "low", "any"},
					"description": "Filter by target humidity band (optional)",
				},
			},
		},
	}, boardServer.ListAds)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "preview_decision",
		Description: "Score a hypothetical sensor context through the decision pipeline without recording anything",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"temperature": map[string]interface{}{
					"type":        "number",
					"description": "Raw temperature in Celsius",
				},
				"humidity": map[string]interface{}{
					"type":        "number",
					"description": "Raw relative humidity percentage",
				},
				"weather": map[string]interface{}{
					"type":        "string",
					"description": "Weather label, e.g. sunny or rainy (optional)",
				},
				"audience_present": map[string]interface{}{
					"type":        "boolean",
					"description": "Whether anyone is in front of the board",
				},
				"audience_count": map[string]interface{}{
					"type":        "integer",
					"description": "Number of people detected (optional, defaults to 1 when present)",
				},
				"age_group": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"child", "teen", "adult", "senior", "all"},
					"description": "Majority age group of the audience (optional)",
				},
				"gender_distribution": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"mostly_male", "mostly_female", "mixed"},
					"description": "Gender distribution of the audience (optional)",
				},
				"debug": map[string]interface{}{
					"type":        "boolean",
					"description": "Include the per-stage decision trace (optional)",
				},
			},
			"required": []string{"temperature", "humidity", "audience_present"},
		},
	}, boardServer.PreviewDecision)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "display_report",
		Description: "Generate a display activity report for a board from the analytics event log",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"board_id": map[string]interface{}{
					"type":        "string",
					"description": "Board to report on (optional, defaults to this board)",
				},
				"days": map[string]interface{}{
					"type":        "integer",
					"minimum":     1,
					"description": "Reporting window in days (optional, defaults to 7)",
				},
			},
		},
	}, boardServer.DisplayReport)

	stdioTransport := &mcp.StdioTransport{}

	var logBuffer bytes.Buffer
	loggingTransport := &mcp.LoggingTransport{
		Transport: stdioTransport,
		Writer:    &logBuffer,
	}

	logger.Info("MCP server running via stdio")

	if err := server.Run(context.Background(), loggingTransport); err != nil {
		logger.Fatal("Server error", zap.Error(err), zap.String("mcp_logs", logBuffer.String()))
	}
}
