// Command fake_data seeds a development environment: it restores the stock
// catalog in Postgres, generates extra ads with varied targeting, primes the
// sensor feed files and asks a running board to reload its catalog.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/edgy2009/adboard/internal/config"
	"github.com/edgy2009/adboard/internal/db"
	"github.com/edgy2009/adboard/internal/models"
	"github.com/edgy2009/adboard/internal/observability"
	"github.com/edgy2009/adboard/internal/sim"
)

var (
	extraAds   = flag.Int("extra", 12, "extra generated ads on top of the stock catalog")
	seed       = flag.Int64("seed", time.Now().UnixNano(), "rng seed")
	primeFeeds = flag.Bool("prime-feeds", true, "write one fresh record into each sensor feed")
	skipReload = flag.Bool("skip-reload", false, "skip automatic reload after data insertion")
)

func main() {
	flag.Parse()

	logger, err := observability.InitLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg := config.Load()
	if cfg.PostgresDSN == "" {
		fmt.Fprintf(os.Stderr, "POSTGRES_DSN is required\n")
		os.Exit(1)
	}
	pg, err := db.InitPostgres(cfg.PostgresDSN, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect postgres: %v\n", err)
		os.Exit(1)
	}
	defer pg.Close()

	r := rand.New(rand.NewSource(*seed))

	// Restore the stock catalog first so a wiped table comes back whole.
	for _, ad := range models.DefaultAds() {
		if err := pg.UpsertAd(ad); err != nil {
			logger.Fatal("upsert stock ad", zap.String("ad_id", ad.ID), zap.Error(err))
		}
	}

	for i := 0; i < *extraAds; i++ {
		ad := randomAd(r, 100+i)
		if err := pg.UpsertAd(ad); err != nil {
			logger.Fatal("insert generated ad", zap.String("ad_id", ad.ID), zap.Error(err))
		}
	}

	fmt.Printf("catalog seeded: %d stock + %d generated ads\n", len(models.DefaultAds()), *extraAds)

	if *primeFeeds {
		writer := sim.NewFeedWriter(cfg.EnvFeedPath, cfg.AudienceFeedPath, 0)
		ts := time.Now().UTC()
		envScenarios := sim.EnvironmentScenarios()
		audScenarios := sim.AudienceScenarios()
		env := envScenarios[r.Intn(len(envScenarios))]
		aud := audScenarios[r.Intn(len(audScenarios))]
		if err := writer.AppendEnvironment(env.Reading(ts, r)); err != nil {
			logger.Error("prime environmental feed", zap.Error(err))
		}
		if err := writer.AppendAudience(aud.Reading(ts, r)); err != nil {
			logger.Error("prime audience feed", zap.Error(err))
		}
		fmt.Printf("feeds primed: %s / %s\n", env.Name, aud.Name)
	}

	if !*skipReload {
		if err := callReloadEndpoint(&cfg); err != nil {
			logger.Error("reload endpoint failed", zap.Error(err))
			fmt.Fprintf(os.Stderr, "Warning: failed to reload board catalog: %v\n", err)
		} else {
			fmt.Println("board catalog reloaded")
		}
	}
}

// randomAd builds a catalog entry with plausible branding and a random but
// canonical targeting combination.
func randomAd(r *rand.Rand, n int) models.Ad {
	brands := []string{"aurora", "northwind", "solace", "brightline", "cascade", "meridian", "lumen", "harbor"}
	products := []string{"coffee", "sneakers", "headphones", "smoothie", "jacket", "watch", "bike", "soda"}
	ages := []string{models.AgeChild, models.AgeTeen, models.AgeAdult, models.AgeSenior, models.AgeAll}
	genders := []string{models.GenderMale, models.GenderFemale, models.GenderBoth}
	temps := []string{models.TempHot, models.TempMild, models.TempCold, models.TempAny}
	humidities := []string{models.HumidityHigh, models.HumidityMedium, models.HumidityLow, models.HumidityAny}

	title := fmt.Sprintf("%s %s", brands[r.Intn(len(brands))], products[r.Intn(len(products))])
	return models.Ad{
		ID:          fmt.Sprintf("%d", n),
		Title:       title,
		ImageFile:   fmt.Sprintf("ad_%d.jpg", n),
		AgeGroup:    ages[r.Intn(len(ages))],
		Gender:      genders[r.Intn(len(genders))],
		Temperature: temps[r.Intn(len(temps))],
		Humidity:    humidities[r.Intn(len(humidities))],
	}
}

func callReloadEndpoint(cfg *config.Config) error {
	reloadURL := cfg.PublicBaseURL + "/api/reload"
	req, err := http.NewRequest("POST", reloadURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return nil
}
