// Command simulator writes generated sensor data into the board's feed
// files so a full decision pipeline can run without camera or weather
// hardware. Each cycle appends one environmental and one audience record,
// drawn from the canonical scenarios or pinned via flags. With
// -live-weather the environmental record carries real conditions from the
// OpenWeather API instead of scenario values.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/edgy2009/adboard/internal/config"
	"github.com/edgy2009/adboard/internal/models"
	"github.com/edgy2009/adboard/internal/observability"
	"github.com/edgy2009/adboard/internal/sim"
	"github.com/edgy2009/adboard/internal/weather"
)

var (
	envFeed          string
	audienceFeed     string
	cycles           int
	interval         time.Duration
	envScenario      string
	audienceScenario string
	jitter           bool
	maxEntries       int
	liveWeather      bool
	city             string
	debug            bool
)

var logger *zap.Logger

func main() {
	flag.StringVar(&envFeed, "env-feed", "data/weather_data.json", "environmental feed file to write")
	flag.StringVar(&audienceFeed, "audience-feed", "data/engagement_data.json", "audience feed file to write")
	flag.IntVar(&cycles, "cycles", 20, "number of write cycles (0 to run until interrupted)")
	flag.DurationVar(&interval, "interval", 5*time.Second, "delay between cycles")
	flag.StringVar(&envScenario, "env-scenario", "", "pin the environment scenario by name (default: random per cycle)")
	flag.StringVar(&audienceScenario, "audience-scenario", "", "pin the audience scenario by name (default: random per cycle)")
	flag.BoolVar(&jitter, "jitter", true, "add sensor-style noise to generated values")
	flag.IntVar(&maxEntries, "max-entries", sim.DefaultMaxEntries, "records retained per feed file")
	flag.BoolVar(&liveWeather, "live-weather", false, "write real conditions from the OpenWeather API (needs OPENWEATHER_API_KEY)")
	flag.StringVar(&city, "city", "", "city for live weather (defaults to WEATHER_CITY)")
	flag.BoolVar(&debug, "debug", false, "enable verbose debug logs")
	flag.Parse()

	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}
	var err error
	logger, err = observability.InitLoggerWithLevel(level, "simulator")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	envScenarios := sim.EnvironmentScenarios()
	audienceScenarios := sim.AudienceScenarios()

	var pinnedEnv *sim.EnvironmentScenario
	if envScenario != "" {
		s, ok := sim.FindEnvironmentScenario(envScenario)
		if !ok {
			logger.Fatal("unknown environment scenario",
				zap.String("name", envScenario),
				zap.Strings("available", environmentNames(envScenarios)))
		}
		pinnedEnv = &s
	}
	var pinnedAudience *sim.AudienceScenario
	if audienceScenario != "" {
		s, ok := sim.FindAudienceScenario(audienceScenario)
		if !ok {
			logger.Fatal("unknown audience scenario",
				zap.String("name", audienceScenario),
				zap.Strings("available", audienceNames(audienceScenarios)))
		}
		pinnedAudience = &s
	}

	var weatherClient *weather.Client
	if liveWeather {
		cfg := config.Load()
		if cfg.WeatherAPIKey == "" {
			logger.Fatal("live weather requires OPENWEATHER_API_KEY")
		}
		if city == "" {
			city = cfg.WeatherCity
		}
		weatherClient = weather.NewClient(cfg.WeatherAPIURL, cfg.WeatherAPIKey, city,
			cfg.WeatherTimeout, cfg.WeatherCacheTTL, logger, observability.NewNoOpRegistry())
		logger.Info("live weather enabled", zap.String("city", city))
	}

	writer := sim.NewFeedWriter(envFeed, audienceFeed, maxEntries)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	var jitterRng *rand.Rand
	if jitter {
		jitterRng = rng
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("simulation starting",
		zap.String("env_feed", envFeed),
		zap.String("audience_feed", audienceFeed),
		zap.Int("cycles", cycles),
		zap.Duration("interval", interval))

	var written, errCount int
	for i := 0; cycles == 0 || i < cycles; i++ {
		env := pick(rng, envScenarios, pinnedEnv)
		aud := pick(rng, audienceScenarios, pinnedAudience)
		ts := time.Now().UTC()

		envReading := env.Reading(ts, jitterRng)
		source := env.Name
		if weatherClient != nil {
			if cond, err := weatherClient.Current(ctx); err != nil {
				logger.Warn("live weather fetch failed, using scenario values", zap.Error(err))
			} else {
				sky := cond.Sky
				if sky == "" {
					sky = weather.PredictLocal(cond.Temperature, cond.Humidity, cond)
				}
				envReading = models.EnvironmentReading{
					Timestamp:   ts,
					Temperature: cond.Temperature,
					Humidity:    cond.Humidity,
					Weather:     sky,
				}
				source = "live:" + city
			}
		}

		if err := writer.AppendEnvironment(envReading); err != nil {
			errCount++
			logger.Error("write environmental feed", zap.Error(err))
		}
		if err := writer.AppendAudience(aud.Reading(ts, jitterRng)); err != nil {
			errCount++
			logger.Error("write audience feed", zap.Error(err))
		}
		written++

		logger.Info("cycle written",
			zap.Int("cycle", i+1),
			zap.String("environment", source),
			zap.Float64("temperature", envReading.Temperature),
			zap.Float64("humidity", envReading.Humidity),
			zap.String("audience", aud.Name),
			zap.Int("audience_count", len(aud.Members)),
			zap.String("age_group", aud.AgeGroup),
			zap.String("gender_distribution", aud.Distribution))

		if cycles > 0 && i == cycles-1 {
			break
		}
		select {
		case <-ctx.Done():
		case <-time.After(interval):
		}
		if ctx.Err() != nil {
			logger.Info("interrupted")
			break
		}
	}

	logger.Info("simulation complete",
		zap.Int("cycles_written", written),
		zap.Int("errors", errCount))
}

// pick returns the pinned scenario when set, otherwise a uniform draw.
func pick[T any](rng *rand.Rand, all []T, pinned *T) T {
	if pinned != nil {
		return *pinned
	}
	return all[rng.Intn(len(all))]
}

func environmentNames(scenarios []sim.EnvironmentScenario) []string {
	names := make([]string, 0, len(scenarios))
	for _, s := range scenarios {
		names = append(names, s.Name)
	}
	return names
}

func audienceNames(scenarios []sim.AudienceScenario) []string {
	names := make([]string, 0, len(scenarios))
	for _, s := range scenarios {
		names = append(names, s.Name)
	}
	return names
}
