package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ScoreWeights is one set of combined-score weights. The three weights are
// expected to sum to 1.0 but that is a tuning convention, not enforced.
type ScoreWeights struct {
	Demographic   float64
	Environmental float64
	History       float64
}

// DecisionPolicy holds the tunable constants of the decision engine. The
// defaults are the canonical policy; operators override individual factors
// through the environment rather than editing code.
type DecisionPolicy struct {
	GenderMismatchFactor      float64
	AgeMismatchFactor         float64
	PerfectMatchBonus         float64
	TemperatureMismatchFactor float64
	HumidityMismatchFactor    float64
	// HistoryDecayRate is the per-cycle geometric decay applied to the
	// novelty penalty. The most recent display carries the full penalty.
	HistoryDecayRate float64
	HistoryLimit     int
	// TopCandidates is the size of the weighted-draw pool after ranking.
	TopCandidates          int
	WeightsWithAudience    ScoreWeights
	WeightsWithoutAudience ScoreWeights
}

// ClassifierThresholds are the band boundaries for raw sensor values.
// Boundary values fall into the extreme band (25.0 degrees is "hot").
type ClassifierThresholds struct {
	TempHighC       float64
	TempLowC        float64
	HumidityHighPct float64
	HumidityLowPct  float64
}

// Config holds application configuration derived from environment variables.
type Config struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	ServiceName  string
	BoardID      string

	// Data feeds written by the sensor modules or the simulator.
	EnvFeedPath      string
	AudienceFeedPath string
	FeedMaxAge       time.Duration
	FeedReadTimeout  time.Duration

	// Catalog sources, in precedence order: Postgres, JSON file, embedded.
	PostgresDSN string
	CatalogPath string

	// History persistence.
	HistoryBackend string // "file" or "redis"
	HistoryPath    string
	HistoryLockTTL time.Duration

	RedisAddr     string
	ClickHouseDSN string

	DisplayInterval time.Duration
	ReloadInterval  time.Duration
	ImageBaseURL    string
	PublicBaseURL   string
	DebugTrace      bool

	TokenSecret string
	TokenTTL    time.Duration

	RateLimitEnabled    bool
	RateLimitCapacity   int
	RateLimitRefillRate int

	// OpenWeather enrichment used by the simulator and the dashboard.
	WeatherAPIEnabled bool
	WeatherAPIKey     string
	WeatherAPIURL     string
	WeatherCity       string
	WeatherTimeout    time.Duration
	WeatherCacheTTL   time.Duration

	// Optional MQTT sensor bridge.
	MQTTBrokerURL   string
	MQTTTopicPrefix string
	MQTTClientID    string

	Decision   DecisionPolicy
	Thresholds ClassifierThresholds

	// Database connection pooling configuration
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBConnMaxIdleTime time.Duration

	// ClickHouse connection pooling configuration
	CHMaxOpenConns    int
	CHMaxIdleConns    int
	CHConnMaxLifetime time.Duration
	CHConnMaxIdleTime time.Duration

	// Tracing configuration
	TracingEnabled    bool
	TempoEndpoint     string
	TracingSampleRate float64
}

// Load parses environment variables and returns a Config populated with
// defaults when variables are absent. A .env file in the working directory
// is read first so local setups match the deployed boards.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{}

	cfg.Port = getenv("PORT", "8686")
	cfg.ReadTimeout = envDuration("READ_TIMEOUT", 5*time.Second)
	cfg.WriteTimeout = envDuration("WRITE_TIMEOUT", 10*time.Second)
	cfg.ServiceName = getenv("SERVICE_NAME", "adboard")
	cfg.BoardID = getenv("BOARD_ID", "board-1")

	cfg.EnvFeedPath = getenv("ENV_FEED_PATH", "data/weather_data.json")
	cfg.AudienceFeedPath = getenv("AUDIENCE_FEED_PATH", "data/engagement_data.json")
	cfg.FeedMaxAge = envDuration("FEED_MAX_AGE", 2*time.Minute)
	cfg.FeedReadTimeout = envDuration("FEED_READ_TIMEOUT", 2*time.Second)

	// Empty DSNs disable the corresponding backend; the board then runs off
	// the embedded catalog and file-based history.
	cfg.PostgresDSN = getenv("POSTGRES_DSN", "")
	cfg.CatalogPath = getenv("CATALOG_PATH", "")
	cfg.RedisAddr = getenv("REDIS_ADDR", "")
	cfg.ClickHouseDSN = getenv("CLICKHOUSE_DSN", "")

	cfg.HistoryBackend = getenv("HISTORY_BACKEND", "file")
	cfg.HistoryPath = getenv("HISTORY_PATH", "data/ad_display_history.json")
	cfg.HistoryLockTTL = envDuration("HISTORY_LOCK_TTL", 2*time.Second)

	cfg.DisplayInterval = envDuration("DISPLAY_INTERVAL", 5*time.Second)
	cfg.ReloadInterval = envDuration("RELOAD_INTERVAL", 30*time.Second)
	cfg.ImageBaseURL = getenv("IMAGE_BASE_URL", "https://adsbucket2009.s3.us-east-1.amazonaws.com")
	cfg.PublicBaseURL = getenv("PUBLIC_BASE_URL", "http://localhost:8686")
	cfg.DebugTrace = envBool("DEBUG_TRACE", false)

	cfg.TokenSecret = getenv("TOKEN_SECRET", "")
	cfg.TokenTTL = envDuration("TOKEN_TTL", 2*time.Minute)

	cfg.RateLimitEnabled = envBool("RATE_LIMIT_ENABLED", true)
	cfg.RateLimitCapacity = envInt("RATE_LIMIT_CAPACITY", 60)
	cfg.RateLimitRefillRate = envInt("RATE_LIMIT_REFILL_RATE", 10)

	cfg.WeatherAPIEnabled = envBool("WEATHER_API_ENABLED", false)
	cfg.WeatherAPIKey = getenv("OPENWEATHER_API_KEY", "")
	cfg.WeatherAPIURL = getenv("OPENWEATHER_API_URL", "https://api.openweathermap.org/data/2.5/weather")
	cfg.WeatherCity = getenv("OPENWEATHER_CITY", "Singapore")
	cfg.WeatherTimeout = envDuration("WEATHER_TIMEOUT", 5*time.Second)
	// The original sensor module refreshed API data every 5 minutes.
	cfg.WeatherCacheTTL = envDuration("WEATHER_CACHE_TTL", 5*time.Minute)

	cfg.MQTTBrokerURL = getenv("MQTT_BROKER_URL", "")
	cfg.MQTTTopicPrefix = getenv("MQTT_TOPIC_PREFIX", "adboard")
	cfg.MQTTClientID = getenv("MQTT_CLIENT_ID", "adboard-"+cfg.BoardID)

	cfg.Decision = DecisionPolicy{
		GenderMismatchFactor:      envFloat("GENDER_MISMATCH_FACTOR", 0.10),
		AgeMismatchFactor:         envFloat("AGE_MISMATCH_FACTOR", 0.20),
		PerfectMatchBonus:         envFloat("PERFECT_MATCH_BONUS", 2.0),
		TemperatureMismatchFactor: envFloat("TEMPERATURE_MISMATCH_FACTOR", 0.20),
		HumidityMismatchFactor:    envFloat("HUMIDITY_MISMATCH_FACTOR", 0.70),
		HistoryDecayRate:          envFloat("HISTORY_DECAY_RATE", 0.90),
		HistoryLimit:              envInt("HISTORY_LIMIT", 50),
		TopCandidates:             envInt("TOP_CANDIDATES", 3),
		WeightsWithAudience: ScoreWeights{
			Demographic:   envFloat("AUDIENCE_WEIGHT_DEMOGRAPHIC", 0.70),
			Environmental: envFloat("AUDIENCE_WEIGHT_ENVIRONMENTAL", 0.10),
			History:       envFloat("AUDIENCE_WEIGHT_HISTORY", 0.20),
		},
		WeightsWithoutAudience: ScoreWeights{
			Demographic:   envFloat("NO_AUDIENCE_WEIGHT_DEMOGRAPHIC", 0.10),
			Environmental: envFloat("NO_AUDIENCE_WEIGHT_ENVIRONMENTAL", 0.60),
			History:       envFloat("NO_AUDIENCE_WEIGHT_HISTORY", 0.30),
		},
	}

	cfg.Thresholds = ClassifierThresholds{
		TempHighC:       envFloat("TEMP_HIGH_C", 25.0),
		TempLowC:        envFloat("TEMP_LOW_C", 15.0),
		HumidityHighPct: envFloat("HUMIDITY_HIGH_PCT", 70.0),
		HumidityLowPct:  envFloat("HUMIDITY_LOW_PCT", 40.0),
	}

	// Database connection pooling configuration
	cfg.DBMaxOpenConns = envInt("DB_MAX_OPEN_CONNS", 10)
	cfg.DBMaxIdleConns = envInt("DB_MAX_IDLE_CONNS", 5)
	cfg.DBConnMaxLifetime = envDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	cfg.DBConnMaxIdleTime = envDuration("DB_CONN_MAX_IDLE_TIME", 1*time.Minute)

	// ClickHouse connection pooling configuration
	cfg.CHMaxOpenConns = envInt("CH_MAX_OPEN_CONNS", 25)
	cfg.CHMaxIdleConns = envInt("CH_MAX_IDLE_CONNS", 10)
	cfg.CHConnMaxLifetime = envDuration("CH_CONN_MAX_LIFETIME", 5*time.Minute)
	cfg.CHConnMaxIdleTime = envDuration("CH_CONN_MAX_IDLE_TIME", 1*time.Minute)

	// Tracing configuration
	cfg.TracingEnabled = envBool("TRACING_ENABLED", false)
	cfg.TempoEndpoint = getenv("TEMPO_ENDPOINT", "tempo:4317")
	cfg.TracingSampleRate = envFloat("TRACING_SAMPLE_RATE", 1.0)

	return cfg
}

// getenv returns the value of the environment variable if set, otherwise def.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envDuration parses an environment variable into a time.Duration.
// The value can be a duration string (e.g. "5s") or a number of seconds.
// If the variable is unset or invalid, def is returned.
func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}

// envBool parses a boolean environment variable. Accepted values are those
// supported by strconv.ParseBool. When unset or invalid, def is returned.
func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return def
}

// envInt parses an integer environment variable. When unset or invalid, def is returned.
func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil {
		return i
	}
	return def
}

// envFloat parses a float64 environment variable. When unset or invalid, def is returned.
func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return def
}
