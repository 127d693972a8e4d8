// Package weather enriches the board's sensor context with OpenWeather
// current conditions and a local sky prediction combining both sources.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/edgy2009/adboard/internal/observability"
)

// Conditions is the subset of the OpenWeather current-conditions payload the
// board uses.
type Conditions struct {
	Temperature float64   `json:"temp"`
	Humidity    float64   `json:"humidity"`
	Pressure    float64   `json:"pressure"`
	Sky         string    `json:"sky,omitempty"`
	FetchedAt   time.Time `json:"fetched_at"`
}

type openWeatherResponse struct {
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
		Pressure float64 `json:"pressure"`
	} `json:"main"`
	Weather []struct {
		Main string `json:"main"`
	} `json:"weather"`
}

type cachedConditions struct {
	conditions Conditions
	fetchedAt  time.Time
}

func (c *cachedConditions) isExpired(ttl time.Duration) bool {
	return time.Since(c.fetchedAt) > ttl
}

// Client fetches current conditions for a fixed city. Requests retry
// transient failures, a circuit breaker sheds load when the API is down, and
// the last good reading is served for up to the cache TTL (stale beyond it
// only when the API cannot be reached at all).
type Client struct {
	baseURL  string
	apiKey   string
	city     string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker[Conditions]
	cached   *cachedConditions
	cacheMu  sync.RWMutex
	cacheTTL time.Duration
	logger   *zap.Logger
	metrics  observability.MetricsRegistry
}

// NewClient creates an OpenWeather client.
func NewClient(baseURL, apiKey, city string, timeout, cacheTTL time.Duration, logger *zap.Logger, metrics observability.MetricsRegistry) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = log.New(io.Discard, "", 0)
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 250 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.HTTPClient.Timeout = timeout

	breaker := gobreaker.NewCircuitBreaker[Conditions](gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("weather breaker state change",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Client{
		baseURL:  baseURL,
		apiKey:   apiKey,
		city:     city,
		http:     retryClient.StandardClient(),
		breaker:  breaker,
		cacheTTL: cacheTTL,
		logger:   logger,
		metrics:  metrics,
	}
}

// Current returns conditions for the configured city. A fresh cached reading
// short-circuits the API entirely; a failed fetch falls back to the last
// reading of any age before giving up.
func (c *Client) Current(ctx context.Context) (Conditions, error) {
	c.cacheMu.RLock()
	cached := c.cached
	c.cacheMu.RUnlock()

	if cached != nil && !cached.isExpired(c.cacheTTL) {
		return cached.conditions, nil
	}

	conditions, err := c.breaker.Execute(func() (Conditions, error) {
		return c.fetch(ctx)
	})
	if err != nil {
		if cached != nil {
			c.logger.Warn("weather API unavailable, serving last reading",
				zap.Error(err),
				zap.Time("fetched_at", cached.fetchedAt))
			return cached.conditions, nil
		}
		return Conditions{}, fmt.Errorf("weather fetch: %w", err)
	}

	c.cacheMu.Lock()
	c.cached = &cachedConditions{conditions: conditions, fetchedAt: conditions.FetchedAt}
	c.cacheMu.Unlock()

	return conditions, nil
}

// fetch makes the actual HTTP call to the OpenWeather API.
func (c *Client) fetch(ctx context.Context) (Conditions, error) {
	outcome := "success"
	defer func() {
		c.metrics.IncrementWeatherRequests(outcome)
	}()

	endpoint := fmt.Sprintf("%s?q=%s&appid=%s&units=metric", c.baseURL, url.QueryEscape(c.city), c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		outcome = "failure"
		return Conditions{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		outcome = "failure"
		return Conditions{}, fmt.Errorf("http request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("failed to close response body", zap.Error(err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		outcome = "failure"
		body, _ := io.ReadAll(resp.Body)
		return Conditions{}, fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
	}

	var payload openWeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		outcome = "failure"
		return Conditions{}, fmt.Errorf("decode response: %w", err)
	}

	conditions := Conditions{
		Temperature: payload.Main.Temp,
		Humidity:    payload.Main.Humidity,
		Pressure:    payload.Main.Pressure,
		FetchedAt:   time.Now(),
	}
	if len(payload.Weather) > 0 {
		conditions.Sky = payload.Weather[0].Main
	}
	return conditions, nil
}

// Available reports whether the circuit breaker would admit a request.
func (c *Client) Available() bool {
	return c.breaker.State() != gobreaker.StateOpen
}

// ClearCache drops the cached reading.
func (c *Client) ClearCache() {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	c.cached = nil
}

// SetBaseURL sets the API base URL (for testing).
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}
