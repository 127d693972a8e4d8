package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/edgy2009/adboard/internal/observability"
)

const conditionsJSON = `{"main": {"temp": 29.4, "humidity": 74, "pressure": 1008}, "weather": [{"main": "Clouds"}]}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-key", "Singapore", 2*time.Second, 5*time.Minute, zap.NewNop(), observability.NewNoOpRegistry())
}

func TestCurrent_FetchesAndCaches(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		q := r.URL.Query()
		if q.Get("q") != "Singapore" || q.Get("appid") != "test-key" || q.Get("units") != "metric" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(conditionsJSON))
	})

	got, err := client.Current(context.Background())
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if got.Temperature != 29.4 || got.Humidity != 74 || got.Pressure != 1008 {
		t.Errorf("unexpected conditions: %+v", got)
	}
	if got.Sky != "Clouds" {
		t.Errorf("expected sky from the weather block, got %q", got.Sky)
	}

	// A second call inside the TTL must not touch the API.
	if _, err := client.Current(context.Background()); err != nil {
		t.Fatalf("cached Current failed: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected exactly one API call, got %d", calls.Load())
	}
}

func TestCurrent_RefetchesAfterTTL(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(conditionsJSON))
	})

	if _, err := client.Current(context.Background()); err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	client.cached.fetchedAt = time.Now().Add(-10 * time.Minute)

	if _, err := client.Current(context.Background()); err != nil {
		t.Fatalf("Current after expiry failed: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected a refetch after the TTL, got %d calls", calls.Load())
	}
}

func TestCurrent_ServesStaleReadingOnFailure(t *testing.T) {
	var fail atomic.Bool
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, "city not found", http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(conditionsJSON))
	})

	first, err := client.Current(context.Background())
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}

	fail.Store(true)
	client.cached.fetchedAt = time.Now().Add(-10 * time.Minute)

	stale, err := client.Current(context.Background())
	if err != nil {
		t.Fatalf("a stale reading beats an error: %v", err)
	}
	if stale.Temperature != first.Temperature {
		t.Errorf("expected the previous reading, got %+v", stale)
	}
}

func TestCurrent_ErrorWithoutCache(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	})

	if _, err := client.Current(context.Background()); err == nil {
		t.Fatal("expected an error with no cached reading")
	}
}

func TestCurrent_RetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "flaky", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(conditionsJSON))
	})

	if _, err := client.Current(context.Background()); err != nil {
		t.Fatalf("expected the retry to recover: %v", err)
	}
	if calls.Load() < 2 {
		t.Errorf("expected at least 2 attempts, got %d", calls.Load())
	}
}

func TestCurrent_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusNotFound)
	})

	for i := 0; i < 3; i++ {
		if _, err := client.Current(context.Background()); err == nil {
			t.Fatalf("call %d should fail", i)
		}
	}
	if client.Available() {
		t.Fatal("expected the breaker to be open after 3 failures")
	}

	before := calls.Load()
	_, err := client.Current(context.Background())
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("expected an open-circuit rejection, got %v", err)
	}
	if calls.Load() != before {
		t.Errorf("an open breaker must not hit the API, got %d extra calls", calls.Load()-before)
	}
}

func TestPredictLocal(t *testing.T) {
	testCases := []struct {
		name       string
		sensorTemp float64
		sensorHum  float64
		api        Conditions
		want       string
	}{
		{name: "clear under high pressure", sensorTemp: 28, sensorHum: 60, api: Conditions{Temperature: 28, Humidity: 60, Pressure: 1015}, want: Clear},
		{name: "cloudy humid midband", sensorTemp: 27, sensorHum: 75, api: Conditions{Temperature: 27, Humidity: 75, Pressure: 1005}, want: Cloudy},
		{name: "rain at low pressure", sensorTemp: 24, sensorHum: 90, api: Conditions{Temperature: 24, Humidity: 90, Pressure: 995}, want: Rain},
		{name: "heavy rain at very low pressure", sensorTemp: 24, sensorHum: 76, api: Conditions{Temperature: 24, Humidity: 92, Pressure: 985}, want: HeavyRain},
		{name: "sunny hot and dry", sensorTemp: 32, sensorHum: 60, api: Conditions{Temperature: 32, Humidity: 60, Pressure: 1010}, want: Sunny},
		{name: "warm fallback is clear", sensorTemp: 28, sensorHum: 80, api: Conditions{Temperature: 28, Humidity: 80, Pressure: 1020}, want: Clear},
		{name: "very hot fallback is sunny", sensorTemp: 33, sensorHum: 70, api: Conditions{Temperature: 33, Humidity: 70, Pressure: 1000}, want: Sunny},
		{name: "mild conditions are unknown", sensorTemp: 20, sensorHum: 50, api: Conditions{Temperature: 20, Humidity: 50, Pressure: 1005}, want: Unknown},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := PredictLocal(tc.sensorTemp, tc.sensorHum, tc.api); got != tc.want {
				t.Errorf("PredictLocal = %q, want %q", got, tc.want)
			}
		})
	}
}
