package aviation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kappaborg/flightmap/pkg/geo"
)

// TestFetchFlights tests feed fetching through a fake proxy endpoint.
func TestFetchFlights(t *testing.T) {
	t.Run("Successful request", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()

			if q.Get("bounds") != "52.407447,50.607353,-1.574179,1.318579" {
				t.Errorf("Unexpected bounds: %s", q.Get("bounds"))
			}
			for _, flag := range []string{"faa", "satellite", "mlat", "flarm", "adsb", "gnd", "air", "vehicles", "estimated", "gliders", "stats"} {
				if q.Get(flag) != "1" {
					t.Errorf("Expected %s=1, got %q", flag, q.Get(flag))
				}
			}
			if q.Get("maxage") != "14400" {
				t.Errorf("Expected maxage=14400, got %q", q.Get("maxage"))
			}

			w.Write([]byte(`{
				"full_count": 2,
				"version": 1,
				"aa1": ["BAW100", 51.6, -0.2, 270, 11000, 240, null, null, "British Airways", "A320", null, "LHR", "EDI", null, "En route"],
				"bb2": ["EZY55", 51.2, 0.4, 120, 9500, 210]
			}`))
		}))
		defer server.Close()

		svc := New(Config{FlightsURL: server.URL, RequestsPerSecond: 100})
		box := geo.BoundingBox(geo.Point{Lat: 51.5074, Lon: -0.1278}, 100)

		flights := svc.FetchFlights(context.Background(), box)
		if len(flights) != 2 {
			t.Fatalf("Expected 2 flights, got %d", len(flights))
		}
		if flights[0].ID != "aa1" || flights[0].Callsign != "BAW100" {
			t.Errorf("Unexpected first flight: %+v", flights[0])
		}
	})

	t.Run("Transport failure returns empty", func(t *testing.T) {
		svc := New(Config{FlightsURL: "http://127.0.0.1:1", RequestsPerSecond: 100})

		flights := svc.FetchFlights(context.Background(), geo.Box{MinLat: 50, MaxLat: 52, MinLon: -1, MaxLon: 1})
		if len(flights) != 0 {
			t.Errorf("Expected empty result on transport failure, got %d flights", len(flights))
		}
	})

	t.Run("Non-2xx status returns empty", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error": "Failed to fetch flight data"}`, http.StatusInternalServerError)
		}))
		defer server.Close()

		svc := New(Config{FlightsURL: server.URL, RequestsPerSecond: 100})
		flights := svc.FetchFlights(context.Background(), geo.Box{MinLat: 50, MaxLat: 52, MinLon: -1, MaxLon: 1})
		if len(flights) != 0 {
			t.Errorf("Expected empty result on 500, got %d flights", len(flights))
		}
	})

	t.Run("Cancelled context returns empty without a request", func(t *testing.T) {
		called := false
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))
		defer server.Close()

		svc := New(Config{FlightsURL: server.URL, RequestsPerSecond: 100})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		flights := svc.FetchFlights(ctx, geo.Box{MinLat: 50, MaxLat: 52, MinLon: -1, MaxLon: 1})
		if len(flights) != 0 {
			t.Errorf("Expected empty result on cancelled context, got %d flights", len(flights))
		}
		if called {
			t.Error("Feed should not be contacted when the context is already cancelled")
		}
	})

	t.Run("Malformed body returns empty", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json at all"))
		}))
		defer server.Close()

		svc := New(Config{FlightsURL: server.URL, RequestsPerSecond: 100})
		flights := svc.FetchFlights(context.Background(), geo.Box{MinLat: 50, MaxLat: 52, MinLon: -1, MaxLon: 1})
		if len(flights) != 0 {
			t.Errorf("Expected empty result on malformed body, got %d flights", len(flights))
		}
	})
}

// TestFetchWeather tests the point weather lookup and its silent-failure
// policy.
func TestFetchWeather(t *testing.T) {
	t.Run("Successful lookup", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("appid") != "test-key" {
				t.Errorf("Expected appid=test-key, got %q", q.Get("appid"))
			}
			if q.Get("units") != "metric" {
				t.Errorf("Expected units=metric, got %q", q.Get("units"))
			}

			w.Write([]byte(`{
				"main": {"temp": 17.4},
				"wind": {"speed": 5.2, "deg": 230},
				"visibility": 10000,
				"rain": {"1h": 0.3},
				"clouds": {"all": 75}
			}`))
		}))
		defer server.Close()

		svc := New(Config{WeatherURL: server.URL, WeatherAPIKey: "test-key"})
		weather := svc.FetchWeather(context.Background(), 51.5, -0.1)

		if weather == nil {
			t.Fatal("Expected weather, got nil")
		}
		if weather.Temperature != 17.4 {
			t.Errorf("Temperature = %f, want 17.4", weather.Temperature)
		}
		if weather.WindSpeed != 5.2 {
			t.Errorf("WindSpeed = %f, want 5.2", weather.WindSpeed)
		}
		if weather.WindDirection != 230 {
			t.Errorf("WindDirection = %f, want 230", weather.WindDirection)
		}
		if weather.Visibility != 10000 {
			t.Errorf("Visibility = %f, want 10000", weather.Visibility)
		}
		if weather.Precipitation != 0.3 {
			t.Errorf("Precipitation = %f, want 0.3", weather.Precipitation)
		}
		if weather.CloudCover != 75 {
			t.Errorf("CloudCover = %f, want 75", weather.CloudCover)
		}
	})

	t.Run("Missing rain defaults to zero", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"main": {"temp": 20}, "wind": {"speed": 3, "deg": 90}, "visibility": 9000, "clouds": {"all": 10}}`))
		}))
		defer server.Close()

		svc := New(Config{WeatherURL: server.URL, WeatherAPIKey: "k"})
		weather := svc.FetchWeather(context.Background(), 51.5, -0.1)

		if weather == nil {
			t.Fatal("Expected weather, got nil")
		}
		if weather.Precipitation != 0 {
			t.Errorf("Precipitation = %f, want 0", weather.Precipitation)
		}
	})

	t.Run("Provider rejection returns nil", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Empty credential leads to a 401 upstream; treated like any
			// other transport failure.
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		svc := New(Config{WeatherURL: server.URL})
		if weather := svc.FetchWeather(context.Background(), 51.5, -0.1); weather != nil {
			t.Errorf("Expected nil weather, got %+v", weather)
		}
	})

	t.Run("Unreachable provider returns nil", func(t *testing.T) {
		svc := New(Config{WeatherURL: "http://127.0.0.1:1", WeatherAPIKey: "k"})
		if weather := svc.FetchWeather(context.Background(), 51.5, -0.1); weather != nil {
			t.Errorf("Expected nil weather, got %+v", weather)
		}
	})
}

// TestComputePath tests the path delegation.
func TestComputePath(t *testing.T) {
	svc := New(Config{})
	center := geo.Point{Lat: 51.5, Lon: -0.1}
	target := geo.Point{Lat: 48.8, Lon: 2.3}

	path := svc.ComputePath(center, target)
	if len(path) != geo.DefaultPathSteps {
		t.Fatalf("Expected %d points, got %d", geo.DefaultPathSteps, len(path))
	}
}

// TestEstimateFlightTime tests the duration formatting.
func TestEstimateFlightTime(t *testing.T) {
	tests := []struct {
		name       string
		distanceKm float64
		speed      float64
		want       string
	}{
		{"Two hours", 1600, 800, "02:00"},
		{"Ninety minutes", 1200, 800, "01:30"},
		{"Zero distance", 0, 800, "00:00"},
		{"Zero speed", 500, 0, "00:00"},
		{"Negative speed", 500, -10, "00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateFlightTime(tt.distanceKm, tt.speed); got != tt.want {
				t.Errorf("EstimateFlightTime(%.0f, %.0f) = %q, want %q", tt.distanceKm, tt.speed, got, tt.want)
			}
		})
	}
}
