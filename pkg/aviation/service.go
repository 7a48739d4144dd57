// Package aviation provides the flight data service: it fetches flight
// records for a bounding box through the proxy endpoint, fetches point
// weather on demand, and derives great-circle paths for rendering.
//
// The service is stateless. Every call is a fresh request/response; nothing
// is cached or retained between calls.
package aviation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/gommon/log"
	"golang.org/x/time/rate"

	"github.com/kappaborg/flightmap/pkg/feed"
	"github.com/kappaborg/flightmap/pkg/geo"
)

const (
	// DefaultTimeout for upstream requests
	DefaultTimeout = 10 * time.Second

	// MaxAgeSeconds is the feed's position-age ceiling in seconds.
	MaxAgeSeconds = 14400
)

// Weather is a point-in-time weather sample for a single coordinate.
// Requested only on user interaction, never polled or cached.
type Weather struct {
	// Temperature in degrees Celsius
	Temperature float64

	// WindSpeed in meters per second
	WindSpeed float64

	// WindDirection in degrees from north
	WindDirection float64

	// Visibility in meters
	Visibility float64

	// Precipitation is rain volume over the last hour in millimeters,
	// zero when the provider reports none.
	Precipitation float64

	// CloudCover in percent (0-100)
	CloudCover float64
}

// Config contains configuration for the flight data service.
type Config struct {
	// FlightsURL is the proxy endpoint for the flight feed
	// (e.g. "http://localhost:8080/api/flights").
	FlightsURL string

	// WeatherURL is the weather provider's current-weather endpoint.
	WeatherURL string

	// WeatherAPIKey is the weather provider credential. An empty key is
	// forwarded as-is; the resulting upstream rejection is handled like any
	// other transport failure.
	WeatherAPIKey string

	// RequestsPerSecond limits feed fetches (default: 1)
	RequestsPerSecond float64

	// Timeout for HTTP requests
	Timeout time.Duration

	// HTTPClient overrides the transport, mainly for tests. When nil a
	// client with Timeout is used.
	HTTPClient *http.Client
}

// Service is the flight data service. Construct it explicitly with New;
// there is no package-level instance, so tests can supply a fake transport.
type Service struct {
	flightsURL string
	weatherURL string
	apiKey     string

	httpClient *http.Client
	limiter    *rate.Limiter
}

// New creates a flight data service from cfg.
func New(cfg Config) *Service {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = 1
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &Service{
		flightsURL: cfg.FlightsURL,
		weatherURL: cfg.WeatherURL,
		apiKey:     cfg.WeatherAPIKey,
		httpClient: client,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
	}
}

// FetchFlights returns all flights the feed reports inside box.
//
// Any transport error or non-2xx status is logged and an empty slice is
// returned, so the refresh coordinator keeps ticking through feed outages.
func (s *Service) FetchFlights(ctx context.Context, box geo.Box) []feed.Flight {
	if err := s.limiter.Wait(ctx); err != nil {
		log.Warnf("flights: rate limiter wait: %v", err)
		return nil
	}

	params := url.Values{}
	// bounds order is maxLat,minLat,minLon,maxLon per the feed contract.
	params.Set("bounds", fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", box.MaxLat, box.MinLat, box.MinLon, box.MaxLon))
	// Enable every surveillance source the feed knows about.
	for _, flag := range []string{"faa", "satellite", "mlat", "flarm", "adsb", "gnd", "air", "vehicles", "estimated", "gliders", "stats"} {
		params.Set(flag, "1")
	}
	params.Set("maxage", fmt.Sprintf("%d", MaxAgeSeconds))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.flightsURL+"?"+params.Encode(), nil)
	if err != nil {
		log.Errorf("flights: create request: %v", err)
		return nil
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		log.Errorf("flights: fetch: %v", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Errorf("flights: feed returned status %d", resp.StatusCode)
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Errorf("flights: read response: %v", err)
		return nil
	}

	flights, err := feed.Decode(body)
	if err != nil {
		log.Errorf("flights: decode response: %v", err)
		return nil
	}

	return flights
}

// FetchWeather returns the weather at (lat, lon), or nil when the lookup
// fails for any reason. Weather is fetched on direct user interaction, so a
// failure must never break the interaction: absent, not an error.
func (s *Service) FetchWeather(ctx context.Context, lat, lon float64) *Weather {
	u := fmt.Sprintf("%s?lat=%.6f&lon=%.6f&appid=%s&units=metric", s.weatherURL, lat, lon, url.QueryEscape(s.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		log.Errorf("weather: create request: %v", err)
		return nil
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		log.Errorf("weather: fetch: %v", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Errorf("weather: provider returned status %d", resp.StatusCode)
		return nil
	}

	var payload weatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		log.Errorf("weather: decode response: %v", err)
		return nil
	}

	return &Weather{
		Temperature:   payload.Main.Temp,
		WindSpeed:     payload.Wind.Speed,
		WindDirection: payload.Wind.Deg,
		Visibility:    payload.Visibility,
		Precipitation: payload.Rain.OneHour,
		CloudCover:    payload.Clouds.All,
	}
}

// ComputePath samples the great-circle path from center to target for
// rendering, using the default path resolution.
func (s *Service) ComputePath(center, target geo.Point) []geo.Point {
	return geo.GreatCirclePath(center, target, geo.DefaultPathSteps)
}

// Distance returns the great-circle distance between two points in km.
func (s *Service) Distance(a, b geo.Point) float64 {
	return geo.DistanceKm(a, b)
}

// EstimateFlightTime formats a rough flight duration as "HH:MM" for a given
// distance and average speed. Speed uses the feed's raw velocity unit, so
// the estimate inherits the feed's unit ambiguity. A non-positive speed
// yields "00:00".
func EstimateFlightTime(distanceKm, averageSpeed float64) string {
	if averageSpeed <= 0 {
		return "00:00"
	}
	d := time.Duration(distanceKm / averageSpeed * float64(time.Hour))
	return fmt.Sprintf("%02d:%02d", int(d.Hours())%24, int(d.Minutes())%60)
}

// weatherResponse mirrors the provider's current-weather payload. Only the
// fields the overlay shows are decoded.
type weatherResponse struct {
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`

	Wind struct {
		Speed float64 `json:"speed"`
		Deg   float64 `json:"deg"`
	} `json:"wind"`

	Visibility float64 `json:"visibility"`

	// Rain may be absent entirely when there is no precipitation.
	Rain struct {
		OneHour float64 `json:"1h"`
	} `json:"rain"`

	Clouds struct {
		All float64 `json:"all"`
	} `json:"clouds"`
}
