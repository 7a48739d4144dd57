package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config represents the complete application configuration.
type Config struct {
	Server  ServerConfig  `json:"server"`
	Feed    FeedConfig    `json:"feed"`
	Weather WeatherConfig `json:"weather"`
	Overlay OverlayConfig `json:"overlay"`
}

// ServerConfig contains HTTP server configuration for the feed proxy.
type ServerConfig struct {
	// Port is the HTTP server port (default: 8080)
	Port string `json:"port"`

	// Host is the server bind address (default: "0.0.0.0")
	Host string `json:"host"`
}

// FeedConfig contains the upstream flight feed settings.
type FeedConfig struct {
	// UpstreamURL is the provider's live feed endpoint the proxy forwards to.
	UpstreamURL string `json:"upstream_url"`

	// ProxyURL is the local proxy endpoint the flight data service calls.
	ProxyURL string `json:"proxy_url"`

	// Origin and Referer are sent upstream; the provider rejects requests
	// without browser-like headers.
	Origin  string `json:"origin"`
	Referer string `json:"referer"`

	// RequestsPerSecond limits feed polling (default: 1)
	RequestsPerSecond float64 `json:"requests_per_second"`

	// CacheSeconds is the proxy response cache lifetime (default: 30)
	CacheSeconds int `json:"cache_seconds"`
}

// WeatherConfig contains the point-weather provider settings.
type WeatherConfig struct {
	// BaseURL is the current-weather endpoint.
	BaseURL string `json:"base_url"`

	// APIKey is the provider credential. Should be supplied via
	// FLIGHTMAP_WEATHER_API_KEY rather than committed to a config file.
	APIKey string `json:"api_key,omitempty"`
}

// OverlayConfig contains the live overlay's coverage and timing settings.
type OverlayConfig struct {
	// Latitude and Longitude fix the coverage center in decimal degrees.
	// Ignored when AutoLocate is true.
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	// AutoLocate resolves the center from the caller's public IP at startup
	// instead of using the fixed coordinates.
	AutoLocate bool `json:"auto_locate"`

	// RadiusKm is the coverage radius in kilometers (default: 100)
	RadiusKm float64 `json:"radius_km"`

	// RefreshSeconds is the flight refresh interval (default: 10)
	RefreshSeconds int `json:"refresh_seconds"`

	// WeatherRefreshSeconds is the simulated weather layer's independent
	// refresh interval (default: 5)
	WeatherRefreshSeconds int `json:"weather_refresh_seconds"`

	// PathSteps is the great-circle path sample count (default: 100)
	PathSteps int `json:"path_steps"`
}

// Load reads configuration from a JSON file.
// If the file doesn't exist, returns a default configuration.
func Load(path string) (*Config, error) {
	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvironmentOverrides()
		return cfg, nil
	}

	// Read file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvironmentOverrides()

	return &cfg, nil
}

// Save writes the configuration to a JSON file.
func (c *Config) Save(path string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Marshal to JSON with indentation
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
			Host: "0.0.0.0",
		},
		Feed: FeedConfig{
			UpstreamURL:       "https://data-cloud.flightradar24.com/zones/fcgi/feed.js",
			ProxyURL:          "http://localhost:8080/api/flights",
			Origin:            "https://www.flightradar24.com",
			Referer:           "https://www.flightradar24.com/",
			RequestsPerSecond: 1.0,
			CacheSeconds:      30,
		},
		Weather: WeatherConfig{
			BaseURL: "https://api.openweathermap.org/data/2.5/weather",
		},
		Overlay: OverlayConfig{
			// London fallback center, used when auto-location fails or is off.
			Latitude:              51.5074,
			Longitude:             -0.1278,
			AutoLocate:            true,
			RadiusKm:              100.0,
			RefreshSeconds:        10,
			WeatherRefreshSeconds: 5,
			PathSteps:             100,
		},
	}
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
// This allows sensitive data like API keys to be kept out of config files.
func (c *Config) applyEnvironmentOverrides() {
	if port := os.Getenv("FLIGHTMAP_PORT"); port != "" {
		c.Server.Port = port
	}
	if apiKey := os.Getenv("FLIGHTMAP_WEATHER_API_KEY"); apiKey != "" {
		c.Weather.APIKey = apiKey
	}
	if feedURL := os.Getenv("FLIGHTMAP_FEED_URL"); feedURL != "" {
		c.Feed.UpstreamURL = feedURL
	}
	if proxyURL := os.Getenv("FLIGHTMAP_PROXY_URL"); proxyURL != "" {
		c.Feed.ProxyURL = proxyURL
	}
	if radius := os.Getenv("FLIGHTMAP_RADIUS_KM"); radius != "" {
		if val, err := strconv.ParseFloat(radius, 64); err == nil && val > 0 {
			c.Overlay.RadiusKm = val
		}
	}
}
