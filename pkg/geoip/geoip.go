// Package geoip resolves the visitor's approximate location from their
// public IP address. It supplies the overlay's initial center coordinate.
//
// Unlike the feed and weather fetches, a failed lookup is surfaced to the
// caller: it is a user-triggered operation with an explicit retry path.
package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	// DefaultIPURL returns the caller's public IP as {"ip": "..."}.
	DefaultIPURL = "https://api.ipify.org?format=json"

	// DefaultLookupURL is the geolocation provider base; the lookup path is
	// /{ip}/json/.
	DefaultLookupURL = "https://ipapi.co"

	// DefaultTimeout for lookup requests
	DefaultTimeout = 10 * time.Second
)

// Location is the resolved position for an IP address.
type Location struct {
	IP      string
	City    string
	Country string

	// Latitude and Longitude in decimal degrees
	Latitude  float64
	Longitude float64
}

// Config contains configuration for the geolocation client.
type Config struct {
	// IPURL overrides the public-IP discovery endpoint (for tests).
	IPURL string

	// LookupURL overrides the geolocation provider base (for tests).
	LookupURL string

	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client performs the two-step IP geolocation lookup: discover the public
// IP, then resolve it to coordinates.
type Client struct {
	ipURL      string
	lookupURL  string
	httpClient *http.Client
}

// NewClient creates a geolocation client from cfg, filling in defaults.
func NewClient(cfg Config) *Client {
	if cfg.IPURL == "" {
		cfg.IPURL = DefaultIPURL
	}
	if cfg.LookupURL == "" {
		cfg.LookupURL = DefaultLookupURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		ipURL:      cfg.IPURL,
		lookupURL:  cfg.LookupURL,
		httpClient: client,
	}
}

// Locate resolves the caller's public IP to a location.
func (c *Client) Locate(ctx context.Context) (*Location, error) {
	ip, err := c.publicIP(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover public IP: %w", err)
	}
	loc, err := c.Lookup(ctx, ip)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", ip, err)
	}
	return loc, nil
}

// Lookup resolves a specific IP address to a location.
func (c *Client) Lookup(ctx context.Context, ip string) (*Location, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s/json/", c.lookupURL, ip), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geolocation provider returned status %d", resp.StatusCode)
	}

	var payload struct {
		IP          string  `json:"ip"`
		City        string  `json:"city"`
		CountryName string  `json:"country_name"`
		Latitude    float64 `json:"latitude"`
		Longitude   float64 `json:"longitude"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	return &Location{
		IP:        payload.IP,
		City:      payload.City,
		Country:   payload.CountryName,
		Latitude:  payload.Latitude,
		Longitude: payload.Longitude,
	}, nil
}

// publicIP discovers the caller's public IP address.
func (c *Client) publicIP(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ipURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("IP provider returned status %d", resp.StatusCode)
	}

	var payload struct {
		IP string `json:"ip"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if payload.IP == "" {
		return "", fmt.Errorf("IP provider returned empty address")
	}

	return payload.IP, nil
}
