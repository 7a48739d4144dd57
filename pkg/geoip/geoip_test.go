package geoip

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestLocate tests the full two-step lookup against fake providers.
func TestLocate(t *testing.T) {
	ipServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ip": "93.184.216.34"}`))
	}))
	defer ipServer.Close()

	lookupServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/93.184.216.34/json/" {
			t.Errorf("Unexpected lookup path: %s", r.URL.Path)
		}
		w.Write([]byte(`{
			"ip": "93.184.216.34",
			"city": "London",
			"country_name": "United Kingdom",
			"latitude": 51.5074,
			"longitude": -0.1278
		}`))
	}))
	defer lookupServer.Close()

	client := NewClient(Config{IPURL: ipServer.URL, LookupURL: lookupServer.URL})
	loc, err := client.Locate(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if loc.IP != "93.184.216.34" {
		t.Errorf("IP = %q, want %q", loc.IP, "93.184.216.34")
	}
	if loc.City != "London" {
		t.Errorf("City = %q, want %q", loc.City, "London")
	}
	if loc.Country != "United Kingdom" {
		t.Errorf("Country = %q, want %q", loc.Country, "United Kingdom")
	}
	if loc.Latitude != 51.5074 || loc.Longitude != -0.1278 {
		t.Errorf("Position = (%f, %f), want (51.5074, -0.1278)", loc.Latitude, loc.Longitude)
	}
}

// TestLocateErrors tests that failures are returned, not swallowed: the
// caller shows a retry affordance on geolocation failure.
func TestLocateErrors(t *testing.T) {
	t.Run("IP discovery failure", func(t *testing.T) {
		client := NewClient(Config{IPURL: "http://127.0.0.1:1", LookupURL: "http://127.0.0.1:1"})
		if _, err := client.Locate(context.Background()); err == nil {
			t.Error("Expected error when IP discovery is unreachable")
		}
	})

	t.Run("Empty IP", func(t *testing.T) {
		ipServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}))
		defer ipServer.Close()

		client := NewClient(Config{IPURL: ipServer.URL})
		if _, err := client.Locate(context.Background()); err == nil {
			t.Error("Expected error for empty IP response")
		}
	})

	t.Run("Lookup provider error status", func(t *testing.T) {
		ipServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"ip": "10.0.0.1"}`))
		}))
		defer ipServer.Close()

		lookupServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer lookupServer.Close()

		client := NewClient(Config{IPURL: ipServer.URL, LookupURL: lookupServer.URL})
		if _, err := client.Locate(context.Background()); err == nil {
			t.Error("Expected error for lookup provider rejection")
		}
	})
}
