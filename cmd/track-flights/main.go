// Headless flight tracker.
// Polls the live feed around a center point and logs per-tick snapshot
// summaries. Useful for verifying feed coverage before pointing a renderer
// at it.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"

	"github.com/kappaborg/flightmap/pkg/aviation"
	"github.com/kappaborg/flightmap/pkg/config"
	"github.com/kappaborg/flightmap/pkg/geo"
	"github.com/kappaborg/flightmap/pkg/geoip"
	"github.com/kappaborg/flightmap/pkg/refresh"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "Path to configuration file")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warnf("Failed to load .env: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	center := resolveCenter(cfg)
	log.Infof("Coverage: %.4f, %.4f within %.0f km", center.Lat, center.Lon, cfg.Overlay.RadiusKm)
	log.Infof("Refresh interval: %d seconds", cfg.Overlay.RefreshSeconds)

	service := aviation.New(aviation.Config{
		FlightsURL:        cfg.Feed.ProxyURL,
		WeatherURL:        cfg.Weather.BaseURL,
		WeatherAPIKey:     cfg.Weather.APIKey,
		RequestsPerSecond: cfg.Feed.RequestsPerSecond,
	})

	coordinator := refresh.NewCoordinator(service, center, cfg.Overlay.RadiusKm,
		time.Duration(cfg.Overlay.RefreshSeconds)*time.Second)

	coordinator.Subscribe(func(snap refresh.Snapshot) {
		airborne := 0
		for _, f := range snap.Flights {
			if f.Altitude > 0 {
				airborne++
			}
		}
		log.Infof("Snapshot: %d flights (%d airborne), %d paths, fetched %s",
			len(snap.Flights), airborne, len(snap.Paths),
			snap.FetchedAt.Format(time.RFC3339))
	})

	ctx := context.Background()
	coordinator.Start(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Stopping tracker...")
	coordinator.Stop()
	log.Info("Tracker stopped")
}

// resolveCenter picks the coverage center: IP geolocation when enabled, the
// configured coordinates otherwise or when the lookup fails.
func resolveCenter(cfg *config.Config) geo.Point {
	fallback := geo.Point{Lat: cfg.Overlay.Latitude, Lon: cfg.Overlay.Longitude}
	if !cfg.Overlay.AutoLocate {
		return fallback
	}

	ctx, cancel := context.WithTimeout(context.Background(), geoip.DefaultTimeout)
	defer cancel()

	loc, err := geoip.NewClient(geoip.Config{}).Locate(ctx)
	if err != nil {
		log.Warnf("Geolocation failed, using configured center: %v", err)
		return fallback
	}
	log.Infof("Located via %s: %s, %s", loc.IP, loc.City, loc.Country)
	return geo.Point{Lat: loc.Latitude, Lon: loc.Longitude}
}
