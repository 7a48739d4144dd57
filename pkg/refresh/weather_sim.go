package refresh

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/kappaborg/flightmap/pkg/geo"
)

// DefaultWeatherInterval between simulated weather updates. The weather
// layer runs on its own timer, independent of the flight refresh cycle.
const DefaultWeatherInterval = 5 * time.Second

// Weather phenomenon kinds produced by the simulator.
var weatherKinds = []string{"rain", "storm", "fog"}

// WeatherCell is one simulated weather phenomenon rendered as a circle
// overlay. Intensity is in (0, 1] and scales the circle radius.
type WeatherCell struct {
	ID        string
	Kind      string
	Intensity float64
	Center    geo.Point
}

// WeatherSimulator publishes mock weather cells around a center point on a
// fixed interval. It stands in for a real area-weather feed and follows the
// same start/stop discipline as the Coordinator.
type WeatherSimulator struct {
	interval time.Duration
	center   geo.Point
	radiusKm float64
	rng      *rand.Rand

	mu     sync.RWMutex
	cells  []WeatherCell
	subs   []func([]WeatherCell)
	cancel context.CancelFunc
}

// NewWeatherSimulator creates an idle simulator seeding its phenomena within
// radiusKm of center. The seed makes cell placement reproducible.
func NewWeatherSimulator(center geo.Point, radiusKm float64, interval time.Duration, seed int64) *WeatherSimulator {
	if interval <= 0 {
		interval = DefaultWeatherInterval
	}
	s := &WeatherSimulator{
		interval: interval,
		center:   center,
		radiusKm: radiusKm,
		rng:      rand.New(rand.NewSource(seed)),
	}
	s.cells = s.seedCells(3)
	return s
}

// Subscribe registers fn to receive every published cell set.
func (s *WeatherSimulator) Subscribe(fn func([]WeatherCell)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// Cells returns the current cell set.
func (s *WeatherSimulator) Cells() []WeatherCell {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]WeatherCell, len(s.cells))
	copy(out, s.cells)
	return out
}

// Start arms the update timer. No-op if already running.
func (s *WeatherSimulator) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

// Stop cancels the update timer.
func (s *WeatherSimulator) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.cancel = nil
}

// seedCells places n phenomena pseudo-randomly inside the coverage area.
func (s *WeatherSimulator) seedCells(n int) []WeatherCell {
	box := geo.BoundingBox(s.center, s.radiusKm)
	cells := make([]WeatherCell, 0, n)
	for i := 0; i < n; i++ {
		cells = append(cells, WeatherCell{
			ID:        fmt.Sprintf("wx-%d", i+1),
			Kind:      weatherKinds[s.rng.Intn(len(weatherKinds))],
			Intensity: 0.2 + 0.8*s.rng.Float64(),
			Center: geo.Point{
				Lat: box.MinLat + s.rng.Float64()*(box.MaxLat-box.MinLat),
				Lon: box.MinLon + s.rng.Float64()*(box.MaxLon-box.MinLon),
			},
		})
	}
	return cells
}

// tick drifts each cell and varies its intensity, then publishes the new set
// as a whole replacement.
func (s *WeatherSimulator) tick() {
	s.mu.Lock()
	next := make([]WeatherCell, len(s.cells))
	for i, cell := range s.cells {
		cell.Center.Lat += (s.rng.Float64() - 0.5) * 0.05
		cell.Center.Lon += (s.rng.Float64() - 0.5) * 0.05
		cell.Intensity += (s.rng.Float64() - 0.5) * 0.1
		if cell.Intensity < 0.1 {
			cell.Intensity = 0.1
		}
		if cell.Intensity > 1.0 {
			cell.Intensity = 1.0
		}
		next[i] = cell
	}
	s.cells = next
	subs := make([]func([]WeatherCell), len(s.subs))
	copy(subs, s.subs)
	published := make([]WeatherCell, len(next))
	copy(published, next)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(published)
	}
}
