// Package refresh owns the live overlay's polling cycle. A Coordinator
// repeatedly recomputes the coverage bounding box, fetches flights through
// the flight data service, derives per-flight paths, and publishes one
// consistent snapshot per tick to its subscribers.
package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/kappaborg/flightmap/pkg/feed"
	"github.com/kappaborg/flightmap/pkg/geo"
)

// DefaultInterval between flight refresh ticks.
const DefaultInterval = 10 * time.Second

// FlightSource is the slice of the flight data service the coordinator
// needs. Satisfied by *aviation.Service; tests supply a fake.
type FlightSource interface {
	// FetchFlights returns the flights inside box. Failures degrade to an
	// empty slice, never an error.
	FetchFlights(ctx context.Context, box geo.Box) []feed.Flight

	// ComputePath samples the rendering path from center to target.
	ComputePath(center, target geo.Point) []geo.Point
}

// FlightPath is the derived polyline from the observer's center to one
// flight's position. Recomputed from scratch every tick, never interpolated
// between ticks.
type FlightPath struct {
	// FlightID references the Flight.ID the path was derived from.
	FlightID string

	// Coordinates is the ordered path from center to the flight.
	Coordinates []geo.Point
}

// Snapshot is the unit of publication: the complete set of flights and
// derived paths for one tick. Each snapshot wholly replaces the previous
// one; subscribers never see partial updates.
type Snapshot struct {
	Flights   []feed.Flight
	Paths     []FlightPath
	FetchedAt time.Time
}

// Coordinator drives the repeating refresh cycle. It has two states: Idle
// (no timer armed) and Polling (timer armed). At most one poll is in flight
// at a time; ticks that arrive while a poll is still running are coalesced
// by the ticker.
//
// The coordinator is the snapshot's only writer. Publication is an atomic
// replace under the mutex, so readers need no further synchronization.
type Coordinator struct {
	source   FlightSource
	interval time.Duration

	mu          sync.RWMutex
	center      geo.Point
	radiusKm    float64
	latest      Snapshot
	hasSnapshot bool
	subs        []func(Snapshot)
	cancel      context.CancelFunc

	// generation increments on every Start and Stop. A poll captures the
	// generation when it begins and publishes only if it still matches, so
	// a response arriving after teardown (or after a restart) is discarded
	// instead of overwriting newer state.
	generation uint64
}

// NewCoordinator creates an idle coordinator polling flights around center
// within radiusKm. A non-positive interval falls back to DefaultInterval.
func NewCoordinator(source FlightSource, center geo.Point, radiusKm float64, interval time.Duration) *Coordinator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Coordinator{
		source:   source,
		interval: interval,
		center:   center,
		radiusKm: radiusKm,
	}
}

// Subscribe registers fn to receive every published snapshot. Callbacks run
// on the polling goroutine and should hand off work instead of blocking.
func (c *Coordinator) Subscribe(fn func(Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = append(c.subs, fn)
}

// Latest returns the most recently published snapshot, if any.
func (c *Coordinator) Latest() (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest, c.hasSnapshot
}

// SetCenter moves the coverage area. The next tick recomputes the bounding
// box and paths from the new values.
func (c *Coordinator) SetCenter(center geo.Point, radiusKm float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.center = center
	c.radiusKm = radiusKm
}

// Running reports whether the coordinator is in the Polling state.
func (c *Coordinator) Running() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cancel != nil
}

// Start transitions Idle -> Polling: the first poll fires immediately and
// the timer is armed. Starting an already-polling coordinator is a no-op.
func (c *Coordinator) Start(ctx context.Context) {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		log.Warn("refresh: coordinator already polling")
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	go c.run(ctx, gen)
}

// Stop transitions Polling -> Idle: the pending timer is cancelled. A poll
// already in flight is allowed to complete, but its result is discarded.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return
	}
	c.cancel()
	c.cancel = nil
	c.generation++
}

// run is the polling loop. It executes polls synchronously, so a slow feed
// response delays (rather than stacks) subsequent ticks.
func (c *Coordinator) run(ctx context.Context, gen uint64) {
	c.poll(ctx, gen)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.poll(ctx, gen)
		}
	}
}

// poll performs one refresh cycle and publishes the resulting snapshot.
func (c *Coordinator) poll(ctx context.Context, gen uint64) {
	c.mu.RLock()
	center := c.center
	radiusKm := c.radiusKm
	c.mu.RUnlock()

	box := geo.BoundingBox(center, radiusKm)
	flights := c.source.FetchFlights(ctx, box)

	paths := make([]FlightPath, 0, len(flights))
	for _, f := range flights {
		if !f.HasPosition() {
			continue
		}
		paths = append(paths, FlightPath{
			FlightID:    f.ID,
			Coordinates: c.source.ComputePath(center, geo.Point{Lat: f.Latitude, Lon: f.Longitude}),
		})
	}

	c.publish(ctx, gen, Snapshot{
		Flights:   flights,
		Paths:     paths,
		FetchedAt: time.Now().UTC(),
	})
}

// publish atomically replaces the current snapshot and notifies subscribers,
// unless the poll is stale: publication is last-write-wins and a generation
// mismatch or cancelled context means teardown or restart happened while the
// poll was in flight.
func (c *Coordinator) publish(ctx context.Context, gen uint64, snap Snapshot) {
	if ctx.Err() != nil {
		return
	}

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.latest = snap
	c.hasSnapshot = true
	subs := make([]func(Snapshot), len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}
