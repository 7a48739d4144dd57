// Flight table client.
// Tabular view of coordinator snapshots with a detail panel. ENTER fetches
// current weather at the selected flight's position.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
	"github.com/rivo/tview"

	"github.com/kappaborg/flightmap/pkg/aviation"
	"github.com/kappaborg/flightmap/pkg/config"
	"github.com/kappaborg/flightmap/pkg/feed"
	"github.com/kappaborg/flightmap/pkg/geo"
	"github.com/kappaborg/flightmap/pkg/geoip"
	"github.com/kappaborg/flightmap/pkg/refresh"
)

// App represents the flight table application
type App struct {
	service     *aviation.Service
	coordinator *refresh.Coordinator
	center      geo.Point

	tviewApp *tview.Application
	table    *tview.Table
	detail   *tview.TextView
	status   *tview.TextView

	mu       sync.RWMutex
	flights  []feed.Flight
	lastTick time.Time
}

// NewApp creates the application and builds its UI.
func NewApp(service *aviation.Service, coordinator *refresh.Coordinator, center geo.Point) *App {
	a := &App{
		service:     service,
		coordinator: coordinator,
		center:      center,
	}
	a.setupUI()
	return a
}

// setupUI initializes the table, detail and status panels.
func (a *App) setupUI() {
	a.tviewApp = tview.NewApplication()

	a.table = tview.NewTable().
		SetSelectable(true, false).
		SetFixed(1, 0)
	a.table.SetBorder(true).SetTitle(" Flights ")

	a.detail = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	a.detail.SetBorder(true).SetTitle(" Detail ")

	a.status = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	a.status.SetText("[gray]↑/↓: Select  ENTER: Weather  q: Quit[-]")

	a.table.SetSelectionChangedFunc(func(row, col int) {
		a.renderDetail(row-1, nil)
	})
	a.table.SetSelectedFunc(func(row, col int) {
		a.fetchWeather(row - 1)
	})

	layout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(tview.NewFlex().
			SetDirection(tview.FlexColumn).
			AddItem(a.table, 0, 7, true).
			AddItem(a.detail, 0, 3, false), 0, 1, true).
		AddItem(a.status, 1, 0, false)

	a.tviewApp.SetRoot(layout, true)
	a.tviewApp.SetInputCapture(a.handleKeyboard)
}

// handleKeyboard handles global keys; navigation stays with the table.
func (a *App) handleKeyboard(event *tcell.EventKey) *tcell.EventKey {
	if event.Key() == tcell.KeyEscape || event.Rune() == 'q' {
		a.Stop()
		return nil
	}
	return event
}

// applySnapshot replaces the table contents with the latest snapshot.
// Runs on the coordinator's polling goroutine, so UI work is queued.
func (a *App) applySnapshot(snap refresh.Snapshot) {
	a.mu.Lock()
	a.flights = snap.Flights
	a.lastTick = snap.FetchedAt
	a.mu.Unlock()

	a.tviewApp.QueueUpdateDraw(func() {
		a.renderTable()
	})
}

func (a *App) renderTable() {
	a.mu.RLock()
	flights := a.flights
	lastTick := a.lastTick
	a.mu.RUnlock()

	a.table.Clear()
	headers := []string{"Callsign", "Airline", "Aircraft", "Route", "Alt ft", "Spd kt", "Hdg", "Range km"}
	for col, h := range headers {
		a.table.SetCell(0, col, tview.NewTableCell("[yellow]"+h+"[-]").
			SetSelectable(false))
	}

	for i, f := range flights {
		rangeKm := ""
		if f.HasPosition() {
			rangeKm = fmt.Sprintf("%.1f", a.service.Distance(a.center, geo.Point{Lat: f.Latitude, Lon: f.Longitude}))
		}
		cells := []string{
			f.Callsign,
			f.Airline,
			f.Aircraft,
			fmt.Sprintf("%s-%s", f.Origin, f.Destination),
			fmt.Sprintf("%.0f", f.Altitude),
			fmt.Sprintf("%.0f", f.Speed),
			fmt.Sprintf("%.0f°", f.Heading),
			rangeKm,
		}
		for col, text := range cells {
			a.table.SetCell(i+1, col, tview.NewTableCell(text))
		}
	}

	title := fmt.Sprintf(" Flights (%d) ", len(flights))
	if !lastTick.IsZero() {
		title = fmt.Sprintf(" Flights (%d)  %s ", len(flights), lastTick.Format("15:04:05"))
	}
	a.table.SetTitle(title)

	row, _ := a.table.GetSelection()
	a.renderDetail(row-1, nil)
}

// renderDetail fills the detail panel for the flight at index. weather is
// optional and rendered when present.
func (a *App) renderDetail(index int, weather *aviation.Weather) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if index < 0 || index >= len(a.flights) {
		a.detail.SetText("[gray]No flight selected[-]")
		return
	}
	f := a.flights[index]

	text := fmt.Sprintf("[yellow]%s[-]  [white]%s[-]\n", f.Callsign, f.Airline)
	text += fmt.Sprintf("[gray]Type:[-]   [white]%s[-]\n", f.Aircraft)
	text += fmt.Sprintf("[gray]Route:[-]  [white]%s → %s[-]\n", f.Origin, f.Destination)
	text += fmt.Sprintf("[gray]Status:[-] [white]%s[-]\n", f.Status)
	text += fmt.Sprintf("[gray]Pos:[-]    [white]%.4f, %.4f[-]\n", f.Latitude, f.Longitude)

	if f.HasPosition() {
		dist := a.service.Distance(a.center, geo.Point{Lat: f.Latitude, Lon: f.Longitude})
		text += fmt.Sprintf("[gray]Range:[-]  [white]%.1f km[-]\n", dist)
		if f.Speed > 0 {
			text += fmt.Sprintf("[gray]ETA:[-]    [white]%s[-]\n", aviation.EstimateFlightTime(dist, f.Speed))
		}
	}

	if weather != nil {
		text += "\n[yellow]Weather at position[-]\n"
		text += fmt.Sprintf("[gray]Temp:[-]  [white]%.1f°C[-]\n", weather.Temperature)
		text += fmt.Sprintf("[gray]Wind:[-]  [white]%.1f m/s @ %.0f°[-]\n", weather.WindSpeed, weather.WindDirection)
		text += fmt.Sprintf("[gray]Vis:[-]   [white]%.0f m[-]\n", weather.Visibility)
		text += fmt.Sprintf("[gray]Rain:[-]  [white]%.1f mm[-]\n", weather.Precipitation)
		text += fmt.Sprintf("[gray]Cloud:[-] [white]%.0f%%[-]\n", weather.CloudCover)
	}

	a.detail.SetText(text)
}

// fetchWeather looks up point weather for the flight at index.
func (a *App) fetchWeather(index int) {
	a.mu.RLock()
	if index < 0 || index >= len(a.flights) {
		a.mu.RUnlock()
		return
	}
	f := a.flights[index]
	a.mu.RUnlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		weather := a.service.FetchWeather(ctx, f.Latitude, f.Longitude)

		a.tviewApp.QueueUpdateDraw(func() {
			if weather == nil {
				a.status.SetText("[red]Weather lookup failed[-]")
				return
			}
			a.renderDetail(index, weather)
		})
	}()
}

// Run starts the coordinator and the UI loop.
func (a *App) Run() error {
	a.coordinator.Subscribe(a.applySnapshot)
	a.coordinator.Start(context.Background())
	return a.tviewApp.Run()
}

// Stop shuts down polling and the UI.
func (a *App) Stop() {
	a.coordinator.Stop()
	a.tviewApp.Stop()
}

func main() {
	configPath := flag.String("config", "configs/config.json", "Path to configuration file")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warnf("Failed to load .env: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	center := geo.Point{Lat: cfg.Overlay.Latitude, Lon: cfg.Overlay.Longitude}
	if cfg.Overlay.AutoLocate {
		ctx, cancel := context.WithTimeout(context.Background(), geoip.DefaultTimeout)
		loc, err := geoip.NewClient(geoip.Config{}).Locate(ctx)
		cancel()
		if err != nil {
			log.Warnf("Geolocation failed, using configured center: %v", err)
		} else {
			center = geo.Point{Lat: loc.Latitude, Lon: loc.Longitude}
		}
	}

	service := aviation.New(aviation.Config{
		FlightsURL:        cfg.Feed.ProxyURL,
		WeatherURL:        cfg.Weather.BaseURL,
		WeatherAPIKey:     cfg.Weather.APIKey,
		RequestsPerSecond: cfg.Feed.RequestsPerSecond,
	})
	coordinator := refresh.NewCoordinator(service, center, cfg.Overlay.RadiusKm,
		time.Duration(cfg.Overlay.RefreshSeconds)*time.Second)

	app := NewApp(service, coordinator, center)
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
