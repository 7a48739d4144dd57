// Terminal flight map overlay.
// Renders coordinator snapshots as a scrolling map panel: flights, their
// great-circle paths from the observer, and the simulated weather layer.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"

	"github.com/kappaborg/flightmap/pkg/aviation"
	"github.com/kappaborg/flightmap/pkg/config"
	"github.com/kappaborg/flightmap/pkg/feed"
	"github.com/kappaborg/flightmap/pkg/geo"
	"github.com/kappaborg/flightmap/pkg/geoip"
	"github.com/kappaborg/flightmap/pkg/refresh"
)

// Map viewport dimensions
const (
	mapWidth  = 80
	mapHeight = 28
)

type snapshotMsg refresh.Snapshot

type weatherCellsMsg []refresh.WeatherCell

// flightWeatherMsg carries the point-weather lookup result for a selected
// flight. Weather is nil when the lookup failed.
type flightWeatherMsg struct {
	flightID string
	weather  *aviation.Weather
}

type model struct {
	service     *aviation.Service
	coordinator *refresh.Coordinator
	weatherSim  *refresh.WeatherSimulator

	center   geo.Point
	radiusKm float64
	box      geo.Box

	snapshot refresh.Snapshot
	cells    []refresh.WeatherCell
	selected int
	paused   bool

	// weather holds the last point-weather lookup, keyed by flight so a
	// stale response for a deselected flight is ignored.
	weatherFor string
	weather    *aviation.Weather
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.coordinator.Stop()
			m.weatherSim.Stop()
			return m, tea.Quit
		case "up", "k":
			if m.selected > 0 {
				m.selected--
				m.weather = nil
				m.weatherFor = ""
			}
		case "down", "j":
			if m.selected < len(m.snapshot.Flights)-1 {
				m.selected++
				m.weather = nil
				m.weatherFor = ""
			}
		case "enter", " ":
			if m.selected < len(m.snapshot.Flights) {
				return m, m.fetchWeatherCmd(m.snapshot.Flights[m.selected])
			}
		case "p":
			if m.paused {
				m.coordinator.Start(context.Background())
				m.weatherSim.Start(context.Background())
			} else {
				m.coordinator.Stop()
				m.weatherSim.Stop()
			}
			m.paused = !m.paused
		}

	case snapshotMsg:
		m.snapshot = refresh.Snapshot(msg)
		if m.selected >= len(m.snapshot.Flights) {
			m.selected = 0
		}

	case weatherCellsMsg:
		m.cells = msg

	case flightWeatherMsg:
		// Drop responses for flights no longer selected.
		if m.selected < len(m.snapshot.Flights) && m.snapshot.Flights[m.selected].ID == msg.flightID {
			m.weatherFor = msg.flightID
			m.weather = msg.weather
		}
	}

	return m, nil
}

// fetchWeatherCmd looks up current weather at the selected flight's position.
func (m model) fetchWeatherCmd(f feed.Flight) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return flightWeatherMsg{
			flightID: f.ID,
			weather:  m.service.FetchWeather(ctx, f.Latitude, f.Longitude),
		}
	}
}

func (m model) View() string {
	var s strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("86")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	title := fmt.Sprintf("FLIGHT MAP  %.4f, %.4f  r=%.0fkm", m.center.Lat, m.center.Lon, m.radiusKm)
	if m.paused {
		title += "  [PAUSED]"
	}
	s.WriteString(titleStyle.Render(title))
	s.WriteString("\n\n")

	// Map panel beside the flight list
	mapLines := strings.Split(m.renderMap(), "\n")
	infoLines := strings.Split(m.renderInfo(), "\n")

	maxLines := len(mapLines)
	if len(infoLines) > maxLines {
		maxLines = len(infoLines)
	}
	for i := 0; i < maxLines; i++ {
		if i < len(mapLines) {
			s.WriteString(mapLines[i])
		} else {
			s.WriteString(strings.Repeat(" ", mapWidth))
		}
		s.WriteString("  ")
		if i < len(infoLines) {
			s.WriteString(infoLines[i])
		}
		s.WriteString("\n")
	}

	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("↑/↓: Select  ENTER: Weather  P: Pause  Q: Quit"))
	s.WriteString("\n")

	return s.String()
}

// renderMap draws the coverage box as a character grid: paths first, then
// weather cells, then flights on top.
func (m model) renderMap() string {
	var out strings.Builder

	borderStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	out.WriteString(borderStyle.Render("┌" + strings.Repeat("─", mapWidth-2) + "┐"))
	out.WriteString("\n")

	grid := make([][]rune, mapHeight)
	for i := range grid {
		grid[i] = make([]rune, mapWidth-2)
		for j := range grid[i] {
			grid[i][j] = ' '
		}
	}

	// Path polylines
	for _, path := range m.snapshot.Paths {
		for _, p := range path.Coordinates {
			x, y, ok := m.toScreen(p)
			if ok && grid[y][x] == ' ' {
				grid[y][x] = '·'
			}
		}
	}

	// Weather cells: marker plus a halo scaled by intensity
	for _, cell := range m.cells {
		x, y, ok := m.toScreen(cell.Center)
		if !ok {
			continue
		}
		halo := int(cell.Intensity * 3)
		for dy := -halo; dy <= halo; dy++ {
			for dx := -halo * 2; dx <= halo*2; dx++ {
				nx, ny := x+dx, y+dy
				if ny >= 0 && ny < mapHeight && nx >= 0 && nx < mapWidth-2 && grid[ny][nx] == ' ' {
					grid[ny][nx] = '░'
				}
			}
		}
		grid[y][x] = weatherRune(cell.Kind)
	}

	// Observer center
	if x, y, ok := m.toScreen(m.center); ok {
		grid[y][x] = '+'
	}

	// Flights
	for i, f := range m.snapshot.Flights {
		if !f.HasPosition() {
			continue
		}
		x, y, ok := m.toScreen(geo.Point{Lat: f.Latitude, Lon: f.Longitude})
		if !ok {
			continue
		}
		if i == m.selected {
			grid[y][x] = '●'
		} else {
			grid[y][x] = '○'
		}
	}

	for y := 0; y < mapHeight; y++ {
		out.WriteString(borderStyle.Render("│"))
		for x := 0; x < mapWidth-2; x++ {
			char := grid[y][x]
			switch char {
			case '●':
				out.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true).Render(string(char)))
			case '○':
				out.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("75")).Render(string(char)))
			case '+':
				out.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Render(string(char)))
			case '·':
				out.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("237")).Render(string(char)))
			case '░':
				out.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("24")).Render(string(char)))
			case 'R', 'S', 'F':
				out.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true).Render(string(char)))
			default:
				out.WriteRune(char)
			}
		}
		out.WriteString(borderStyle.Render("│"))
		out.WriteString("\n")
	}

	out.WriteString(borderStyle.Render("└" + strings.Repeat("─", mapWidth-2) + "┘"))
	return out.String()
}

// toScreen maps a coordinate inside the coverage box onto the grid.
func (m model) toScreen(p geo.Point) (int, int, bool) {
	latSpan := m.box.MaxLat - m.box.MinLat
	lonSpan := m.box.MaxLon - m.box.MinLon
	if latSpan <= 0 || lonSpan <= 0 {
		return 0, 0, false
	}

	x := int((p.Lon - m.box.MinLon) / lonSpan * float64(mapWidth-3))
	// Screen Y grows downward, latitude grows upward
	y := int((m.box.MaxLat - p.Lat) / latSpan * float64(mapHeight-1))

	if x < 0 || x >= mapWidth-2 || y < 0 || y >= mapHeight {
		return 0, 0, false
	}
	return x, y, true
}

func weatherRune(kind string) rune {
	switch kind {
	case "rain":
		return 'R'
	case "storm":
		return 'S'
	case "fog":
		return 'F'
	}
	return '?'
}

// renderInfo renders the flight list and the selected flight's detail panel.
func (m model) renderInfo() string {
	var list strings.Builder

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	list.WriteString(headerStyle.Render("Flights"))
	list.WriteString(fmt.Sprintf(" (%d)", len(m.snapshot.Flights)))
	if !m.snapshot.FetchedAt.IsZero() {
		list.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("241")).
			Render("  " + m.snapshot.FetchedAt.Format("15:04:05")))
	}
	list.WriteString("\n\n")

	if len(m.snapshot.Flights) == 0 {
		list.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("  No flights in range"))
		return list.String()
	}

	// Window of up to 10 rows around the selection
	start := 0
	if m.selected > 4 && len(m.snapshot.Flights) > 10 {
		start = m.selected - 4
	}
	end := start + 10
	if end > len(m.snapshot.Flights) {
		end = len(m.snapshot.Flights)
	}

	for i := start; i < end; i++ {
		f := m.snapshot.Flights[i]

		prefix := "  "
		if i == m.selected {
			prefix = "→ "
		}

		line := fmt.Sprintf("%s%-8s %6.0f ft %4.0f kt  %s-%s",
			prefix, f.Callsign, f.Altitude, f.Speed, f.Origin, f.Destination)

		if i == m.selected {
			line = lipgloss.NewStyle().Background(lipgloss.Color("237")).Render(line)
		}
		list.WriteString(line)
		list.WriteString("\n")
	}

	// Detail panel for the selected flight
	if m.selected < len(m.snapshot.Flights) {
		f := m.snapshot.Flights[m.selected]
		detailStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))

		list.WriteString("\n")
		list.WriteString(detailStyle.Render(fmt.Sprintf("%s  %s (%s)", f.Callsign, f.Airline, f.Aircraft)))
		list.WriteString("\n")
		list.WriteString(fmt.Sprintf("Hdg %.0f°  Status: %s\n", f.Heading, f.Status))

		if f.HasPosition() {
			dist := m.service.Distance(m.center, geo.Point{Lat: f.Latitude, Lon: f.Longitude})
			list.WriteString(fmt.Sprintf("Range %.1f km", dist))
			if f.Speed > 0 {
				list.WriteString(fmt.Sprintf("  ETA %s", aviation.EstimateFlightTime(dist, f.Speed)))
			}
			list.WriteString("\n")
		}

		if m.weather != nil && m.weatherFor == f.ID {
			wxStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
			list.WriteString("\n")
			list.WriteString(wxStyle.Render("Weather at position"))
			list.WriteString("\n")
			list.WriteString(fmt.Sprintf("%.1f°C  wind %.1f m/s @ %.0f°\n",
				m.weather.Temperature, m.weather.WindSpeed, m.weather.WindDirection))
			list.WriteString(fmt.Sprintf("vis %.0f m  rain %.1f mm  cloud %.0f%%\n",
				m.weather.Visibility, m.weather.Precipitation, m.weather.CloudCover))
		}
	}

	return list.String()
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
	weatherSim := refresh.NewWeatherSimulator(center, cfg.Overlay.RadiusKm,
		time.Duration(cfg.Overlay.WeatherRefreshSeconds)*time.Second, time.Now().UnixNano())

	m := model{
		service:     service,
		coordinator: coordinator,
		weatherSim:  weatherSim,
		center:      center,
		radiusKm:    cfg.Overlay.RadiusKm,
		box:         geo.BoundingBox(center, cfg.Overlay.RadiusKm),
		cells:       weatherSim.Cells(),
	}

	p := tea.NewProgram(m, tea.WithAltScreen())

	// Snapshot and weather updates arrive on the polling goroutines; Send
	// hands them to the bubbletea loop.
	coordinator.Subscribe(func(s refresh.Snapshot) { p.Send(snapshotMsg(s)) })
	weatherSim.Subscribe(func(cells []refresh.WeatherCell) { p.Send(weatherCellsMsg(cells)) })

	coordinator.Start(context.Background())
	weatherSim.Start(context.Background())
	defer coordinator.Stop()
	defer weatherSim.Stop()

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
