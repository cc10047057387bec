// SkyPath GIS Fleet Monitor
//
// A terminal radar HUD over internal/query.Service.GetFlights, adapted
// from the teacher's cmd/tui-viewfinder telescope radar: the same
// polar-to-screen projection and Bresenham ring drawing, now plotting
// scheduled flight polylines around a configurable center point instead
// of a single tracked aircraft around an airport.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/skypath/gis/internal/conflict"
	"github.com/skypath/gis/internal/ingest"
	"github.com/skypath/gis/internal/query"
	"github.com/skypath/gis/internal/store"
	"github.com/skypath/gis/pkg/config"
	"github.com/skypath/gis/pkg/geo"
)

var (
	configPath = flag.String("config", "configs/config.json", "Path to configuration file")
	centerLat  = flag.Float64("lat", 40.7128, "Radar center latitude")
	centerLon  = flag.Float64("lon", -74.0060, "Radar center longitude")
	radiusNM   = flag.Float64("radius-nm", 100, "Radar radius in nautical miles")
	window     = flag.Duration("window", time.Hour, "How far ahead of now to look for scheduled flights")
	refresh    = flag.Duration("refresh", 5*time.Second, "How often to repoll get_flights")
)

type tickMsg time.Time

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// flightsMsg carries the result of one get_flights poll back into
// Update.
type flightsMsg struct {
	flights []query.FlightRecord
	err     error
}

type model struct {
	svc      *query.Service
	center   geo.Point
	radiusNM float64
	window   time.Duration
	refresh  time.Duration

	flights []query.FlightRecord
	err     error
	quit    bool
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.pollCmd(), tick(m.refresh))
}

func (m model) pollCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		latSpanDeg := m.radiusNM * 1852.0 / 111320.0
		lonSpanDeg := latSpanDeg / cosDeg(m.center.Lat)
		now := time.Now().UTC()

		flights, err := m.svc.GetFlights(ctx, query.GetFlightsRequest{
			MinLat: m.center.Lat - latSpanDeg,
			MaxLat: m.center.Lat + latSpanDeg,
			MinLon: m.center.Lon - lonSpanDeg,
			MaxLon: m.center.Lon + lonSpanDeg,
			TStart: now,
			TEnd:   now.Add(m.window),
		})
		return flightsMsg{flights: flights, err: err}
	}
}

// cosDeg floors near the poles so the longitude span used to build the
// get_flights query rectangle never blows up.
func cosDeg(deg float64) float64 {
	c := math.Cos(deg * math.Pi / 180)
	if c < 0.1 {
		c = 0.1
	}
	return c
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quit = true
			return m, tea.Quit
		case "+", "=":
			m.radiusNM *= 1.25
			return m, m.pollCmd()
		case "-", "_":
			m.radiusNM /= 1.25
			if m.radiusNM < 5 {
				m.radiusNM = 5
			}
			return m, m.pollCmd()
		}
	case tickMsg:
		return m, tea.Batch(m.pollCmd(), tick(m.refresh))
	case flightsMsg:
		m.flights = msg.flights
		m.err = msg.err
		return m, nil
	}
	return m, nil
}

func (m model) View() string {
	if m.quit {
		return ""
	}
	title := lipgloss.NewStyle().Bold(true).Render("SkyPath GIS — Fleet Monitor")
	return fmt.Sprintf("%s\n\n%s\n%s\npress +/- to zoom, q to quit\n",
		title, m.renderRadar(), m.renderRadarInfo())
}

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	backend, err := store.Connect(cfg.Database, cfg.Pool)
	if err != nil {
		log.Fatalf("failed to connect to backend: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()
	if err := backend.InitSchema(ctx); err != nil {
		log.Fatalf("failed to initialize schema: %v", err)
	}

	ingestSvc := ingest.NewService(backend)
	conflictEngine := conflict.New(backend, conflict.Config{
		ThresholdM: cfg.Routing.IntersectionThresholdM,
		MinLenM:    cfg.Routing.MinSegmentLenM,
	})
	tolerance := time.Duration(cfg.Routing.CandidateToleranceSeconds) * time.Second
	svc := query.New(backend, ingestSvc, conflictEngine, tolerance)

	m := model{
		svc:      svc,
		center:   geo.Point{Lat: *centerLat, Lon: *centerLon},
		radiusNM: *radiusNM,
		window:   *window,
		refresh:  *refresh,
	}

	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "fleet-monitor: %v\n", err)
		os.Exit(1)
	}
}
