// Radar rendering for cmd/fleet-monitor: a polar-to-screen ASCII
// projection adapted from the teacher's cmd/tui-viewfinder radar, with
// a telescope's single tracked target replaced by however many flight
// polylines internal/query.Service.GetFlights returns for the current
// window.
package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/skypath/gis/internal/query"
	"github.com/skypath/gis/pkg/geo"
)

const (
	radarWidth     = 61
	radarHeight    = 31
	radarAspect    = 0.5 // terminal cells are roughly twice as tall as wide
	metersPerNM    = 1852.0
)

var ringRangesNM = []float64{10, 25, 50, 100}

var (
	styleRing   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	styleAxis   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	styleOrigin = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	stylePath   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	styleHead   = lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true)
)

// radarToScreen projects a geographic point to a (col,row) cell on the
// radar grid, centered on m.center, using great-circle distance and
// initial bearing exactly as the teacher's radarToScreen does with
// coordinates.DistanceNauticalMiles/Bearing, substituted here for
// pkg/geo's DistanceM/Bearing.
func (m model) radarToScreen(p geo.Point) (int, int, bool) {
	distM := geo.DistanceM(m.center, p)
	distNM := distM / metersPerNM
	if distNM > m.radiusNM {
		return 0, 0, false
	}

	bearingDeg := geo.Bearing(m.center, p)
	bearingRad := bearingDeg * math.Pi / 180

	scale := float64(radarWidth/2-1) / m.radiusNM
	x := distNM * math.Sin(bearingRad) * scale
	y := -distNM * math.Cos(bearingRad) * scale * radarAspect

	col := radarWidth/2 + int(math.Round(x))
	row := radarHeight/2 + int(math.Round(y))
	if col < 0 || col >= radarWidth || row < 0 || row >= radarHeight {
		return 0, 0, false
	}
	return col, row, true
}

func newGrid() [][]rune {
	grid := make([][]rune, radarHeight)
	for r := range grid {
		grid[r] = make([]rune, radarWidth)
		for c := range grid[r] {
			grid[r][c] = ' '
		}
	}
	return grid
}

func setPixel(grid [][]rune, x, y int, char rune) {
	if y < 0 || y >= len(grid) || x < 0 || x >= len(grid[0]) {
		return
	}
	grid[y][x] = char
}

// drawCircle draws one range ring with Bresenham's circle algorithm,
// correcting for the terminal's non-square cells the same way the
// teacher's drawCircle does.
func drawCircle(grid [][]rune, cx, cy, radius int, aspectRatio float64, char rune) {
	x, y := radius, 0
	err := 0
	for x >= y {
		for _, pt := range [][2]int{
			{x, y}, {y, x}, {-y, x}, {-x, y},
			{-x, -y}, {-y, -x}, {y, -x}, {x, -y},
		} {
			setPixel(grid, cx+pt[0], cy+int(float64(pt[1])*aspectRatio), char)
		}
		y++
		if err <= 0 {
			err += 2*y + 1
		}
		if err > 0 {
			x--
			err -= 2*x + 1
		}
	}
}

func (m model) renderRadar() string {
	grid := newGrid()
	cx, cy := radarWidth/2, radarHeight/2

	for _, rangeNM := range ringRangesNM {
		if rangeNM > m.radiusNM {
			continue
		}
		radius := int(rangeNM / m.radiusNM * float64(radarWidth/2-1))
		drawCircle(grid, cx, cy, radius, radarAspect, '.')
	}
	for row := 0; row < radarHeight; row++ {
		setPixel(grid, cx, row, '|')
	}
	for col := 0; col < radarWidth; col++ {
		setPixel(grid, col, cy, '-')
	}
	setPixel(grid, cx, 0, 'N')
	setPixel(grid, cx, radarHeight-1, 'S')
	setPixel(grid, radarWidth-1, cy, 'E')
	setPixel(grid, 0, cy, 'W')
	setPixel(grid, cx, cy, '+')

	for _, fl := range m.flights {
		drawFlightPath(grid, m, fl)
	}

	var b strings.Builder
	for row := 0; row < radarHeight; row++ {
		for col := 0; col < radarWidth; col++ {
			ch := grid[row][col]
			b.WriteString(styleForCell(ch).Render(string(ch)))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func styleForCell(ch rune) lipgloss.Style {
	switch ch {
	case '.':
		return styleRing
	case '|', '-':
		return styleAxis
	case '+', 'N', 'S', 'E', 'W':
		return styleOrigin
	case '*':
		return styleHead
	default:
		return stylePath
	}
}

// drawFlightPath plots a flight's polyline onto the grid, tracing each
// leg between consecutive projected vertices with a coarse Bresenham
// line walk, and marking its final (current) position with '*'.
func drawFlightPath(grid [][]rune, m model, fl query.FlightRecord) {
	var prevCol, prevRow int
	havePrev := false
	for i, p := range fl.Points {
		col, row, ok := m.radarToScreen(p.To2D())
		if !ok {
			havePrev = false
			continue
		}
		if havePrev {
			drawSegment(grid, prevCol, prevRow, col, row, '.')
		}
		prevCol, prevRow, havePrev = col, row, true
		if i == len(fl.Points)-1 {
			setPixel(grid, col, row, '*')
		} else if grid[row][col] == ' ' {
			setPixel(grid, col, row, 'o')
		}
	}
}

// drawSegment walks a straight line between two grid cells with a
// standard Bresenham line algorithm.
func drawSegment(grid [][]rune, x0, y0, x1, y1 int, char rune) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		if grid[y0][x0] == ' ' {
			setPixel(grid, x0, y0, char)
		}
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func (m model) renderRadarInfo() string {
	var b strings.Builder
	fmt.Fprintf(&b, "center %.4f,%.4f  radius %.0fNM  flights in window: %d\n",
		m.center.Lat, m.center.Lon, m.radiusNM, len(m.flights))
	if m.err != nil {
		fmt.Fprintf(&b, "last poll error: %v\n", m.err)
	}
	b.WriteString("rings: ")
	for _, r := range ringRangesNM {
		if r <= m.radiusNM {
			fmt.Fprintf(&b, "%.0fNM ", r)
		}
	}
	return b.String()
}
