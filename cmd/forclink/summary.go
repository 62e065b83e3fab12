package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/kass/go-forcing-link/internal/logging"
	"github.com/kass/go-forcing-link/pkg/link"
	"github.com/kass/go-forcing-link/pkg/models"
	"github.com/kass/go-forcing-link/pkg/nearest"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF79C6"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6272A4"))

	statStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFB86C"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#BD93F9")).
			Padding(1, 2)
)

var stdout io.Writer = os.Stdout

// report collects label/value rows rendered as a box on a terminal and as
// plain "label: value" lines otherwise
type report struct {
	title string
	rows  [][2]string
}

func (r *report) add(label string, format string, args ...any) {
	r.rows = append(r.rows, [2]string{label, fmt.Sprintf(format, args...)})
}

func (r *report) render(styled bool) string {
	width := 0
	for _, row := range r.rows {
		width = max(width, len(row[0]))
	}

	var b strings.Builder
	if styled {
		b.WriteString(titleStyle.Render(r.title))
	} else {
		b.WriteString(r.title)
	}
	for _, row := range r.rows {
		label := fmt.Sprintf("%-*s", width+1, row[0]+":")
		b.WriteString("\n")
		if styled {
			b.WriteString(labelStyle.Render(label) + " " + statStyle.Render(row[1]))
		} else {
			b.WriteString(label + " " + row[1])
		}
	}

	if styled {
		return boxStyle.Render(b.String())
	}
	return b.String()
}

func (r *report) print() {
	fmt.Fprintln(stdout, r.render(logging.IsTerminal(os.Stdout)))
}

type linkSummary struct {
	result  *link.Result
	files   []string
	objects []string
	elapsed time.Duration
}

func printSummary(s linkSummary) {
	r := &report{title: "Forcing links created"}
	r.add("Run", "%s", s.result.RunID)
	r.add("Basins", "%d", len(s.result.Basins))
	r.add("Forcing ids", "%d", s.result.Table.Len())
	if ids := s.result.Table.IDs(); len(ids) > 0 {
		r.add("Id range", "%d - %d", ids[0], ids[len(ids)-1])
	}
	r.add("Grid", "%d x %d", len(s.result.Grid.Longitudes), len(s.result.Grid.Latitudes))
	r.add("Window", "%s (%d cells)", s.result.Window, s.result.Window.Len())
	for _, f := range s.files {
		r.add("Wrote", "%s", f)
	}
	for _, o := range s.objects {
		r.add("Uploaded", "%s", o)
	}
	r.add("Elapsed", "%s", s.elapsed.Round(time.Millisecond))
	r.print()
}

type windowSummary struct {
	grid   models.Grid
	box    models.BoundingBox
	window nearest.Window
	basins int
}

func printWindow(s windowSummary) {
	r := &report{title: "Search window"}
	r.add("Basins", "%d", s.basins)
	r.add("Centroid lon", "%g .. %g", s.box.BottomLeft.Lon, s.box.TopRight.Lon)
	r.add("Centroid lat", "%g .. %g", s.box.BottomLeft.Lat, s.box.TopRight.Lat)
	r.add("Window", "%s", s.window)
	r.add("Lon range", "%g .. %g", s.grid.Longitudes[s.window.IMin], s.grid.Longitudes[s.window.IMax-1])
	r.add("Lat range", "%g .. %g", s.grid.Latitudes[s.window.JMin], s.grid.Latitudes[s.window.JMax-1])
	r.add("Candidates", "%d of %d cells (%.1f%%)", s.window.Len(), s.grid.Size(),
		100*float64(s.window.Len())/float64(s.grid.Size()))
	r.print()
}

func printLookup(runID string, subid, forcingID int, cell *models.GridCell, loc models.Location) {
	r := &report{title: "Basin " + fmt.Sprint(subid)}
	r.add("Run", "%s", runID)
	r.add("Forcing id", "%d", forcingID)
	if cell != nil {
		r.add("Cell", "%s", *cell)
		r.add("Node", "%g, %g", loc.Lon, loc.Lat)
	}
	r.print()
}

func printBasins(header string, basins []*models.Basin, describe func(*models.Basin) string) {
	r := &report{title: fmt.Sprintf("%d basins in run %s", len(basins), header)}
	for _, b := range basins {
		value := fmt.Sprintf("%d", b.ForcingID)
		if describe != nil {
			value += "  " + describe(b)
		}
		r.add(fmt.Sprint(b.ID), "%s", value)
	}
	r.print()
}
