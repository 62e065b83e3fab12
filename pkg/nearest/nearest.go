// Package nearest finds, for every basin, the node of a regular lon/lat grid
// with the smallest great-circle distance to the basin centroid.
//
// The search is restricted to the sub-window of the grid that brackets all
// basin centroids. Within the window candidates are enumerated longitude-major,
// then latitude; on equal distances the first candidate in that order wins.
package nearest

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/kass/go-forcing-link/pkg/geo"
	"github.com/kass/go-forcing-link/pkg/models"
)

// candidate is one grid node of the search window
type candidate struct {
	cell models.GridCell
	loc  models.Location
}

// FindNearest maps every basin id to its nearest grid cell within the
// window computed from the basin centroids.
func FindNearest(grid models.Grid, basins []*models.Basin) (map[int]models.GridCell, error) {
	return Finder{Workers: 1}.Find(context.Background(), grid, basins)
}

// FindNearestExhaustive is FindNearest without windowing: every basin is
// compared against every node of the grid.
func FindNearestExhaustive(grid models.Grid, basins []*models.Basin) (map[int]models.GridCell, error) {
	if err := checkInputs(grid, basins); err != nil {
		return nil, err
	}
	cands := candidates(grid, Full(grid))
	result := make(map[int]models.GridCell, len(basins))
	for _, b := range basins {
		result[b.ID] = closest(b.Centroid, cands)
	}
	return result, nil
}

// Finder runs the windowed nearest-cell search, optionally spreading basins
// over several goroutines. The result does not depend on Workers.
type Finder struct {
	// Workers bounds the number of concurrent basin searches.
	// Zero means runtime.NumCPU().
	Workers int
}

// Find maps every basin id to its nearest grid cell.
func (f Finder) Find(ctx context.Context, grid models.Grid, basins []*models.Basin) (map[int]models.GridCell, error) {
	window, _, err := BasinWindow(grid, basins)
	if err != nil {
		return nil, err
	}
	cands := candidates(grid, window)

	cells := make([]models.GridCell, len(basins))
	workers := f.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	if workers == 1 {
		for k, b := range basins {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			cells[k] = closest(b.Centroid, cands)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for k, b := range basins {
			k, b := k, b
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				cells[k] = closest(b.Centroid, cands)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	result := make(map[int]models.GridCell, len(basins))
	for k, b := range basins {
		result[b.ID] = cells[k]
	}
	return result, nil
}

func checkInputs(grid models.Grid, basins []*models.Basin) error {
	if len(basins) == 0 {
		return &EmptyInputError{Input: "basins"}
	}
	if len(grid.Longitudes) == 0 {
		return &EmptyInputError{Input: "longitudes"}
	}
	if len(grid.Latitudes) == 0 {
		return &EmptyInputError{Input: "latitudes"}
	}
	if err := grid.Validate(); err != nil {
		return fmt.Errorf("nearest: %w", err)
	}

	seen := make(map[int]struct{}, len(basins))
	for k, b := range basins {
		if b == nil {
			return fmt.Errorf("nearest: basin at position %d is nil", k)
		}
		if !finite(b.Centroid.Lon) || !finite(b.Centroid.Lat) {
			return fmt.Errorf("nearest: basin %d has non-finite centroid (%g, %g)", b.ID, b.Centroid.Lon, b.Centroid.Lat)
		}
		if _, ok := seen[b.ID]; ok {
			return &models.DuplicateBasinError{ID: b.ID}
		}
		seen[b.ID] = struct{}{}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// candidates enumerates the nodes of w longitude-major, then latitude.
func candidates(grid models.Grid, w Window) []candidate {
	cands := make([]candidate, 0, w.Len())
	for i := w.IMin; i < w.IMax; i++ {
		for j := w.JMin; j < w.JMax; j++ {
			cell := models.GridCell{I: i, J: j}
			cands = append(cands, candidate{cell: cell, loc: grid.Location(cell)})
		}
	}
	return cands
}

// closest returns the first candidate at minimal distance from loc.
func closest(loc models.Location, cands []candidate) models.GridCell {
	best := math.Inf(1)
	var cell models.GridCell
	for _, c := range cands {
		if d := geo.Distance(loc, c.loc); d < best {
			best = d
			cell = c.cell
		}
	}
	return cell
}
