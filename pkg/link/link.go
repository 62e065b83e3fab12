// Package link turns per-basin nearest grid cells into a table of synthetic
// forcing identifiers and annotates each basin with its identifier.
package link

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kass/go-forcing-link/pkg/models"
	"github.com/kass/go-forcing-link/pkg/nearest"
)

// CreateLinks assigns forcing ids to the distinct cells of nearest and sets
// ForcingID on every basin.
//
// Distinct cells are numbered from models.BaseForcingID in row-major order
// (longitude index, then latitude index), so the same input always yields the
// same ids. nearest and basins must cover exactly the same basin ids; when
// they do not, no basin is modified.
func CreateLinks(nearestCells map[int]models.GridCell, basins []*models.Basin) (*Table, error) {
	if err := checkConsistent(nearestCells, basins); err != nil {
		return nil, err
	}

	seen := make(map[models.GridCell]struct{}, len(nearestCells))
	cells := make([]models.GridCell, 0, len(nearestCells))
	for _, cell := range nearestCells {
		if _, ok := seen[cell]; ok {
			continue
		}
		seen[cell] = struct{}{}
		cells = append(cells, cell)
	}
	sort.Slice(cells, func(a, b int) bool { return cells[a].Less(cells[b]) })

	table := newTable(len(cells))
	for k, cell := range cells {
		if err := table.add(models.BaseForcingID+k, cell); err != nil {
			return nil, err
		}
	}

	for _, b := range basins {
		id, _ := table.Lookup(nearestCells[b.ID])
		b.ForcingID = id
	}
	return table, nil
}

func checkConsistent(nearestCells map[int]models.GridCell, basins []*models.Basin) error {
	known := make(map[int]struct{}, len(basins))
	for k, b := range basins {
		if b == nil {
			return fmt.Errorf("link: basin at position %d is nil", k)
		}
		if _, ok := known[b.ID]; ok {
			return &models.DuplicateBasinError{ID: b.ID}
		}
		known[b.ID] = struct{}{}
		if _, ok := nearestCells[b.ID]; !ok {
			return &MissingBasinError{ID: b.ID, MissingFrom: "nearest"}
		}
	}

	if len(nearestCells) != len(known) {
		ids := make([]int, 0, len(nearestCells))
		for id := range nearestCells {
			if _, ok := known[id]; !ok {
				ids = append(ids, id)
			}
		}
		sort.Ints(ids)
		return &MissingBasinError{ID: ids[0], MissingFrom: "basins"}
	}
	return nil
}

// Options tunes Link.
type Options struct {
	// Workers bounds concurrent basin searches; see nearest.Finder.
	Workers int
	// Exhaustive searches the whole grid instead of the basin window.
	Exhaustive bool
}

// Result is the outcome of one linking run.
type Result struct {
	RunID     uuid.UUID
	CreatedAt time.Time
	Grid      models.Grid
	Window    nearest.Window
	Basins    []*models.Basin
	Nearest   map[int]models.GridCell
	Table     *Table
}

// Link finds the nearest grid cell of every basin and builds the forcing id
// table. Basins are annotated in place.
func Link(ctx context.Context, grid models.Grid, basins []*models.Basin, opts Options) (*Result, error) {
	var (
		cells map[int]models.GridCell
		err   error
	)
	if opts.Exhaustive {
		cells, err = nearest.FindNearestExhaustive(grid, basins)
	} else {
		cells, err = nearest.Finder{Workers: opts.Workers}.Find(ctx, grid, basins)
	}
	if err != nil {
		return nil, err
	}

	window := nearest.Full(grid)
	if !opts.Exhaustive {
		if window, _, err = nearest.BasinWindow(grid, basins); err != nil {
			return nil, err
		}
	}

	table, err := CreateLinks(cells, basins)
	if err != nil {
		return nil, err
	}

	runID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("link: generate run id: %w", err)
	}

	return &Result{
		RunID:     runID,
		CreatedAt: time.Now().UTC(),
		Grid:      grid,
		Window:    window,
		Basins:    basins,
		Nearest:   cells,
		Table:     table,
	}, nil
}

// Location returns the coordinate of the grid node behind forcing id
func (r *Result) Location(id int) (models.Location, bool) {
	cell, ok := r.Table.Cell(id)
	if !ok {
		return models.Location{}, false
	}
	return r.Grid.Location(cell), true
}
