// Package output writes linking results as tab separated text files.
package output

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kass/go-forcing-link/pkg/link"
	"github.com/kass/go-forcing-link/pkg/models"
)

const (
	// ForcKeyFile is the file name of the basin to forcing id key
	ForcKeyFile = "ForcKey.txt"
	// CellsFile is the file name of the forcing id to grid cell table
	CellsFile = "ForcCells.txt"
)

// ErrUnlinkedBasin indicates a basin without a forcing id.
var ErrUnlinkedBasin = errors.New("output: basin has no forcing id")

// WriteForcKey writes one "SUBID POBSID TOBSID" line per basin, sorted by
// SUBID. Precipitation and temperature use the same forcing id.
func WriteForcKey(w io.Writer, basins []*models.Basin) error {
	sorted := slices.Clone(basins)
	slices.SortFunc(sorted, func(a, b *models.Basin) int { return a.ID - b.ID })

	cw := newWriter(w)
	if err := cw.Write([]string{"SUBID", "POBSID", "TOBSID"}); err != nil {
		return err
	}
	for _, b := range sorted {
		if b.ForcingID == 0 {
			return fmt.Errorf("%w: %d", ErrUnlinkedBasin, b.ID)
		}
		id := strconv.Itoa(b.ForcingID)
		if err := cw.Write([]string{strconv.Itoa(b.ID), id, id}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCells writes one "FORCINGID I J LON LAT" line per table entry in
// ascending id order.
func WriteCells(w io.Writer, table *link.Table, grid models.Grid) error {
	cw := newWriter(w)
	if err := cw.Write([]string{"FORCINGID", "I", "J", "LON", "LAT"}); err != nil {
		return err
	}
	for _, e := range table.Entries() {
		if !grid.Contains(e.Cell) {
			return fmt.Errorf("output: forcing id %d cell %v outside grid", e.ID, e.Cell)
		}
		loc := grid.Location(e.Cell)
		row := []string{
			strconv.Itoa(e.ID),
			strconv.Itoa(e.Cell.I),
			strconv.Itoa(e.Cell.J),
			formatCoord(loc.Lon),
			formatCoord(loc.Lat),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFiles writes ForcKeyFile and CellsFile for result into dir and
// returns their paths.
func WriteFiles(dir string, result *link.Result) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "output: create %s", dir)
	}

	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{ForcKeyFile, func(w io.Writer) error { return WriteForcKey(w, result.Basins) }},
		{CellsFile, func(w io.Writer) error { return WriteCells(w, result.Table, result.Grid) }},
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := writeFile(path, f.write); err != nil {
			return nil, err
		}
		zap.L().Debug("wrote output file", zap.String("path", path))
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "output: create %s", path)
	}
	defer file.Close()

	if err := write(file); err != nil {
		return eris.Wrapf(err, "output: write %s", path)
	}
	return file.Close()
}

func newWriter(w io.Writer) *csv.Writer {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	return cw
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
