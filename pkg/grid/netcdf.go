// Package grid reads the longitude and latitude axes of a gridded forcing
// dataset stored as classic (version 3) netCDF.
package grid

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/ctessum/cdf"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kass/go-forcing-link/pkg/models"
)

// ErrAxisNotFound indicates that the dataset has no variable of the requested name.
var ErrAxisNotFound = errors.New("grid: axis variable not found")

// AxisNames holds the variable names of the two grid axes
type AxisNames struct {
	Lon string `yaml:"lon"`
	Lat string `yaml:"lat"`
}

// DefaultAxisNames returns the names used by ERA5-style forcing files
func DefaultAxisNames() AxisNames {
	return AxisNames{Lon: "longitude", Lat: "latitude"}
}

// ReadNetCDF reads the grid axes from the netCDF file at path.
func ReadNetCDF(path string, names AxisNames) (models.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.Grid{}, eris.Wrapf(err, "grid: open %s", path)
	}
	defer f.Close()

	nc, err := cdf.Open(f)
	if err != nil {
		return models.Grid{}, eris.Wrapf(err, "grid: read netcdf header %s", path)
	}

	g, err := readAxes(nc, names)
	if err != nil {
		return models.Grid{}, err
	}
	zap.L().Info("read forcing grid",
		zap.String("path", path),
		zap.Int("longitudes", len(g.Longitudes)),
		zap.Int("latitudes", len(g.Latitudes)),
	)
	return g, nil
}

func readAxes(nc *cdf.File, names AxisNames) (models.Grid, error) {
	lons, err := readAxis(nc, names.Lon)
	if err != nil {
		return models.Grid{}, err
	}
	lats, err := readAxis(nc, names.Lat)
	if err != nil {
		return models.Grid{}, err
	}

	g := models.Grid{Longitudes: lons, Latitudes: lats}
	if err := g.Validate(); err != nil {
		return models.Grid{}, fmt.Errorf("grid: %w", err)
	}
	return g, nil
}

// readAxis reads a one-dimensional floating point or integer variable.
func readAxis(nc *cdf.File, name string) ([]float64, error) {
	if !slices.Contains(nc.Header.Variables(), name) {
		return nil, fmt.Errorf("%w: %q", ErrAxisNotFound, name)
	}
	if dims := nc.Header.Dimensions(name); len(dims) != 1 {
		return nil, fmt.Errorf("grid: axis %q has %d dimensions, want 1", name, len(dims))
	}

	r := nc.Reader(name, nil, nil)
	buf := r.Zero(-1)
	if _, err := r.Read(buf); err != nil {
		return nil, eris.Wrapf(err, "grid: read axis %q", name)
	}

	switch v := buf.(type) {
	case []float64:
		return v, nil
	case []float32:
		return widen(v), nil
	case []int32:
		return widen(v), nil
	case []int16:
		return widen(v), nil
	default:
		return nil, fmt.Errorf("grid: axis %q has unsupported type %T", name, buf)
	}
}

func widen[T float32 | int32 | int16](in []T) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}
