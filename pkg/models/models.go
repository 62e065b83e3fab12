package models

import (
	"errors"
	"fmt"
)

// BaseForcingID is the first synthetic forcing identifier handed out by the linker
const BaseForcingID = 100000

// Location represents a geographic location with longitude and latitude
type Location struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// BoundingBox represents a rectangular area defined by two corners
type BoundingBox struct {
	BottomLeft Location `json:"bottom_left"`
	TopRight   Location `json:"top_right"`
}

// Contains reports whether loc lies inside the box, edges included
func (b BoundingBox) Contains(loc Location) bool {
	return loc.Lon >= b.BottomLeft.Lon && loc.Lon <= b.TopRight.Lon &&
		loc.Lat >= b.BottomLeft.Lat && loc.Lat <= b.TopRight.Lat
}

// Basin is a drainage sub-basin read from the vector feature source.
// ForcingID is zero until the linker assigns one.
type Basin struct {
	ID        int      `json:"subid"`
	Centroid  Location `json:"centroid"`
	Area      float64  `json:"area"`
	Elev      float64  `json:"elev"`
	ForcingID int      `json:"forcing_id,omitempty"`
}

// GridCell is an (i, j) index pair into the longitude and latitude axes of a Grid
type GridCell struct {
	I int `json:"i"`
	J int `json:"j"`
}

func (c GridCell) String() string {
	return fmt.Sprintf("(%d,%d)", c.I, c.J)
}

// Less orders cells row-major: by longitude index, then latitude index
func (c GridCell) Less(o GridCell) bool {
	if c.I != o.I {
		return c.I < o.I
	}
	return c.J < o.J
}

var (
	// ErrEmptyAxis indicates a grid axis without any coordinate.
	ErrEmptyAxis = errors.New("models: grid axis must have at least one value")
	// ErrNotAscending indicates a grid axis that is not strictly ascending.
	ErrNotAscending = errors.New("models: grid axis must be strictly ascending")
)

// Grid is a regular longitude/latitude mesh of len(Longitudes) x len(Latitudes) nodes
type Grid struct {
	Longitudes []float64 `json:"longitudes"`
	Latitudes  []float64 `json:"latitudes"`
}

// Size returns the number of nodes in the mesh
func (g Grid) Size() int {
	return len(g.Longitudes) * len(g.Latitudes)
}

// Location returns the coordinate of the node addressed by cell
func (g Grid) Location(cell GridCell) Location {
	return Location{Lon: g.Longitudes[cell.I], Lat: g.Latitudes[cell.J]}
}

// Contains reports whether cell addresses a node of the mesh
func (g Grid) Contains(cell GridCell) bool {
	return cell.I >= 0 && cell.I < len(g.Longitudes) && cell.J >= 0 && cell.J < len(g.Latitudes)
}

// Bounds returns the box spanned by the first and last node of each axis
func (g Grid) Bounds() BoundingBox {
	return BoundingBox{
		BottomLeft: Location{Lon: g.Longitudes[0], Lat: g.Latitudes[0]},
		TopRight:   Location{Lon: g.Longitudes[len(g.Longitudes)-1], Lat: g.Latitudes[len(g.Latitudes)-1]},
	}
}

// Validate checks both axes are non-empty and strictly ascending
func (g Grid) Validate() error {
	axes := []struct {
		name string
		vals []float64
	}{{"longitude", g.Longitudes}, {"latitude", g.Latitudes}}
	for _, a := range axes {
		name, axis := a.name, a.vals
		if len(axis) == 0 {
			return fmt.Errorf("%s: %w", name, ErrEmptyAxis)
		}
		for k := 1; k < len(axis); k++ {
			if !(axis[k] > axis[k-1]) {
				return fmt.Errorf("%s[%d]=%g after %g: %w", name, k, axis[k], axis[k-1], ErrNotAscending)
			}
		}
	}
	return nil
}
