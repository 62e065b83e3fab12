package nearest

import (
	"fmt"
	"sort"

	"github.com/kass/go-forcing-link/pkg/geo"
	"github.com/kass/go-forcing-link/pkg/models"
)

// Window is the half-open index range [IMin, IMax) x [JMin, JMax) of grid
// nodes searched for nearest cells.
type Window struct {
	IMin int `json:"imin"`
	IMax int `json:"imax"`
	JMin int `json:"jmin"`
	JMax int `json:"jmax"`
}

// Len returns the number of candidate cells in the window
func (w Window) Len() int {
	return (w.IMax - w.IMin) * (w.JMax - w.JMin)
}

// Contains reports whether cell lies inside the window
func (w Window) Contains(cell models.GridCell) bool {
	return cell.I >= w.IMin && cell.I < w.IMax && cell.J >= w.JMin && cell.J < w.JMax
}

func (w Window) String() string {
	return fmt.Sprintf("[%d:%d)x[%d:%d)", w.IMin, w.IMax, w.JMin, w.JMax)
}

// Full returns the window covering every node of grid
func Full(grid models.Grid) Window {
	return Window{IMax: len(grid.Longitudes), JMax: len(grid.Latitudes)}
}

// ComputeWindow returns the sub-window of grid that brackets box: one node
// below the lower edge and the first node beyond the upper edge along each
// axis, clamped to the grid.
func ComputeWindow(grid models.Grid, box models.BoundingBox) (Window, error) {
	if len(grid.Longitudes) == 0 {
		return Window{}, &EmptyInputError{Input: "longitudes"}
	}
	if len(grid.Latitudes) == 0 {
		return Window{}, &EmptyInputError{Input: "latitudes"}
	}

	imin, imax, err := axisRange("longitude", grid.Longitudes, box.BottomLeft.Lon, box.TopRight.Lon)
	if err != nil {
		return Window{}, err
	}
	jmin, jmax, err := axisRange("latitude", grid.Latitudes, box.BottomLeft.Lat, box.TopRight.Lat)
	if err != nil {
		return Window{}, err
	}

	return Window{IMin: imin, IMax: imax, JMin: jmin, JMax: jmax}, nil
}

// BasinWindow validates basins against grid and returns the bounds of their
// centroids together with the window bracketing them.
func BasinWindow(grid models.Grid, basins []*models.Basin) (Window, models.BoundingBox, error) {
	if err := checkInputs(grid, basins); err != nil {
		return Window{}, models.BoundingBox{}, err
	}
	box := geo.Bounds(basins)
	w, err := ComputeWindow(grid, box)
	if err != nil {
		return Window{}, models.BoundingBox{}, err
	}
	return w, box, nil
}

// axisRange brackets [lo, hi] on an ascending axis.
func axisRange(name string, axis []float64, lo, hi float64) (int, int, error) {
	n := len(axis)
	if hi < axis[0] || lo > axis[n-1] {
		return 0, 0, &OutOfRangeError{
			Axis:     name,
			BasinMin: lo,
			BasinMax: hi,
			GridMin:  axis[0],
			GridMax:  axis[n-1],
		}
	}

	// first index with axis[k] >= lo
	first := sort.Search(n, func(k int) bool { return axis[k] >= lo })
	// first index with axis[k] > hi; n when no node exceeds hi
	beyond := sort.Search(n, func(k int) bool { return axis[k] > hi })

	return max(0, first-1), min(n, beyond+1), nil
}
