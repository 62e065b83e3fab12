package nearest

import "fmt"

// EmptyInputError indicates that the basins or one of the grid axes is empty.
type EmptyInputError struct {
	Input string
}

func (e *EmptyInputError) Error() string {
	return fmt.Sprintf("nearest: %s must not be empty", e.Input)
}

// OutOfRangeError indicates that every basin centroid lies outside the grid
// coverage along one axis, so no search window can be built.
type OutOfRangeError struct {
	Axis             string
	BasinMin         float64
	BasinMax         float64
	GridMin, GridMax float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("nearest: basin %s range [%g, %g] lies outside grid range [%g, %g]",
		e.Axis, e.BasinMin, e.BasinMax, e.GridMin, e.GridMax)
}
