package link

import "fmt"

// MissingBasinError indicates that the nearest-cell mapping and the basin
// collection do not cover the same basin ids.
type MissingBasinError struct {
	ID int
	// MissingFrom names the side lacking the id: "nearest" or "basins".
	MissingFrom string
}

func (e *MissingBasinError) Error() string {
	return fmt.Sprintf("link: basin %d is missing from %s", e.ID, e.MissingFrom)
}
