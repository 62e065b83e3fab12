package models

import "fmt"

// DuplicateBasinError indicates two basins sharing the same identifier.
type DuplicateBasinError struct {
	ID int
}

func (e *DuplicateBasinError) Error() string {
	return fmt.Sprintf("models: duplicate basin id %d", e.ID)
}
