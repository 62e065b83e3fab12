package basins

import (
	"errors"
	"fmt"
)

var (
	errMissingField = errors.New("field not present")
	errBlankField   = errors.New("field is blank")
	errNonFinite    = errors.New("centroid is not finite")
)

// MalformedFeatureError indicates a feature record lacking a required field
// or holding a value that cannot be parsed.
type MalformedFeatureError struct {
	// BasinID is zero when the id itself could not be read.
	BasinID int
	Field   string
	Value   string
	Err     error
}

func (e *MalformedFeatureError) Error() string {
	msg := fmt.Sprintf("basins: field %s", e.Field)
	if e.BasinID != 0 {
		msg = fmt.Sprintf("basins: basin %d field %s", e.BasinID, e.Field)
	}
	if e.Value != "" {
		msg += fmt.Sprintf(" value %q", e.Value)
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *MalformedFeatureError) Unwrap() error {
	return e.Err
}

func withID(err error, id int) error {
	var mf *MalformedFeatureError
	if errors.As(err, &mf) {
		mf.BasinID = id
	}
	return err
}
