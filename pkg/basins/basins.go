// Package basins builds sub-basin records from vector feature attributes.
package basins

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kass/go-forcing-link/pkg/models"
)

// Feature exposes the named attribute values of one vector feature record.
type Feature interface {
	Field(name string) (string, bool)
}

// Fields is a Feature backed by a plain attribute map
type Fields map[string]string

// Field returns the attribute stored under name
func (f Fields) Field(name string) (string, bool) {
	v, ok := f[name]
	return v, ok
}

// FieldNames holds the attribute names read from every feature
type FieldNames struct {
	ID   string `yaml:"id"`
	X    string `yaml:"x"`
	Y    string `yaml:"y"`
	Area string `yaml:"area"`
	Elev string `yaml:"elev"`
}

// DefaultFieldNames returns the attribute names of a HYPE SUBID_subbasins layer
func DefaultFieldNames() FieldNames {
	return FieldNames{
		ID:   "SUBID",
		X:    "CENTERX",
		Y:    "CENTERY",
		Area: "AREA",
		Elev: "ELEV",
	}
}

// List returns the names in id, x, y, area, elev order
func (n FieldNames) List() []string {
	return []string{n.ID, n.X, n.Y, n.Area, n.Elev}
}

// WithDefaults fills empty names from DefaultFieldNames
func (n FieldNames) WithDefaults() FieldNames {
	d := DefaultFieldNames()
	if n.ID == "" {
		n.ID = d.ID
	}
	if n.X == "" {
		n.X = d.X
	}
	if n.Y == "" {
		n.Y = d.Y
	}
	if n.Area == "" {
		n.Area = d.Area
	}
	if n.Elev == "" {
		n.Elev = d.Elev
	}
	return n
}

// FromFeature builds a new Basin from the attributes of f.
func FromFeature(f Feature, names FieldNames) (*models.Basin, error) {
	idText, err := field(f, names.ID)
	if err != nil {
		return nil, err
	}
	id, err := parseID(idText)
	if err != nil {
		return nil, &MalformedFeatureError{Field: names.ID, Value: idText, Err: err}
	}

	b := &models.Basin{ID: id}
	for _, fv := range []struct {
		name string
		dst  *float64
	}{
		{names.X, &b.Centroid.Lon},
		{names.Y, &b.Centroid.Lat},
		{names.Area, &b.Area},
		{names.Elev, &b.Elev},
	} {
		text, err := field(f, fv.name)
		if err != nil {
			return nil, withID(err, id)
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, &MalformedFeatureError{BasinID: id, Field: fv.name, Value: text, Err: err}
		}
		*fv.dst = v
	}

	if math.IsNaN(b.Centroid.Lon) || math.IsInf(b.Centroid.Lon, 0) ||
		math.IsNaN(b.Centroid.Lat) || math.IsInf(b.Centroid.Lat, 0) {
		return nil, &MalformedFeatureError{BasinID: id, Field: names.X + "/" + names.Y, Err: errNonFinite}
	}
	return b, nil
}

// Collect builds one basin per feature, rejecting repeated ids.
func Collect(features []Feature, names FieldNames) ([]*models.Basin, error) {
	basins := make([]*models.Basin, 0, len(features))
	seen := make(map[int]struct{}, len(features))
	for _, f := range features {
		b, err := FromFeature(f, names)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[b.ID]; ok {
			return nil, &models.DuplicateBasinError{ID: b.ID}
		}
		seen[b.ID] = struct{}{}
		basins = append(basins, b)
	}
	return basins, nil
}

func field(f Feature, name string) (string, error) {
	v, ok := f.Field(name)
	if !ok {
		return "", &MalformedFeatureError{Field: name, Err: errMissingField}
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", &MalformedFeatureError{Field: name, Err: errBlankField}
	}
	return v, nil
}

// parseID accepts integer ids, including DBF numeric values such as "1234.0"
func parseID(s string) (int, error) {
	if id, err := strconv.Atoi(s); err == nil {
		return id, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
		return 0, fmt.Errorf("%q is not an integer id", s)
	}
	return int(v), nil
}
