package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGridValidate(t *testing.T) {
	testCases := []struct {
		name    string
		grid    Grid
		wantErr error
	}{
		{"valid", Grid{Longitudes: []float64{10, 10.5, 11}, Latitudes: []float64{50, 50.5}}, nil},
		{"single node", Grid{Longitudes: []float64{10}, Latitudes: []float64{50}}, nil},
		{"empty longitudes", Grid{Latitudes: []float64{50}}, ErrEmptyAxis},
		{"empty latitudes", Grid{Longitudes: []float64{10}}, ErrEmptyAxis},
		{"descending latitudes", Grid{Longitudes: []float64{10}, Latitudes: []float64{51, 50}}, ErrNotAscending},
		{"repeated longitude", Grid{Longitudes: []float64{10, 10}, Latitudes: []float64{50}}, ErrNotAscending},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.grid.Validate()
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestGridLocationAndBounds(t *testing.T) {
	g := Grid{Longitudes: []float64{10, 10.5, 11}, Latitudes: []float64{50, 50.5, 51}}

	assert.Equal(t, 9, g.Size())
	assert.Equal(t, Location{Lon: 10.5, Lat: 51}, g.Location(GridCell{I: 1, J: 2}))
	assert.True(t, g.Contains(GridCell{I: 2, J: 2}))
	assert.False(t, g.Contains(GridCell{I: 3, J: 0}))
	assert.False(t, g.Contains(GridCell{I: 0, J: -1}))

	b := g.Bounds()
	assert.Equal(t, Location{Lon: 10, Lat: 50}, b.BottomLeft)
	assert.Equal(t, Location{Lon: 11, Lat: 51}, b.TopRight)
	assert.True(t, b.Contains(Location{Lon: 11, Lat: 50}))
	assert.False(t, b.Contains(Location{Lon: 11.01, Lat: 50}))
}

func TestGridCellLess(t *testing.T) {
	assert.True(t, GridCell{I: 0, J: 5}.Less(GridCell{I: 1, J: 0}))
	assert.True(t, GridCell{I: 1, J: 0}.Less(GridCell{I: 1, J: 1}))
	assert.False(t, GridCell{I: 1, J: 1}.Less(GridCell{I: 1, J: 1}))
	assert.Equal(t, "(2,3)", GridCell{I: 2, J: 3}.String())
}
