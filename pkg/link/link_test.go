package link

import (
	"context"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kass/go-forcing-link/pkg/models"
	"github.com/kass/go-forcing-link/pkg/nearest"
)

func smallGrid() models.Grid {
	return models.Grid{
		Longitudes: []float64{10.0, 10.5, 11.0},
		Latitudes:  []float64{50.0, 50.5, 51.0},
	}
}

func basin(id int, lon, lat float64) *models.Basin {
	return &models.Basin{ID: id, Centroid: models.Location{Lon: lon, Lat: lat}}
}

func TestLinkTwoCorners(t *testing.T) {
	a := basin(1, 10.05, 50.05)
	b := basin(2, 10.95, 50.95)

	result, err := Link(context.Background(), smallGrid(), []*models.Basin{a, b}, Options{})
	require.NoError(t, err)

	table := result.Table
	require.Equal(t, 2, table.Len())
	assert.Equal(t, []int{100000, 100001}, table.IDs())

	cellA, ok := table.Cell(a.ForcingID)
	require.True(t, ok)
	assert.Equal(t, models.GridCell{I: 0, J: 0}, cellA)

	cellB, ok := table.Cell(b.ForcingID)
	require.True(t, ok)
	assert.Equal(t, models.GridCell{I: 2, J: 2}, cellB)

	assert.NotEqual(t, a.ForcingID, b.ForcingID)
	assert.Equal(t, 100000, a.ForcingID)
	assert.Equal(t, 100001, b.ForcingID)

	loc, ok := result.Location(b.ForcingID)
	require.True(t, ok)
	assert.Equal(t, models.Location{Lon: 11.0, Lat: 51.0}, loc)
	assert.NotEqual(t, uuid.Nil, result.RunID)
	assert.Equal(t, uuid.Version(7), result.RunID.Version())
}

func TestLinkIdenticalCentroidsShareID(t *testing.T) {
	a := basin(10, 10.3, 50.7)
	b := basin(20, 10.3, 50.7)

	result, err := Link(context.Background(), smallGrid(), []*models.Basin{a, b}, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Table.Len())
	assert.Equal(t, models.BaseForcingID, a.ForcingID)
	assert.Equal(t, a.ForcingID, b.ForcingID)
}

func TestCreateLinksRowMajorOrder(t *testing.T) {
	basins := []*models.Basin{basin(1, 0, 0), basin(2, 0, 0), basin(3, 0, 0), basin(4, 0, 0)}
	cells := map[int]models.GridCell{
		1: {I: 2, J: 0},
		2: {I: 0, J: 3},
		3: {I: 0, J: 1},
		4: {I: 2, J: 0},
	}

	table, err := CreateLinks(cells, basins)
	require.NoError(t, err)

	assert.Equal(t, []Entry{
		{ID: 100000, Cell: models.GridCell{I: 0, J: 1}},
		{ID: 100001, Cell: models.GridCell{I: 0, J: 3}},
		{ID: 100002, Cell: models.GridCell{I: 2, J: 0}},
	}, table.Entries())
	assert.Equal(t, 100002, basins[0].ForcingID)
	assert.Equal(t, 100001, basins[1].ForcingID)
	assert.Equal(t, 100000, basins[2].ForcingID)
	assert.Equal(t, 100002, basins[3].ForcingID)
}

func TestCreateLinksIsReproducible(t *testing.T) {
	grid := models.Grid{}
	for k := 0; k < 40; k++ {
		grid.Longitudes = append(grid.Longitudes, 5+0.25*float64(k))
		grid.Latitudes = append(grid.Latitudes, 45+0.25*float64(k))
	}

	makeBasins := func() []*models.Basin {
		r := rand.New(rand.NewSource(5))
		basins := make([]*models.Basin, 300)
		for k := range basins {
			basins[k] = basin(k+1, 5+9.75*r.Float64(), 45+9.75*r.Float64())
		}
		return basins
	}

	first, second := makeBasins(), makeBasins()
	r1, err := Link(context.Background(), grid, first, Options{Workers: 4})
	require.NoError(t, err)
	r2, err := Link(context.Background(), grid, second, Options{Workers: 1})
	require.NoError(t, err)

	assert.Equal(t, r1.Table.Entries(), r2.Table.Entries())
	for k := range first {
		assert.Equal(t, first[k].ForcingID, second[k].ForcingID)
	}
}

func TestLinkInvariants(t *testing.T) {
	grid := models.Grid{}
	for k := 0; k < 20; k++ {
		grid.Longitudes = append(grid.Longitudes, -2+0.5*float64(k))
		grid.Latitudes = append(grid.Latitudes, 48+0.5*float64(k))
	}
	r := rand.New(rand.NewSource(42))
	basins := make([]*models.Basin, 250)
	for k := range basins {
		basins[k] = basin(1000+k, -2+9.5*r.Float64(), 48+9.5*r.Float64())
	}

	result, err := Link(context.Background(), grid, basins, Options{})
	require.NoError(t, err)

	distinct := make(map[models.GridCell]struct{})
	for _, cell := range result.Nearest {
		distinct[cell] = struct{}{}
	}
	assert.Equal(t, len(distinct), result.Table.Len())
	assert.Less(t, result.Table.Len(), len(basins))

	for _, b := range basins {
		cell, ok := result.Table.Cell(b.ForcingID)
		require.True(t, ok, "basin %d has unknown forcing id %d", b.ID, b.ForcingID)
		assert.Equal(t, result.Nearest[b.ID], cell)
	}

	exhaustive, err := nearest.FindNearestExhaustive(grid, basins)
	require.NoError(t, err)
	assert.Equal(t, exhaustive, result.Nearest)
}

func TestLinkExhaustiveOption(t *testing.T) {
	basins := []*models.Basin{basin(1, 10.2, 50.2)}

	result, err := Link(context.Background(), smallGrid(), basins, Options{Exhaustive: true})
	require.NoError(t, err)
	assert.Equal(t, nearest.Full(smallGrid()), result.Window)
	assert.Equal(t, models.GridCell{I: 0, J: 0}, result.Nearest[1])
}

func TestLinkPropagatesFinderErrors(t *testing.T) {
	_, err := Link(context.Background(), smallGrid(), nil, Options{})
	var empty *nearest.EmptyInputError
	assert.ErrorAs(t, err, &empty)

	_, err = Link(context.Background(), smallGrid(), []*models.Basin{basin(1, 20, 20)}, Options{})
	var oor *nearest.OutOfRangeError
	assert.ErrorAs(t, err, &oor)
}

func TestCreateLinksMissingBasin(t *testing.T) {
	testCases := []struct {
		name        string
		cells       map[int]models.GridCell
		basins      []*models.Basin
		missingID   int
		missingFrom string
	}{
		{
			name:        "basin without nearest cell",
			cells:       map[int]models.GridCell{1: {I: 0, J: 0}},
			basins:      []*models.Basin{basin(1, 0, 0), basin(2, 0, 0)},
			missingID:   2,
			missingFrom: "nearest",
		},
		{
			name:        "nearest cell without basin",
			cells:       map[int]models.GridCell{1: {I: 0, J: 0}, 9: {I: 1, J: 1}, 7: {I: 1, J: 0}},
			basins:      []*models.Basin{basin(1, 0, 0)},
			missingID:   7,
			missingFrom: "basins",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			table, err := CreateLinks(tc.cells, tc.basins)
			assert.Nil(t, table)

			var missing *MissingBasinError
			require.ErrorAs(t, err, &missing)
			assert.Equal(t, tc.missingID, missing.ID)
			assert.Equal(t, tc.missingFrom, missing.MissingFrom)

			for _, b := range tc.basins {
				assert.Zero(t, b.ForcingID, "basin %d must stay unassigned", b.ID)
			}
		})
	}
}

func TestCreateLinksDuplicateBasin(t *testing.T) {
	_, err := CreateLinks(map[int]models.GridCell{1: {}}, []*models.Basin{basin(1, 0, 0), basin(1, 1, 1)})
	var dup *models.DuplicateBasinError
	assert.ErrorAs(t, err, &dup)
}

func TestTableLookups(t *testing.T) {
	table, err := tableFromEntries([]Entry{
		{ID: 100000, Cell: models.GridCell{I: 1, J: 2}},
		{ID: 100001, Cell: models.GridCell{I: 3, J: 0}},
	})
	require.NoError(t, err)

	id, ok := table.Lookup(models.GridCell{I: 3, J: 0})
	assert.True(t, ok)
	assert.Equal(t, 100001, id)

	_, ok = table.Lookup(models.GridCell{I: 9, J: 9})
	assert.False(t, ok)

	_, ok = table.Cell(99)
	assert.False(t, ok)

	assert.Equal(t, map[int]models.GridCell{
		100000: {I: 1, J: 2},
		100001: {I: 3, J: 0},
	}, table.Map())
}

func TestTableRejectsInconsistentEntries(t *testing.T) {
	testCases := []struct {
		name    string
		entries []Entry
	}{
		{"repeated id", []Entry{{ID: 1, Cell: models.GridCell{I: 0}}, {ID: 1, Cell: models.GridCell{I: 1}}}},
		{"repeated cell", []Entry{{ID: 1, Cell: models.GridCell{I: 0}}, {ID: 2, Cell: models.GridCell{I: 0}}}},
		{"descending ids", []Entry{{ID: 2, Cell: models.GridCell{I: 0}}, {ID: 1, Cell: models.GridCell{I: 1}}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tableFromEntries(tc.entries)
			assert.Error(t, err)
		})
	}
}
