package rtree

import (
	"cmp"
	"fmt"
	"math"
	"math/rand"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kass/go-forcing-link/pkg/geo"
	"github.com/kass/go-forcing-link/pkg/models"
)

func basin(id int, lon, lat float64) *models.Basin {
	return &models.Basin{ID: id, Centroid: models.Location{Lon: lon, Lat: lat}, ForcingID: models.BaseForcingID + id%7}
}

func ids(basins []*models.Basin) []int {
	out := make([]int, len(basins))
	for k, b := range basins {
		out[k] = b.ID
	}
	return out
}

func TestNewBasinIndex(t *testing.T) {
	index := NewBasinIndex()
	require.NotNil(t, index)
	assert.NotEmpty(t, index.partitions)
	assert.Equal(t, int64(0), index.Count())

	assert.Len(t, NewBasinIndexWithPartitions(0).partitions, len(index.partitions))
}

func TestIndexBasins(t *testing.T) {
	index := NewBasinIndexWithPartitions(4)

	index.IndexBasins([]*models.Basin{
		basin(1, -122.4194, 37.7749),
		basin(2, -118.2437, 34.0522),
		basin(3, -74.0060, 40.7128),
		nil,
	})
	assert.Equal(t, int64(3), index.Count())

	index.IndexBasins(nil)
	assert.Equal(t, int64(3), index.Count())
}

func TestPartitionOf(t *testing.T) {
	index := NewBasinIndexWithPartitions(4)

	testCases := []struct {
		lon  float64
		want int
	}{
		{-180, 0},
		{-90.01, 0},
		{-90, 1},
		{0, 2},
		{179.99, 3},
		{180, 3},
		{200, 3},
		{-200, 0},
	}
	for _, tc := range testCases {
		t.Run(fmt.Sprint(tc.lon), func(t *testing.T) {
			assert.Equal(t, tc.want, index.partitionOf(tc.lon))
		})
	}
}

func TestQueryBox(t *testing.T) {
	index := NewBasinIndexWithPartitions(8)
	index.IndexBasins([]*models.Basin{
		basin(10, 10.05, 50.05),
		basin(11, 10.45, 50.40),
		basin(12, 10.95, 50.95),
		basin(13, 12.00, 50.20),
		basin(14, 10.20, 49.00),
	})

	results := index.QueryBox(models.BoundingBox{
		BottomLeft: models.Location{Lon: 10.0, Lat: 50.0},
		TopRight:   models.Location{Lon: 11.0, Lat: 51.0},
	})
	assert.Equal(t, []int{10, 11, 12}, ids(results))

	// edges are inclusive, including a degenerate box
	edge := index.QueryBox(models.BoundingBox{
		BottomLeft: models.Location{Lon: 10.95, Lat: 50.95},
		TopRight:   models.Location{Lon: 10.95, Lat: 50.95},
	})
	assert.Equal(t, []int{12}, ids(edge))

	inverted := index.QueryBox(models.BoundingBox{
		BottomLeft: models.Location{Lon: 11.0, Lat: 51.0},
		TopRight:   models.Location{Lon: 10.0, Lat: 50.0},
	})
	assert.Empty(t, inverted)
}

func TestQueryBoxAcrossPartitions(t *testing.T) {
	index := NewBasinIndexWithPartitions(4)
	index.IndexBasins([]*models.Basin{
		basin(1, -0.5, 10),
		basin(2, 0.5, 10),
		basin(3, 90.5, 10),
	})

	results := index.QueryBox(models.BoundingBox{
		BottomLeft: models.Location{Lon: -1, Lat: 9},
		TopRight:   models.Location{Lon: 1, Lat: 11},
	})
	assert.Equal(t, []int{1, 2}, ids(results))
}

func TestQueryRadius(t *testing.T) {
	index := NewBasinIndex()

	sf := models.Location{Lon: -122.4194, Lat: 37.7749}
	index.IndexBasins([]*models.Basin{
		basin(1, sf.Lon, sf.Lat),
		basin(2, -122.2712, 37.8044), // Oakland ~13km
		basin(3, -121.8863, 37.3382), // San Jose ~48km
		basin(4, -121.4944, 38.5816), // Sacramento ~120km
		basin(5, -118.2437, 34.0522), // Los Angeles ~560km
	})

	testCases := []struct {
		name     string
		radius   float64
		expected []int
	}{
		{"10km radius", 10, []int{1}},
		{"20km radius", 20, []int{1, 2}},
		{"80km radius", 80, []int{1, 2, 3}},
		{"150km radius", 150, []int{1, 2, 3, 4}},
		{"negative radius", -1, []int{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ElementsMatch(t, tc.expected, ids(index.QueryRadius(sf, tc.radius)))
		})
	}
}

func TestNearestBasins(t *testing.T) {
	index := NewBasinIndexWithPartitions(2)
	index.IndexBasins([]*models.Basin{
		basin(1, -122.4194, 37.7749),
		basin(2, -122.4094, 37.7849),
		basin(3, -122.4294, 37.7649),
		basin(4, -122.3994, 37.8049),
		basin(5, -122.4394, 37.7549),
	})

	center := models.Location{Lon: -122.4194, Lat: 37.7749}
	results := index.NearestBasins(center, 3)
	require.Len(t, results, 3)
	assert.Equal(t, 1, results[0].ID)
	assert.ElementsMatch(t, []int{2, 3}, ids(results[1:]))

	assert.Len(t, index.NearestBasins(center, 10), 5)
	assert.Empty(t, index.NearestBasins(center, 0))
}

func TestNearestBasinsTieOrderedByID(t *testing.T) {
	index := NewBasinIndexWithPartitions(1)
	index.IndexBasins([]*models.Basin{
		basin(9, 10.3, 50.7),
		basin(4, 10.3, 50.7),
	})

	results := index.NearestBasins(models.Location{Lon: 10.3, Lat: 50.7}, 2)
	assert.Equal(t, []int{4, 9}, ids(results))
}

func TestNearestBasinsHighLatitude(t *testing.T) {
	index := NewBasinIndexWithPartitions(4)
	index.IndexBasins([]*models.Basin{
		basin(1, 0, 81.5), // ~167km north
		basin(2, 0, 78.5), // ~167km south
		basin(3, 5, 80),   // ~97km east, but 5 degrees away
	})

	center := models.Location{Lon: 0, Lat: 80}
	assert.Equal(t, []int{3}, ids(index.NearestBasins(center, 1)))
	results := index.NearestBasins(center, 3)
	require.Len(t, results, 3)
	assert.Equal(t, 3, results[0].ID)
	assert.ElementsMatch(t, []int{1, 2}, ids(results[1:]))
}

func TestNearestBasinsMatchesBruteForce(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	all := make([]*models.Basin, 500)
	for i := range all {
		all[i] = basin(i+1, r.Float64()*60-30, 55+r.Float64()*30)
	}
	index := NewBasinIndexWithPartitions(8)
	index.IndexBasins(all)

	for i := 0; i < 50; i++ {
		center := models.Location{Lon: r.Float64()*60 - 30, Lat: 55 + r.Float64()*30}
		want := slices.Clone(all)
		slices.SortFunc(want, func(a, b *models.Basin) int {
			if c := cmp.Compare(geo.Distance(center, a.Centroid), geo.Distance(center, b.Centroid)); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		})
		assert.Equal(t, ids(want[:5]), ids(index.NearestBasins(center, 5)), "center %v", center)
	}
}

func TestQueryRadiusWrapsAntimeridianAndPole(t *testing.T) {
	index := NewBasinIndexWithPartitions(4)
	index.IndexBasins([]*models.Basin{
		basin(1, 179.9, 0),
		basin(2, -179.9, 0), // ~22km across the antimeridian
		basin(3, 0, 89.9),
		basin(4, 180, 89.9), // ~22km across the pole
		basin(5, 90, 0),
	})

	assert.Equal(t, []int{1, 2}, ids(index.QueryRadius(models.Location{Lon: 179.9, Lat: 0}, 50)))
	assert.Equal(t, []int{3, 4}, ids(index.QueryRadius(models.Location{Lon: 0, Lat: 89.9}, 50)))
}

func TestRadiusBox(t *testing.T) {
	testCases := []struct {
		name   string
		center models.Location
		km     float64
		full   bool
	}{
		{"mid latitude", models.Location{Lon: 10, Lat: 50}, 100, false},
		{"high latitude", models.Location{Lon: 0, Lat: 80}, 167, false},
		{"over the pole", models.Location{Lon: 0, Lat: 89.9}, 50, true},
		{"across the antimeridian", models.Location{Lon: 179.9, Lat: 0}, 50, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			box := radiusBox(tc.center, tc.km)
			if tc.full {
				assert.Equal(t, -180.0, box.BottomLeft.Lon)
				assert.Equal(t, 180.0, box.TopRight.Lon)
			}
			assert.GreaterOrEqual(t, box.BottomLeft.Lat, -90.0)
			assert.LessOrEqual(t, box.TopRight.Lat, 90.0)

			// points on the cap edge along the parallel and meridians lie inside
			for bearing := 0.0; bearing < 360; bearing += 15 {
				edge := destination(tc.center, tc.km, bearing)
				assert.True(t, box.Contains(edge), "bearing %v: %v outside %v", bearing, edge, box)
			}
		})
	}
}

// destination returns the point km away from start along bearing degrees
func destination(start models.Location, km, bearing float64) models.Location {
	const rad = math.Pi / 180
	d := km / earthRadius
	lat1, lon1, b := start.Lat*rad, start.Lon*rad, bearing*rad
	lat2 := math.Asin(math.Sin(lat1)*math.Cos(d) + math.Cos(lat1)*math.Sin(d)*math.Cos(b))
	lon2 := lon1 + math.Atan2(math.Sin(b)*math.Sin(d)*math.Cos(lat1), math.Cos(d)-math.Sin(lat1)*math.Sin(lat2))
	lon := math.Mod(lon2/rad+540, 360) - 180
	// shrink slightly so rounding stays inside the cap
	return models.Location{
		Lon: start.Lon + (lon-start.Lon)*0.999,
		Lat: start.Lat + (lat2/rad-start.Lat)*0.999,
	}
}

func TestClear(t *testing.T) {
	index := NewBasinIndex()
	index.IndexBasins(randomBasins(100))
	require.Equal(t, int64(100), index.Count())

	index.Clear()
	assert.Equal(t, int64(0), index.Count())
	assert.Empty(t, index.QueryBox(models.BoundingBox{
		BottomLeft: models.Location{Lon: -180, Lat: -90},
		TopRight:   models.Location{Lon: 180, Lat: 90},
	}))
}

func TestConcurrentQueries(t *testing.T) {
	index := NewBasinIndex()
	index.IndexBasins(randomBasins(10000))

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(i)))

			switch i % 3 {
			case 0:
				box := models.BoundingBox{
					BottomLeft: models.Location{Lon: rng.Float64()*10 - 120, Lat: rng.Float64()*10 + 30},
					TopRight:   models.Location{Lon: rng.Float64()*10 - 110, Lat: rng.Float64()*10 + 40},
				}
				for _, b := range index.QueryBox(box) {
					assert.True(t, box.Contains(b.Centroid))
				}
			case 1:
				center := models.Location{Lon: rng.Float64()*40 - 120, Lat: rng.Float64()*20 + 30}
				index.QueryRadius(center, rng.Float64()*100+10)
			case 2:
				center := models.Location{Lon: rng.Float64()*40 - 120, Lat: rng.Float64()*20 + 30}
				n := rng.Intn(50) + 1
				assert.Len(t, index.NearestBasins(center, n), n)
			}
		}()
	}
	wg.Wait()
}

func randomBasins(n int) []*models.Basin {
	rng := rand.New(rand.NewSource(42))
	basins := make([]*models.Basin, n)
	for i := range basins {
		basins[i] = basin(i+1, rng.Float64()*40-120, rng.Float64()*20+30)
	}
	return basins
}

func BenchmarkIndexBasins(b *testing.B) {
	for _, size := range []int{1000, 10000, 100000} {
		b.Run(fmt.Sprintf("%d_basins", size), func(b *testing.B) {
			basins := randomBasins(size)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				NewBasinIndex().IndexBasins(basins)
			}
		})
	}
}

func BenchmarkQueryBox(b *testing.B) {
	index := NewBasinIndex()
	index.IndexBasins(randomBasins(100000))
	box := models.BoundingBox{
		BottomLeft: models.Location{Lon: -115, Lat: 35},
		TopRight:   models.Location{Lon: -110, Lat: 40},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		index.QueryBox(box)
	}
}

func BenchmarkNearestBasins(b *testing.B) {
	index := NewBasinIndex()
	index.IndexBasins(randomBasins(100000))
	center := models.Location{Lon: -112.5, Lat: 37.5}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		index.NearestBasins(center, 10)
	}
}
