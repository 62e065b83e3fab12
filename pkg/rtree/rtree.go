// Package rtree indexes linked basins by centroid so a stored run can be
// queried by area or by proximity. The index is split into longitude bands
// that are searched in parallel.
package rtree

import (
	"math"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/dhconnelly/rtreego"

	"github.com/kass/go-forcing-link/pkg/geo"
	"github.com/kass/go-forcing-link/pkg/models"
)

const (
	tolerance   = 0.0001
	minChildren = 25
	maxChildren = 50
	dimensions  = 2
	earthRadius = 6371.0 // km
)

// spatialBasin wraps a basin to implement rtreego.Spatial
type spatialBasin struct {
	*models.Basin
	rect *rtreego.Rect
}

func (sb *spatialBasin) Bounds() *rtreego.Rect {
	return sb.rect
}

// BasinIndex is a thread-safe R-tree over basin centroids
type BasinIndex struct {
	partitions      []*rtreego.Rtree
	partitionBounds []models.BoundingBox
	mu              sync.RWMutex
	itemCount       atomic.Int64
}

// NewBasinIndex creates an index with one partition per CPU
func NewBasinIndex() *BasinIndex {
	return NewBasinIndexWithPartitions(runtime.NumCPU())
}

// NewBasinIndexWithPartitions creates an index split into n longitude bands
func NewBasinIndexWithPartitions(n int) *BasinIndex {
	if n <= 0 {
		n = runtime.NumCPU()
	}

	partitions := make([]*rtreego.Rtree, n)
	bounds := make([]models.BoundingBox, n)
	lonRange := 360.0 / float64(n)
	for i := 0; i < n; i++ {
		partitions[i] = rtreego.NewTree(dimensions, minChildren, maxChildren)

		minLon := -180.0 + float64(i)*lonRange
		maxLon := minLon + lonRange
		if i == n-1 {
			maxLon = 180.0
		}
		bounds[i] = models.BoundingBox{
			BottomLeft: models.Location{Lon: minLon, Lat: -90},
			TopRight:   models.Location{Lon: maxLon, Lat: 90},
		}
	}

	return &BasinIndex{partitions: partitions, partitionBounds: bounds}
}

// IndexBasins adds basins to the index. Nil basins are skipped.
func (x *BasinIndex) IndexBasins(basins []*models.Basin) {
	if len(basins) == 0 {
		return
	}

	n := len(x.partitions)
	grouped := make([][]*spatialBasin, n)
	for _, b := range basins {
		if b == nil {
			continue
		}
		p := rtreego.Point{b.Centroid.Lon, b.Centroid.Lat}
		k := x.partitionOf(b.Centroid.Lon)
		grouped[k] = append(grouped[k], &spatialBasin{b, p.ToRect(tolerance)})
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	var wg sync.WaitGroup
	for i, items := range grouped {
		i, items := i, items
		if len(items) == 0 {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, item := range items {
				x.partitions[i].Insert(item)
			}
			x.itemCount.Add(int64(len(items)))
		}()
	}
	wg.Wait()
}

func (x *BasinIndex) partitionOf(lon float64) int {
	n := len(x.partitions)
	k := int((lon + 180.0) / (360.0 / float64(n)))
	return min(max(k, 0), n-1)
}

// QueryBox returns the basins whose centroid lies inside box, edges included,
// ordered by basin id.
func (x *BasinIndex) QueryBox(box models.BoundingBox) []*models.Basin {
	rect, ok := searchRect(box)
	if !ok {
		return nil
	}
	return x.search(box, rect, box.Contains)
}

// QueryRadius returns the basins whose centroid lies within radiusKm of
// center, ordered by basin id.
func (x *BasinIndex) QueryRadius(center models.Location, radiusKm float64) []*models.Basin {
	if radiusKm < 0 {
		return nil
	}
	box := radiusBox(center, radiusKm)
	rect, ok := searchRect(box)
	if !ok {
		return nil
	}
	return x.search(box, rect, func(loc models.Location) bool {
		return geo.Distance(center, loc) <= radiusKm
	})
}

// radiusBox returns a lon/lat box enclosing the spherical cap of radiusKm
// around center. Caps over a pole or across the antimeridian span every
// longitude.
func radiusBox(center models.Location, radiusKm float64) models.BoundingBox {
	r := radiusKm / earthRadius
	dLat := r * 180 / math.Pi
	minLat, maxLat := center.Lat-dLat, center.Lat+dLat
	minLon, maxLon := -180.0, 180.0

	if minLat > -90 && maxLat < 90 {
		dLon := math.Asin(math.Sin(r)/math.Cos(center.Lat*math.Pi/180)) * 180 / math.Pi
		if center.Lon-dLon >= -180 && center.Lon+dLon <= 180 {
			minLon, maxLon = center.Lon-dLon, center.Lon+dLon
		}
	}

	return models.BoundingBox{
		BottomLeft: models.Location{Lon: minLon, Lat: max(minLat, -90)},
		TopRight:   models.Location{Lon: maxLon, Lat: min(maxLat, 90)},
	}
}

func (x *BasinIndex) search(box models.BoundingBox, rect *rtreego.Rect, keep func(models.Location) bool) []*models.Basin {
	x.mu.RLock()
	defer x.mu.RUnlock()

	relevant := x.relevantPartitions(box)
	resultsChan := make(chan []*models.Basin, len(relevant))
	for _, idx := range relevant {
		idx := idx
		go func() {
			var found []*models.Basin
			for _, s := range x.partitions[idx].SearchIntersect(rect) {
				item, ok := s.(*spatialBasin)
				if ok && keep(item.Centroid) {
					found = append(found, item.Basin)
				}
			}
			resultsChan <- found
		}()
	}

	var all []*models.Basin
	for range relevant {
		all = append(all, <-resultsChan...)
	}
	sort.Slice(all, func(a, b int) bool { return all[a].ID < all[b].ID })
	return all
}

// NearestBasins returns up to n basins ordered by great-circle distance from
// center. Equal distances are ordered by basin id.
func (x *BasinIndex) NearestBasins(center models.Location, n int) []*models.Basin {
	if n <= 0 {
		return nil
	}

	// rtreego ranks by planar degrees, so its neighbours only seed the search:
	// the n-th of any n basins bounds the distance of the true n-th nearest
	ranked := rankByDistance(center, x.planarNeighbors(center, n))
	if len(ranked) >= n {
		ranked = rankByDistance(center, x.QueryRadius(center, ranked[n-1].distance))
	}

	out := make([]*models.Basin, 0, min(n, len(ranked)))
	for _, r := range ranked[:min(n, len(ranked))] {
		out = append(out, r.basin)
	}
	return out
}

// planarNeighbors returns the n planar nearest basins of every partition.
// Fewer than n in total means the index holds fewer than n basins.
func (x *BasinIndex) planarNeighbors(center models.Location, n int) []*models.Basin {
	x.mu.RLock()
	defer x.mu.RUnlock()

	resultsChan := make(chan []*models.Basin, len(x.partitions))
	for _, tree := range x.partitions {
		tree := tree
		go func() {
			var found []*models.Basin
			for _, s := range tree.NearestNeighbors(n, rtreego.Point{center.Lon, center.Lat}) {
				if item, ok := s.(*spatialBasin); ok {
					found = append(found, item.Basin)
				}
			}
			resultsChan <- found
		}()
	}

	var all []*models.Basin
	for range x.partitions {
		all = append(all, <-resultsChan...)
	}
	return all
}

type rankedBasin struct {
	basin    *models.Basin
	distance float64
}

func rankByDistance(center models.Location, basins []*models.Basin) []rankedBasin {
	ranked := make([]rankedBasin, len(basins))
	for i, b := range basins {
		ranked[i] = rankedBasin{b, geo.Distance(center, b.Centroid)}
	}
	sort.Slice(ranked, func(a, b int) bool {
		if ranked[a].distance != ranked[b].distance {
			return ranked[a].distance < ranked[b].distance
		}
		return ranked[a].basin.ID < ranked[b].basin.ID
	})
	return ranked
}

// Count returns the number of indexed basins
func (x *BasinIndex) Count() int64 {
	return x.itemCount.Load()
}

// Clear removes all basins from the index
func (x *BasinIndex) Clear() {
	x.mu.Lock()
	defer x.mu.Unlock()

	for i := range x.partitions {
		x.partitions[i] = rtreego.NewTree(dimensions, minChildren, maxChildren)
	}
	x.itemCount.Store(0)
}

// relevantPartitions returns the partitions whose longitude band intersects box
func (x *BasinIndex) relevantPartitions(box models.BoundingBox) []int {
	var relevant []int
	for i, bounds := range x.partitionBounds {
		if box.BottomLeft.Lon <= bounds.TopRight.Lon && box.TopRight.Lon >= bounds.BottomLeft.Lon {
			relevant = append(relevant, i)
		}
	}
	return relevant
}

// searchRect converts box to an rtreego rectangle padded by tolerance so
// degenerate boxes still match points on their edges.
func searchRect(box models.BoundingBox) (*rtreego.Rect, bool) {
	lo := rtreego.Point{box.BottomLeft.Lon - tolerance, box.BottomLeft.Lat - tolerance}
	size := []float64{
		box.TopRight.Lon - box.BottomLeft.Lon + 2*tolerance,
		box.TopRight.Lat - box.BottomLeft.Lat + 2*tolerance,
	}
	rect, err := rtreego.NewRect(lo, size)
	if err != nil {
		return nil, false
	}
	return rect, true
}
