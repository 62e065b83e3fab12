// Package geo provides the great-circle distance and bounding helpers shared
// by the nearest-cell search and the basin index.
package geo

import (
	"github.com/umahmood/haversine"
	"gonum.org/v1/gonum/floats"

	"github.com/kass/go-forcing-link/pkg/models"
)

// Distance returns the haversine distance between a and b in kilometers
func Distance(a, b models.Location) float64 {
	_, km := haversine.Distance(
		haversine.Coord{Lat: a.Lat, Lon: a.Lon},
		haversine.Coord{Lat: b.Lat, Lon: b.Lon},
	)
	return km
}

// Bounds returns the smallest box containing every basin centroid.
// basins must not be empty.
func Bounds(basins []*models.Basin) models.BoundingBox {
	lons := make([]float64, len(basins))
	lats := make([]float64, len(basins))
	for i, b := range basins {
		lons[i] = b.Centroid.Lon
		lats[i] = b.Centroid.Lat
	}

	return models.BoundingBox{
		BottomLeft: models.Location{Lon: floats.Min(lons), Lat: floats.Min(lats)},
		TopRight:   models.Location{Lon: floats.Max(lons), Lat: floats.Max(lats)},
	}
}
