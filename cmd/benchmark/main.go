package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/kass/go-forcing-link/internal/logging"
	"github.com/kass/go-forcing-link/pkg/models"
	"github.com/kass/go-forcing-link/pkg/nearest"
)

type BenchmarkResult struct {
	Mode          string
	Runs          int
	Candidates    int
	TotalDuration time.Duration
	AvgDuration   time.Duration
	MinDuration   time.Duration
	MaxDuration   time.Duration
	BasinsPerSec  float64
}

func main() {
	var (
		runs    = flag.Int("n", 10, "Number of runs per mode")
		workers = flag.Int("w", runtime.NumCPU(), "Concurrent basin searches for the windowed mode")
		basins  = flag.Int("basins", 5000, "Number of synthetic basins")
		seed    = flag.Int64("seed", 1, "Random seed")
		// Forcing grid, default: 0.25 degree ERA5-like grid over Europe
		gridMinLon = flag.Float64("grid-min-lon", -25.0, "First grid longitude")
		gridMinLat = flag.Float64("grid-min-lat", 34.0, "First grid latitude")
		gridNLon   = flag.Int("grid-nlon", 260, "Number of grid longitudes")
		gridNLat   = flag.Int("grid-nlat", 140, "Number of grid latitudes")
		step       = flag.Float64("step", 0.25, "Grid spacing in degrees")
		// Catchment holding the basins
		minLon  = flag.Float64("min-lon", 9.0, "Minimum basin longitude")
		maxLon  = flag.Float64("max-lon", 13.0, "Maximum basin longitude")
		minLat  = flag.Float64("min-lat", 49.0, "Minimum basin latitude")
		maxLat  = flag.Float64("max-lat", 52.0, "Maximum basin latitude")
		verbose = flag.Bool("v", false, "Verbose logging")
	)
	flag.Parse()

	restore, err := logging.Setup(*verbose)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer restore()

	grid := syntheticGrid(*gridMinLon, *gridMinLat, *step, *gridNLon, *gridNLat)
	bs := randomBasins(rand.New(rand.NewSource(*seed)), *basins, *minLon, *maxLon, *minLat, *maxLat)
	zap.L().Info("generated inputs",
		zap.Int("grid_cells", grid.Size()),
		zap.Int("basins", len(bs)),
	)

	window, _, err := nearest.BasinWindow(grid, bs)
	if err != nil {
		zap.L().Fatal("compute window", zap.Error(err))
	}

	ctx := context.Background()
	windowed := benchmark("windowed", *runs, len(bs), window.Len(), func() (map[int]models.GridCell, error) {
		return nearest.Finder{Workers: *workers}.Find(ctx, grid, bs)
	})
	exhaustive := benchmark("exhaustive", *runs, len(bs), grid.Size(), func() (map[int]models.GridCell, error) {
		return nearest.FindNearestExhaustive(grid, bs)
	})

	// both searches must agree before their timings mean anything
	mismatches, err := compareSearches(ctx, grid, bs, *workers)
	if err != nil {
		zap.L().Fatal("compare searches", zap.Error(err))
	}

	fmt.Println("\n=== Benchmark Results ===")
	fmt.Printf("Grid: %d x %d (%d cells)\n", *gridNLon, *gridNLat, grid.Size())
	fmt.Printf("Basins: %d\n", len(bs))
	fmt.Printf("Window: %s\n", window)
	for _, r := range []BenchmarkResult{windowed, exhaustive} {
		fmt.Printf("\n%s\n", r.Mode)
		fmt.Printf("  Candidates: %d\n", r.Candidates)
		fmt.Printf("  Runs: %d\n", r.Runs)
		fmt.Printf("  Total Duration: %v\n", r.TotalDuration)
		fmt.Printf("  Average Duration: %v\n", r.AvgDuration)
		fmt.Printf("  Min Duration: %v\n", r.MinDuration)
		fmt.Printf("  Max Duration: %v\n", r.MaxDuration)
		fmt.Printf("  Basins/Second: %.0f\n", r.BasinsPerSec)
	}
	if windowed.AvgDuration > 0 {
		fmt.Printf("\nSpeedup: %.1fx\n", float64(exhaustive.AvgDuration)/float64(windowed.AvgDuration))
	}
	fmt.Printf("Mismatches: %d\n", mismatches)
	fmt.Printf("Workers Used: %d\n", *workers)
	fmt.Printf("CPU Cores: %d\n", runtime.NumCPU())

	if mismatches > 0 {
		restore()
		os.Exit(1)
	}
}

func benchmark(mode string, runs, basins, candidates int, search func() (map[int]models.GridCell, error)) BenchmarkResult {
	result := BenchmarkResult{Mode: mode, Runs: runs, Candidates: candidates, MinDuration: time.Hour}

	for i := 0; i < runs; i++ {
		start := time.Now()
		if _, err := search(); err != nil {
			zap.L().Fatal("search failed", zap.String("mode", mode), zap.Error(err))
		}
		d := time.Since(start)

		result.TotalDuration += d
		result.MinDuration = min(result.MinDuration, d)
		result.MaxDuration = max(result.MaxDuration, d)
	}

	if runs > 0 {
		result.AvgDuration = result.TotalDuration / time.Duration(runs)
		result.BasinsPerSec = float64(basins*runs) / result.TotalDuration.Seconds()
	}
	return result
}

// compareSearches counts the basins whose windowed and exhaustive nearest
// cells differ
func compareSearches(ctx context.Context, grid models.Grid, bs []*models.Basin, workers int) (int, error) {
	windowed, err := nearest.Finder{Workers: workers}.Find(ctx, grid, bs)
	if err != nil {
		return 0, fmt.Errorf("windowed search: %w", err)
	}
	exhaustive, err := nearest.FindNearestExhaustive(grid, bs)
	if err != nil {
		return 0, fmt.Errorf("exhaustive search: %w", err)
	}

	mismatches := 0
	for id, cell := range windowed {
		if exhaustive[id] != cell {
			mismatches++
		}
	}
	return mismatches, nil
}

func syntheticGrid(lon0, lat0, step float64, nlon, nlat int) models.Grid {
	g := models.Grid{
		Longitudes: make([]float64, nlon),
		Latitudes:  make([]float64, nlat),
	}
	for i := range g.Longitudes {
		g.Longitudes[i] = lon0 + float64(i)*step
	}
	for j := range g.Latitudes {
		g.Latitudes[j] = lat0 + float64(j)*step
	}
	return g
}

func randomBasins(r *rand.Rand, n int, minLon, maxLon, minLat, maxLat float64) []*models.Basin {
	bs := make([]*models.Basin, n)
	for i := range bs {
		bs[i] = &models.Basin{
			ID: i + 1,
			Centroid: models.Location{
				Lon: minLon + r.Float64()*(maxLon-minLon),
				Lat: minLat + r.Float64()*(maxLat-minLat),
			},
		}
	}
	return bs
}
