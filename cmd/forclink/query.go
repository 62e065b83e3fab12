package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kass/go-forcing-link/internal/exitcode"
	"github.com/kass/go-forcing-link/pkg/link"
	"github.com/kass/go-forcing-link/pkg/models"
	"github.com/kass/go-forcing-link/pkg/postgis"
	"github.com/kass/go-forcing-link/pkg/rtree"
)

type queryFlags struct {
	snapshot  string
	subid     int
	bySubID   bool
	near      string
	neighbors int
	box       string
	fromDB    bool
	runID     string
}

func newQueryCmd() *cobra.Command {
	var f queryFlags

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Look up forcing ids of a stored linking run",
		Long: `Looks up a stored run by basin id (--subid), by proximity (--near lon,lat) or by
area (--box minlon,minlat,maxlon,maxlat). Runs are read from the snapshot file, or
from PostGIS with --postgis.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, restore, err := setup()
			if err != nil {
				return err
			}
			defer restore()

			f.bySubID = cmd.Flags().Changed("subid")
			if !cmd.Flags().Changed("snapshot") {
				f.snapshot = cfg.Output.Snapshot
			}
			if f.fromDB {
				cfg.PostGIS.Enabled = true
				if err := cfg.Validate(); err != nil {
					return withCode(exitcode.ConfigError, err)
				}
				return queryPostGIS(cmd.Context(), cfg.PostGIS.DSN, f)
			}
			return querySnapshot(f)
		},
	}

	cmd.Flags().StringVarP(&f.snapshot, "snapshot", "s", "forclink.gob", "snapshot written by link")
	cmd.Flags().IntVar(&f.subid, "subid", 0, "basin id to look up")
	cmd.Flags().StringVar(&f.near, "near", "", "list basins nearest to lon,lat")
	cmd.Flags().IntVarP(&f.neighbors, "neighbors", "n", 5, "number of basins listed by --near")
	cmd.Flags().StringVar(&f.box, "box", "", "list basins inside minlon,minlat,maxlon,maxlat")
	cmd.Flags().BoolVar(&f.fromDB, "postgis", false, "query PostGIS instead of the snapshot")
	cmd.Flags().StringVar(&f.runID, "run-id", "", "run to query in PostGIS")
	cmd.MarkFlagsMutuallyExclusive("subid", "near", "box")
	cmd.MarkFlagsOneRequired("subid", "near", "box")
	return cmd
}

func querySnapshot(f queryFlags) error {
	result, err := link.LoadFromFile(f.snapshot)
	if err != nil {
		return withCode(exitcode.InputError, err)
	}

	index := rtree.NewBasinIndex()
	index.IndexBasins(result.Basins)

	var found []*models.Basin
	switch {
	case f.bySubID:
		cell, ok := result.Nearest[f.subid]
		if !ok {
			return withCode(exitcode.InputError, fmt.Errorf("basin %d not in run %s", f.subid, result.RunID))
		}
		id, _ := result.Table.Lookup(cell)
		printLookup(result.RunID.String(), f.subid, id, &cell, result.Grid.Location(cell))
		return nil
	case f.near != "":
		center, err := parseLocation(f.near)
		if err != nil {
			return withCode(exitcode.ConfigError, err)
		}
		found = index.NearestBasins(center, f.neighbors)
	default:
		box, err := parseBox(f.box)
		if err != nil {
			return withCode(exitcode.ConfigError, err)
		}
		found = index.QueryBox(box)
	}

	printBasins(result.RunID.String(), found, func(b *models.Basin) string {
		loc, _ := result.Location(b.ForcingID)
		cell := result.Nearest[b.ID]
		return fmt.Sprintf("%s (%g, %g)", cell, loc.Lon, loc.Lat)
	})
	return nil
}

func queryPostGIS(ctx context.Context, dsn string, f queryFlags) error {
	if f.near != "" {
		return withCode(exitcode.ConfigError, fmt.Errorf("--near is only supported on snapshots"))
	}
	runID, err := uuid.Parse(f.runID)
	if err != nil {
		return withCode(exitcode.ConfigError, fmt.Errorf("--run-id: %w", err))
	}

	store, err := postgis.Open(ctx, dsn)
	if err != nil {
		return withCode(exitcode.StorageError, err)
	}
	defer store.Close()

	if f.bySubID {
		id, err := store.ForcingID(ctx, runID, f.subid)
		if err != nil {
			return withCode(exitcode.StorageError, err)
		}
		printLookup(runID.String(), f.subid, id, nil, models.Location{})
		return nil
	}

	box, err := parseBox(f.box)
	if err != nil {
		return withCode(exitcode.ConfigError, err)
	}
	found, err := store.QueryBox(ctx, runID, box)
	if err != nil {
		return withCode(exitcode.StorageError, err)
	}
	total, err := store.CountLinks(ctx, runID)
	if err != nil {
		return withCode(exitcode.StorageError, err)
	}
	printBasins(fmt.Sprintf("%s (%d links)", runID, total), found, nil)
	return nil
}

// parseFloats parses exactly n comma separated numbers
func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("want %d comma separated numbers, got %q", n, s)
	}
	out := make([]float64, n)
	for k, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", p, err)
		}
		out[k] = v
	}
	return out, nil
}

func parseLocation(s string) (models.Location, error) {
	v, err := parseFloats(s, 2)
	if err != nil {
		return models.Location{}, err
	}
	return models.Location{Lon: v[0], Lat: v[1]}, nil
}

func parseBox(s string) (models.BoundingBox, error) {
	v, err := parseFloats(s, 4)
	if err != nil {
		return models.BoundingBox{}, err
	}
	if v[0] > v[2] || v[1] > v[3] {
		return models.BoundingBox{}, fmt.Errorf("box %q: minimum exceeds maximum", s)
	}
	return models.BoundingBox{
		BottomLeft: models.Location{Lon: v[0], Lat: v[1]},
		TopRight:   models.Location{Lon: v[2], Lat: v[3]},
	}, nil
}
