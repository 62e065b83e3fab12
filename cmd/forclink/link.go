package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kass/go-forcing-link/internal/config"
	"github.com/kass/go-forcing-link/internal/exitcode"
	"github.com/kass/go-forcing-link/pkg/basins"
	"github.com/kass/go-forcing-link/pkg/grid"
	"github.com/kass/go-forcing-link/pkg/link"
	"github.com/kass/go-forcing-link/pkg/models"
	"github.com/kass/go-forcing-link/pkg/objstore"
	"github.com/kass/go-forcing-link/pkg/output"
	"github.com/kass/go-forcing-link/pkg/postgis"
)

// inputFlags are shared by the commands that read basins and a grid
type inputFlags struct {
	basinsPath string
	gridPath   string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.basinsPath, "basins", "b", "", "sub-basin shapefile (overrides basins.path)")
	cmd.Flags().StringVarP(&f.gridPath, "grid", "g", "", "forcing netCDF file (overrides grid.path)")
}

func (f *inputFlags) apply(cfg *config.Config) {
	if f.basinsPath != "" {
		cfg.Basins.Path = f.basinsPath
	}
	if f.gridPath != "" {
		cfg.Grid.Path = f.gridPath
	}
}

// readInputs reads the basins and the forcing grid named by cfg
func readInputs(cfg *config.Config) (models.Grid, []*models.Basin, error) {
	bs, err := basins.ReadShapefile(cfg.Basins.Path, cfg.Basins.Fields)
	if err != nil {
		return models.Grid{}, nil, withCode(exitcode.InputError, err)
	}
	g, err := grid.ReadNetCDF(cfg.Grid.Path, cfg.Grid.Axes)
	if err != nil {
		return models.Grid{}, nil, withCode(exitcode.InputError, err)
	}
	return g, bs, nil
}

func newLinkCmd() *cobra.Command {
	var (
		inputs     inputFlags
		outDir     string
		snapshot   string
		workers    int
		exhaustive bool
		toPostGIS  bool
		toMinIO    bool
	)

	cmd := &cobra.Command{
		Use:   "link",
		Short: "Assign forcing ids to sub-basins and write the forcing key",
		Long: `Reads the sub-basin shapefile and the forcing grid, finds the nearest grid node of
every sub-basin centroid, numbers the distinct nodes and writes ForcKey.txt and
ForcCells.txt. The result is also saved as a snapshot for the query command and,
when enabled, stored in PostGIS and uploaded to MinIO.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, restore, err := setup()
			if err != nil {
				return err
			}
			defer restore()

			inputs.apply(cfg)
			flags := cmd.Flags()
			if flags.Changed("out") {
				cfg.Output.Dir = outDir
			}
			if flags.Changed("snapshot") {
				cfg.Output.Snapshot = snapshot
			}
			if flags.Changed("workers") {
				cfg.Link.Workers = workers
			}
			if flags.Changed("exhaustive") {
				cfg.Link.Exhaustive = exhaustive
			}
			if flags.Changed("postgis") {
				cfg.PostGIS.Enabled = toPostGIS
			}
			if flags.Changed("minio") {
				cfg.MinIO.Enabled = toMinIO
			}
			if err := cfg.Validate(); err != nil {
				return withCode(exitcode.ConfigError, err)
			}

			return runLink(cmd.Context(), cfg)
		},
	}

	inputs.register(cmd)
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory")
	cmd.Flags().StringVar(&snapshot, "snapshot", "forclink.gob", "snapshot file; empty disables it")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "parallel searches; 0 uses every CPU")
	cmd.Flags().BoolVar(&exhaustive, "exhaustive", false, "search the whole grid instead of the basin window")
	cmd.Flags().BoolVar(&toPostGIS, "postgis", false, "store the result in PostGIS ("+config.EnvPostGISDSN+")")
	cmd.Flags().BoolVar(&toMinIO, "minio", false, "upload the output files to MinIO")
	return cmd
}

func runLink(ctx context.Context, cfg *config.Config) error {
	start := time.Now()
	log := zap.L()

	g, bs, err := readInputs(cfg)
	if err != nil {
		return err
	}

	result, err := link.Link(ctx, g, bs, link.Options{
		Workers:    cfg.Link.Workers,
		Exhaustive: cfg.Link.Exhaustive,
	})
	if err != nil {
		return withCode(exitcode.LinkError, err)
	}
	log = log.With(zap.String("run_id", result.RunID.String()))
	log.Info("linked basins",
		zap.Int("basins", len(result.Basins)),
		zap.Int("forcing_ids", result.Table.Len()),
		zap.Stringer("window", result.Window),
	)

	paths, err := output.WriteFiles(cfg.Output.Dir, result)
	if err != nil {
		return withCode(exitcode.StorageError, err)
	}
	if cfg.Output.Snapshot != "" {
		if err := result.SaveToFile(cfg.Output.Snapshot); err != nil {
			return withCode(exitcode.StorageError, err)
		}
		log.Info("saved snapshot", zap.String("path", cfg.Output.Snapshot))
	}

	if cfg.PostGIS.Enabled {
		if err := storePostGIS(ctx, cfg.PostGIS.DSN, result); err != nil {
			return withCode(exitcode.StorageError, err)
		}
	}

	var keys []string
	if cfg.MinIO.Enabled {
		client, err := objstore.NewMinIOClient(ctx, cfg.MinIO.MinIOConfig)
		if err != nil {
			return withCode(exitcode.StorageError, err)
		}
		keys, err = objstore.UploadFiles(ctx, client, cfg.MinIO.Prefix, result.RunID.String(), paths)
		if err != nil {
			return withCode(exitcode.StorageError, err)
		}
	}

	printSummary(linkSummary{
		result:  result,
		files:   paths,
		objects: keys,
		elapsed: time.Since(start),
	})
	return nil
}

func storePostGIS(ctx context.Context, dsn string, result *link.Result) error {
	store, err := postgis.Open(ctx, dsn)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.InitSchema(ctx); err != nil {
		return err
	}
	return store.WriteResult(ctx, result)
}
