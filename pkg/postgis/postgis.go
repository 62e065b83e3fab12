// Package postgis stores linking results in a PostGIS database, keyed by run id.
package postgis

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kass/go-forcing-link/pkg/link"
	"github.com/kass/go-forcing-link/pkg/models"
)

// ErrNotFound indicates that no link exists for the requested run and basin.
var ErrNotFound = errors.New("postgis: link not found")

// Store writes and reads forcing links
type Store struct {
	db *sql.DB
}

// Open connects to the database at dsn and checks the connection
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "postgis: open database")
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "postgis: ping database")
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	return New(db), nil
}

// New wraps an open database handle
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS postgis`,
	`CREATE TABLE IF NOT EXISTS forcing_cells (
		run_id     UUID NOT NULL,
		forcing_id INTEGER NOT NULL,
		i          INTEGER NOT NULL,
		j          INTEGER NOT NULL,
		location   GEOMETRY(POINT, 4326) NOT NULL,
		PRIMARY KEY (run_id, forcing_id)
	)`,
	`CREATE TABLE IF NOT EXISTS basin_links (
		run_id     UUID NOT NULL,
		subid      INTEGER NOT NULL,
		forcing_id INTEGER NOT NULL,
		area       DOUBLE PRECISION,
		elev       DOUBLE PRECISION,
		centroid   GEOMETRY(POINT, 4326) NOT NULL,
		PRIMARY KEY (run_id, subid),
		FOREIGN KEY (run_id, forcing_id) REFERENCES forcing_cells (run_id, forcing_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_basin_links_centroid ON basin_links USING GIST (centroid)`,
}

// InitSchema creates the tables and the spatial index when missing
func (s *Store) InitSchema(ctx context.Context) error {
	for _, query := range schema {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return eris.Wrapf(err, "postgis: execute %q", query)
		}
	}
	return nil
}

const (
	insertCell = `INSERT INTO forcing_cells (run_id, forcing_id, i, j, location)
		VALUES ($1, $2, $3, $4, ST_SetSRID(ST_MakePoint($5, $6), 4326))`
	insertLink = `INSERT INTO basin_links (run_id, subid, forcing_id, area, elev, centroid)
		VALUES ($1, $2, $3, $4, $5, ST_SetSRID(ST_MakePoint($6, $7), 4326))`
)

// WriteResult stores the forcing table and every basin link of result in a
// single transaction.
func (s *Store) WriteResult(ctx context.Context, result *link.Result) error {
	start := time.Now()
	runID := result.RunID.String()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "postgis: begin transaction")
	}
	defer tx.Rollback()

	err = execEach(ctx, tx, insertCell, result.Table.Entries(), func(e link.Entry) []any {
		loc := result.Grid.Location(e.Cell)
		return []any{runID, e.ID, e.Cell.I, e.Cell.J, loc.Lon, loc.Lat}
	})
	if err != nil {
		return err
	}

	err = execEach(ctx, tx, insertLink, result.Basins, func(b *models.Basin) []any {
		return []any{runID, b.ID, b.ForcingID, b.Area, b.Elev, b.Centroid.Lon, b.Centroid.Lat}
	})
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "postgis: commit")
	}

	zap.L().Info("stored forcing links",
		zap.String("run_id", runID),
		zap.Int("cells", result.Table.Len()),
		zap.Int("basins", len(result.Basins)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func execEach[T any](ctx context.Context, tx *sql.Tx, query string, rows []T, args func(T) []any) error {
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return eris.Wrap(err, "postgis: prepare insert")
	}
	defer stmt.Close()

	for k, row := range rows {
		if _, err := stmt.ExecContext(ctx, args(row)...); err != nil {
			return eris.Wrapf(err, "postgis: insert row %d", k)
		}
	}
	return nil
}

// ForcingID returns the forcing id stored for basin subid in run runID
func (s *Store) ForcingID(ctx context.Context, runID uuid.UUID, subid int) (int, error) {
	var id int
	err := s.db.QueryRowContext(ctx,
		`SELECT forcing_id FROM basin_links WHERE run_id = $1 AND subid = $2`,
		runID.String(), subid,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: run %s basin %d", ErrNotFound, runID, subid)
	}
	if err != nil {
		return 0, eris.Wrap(err, "postgis: query forcing id")
	}
	return id, nil
}

// QueryBox returns the linked basins of run runID whose centroid falls in box
func (s *Store) QueryBox(ctx context.Context, runID uuid.UUID, box models.BoundingBox) ([]*models.Basin, error) {
	query := `
		SELECT subid, forcing_id, area, elev, ST_X(centroid), ST_Y(centroid)
		FROM basin_links
		WHERE run_id = $1 AND centroid && ST_MakeEnvelope($2, $3, $4, $5, 4326)
		ORDER BY subid
	`
	rows, err := s.db.QueryContext(ctx, query, runID.String(),
		box.BottomLeft.Lon, box.BottomLeft.Lat,
		box.TopRight.Lon, box.TopRight.Lat)
	if err != nil {
		return nil, eris.Wrap(err, "postgis: query box")
	}
	defer rows.Close()

	var results []*models.Basin
	for rows.Next() {
		b := &models.Basin{}
		if err := rows.Scan(&b.ID, &b.ForcingID, &b.Area, &b.Elev, &b.Centroid.Lon, &b.Centroid.Lat); err != nil {
			return nil, eris.Wrap(err, "postgis: scan row")
		}
		results = append(results, b)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgis: rows")
	}
	return results, nil
}

// CountLinks returns the number of basin links stored for run runID
func (s *Store) CountLinks(ctx context.Context, runID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM basin_links WHERE run_id = $1`, runID.String(),
	).Scan(&count)
	if err != nil {
		return 0, eris.Wrap(err, "postgis: count links")
	}
	return count, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}
