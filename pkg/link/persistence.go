package link

import (
	"encoding/gob"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/kass/go-forcing-link/pkg/models"
	"github.com/kass/go-forcing-link/pkg/nearest"
)

// Snapshot is the serializable form of a Result
type Snapshot struct {
	RunID     string          `json:"run_id"`
	CreatedAt time.Time       `json:"created_at"`
	Grid      models.Grid     `json:"grid"`
	Window    nearest.Window  `json:"window"`
	Basins    []*models.Basin `json:"basins"`
	Entries   []Entry         `json:"entries"`
}

// Snapshot captures r for persistence
func (r *Result) Snapshot() Snapshot {
	return Snapshot{
		RunID:     r.RunID.String(),
		CreatedAt: r.CreatedAt,
		Grid:      r.Grid,
		Window:    r.Window,
		Basins:    r.Basins,
		Entries:   r.Table.Entries(),
	}
}

// SaveToFile writes the result to a gob file
func (r *Result) SaveToFile(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return eris.Wrapf(err, "link: create snapshot %s", filename)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(r.Snapshot()); err != nil {
		return eris.Wrap(err, "link: encode snapshot")
	}
	return file.Close()
}

// LoadFromFile reads a result written by SaveToFile. The nearest-cell map is
// rebuilt from the basin forcing ids.
func LoadFromFile(filename string) (*Result, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, eris.Wrapf(err, "link: open snapshot %s", filename)
	}
	defer file.Close()

	var snap Snapshot
	if err := gob.NewDecoder(file).Decode(&snap); err != nil {
		return nil, eris.Wrap(err, "link: decode snapshot")
	}
	return snap.Result()
}

// Result restores the linking result held by s
func (s Snapshot) Result() (*Result, error) {
	runID, err := uuid.Parse(s.RunID)
	if err != nil {
		return nil, eris.Wrapf(err, "link: snapshot run id %q", s.RunID)
	}
	table, err := tableFromEntries(s.Entries)
	if err != nil {
		return nil, err
	}

	cells := make(map[int]models.GridCell, len(s.Basins))
	for _, b := range s.Basins {
		cell, ok := table.Cell(b.ForcingID)
		if !ok {
			return nil, eris.Errorf("link: basin %d references unknown forcing id %d", b.ID, b.ForcingID)
		}
		cells[b.ID] = cell
	}

	return &Result{
		RunID:     runID,
		CreatedAt: s.CreatedAt,
		Grid:      s.Grid,
		Window:    s.Window,
		Basins:    s.Basins,
		Nearest:   cells,
		Table:     table,
	}, nil
}
