package link

import (
	"fmt"

	"github.com/kass/go-forcing-link/pkg/models"
)

// Entry is one row of the forcing identifier table
type Entry struct {
	ID   int             `json:"forcing_id"`
	Cell models.GridCell `json:"cell"`
}

// Table maps synthetic forcing ids to grid cells, one id per distinct cell.
// Ids are kept in ascending order.
type Table struct {
	entries []Entry
	byID    map[int]models.GridCell
	byCell  map[models.GridCell]int
}

func newTable(capacity int) *Table {
	return &Table{
		entries: make([]Entry, 0, capacity),
		byID:    make(map[int]models.GridCell, capacity),
		byCell:  make(map[models.GridCell]int, capacity),
	}
}

// tableFromEntries rebuilds a table, rejecting repeated ids or cells
func tableFromEntries(entries []Entry) (*Table, error) {
	t := newTable(len(entries))
	for _, e := range entries {
		if err := t.add(e.ID, e.Cell); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Table) add(id int, cell models.GridCell) error {
	if _, ok := t.byID[id]; ok {
		return fmt.Errorf("link: forcing id %d assigned twice", id)
	}
	if prev, ok := t.byCell[cell]; ok {
		return fmt.Errorf("link: cell %v already has forcing id %d", cell, prev)
	}
	if n := len(t.entries); n > 0 && t.entries[n-1].ID >= id {
		return fmt.Errorf("link: forcing id %d out of order", id)
	}
	t.entries = append(t.entries, Entry{ID: id, Cell: cell})
	t.byID[id] = cell
	t.byCell[cell] = id
	return nil
}

// Len returns the number of distinct cells in the table
func (t *Table) Len() int {
	return len(t.entries)
}

// Cell returns the grid cell assigned to forcing id
func (t *Table) Cell(id int) (models.GridCell, bool) {
	cell, ok := t.byID[id]
	return cell, ok
}

// Lookup returns the forcing id assigned to cell
func (t *Table) Lookup(cell models.GridCell) (int, bool) {
	id, ok := t.byCell[cell]
	return id, ok
}

// IDs returns the forcing ids in ascending order
func (t *Table) IDs() []int {
	ids := make([]int, len(t.entries))
	for k, e := range t.entries {
		ids[k] = e.ID
	}
	return ids
}

// Entries returns a copy of the table rows in ascending id order
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Map returns the table as a plain id -> cell map
func (t *Table) Map() map[int]models.GridCell {
	out := make(map[int]models.GridCell, len(t.byID))
	for id, cell := range t.byID {
		out[id] = cell
	}
	return out
}
