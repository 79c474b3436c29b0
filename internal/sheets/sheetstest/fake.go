// Package sheetstest provides an in-memory sheets.Client for tests.
package sheetstest

import (
	"context"
	"fmt"
	"sync"

	"github.com/localcontactforms/contactform/internal/sheets"
)

// Write operations recorded by Fake
const (
	OpInsert    = "insert"
	OpAppend    = "append"
	OpCreateTab = "create_tab"
)

// Write is one mutating call made against the fake.
type Write struct {
	Op            string
	SpreadsheetID string
	Tab           string
	Row           []string
}

// Fake keeps tabs in memory. Reads are served from ranges registered with
// SetRange; writes mutate Tabs and are appended to Writes.
type Fake struct {
	mu sync.Mutex

	ranges map[string][][]string
	tabs   map[string]map[string][][]string
	writes []Write

	// ReadErr and WriteErr fail every call for the given spreadsheet id.
	ReadErr  map[string]error
	WriteErr map[string]error
}

var _ sheets.Client = (*Fake)(nil)

func New() *Fake {
	return &Fake{
		ranges:   make(map[string][][]string),
		tabs:     make(map[string]map[string][][]string),
		ReadErr:  make(map[string]error),
		WriteErr: make(map[string]error),
	}
}

func rangeKey(id, rng string) string {
	return id + "|" + rng
}

// SetRange registers the rows returned by ReadRange for id and rng.
func (f *Fake) SetRange(id, rng string, rows [][]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ranges[rangeKey(id, rng)] = rows
}

// AddTab creates a tab holding header as its first row.
func (f *Fake) AddTab(id, tab string, header []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tabLocked(id, tab, header)
}

func (f *Fake) tabLocked(id, tab string, header []string) {
	if f.tabs[id] == nil {
		f.tabs[id] = make(map[string][][]string)
	}
	if _, ok := f.tabs[id][tab]; !ok {
		f.tabs[id][tab] = [][]string{header}
	}
}

// Rows returns a copy of every row of tab including the header.
func (f *Fake) Rows(id, tab string) [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := f.tabs[id][tab]
	out := make([][]string, len(rows))
	copy(out, rows)
	return out
}

// Writes returns every recorded mutation in call order.
func (f *Fake) Writes() []Write {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Write, len(f.writes))
	copy(out, f.writes)
	return out
}

// WritesTo filters Writes by spreadsheet id.
func (f *Fake) WritesTo(id string) []Write {
	var out []Write
	for _, w := range f.Writes() {
		if w.SpreadsheetID == id {
			out = append(out, w)
		}
	}
	return out
}

func (f *Fake) ReadRange(_ context.Context, id, rng string) ([][]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ReadErr[id]; err != nil {
		return nil, err
	}
	rows, ok := f.ranges[rangeKey(id, rng)]
	if !ok {
		return nil, fmt.Errorf("range %s not found in spreadsheet %s", rng, id)
	}
	return rows, nil
}

func (f *Fake) InsertRowBelowHeader(_ context.Context, id, tab string, row []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.WriteErr[id]; err != nil {
		return err
	}
	rows, ok := f.tabs[id][tab]
	if !ok {
		return fmt.Errorf("insert into %q: %w", tab, sheets.ErrTabNotFound)
	}

	updated := make([][]string, 0, len(rows)+1)
	updated = append(updated, rows[0], row)
	updated = append(updated, rows[1:]...)
	f.tabs[id][tab] = updated
	f.writes = append(f.writes, Write{Op: OpInsert, SpreadsheetID: id, Tab: tab, Row: row})
	return nil
}

func (f *Fake) AppendRow(_ context.Context, id, tab string, row []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.WriteErr[id]; err != nil {
		return err
	}
	if _, ok := f.tabs[id][tab]; !ok {
		return fmt.Errorf("append to %q: %w", tab, sheets.ErrTabNotFound)
	}
	f.tabs[id][tab] = append(f.tabs[id][tab], row)
	f.writes = append(f.writes, Write{Op: OpAppend, SpreadsheetID: id, Tab: tab, Row: row})
	return nil
}

func (f *Fake) EnsureTab(_ context.Context, id, tab string, header []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.WriteErr[id]; err != nil {
		return err
	}
	if _, ok := f.tabs[id][tab]; ok {
		return nil
	}
	f.tabLocked(id, tab, header)
	f.writes = append(f.writes, Write{Op: OpCreateTab, SpreadsheetID: id, Tab: tab, Row: header})
	return nil
}
