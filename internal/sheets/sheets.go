// Package sheets is the spreadsheet store: the master tenant index, per-tenant
// config and submissions sheets, the shared tracking sheet and the hit counter.
package sheets

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrTabNotFound is returned when a write targets a tab that does not exist.
var ErrTabNotFound = errors.New("sheet tab not found")

// Client is the subset of the spreadsheet API the services use.
type Client interface {
	// ReadRange returns the rows of an A1 range as strings. Trailing empty
	// cells are omitted by the API, so rows can be ragged.
	ReadRange(ctx context.Context, spreadsheetID, rng string) ([][]string, error)

	// InsertRowBelowHeader inserts a blank row at position 2 of tab and then
	// writes row into it. The two calls are not atomic.
	InsertRowBelowHeader(ctx context.Context, spreadsheetID, tab string, row []string) error

	// AppendRow adds row after the last non-empty row of tab.
	AppendRow(ctx context.Context, spreadsheetID, tab string, row []string) error

	// EnsureTab creates tab with header as its first row when it is missing.
	EnsureTab(ctx context.Context, spreadsheetID, tab string, header []string) error
}

// KeyValues folds two-column rows into a map. Later rows win on duplicate
// keys. Rows with an empty key or without a value column are skipped.
func KeyValues(rows [][]string) map[string]string {
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		key := strings.TrimSpace(row[0])
		if key == "" {
			continue
		}
		out[key] = row[1]
	}
	return out
}

// ReadKeyValues reads rng and folds it with KeyValues.
func ReadKeyValues(ctx context.Context, c Client, spreadsheetID, rng string) (map[string]string, error) {
	rows, err := c.ReadRange(ctx, spreadsheetID, rng)
	if err != nil {
		return nil, err
	}
	return KeyValues(rows), nil
}

// TextCell keeps a USER_ENTERED value from being parsed as a formula. Values
// starting with = + - @ or a control character get a leading apostrophe,
// which the sheet stores as a text marker and does not display.
func TextCell(v string) string {
	if v == "" {
		return v
	}
	switch v[0] {
	case '=', '+', '-', '@', '\t', '\r', '\n':
		return "'" + v
	}
	return v
}

// A1 builds a range reference for cells on tab, quoting the tab name.
func A1(tab, cells string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'!" + cells
}

// ColumnName converts a 1-based column index to its letter form (1 → A, 27 → AA).
func ColumnName(n int) string {
	if n < 1 {
		return "A"
	}
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}

// Observer receives the latency and result of each call.
type Observer interface {
	ObserveUpstream(upstream string, start time.Time, err error)
}

type instrumented struct {
	next     Client
	observer Observer
}

// Instrument reports every call on c to o under the "sheets" upstream label.
func Instrument(c Client, o Observer) Client {
	return &instrumented{next: c, observer: o}
}

func (i *instrumented) ReadRange(ctx context.Context, spreadsheetID, rng string) ([][]string, error) {
	start := time.Now()
	rows, err := i.next.ReadRange(ctx, spreadsheetID, rng)
	i.observer.ObserveUpstream("sheets", start, err)
	return rows, err
}

func (i *instrumented) InsertRowBelowHeader(ctx context.Context, spreadsheetID, tab string, row []string) error {
	start := time.Now()
	err := i.next.InsertRowBelowHeader(ctx, spreadsheetID, tab, row)
	i.observer.ObserveUpstream("sheets", start, err)
	return err
}

func (i *instrumented) AppendRow(ctx context.Context, spreadsheetID, tab string, row []string) error {
	start := time.Now()
	err := i.next.AppendRow(ctx, spreadsheetID, tab, row)
	i.observer.ObserveUpstream("sheets", start, err)
	return err
}

func (i *instrumented) EnsureTab(ctx context.Context, spreadsheetID, tab string, header []string) error {
	start := time.Now()
	err := i.next.EnsureTab(ctx, spreadsheetID, tab, header)
	i.observer.ObserveUpstream("sheets", start, err)
	return err
}
