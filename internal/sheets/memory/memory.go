// Package memory is a net worth exporter that keeps rows in process, used
// when no spreadsheet is configured and in tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"nestegg/internal/sheets"
)

var _ sheets.NetWorthExporter = (*Exporter)(nil)

type Exporter struct {
	mu   sync.Mutex
	rows []sheets.NetWorthRow
	err  error
}

func New() *Exporter {
	return &Exporter{}
}

// AppendNetWorth stores the row and returns a synthetic row reference.
func (e *Exporter) AppendNetWorth(_ context.Context, row sheets.NetWorthRow) (string, error) {
	if err := row.Validate(); err != nil {
		return "", err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return "", e.err
	}
	e.rows = append(e.rows, row)
	return fmt.Sprintf("mem:%d", len(e.rows)), nil
}

// FailWith makes every following append return err; nil restores success.
func (e *Exporter) FailWith(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

// Rows returns a copy of the appended rows in order.
func (e *Exporter) Rows() []sheets.NetWorthRow {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]sheets.NetWorthRow(nil), e.rows...)
}
