// Package memory is an in-process LedgerWriter for tests and for running the
// worker without a spreadsheet.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	ports "fintrack/internal/sheets"
)

type Store struct {
	mu   sync.Mutex
	rows []ports.Row
}

var (
	_ ports.LedgerWriter = (*Store)(nil)
	_ ports.LedgerLister = (*Store)(nil)
)

func New() *Store {
	return &Store{}
}

// Append stores the row and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, row ports.Row) (string, error) {
	if row.Date.IsZero() {
		return "", errors.New("row without a date")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, row)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Rows returns a copy of the appended rows in insertion order.
func (s *Store) Rows(_ context.Context) ([]ports.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.Row(nil), s.rows...), nil
}
