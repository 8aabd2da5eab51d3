package export

import (
	"context"
	"sync"
)

// Memory is an in-process report destination for tests and local
// development.
type Memory struct {
	mu   sync.Mutex
	rows []ReportRow
}

var _ ReportWriter = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) AppendReport(_ context.Context, row ReportRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, row)
	return nil
}

// Rows returns a copy of everything appended so far.
func (m *Memory) Rows() []ReportRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ReportRow, len(m.rows))
	copy(out, m.rows)
	return out
}
