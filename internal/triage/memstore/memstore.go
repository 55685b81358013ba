// Package memstore provides an in-memory implementation of triage.Store.
// Suitable for dev and testing; nothing survives a restart.
package memstore

import (
	"context"
	"sync"

	"github.com/jabarkle/quorum-triage/internal/triage"
)

// Store holds run summaries and reports in memory.
type Store struct {
	mu        sync.RWMutex
	summaries map[string]*triage.Summary
	order     []string // run IDs in insertion order
	reports   map[string]*triage.Report
}

// New initializes an empty Store.
func New() *Store {
	return &Store{
		summaries: make(map[string]*triage.Summary),
		reports:   make(map[string]*triage.Report),
	}
}

// PutSummary stores a copy of the run summary.
func (s *Store) PutSummary(_ context.Context, sum *triage.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.summaries[sum.RunID]; !exists {
		s.order = append(s.order, sum.RunID)
	}
	cp := *sum
	cp.Items = append([]triage.Item(nil), sum.Items...)
	s.summaries[sum.RunID] = &cp
	return nil
}

// GetSummary retrieves a run summary by ID. Returns a copy.
func (s *Store) GetSummary(_ context.Context, runID string) (*triage.Summary, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum, ok := s.summaries[runID]
	if !ok {
		return nil, false, nil
	}
	cp := *sum
	cp.Items = append([]triage.Item(nil), sum.Items...)
	return &cp, true, nil
}

// ListSummaries returns up to limit summaries, most recent first.
func (s *Store) ListSummaries(_ context.Context, limit int) ([]*triage.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.order) {
		limit = len(s.order)
	}
	out := make([]*triage.Summary, 0, limit)
	for i := len(s.order) - 1; i >= 0 && len(out) < limit; i-- {
		sum := s.summaries[s.order[i]]
		cp := *sum
		cp.Items = append([]triage.Item(nil), sum.Items...)
		out = append(out, &cp)
	}
	return out, nil
}

// PutReport stores a copy of the report.
func (s *Store) PutReport(_ context.Context, r *triage.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.reports[r.ID] = &cp
	return nil
}

// GetReport retrieves a report by ID. Returns a copy.
func (s *Store) GetReport(_ context.Context, id string) (*triage.Report, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, false, nil
	}
	cp := *r
	return &cp, true, nil
}
