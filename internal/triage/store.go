package triage

import "context"

// Store is the persistence interface for triage runs and reports.
type Store interface {
	PutSummary(ctx context.Context, s *Summary) error
	GetSummary(ctx context.Context, runID string) (*Summary, bool, error)
	ListSummaries(ctx context.Context, limit int) ([]*Summary, error)
	PutReport(ctx context.Context, r *Report) error
	GetReport(ctx context.Context, id string) (*Report, bool, error)
}
