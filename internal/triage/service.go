package triage

import (
	"context"
	"fmt"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"

	"github.com/jabarkle/quorum-triage/internal/solicitation"
)

// Source supplies solicitations from the external partner API.
type Source interface {
	Fetch(ctx context.Context) ([]*solicitation.Solicitation, error)
}

// Notifier receives completed run summaries.
type Notifier interface {
	Send(ctx context.Context, s *Summary) error
}

// SubmitResult is the outcome of submitting a batch for triage.
type SubmitResult struct {
	RunID string
	Count int
}

// Service owns the run lifecycle: it accepts batches, dispatches the engine
// asynchronously, persists reports and summaries, and notifies.
type Service struct {
	store    Store
	engine   *Engine
	source   Source
	notifier Notifier
	logger   log.Logger
	onSubmit func(result string)
}

// NewService creates a triage service. source and notifier may be nil, which
// disables fetch-triggered runs and notifications respectively.
func NewService(store Store, engine *Engine, source Source, notifier Notifier, logger log.Logger, onSubmit func(result string)) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{
		store:    store,
		engine:   engine,
		source:   source,
		notifier: notifier,
		logger:   logger,
		onSubmit: onSubmit,
	}
}

// SubmitBatch accepts an inline batch of solicitations and starts an
// asynchronous run.
func (s *Service) SubmitBatch(ctx context.Context, batch []*solicitation.Solicitation) (*SubmitResult, error) {
	if len(batch) == 0 {
		s.submitResult("empty")
		return nil, fmt.Errorf("empty batch")
	}

	summary, err := s.createRun(ctx, "inline")
	if err != nil {
		s.submitResult("store_error")
		return nil, err
	}

	// Detach from the request context so the run survives the caller.
	go s.runBatch(context.WithoutCancel(ctx), summary.RunID, batch)

	s.submitResult("accepted")
	return &SubmitResult{RunID: summary.RunID, Count: len(batch)}, nil
}

// SubmitFetch pulls solicitations from the configured partner source and
// starts an asynchronous run over them.
func (s *Service) SubmitFetch(ctx context.Context) (*SubmitResult, error) {
	if s.source == nil {
		s.submitResult("no_source")
		return nil, fmt.Errorf("no solicitation source configured")
	}

	summary, err := s.createRun(ctx, "fetch")
	if err != nil {
		s.submitResult("store_error")
		return nil, err
	}

	go func(ctx context.Context, runID string) {
		batch, err := s.source.Fetch(ctx)
		if err != nil {
			s.logger.Error(ctx, err, "fetch from partner source failed", "run_id", runID)
			s.failRun(ctx, runID, fmt.Sprintf("fetch failed: %v", err))
			return
		}
		if len(batch) == 0 {
			s.failRun(ctx, runID, "partner source returned no solicitations")
			return
		}
		s.runBatch(ctx, runID, batch)
	}(context.WithoutCancel(ctx), summary.RunID)

	s.submitResult("accepted")
	return &SubmitResult{RunID: summary.RunID}, nil
}

// GetRun retrieves a run summary by ID.
func (s *Service) GetRun(ctx context.Context, runID string) (*Summary, bool, error) {
	return s.store.GetSummary(ctx, runID)
}

// ListRuns retrieves the most recent run summaries.
func (s *Service) ListRuns(ctx context.Context, limit int) ([]*Summary, error) {
	return s.store.ListSummaries(ctx, limit)
}

// GetReport retrieves a single triage report by ID.
func (s *Service) GetReport(ctx context.Context, id string) (*Report, bool, error) {
	return s.store.GetReport(ctx, id)
}

func (s *Service) createRun(ctx context.Context, source string) (*Summary, error) {
	summary := &Summary{
		RunID:     ulid.Make().String(),
		Status:    RunPending,
		Source:    source,
		CreatedAt: time.Now(),
	}
	if err := s.store.PutSummary(ctx, summary); err != nil {
		return nil, fmt.Errorf("persist run: %w", err)
	}
	return summary, nil
}

func (s *Service) runBatch(ctx context.Context, runID string, batch []*solicitation.Solicitation) {
	L := s.logger.With("run_id", runID)

	if err := s.markInProgress(ctx, runID); err != nil {
		L.Error(ctx, err, "failed to mark run in progress")
		return
	}

	result := s.engine.Run(ctx, runID, batch)

	// Carry over lifecycle fields the engine does not own.
	stored, ok, err := s.store.GetSummary(ctx, runID)
	if err == nil && ok {
		result.Source = stored.Source
		result.CreatedAt = stored.CreatedAt
	}

	for _, r := range result.Reports() {
		if err := s.store.PutReport(ctx, r); err != nil {
			L.Error(ctx, err, "failed to persist report", "report_id", r.ID)
		}
	}
	if err := s.store.PutSummary(ctx, result); err != nil {
		L.Error(ctx, err, "failed to persist run summary")
	}

	if s.notifier != nil {
		if err := s.notifier.Send(ctx, result); err != nil {
			L.Error(ctx, err, "failed to send run notification")
		}
	}
}

func (s *Service) markInProgress(ctx context.Context, runID string) error {
	summary, ok, err := s.store.GetSummary(ctx, runID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("run %s not found", runID)
	}
	summary.Status = RunInProgress
	return s.store.PutSummary(ctx, summary)
}

func (s *Service) failRun(ctx context.Context, runID string, msg string) {
	summary, ok, err := s.store.GetSummary(ctx, runID)
	if err != nil || !ok {
		s.logger.Error(ctx, err, "failed to load run for failure update", "run_id", runID)
		return
	}
	summary.Status = RunFailed
	summary.Error = msg
	summary.CompletedAt = time.Now()
	if err := s.store.PutSummary(ctx, summary); err != nil {
		s.logger.Error(ctx, err, "failed to persist failed run", "run_id", runID)
	}
}

func (s *Service) submitResult(result string) {
	if s.onSubmit != nil {
		s.onSubmit(result)
	}
}
