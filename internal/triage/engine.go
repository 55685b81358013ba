package triage

import (
	"context"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/jabarkle/quorum-triage/internal/firm"
	"github.com/jabarkle/quorum-triage/internal/solicitation"
)

// DefaultConcurrency bounds parallel analyzer calls per run.
const DefaultConcurrency = 4

// EngineHooks are optional callbacks for run-level instrumentation.
type EngineHooks struct {
	OnItemScored func(rec Recommendation, score int)
	OnItemFailed func(kind FailureKind)
	OnKnockout   func(rule string)
	OnComplete   func(s *Summary)
}

// Engine scores a batch of solicitations against the firm profile. Knockout
// evaluation runs inline; technical-fit analysis is the only suspension
// point and runs concurrently across solicitations, bounded by the
// configured worker limit. Results join per solicitation and the summary
// preserves input order.
type Engine struct {
	analyzer    *Analyzer
	profile     *firm.Profile
	policy      Policy
	concurrency int
	logger      log.Logger
	hooks       EngineHooks
}

// NewEngine creates an engine. The profile is shared read-only across all
// items of every run.
func NewEngine(analyzer *Analyzer, profile *firm.Profile, policy Policy, concurrency int, logger log.Logger, hooks EngineHooks) *Engine {
	if logger == nil {
		logger = log.Nop()
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Engine{
		analyzer:    analyzer,
		profile:     profile,
		policy:      policy,
		concurrency: concurrency,
		logger:      logger,
		hooks:       hooks,
	}
}

// Run scores every solicitation in the batch and returns the summary. A
// failure on one item never aborts the run; the item is recorded as failed
// and the rest continue. Cancelling ctx stops unstarted work; items already
// scored remain valid in the summary.
func (e *Engine) Run(ctx context.Context, runID string, batch []*solicitation.Solicitation) *Summary {
	start := time.Now()
	evalTime := start

	items := make([]Item, len(batch))

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, sol := range batch {
		g.Go(func() error {
			items[i] = e.processOne(ctx, runID, sol, evalTime)
			return nil
		})
	}
	// Item goroutines never return errors; failures are carried per item.
	_ = g.Wait()

	s := &Summary{
		RunID:       runID,
		Status:      RunComplete,
		Items:       items,
		CreatedAt:   start,
		CompletedAt: time.Now(),
	}
	s.Duration = s.CompletedAt.Sub(start).Seconds()
	for _, it := range items {
		if it.Report != nil {
			s.Scored++
		} else {
			s.Failed++
		}
	}

	if e.hooks.OnComplete != nil {
		e.hooks.OnComplete(s)
	}
	e.logger.Info(ctx, "triage run complete",
		"run_id", runID,
		"total", len(items),
		"scored", s.Scored,
		"failed", s.Failed,
		"duration", s.Duration,
	)
	return s
}

func (e *Engine) processOne(ctx context.Context, runID string, sol *solicitation.Solicitation, evalTime time.Time) Item {
	id := ""
	if sol != nil {
		id = sol.ID
	}
	item := Item{SolicitationID: id}

	fail := func(err error) Item {
		kind := KindOf(err)
		item.Failure = &ItemFailure{
			SolicitationID: id,
			Kind:           kind,
			Message:        err.Error(),
		}
		if e.hooks.OnItemFailed != nil {
			e.hooks.OnItemFailed(kind)
		}
		e.logger.Warn(ctx, "solicitation failed triage",
			"run_id", runID,
			"solicitation_id", id,
			"kind", string(kind),
			"error", err.Error(),
		)
		return item
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	knockouts, err := EvaluateKnockouts(sol, e.profile, evalTime)
	if err != nil {
		return fail(err)
	}
	if e.hooks.OnKnockout != nil {
		for _, ko := range knockouts {
			if ko.Triggered {
				e.hooks.OnKnockout(ko.Rule)
			}
		}
	}

	fit, err := e.analyzer.Analyze(ctx, sol, e.profile)
	if err != nil {
		return fail(err)
	}

	score := e.policy.Aggregate(knockouts, fit)
	rec := e.policy.Classify(score, knockouts.Any())

	item.Report = &Report{
		ID:                   ulid.Make().String(),
		RunID:                runID,
		SolicitationID:       sol.ID,
		Title:                sol.Title,
		Agency:               sol.Agency,
		Score:                score,
		Recommendation:       rec,
		Knockouts:            knockouts,
		Matches:              fit.Matches,
		Gaps:                 fit.Gaps,
		Rationale:            fit.Rationale,
		RecommendedPersonnel: fit.RecommendedPersonnel,
		SourceURL:            sol.SourceURL,
		CreatedAt:            time.Now(),
	}
	if e.hooks.OnItemScored != nil {
		e.hooks.OnItemScored(rec, score)
	}
	e.logger.Info(ctx, "solicitation scored",
		"run_id", runID,
		"solicitation_id", sol.ID,
		"score", score,
		"recommendation", string(rec),
		"knockouts", knockouts.TriggeredCount(),
	)
	return item
}
