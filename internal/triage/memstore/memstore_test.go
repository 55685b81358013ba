package memstore

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/jabarkle/quorum-triage/internal/triage"
)

func TestStore_SummaryRoundTrip(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	sum := &triage.Summary{
		RunID:  "run-1",
		Status: triage.RunPending,
		Source: "inline",
		Items:  []triage.Item{{SolicitationID: "sol-1"}},
	}
	if err := s.PutSummary(ctx, sum); err != nil {
		t.Fatalf("PutSummary: %v", err)
	}

	got, ok, err := s.GetSummary(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetSummary: %v", err)
	}
	if !ok {
		t.Fatal("expected summary to be found")
	}
	if got.RunID != "run-1" || got.Source != "inline" {
		t.Errorf("summary = %+v", got)
	}
	if len(got.Items) != 1 || got.Items[0].SolicitationID != "sol-1" {
		t.Errorf("items = %+v", got.Items)
	}

	// Mutating the returned copy must not affect the stored value.
	got.Status = triage.RunFailed
	again, _, _ := s.GetSummary(ctx, "run-1")
	if again.Status != triage.RunPending {
		t.Error("stored summary was mutated through a returned copy")
	}
}

func TestStore_GetMissing(t *testing.T) {
	t.Parallel()

	s := New()
	if _, ok, _ := s.GetSummary(context.Background(), "nope"); ok {
		t.Error("expected ok=false for missing summary")
	}
	if _, ok, _ := s.GetReport(context.Background(), "nope"); ok {
		t.Error("expected ok=false for missing report")
	}
}

func TestStore_ListSummaries_Order(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := s.PutSummary(ctx, &triage.Summary{RunID: fmt.Sprintf("run-%d", i)}); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.ListSummaries(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	// Most recent first.
	if got[0].RunID != "run-4" || got[2].RunID != "run-2" {
		t.Errorf("order = %s, %s, %s", got[0].RunID, got[1].RunID, got[2].RunID)
	}

	// Re-putting an existing run must not duplicate it in the listing.
	if err := s.PutSummary(ctx, &triage.Summary{RunID: "run-4", Status: triage.RunComplete}); err != nil {
		t.Fatal(err)
	}
	all, _ := s.ListSummaries(ctx, 0)
	if len(all) != 5 {
		t.Errorf("len after update = %d, want 5", len(all))
	}
}

func TestStore_ReportRoundTrip(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	r := &triage.Report{ID: "rep-1", SolicitationID: "sol-1", Score: 95, Recommendation: triage.Go}
	if err := s.PutReport(ctx, r); err != nil {
		t.Fatalf("PutReport: %v", err)
	}

	got, ok, err := s.GetReport(ctx, "rep-1")
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if !ok {
		t.Fatal("expected report to be found")
	}
	if got.Score != 95 || got.Recommendation != triage.Go {
		t.Errorf("report = %+v", got)
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("run-%d", i)
			_ = s.PutSummary(ctx, &triage.Summary{RunID: id})
			_, _, _ = s.GetSummary(ctx, id)
			_, _ = s.ListSummaries(ctx, 10)
		}(i)
	}
	wg.Wait()
}
