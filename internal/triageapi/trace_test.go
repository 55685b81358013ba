package triageapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/jabarkle/quorum-triage/internal/triage"
)

func TestHandlers_SpanAttributes(t *testing.T) {
	// Not parallel: swaps the global OTel tracer provider.

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	svc := &stubService{
		getRun: func(_ context.Context, runID string) (*triage.Summary, bool, error) {
			return &triage.Summary{
				RunID:     runID,
				Status:    triage.RunComplete,
				CreatedAt: time.Now(),
			}, true, nil
		},
	}
	api := New(nil, svc)
	r := chi.NewRouter()
	api.RegisterRoutes(r)
	h := otelhttp.NewHandler(r, "http.server", otelhttp.WithTracerProvider(tp))

	// Submit an inline batch, then read the run back.
	body := `{"solicitations":[{"id":"sol-1","title":"T","deadline":"2026-09-01T00:00:00Z"}]}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/triage/runs", strings.NewReader(body)))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("submit status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/triage/runs/run-1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("spans = %d, want 2", len(spans))
	}

	attrs := func(i int) map[string]string {
		out := make(map[string]string)
		for _, kv := range spans[i].Attributes {
			out[string(kv.Key)] = kv.Value.Emit()
		}
		return out
	}

	submit := attrs(0)
	if submit["quorum.run.id"] != "run-1" {
		t.Errorf("submit span quorum.run.id = %q", submit["quorum.run.id"])
	}
	if submit["quorum.run.count"] != "1" {
		t.Errorf("submit span quorum.run.count = %q", submit["quorum.run.count"])
	}

	get := attrs(1)
	if get["quorum.run.id"] != "run-1" {
		t.Errorf("get span quorum.run.id = %q", get["quorum.run.id"])
	}
	if get["quorum.run.status"] != string(triage.RunComplete) {
		t.Errorf("get span quorum.run.status = %q", get["quorum.run.status"])
	}
}
