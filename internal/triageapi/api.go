// Package triageapi exposes the triage service over HTTP.
package triageapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/jabarkle/quorum-triage/internal/solicitation"
	"github.com/jabarkle/quorum-triage/internal/triage"
)

const defaultListLimit = 50

// TriageService defines the business operations triageapi needs.
type TriageService interface {
	SubmitBatch(ctx context.Context, batch []*solicitation.Solicitation) (*triage.SubmitResult, error)
	SubmitFetch(ctx context.Context) (*triage.SubmitResult, error)
	GetRun(ctx context.Context, runID string) (*triage.Summary, bool, error)
	ListRuns(ctx context.Context, limit int) ([]*triage.Summary, error)
	GetReport(ctx context.Context, id string) (*triage.Report, bool, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    TriageService
}

// New creates a new API handler.
func New(logger log.Logger, svc TriageService) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("triage service is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/triage", func(r chi.Router) {
		r.Post("/runs", a.handleSubmitRun)
		r.Post("/fetch", a.handleSubmitFetch)
		r.Get("/runs", a.handleListRuns)
		r.Get("/runs/{id}", a.handleGetRun)
		r.Get("/reports/{id}", a.handleGetReport)
	})
}

// submitRequest is the inline-batch submission body.
type submitRequest struct {
	Solicitations []*solicitation.Solicitation `json:"solicitations"`
}

func (a *API) handleSubmitRun(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}
	if len(req.Solicitations) == 0 {
		http.Error(w, `{"error":"empty batch"}`, http.StatusBadRequest)
		return
	}

	res, err := a.svc.SubmitBatch(r.Context(), req.Solicitations)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to submit batch")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.String("quorum.run.id", res.RunID),
		attribute.Int("quorum.run.count", res.Count),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"run_id": res.RunID,
		"count":  res.Count,
	})
}

func (a *API) handleSubmitFetch(w http.ResponseWriter, r *http.Request) {
	res, err := a.svc.SubmitFetch(r.Context())
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to submit fetch run")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("quorum.run.id", res.RunID))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"run_id": res.RunID,
	})
}

func (a *API) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("quorum.run.id", id))

	summary, ok, err := a.svc.GetRun(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get run", "run_id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	span.SetAttributes(attribute.String("quorum.run.status", string(summary.Status)))

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(summary)
}

func (a *API) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			http.Error(w, `{"error":"invalid limit"}`, http.StatusBadRequest)
			return
		}
		limit = n
	}

	summaries, err := a.svc.ListRuns(r.Context(), limit)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to list runs")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if summaries == nil {
		summaries = []*triage.Summary{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"runs": summaries,
	})
}

func (a *API) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("quorum.report.id", id))

	report, ok, err := a.svc.GetReport(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get report", "report_id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(report)
}
