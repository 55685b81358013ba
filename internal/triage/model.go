package triage

import "time"

// Recommendation is the engine's final label for a solicitation.
type Recommendation string

const (
	Go          Recommendation = "GO"
	Conditional Recommendation = "CONDITIONAL"
	NoGo        Recommendation = "NO-GO"
)

// Knockout rule names. Stable identifiers used in reports and metrics.
const (
	RuleNAICS         = "naics_mismatch"
	RuleSetAside      = "set_aside_ineligible"
	RuleClearance     = "clearance_gap"
	RuleCertification = "missing_certification"
	RuleDeadline      = "deadline_passed"
)

// Knockout is the outcome of one disqualification rule. Every rule produces
// an entry whether or not it triggered, so the audit trail is complete.
type Knockout struct {
	Rule      string `json:"rule"`
	Triggered bool   `json:"triggered"`
	Reason    string `json:"reason"`
}

// Knockouts is the ordered outcome of all rules for one solicitation.
type Knockouts []Knockout

// TriggeredCount returns how many rules triggered.
func (k Knockouts) TriggeredCount() int {
	n := 0
	for _, ko := range k {
		if ko.Triggered {
			n++
		}
	}
	return n
}

// Any reports whether at least one rule triggered.
func (k Knockouts) Any() bool { return k.TriggeredCount() > 0 }

// Technical-fit adjustment bounds. The model must stay inside these; output
// outside the range is a parse error, not something we clamp away.
const (
	AdjustmentMin = -20
	AdjustmentMax = 20
)

// TechnicalFit is the structured result of one model invocation.
type TechnicalFit struct {
	Matches              []string `json:"matches"`
	Gaps                 []string `json:"gaps"`
	Adjustment           int      `json:"adjustment"`
	Rationale            string   `json:"rationale"`
	RecommendedPersonnel []string `json:"recommended_personnel,omitempty"`
}

// Report is the terminal per-solicitation entity. Immutable once created.
type Report struct {
	ID                   string         `json:"id"`
	RunID                string         `json:"run_id,omitempty"`
	SolicitationID       string         `json:"solicitation_id"`
	Title                string         `json:"title,omitempty"`
	Agency               string         `json:"agency,omitempty"`
	Score                int            `json:"score"`
	Recommendation       Recommendation `json:"recommendation"`
	Knockouts            Knockouts      `json:"knockouts"`
	Matches              []string       `json:"matches"`
	Gaps                 []string       `json:"gaps"`
	Rationale            string         `json:"rationale"`
	RecommendedPersonnel []string       `json:"recommended_personnel,omitempty"`
	SourceURL            string         `json:"source_url,omitempty"`
	CreatedAt            time.Time      `json:"created_at"`
}

// ItemFailure records one solicitation the run could not score.
type ItemFailure struct {
	SolicitationID string      `json:"solicitation_id"`
	Kind           FailureKind `json:"kind"`
	Message        string      `json:"message"`
}

// Item is the tagged per-solicitation outcome: exactly one of Report or
// Failure is set. Items appear in the summary in input order.
type Item struct {
	SolicitationID string       `json:"solicitation_id"`
	Report         *Report      `json:"report,omitempty"`
	Failure        *ItemFailure `json:"failure,omitempty"`
}

// RunStatus tracks where a run is in its lifecycle.
type RunStatus string

const (
	RunPending    RunStatus = "pending"
	RunInProgress RunStatus = "in_progress"
	RunComplete   RunStatus = "complete"
	RunFailed     RunStatus = "failed"
)

// Summary aggregates one Item per processed solicitation, preserving input
// order, plus run-level bookkeeping.
type Summary struct {
	RunID       string    `json:"run_id"`
	Status      RunStatus `json:"status"`
	Source      string    `json:"source"`
	Items       []Item    `json:"items"`
	Scored      int       `json:"scored"`
	Failed      int       `json:"failed"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
	Duration    float64   `json:"duration_seconds,omitempty"`
}

// Reports returns the successfully scored reports in input order.
func (s *Summary) Reports() []*Report {
	out := make([]*Report, 0, s.Scored)
	for _, it := range s.Items {
		if it.Report != nil {
			out = append(out, it.Report)
		}
	}
	return out
}

// Failures returns the failed item entries in input order.
func (s *Summary) Failures() []*ItemFailure {
	out := make([]*ItemFailure, 0, s.Failed)
	for _, it := range s.Items {
		if it.Failure != nil {
			out = append(out, it.Failure)
		}
	}
	return out
}
