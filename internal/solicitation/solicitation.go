// Package solicitation defines the unit of work the triage engine scores:
// one government solicitation as produced by the upstream ingestion service.
package solicitation

import (
	"time"

	"github.com/jabarkle/quorum-triage/internal/clearance"
)

// Solicitation is a single opportunity record. It is read-only inside the
// engine; the fetcher (or an API caller) constructs it.
type Solicitation struct {
	ID                string          `json:"id"`
	Title             string          `json:"title"`
	Agency            string          `json:"agency,omitempty"`
	NAICS             string          `json:"naics,omitempty"`
	SetAside          string          `json:"set_aside,omitempty"`
	Deadline          time.Time       `json:"deadline"`
	RequiredClearance clearance.Level `json:"required_clearance"`
	RequiredCerts     []string        `json:"required_certifications,omitempty"`
	StatementOfWork   string          `json:"statement_of_work,omitempty"`
	SourceURL         string          `json:"source_url,omitempty"`
	PostedDate        string          `json:"posted_date,omitempty"`
}
