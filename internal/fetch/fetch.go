// Package fetch retrieves pre-processed solicitations from the partner
// Quorum API and maps them into the engine's Solicitation model. The partner
// owns scraping and document extraction; this client only consumes its JSON.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/jabarkle/quorum-triage/internal/clearance"
	"github.com/jabarkle/quorum-triage/internal/solicitation"
)

const defaultTimeout = 30 * time.Second

// Client fetches solicitations from the partner API.
type Client struct {
	url        string
	httpClient *http.Client
	logger     log.Logger
}

// New creates a fetch client for the given partner API URL.
func New(url string, timeout time.Duration, logger log.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Fetch retrieves and maps all solicitations the partner currently serves.
// The API returns either a single object or a list, with each record
// optionally wrapped in a {"solicitation": ...} envelope.
func (c *Client) Fetch(ctx context.Context) ([]*solicitation.Solicitation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req) //nolint:gosec // G704: url is from trusted config, not user input
	if err != nil {
		return nil, fmt.Errorf("fetch solicitations: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("partner api returned %d: %s", resp.StatusCode, truncate(string(body), 256))
	}

	raws, err := unwrap(body)
	if err != nil {
		return nil, err
	}

	out := make([]*solicitation.Solicitation, 0, len(raws))
	for _, raw := range raws {
		sol, err := mapPayload(raw)
		if err != nil {
			// A single unmappable record should not sink the fetch; the
			// engine will reject incomplete records per item anyway.
			c.logger.Warn(ctx, "skipping unmappable solicitation", "error", err.Error())
			continue
		}
		out = append(out, sol)
	}

	c.logger.Info(ctx, "fetched solicitations", "url", c.url, "count", len(out))
	return out, nil
}

// envelope is the optional per-record wrapper the partner API emits.
type envelope struct {
	Solicitation json.RawMessage `json:"solicitation"`
}

// unwrap normalizes the response body into one raw JSON object per record.
func unwrap(body []byte) ([]json.RawMessage, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil, nil
	}

	var items []json.RawMessage
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("decode response list: %w", err)
		}
	} else {
		items = []json.RawMessage{json.RawMessage(body)}
	}

	out := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		var env envelope
		if err := json.Unmarshal(item, &env); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		if len(env.Solicitation) > 0 && string(env.Solicitation) != "null" {
			out = append(out, env.Solicitation)
		} else {
			out = append(out, item)
		}
	}
	return out, nil
}

// payload is the partner's solicitation shape. Fields we do not consume are
// left undeclared and ignored by the decoder.
type payload struct {
	SolicitationNumber string          `json:"solicitation_number"`
	ID                 string          `json:"id"`
	Title              string          `json:"title"`
	Agency             string          `json:"agency"`
	NAICSCode          json.RawMessage `json:"naics_code"` // string or number
	SmallBizSetAside   bool            `json:"small_business_set_aside"`
	Deadline           string          `json:"deadline"`
	PostedDate         string          `json:"posted_date"`
	OriginalURL        string          `json:"original_url"`
	ImportantDates     struct {
		ProposalDueDate string `json:"proposal_due_date"`
		ResponseDate    string `json:"response_date"`
	} `json:"important_dates"`
	Project struct {
		CompetitionType string `json:"competition_type"`
	} `json:"project"`
	ScopeOfWork struct {
		Summary                    string   `json:"summary"`
		KeyItems                   []string `json:"key_items"`
		ContractorResponsibilities []string `json:"contractor_responsibilities"`
	} `json:"scope_of_work"`
	ComplianceRequirements map[string]any `json:"compliance_requirements"`
}

func mapPayload(raw json.RawMessage) (*solicitation.Solicitation, error) {
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode solicitation: %w", err)
	}

	id := p.SolicitationNumber
	if id == "" {
		id = p.ID
	}
	if id == "" {
		return nil, fmt.Errorf("record has no solicitation_number or id")
	}

	certs, requiredClearance := extractCompliance(p.ComplianceRequirements)

	return &solicitation.Solicitation{
		ID:                id,
		Title:             p.Title,
		Agency:            p.Agency,
		NAICS:             decodeNAICS(p.NAICSCode),
		SetAside:          deriveSetAside(p),
		Deadline:          parseDeadline(p),
		RequiredClearance: requiredClearance,
		RequiredCerts:     certs,
		StatementOfWork:   buildSOW(p),
		SourceURL:         p.OriginalURL,
		PostedDate:        p.PostedDate,
	}, nil
}

// decodeNAICS tolerates both "541512" and 541512 in the feed.
func decodeNAICS(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func deriveSetAside(p payload) string {
	if !p.SmallBizSetAside {
		return "Full and Open"
	}
	if p.Project.CompetitionType != "" {
		return p.Project.CompetitionType
	}
	return "Small Business Set-Aside"
}

// deadlineLayouts are the date formats seen in partner feeds.
var deadlineLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006",
	"January 2, 2006",
}

// parseDeadline tries the fallback chain the partner data needs:
// proposal_due_date, then response_date, then the bare deadline field.
// Unparsable dates yield the zero time; validation rejects the record
// downstream as a per-item failure.
func parseDeadline(p payload) time.Time {
	for _, candidate := range []string{
		p.ImportantDates.ProposalDueDate,
		p.ImportantDates.ResponseDate,
		p.Deadline,
	} {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		for _, layout := range deadlineLayouts {
			if ts, err := time.Parse(layout, candidate); err == nil {
				return ts
			}
		}
	}
	return time.Time{}
}

// extractCompliance scans the free-form compliance map for certification and
// clearance requirements by keyword.
func extractCompliance(compliance map[string]any) ([]string, clearance.Level) {
	var certs []string
	required := clearance.None

	for _, v := range compliance {
		s, ok := v.(string)
		if !ok {
			continue
		}
		lower := strings.ToLower(s)
		if strings.Contains(lower, "clearance") || strings.Contains(lower, "secret") {
			if lvl := clearance.Parse(s); lvl > required {
				required = lvl
			}
		}
		if strings.Contains(lower, "certified") || strings.Contains(lower, "certification") || strings.Contains(lower, "license") {
			certs = append(certs, s)
		}
	}
	return certs, required
}

// buildSOW assembles the statement-of-work text from the scope summary,
// contractor responsibilities, and key tasks.
func buildSOW(p payload) string {
	var parts []string
	if p.ScopeOfWork.Summary != "" {
		parts = append(parts, p.ScopeOfWork.Summary)
	}
	if len(p.ScopeOfWork.ContractorResponsibilities) > 0 {
		parts = append(parts, "Contractor responsibilities:\n- "+strings.Join(p.ScopeOfWork.ContractorResponsibilities, "\n- "))
	}
	if len(p.ScopeOfWork.KeyItems) > 0 {
		parts = append(parts, "Key tasks:\n- "+strings.Join(p.ScopeOfWork.KeyItems, "\n- "))
	}
	return strings.Join(parts, "\n\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
