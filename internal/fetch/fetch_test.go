package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/jabarkle/quorum-triage/internal/clearance"
)

func serve(t *testing.T, status int, body string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL, 5*time.Second, log.Nop())
}

func TestFetch_ListWithEnvelopes(t *testing.T) {
	t.Parallel()

	c := serve(t, http.StatusOK, `[
		{"solicitation": {"solicitation_number": "W912DY-25-R-0001", "title": "Network Modernization", "agency": "USACE", "deadline": "2026-09-30"}},
		{"id": "FA8773-25-R-0002", "title": "Help Desk Support", "deadline": "2026-10-15"}
	]`)

	sols, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(sols) != 2 {
		t.Fatalf("got %d solicitations, want 2", len(sols))
	}
	if sols[0].ID != "W912DY-25-R-0001" || sols[0].Agency != "USACE" {
		t.Errorf("sols[0] = %+v", sols[0])
	}
	if sols[1].ID != "FA8773-25-R-0002" {
		t.Errorf("sols[1].ID = %q (bare record without envelope)", sols[1].ID)
	}
}

func TestFetch_SingleObject(t *testing.T) {
	t.Parallel()

	c := serve(t, http.StatusOK,
		`{"solicitation": {"solicitation_number": "N00039-25-R-0003", "title": "Fleet Support", "deadline": "2026-09-01"}}`)

	sols, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(sols) != 1 || sols[0].ID != "N00039-25-R-0003" {
		t.Fatalf("sols = %+v", sols)
	}
}

func TestFetch_FieldMapping(t *testing.T) {
	t.Parallel()

	c := serve(t, http.StatusOK, `[{
		"solicitation_number": "SP4701-25-R-0100",
		"title": "Cyber Assessment",
		"agency": "DLA",
		"naics_code": 541512,
		"small_business_set_aside": true,
		"posted_date": "2026-08-01",
		"original_url": "https://sam.gov/opp/xyz",
		"important_dates": {"proposal_due_date": "2026-09-15T17:00:00"},
		"project": {"competition_type": "SDVOSB Set-Aside"},
		"scope_of_work": {
			"summary": "Assess enterprise cyber posture.",
			"key_items": ["Vulnerability scans", "Pen testing"],
			"contractor_responsibilities": ["Weekly status reports"]
		},
		"compliance_requirements": {
			"certs": "ISO 9001 Certified required",
			"security": "Active Secret clearance required for all staff"
		}
	}]`)

	sols, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	s := sols[0]

	if s.NAICS != "541512" {
		t.Errorf("NAICS = %q (numeric code should coerce to string)", s.NAICS)
	}
	if s.SetAside != "SDVOSB Set-Aside" {
		t.Errorf("SetAside = %q", s.SetAside)
	}
	want := time.Date(2026, 9, 15, 17, 0, 0, 0, time.UTC)
	if !s.Deadline.Equal(want) {
		t.Errorf("Deadline = %v, want %v", s.Deadline, want)
	}
	if s.RequiredClearance != clearance.Secret {
		t.Errorf("RequiredClearance = %v, want Secret", s.RequiredClearance)
	}
	if len(s.RequiredCerts) != 1 || !strings.Contains(s.RequiredCerts[0], "ISO 9001") {
		t.Errorf("RequiredCerts = %v", s.RequiredCerts)
	}
	for _, sub := range []string{"Assess enterprise cyber posture", "Weekly status reports", "Vulnerability scans"} {
		if !strings.Contains(s.StatementOfWork, sub) {
			t.Errorf("StatementOfWork missing %q", sub)
		}
	}
	if s.SourceURL != "https://sam.gov/opp/xyz" {
		t.Errorf("SourceURL = %q", s.SourceURL)
	}
}

func TestFetch_SetAsideDerivation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
	}{
		{
			"not set aside",
			`[{"id":"a","title":"T","deadline":"2026-09-01","small_business_set_aside":false}]`,
			"Full and Open",
		},
		{
			"set aside with competition type",
			`[{"id":"b","title":"T","deadline":"2026-09-01","small_business_set_aside":true,"project":{"competition_type":"8(a) Sole Source"}}]`,
			"8(a) Sole Source",
		},
		{
			"set aside without detail",
			`[{"id":"c","title":"T","deadline":"2026-09-01","small_business_set_aside":true}]`,
			"Small Business Set-Aside",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := serve(t, http.StatusOK, tt.body)
			sols, err := c.Fetch(context.Background())
			if err != nil {
				t.Fatalf("Fetch: %v", err)
			}
			if sols[0].SetAside != tt.want {
				t.Errorf("SetAside = %q, want %q", sols[0].SetAside, tt.want)
			}
		})
	}
}

func TestFetch_DeadlineFallbackChain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want time.Time
	}{
		{
			"proposal due date wins",
			`[{"id":"a","title":"T","deadline":"2026-01-01","important_dates":{"proposal_due_date":"2026-09-15","response_date":"2026-08-01"}}]`,
			time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			"response date next",
			`[{"id":"b","title":"T","deadline":"2026-01-01","important_dates":{"response_date":"2026-08-01"}}]`,
			time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			"bare deadline last",
			`[{"id":"c","title":"T","deadline":"01/15/2026"}]`,
			time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			"unparsable yields zero",
			`[{"id":"d","title":"T","deadline":"TBD"}]`,
			time.Time{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := serve(t, http.StatusOK, tt.body)
			sols, err := c.Fetch(context.Background())
			if err != nil {
				t.Fatalf("Fetch: %v", err)
			}
			if !sols[0].Deadline.Equal(tt.want) {
				t.Errorf("Deadline = %v, want %v", sols[0].Deadline, tt.want)
			}
		})
	}
}

func TestFetch_SkipsUnmappableRecord(t *testing.T) {
	t.Parallel()

	// The second record has no identifier at all; the first still comes back.
	c := serve(t, http.StatusOK, `[
		{"id": "good-1", "title": "T", "deadline": "2026-09-01"},
		{"title": "orphan record"}
	]`)

	sols, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(sols) != 1 || sols[0].ID != "good-1" {
		t.Errorf("sols = %+v", sols)
	}
}

func TestFetch_HTTPError(t *testing.T) {
	t.Parallel()

	c := serve(t, http.StatusBadGateway, "upstream broken")
	_, err := c.Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error on 502")
	}
	if !strings.Contains(err.Error(), "502") {
		t.Errorf("error = %q, want status code", err.Error())
	}
}

func TestFetch_MalformedBody(t *testing.T) {
	t.Parallel()

	c := serve(t, http.StatusOK, `[{"broken`)
	if _, err := c.Fetch(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestFetch_EmptyList(t *testing.T) {
	t.Parallel()

	c := serve(t, http.StatusOK, `[]`)
	sols, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(sols) != 0 {
		t.Errorf("sols = %+v, want empty", sols)
	}
}
