// Package firm loads and validates the firm's static capability profile: the
// scoring context every solicitation is evaluated against. The profile is read
// once at startup and shared read-only across the run.
package firm

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jabarkle/quorum-triage/internal/clearance"
)

// PastPerformance is one prior contract reference.
type PastPerformance struct {
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	RelevancePoints []string `json:"relevance_points,omitempty"`
}

// Person is one key-personnel entry.
type Person struct {
	Name      string `json:"name"`
	Role      string `json:"role,omitempty"`
	Bio       string `json:"bio,omitempty"`
	Expertise string `json:"expertise,omitempty"`
}

// Profile is the firm's capability record.
type Profile struct {
	NAICSCodes       []string          `json:"naics_codes"`
	BusinessTypes    []string          `json:"business_types"`
	Certifications   []string          `json:"certifications"`
	Clearance        clearance.Level   `json:"clearance_level"`
	CoreCompetencies []string          `json:"core_competencies"`
	Specialized      []string          `json:"specialized_expertise,omitempty"`
	PastPerformance  []PastPerformance `json:"past_performance,omitempty"`
	Personnel        []Person          `json:"key_personnel,omitempty"`
}

// document is the on-disk shape of the firm data file.
type document struct {
	FirmMetadata struct {
		NAICSCodes     []string `json:"naics_codes"`
		BusinessType   []string `json:"business_type"`
		Certifications []string `json:"certifications"`
		ClearanceLevel string   `json:"clearance_level"`
	} `json:"firm_metadata"`
	Capabilities struct {
		CoreCompetencies     []string `json:"core_competencies"`
		SpecializedExpertise []string `json:"specialized_expertise"`
	} `json:"capabilities"`
	PastPerformance []PastPerformance `json:"past_performance"`
	KeyPersonnel    []Person          `json:"key_personnel"`
}

// Load reads and validates the firm profile at path. Any failure here is
// fatal for the run: the engine cannot score without a valid profile.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("read firm profile: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a firm data document.
func Parse(data []byte) (*Profile, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode firm profile: %w", err)
	}

	p := &Profile{
		NAICSCodes:       doc.FirmMetadata.NAICSCodes,
		BusinessTypes:    doc.FirmMetadata.BusinessType,
		Certifications:   doc.FirmMetadata.Certifications,
		Clearance:        clearance.Parse(doc.FirmMetadata.ClearanceLevel),
		CoreCompetencies: doc.Capabilities.CoreCompetencies,
		Specialized:      doc.Capabilities.SpecializedExpertise,
		PastPerformance:  doc.PastPerformance,
		Personnel:        doc.KeyPersonnel,
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the profile holds the minimum data the scoring rules need.
func (p *Profile) Validate() error {
	var missing []string
	if len(p.NAICSCodes) == 0 {
		missing = append(missing, "firm_metadata.naics_codes")
	}
	if len(p.CoreCompetencies) == 0 {
		missing = append(missing, "capabilities.core_competencies")
	}
	for i, pp := range p.PastPerformance {
		if pp.Title == "" {
			missing = append(missing, fmt.Sprintf("past_performance[%d].title", i))
		}
	}
	for i, kp := range p.Personnel {
		if kp.Name == "" {
			missing = append(missing, fmt.Sprintf("key_personnel[%d].name", i))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("firm profile missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// HasNAICS reports whether the firm holds the given NAICS code.
func (p *Profile) HasNAICS(code string) bool {
	for _, c := range p.NAICSCodes {
		if c == code {
			return true
		}
	}
	return false
}

// HasCertification reports whether the firm holds the given certification.
// Comparison is case-insensitive and tolerates substring phrasing differences
// ("ISO 9001" vs "ISO 9001:2015 Certified").
func (p *Profile) HasCertification(name string) bool {
	want := strings.ToLower(strings.TrimSpace(name))
	if want == "" {
		return true
	}
	for _, c := range p.Certifications {
		have := strings.ToLower(c)
		if have == want || strings.Contains(have, want) || strings.Contains(want, have) {
			return true
		}
	}
	return false
}

// setAsideAliases maps canonical set-aside categories to the phrasings that
// appear in solicitation and firm data.
var setAsideAliases = map[string][]string{
	"small business": {"small business", "competitive small business"},
	"wosb":           {"wosb", "woman owned", "women owned", "women-owned"},
	"sdvosb":         {"sdvosb", "service-disabled veteran", "service disabled veteran"},
	"hubzone":        {"hubzone"},
	"8(a)":           {"8(a)", "8a "},
	"sdb":            {"sdb", "small disadvantaged"},
	"minority":       {"minority owned", "minority-owned"},
}

// canonicalSetAside reduces free-form set-aside text to a canonical category,
// or "" if it names no restriction we recognize.
func canonicalSetAside(s string) string {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" || strings.Contains(v, "full and open") || strings.Contains(v, "unrestricted") {
		return ""
	}
	for canon, aliases := range setAsideAliases {
		for _, a := range aliases {
			if strings.Contains(v, a) {
				return canon
			}
		}
	}
	// Unrecognized restriction text still restricts; match on the raw text.
	return v
}

// EligibleFor reports whether the firm's business-type flags satisfy the
// given set-aside requirement. Open competitions are always eligible.
func (p *Profile) EligibleFor(setAside string) bool {
	canon := canonicalSetAside(setAside)
	if canon == "" {
		return true
	}
	for _, bt := range p.BusinessTypes {
		if canonicalSetAside(bt) == canon {
			return true
		}
		if strings.Contains(strings.ToLower(bt), canon) {
			return true
		}
	}
	return false
}

// Condensed renders the profile as compact prompt context: competencies,
// past-performance relevance points, and personnel expertise.
func (p *Profile) Condensed() string {
	var b strings.Builder

	b.WriteString("Core competencies: ")
	b.WriteString(strings.Join(p.CoreCompetencies, "; "))
	if len(p.Specialized) > 0 {
		b.WriteString("\nSpecialized expertise: ")
		b.WriteString(strings.Join(p.Specialized, "; "))
	}

	if len(p.PastPerformance) > 0 {
		b.WriteString("\nPast performance:")
		for _, pp := range p.PastPerformance {
			b.WriteString("\n- ")
			b.WriteString(pp.Title)
			if len(pp.RelevancePoints) > 0 {
				b.WriteString(" (")
				b.WriteString(strings.Join(pp.RelevancePoints, "; "))
				b.WriteString(")")
			}
		}
	}

	if len(p.Personnel) > 0 {
		b.WriteString("\nKey personnel:")
		for _, kp := range p.Personnel {
			b.WriteString("\n- ")
			b.WriteString(kp.Name)
			if kp.Role != "" {
				b.WriteString(", ")
				b.WriteString(kp.Role)
			}
			if kp.Expertise != "" {
				b.WriteString(": ")
				b.WriteString(kp.Expertise)
			}
		}
	}

	return b.String()
}
