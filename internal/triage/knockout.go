package triage

import (
	"fmt"
	"strings"
	"time"

	"github.com/jabarkle/quorum-triage/internal/clearance"
	"github.com/jabarkle/quorum-triage/internal/firm"
	"github.com/jabarkle/quorum-triage/internal/solicitation"
)

// EvaluateKnockouts runs every hard-disqualifier rule against one
// solicitation. All rules always run; there is no short-circuit, so the
// report carries a complete audit trail. The evaluation time is passed in to
// keep the function pure.
//
// Returns a ValidationError if required solicitation fields are absent.
func EvaluateKnockouts(sol *solicitation.Solicitation, profile *firm.Profile, now time.Time) (Knockouts, error) {
	if err := validateSolicitation(sol); err != nil {
		return nil, err
	}

	return Knockouts{
		naicsRule(sol, profile),
		setAsideRule(sol, profile),
		clearanceRule(sol, profile),
		certificationRule(sol, profile),
		deadlineRule(sol, now),
	}, nil
}

func validateSolicitation(sol *solicitation.Solicitation) error {
	if sol == nil {
		return &ValidationError{Field: "solicitation", Reason: "record is nil"}
	}
	if strings.TrimSpace(sol.ID) == "" {
		return &ValidationError{Field: "id", Reason: "identifier is required"}
	}
	if strings.TrimSpace(sol.Title) == "" {
		return &ValidationError{Field: "title", Reason: "title is required"}
	}
	if sol.Deadline.IsZero() {
		return &ValidationError{Field: "deadline", Reason: "deadline is required"}
	}
	return nil
}

func naicsRule(sol *solicitation.Solicitation, profile *firm.Profile) Knockout {
	ko := Knockout{Rule: RuleNAICS}
	if sol.NAICS == "" {
		ko.Reason = "solicitation specifies no NAICS code"
		return ko
	}
	if profile.HasNAICS(sol.NAICS) {
		ko.Reason = fmt.Sprintf("firm holds NAICS %s", sol.NAICS)
		return ko
	}
	ko.Triggered = true
	ko.Reason = fmt.Sprintf("solicitation requires NAICS %s; firm holds %s",
		sol.NAICS, strings.Join(profile.NAICSCodes, ", "))
	return ko
}

func setAsideRule(sol *solicitation.Solicitation, profile *firm.Profile) Knockout {
	ko := Knockout{Rule: RuleSetAside}
	if profile.EligibleFor(sol.SetAside) {
		if sol.SetAside == "" {
			ko.Reason = "no set-aside restriction"
		} else {
			ko.Reason = fmt.Sprintf("firm is eligible for %q", sol.SetAside)
		}
		return ko
	}
	ko.Triggered = true
	ko.Reason = fmt.Sprintf("solicitation requires %q set-aside; firm does not qualify", sol.SetAside)
	return ko
}

func clearanceRule(sol *solicitation.Solicitation, profile *firm.Profile) Knockout {
	ko := Knockout{Rule: RuleClearance}
	if sol.RequiredClearance == clearance.None {
		ko.Reason = "no clearance required"
		return ko
	}
	if profile.Clearance.Meets(sol.RequiredClearance) {
		ko.Reason = fmt.Sprintf("firm clearance %s meets required %s",
			profile.Clearance, sol.RequiredClearance)
		return ko
	}
	ko.Triggered = true
	ko.Reason = fmt.Sprintf("solicitation requires %s clearance; firm holds %s",
		sol.RequiredClearance, profile.Clearance)
	return ko
}

func certificationRule(sol *solicitation.Solicitation, profile *firm.Profile) Knockout {
	ko := Knockout{Rule: RuleCertification}
	var missing []string
	for _, cert := range sol.RequiredCerts {
		if !profile.HasCertification(cert) {
			missing = append(missing, cert)
		}
	}
	if len(missing) == 0 {
		if len(sol.RequiredCerts) == 0 {
			ko.Reason = "no certifications required"
		} else {
			ko.Reason = "firm holds all required certifications"
		}
		return ko
	}
	ko.Triggered = true
	ko.Reason = fmt.Sprintf("firm lacks required certifications: %s", strings.Join(missing, ", "))
	return ko
}

func deadlineRule(sol *solicitation.Solicitation, now time.Time) Knockout {
	ko := Knockout{Rule: RuleDeadline}
	if sol.Deadline.Before(now) {
		ko.Triggered = true
		ko.Reason = fmt.Sprintf("deadline %s has passed", sol.Deadline.Format(time.RFC3339))
		return ko
	}
	ko.Reason = fmt.Sprintf("deadline %s is in the future", sol.Deadline.Format(time.RFC3339))
	return ko
}
