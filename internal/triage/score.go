package triage

import "fmt"

// Policy holds the scoring constants and classification thresholds. The
// aggregation shape is fixed; these knobs are configuration, not code.
type Policy struct {
	BaseScore            int
	KnockoutPenalty      int
	MatchBonus           int
	MatchBonusCap        int
	GapPenalty           int
	GapPenaltyCap        int
	GoThreshold          int
	ConditionalThreshold int
}

// DefaultPolicy returns the stock scoring constants.
func DefaultPolicy() Policy {
	return Policy{
		BaseScore:            70,
		KnockoutPenalty:      30,
		MatchBonus:           5,
		MatchBonusCap:        25,
		GapPenalty:           5,
		GapPenaltyCap:        15,
		GoThreshold:          70,
		ConditionalThreshold: 45,
	}
}

// Validate rejects policies that cannot classify sensibly.
func (p Policy) Validate() error {
	check := func(name string, v, lo, hi int) error {
		if v < lo || v > hi {
			return &ConfigurationError{Reason: fmt.Sprintf("%s %d out of range [%d..%d]", name, v, lo, hi)}
		}
		return nil
	}
	if err := check("base score", p.BaseScore, 0, 100); err != nil {
		return err
	}
	for _, c := range []struct {
		name string
		v    int
	}{
		{"knockout penalty", p.KnockoutPenalty},
		{"match bonus", p.MatchBonus},
		{"match bonus cap", p.MatchBonusCap},
		{"gap penalty", p.GapPenalty},
		{"gap penalty cap", p.GapPenaltyCap},
	} {
		if c.v < 0 {
			return &ConfigurationError{Reason: fmt.Sprintf("%s must not be negative, got %d", c.name, c.v)}
		}
	}
	if err := check("go threshold", p.GoThreshold, 1, 100); err != nil {
		return err
	}
	if err := check("conditional threshold", p.ConditionalThreshold, 0, 100); err != nil {
		return err
	}
	if p.ConditionalThreshold >= p.GoThreshold {
		return &ConfigurationError{Reason: fmt.Sprintf(
			"conditional threshold %d must be below go threshold %d",
			p.ConditionalThreshold, p.GoThreshold)}
	}
	return nil
}

// Aggregate combines knockout results and technical-fit output into a single
// score. The order of operations is fixed: match and gap caps apply before
// the model adjustment, and clamping happens only at the end.
func (p Policy) Aggregate(knockouts Knockouts, fit *TechnicalFit) int {
	score := p.BaseScore
	score -= p.KnockoutPenalty * knockouts.TriggeredCount()
	score += min(p.MatchBonus*len(fit.Matches), p.MatchBonusCap)
	score -= min(p.GapPenalty*len(fit.Gaps), p.GapPenaltyCap)
	score += clamp(fit.Adjustment, AdjustmentMin, AdjustmentMax)
	return clamp(score, 0, 100)
}

// Classify maps a score and knockout presence to a recommendation. Any
// triggered knockout forces NO-GO regardless of score.
func (p Policy) Classify(score int, hasKnockouts bool) Recommendation {
	switch {
	case hasKnockouts:
		return NoGo
	case score >= p.GoThreshold:
		return Go
	case score >= p.ConditionalThreshold:
		return Conditional
	default:
		return NoGo
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
