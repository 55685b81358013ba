// Package clearance defines the ordered facility/personnel clearance scale
// shared by firm profiles and solicitations.
package clearance

import (
	"encoding/json"
	"strings"
)

// Level is an ordinal clearance level. Higher values satisfy lower requirements.
type Level int

const (
	None Level = iota
	PublicTrust
	Secret
	TopSecret
)

var names = map[Level]string{
	None:        "None",
	PublicTrust: "Public Trust",
	Secret:      "Secret",
	TopSecret:   "Top Secret",
}

func (l Level) String() string {
	if s, ok := names[l]; ok {
		return s
	}
	return "None"
}

// Meets reports whether a holder at level l satisfies a requirement of level req.
func (l Level) Meets(req Level) bool {
	return l >= req
}

// Parse maps free-form clearance text to a Level. Matching is substring-based
// because upstream data mixes phrasings like "TS/SCI required" and
// "Secret clearance". Unknown text parses to None.
func Parse(s string) Level {
	v := strings.ToLower(strings.TrimSpace(s))
	switch {
	case v == "":
		return None
	case strings.Contains(v, "top secret") || strings.Contains(v, "ts/sci") || v == "ts":
		return TopSecret
	case strings.Contains(v, "secret"):
		return Secret
	case strings.Contains(v, "public trust"):
		return PublicTrust
	default:
		return None
	}
}

// MarshalJSON encodes the level as its display name.
func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON accepts the display name or any free-form clearance text.
func (l *Level) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*l = Parse(s)
	return nil
}
