package clearance

import (
	"encoding/json"
	"testing"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Level
	}{
		{"", None},
		{"None", None},
		{"Public Trust", PublicTrust},
		{"public trust determination", PublicTrust},
		{"Secret", Secret},
		{"Secret clearance required", Secret},
		{"Top Secret", TopSecret},
		{"TS/SCI required", TopSecret},
		{"active top secret clearance", TopSecret},
		{"something else entirely", None},
	}

	for _, tt := range tests {
		if got := Parse(tt.in); got != tt.want {
			t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMeets_Ordering(t *testing.T) {
	t.Parallel()

	if !TopSecret.Meets(Secret) {
		t.Error("Top Secret should meet a Secret requirement")
	}
	if !Secret.Meets(Secret) {
		t.Error("Secret should meet a Secret requirement")
	}
	if PublicTrust.Meets(Secret) {
		t.Error("Public Trust should not meet a Secret requirement")
	}
	if None.Meets(PublicTrust) {
		t.Error("None should not meet a Public Trust requirement")
	}
	if !None.Meets(None) {
		t.Error("None should meet a None requirement")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	t.Parallel()

	for _, l := range []Level{None, PublicTrust, Secret, TopSecret} {
		data, err := json.Marshal(l)
		if err != nil {
			t.Fatalf("marshal %v: %v", l, err)
		}
		var got Level
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if got != l {
			t.Errorf("round trip %v = %v", l, got)
		}
	}
}
