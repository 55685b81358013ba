package cfg

import (
	"flag"
	"strings"
	"testing"
	"time"

	"github.com/jabarkle/quorum-triage/internal/triage"
)

// validBase returns a Config with all required fields set to valid values.
func validBase() Config {
	return Config{
		DrainSeconds:          60,
		ShutdownBudgetSeconds: 90,
		APIPort:               8080,
		APIToken:              "test-token-123",
		FirmProfilePath:       "firm_profile.json",
		ClaudeAPIKey:          "sk-test-key",
		AnalysisModel:         "claude-sonnet-4-20250514",
		SummaryModel:          "claude-3-5-haiku-20241022",
		LLMTimeoutSeconds:     60,
		AnalysisRetries:       2,
		AnalysisConcurrency:   4,
		BaseScore:             70,
		KnockoutPenalty:       30,
		MatchBonus:            5,
		MatchBonusCap:         25,
		GapPenalty:            5,
		GapPenaltyCap:         15,
		GoThreshold:           70,
		ConditionalThreshold:  45,
	}
}

func TestRegisterFlags_Defaults(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parse empty args: %v", err)
	}

	if c.DrainSeconds != 60 {
		t.Errorf("DrainSeconds = %d, want 60", c.DrainSeconds)
	}
	if c.ShutdownBudgetSeconds != 90 {
		t.Errorf("ShutdownBudgetSeconds = %d, want 90", c.ShutdownBudgetSeconds)
	}
	if c.APIPort != 8080 {
		t.Errorf("APIPort = %d, want 8080", c.APIPort)
	}
	if c.AnalysisModel != "claude-sonnet-4-20250514" {
		t.Errorf("AnalysisModel = %q", c.AnalysisModel)
	}
	if c.GoThreshold != 70 || c.ConditionalThreshold != 45 {
		t.Errorf("thresholds = %d/%d, want 70/45", c.GoThreshold, c.ConditionalThreshold)
	}
	if c.BaseScore != 70 || c.KnockoutPenalty != 30 {
		t.Errorf("scoring constants = %d/%d, want 70/30", c.BaseScore, c.KnockoutPenalty)
	}
}

func TestRegisterFlags_Override(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	args := []string{
		"-drain-seconds", "30",
		"-shutdown-budget-seconds", "120",
		"-http-port", "9090",
		"-firm-profile-path", "/etc/quorum/firm.json",
		"-claude-api-key", "sk-override",
		"-analysis-model", "claude-opus-4-20250514",
		"-go-threshold", "80",
		"-analysis-concurrency", "8",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse args: %v", err)
	}

	if c.DrainSeconds != 30 {
		t.Errorf("DrainSeconds = %d, want 30", c.DrainSeconds)
	}
	if c.APIPort != 9090 {
		t.Errorf("APIPort = %d, want 9090", c.APIPort)
	}
	if c.FirmProfilePath != "/etc/quorum/firm.json" {
		t.Errorf("FirmProfilePath = %q", c.FirmProfilePath)
	}
	if c.AnalysisModel != "claude-opus-4-20250514" {
		t.Errorf("AnalysisModel = %q", c.AnalysisModel)
	}
	if c.GoThreshold != 80 {
		t.Errorf("GoThreshold = %d, want 80", c.GoThreshold)
	}
	if c.AnalysisConcurrency != 8 {
		t.Errorf("AnalysisConcurrency = %d, want 8", c.AnalysisConcurrency)
	}
}

func TestValidate_ValidBase(t *testing.T) {
	t.Parallel()

	c := validBase()
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate(validBase) = %v, want nil", err)
	}
}

func TestValidate_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{"drain too low", func(c *Config) { c.DrainSeconds = 0 }, "DRAIN_SECONDS"},
		{"drain too high", func(c *Config) { c.DrainSeconds = 301 }, "DRAIN_SECONDS"},
		{"budget below drain", func(c *Config) { c.ShutdownBudgetSeconds = 30 }, "must be greater than"},
		{"port zero", func(c *Config) { c.APIPort = 0 }, "HTTP_PORT"},
		{"port too high", func(c *Config) { c.APIPort = 70000 }, "HTTP_PORT"},
		{"missing profile path", func(c *Config) { c.FirmProfilePath = "" }, "FIRM_PROFILE_PATH"},
		{"missing api key", func(c *Config) { c.ClaudeAPIKey = "" }, "CLAUDE_API_KEY"},
		{"missing analysis model", func(c *Config) { c.AnalysisModel = "" }, "ANALYSIS_MODEL"},
		{"missing summary model", func(c *Config) { c.SummaryModel = "" }, "SUMMARY_MODEL"},
		{"llm timeout zero", func(c *Config) { c.LLMTimeoutSeconds = 0 }, "LLM_TIMEOUT_SECONDS"},
		{"retries negative", func(c *Config) { c.AnalysisRetries = -1 }, "ANALYSIS_RETRIES"},
		{"concurrency zero", func(c *Config) { c.AnalysisConcurrency = 0 }, "ANALYSIS_CONCURRENCY"},
		{"conditional above go", func(c *Config) { c.ConditionalThreshold = 80 }, "conditional threshold"},
		{"base score out of range", func(c *Config) { c.BaseScore = 150 }, "base score"},
		{"negative knockout penalty", func(c *Config) { c.KnockoutPenalty = -1 }, "knockout penalty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := validBase()
			tt.mutate(&c)
			err := c.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantSub)
			}
		})
	}
}

func TestValidate_CollectsMultipleErrors(t *testing.T) {
	t.Parallel()

	c := validBase()
	c.DrainSeconds = 0
	c.APIPort = 0
	c.ClaudeAPIKey = ""

	err := c.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want joined errors")
	}
	for _, sub := range []string{"DRAIN_SECONDS", "HTTP_PORT", "CLAUDE_API_KEY"} {
		if !strings.Contains(err.Error(), sub) {
			t.Errorf("joined error missing %q: %v", sub, err)
		}
	}
}

func TestPolicy_Mapping(t *testing.T) {
	t.Parallel()

	c := validBase()
	p := c.Policy()

	want := triage.Policy{
		BaseScore:            70,
		KnockoutPenalty:      30,
		MatchBonus:           5,
		MatchBonusCap:        25,
		GapPenalty:           5,
		GapPenaltyCap:        15,
		GoThreshold:          70,
		ConditionalThreshold: 45,
	}
	if p != want {
		t.Errorf("Policy() = %+v, want %+v", p, want)
	}
}

func TestAnalyzerConfig_Mapping(t *testing.T) {
	t.Parallel()

	c := validBase()
	c.ResponseTokens = 2048
	c.SOWCharBudget = 10000
	c.SOWChunkChars = 4000

	ac := c.AnalyzerConfig()
	if ac.CallTimeout != 60*time.Second {
		t.Errorf("CallTimeout = %v, want 60s", ac.CallTimeout)
	}
	if ac.Retries != 2 {
		t.Errorf("Retries = %d, want 2", ac.Retries)
	}
	if ac.ResponseTokens != 2048 || ac.SOWCharBudget != 10000 || ac.ChunkChars != 4000 {
		t.Errorf("AnalyzerConfig = %+v", ac)
	}
}
