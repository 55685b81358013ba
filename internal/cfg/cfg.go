// Package cfg holds the application-level configuration surface.
package cfg

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/jabarkle/quorum-triage/internal/triage"
)

// Config adds triage-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	APIToken              string

	FirmProfilePath string
	SourceURL       string

	ClaudeAPIKey      string
	AnalysisModel     string
	SummaryModel      string
	LLMTimeoutSeconds int
	AnalysisRetries   int
	ResponseTokens    int

	AnalysisConcurrency int
	SOWCharBudget       int
	SOWChunkChars       int

	BaseScore            int
	KnockoutPenalty      int
	MatchBonus           int
	MatchBonusCap        int
	GapPenalty           int
	GapPenaltyCap        int
	GoThreshold          int
	ConditionalThreshold int

	DatabaseURL     string
	SlackWebhookURL string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token required on API requests (empty = no auth)")

	fs.StringVar(&c.FirmProfilePath, "firm-profile-path", "firm_profile.json", "path to the firm capability profile JSON document")
	fs.StringVar(&c.SourceURL, "source-url", "", "partner API URL for fetch-triggered runs (empty = fetch disabled)")

	fs.StringVar(&c.ClaudeAPIKey, "claude-api-key", "", "API key for accessing the Claude LLM provider")
	fs.StringVar(&c.AnalysisModel, "analysis-model", "claude-sonnet-4-20250514", "Claude model used for technical fit analysis")
	fs.StringVar(&c.SummaryModel, "summary-model", "claude-3-5-haiku-20241022", "Claude model used for statement-of-work chunk summaries")
	fs.IntVar(&c.LLMTimeoutSeconds, "llm-timeout-seconds", 60, "per-call LLM timeout in seconds (1..600)")
	fs.IntVar(&c.AnalysisRetries, "analysis-retries", triage.DefaultAnalysisRetries, "additional attempts after a recoverable analysis failure (0..10)")
	fs.IntVar(&c.ResponseTokens, "response-tokens", triage.DefaultResponseTokens, "max tokens per model reply")

	fs.IntVar(&c.AnalysisConcurrency, "analysis-concurrency", triage.DefaultConcurrency, "solicitations analyzed in parallel per run (1..64)")
	fs.IntVar(&c.SOWCharBudget, "sow-char-budget", triage.DefaultSOWCharBudget, "statement-of-work size above which map-reduce summarization applies")
	fs.IntVar(&c.SOWChunkChars, "sow-chunk-chars", triage.DefaultChunkChars, "chunk size for statement-of-work summarization")

	fs.IntVar(&c.BaseScore, "base-score", 70, "starting score before bonuses and penalties (0..100)")
	fs.IntVar(&c.KnockoutPenalty, "knockout-penalty", 30, "score deduction per triggered knockout rule")
	fs.IntVar(&c.MatchBonus, "match-bonus", 5, "score bonus per capability match")
	fs.IntVar(&c.MatchBonusCap, "match-bonus-cap", 25, "cap on total capability match bonus")
	fs.IntVar(&c.GapPenalty, "gap-penalty", 5, "score deduction per capability gap")
	fs.IntVar(&c.GapPenaltyCap, "gap-penalty-cap", 15, "cap on total capability gap deduction")
	fs.IntVar(&c.GoThreshold, "go-threshold", 70, "minimum score for a GO recommendation (1..100)")
	fs.IntVar(&c.ConditionalThreshold, "conditional-threshold", 45, "minimum score for a CONDITIONAL recommendation (0..100)")

	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory store)")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for run notifications")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	// Firm profile is mandatory: knockout rules are meaningless without it
	if c.FirmProfilePath == "" {
		errs = append(errs, errors.New("FIRM_PROFILE_PATH is required"))
	}

	// Claude API key is required for LLM access
	if c.ClaudeAPIKey == "" {
		errs = append(errs, errors.New("CLAUDE_API_KEY is required"))
	}
	if c.AnalysisModel == "" {
		errs = append(errs, errors.New("ANALYSIS_MODEL is required"))
	}
	if c.SummaryModel == "" {
		errs = append(errs, errors.New("SUMMARY_MODEL is required"))
	}

	if c.LLMTimeoutSeconds <= 0 || c.LLMTimeoutSeconds > 600 {
		errs = append(errs, fmt.Errorf("invalid LLM_TIMEOUT_SECONDS %d (must be 1..600)", c.LLMTimeoutSeconds))
	}
	if c.AnalysisRetries < 0 || c.AnalysisRetries > 10 {
		errs = append(errs, fmt.Errorf("invalid ANALYSIS_RETRIES %d (must be 0..10)", c.AnalysisRetries))
	}
	if c.AnalysisConcurrency <= 0 || c.AnalysisConcurrency > 64 {
		errs = append(errs, fmt.Errorf("invalid ANALYSIS_CONCURRENCY %d (must be 1..64)", c.AnalysisConcurrency))
	}

	// Scoring policy constraints live with the policy itself
	if err := c.Policy().Validate(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Policy assembles the scoring policy from configured constants.
func (c *Config) Policy() triage.Policy {
	return triage.Policy{
		BaseScore:            c.BaseScore,
		KnockoutPenalty:      c.KnockoutPenalty,
		MatchBonus:           c.MatchBonus,
		MatchBonusCap:        c.MatchBonusCap,
		GapPenalty:           c.GapPenalty,
		GapPenaltyCap:        c.GapPenaltyCap,
		GoThreshold:          c.GoThreshold,
		ConditionalThreshold: c.ConditionalThreshold,
	}
}

// AnalyzerConfig assembles the analyzer bounds from configured values.
func (c *Config) AnalyzerConfig() triage.AnalyzerConfig {
	return triage.AnalyzerConfig{
		Retries:        c.AnalysisRetries,
		CallTimeout:    time.Duration(c.LLMTimeoutSeconds) * time.Second,
		ResponseTokens: c.ResponseTokens,
		SOWCharBudget:  c.SOWCharBudget,
		ChunkChars:     c.SOWChunkChars,
	}
}
