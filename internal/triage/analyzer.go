package triage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/linnemanlabs/go-core/log"

	"github.com/jabarkle/quorum-triage/internal/firm"
	"github.com/jabarkle/quorum-triage/internal/solicitation"
)

// Analyzer defaults.
const (
	DefaultAnalysisRetries = 2
	DefaultCallTimeout     = 60 * time.Second
	DefaultResponseTokens  = 4096
	DefaultSOWCharBudget   = 24000
	DefaultChunkChars      = 8000
)

// AnalyzerConfig bounds the analyzer's interaction with the model.
type AnalyzerConfig struct {
	// Retries is the number of additional attempts after the first call
	// fails with a recoverable (parse or transport) error.
	Retries int
	// CallTimeout applies to each individual model call.
	CallTimeout time.Duration
	// ResponseTokens caps the model's reply length.
	ResponseTokens int
	// SOWCharBudget is the statement-of-work size above which map-reduce
	// reduction kicks in. The SOW is never silently truncated.
	SOWCharBudget int
	// ChunkChars is the chunk size used during reduction.
	ChunkChars int
}

func (c *AnalyzerConfig) applyDefaults() {
	if c.Retries < 0 {
		c.Retries = DefaultAnalysisRetries
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	if c.ResponseTokens <= 0 {
		c.ResponseTokens = DefaultResponseTokens
	}
	if c.SOWCharBudget <= 0 {
		c.SOWCharBudget = DefaultSOWCharBudget
	}
	if c.ChunkChars <= 0 {
		c.ChunkChars = DefaultChunkChars
	}
}

// AnalyzerHooks are optional callbacks for instrumentation.
type AnalyzerHooks struct {
	OnLLMCall   func(model string, usage Usage, seconds float64)
	OnRetry     func()
	OnReduction func(chunks int)
}

// Analyzer produces a TechnicalFit for one solicitation via a single logical
// model invocation. Two providers are injected: the matcher (reasoning tier)
// runs the fit analysis, the summarizer (fast tier) reduces oversized
// statements of work. Capability selection happens at wiring time, never by
// branching on model names here.
type Analyzer struct {
	matcher    Provider
	summarizer Provider
	cfg        AnalyzerConfig
	logger     log.Logger
	hooks      AnalyzerHooks
}

// NewAnalyzer creates an analyzer. If summarizer is nil the matcher handles
// chunk summaries too.
func NewAnalyzer(matcher, summarizer Provider, cfg AnalyzerConfig, logger log.Logger, hooks AnalyzerHooks) *Analyzer {
	if logger == nil {
		logger = log.Nop()
	}
	if summarizer == nil {
		summarizer = matcher
	}
	cfg.applyDefaults()
	return &Analyzer{
		matcher:    matcher,
		summarizer: summarizer,
		cfg:        cfg,
		logger:     logger,
		hooks:      hooks,
	}
}

// Analyze compares the solicitation's scope against the firm profile and
// returns the structured technical-fit result. Recoverable failures are
// retried up to the configured bound before the error surfaces.
func (a *Analyzer) Analyze(ctx context.Context, sol *solicitation.Solicitation, profile *firm.Profile) (*TechnicalFit, error) {
	sow := sol.StatementOfWork
	if len(sow) > a.cfg.SOWCharBudget {
		reduced, err := a.reduceSOW(ctx, sol, sow)
		if err != nil {
			return nil, err
		}
		sow = reduced
	}

	req := &GenerateRequest{
		System:    analysisSystemPrompt,
		Prompt:    buildAnalysisPrompt(sol, profile, sow),
		MaxTokens: a.cfg.ResponseTokens,
	}

	return withRetry(ctx, a.cfg.Retries, a.hooks.OnRetry, func() (*TechnicalFit, error) {
		resp, err := a.generate(ctx, a.matcher, "analysis", req)
		if err != nil {
			return nil, err
		}
		fit, err := ParseTechnicalFit(resp.Text)
		if err != nil {
			a.logger.Warn(ctx, "technical fit parse failed",
				"solicitation_id", sol.ID,
				"error", err.Error(),
			)
			return nil, err
		}
		return fit, nil
	})
}

// reduceSOW applies the map-reduce strategy: split into bounded chunks,
// summarize each independently, concatenate the summaries.
func (a *Analyzer) reduceSOW(ctx context.Context, sol *solicitation.Solicitation, sow string) (string, error) {
	chunks := chunkText(sow, a.cfg.ChunkChars)
	if a.hooks.OnReduction != nil {
		a.hooks.OnReduction(len(chunks))
	}
	a.logger.Info(ctx, "reducing oversized statement of work",
		"solicitation_id", sol.ID,
		"sow_chars", len(sow),
		"chunks", len(chunks),
	)

	summaries := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		req := &GenerateRequest{
			System:    summarySystemPrompt,
			Prompt:    buildSummaryPrompt(sol, chunk, i+1, len(chunks)),
			MaxTokens: a.cfg.ResponseTokens,
		}
		summary, err := withRetry(ctx, a.cfg.Retries, a.hooks.OnRetry, func() (string, error) {
			resp, err := a.generate(ctx, a.summarizer, "summary", req)
			if err != nil {
				return "", err
			}
			return strings.TrimSpace(resp.Text), nil
		})
		if err != nil {
			return "", err
		}
		summaries = append(summaries, summary)
	}

	return strings.Join(summaries, "\n\n"), nil
}

// generate issues one model call under the per-call timeout. Failures come
// back as TransportError so the retry policy can classify them.
func (a *Analyzer) generate(ctx context.Context, p Provider, op string, req *GenerateRequest) (*GenerateResponse, error) {
	cctx, cancel := context.WithTimeout(ctx, a.cfg.CallTimeout)
	defer cancel()

	start := time.Now()
	resp, err := p.Generate(cctx, req)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}

	if a.hooks.OnLLMCall != nil {
		a.hooks.OnLLMCall(resp.Model, resp.Usage, elapsed)
	}
	a.logger.Info(ctx, "llm call",
		"op", op,
		"model", resp.Model,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"duration", elapsed,
	)
	return resp, nil
}

// withRetry retries a recoverable operation up to retries additional
// attempts with exponential backoff. Context cancellation stops retrying.
func withRetry[T any](ctx context.Context, retries int, onRetry func(), op func() (T, error)) (T, error) {
	attempt := 0
	return backoff.Retry(ctx, func() (T, error) {
		if attempt > 0 && onRetry != nil {
			onRetry()
		}
		attempt++
		return op()
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(retries)+1),
	)
}

// ParseTechnicalFit validates raw model output against the TechnicalFit
// schema. Models wrap JSON in prose or code fences often enough that the
// parser extracts the outermost object before decoding.
func ParseTechnicalFit(raw string) (*TechnicalFit, error) {
	cleaned := extractJSON(raw)
	if cleaned == "" {
		return nil, &AnalysisParseError{Reason: "no JSON object found in model output", Raw: raw}
	}

	var payload struct {
		Matches              []string `json:"matches"`
		Gaps                 []string `json:"gaps"`
		Adjustment           any      `json:"adjustment"`
		Rationale            string   `json:"rationale"`
		RecommendedPersonnel []string `json:"recommended_personnel"`
	}
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, &AnalysisParseError{Reason: fmt.Sprintf("decode: %v", err), Raw: raw}
	}

	if strings.TrimSpace(payload.Rationale) == "" {
		return nil, &AnalysisParseError{Reason: "missing required field: rationale", Raw: raw}
	}
	adj, ok := coerceInt(payload.Adjustment)
	if !ok {
		return nil, &AnalysisParseError{Reason: "missing or non-numeric field: adjustment", Raw: raw}
	}
	if adj < AdjustmentMin || adj > AdjustmentMax {
		return nil, &AnalysisParseError{
			Reason: fmt.Sprintf("adjustment %d out of range [%d..%d]", adj, AdjustmentMin, AdjustmentMax),
			Raw:    raw,
		}
	}

	fit := &TechnicalFit{
		Matches:              payload.Matches,
		Gaps:                 payload.Gaps,
		Adjustment:           adj,
		Rationale:            strings.TrimSpace(payload.Rationale),
		RecommendedPersonnel: payload.RecommendedPersonnel,
	}
	if fit.Matches == nil {
		fit.Matches = []string{}
	}
	if fit.Gaps == nil {
		fit.Gaps = []string{}
	}
	return fit, nil
}

// extractJSON strips code fences and surrounding prose, returning the
// outermost {...} object.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func coerceInt(v any) (int, bool) {
	switch val := v.(type) {
	case float64:
		return int(val), true
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, false
		}
		return int(f), true
	default:
		return 0, false
	}
}

// chunkText splits s into pieces of at most n bytes, preferring to break at
// newlines and falling back to spaces so words stay intact.
func chunkText(s string, n int) []string {
	if n <= 0 || len(s) <= n {
		return []string{s}
	}
	var chunks []string
	for len(s) > n {
		cut := strings.LastIndex(s[:n], "\n")
		if cut < n/2 {
			cut = strings.LastIndex(s[:n], " ")
		}
		if cut < n/2 {
			cut = n
		}
		chunks = append(chunks, strings.TrimSpace(s[:cut]))
		s = strings.TrimSpace(s[cut:])
	}
	if s != "" {
		chunks = append(chunks, s)
	}
	return chunks
}

const analysisSystemPrompt = `You are a capture manager evaluating bid opportunities for a government contracting firm. Be honest about gaps but also identify genuine strengths. Respond with a single JSON object and nothing else.`

const summarySystemPrompt = `You summarize government solicitation documents for bid/no-bid analysis. Preserve concrete requirements, technologies, certifications, and deliverables. Respond with plain text.`

func buildAnalysisPrompt(sol *solicitation.Solicitation, profile *firm.Profile, sow string) string {
	certs, _ := json.Marshal(sol.RequiredCerts)

	return fmt.Sprintf(`Analyze the fit between this solicitation and our firm's capabilities.

SOLICITATION:
- ID: %s
- Agency: %s
- Title: %s
- NAICS: %s
- Set-aside: %s
- Certifications required: %s

STATEMENT OF WORK:
%s

OUR FIRM:
%s

Return JSON with exactly these fields:
{
  "matches": ["specific capability match with evidence", ...],
  "gaps": ["gap description", ...],
  "adjustment": <integer from %d to %d reflecting technical fit beyond the deterministic checks>,
  "rationale": "3-4 sentence assessment of overall fit",
  "recommended_personnel": ["names of team members well-suited for this work"]
}

Be specific. Reference actual capabilities and requirements.`,
		sol.ID,
		sol.Agency,
		sol.Title,
		sol.NAICS,
		sol.SetAside,
		string(certs),
		sow,
		profile.Condensed(),
		AdjustmentMin,
		AdjustmentMax,
	)
}

func buildSummaryPrompt(sol *solicitation.Solicitation, chunk string, idx, total int) string {
	return fmt.Sprintf(`This is part %d of %d of the statement of work for solicitation %s (%s).
Summarize the requirements in this part in at most 15 bullet points.

%s`, idx, total, sol.ID, sol.Title, chunk)
}
