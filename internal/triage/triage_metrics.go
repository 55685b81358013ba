package triage

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the triage subsystem.
type Metrics struct {
	RunsTotal         *prometheus.CounterVec
	RunDuration       *prometheus.HistogramVec
	ItemsScoredTotal  *prometheus.CounterVec
	ItemFailuresTotal *prometheus.CounterVec
	KnockoutsTotal    *prometheus.CounterVec
	Scores            prometheus.Histogram
	LLMCallsTotal     *prometheus.CounterVec
	LLMTokensIn       prometheus.Counter
	LLMTokensOut      prometheus.Counter
	LLMDuration       prometheus.Histogram
	AnalysisRetries   prometheus.Counter
	SOWReductions     prometheus.Histogram
	SubmitsTotal      *prometheus.CounterVec
}

// NewMetrics registers and returns triage metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quorum_triage_runs_total",
			Help: "Total triage runs by final status.",
		}, []string{"status"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "quorum_triage_run_duration_seconds",
			Help:    "Duration of triage runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s .. ~512s
		}, []string{"status"}),
		ItemsScoredTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quorum_triage_items_scored_total",
			Help: "Solicitations scored, by recommendation.",
		}, []string{"recommendation"}),
		ItemFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quorum_triage_item_failures_total",
			Help: "Solicitations that failed triage, by failure kind.",
		}, []string{"kind"}),
		KnockoutsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quorum_triage_knockouts_total",
			Help: "Triggered knockout rules, by rule.",
		}, []string{"rule"}),
		Scores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "quorum_triage_scores",
			Help:    "Distribution of final triage scores.",
			Buckets: prometheus.LinearBuckets(0, 10, 11), // 0 .. 100
		}),
		LLMCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quorum_llm_calls_total",
			Help: "Total LLM provider calls by model.",
		}, []string{"model"}),
		LLMTokensIn: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quorum_llm_tokens_input_total",
			Help: "Total LLM input tokens consumed.",
		}),
		LLMTokensOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quorum_llm_tokens_output_total",
			Help: "Total LLM output tokens consumed.",
		}),
		LLMDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "quorum_llm_call_duration_seconds",
			Help:    "Duration of individual LLM calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s .. ~64s
		}),
		AnalysisRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quorum_analysis_retries_total",
			Help: "Retried analyzer calls after recoverable failures.",
		}),
		SOWReductions: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "quorum_sow_reduction_chunks",
			Help:    "Chunk counts for map-reduced statements of work.",
			Buckets: prometheus.LinearBuckets(2, 2, 10), // 2 .. 20
		}),
		SubmitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quorum_submits_total",
			Help: "Total batch submissions by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.ItemsScoredTotal,
		m.ItemFailuresTotal,
		m.KnockoutsTotal,
		m.Scores,
		m.LLMCallsTotal,
		m.LLMTokensIn,
		m.LLMTokensOut,
		m.LLMDuration,
		m.AnalysisRetries,
		m.SOWReductions,
		m.SubmitsTotal,
	)

	return m
}

// AnalyzerHooks returns hooks that record analyzer metrics.
func (m *Metrics) AnalyzerHooks() AnalyzerHooks {
	return AnalyzerHooks{
		OnLLMCall: func(model string, usage Usage, seconds float64) {
			m.LLMCallsTotal.WithLabelValues(model).Inc()
			m.LLMTokensIn.Add(float64(usage.InputTokens))
			m.LLMTokensOut.Add(float64(usage.OutputTokens))
			m.LLMDuration.Observe(seconds)
		},
		OnRetry: func() {
			m.AnalysisRetries.Inc()
		},
		OnReduction: func(chunks int) {
			m.SOWReductions.Observe(float64(chunks))
		},
	}
}

// EngineHooks returns hooks that record run metrics.
func (m *Metrics) EngineHooks() EngineHooks {
	return EngineHooks{
		OnItemScored: func(rec Recommendation, score int) {
			m.ItemsScoredTotal.WithLabelValues(string(rec)).Inc()
			m.Scores.Observe(float64(score))
		},
		OnItemFailed: func(kind FailureKind) {
			m.ItemFailuresTotal.WithLabelValues(string(kind)).Inc()
		},
		OnKnockout: func(rule string) {
			m.KnockoutsTotal.WithLabelValues(rule).Inc()
		},
		OnComplete: func(s *Summary) {
			m.RunsTotal.WithLabelValues(string(s.Status)).Inc()
			m.RunDuration.WithLabelValues(string(s.Status)).Observe(s.Duration)
		},
	}
}

// OnSubmit returns a callback for Service submission outcomes.
func (m *Metrics) OnSubmit() func(result string) {
	return func(result string) {
		m.SubmitsTotal.WithLabelValues(result).Inc()
	}
}
