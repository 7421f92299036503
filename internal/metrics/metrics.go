package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session metrics
	SessionsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deepresearch_sessions_started_total",
			Help: "Total number of research sessions started",
		},
	)

	SessionsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deepresearch_sessions_completed_total",
			Help: "Total number of research sessions completed",
		},
		[]string{"status"},
	)

	SessionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "deepresearch_session_duration_seconds",
			Help:    "Research session duration in seconds",
			Buckets: []float64{10, 30, 60, 120, 300, 600, 1800},
		},
	)

	// Search metrics
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deepresearch_searches_total",
			Help: "Total number of search provider calls",
		},
		[]string{"status"},
	)

	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "deepresearch_search_duration_seconds",
			Help:    "Search provider call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	SearchCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deepresearch_search_cache_hits_total",
			Help: "Search results served from the cache",
		},
	)

	SearchCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deepresearch_search_cache_misses_total",
			Help: "Search queries that missed the cache",
		},
	)

	SubQuestionSearchDepth = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "deepresearch_subquestion_search_depth",
			Help:    "Final search depth reached per sub-question",
			Buckets: []float64{0, 1, 2, 3, 4, 5},
		},
	)

	// LLM metrics
	LLMCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deepresearch_llm_calls_total",
			Help: "Total number of language model calls",
		},
		[]string{"model", "status"},
	)

	LLMCallDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "deepresearch_llm_call_duration_seconds",
			Help:    "Language model call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Citation metrics
	CitationsRegistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deepresearch_citations_registered_total",
			Help: "Citations assigned a new global id",
		},
	)

	CitationsDeduplicated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deepresearch_citations_deduplicated_total",
			Help: "Citation registrations that reused an existing global id",
		},
	)

	EvidenceUnits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deepresearch_evidence_units_total",
			Help: "Evidence units produced by the normalizer",
		},
	)

	MalformedResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deepresearch_malformed_responses_total",
			Help: "Search responses with no extractable text",
		},
	)
)
