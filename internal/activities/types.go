package activities

import (
	"time"

	"github.com/kestrellabs/deepresearch/internal/analyzer"
	"github.com/kestrellabs/deepresearch/internal/citations"
	"github.com/kestrellabs/deepresearch/internal/evidence"
)

// PreliminarySearchInput runs one orientation search on the topic
// before planning.
type PreliminarySearchInput struct {
	SessionID string `json:"session_id"`
	Topic     string `json:"topic"`
}

type PreliminarySearchResult struct {
	Content string `json:"content"`
}

// PlanResearchInput asks the planning model for sub-questions.
type PlanResearchInput struct {
	SessionID   string `json:"session_id"`
	Topic       string `json:"topic"`
	Preliminary string `json:"preliminary,omitempty"`
}

type PlanResearchResult struct {
	SubQuestions []evidence.SubQuestion `json:"sub_questions"`
}

// ExecuteSearchInput runs one search for a sub-question at a depth.
// Fresh requests a cache bypass; set when the gap analyzer re-issues a
// query it already tried.
type ExecuteSearchInput struct {
	SessionID     string `json:"session_id"`
	SubQuestionID string `json:"sub_question_id"`
	Query         string `json:"query"`
	Depth         int    `json:"depth"`
	Fresh         bool   `json:"fresh,omitempty"`
}

type ExecuteSearchResult struct {
	Unit      evidence.EvidenceUnit `json:"unit"`
	Malformed bool                  `json:"malformed,omitempty"`
	Citations int                   `json:"citations"`
}

// AssessCoverageInput asks the analysis model whether a sub-question's
// evidence suffices.
type AssessCoverageInput struct {
	SessionID   string                  `json:"session_id"`
	Topic       string                  `json:"topic"`
	SubQuestion evidence.SubQuestion    `json:"sub_question"`
	Units       []evidence.EvidenceUnit `json:"units"`
}

type AssessCoverageResult struct {
	Verdict analyzer.Verdict `json:"verdict"`
}

// SynthesizeReportInput produces the final cited report. DigestOnly
// skips the writing model and emits the digest-based fallback; the
// workflow sets it after synthesis has failed its retry.
type SynthesizeReportInput struct {
	SessionID  string                  `json:"session_id"`
	Topic      string                  `json:"topic"`
	Units      []evidence.EvidenceUnit `json:"units"`
	DigestOnly bool                    `json:"digest_only,omitempty"`
}

type SynthesizeReportResult struct {
	Report   string `json:"report"`
	Fallback bool   `json:"fallback,omitempty"`
}

// SnapshotCitationsInput reads the session's citation table.
type SnapshotCitationsInput struct {
	SessionID string `json:"session_id"`
}

type SnapshotCitationsResult struct {
	Citations []citations.GlobalCitation `json:"citations"`
}

// PersistSessionInput stores the session's artifacts. Best effort: the
// workflow tolerates persistence failure.
type PersistSessionInput struct {
	SessionID string                  `json:"session_id"`
	Topic     string                  `json:"topic"`
	StartedAt time.Time               `json:"started_at"`
	Units     []evidence.EvidenceUnit `json:"units"`
	Report    string                  `json:"report"`
	SubCount  int                     `json:"sub_count"`
	Depths    []int                   `json:"depths,omitempty"` // final search depth per sub-question
	Fallback  bool                    `json:"fallback,omitempty"`
}

type PersistSessionResult struct {
	Saved bool `json:"saved"`
}

// ReleaseSessionInput drops the session's citation registry.
type ReleaseSessionInput struct {
	SessionID string `json:"session_id"`
}
