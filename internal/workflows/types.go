package workflows

import (
	"github.com/kestrellabs/deepresearch/internal/citations"
	"github.com/kestrellabs/deepresearch/internal/evidence"
)

// ResearchInput starts a research session. SubQuestions may be
// supplied to skip planning (the CLI leaves it empty; tests use it to
// pin the plan).
type ResearchInput struct {
	SessionID          string                 `json:"session_id"`
	Topic              string                 `json:"topic"`
	SubQuestions       []evidence.SubQuestion `json:"sub_questions,omitempty"`
	MaxDepth           int                    `json:"max_depth"`
	AllowRepeatQueries bool                   `json:"allow_repeat_queries"`
	InitialSearch      bool                   `json:"initial_search"`
}

// SubQuestionOutcome records how one sub-question loop ended.
type SubQuestionOutcome struct {
	SubQuestion evidence.SubQuestion    `json:"sub_question"`
	Units       []evidence.EvidenceUnit `json:"units"`
	FinalDepth  int                     `json:"final_depth"`
	Searches    int                     `json:"searches"`
	Failed      bool                    `json:"failed,omitempty"` // stopped by provider failure
}

// ResearchResult is the workflow's return value.
type ResearchResult struct {
	SessionID      string                     `json:"session_id"`
	Report         string                     `json:"report"`
	FallbackReport bool                       `json:"fallback_report,omitempty"`
	Citations      []citations.GlobalCitation `json:"citations"`
	Outcomes       []SubQuestionOutcome       `json:"outcomes"`
}
