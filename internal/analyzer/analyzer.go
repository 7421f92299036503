package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kestrellabs/deepresearch/internal/evidence"
	"github.com/kestrellabs/deepresearch/internal/providers"
)

// ErrAnalysisUnavailable means the model call errored or returned
// output the analyzer could not parse. The loop that hit it stops at
// its current depth and keeps the evidence collected so far.
var ErrAnalysisUnavailable = errors.New("gap analysis unavailable")

// Verdict is the analyzer's answer: either the evidence suffices, or
// NextQuery names the follow-up search that would close the gap.
type Verdict struct {
	Sufficient  bool   `json:"sufficient"`
	MissingInfo string `json:"missing_info,omitempty"`
	NextQuery   string `json:"next_query,omitempty"`
}

const assessPromptFormat = `The main goal of the research is: %s
## Sub-question
%s
## Current search results
%s
Assess whether the search results above are sufficient to answer the sub-question.
If they are not, state what is missing and generate one new search query, concise and detailed, that would close the gap.
Respond according to the following JSON format:
` + "```json" + `
{
    "sufficient": true or false,
    "missing_info": "statement of the supplementary search direction needed, empty if sufficient",
    "next_query": "new search query, empty if sufficient"
}
` + "```"

// Analyzer decides when a sub-question's evidence is enough. Its
// verdict is authoritative but the orchestrator bounds its influence
// with the maximum search depth.
type Analyzer struct {
	llm    providers.LanguageModel
	model  string
	logger *zap.Logger
}

func New(llm providers.LanguageModel, model string, logger *zap.Logger) *Analyzer {
	return &Analyzer{llm: llm, model: model, logger: logger}
}

// Assess runs one model call over the accumulated evidence.
func (a *Analyzer) Assess(ctx context.Context, topic string, sub evidence.SubQuestion, units []evidence.EvidenceUnit) (Verdict, error) {
	var sb strings.Builder
	if len(units) == 0 {
		sb.WriteString("(no results collected yet)")
	}
	for _, u := range units {
		fmt.Fprintf(&sb, "### Query: %s\n%s\n\n", u.Query, u.Text)
	}

	prompt := fmt.Sprintf(assessPromptFormat, topic, sub.Text, sb.String())
	raw, err := a.llm.Complete(ctx, prompt, a.model)
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrAnalysisUnavailable, err)
	}

	var v Verdict
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &v); err != nil {
		a.logger.Error("failed to parse gap analysis response",
			zap.Error(err),
			zap.String("sub_question", sub.Text),
			zap.String("response", raw),
		)
		return Verdict{}, fmt.Errorf("%w: unparseable verdict: %v", ErrAnalysisUnavailable, err)
	}

	v.NextQuery = strings.TrimSpace(v.NextQuery)
	if !v.Sufficient && v.NextQuery == "" {
		// A gap with no follow-up query is unactionable; treat as
		// sufficient to prevent refinement loops on a stuck analyzer.
		v.Sufficient = true
	}

	a.logger.Info("gap assessment",
		zap.String("sub_question_id", sub.ID),
		zap.Bool("sufficient", v.Sufficient),
		zap.String("next_query", v.NextQuery),
	)
	return v, nil
}

func stripCodeFences(s string) string {
	t := strings.TrimSpace(s)
	if strings.HasPrefix(t, "```json") {
		t = strings.TrimPrefix(t, "```json")
	} else if strings.HasPrefix(t, "```") {
		t = strings.TrimPrefix(t, "```")
	} else if start := strings.Index(t, "```json"); start != -1 {
		t = t[start+len("```json"):]
	} else {
		return t
	}
	if idx := strings.LastIndex(t, "```"); idx != -1 {
		t = t[:idx]
	}
	return strings.TrimSpace(t)
}
