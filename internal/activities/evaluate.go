package activities

import (
	"context"

	"github.com/kestrellabs/deepresearch/internal/analyzer"
)

// AssessCoverage runs the gap analysis for one sub-question. Errors
// propagate so the retry policy applies; if the retry also fails the
// workflow stops the sub-question at its current depth.
func (a *Activities) AssessCoverage(ctx context.Context, in AssessCoverageInput) (AssessCoverageResult, error) {
	cfg := a.cfg.Get()
	an := analyzer.New(a.llm, cfg.Models.Analysis, a.logger)
	verdict, err := an.Assess(ctx, in.Topic, in.SubQuestion, in.Units)
	if err != nil {
		return AssessCoverageResult{}, err
	}
	return AssessCoverageResult{Verdict: verdict}, nil
}
