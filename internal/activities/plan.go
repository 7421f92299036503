package activities

import (
	"context"

	"go.uber.org/zap"

	"github.com/kestrellabs/deepresearch/internal/metrics"
	"github.com/kestrellabs/deepresearch/internal/planner"
)

// PreliminarySearch runs one exploratory search on the raw topic so
// the planner has current context to decompose against. Its citations
// are not registered; only planned sub-question searches contribute
// evidence.
func (a *Activities) PreliminarySearch(ctx context.Context, in PreliminarySearchInput) (PreliminarySearchResult, error) {
	resp, err := a.search.Search(ctx, in.Topic)
	if err != nil {
		return PreliminarySearchResult{}, err
	}
	if err := a.artifacts.AppendSearchResult(in.SessionID, in.Topic, resp.Content, resp.Citations); err != nil {
		a.logger.Warn("preliminary search artifact write failed",
			zap.String("session_id", in.SessionID),
			zap.Error(err),
		)
	}
	return PreliminarySearchResult{Content: resp.Content}, nil
}

// PlanResearch decomposes the topic into sub-questions with seed
// queries. A failure here is fatal to the session; the workflow does
// not degrade past a missing plan.
func (a *Activities) PlanResearch(ctx context.Context, in PlanResearchInput) (PlanResearchResult, error) {
	metrics.SessionsStarted.Inc()
	cfg := a.cfg.Get()
	p := planner.New(a.llm, cfg.Models.Planning, a.logger)
	subs, err := p.Plan(ctx, in.Topic, in.Preliminary)
	if err != nil {
		return PlanResearchResult{}, err
	}
	return PlanResearchResult{SubQuestions: subs}, nil
}
