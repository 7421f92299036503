package workflows

import (
	"strings"

	"go.temporal.io/sdk/workflow"

	"github.com/kestrellabs/deepresearch/internal/activities"
	"github.com/kestrellabs/deepresearch/internal/evidence"
)

// runSubQuestion drives one sub-question's search loop: search at the
// current depth, assess coverage, and either refine with the
// analyzer's follow-up query or stop. The loop always terminates: the
// depth bound caps refinement, a failed search (after its retry) ends
// the loop with the evidence collected so far, and an unavailable
// assessment stops at the current depth.
func runSubQuestion(ctx workflow.Context, in ResearchInput, sub evidence.SubQuestion) SubQuestionOutcome {
	logger := workflow.GetLogger(ctx)

	outcome := SubQuestionOutcome{SubQuestion: sub, FinalDepth: -1}
	issued := make(map[string]bool)
	query := sub.SeedQuery
	depth := 0
	fresh := false

	for {
		issued[queryKey(query)] = true

		var res activities.ExecuteSearchResult
		err := workflow.ExecuteActivity(ctx, "ExecuteSearch", activities.ExecuteSearchInput{
			SessionID:     in.SessionID,
			SubQuestionID: sub.ID,
			Query:         query,
			Depth:         depth,
			Fresh:         fresh,
		}).Get(ctx, &res)
		outcome.Searches++
		outcome.FinalDepth = depth
		if err != nil {
			logger.Warn("sub-question search failed, stopping loop",
				"sub_question_id", sub.ID,
				"depth", depth,
				"error", err,
			)
			outcome.Failed = true
			return outcome
		}
		if !res.Malformed {
			outcome.Units = append(outcome.Units, res.Unit)
		}

		// Refining past the depth bound is not allowed, so there is
		// nothing left to assess.
		if depth >= in.MaxDepth {
			logger.Info("sub-question reached depth bound",
				"sub_question_id", sub.ID,
				"depth", depth,
			)
			return outcome
		}

		var assessed activities.AssessCoverageResult
		err = workflow.ExecuteActivity(ctx, "AssessCoverage", activities.AssessCoverageInput{
			SessionID:   in.SessionID,
			Topic:       in.Topic,
			SubQuestion: sub,
			Units:       outcome.Units,
		}).Get(ctx, &assessed)
		if err != nil {
			logger.Warn("coverage assessment unavailable, keeping current evidence",
				"sub_question_id", sub.ID,
				"depth", depth,
				"error", err,
			)
			return outcome
		}

		verdict := assessed.Verdict
		if verdict.Sufficient || verdict.NextQuery == "" {
			return outcome
		}

		repeat := issued[queryKey(verdict.NextQuery)]
		if repeat && !in.AllowRepeatQueries {
			logger.Info("analyzer repeated an issued query, stopping loop",
				"sub_question_id", sub.ID,
				"query", verdict.NextQuery,
			)
			return outcome
		}

		// A deliberate repeat bypasses the search cache; a cached
		// answer is what the analyzer already judged insufficient.
		fresh = repeat
		query = verdict.NextQuery
		depth++
	}
}

// queryKey normalizes a query for repeat detection: case and
// whitespace variations are the same search.
func queryKey(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// unitsOf flattens outcomes into one evidence list in plan order.
func unitsOf(outcomes []SubQuestionOutcome) []evidence.EvidenceUnit {
	var units []evidence.EvidenceUnit
	for _, o := range outcomes {
		units = append(units, o.Units...)
	}
	return units
}

func finalDepths(outcomes []SubQuestionOutcome) []int {
	depths := make([]int, len(outcomes))
	for i, o := range outcomes {
		depths[i] = o.FinalDepth
	}
	return depths
}
