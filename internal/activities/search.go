package activities

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/kestrellabs/deepresearch/internal/evidence"
	"github.com/kestrellabs/deepresearch/internal/metrics"
	"github.com/kestrellabs/deepresearch/internal/providers"
)

// ExecuteSearch runs one search, normalizes the response, registers
// its citations with the session's registry and returns the evidence
// unit with global markers. Provider failures surface as errors so the
// activity retry policy applies; a response with no extractable text
// is a successful call with an empty contribution.
func (a *Activities) ExecuteSearch(ctx context.Context, in ExecuteSearchInput) (ExecuteSearchResult, error) {
	resp, err := a.doSearch(ctx, in)
	if err != nil {
		a.logger.Warn("search failed",
			zap.String("session_id", in.SessionID),
			zap.String("sub_question_id", in.SubQuestionID),
			zap.String("query", in.Query),
			zap.Int("depth", in.Depth),
			zap.Error(err),
		)
		return ExecuteSearchResult{}, err
	}

	if err := a.artifacts.AppendSearchResult(in.SessionID, in.Query, resp.Content, resp.Citations); err != nil {
		a.logger.Warn("search artifact write failed",
			zap.String("session_id", in.SessionID),
			zap.Error(err),
		)
	}

	unit, err := evidence.Normalize(resp.Content, resp.Citations, in.SubQuestionID, in.Query, in.Depth)
	if err != nil {
		if errors.Is(err, evidence.ErrMalformedResponse) {
			metrics.MalformedResponses.Inc()
			a.logger.Warn("malformed search response",
				zap.String("session_id", in.SessionID),
				zap.String("query", in.Query),
			)
			return ExecuteSearchResult{Malformed: true}, nil
		}
		return ExecuteSearchResult{}, err
	}

	reg := a.sessions.Registry(in.SessionID)
	before := reg.Size()
	mapping := reg.Register(resp.Citations)
	fresh := reg.Size() - before
	if fresh > 0 {
		metrics.CitationsRegistered.Add(float64(fresh))
	}
	if dup := len(resp.Citations) - fresh; dup > 0 {
		metrics.CitationsDeduplicated.Add(float64(dup))
	}

	unit = evidence.Rewrite(unit, mapping)
	metrics.EvidenceUnits.Inc()

	a.logger.Info("search completed",
		zap.String("session_id", in.SessionID),
		zap.String("sub_question_id", in.SubQuestionID),
		zap.Int("depth", in.Depth),
		zap.Int("citations", len(resp.Citations)),
		zap.Ints("global_refs", unit.GlobalRefs),
	)
	return ExecuteSearchResult{Unit: unit, Citations: len(resp.Citations)}, nil
}

func (a *Activities) doSearch(ctx context.Context, in ExecuteSearchInput) (providers.SearchResponse, error) {
	if in.Fresh {
		if fs, ok := a.search.(providers.FreshSearcher); ok {
			return fs.SearchFresh(ctx, in.Query)
		}
	}
	return a.search.Search(ctx, in.Query)
}
