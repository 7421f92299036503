package activities

import (
	"context"

	"go.uber.org/zap"

	"github.com/kestrellabs/deepresearch/internal/synthesizer"
)

// SynthesizeReport produces the final cited report from the session's
// evidence and citation table, and writes the consolidated artifacts.
// With DigestOnly set it skips the writing model entirely and emits
// the digest-based fallback, which cannot fail.
func (a *Activities) SynthesizeReport(ctx context.Context, in SynthesizeReportInput) (SynthesizeReportResult, error) {
	cfg := a.cfg.Get()
	cites := a.sessions.Registry(in.SessionID).Snapshot()
	syn := synthesizer.New(a.llm, cfg.Models.Writing, a.logger)

	digest := synthesizer.Digest(in.Units, cites)
	if err := a.artifacts.WriteGlobalResults(in.SessionID, digest); err != nil {
		a.logger.Warn("global results artifact write failed",
			zap.String("session_id", in.SessionID),
			zap.Error(err),
		)
	}

	var (
		report   string
		fallback bool
	)
	if in.DigestOnly {
		report = syn.Fallback(in.Topic, in.Units, cites)
		fallback = true
	} else {
		var err error
		report, err = syn.Synthesize(ctx, in.Topic, in.Units, cites)
		if err != nil {
			return SynthesizeReportResult{}, err
		}
	}

	if err := a.artifacts.WriteReport(in.SessionID, report); err != nil {
		a.logger.Warn("report artifact write failed",
			zap.String("session_id", in.SessionID),
			zap.Error(err),
		)
	}
	return SynthesizeReportResult{Report: report, Fallback: fallback}, nil
}
