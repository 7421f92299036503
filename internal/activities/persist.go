package activities

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kestrellabs/deepresearch/internal/metrics"
)

// SnapshotCitations returns the session's citation table in ascending
// global-id order.
func (a *Activities) SnapshotCitations(ctx context.Context, in SnapshotCitationsInput) (SnapshotCitationsResult, error) {
	return SnapshotCitationsResult{
		Citations: a.sessions.Registry(in.SessionID).Snapshot(),
	}, nil
}

// PersistSession writes the session's evidence, citations and report
// to the store. A worker without a configured store reports Saved
// false without error.
func (a *Activities) PersistSession(ctx context.Context, in PersistSessionInput) (PersistSessionResult, error) {
	status := "ok"
	if in.Fallback {
		status = "fallback"
	}
	metrics.SessionsCompleted.WithLabelValues(status).Inc()
	if !in.StartedAt.IsZero() {
		metrics.SessionDuration.Observe(time.Since(in.StartedAt).Seconds())
	}
	for _, d := range in.Depths {
		metrics.SubQuestionSearchDepth.Observe(float64(d))
	}

	if a.store == nil {
		return PersistSessionResult{}, nil
	}

	if err := a.store.CreateSession(ctx, in.SessionID, in.Topic, in.SubCount, in.StartedAt); err != nil {
		return PersistSessionResult{}, err
	}
	if err := a.store.SaveEvidence(ctx, in.SessionID, in.Units); err != nil {
		return PersistSessionResult{}, err
	}
	cites := a.sessions.Registry(in.SessionID).Snapshot()
	if err := a.store.SaveCitations(ctx, in.SessionID, cites); err != nil {
		return PersistSessionResult{}, err
	}
	if err := a.store.SaveReport(ctx, in.SessionID, in.Report, time.Now().UTC()); err != nil {
		return PersistSessionResult{}, err
	}

	a.logger.Info("session persisted",
		zap.String("session_id", in.SessionID),
		zap.Int("evidence_units", len(in.Units)),
		zap.Int("citations", len(cites)),
	)
	return PersistSessionResult{Saved: true}, nil
}

// ReleaseSession drops the session's citation registry from memory.
// Runs last; global ids are frozen in the persisted artifacts by then.
func (a *Activities) ReleaseSession(ctx context.Context, in ReleaseSessionInput) error {
	a.sessions.Release(in.SessionID)
	return nil
}
