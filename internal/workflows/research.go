package workflows

import (
	"errors"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/kestrellabs/deepresearch/internal/activities"
)

// TaskQueue is the worker queue for research sessions. Session state
// (the citation registry) lives in worker memory, so all activities of
// one session must land on the same worker process.
const TaskQueue = "deepresearch"

// ResearchWorkflow runs one research session end to end: plan the
// topic into sub-questions, drive an iterative search loop per
// sub-question concurrently, consolidate citations under global ids
// and synthesize the cited report.
//
// Degradation is asymmetric: a failed plan fails the session, a failed
// search or assessment only ends its own sub-question loop, and a
// failed synthesis falls back to a digest report. The workflow always
// returns a report once planning has succeeded.
func ResearchWorkflow(ctx workflow.Context, in ResearchInput) (ResearchResult, error) {
	logger := workflow.GetLogger(ctx)

	if in.Topic == "" {
		return ResearchResult{}, errors.New("research topic is required")
	}
	if in.SessionID == "" {
		in.SessionID = workflow.GetInfo(ctx).WorkflowExecution.ID
	}
	if in.MaxDepth < 0 {
		return ResearchResult{}, errors.New("max depth must not be negative")
	}
	startedAt := workflow.Now(ctx)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    2, // one retry, then degrade
		},
	})

	logger.Info("research session started",
		"session_id", in.SessionID,
		"topic", in.Topic,
		"max_depth", in.MaxDepth,
	)

	// Optional orientation search feeding the planner.
	var preliminary string
	if in.InitialSearch {
		var pre activities.PreliminarySearchResult
		err := workflow.ExecuteActivity(ctx, "PreliminarySearch", activities.PreliminarySearchInput{
			SessionID: in.SessionID,
			Topic:     in.Topic,
		}).Get(ctx, &pre)
		if err != nil {
			logger.Warn("preliminary search failed, planning without it", "error", err)
		} else {
			preliminary = pre.Content
		}
	}

	subs := in.SubQuestions
	if len(subs) == 0 {
		var plan activities.PlanResearchResult
		err := workflow.ExecuteActivity(ctx, "PlanResearch", activities.PlanResearchInput{
			SessionID:   in.SessionID,
			Topic:       in.Topic,
			Preliminary: preliminary,
		}).Get(ctx, &plan)
		if err != nil {
			logger.Error("planning failed, aborting session", "error", err)
			return ResearchResult{}, err
		}
		subs = plan.SubQuestions
	}

	// One coroutine per sub-question. Each writes only its own slot.
	outcomes := make([]SubQuestionOutcome, len(subs))
	wg := workflow.NewWaitGroup(ctx)
	for i := range subs {
		i := i
		sub := subs[i]
		wg.Add(1)
		workflow.Go(ctx, func(gctx workflow.Context) {
			defer wg.Done()
			outcomes[i] = runSubQuestion(gctx, in, sub)
		})
	}
	wg.Wait(ctx)

	// Aggregate evidence in plan order; global ids inside the units are
	// already session-stable.
	allUnits := unitsOf(outcomes)

	var snap activities.SnapshotCitationsResult
	if err := workflow.ExecuteActivity(ctx, "SnapshotCitations", activities.SnapshotCitationsInput{
		SessionID: in.SessionID,
	}).Get(ctx, &snap); err != nil {
		logger.Error("citation snapshot failed", "error", err)
		return ResearchResult{}, err
	}

	var synth activities.SynthesizeReportResult
	err := workflow.ExecuteActivity(ctx, "SynthesizeReport", activities.SynthesizeReportInput{
		SessionID: in.SessionID,
		Topic:     in.Topic,
		Units:     allUnits,
	}).Get(ctx, &synth)
	if err != nil {
		logger.Warn("synthesis failed, producing digest report", "error", err)
		if err := workflow.ExecuteActivity(ctx, "SynthesizeReport", activities.SynthesizeReportInput{
			SessionID:  in.SessionID,
			Topic:      in.Topic,
			Units:      allUnits,
			DigestOnly: true,
		}).Get(ctx, &synth); err != nil {
			return ResearchResult{}, err
		}
	}

	var persisted activities.PersistSessionResult
	if err := workflow.ExecuteActivity(ctx, "PersistSession", activities.PersistSessionInput{
		SessionID: in.SessionID,
		Topic:     in.Topic,
		StartedAt: startedAt,
		Units:     allUnits,
		Report:    synth.Report,
		SubCount:  len(subs),
		Depths:    finalDepths(outcomes),
		Fallback:  synth.Fallback,
	}).Get(ctx, &persisted); err != nil {
		// Persistence is best effort; artifacts on disk already hold
		// the session output.
		logger.Warn("session persistence failed", "error", err)
	}

	if err := workflow.ExecuteActivity(ctx, "ReleaseSession", activities.ReleaseSessionInput{
		SessionID: in.SessionID,
	}).Get(ctx, nil); err != nil {
		logger.Warn("registry release failed", "error", err)
	}

	logger.Info("research session finished",
		"session_id", in.SessionID,
		"sub_questions", len(subs),
		"evidence_units", len(allUnits),
		"citations", len(snap.Citations),
		"fallback_report", synth.Fallback,
	)

	return ResearchResult{
		SessionID:      in.SessionID,
		Report:         synth.Report,
		FallbackReport: synth.Fallback,
		Citations:      snap.Citations,
		Outcomes:       outcomes,
	}, nil
}
