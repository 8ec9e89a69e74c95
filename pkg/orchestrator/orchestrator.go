// Package orchestrator ties the pipeline together: session lookup,
// intent classification, graph construction, scheduled execution,
// fusion, and post-response quality scoring.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/revintel/insight-agent/pkg/domain"
	"github.com/revintel/insight-agent/pkg/fusion"
	"github.com/revintel/insight-agent/pkg/graph"
	"github.com/revintel/insight-agent/pkg/observability"
	"github.com/revintel/insight-agent/pkg/quality"
	"github.com/revintel/insight-agent/pkg/scheduler"
)

// Options tunes orchestrator behavior
type Options struct {
	// RunTimeout bounds one full DAG run; zero means 2m.
	RunTimeout time.Duration
	// AppendTimeout bounds the post-response session write; zero means 5s.
	AppendTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.RunTimeout <= 0 {
		o.RunTimeout = 2 * time.Minute
	}
	if o.AppendTimeout <= 0 {
		o.AppendTimeout = 5 * time.Second
	}
	return o
}

// Orchestrator handles analytic queries end to end.
type Orchestrator struct {
	classifier domain.Classifier
	builder    *graph.Builder
	scheduler  *scheduler.Scheduler
	fuser      *fusion.Fuser
	evaluator  *quality.Evaluator
	sessions   domain.ContextStore
	opts       Options
	logger     observability.Logger
	telemetry  *observability.Telemetry
	metrics    *observability.Metrics

	background sync.WaitGroup
}

// New wires an orchestrator from its pipeline stages
func New(
	classifier domain.Classifier,
	builder *graph.Builder,
	sched *scheduler.Scheduler,
	fuser *fusion.Fuser,
	evaluator *quality.Evaluator,
	sessions domain.ContextStore,
	opts Options,
	logger observability.Logger,
	telemetry *observability.Telemetry,
	metrics *observability.Metrics,
) *Orchestrator {
	if logger == nil {
		logger = observability.NewStructuredLogger("orchestrator")
	}
	return &Orchestrator{
		classifier: classifier,
		builder:    builder,
		scheduler:  sched,
		fuser:      fuser,
		evaluator:  evaluator,
		sessions:   sessions,
		opts:       opts.withDefaults(),
		logger:     logger,
		telemetry:  telemetry,
		metrics:    metrics,
	}
}

// Handle answers one query. It returns an error only for unusable input;
// every downstream failure degrades into the answer's caveats instead.
func (o *Orchestrator) Handle(ctx context.Context, query domain.Query) (domain.Answer, error) {
	if strings.TrimSpace(query.Text) == "" {
		return domain.Answer{}, fmt.Errorf("%w: empty query text", domain.ErrQueryInvalid)
	}
	if query.ID == "" {
		query.ID = uuid.NewString()
	}
	if query.Timestamp.IsZero() {
		query.Timestamp = time.Now()
	}

	if o.telemetry != nil {
		var span trace.Span
		ctx, span = o.telemetry.StartQueryRequest(ctx, query.ID, query.UserID, query.Synthetic)
		defer span.End()
	}

	started := time.Now()

	// Session context is best effort; a dead store degrades to an
	// empty ephemeral state.
	state, err := o.sessions.Get(ctx, query.UserID)
	if err != nil {
		if !errors.Is(err, domain.ErrStoreUnavailable) {
			return domain.Answer{}, err
		}
		o.logger.Warn(ctx, "session store unavailable, proceeding without history", map[string]interface{}{
			"user_id": query.UserID,
		})
	}

	plan := o.classifier.Classify(ctx, query, &state)
	if o.metrics != nil {
		o.metrics.RecordQuery(ctx, string(plan.Intent))
	}

	answer := o.execute(ctx, query, plan, state)

	if o.metrics != nil {
		status := "success"
		if answer.Degraded {
			status = "degraded"
		}
		o.metrics.RecordQueryComplete(ctx, time.Since(started), status)
	}

	o.background.Add(1)
	go func() {
		defer o.background.Done()
		o.afterResponse(query, plan, answer, state)
	}()

	return answer, nil
}

// Drain blocks until detached post-response work finishes. Call during
// shutdown so quality scores and session writes are not lost.
func (o *Orchestrator) Drain() {
	o.background.Wait()
}

// execute runs the plan's DAG and fuses the outcome. Any failure here
// still yields an answer.
func (o *Orchestrator) execute(ctx context.Context, query domain.Query, plan domain.Plan, state domain.ContextState) domain.Answer {
	dag, err := o.builder.Build(ctx, plan)
	if err != nil {
		o.logger.Error(ctx, "graph construction failed", err, map[string]interface{}{
			"query_id": query.ID,
			"intent":   string(plan.Intent),
		})
		return o.fuser.Fuse(ctx, query, plan, state, &domain.ExecutionResult{
			RunID:       uuid.NewString(),
			Status:      domain.RunFailed,
			Nodes:       map[string]domain.NodeOutcome{},
			StartedAt:   time.Now(),
			CompletedAt: time.Now(),
		})
	}

	runCtx, cancel := context.WithTimeout(ctx, o.opts.RunTimeout)
	defer cancel()

	result, err := o.scheduler.Execute(runCtx, dag, query, plan, state)
	if err != nil {
		o.logger.Error(ctx, "dag execution rejected", err, map[string]interface{}{
			"query_id": query.ID,
		})
		return o.fuser.Fuse(ctx, query, plan, state, &domain.ExecutionResult{
			RunID:       uuid.NewString(),
			Status:      domain.RunFailed,
			Nodes:       map[string]domain.NodeOutcome{},
			StartedAt:   time.Now(),
			CompletedAt: time.Now(),
		})
	}

	return o.fuser.Fuse(ctx, query, plan, state, result)
}

// afterResponse scores the answer and records the interaction. It runs
// detached from the request so neither step delays the caller.
func (o *Orchestrator) afterResponse(query domain.Query, plan domain.Plan, answer domain.Answer, state domain.ContextState) {
	ctx, cancel := context.WithTimeout(context.Background(), o.opts.AppendTimeout)
	defer cancel()

	metrics := o.evaluator.Evaluate(ctx, query, plan, answer, state)

	status := domain.RunSuccess
	if answer.Degraded {
		status = domain.RunPartial
	}
	if runStatus, ok := answer.Metadata["run_status"].(string); ok {
		status = domain.RunStatus(runStatus)
	}

	interaction := domain.Interaction{
		Query:         query,
		Plan:          plan,
		Status:        status,
		AnswerSummary: summarize(answer.Text),
		Quality:       metrics,
		Timestamp:     time.Now(),
	}

	if err := o.sessions.Append(ctx, query.UserID, interaction); err != nil {
		o.logger.Warn(ctx, "failed to record interaction", map[string]interface{}{
			"user_id": query.UserID,
			"error":   err.Error(),
		})
	}
}

// summarize truncates answer text for session history.
func summarize(text string) string {
	const maxLen = 200
	text = strings.TrimSpace(text)
	if len(text) <= maxLen {
		return text
	}
	return text[:maxLen] + "..."
}
