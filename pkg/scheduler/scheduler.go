// Package scheduler executes agent DAGs: it dispatches every ready node
// concurrently, retries transient failures with backoff, contains
// non-critical failures by degrading downstream nodes, and short-circuits
// the run when a critical node fails.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/revintel/insight-agent/pkg/domain"
	"github.com/revintel/insight-agent/pkg/graph"
	"github.com/revintel/insight-agent/pkg/observability"
)

// Options tunes scheduler behavior
type Options struct {
	// MaxConcurrency bounds nodes executing at once; zero means 5.
	MaxConcurrency int
	// NodeTimeout is the per-attempt deadline; zero means 30s.
	NodeTimeout time.Duration
	// MaxRetries bounds retries after the first attempt; transient
	// failures only.
	MaxRetries int
	// RetryBase is the initial backoff interval; zero means 100ms.
	RetryBase time.Duration
	// RetryMax caps the backoff interval; zero means 2s.
	RetryMax time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxConcurrency <= 0 {
		o.MaxConcurrency = 5
	}
	if o.NodeTimeout <= 0 {
		o.NodeTimeout = 30 * time.Second
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryBase <= 0 {
		o.RetryBase = 100 * time.Millisecond
	}
	if o.RetryMax <= 0 {
		o.RetryMax = 2 * time.Second
	}
	return o
}

// Scheduler runs DAGs against an executor registry.
type Scheduler struct {
	registry  domain.ExecutorRegistry
	opts      Options
	logger    observability.Logger
	telemetry *observability.Telemetry
	metrics   *observability.Metrics
}

// New creates a scheduler
func New(registry domain.ExecutorRegistry, opts Options, logger observability.Logger, telemetry *observability.Telemetry, metrics *observability.Metrics) *Scheduler {
	if logger == nil {
		logger = observability.NewStructuredLogger("scheduler")
	}
	return &Scheduler{
		registry:  registry,
		opts:      opts.withDefaults(),
		logger:    logger,
		telemetry: telemetry,
		metrics:   metrics,
	}
}

// nodeDone carries one completion event back to the dispatch loop.
type nodeDone struct {
	id string
}

// Execute runs the DAG to completion or until ctx expires. A node is
// dispatched the instant its last dependency reaches a terminal state.
// The returned result always covers every node; Execute errors only on
// an invalid graph.
func (s *Scheduler) Execute(ctx context.Context, dag *domain.DAG, query domain.Query, plan domain.Plan, state domain.ContextState) (*domain.ExecutionResult, error) {
	if err := graph.ValidateAcyclic(dag); err != nil {
		return nil, fmt.Errorf("refusing to execute invalid graph: %w", err)
	}

	result := &domain.ExecutionResult{
		RunID:     uuid.NewString(),
		Nodes:     make(map[string]domain.NodeOutcome, len(dag.Nodes)),
		StartedAt: time.Now(),
	}

	var mu sync.Mutex
	outcomes := make(map[string]*domain.NodeOutcome, len(dag.Nodes))
	pendingDeps := make(map[string]int, len(dag.Nodes))
	dependents := make(map[string][]string, len(dag.Nodes))

	for id, node := range dag.Nodes {
		outcomes[id] = &domain.NodeOutcome{State: domain.TaskPending}
		pendingDeps[id] = len(node.DependsOn)
		for _, dep := range node.DependsOn {
			dependents[dep] = append(dependents[dep], id)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.MaxConcurrency)
	doneCh := make(chan nodeDone, len(dag.Nodes))

	dispatch := func(id string) {
		node := dag.Nodes[id]

		mu.Lock()
		outcomes[id].State = domain.TaskRunning
		outcomes[id].StartedAt = time.Now()
		input := s.buildInput(node, outcomes, query, plan, state)
		mu.Unlock()

		if s.metrics != nil {
			s.metrics.RecordNodeDispatched(gctx, string(node.Category))
		}

		g.Go(func() error {
			outcome := s.runNode(gctx, node, input)

			mu.Lock()
			*outcomes[id] = *outcome
			mu.Unlock()

			if s.metrics != nil {
				s.metrics.RecordNodeComplete(gctx, string(node.Category),
					outcome.FinishedAt.Sub(outcome.StartedAt), string(outcome.State))
			}

			doneCh <- nodeDone{id: id}

			if outcome.State == domain.TaskFailed && node.Critical {
				return fmt.Errorf("%w: critical node %s: %s", domain.ErrRunFailed, id, outcome.Err)
			}
			return nil
		})
	}

	// Seed the frontier with dependency-free nodes, in stable order.
	initial := make([]string, 0, len(dag.Nodes))
	for id, deps := range pendingDeps {
		if deps == 0 {
			initial = append(initial, id)
		}
	}
	sort.Strings(initial)

	dispatched := make(map[string]bool, len(dag.Nodes))
	for _, id := range initial {
		dispatched[id] = true
		dispatch(id)
	}

	remaining := len(dag.Nodes)
	aborted := false

	// abort terminates every node never dispatched; running nodes are
	// cancelled through gctx and drained normally.
	abort := func(reason string) {
		aborted = true
		mu.Lock()
		for id, outcome := range outcomes {
			if !dispatched[id] {
				dispatched[id] = true
				outcome.State = domain.TaskFailed
				outcome.Err = reason
				outcome.FinishedAt = time.Now()
				remaining--
			}
		}
		mu.Unlock()
	}

	for remaining > 0 {
		if aborted {
			// Only drain already-running nodes.
			<-doneCh
			remaining--
			continue
		}

		select {
		case done := <-doneCh:
			remaining--

			mu.Lock()
			failed := outcomes[done.id].State == domain.TaskFailed
			mu.Unlock()
			if failed && dag.Nodes[done.id].Critical {
				abort(fmt.Sprintf("run aborted: critical node %s failed", done.id))
				continue
			}

			for _, dependent := range dependents[done.id] {
				pendingDeps[dependent]--
				if pendingDeps[dependent] == 0 && !dispatched[dependent] {
					dispatched[dependent] = true
					dispatch(dependent)
				}
			}
		case <-gctx.Done():
			abort(gctx.Err().Error())
		}
	}

	runErr := g.Wait()

	mu.Lock()
	for id, outcome := range outcomes {
		result.Nodes[id] = *outcome
		if outcome.State == domain.TaskFailed && outcome.Err != "" {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", id, outcome.Err))
		}
	}
	mu.Unlock()
	sort.Strings(result.Errors)

	result.CompletedAt = time.Now()
	result.Status = runStatus(dag, result.Nodes, runErr)

	s.logger.Info(ctx, "dag run finished", map[string]interface{}{
		"run_id":   result.RunID,
		"status":   string(result.Status),
		"nodes":    len(result.Nodes),
		"failures": len(result.Errors),
	})

	return result, nil
}

// buildInput assembles the upstream view for a node. Callers hold mu.
func (s *Scheduler) buildInput(node *domain.AgentTask, outcomes map[string]*domain.NodeOutcome, query domain.Query, plan domain.Plan, state domain.ContextState) domain.NodeInput {
	input := domain.NodeInput{
		Query:    query,
		Plan:     plan,
		Context:  state,
		Upstream: make(map[string]*domain.TaskResult, len(node.DependsOn)),
	}

	deps := append([]string(nil), node.DependsOn...)
	sort.Strings(deps)
	for _, dep := range deps {
		outcome := outcomes[dep]
		switch outcome.State {
		case domain.TaskSucceeded, domain.TaskDegraded:
			if outcome.Result != nil {
				input.Upstream[dep] = outcome.Result
			}
			if outcome.State == domain.TaskDegraded {
				input.MissingUpstream = append(input.MissingUpstream, dep)
			}
		default:
			input.MissingUpstream = append(input.MissingUpstream, dep)
		}
	}

	return input
}

// runNode executes one node with per-attempt timeout and bounded retry.
// Only transient failures retry; everything else is permanent.
func (s *Scheduler) runNode(ctx context.Context, node *domain.AgentTask, input domain.NodeInput) *domain.NodeOutcome {
	outcome := &domain.NodeOutcome{
		State:           domain.TaskRunning,
		MissingUpstream: input.MissingUpstream,
		StartedAt:       time.Now(),
	}

	finish := func(state domain.TaskState, result *domain.TaskResult, err error) *domain.NodeOutcome {
		outcome.State = state
		outcome.Result = result
		if err != nil {
			outcome.Err = err.Error()
		}
		outcome.FinishedAt = time.Now()
		return outcome
	}

	exec, err := s.registry.Get(node.Category)
	if err != nil {
		return finish(domain.TaskFailed, nil, fmt.Errorf("%w: %v", domain.ErrNodeFailed, err))
	}

	var result *domain.TaskResult
	operation := func() error {
		outcome.Attempts++

		attemptCtx, cancel := context.WithTimeout(ctx, s.opts.NodeTimeout)
		defer cancel()

		run := func(ctx context.Context) error {
			r, execErr := exec.Execute(ctx, node, input)
			if execErr != nil {
				return execErr
			}
			result = r
			return nil
		}

		var attemptErr error
		if s.telemetry != nil {
			attemptErr = s.telemetry.InstrumentNode(attemptCtx, node.ID, string(node.Category), run)
		} else {
			attemptErr = run(attemptCtx)
		}

		if attemptErr == nil {
			return nil
		}
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && !errors.Is(attemptErr, domain.ErrTimeout) {
			attemptErr = fmt.Errorf("%w: %v", domain.ErrTimeout, attemptErr)
		}
		if domain.IsTransient(attemptErr) {
			s.logger.Warn(ctx, "node attempt failed, will retry if budget remains", map[string]interface{}{
				"node":    node.ID,
				"attempt": outcome.Attempts,
				"error":   attemptErr.Error(),
			})
			return attemptErr
		}
		return backoff.Permanent(attemptErr)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.opts.RetryBase
	policy.MaxInterval = s.opts.RetryMax
	policy.MaxElapsedTime = 0

	err = backoff.Retry(operation, backoff.WithContext(
		backoff.WithMaxRetries(policy, uint64(s.opts.MaxRetries)), ctx))
	if err != nil {
		return finish(domain.TaskFailed, nil, fmt.Errorf("%w: %v", domain.ErrNodeFailed, err))
	}

	if len(input.MissingUpstream) > 0 {
		return finish(domain.TaskDegraded, result, nil)
	}
	return finish(domain.TaskSucceeded, result, nil)
}

// runStatus derives the aggregate run status from node outcomes.
func runStatus(dag *domain.DAG, nodes map[string]domain.NodeOutcome, runErr error) domain.RunStatus {
	if runErr != nil {
		return domain.RunFailed
	}

	allOK := true
	for id, outcome := range nodes {
		switch outcome.State {
		case domain.TaskFailed:
			if dag.Nodes[id].Critical {
				return domain.RunFailed
			}
			allOK = false
		case domain.TaskDegraded:
			allOK = false
		}
	}

	if allOK {
		return domain.RunSuccess
	}
	return domain.RunPartial
}
