package dataexec

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/revintel/insight-agent/pkg/domain"
	"github.com/revintel/insight-agent/pkg/observability"
)

// SourcedExecutor is a data executor bound to one source.
type SourcedExecutor interface {
	domain.DataExecutor
	Source() domain.DataSource
}

// Registry resolves data executors by source
type Registry struct {
	mu        sync.RWMutex
	executors map[domain.DataSource]SourcedExecutor
}

// NewRegistry creates an empty executor registry
func NewRegistry() *Registry {
	return &Registry{
		executors: make(map[domain.DataSource]SourcedExecutor),
	}
}

// Register registers an executor for its source
func (r *Registry) Register(exec SourcedExecutor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if exec == nil {
		return fmt.Errorf("executor cannot be nil")
	}

	source := exec.Source()
	if source == "" {
		return fmt.Errorf("executor source cannot be empty")
	}

	if _, exists := r.executors[source]; exists {
		return fmt.Errorf("executor for %s already registered", source)
	}

	r.executors[source] = exec
	return nil
}

// Get retrieves an executor by source
func (r *Registry) Get(source domain.DataSource) (SourcedExecutor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exec, exists := r.executors[source]
	if !exists {
		return nil, fmt.Errorf("no executor for source %s", source)
	}

	return exec, nil
}

// Sources returns the registered sources
func (r *Registry) Sources() []domain.DataSource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := make([]domain.DataSource, 0, len(r.executors))
	for source := range r.executors {
		sources = append(sources, source)
	}

	return sources
}

// Run resolves the executor for req.Source and runs the request
func (r *Registry) Run(ctx context.Context, req domain.DataRequest) (*domain.DataResult, error) {
	exec, err := r.Get(req.Source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrQueryInvalid, err)
	}

	return exec.Run(ctx, req)
}

// InstrumentedExecutor wraps a sourced executor with observability
type InstrumentedExecutor struct {
	exec      SourcedExecutor
	telemetry *observability.Telemetry
	metrics   *observability.Metrics
}

// NewInstrumentedExecutor wraps exec with tracing and metrics
func NewInstrumentedExecutor(exec SourcedExecutor, telemetry *observability.Telemetry, metrics *observability.Metrics) *InstrumentedExecutor {
	return &InstrumentedExecutor{
		exec:      exec,
		telemetry: telemetry,
		metrics:   metrics,
	}
}

// Source returns the wrapped executor's source
func (e *InstrumentedExecutor) Source() domain.DataSource {
	return e.exec.Source()
}

// Run executes the request inside a span, recording fetch metrics.
func (e *InstrumentedExecutor) Run(ctx context.Context, req domain.DataRequest) (*domain.DataResult, error) {
	var result *domain.DataResult
	startTime := time.Now()

	err := e.telemetry.InstrumentDataFetch(ctx, string(e.exec.Source()), func(ctx context.Context) error {
		var runErr error
		result, runErr = e.exec.Run(ctx, req)
		return runErr
	})

	if e.metrics != nil {
		e.metrics.RecordDataFetch(ctx, string(e.exec.Source()), time.Since(startTime), err == nil)
	}

	return result, err
}
