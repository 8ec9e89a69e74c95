package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics
type Metrics struct {
	meter metric.Meter

	// Counters
	queriesTotal         metric.Int64Counter
	plansClassifiedTotal metric.Int64Counter
	nodesDispatchedTotal metric.Int64Counter
	nodesCompletedTotal  metric.Int64Counter
	nodesFailedTotal     metric.Int64Counter
	nodesDegradedTotal   metric.Int64Counter
	llmRequestsTotal     metric.Int64Counter
	llmTokensUsedTotal   metric.Int64Counter
	dataFetchesTotal     metric.Int64Counter
	digestsEmittedTotal  metric.Int64Counter

	// Histograms
	queryDuration     metric.Float64Histogram
	nodeDuration      metric.Float64Histogram
	llmDuration       metric.Float64Histogram
	dataFetchDuration metric.Float64Histogram
	qualityScore      metric.Float64Histogram

	// Gauges (using async instruments)
	activeRuns  metric.Int64ObservableGauge
	activeNodes metric.Int64ObservableGauge

	activeRunCount  int64
	activeNodeCount int64
}

// NewMetrics creates and initializes all metrics
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{
		meter: meter,
	}

	var err error

	m.queriesTotal, err = meter.Int64Counter(
		"queries_total",
		metric.WithDescription("Total number of analytic queries handled"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.plansClassifiedTotal, err = meter.Int64Counter(
		"plans_classified_total",
		metric.WithDescription("Total number of plans produced, by classifier tier"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.nodesDispatchedTotal, err = meter.Int64Counter(
		"dag_nodes_dispatched_total",
		metric.WithDescription("Total number of DAG nodes dispatched"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.nodesCompletedTotal, err = meter.Int64Counter(
		"dag_nodes_completed_total",
		metric.WithDescription("Total number of DAG nodes that succeeded"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.nodesFailedTotal, err = meter.Int64Counter(
		"dag_nodes_failed_total",
		metric.WithDescription("Total number of DAG nodes that failed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.nodesDegradedTotal, err = meter.Int64Counter(
		"dag_nodes_degraded_total",
		metric.WithDescription("Total number of DAG nodes that ran degraded"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.llmRequestsTotal, err = meter.Int64Counter(
		"llm_requests_total",
		metric.WithDescription("Total number of reasoning model requests"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.llmTokensUsedTotal, err = meter.Int64Counter(
		"llm_tokens_used_total",
		metric.WithDescription("Total number of reasoning model tokens used"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.dataFetchesTotal, err = meter.Int64Counter(
		"data_fetches_total",
		metric.WithDescription("Total number of data source requests"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.digestsEmittedTotal, err = meter.Int64Counter(
		"digests_emitted_total",
		metric.WithDescription("Total number of scheduled digest queries emitted"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.queryDuration, err = meter.Float64Histogram(
		"query_duration_seconds",
		metric.WithDescription("End-to-end duration of query handling in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.nodeDuration, err = meter.Float64Histogram(
		"dag_node_duration_seconds",
		metric.WithDescription("Duration of DAG node execution in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.llmDuration, err = meter.Float64Histogram(
		"llm_request_duration_seconds",
		metric.WithDescription("Duration of reasoning model requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.dataFetchDuration, err = meter.Float64Histogram(
		"data_fetch_duration_seconds",
		metric.WithDescription("Duration of data source requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.qualityScore, err = meter.Float64Histogram(
		"answer_quality_score",
		metric.WithDescription("Per-dimension quality scores of generated answers"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m.activeRuns, err = meter.Int64ObservableGauge(
		"active_runs",
		metric.WithDescription("Number of DAG runs in flight"),
		metric.WithUnit("1"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(m.activeRunCount)
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}

	m.activeNodes, err = meter.Int64ObservableGauge(
		"active_nodes",
		metric.WithDescription("Number of DAG nodes executing"),
		metric.WithUnit("1"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(m.activeNodeCount)
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordQuery records arrival of an analytic query
func (m *Metrics) RecordQuery(ctx context.Context, intent string) {
	m.queriesTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("intent", intent),
		),
	)
	m.activeRunCount++
}

// RecordQueryComplete records completion of query handling
func (m *Metrics) RecordQueryComplete(ctx context.Context, duration time.Duration, status string) {
	m.queryDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("status", status),
		),
	)
	m.activeRunCount--
}

// RecordPlan records a classification outcome with the tier that produced it
func (m *Metrics) RecordPlan(ctx context.Context, tier string, intent string) {
	m.plansClassifiedTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("tier", tier),
			attribute.String("intent", intent),
		),
	)
}

// RecordNodeDispatched records dispatch of a DAG node
func (m *Metrics) RecordNodeDispatched(ctx context.Context, category string) {
	m.nodesDispatchedTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("category", category),
		),
	)
	m.activeNodeCount++
}

// RecordNodeComplete records termination of a DAG node
func (m *Metrics) RecordNodeComplete(ctx context.Context, category string, duration time.Duration, state string) {
	switch state {
	case "succeeded":
		m.nodesCompletedTotal.Add(ctx, 1)
	case "degraded":
		m.nodesDegradedTotal.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("category", category),
			),
		)
	default:
		m.nodesFailedTotal.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("category", category),
			),
		)
	}

	m.nodeDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("category", category),
			attribute.String("state", state),
		),
	)

	m.activeNodeCount--
}

// RecordLLMRequest records a reasoning model request
func (m *Metrics) RecordLLMRequest(ctx context.Context, model string, promptTokens, completionTokens int64, duration time.Duration) {
	m.llmRequestsTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("model", model),
		),
	)

	m.llmTokensUsedTotal.Add(ctx, promptTokens+completionTokens,
		metric.WithAttributes(
			attribute.String("model", model),
			attribute.String("type", "total"),
		),
	)

	m.llmDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("model", model),
		),
	)
}

// RecordDataFetch records a data source request
func (m *Metrics) RecordDataFetch(ctx context.Context, source string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}

	m.dataFetchesTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("source", source),
			attribute.String("status", status),
		),
	)

	m.dataFetchDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("source", source),
			attribute.String("status", status),
		),
	)
}

// RecordQuality records one answer quality dimension
func (m *Metrics) RecordQuality(ctx context.Context, dimension string, score float64) {
	m.qualityScore.Record(ctx, score,
		metric.WithAttributes(
			attribute.String("dimension", dimension),
		),
	)
}

// RecordDigest records emission of a scheduled digest query
func (m *Metrics) RecordDigest(ctx context.Context, frequency string) {
	m.digestsEmittedTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("frequency", frequency),
		),
	)
}

// GetActiveRunCount returns the current number of in-flight runs
func (m *Metrics) GetActiveRunCount() int64 {
	return m.activeRunCount
}

// GetActiveNodeCount returns the current number of executing nodes
func (m *Metrics) GetActiveNodeCount() int64 {
	return m.activeNodeCount
}
