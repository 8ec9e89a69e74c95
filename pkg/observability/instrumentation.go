package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentNode wraps a DAG node execution with a span
func (t *Telemetry) InstrumentNode(ctx context.Context, nodeID, category string, fn func(context.Context) error) error {
	ctx, span := t.StartSpan(ctx, fmt.Sprintf("dag.node.%s", nodeID),
		trace.WithAttributes(
			attribute.String("node.id", nodeID),
			attribute.String("node.category", category),
		),
	)
	defer span.End()

	startTime := time.Now()

	err := fn(ctx)

	duration := time.Since(startTime)
	status := "success"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.SetAttributes(
		attribute.String("status", status),
		attribute.Float64("duration.seconds", duration.Seconds()),
	)

	return err
}

// InstrumentReasoningCall wraps a reasoning model call with a span
func (t *Telemetry) InstrumentReasoningCall(ctx context.Context, model, tier string, fn func(context.Context) (promptTokens, completionTokens int, err error)) error {
	ctx, span := t.StartSpan(ctx, "llm.complete",
		trace.WithAttributes(
			attribute.String("llm.model", model),
			attribute.String("llm.tier", tier),
		),
	)
	defer span.End()

	startTime := time.Now()

	promptTokens, completionTokens, err := fn(ctx)

	duration := time.Since(startTime)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
		span.SetAttributes(
			attribute.Int("llm.prompt_tokens", promptTokens),
			attribute.Int("llm.completion_tokens", completionTokens),
			attribute.Int("llm.total_tokens", promptTokens+completionTokens),
		)
	}

	span.SetAttributes(
		attribute.Float64("duration.seconds", duration.Seconds()),
	)

	return err
}

// InstrumentDataFetch wraps a data source request with a span
func (t *Telemetry) InstrumentDataFetch(ctx context.Context, source string, fn func(context.Context) error) error {
	ctx, span := t.StartSpan(ctx, fmt.Sprintf("data.%s", source),
		trace.WithAttributes(
			attribute.String("data.source", source),
		),
	)
	defer span.End()

	startTime := time.Now()

	err := fn(ctx)

	duration := time.Since(startTime)
	status := "success"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.SetAttributes(
		attribute.String("data.status", status),
		attribute.Float64("data.duration_seconds", duration.Seconds()),
	)

	return err
}

// StartQueryRequest starts a root span for an analytic query
func (t *Telemetry) StartQueryRequest(ctx context.Context, queryID, userID string, synthetic bool) (context.Context, trace.Span) {
	ctx, span := t.StartSpan(ctx, "query.handle",
		trace.WithAttributes(
			attribute.String("query.id", queryID),
			attribute.String("user.id", userID),
			attribute.Bool("query.synthetic", synthetic),
		),
	)
	return ctx, span
}
