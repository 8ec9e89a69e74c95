package llm

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/revintel/insight-agent/pkg/domain"
	"github.com/revintel/insight-agent/pkg/observability"
)

// InstrumentedClient wraps a reasoning client with observability
type InstrumentedClient struct {
	client    domain.ReasoningClient
	telemetry *observability.Telemetry
	metrics   *observability.Metrics
}

// NewInstrumentedClient creates a new instrumented reasoning client
func NewInstrumentedClient(client domain.ReasoningClient, telemetry *observability.Telemetry, metrics *observability.Metrics) (*InstrumentedClient, error) {
	if client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if telemetry == nil {
		return nil, fmt.Errorf("telemetry is required")
	}

	return &InstrumentedClient{
		client:    client,
		telemetry: telemetry,
		metrics:   metrics,
	}, nil
}

// Complete performs an instrumented completion
func (c *InstrumentedClient) Complete(ctx context.Context, prompt string, tier domain.Tier) (*domain.Completion, error) {
	ctx, span := c.telemetry.StartSpan(ctx, "llm.complete",
		trace.WithAttributes(
			attribute.String("llm.tier", string(tier)),
			attribute.Int("llm.prompt_length", len(prompt)),
		),
	)
	defer span.End()

	startTime := time.Now()

	completion, err := c.client.Complete(ctx, prompt, tier)

	duration := time.Since(startTime)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	span.SetAttributes(
		attribute.String("llm.model", completion.Model),
		attribute.Int("llm.prompt_tokens", completion.Usage.PromptTokens),
		attribute.Int("llm.completion_tokens", completion.Usage.CompletionTokens),
		attribute.Int("llm.total_tokens", completion.Usage.TotalTokens),
	)

	if c.metrics != nil {
		c.metrics.RecordLLMRequest(ctx, completion.Model,
			int64(completion.Usage.PromptTokens),
			int64(completion.Usage.CompletionTokens),
			duration)
	}

	return completion, nil
}
