package agents

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/revintel/insight-agent/pkg/domain"
)

// personaFrames steer the narration register toward the audience the
// classifier identified.
var personaFrames = map[domain.Persona]string{
	domain.PersonaVPSales:          "Frame for an executive: lead with revenue impact and risk, keep detail minimal.",
	domain.PersonaAccountExecutive: "Frame for an account executive: focus on specific deals and concrete next actions.",
	domain.PersonaSalesManager:     "Frame for a sales manager: emphasize team performance, pipeline coverage, coaching points.",
	domain.PersonaCDO:              "Frame for a chief data officer: emphasize data quality, lineage, and governance implications.",
	domain.PersonaDataEngineer:     "Frame for a data engineer: be precise about sources, transforms, and freshness.",
	domain.PersonaSalesOperations:  "Frame for sales operations: emphasize process, forecast accuracy, and pipeline hygiene.",
	domain.PersonaCustomerSuccess:  "Frame for customer success: emphasize account health, adoption, and churn risk.",
	domain.PersonaGeneral:          "Use a neutral business register.",
}

// CorrelationExecutor runs correlation nodes: it hands every upstream
// result to the reasoning model and asks for cross-source findings.
type CorrelationExecutor struct {
	llm      domain.ReasoningClient
	selector domain.TierSelector
}

// NewCorrelationExecutor creates a correlation executor
func NewCorrelationExecutor(llm domain.ReasoningClient, selector domain.TierSelector) *CorrelationExecutor {
	return &CorrelationExecutor{llm: llm, selector: selector}
}

// Category returns the task category this executor serves
func (e *CorrelationExecutor) Category() domain.TaskCategory {
	return domain.CategoryCorrelation
}

// Execute correlates upstream results. With no upstream data at all the
// node still succeeds, reporting that nothing was available to correlate.
func (e *CorrelationExecutor) Execute(ctx context.Context, task *domain.AgentTask, in domain.NodeInput) (*domain.TaskResult, error) {
	if len(in.Upstream) == 0 {
		return &domain.TaskResult{
			Summary: "no upstream data was available to correlate",
		}, nil
	}

	prompt := buildCorrelationPrompt(in)
	tier := e.selector.Select(domain.CategoryCorrelation)

	completion, err := e.llm.Complete(ctx, prompt, tier)
	if err != nil {
		return nil, fmt.Errorf("correlation: %w", err)
	}

	return &domain.TaskResult{
		Payload: completion.Content,
		Summary: completion.Content,
		Usage:   completion.Usage,
	}, nil
}

func buildCorrelationPrompt(in domain.NodeInput) string {
	var b strings.Builder
	b.WriteString("Identify relationships, anomalies and likely causes across the following datasets.\n")
	fmt.Fprintf(&b, "Question: %s\n\n", in.Query.Text)
	writeUpstream(&b, in)
	b.WriteString("\nReport only findings supported by the data above.")
	return b.String()
}

// NarrationExecutor runs narration nodes: it composes the final
// persona-framed answer text from whatever upstream produced.
type NarrationExecutor struct {
	llm      domain.ReasoningClient
	selector domain.TierSelector
}

// NewNarrationExecutor creates a narration executor
func NewNarrationExecutor(llm domain.ReasoningClient, selector domain.TierSelector) *NarrationExecutor {
	return &NarrationExecutor{llm: llm, selector: selector}
}

// Category returns the task category this executor serves
func (e *NarrationExecutor) Category() domain.TaskCategory {
	return domain.CategoryNarration
}

// Execute produces the answer text. Unsupported-plan fallback nodes are
// answered with fixed guidance and no model call.
func (e *NarrationExecutor) Execute(ctx context.Context, task *domain.AgentTask, in domain.NodeInput) (*domain.TaskResult, error) {
	if task.Marker == domain.MarkerUnsupportedPlan {
		return &domain.TaskResult{
			Summary: "I could not map this question to a supported analysis. Try asking about deals, pipeline, win rates, or revenue trends.",
		}, nil
	}

	prompt := buildNarrationPrompt(in)
	tier := e.selector.Select(domain.CategoryNarration)

	completion, err := e.llm.Complete(ctx, prompt, tier)
	if err != nil {
		return nil, fmt.Errorf("narration: %w", err)
	}

	return &domain.TaskResult{
		Payload: completion.Content,
		Summary: completion.Content,
		Usage:   completion.Usage,
	}, nil
}

func buildNarrationPrompt(in domain.NodeInput) string {
	var b strings.Builder
	b.WriteString("Write a concise answer to the question below using the gathered results.\n")

	frame, ok := personaFrames[in.Plan.Persona]
	if !ok {
		frame = personaFrames[domain.PersonaGeneral]
	}
	b.WriteString(frame)
	b.WriteString("\n")

	fmt.Fprintf(&b, "Question: %s\n\n", in.Query.Text)

	if len(in.Upstream) == 0 {
		b.WriteString("No data was gathered; answer from general knowledge and say so.\n")
	} else {
		writeUpstream(&b, in)
	}

	if len(in.MissingUpstream) > 0 {
		fmt.Fprintf(&b, "\nNote: results from %s are unavailable; acknowledge the gap.\n",
			strings.Join(in.MissingUpstream, ", "))
	}

	return b.String()
}

// writeUpstream renders upstream results in stable node-id order.
func writeUpstream(b *strings.Builder, in domain.NodeInput) {
	ids := make([]string, 0, len(in.Upstream))
	for id := range in.Upstream {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		result := in.Upstream[id]
		fmt.Fprintf(b, "[%s]", id)
		if result.Source != "" {
			fmt.Fprintf(b, " (source: %s)", result.Source)
		}
		b.WriteString("\n")
		if result.Summary != "" {
			fmt.Fprintf(b, "%s\n", result.Summary)
		}
		if rows, ok := result.Payload.([]map[string]interface{}); ok {
			fmt.Fprintf(b, "%d rows\n", len(rows))
		}
	}
}
