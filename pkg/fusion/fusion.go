// Package fusion assembles the final Answer from a DAG run. It never
// fails: whatever the run produced is turned into answer text plus
// caveats naming exactly what was lost.
package fusion

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/revintel/insight-agent/pkg/domain"
	"github.com/revintel/insight-agent/pkg/observability"
)

// narrationNodeID is the terminal node every route ends in.
const narrationNodeID = "narration"

// Fuser builds answers from execution results
type Fuser struct {
	logger observability.Logger
}

// New creates a fuser
func New(logger observability.Logger) *Fuser {
	if logger == nil {
		logger = observability.NewStructuredLogger("fusion")
	}
	return &Fuser{logger: logger}
}

// Fuse converts a run result into the caller-facing answer. The answer
// text comes from the narration node when it produced one; otherwise a
// fallback is synthesized from whatever partial results exist.
func (f *Fuser) Fuse(ctx context.Context, query domain.Query, plan domain.Plan, state domain.ContextState, result *domain.ExecutionResult) domain.Answer {
	answer := domain.Answer{
		ID:          uuid.NewString(),
		QueryID:     query.ID,
		GeneratedAt: time.Now(),
		Metadata: map[string]interface{}{
			"run_id":          result.RunID,
			"run_status":      string(result.Status),
			"intent":          string(plan.Intent),
			"classifier_tier": plan.Tier.String(),
			"persona":         string(plan.Persona),
			"session_depth":   len(state.History),
		},
	}

	ids := make([]string, 0, len(result.Nodes))
	for id := range result.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var partials []string
	for _, id := range ids {
		outcome := result.Nodes[id]

		switch outcome.State {
		case domain.TaskSucceeded, domain.TaskDegraded:
			if outcome.Result == nil {
				continue
			}
			answer.TokensUsed += outcome.Result.Usage.TotalTokens
			if outcome.Result.Source != "" {
				answer.SourcesUsed = appendSource(answer.SourcesUsed, outcome.Result.Source)
			}
			if id != narrationNodeID && outcome.Result.Summary != "" {
				partials = append(partials, outcome.Result.Summary)
			}
		case domain.TaskFailed:
			answer.Caveats = append(answer.Caveats, failureCaveat(id, outcome))
		}
		if outcome.State == domain.TaskDegraded {
			answer.Degraded = true
			if id != narrationNodeID && len(outcome.MissingUpstream) > 0 {
				answer.Caveats = append(answer.Caveats,
					fmt.Sprintf("%s ran without input from %s", id, strings.Join(outcome.MissingUpstream, ", ")))
			}
		}
	}

	if narration, ok := result.Nodes[narrationNodeID]; ok && narration.Result != nil && narration.Result.Summary != "" {
		answer.Text = narration.Result.Summary
	} else {
		answer.Degraded = true
		answer.Text = fallbackText(partials)
		answer.Caveats = append(answer.Caveats, "the final narration step did not complete")
	}

	if result.Status != domain.RunSuccess {
		answer.Degraded = true
	}

	f.logger.Info(ctx, "answer fused", map[string]interface{}{
		"query_id": query.ID,
		"run_id":   result.RunID,
		"degraded": answer.Degraded,
		"caveats":  len(answer.Caveats),
	})

	return answer
}

// failureCaveat names the failed step in caller terms.
func failureCaveat(id string, outcome domain.NodeOutcome) string {
	source := nodeSource(id, outcome)
	if source != "" {
		return fmt.Sprintf("data from %s is unavailable (%s failed)", source, id)
	}
	return fmt.Sprintf("step %s failed and its output is missing", id)
}

// nodeSource recovers the data source a fetch node targets from its id.
func nodeSource(id string, outcome domain.NodeOutcome) domain.DataSource {
	if outcome.Result != nil && outcome.Result.Source != "" {
		return outcome.Result.Source
	}
	for _, source := range domain.KnownSources {
		if strings.HasSuffix(id, "_"+string(source)) {
			return source
		}
	}
	return ""
}

func fallbackText(partials []string) string {
	if len(partials) == 0 {
		return "I could not complete this analysis. Please try again."
	}
	var b strings.Builder
	b.WriteString("The analysis did not fully complete. Partial findings:\n")
	for _, partial := range partials {
		fmt.Fprintf(&b, "- %s\n", partial)
	}
	return b.String()
}

func appendSource(sources []domain.DataSource, source domain.DataSource) []domain.DataSource {
	for _, existing := range sources {
		if existing == source {
			return sources
		}
	}
	return append(sources, source)
}

