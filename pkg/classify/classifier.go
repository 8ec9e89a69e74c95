// Package classify turns raw analytic questions into typed execution
// plans through a three-tier fallback chain: model-based classification,
// catalog-driven scoring, then a deterministic heuristic floor.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/revintel/insight-agent/pkg/domain"
	"github.com/revintel/insight-agent/pkg/modeltier"
	"github.com/revintel/insight-agent/pkg/observability"
)

const (
	patternHitWeight      = 0.35
	complexityAgreeWeight = 0.25
	personaOverlapWeight  = 0.2
	catalogFloor          = 0.3
	heuristicConfidence   = 0.35
	heuristicCeiling      = 0.5
)

// IntentClassifier implements domain.Classifier. A nil reasoning client
// disables tier 1; the catalog and heuristic tiers always run locally.
type IntentClassifier struct {
	llm      domain.ReasoningClient
	selector *modeltier.Selector
	catalog  []CatalogEntry
	logger   observability.Logger
	metrics  *observability.Metrics
}

// New creates a classifier over the given catalog. Passing a nil catalog
// uses DefaultCatalog.
func New(llm domain.ReasoningClient, selector *modeltier.Selector, catalog []CatalogEntry, logger observability.Logger, metrics *observability.Metrics) *IntentClassifier {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if logger == nil {
		logger = observability.NewStructuredLogger("classifier")
	}
	return &IntentClassifier{
		llm:      llm,
		selector: selector,
		catalog:  catalog,
		logger:   logger,
		metrics:  metrics,
	}
}

// Classify produces a Plan for the query. It never returns an error:
// every internal failure falls through to the next tier, and the last
// tier cannot fail.
func (c *IntentClassifier) Classify(ctx context.Context, query domain.Query, state *domain.ContextState) domain.Plan {
	if query.Synthetic {
		// Digest queries are routed statically; no model call needed.
		return c.digestPlan(query, state)
	}

	if c.llm != nil {
		if plan, err := c.classifyWithModel(ctx, query, state); err == nil {
			c.recordPlan(ctx, plan)
			return plan
		} else {
			c.logger.Warn(ctx, "model classification failed, falling back", map[string]interface{}{
				"query_id": query.ID,
				"error":    err.Error(),
			})
		}
	}

	if plan, ok := c.classifyWithCatalog(query, state); ok {
		c.recordPlan(ctx, plan)
		return plan
	}

	plan := c.classifyHeuristic(query, state)
	c.recordPlan(ctx, plan)
	return plan
}

func (c *IntentClassifier) recordPlan(ctx context.Context, plan domain.Plan) {
	if c.metrics != nil {
		c.metrics.RecordPlan(ctx, plan.Tier.String(), string(plan.Intent))
	}
	c.logger.Debug(ctx, "plan produced", map[string]interface{}{
		"intent":     string(plan.Intent),
		"complexity": plan.Complexity.String(),
		"tier":       plan.Tier.String(),
		"confidence": plan.Confidence,
	})
}

// modelPlanResponse is the JSON shape the model is asked to emit.
type modelPlanResponse struct {
	Intent      string   `json:"intent"`
	Complexity  string   `json:"complexity"`
	Persona     string   `json:"persona"`
	Confidence  float64  `json:"confidence"`
	DataSources []string `json:"data_sources"`
}

func (c *IntentClassifier) classifyWithModel(ctx context.Context, query domain.Query, state *domain.ContextState) (domain.Plan, error) {
	prompt := c.buildPrompt(query, state)

	completion, err := c.llm.Complete(ctx, prompt, c.selector.ClassificationTier())
	if err != nil {
		return domain.Plan{}, err
	}

	var resp modelPlanResponse
	content := extractJSON(completion.Content)
	if err := json.Unmarshal([]byte(content), &resp); err != nil {
		return domain.Plan{}, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}

	intent := domain.IntentKind(resp.Intent)
	if !intent.Valid() {
		return domain.Plan{}, fmt.Errorf("%w: unknown intent %q", domain.ErrMalformedResponse, resp.Intent)
	}
	complexity, ok := domain.ParseComplexity(resp.Complexity)
	if !ok {
		return domain.Plan{}, fmt.Errorf("%w: unknown complexity %q", domain.ErrMalformedResponse, resp.Complexity)
	}

	persona := domain.Persona(resp.Persona)
	if !knownPersona(persona) {
		persona = InferPersona(query.Text, state)
	}

	sources := make([]domain.DataSource, 0, len(resp.DataSources))
	for _, s := range resp.DataSources {
		source := domain.DataSource(s)
		for _, known := range domain.KnownSources {
			if source == known {
				sources = append(sources, source)
				break
			}
		}
	}

	confidence := resp.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return domain.Plan{
		Intent:      intent,
		Complexity:  complexity,
		Persona:     persona,
		Confidence:  confidence,
		DataSources: sources,
		Tier:        domain.TierModel,
		Explanation: "model classification",
	}, nil
}

func (c *IntentClassifier) buildPrompt(query domain.Query, state *domain.ContextState) string {
	var b strings.Builder
	b.WriteString("Classify this revenue analytics query. Respond with JSON only:\n")
	b.WriteString(`{"intent": "direct_answer|data_query|analytical|multi_source|reasoning|scheduled_digest", `)
	b.WriteString(`"complexity": "simple|moderate|complex|advanced", `)
	b.WriteString(`"persona": "vp_sales|account_executive|sales_manager|cdo|data_engineer|sales_operations|customer_success|general", `)
	b.WriteString(`"confidence": 0.0, "data_sources": ["crm","warehouse","transforms"]}`)
	b.WriteString("\n\nQuery: ")
	b.WriteString(query.Text)

	if state != nil && len(state.History) > 0 {
		b.WriteString("\nRecent context:")
		start := len(state.History) - 3
		if start < 0 {
			start = 0
		}
		for _, in := range state.History[start:] {
			fmt.Fprintf(&b, "\n- %q (%s, %s)", in.Query.Text, in.Plan.Intent, in.Plan.Persona)
		}
	}

	return b.String()
}

func (c *IntentClassifier) classifyWithCatalog(query domain.Query, state *domain.ContextState) (domain.Plan, bool) {
	lower := strings.ToLower(query.Text)
	persona := InferPersona(query.Text, state)

	var best *CatalogEntry
	var bestScore float64
	var bestComplexity domain.Complexity

	for i := range c.catalog {
		entry := &c.catalog[i]

		hits := 0
		for _, pattern := range entry.Patterns {
			if strings.Contains(lower, pattern) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}

		score := patternHitWeight * float64(hits)
		if score > 1.0 {
			score = 1.0
		}

		estimated, _ := EstimateComplexity(query.Text, len(entry.Sources))
		if estimated == entry.Typical {
			score += complexityAgreeWeight
		}
		if personaOverlap(query.Text, persona) {
			score += personaOverlapWeight
		}

		// Strictly greater keeps ties on the earlier entry.
		if best == nil || score > bestScore {
			best = entry
			bestScore = score
			bestComplexity = estimated
		}
	}

	if best == nil || bestScore < catalogFloor {
		return domain.Plan{}, false
	}

	confidence := bestScore
	if confidence > 1 {
		confidence = 1
	}

	return domain.Plan{
		Intent:      best.Intent,
		Complexity:  bestComplexity,
		Persona:     persona,
		Confidence:  confidence,
		DataSources: append([]domain.DataSource(nil), best.Sources...),
		Tier:        domain.TierCatalog,
		Explanation: fmt.Sprintf("catalog score %.2f", bestScore),
	}, true
}

var sourceNouns = map[string]domain.DataSource{
	"salesforce": domain.SourceCRM,
	"crm":        domain.SourceCRM,
	"pipeline":   domain.SourceCRM,
	"deals":      domain.SourceCRM,
	"opportunit": domain.SourceCRM,
	"snowflake":  domain.SourceWarehouse,
	"warehouse":  domain.SourceWarehouse,
	"revenue":    domain.SourceWarehouse,
	"dbt":        domain.SourceTransforms,
	"transform":  domain.SourceTransforms,
}

func (c *IntentClassifier) classifyHeuristic(query domain.Query, state *domain.ContextState) domain.Plan {
	lower := strings.ToLower(query.Text)

	var sources []domain.DataSource
	seen := map[domain.DataSource]bool{}
	// Fixed iteration over KnownSources keeps the source set order
	// stable regardless of map ordering.
	for _, known := range domain.KnownSources {
		for noun, source := range sourceNouns {
			if source == known && strings.Contains(lower, noun) && !seen[source] {
				sources = append(sources, source)
				seen[source] = true
			}
		}
	}

	hasReasoning := false
	for _, w := range []string{"why", "how", "should", "predict"} {
		if containsWord(lower, w) {
			hasReasoning = true
			break
		}
	}

	intent := domain.IntentDirectAnswer
	switch {
	case hasReasoning && len(sources) > 0:
		intent = domain.IntentReasoning
	case len(sources) > 0:
		intent = domain.IntentDataQuery
	}

	complexity, _ := EstimateComplexity(query.Text, len(sources))

	confidence := heuristicConfidence
	if confidence > heuristicCeiling {
		confidence = heuristicCeiling
	}

	return domain.Plan{
		Intent:      intent,
		Complexity:  complexity,
		Persona:     InferPersona(query.Text, state),
		Confidence:  confidence,
		DataSources: sources,
		Tier:        domain.TierHeuristic,
		Explanation: "heuristic fallback",
	}
}

func (c *IntentClassifier) digestPlan(query domain.Query, state *domain.ContextState) domain.Plan {
	return domain.Plan{
		Intent:      domain.IntentScheduledDigest,
		Complexity:  domain.ComplexityModerate,
		Persona:     InferPersona(query.Text, state),
		Confidence:  1.0,
		DataSources: []domain.DataSource{domain.SourceCRM, domain.SourceWarehouse},
		Tier:        domain.TierCatalog,
		Explanation: "static digest route",
	}
}

func knownPersona(p domain.Persona) bool {
	switch p {
	case domain.PersonaVPSales, domain.PersonaAccountExecutive, domain.PersonaSalesManager,
		domain.PersonaCDO, domain.PersonaDataEngineer, domain.PersonaSalesOperations,
		domain.PersonaCustomerSuccess, domain.PersonaGeneral:
		return true
	}
	return false
}

// extractJSON trims any prose the model wrapped around the JSON object.
func extractJSON(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		return content[start : end+1]
	}
	return content
}
