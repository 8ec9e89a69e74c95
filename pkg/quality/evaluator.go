// Package quality scores finished answers on a fixed rubric. Scoring is
// advisory and deterministic; it runs after the response is already on
// its way to the caller and never blocks or fails a request.
package quality

import (
	"context"
	"strings"

	"github.com/revintel/insight-agent/pkg/domain"
	"github.com/revintel/insight-agent/pkg/observability"
)

const (
	// passAverage is the mean score an answer needs to pass the gate.
	passAverage = 0.7
	// passFloor is the minimum any single dimension may score.
	passFloor = 0.4
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "for": {}, "how": {},
	"in": {}, "is": {}, "it": {}, "of": {}, "on": {}, "our": {},
	"the": {}, "to": {}, "we": {}, "what": {}, "whats": {}, "why": {},
}

var actionVocab = []string{
	"recommend", "should", "focus", "prioritize", "consider",
	"next step", "action", "review", "investigate", "schedule",
}

// short personas get short answers; detail personas tolerate length.
var briefPersonas = map[domain.Persona]bool{
	domain.PersonaVPSales: true,
	domain.PersonaCDO:     true,
}

// Evaluator scores answers against the rubric
type Evaluator struct {
	logger  observability.Logger
	metrics *observability.Metrics
}

// New creates an evaluator
func New(logger observability.Logger, metrics *observability.Metrics) *Evaluator {
	if logger == nil {
		logger = observability.NewStructuredLogger("quality")
	}
	return &Evaluator{logger: logger, metrics: metrics}
}

// Evaluate scores one answer. Identical inputs always produce identical
// scores.
func (e *Evaluator) Evaluate(ctx context.Context, query domain.Query, plan domain.Plan, answer domain.Answer, state domain.ContextState) domain.QualityMetrics {
	m := domain.QualityMetrics{
		Completeness:     scoreCompleteness(answer),
		Relevance:        scoreRelevance(query, answer),
		Actionability:    scoreActionability(answer),
		PersonaAlignment: scorePersonaAlignment(plan, answer),
		ContextAwareness: scoreContextAwareness(plan, state),
	}

	average := (m.Completeness + m.Relevance + m.Actionability + m.PersonaAlignment + m.ContextAwareness) / 5
	floor := min5(m.Completeness, m.Relevance, m.Actionability, m.PersonaAlignment, m.ContextAwareness)
	m.Passed = average >= passAverage && floor >= passFloor

	if e.metrics != nil {
		e.metrics.RecordQuality(ctx, "completeness", m.Completeness)
		e.metrics.RecordQuality(ctx, "relevance", m.Relevance)
		e.metrics.RecordQuality(ctx, "actionability", m.Actionability)
		e.metrics.RecordQuality(ctx, "persona_alignment", m.PersonaAlignment)
		e.metrics.RecordQuality(ctx, "context_awareness", m.ContextAwareness)
	}

	e.logger.Debug(ctx, "answer scored", map[string]interface{}{
		"query_id": query.ID,
		"average":  average,
		"passed":   m.Passed,
	})

	return m
}

// scoreCompleteness penalizes degradation and caveats.
func scoreCompleteness(answer domain.Answer) float64 {
	if strings.TrimSpace(answer.Text) == "" {
		return 0
	}
	score := 1.0
	if answer.Degraded {
		score -= 0.3
	}
	score -= 0.15 * float64(len(answer.Caveats))
	if score < 0.1 {
		return 0.1
	}
	return score
}

// scoreRelevance measures how much of the query's vocabulary the answer
// echoes.
func scoreRelevance(query domain.Query, answer domain.Answer) float64 {
	terms := significantTerms(query.Text)
	if len(terms) == 0 {
		return 0.5
	}

	text := strings.ToLower(answer.Text)
	hits := 0
	for _, term := range terms {
		if strings.Contains(text, term) {
			hits++
		}
	}

	score := float64(hits) / float64(len(terms))
	// An answer that ignores the question entirely still gets a floor
	// so one dimension cannot dominate the gate.
	if score < 0.2 {
		return 0.2
	}
	return score
}

func scoreActionability(answer domain.Answer) float64 {
	text := strings.ToLower(answer.Text)
	score := 0.4
	for _, phrase := range actionVocab {
		if strings.Contains(text, phrase) {
			score += 0.3
			break
		}
	}
	if strings.ContainsAny(text, "0123456789") {
		score += 0.3
	}
	if score > 1 {
		return 1
	}
	return score
}

// scorePersonaAlignment checks answer length against audience appetite.
func scorePersonaAlignment(plan domain.Plan, answer domain.Answer) float64 {
	words := len(strings.Fields(answer.Text))
	if words == 0 {
		return 0
	}
	if briefPersonas[plan.Persona] {
		if words <= 120 {
			return 1
		}
		if words <= 250 {
			return 0.6
		}
		return 0.3
	}
	if words >= 10 {
		return 1
	}
	return 0.5
}

// scoreContextAwareness rewards plans that honored session history.
func scoreContextAwareness(plan domain.Plan, state domain.ContextState) float64 {
	if len(state.History) == 0 {
		return 1
	}
	score := 0.5
	if plan.Persona != domain.PersonaGeneral && plan.Persona == state.LastPersona() {
		score += 0.5
	}
	return score
}

func significantTerms(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == ' ' {
			return r
		}
		return ' '
	}, strings.ToLower(text))

	var terms []string
	for _, word := range strings.Fields(cleaned) {
		if _, skip := stopwords[word]; skip {
			continue
		}
		if len(word) < 3 {
			continue
		}
		terms = append(terms, word)
	}
	return terms
}

func min5(values ...float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
