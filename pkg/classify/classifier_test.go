package classify_test

import (
	"reflect"
	"testing"

	"github.com/revintel/insight-agent/internal/testutil"
	"github.com/revintel/insight-agent/pkg/classify"
	"github.com/revintel/insight-agent/pkg/domain"
	"github.com/revintel/insight-agent/pkg/modeltier"
)

func newClassifier(llm domain.ReasoningClient) *classify.IntentClassifier {
	selector := modeltier.NewSelector(modeltier.EnvDevelopment)
	return classify.New(llm, selector, nil, nil, nil)
}

func TestModelClassification(t *testing.T) {
	llm := testutil.NewMockReasoningClient()
	llm.Responses["default"] = `{"intent":"analytical","complexity":"moderate","persona":"vp_sales","confidence":0.92,"data_sources":["warehouse"]}`

	c := newClassifier(llm)
	ctx := testutil.NewTestContext(t)

	plan := c.Classify(ctx, testutil.NewTestQuery("analyze pipeline trends"), nil)

	if plan.Tier != domain.TierModel {
		t.Fatalf("tier = %s, want model", plan.Tier)
	}
	if plan.Intent != domain.IntentAnalytical {
		t.Errorf("intent = %s", plan.Intent)
	}
	if plan.Persona != domain.PersonaVPSales {
		t.Errorf("persona = %s", plan.Persona)
	}
	if plan.Confidence != 0.92 {
		t.Errorf("confidence = %f", plan.Confidence)
	}
	if llm.Calls() != 1 {
		t.Errorf("llm calls = %d, want 1", llm.Calls())
	}
}

func TestModelClassificationClampsConfidence(t *testing.T) {
	llm := testutil.NewMockReasoningClient()
	llm.Responses["default"] = `{"intent":"data_query","complexity":"simple","persona":"general","confidence":3.5,"data_sources":["crm"]}`

	plan := newClassifier(llm).Classify(testutil.NewTestContext(t), testutil.NewTestQuery("show deals"), nil)

	if plan.Confidence < 0 || plan.Confidence > 1 {
		t.Errorf("confidence %f outside [0,1]", plan.Confidence)
	}
}

func TestModelFailureFallsBackToCatalog(t *testing.T) {
	llm := testutil.NewMockReasoningClient()
	llm.ShouldError = true
	llm.Err = domain.ErrTimeout

	c := newClassifier(llm)
	plan := c.Classify(testutil.NewTestContext(t), testutil.NewTestQuery("What's our win rate?"), nil)

	if plan.Tier != domain.TierCatalog {
		t.Fatalf("tier = %s, want catalog", plan.Tier)
	}
	if plan.Intent != domain.IntentDataQuery {
		t.Errorf("intent = %s, want data_query", plan.Intent)
	}
	if plan.Complexity != domain.ComplexitySimple {
		t.Errorf("complexity = %s, want simple", plan.Complexity)
	}
}

func TestMalformedModelOutputFallsBack(t *testing.T) {
	llm := testutil.NewMockReasoningClient()
	llm.Responses["default"] = `{"intent":"weather_report","complexity":"simple","confidence":0.9}`

	plan := newClassifier(llm).Classify(testutil.NewTestContext(t), testutil.NewTestQuery("What's our win rate?"), nil)

	if plan.Tier == domain.TierModel {
		t.Error("invalid intent should not produce a model-tier plan")
	}
	if !plan.Intent.Valid() {
		t.Errorf("fallback plan has invalid intent %q", plan.Intent)
	}
}

func TestReasoningQueryScoresComplex(t *testing.T) {
	c := newClassifier(nil)

	plan := c.Classify(testutil.NewTestContext(t), testutil.NewTestQuery("Why is win rate declining and what should we do?"), nil)

	if plan.Intent != domain.IntentReasoning {
		t.Errorf("intent = %s, want reasoning", plan.Intent)
	}
	if plan.Complexity < domain.ComplexityComplex {
		t.Errorf("complexity = %s, want at least complex", plan.Complexity)
	}
}

func TestCatalogDeterminism(t *testing.T) {
	c := newClassifier(nil)
	ctx := testutil.NewTestContext(t)
	query := testutil.NewTestQuery("compare pipeline trends across regions")

	first := c.Classify(ctx, query, nil)
	for i := 0; i < 10; i++ {
		again := c.Classify(ctx, query, nil)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("classification not deterministic: %+v vs %+v", first, again)
		}
	}
}

func TestHeuristicFallbackCeiling(t *testing.T) {
	c := newClassifier(nil)

	// No catalog pattern matches this.
	plan := c.Classify(testutil.NewTestContext(t), testutil.NewTestQuery("hello there"), nil)

	if plan.Tier != domain.TierHeuristic {
		t.Fatalf("tier = %s, want heuristic", plan.Tier)
	}
	if plan.Confidence > 0.5 {
		t.Errorf("heuristic confidence %f exceeds 0.5", plan.Confidence)
	}
	if plan.Intent != domain.IntentDirectAnswer {
		t.Errorf("intent = %s, want direct_answer", plan.Intent)
	}
}

func TestHeuristicDetectsSourceNouns(t *testing.T) {
	c := newClassifier(nil)

	plan := c.Classify(testutil.NewTestContext(t), testutil.NewTestQuery("salesforce opportunities please"), nil)

	if plan.Tier != domain.TierHeuristic {
		t.Fatalf("tier = %s, want heuristic", plan.Tier)
	}
	if plan.Intent != domain.IntentDataQuery {
		t.Errorf("intent = %s, want data_query", plan.Intent)
	}
	found := false
	for _, s := range plan.DataSources {
		if s == domain.SourceCRM {
			found = true
		}
	}
	if !found {
		t.Error("crm source not detected")
	}
}

func TestSyntheticQueryRoutesStatically(t *testing.T) {
	llm := testutil.NewMockReasoningClient()
	c := newClassifier(llm)

	query := testutil.NewTestQuery("daily briefing")
	query.Synthetic = true

	plan := c.Classify(testutil.NewTestContext(t), query, nil)

	if plan.Intent != domain.IntentScheduledDigest {
		t.Errorf("intent = %s, want scheduled_digest", plan.Intent)
	}
	if llm.Calls() != 0 {
		t.Errorf("synthetic query should not call the model, saw %d calls", llm.Calls())
	}
}

func TestPersonaFromContextWhenNoVocab(t *testing.T) {
	c := newClassifier(nil)
	state := &domain.ContextState{
		History: []domain.Interaction{
			{Plan: domain.Plan{Persona: domain.PersonaSalesManager}},
		},
	}

	plan := c.Classify(testutil.NewTestContext(t), testutil.NewTestQuery("show deals"), state)

	if plan.Persona != domain.PersonaSalesManager {
		t.Errorf("persona = %s, want sales_manager from context", plan.Persona)
	}
}

func TestConfidenceAlwaysInRange(t *testing.T) {
	c := newClassifier(nil)
	queries := []string{
		"What's our win rate?",
		"Why is win rate declining and what should we do?",
		"show list compare analyze correlate across pipeline revenue deals trend",
		"x",
		"",
	}
	for _, q := range queries {
		plan := c.Classify(testutil.NewTestContext(t), testutil.NewTestQuery(q), nil)
		if plan.Confidence < 0 || plan.Confidence > 1 {
			t.Errorf("query %q: confidence %f outside [0,1]", q, plan.Confidence)
		}
		if !plan.Intent.Valid() {
			t.Errorf("query %q: invalid intent %q", q, plan.Intent)
		}
	}
}
