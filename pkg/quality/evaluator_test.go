package quality

import (
	"testing"

	"github.com/revintel/insight-agent/internal/testutil"
	"github.com/revintel/insight-agent/pkg/domain"
)

func TestCleanAnswerPasses(t *testing.T) {
	e := New(nil, nil)
	query := testutil.NewTestQuery("What's our win rate this quarter?")
	plan := testutil.NewTestPlan(domain.IntentDataQuery, domain.ComplexitySimple)
	answer := domain.Answer{
		Text: "Your win rate this quarter is 34%, up 2 points. You should review the three stalled enterprise deals next.",
	}

	m := e.Evaluate(testutil.NewTestContext(t), query, plan, answer, domain.ContextState{})

	if !m.Passed {
		t.Errorf("expected pass, got %+v", m)
	}
	if m.Completeness != 1.0 {
		t.Errorf("completeness = %v, want 1.0", m.Completeness)
	}
}

func TestDegradedAnswerScoresLower(t *testing.T) {
	e := New(nil, nil)
	query := testutil.NewTestQuery("What's our win rate?")
	plan := testutil.NewTestPlan(domain.IntentDataQuery, domain.ComplexitySimple)

	clean := domain.Answer{Text: "Win rate is 34%."}
	degraded := domain.Answer{
		Text:     "Win rate is 34%.",
		Degraded: true,
		Caveats:  []string{"data from warehouse is unavailable"},
	}

	ctx := testutil.NewTestContext(t)
	state := domain.ContextState{}
	cleanScore := e.Evaluate(ctx, query, plan, clean, state)
	degradedScore := e.Evaluate(ctx, query, plan, degraded, state)

	if degradedScore.Completeness >= cleanScore.Completeness {
		t.Errorf("degraded completeness %v should be below clean %v",
			degradedScore.Completeness, cleanScore.Completeness)
	}
}

func TestEmptyAnswerFails(t *testing.T) {
	e := New(nil, nil)
	query := testutil.NewTestQuery("anything")
	plan := testutil.NewTestPlan(domain.IntentDataQuery, domain.ComplexitySimple)

	m := e.Evaluate(testutil.NewTestContext(t), query, plan, domain.Answer{}, domain.ContextState{})

	if m.Passed {
		t.Error("empty answer must not pass")
	}
	if m.Completeness != 0 {
		t.Errorf("completeness = %v, want 0", m.Completeness)
	}
}

func TestEvaluationIsDeterministic(t *testing.T) {
	e := New(nil, nil)
	query := testutil.NewTestQuery("Why is pipeline coverage dropping?")
	plan := testutil.NewTestPlan(domain.IntentReasoning, domain.ComplexityComplex)
	answer := domain.Answer{
		Text:    "Pipeline coverage dropped to 2.1x. Consider tightening qualification.",
		Caveats: []string{"transform layer was unreachable"},
	}
	state := domain.ContextState{
		History: []domain.Interaction{{Plan: testutil.NewTestPlan(domain.IntentDataQuery, domain.ComplexitySimple)}},
	}

	ctx := testutil.NewTestContext(t)
	first := e.Evaluate(ctx, query, plan, answer, state)
	for i := 0; i < 10; i++ {
		if got := e.Evaluate(ctx, query, plan, answer, state); got != first {
			t.Fatalf("run %d: %+v != %+v", i, got, first)
		}
	}
}

func TestPersonaAlignmentPrefersBriefForExecutives(t *testing.T) {
	e := New(nil, nil)
	query := testutil.NewTestQuery("How is revenue trending?")
	plan := testutil.NewTestPlan(domain.IntentAnalytical, domain.ComplexityModerate)
	plan.Persona = domain.PersonaVPSales

	brief := domain.Answer{Text: "Revenue is trending up 8% quarter over quarter with strong enterprise momentum."}
	m := e.Evaluate(testutil.NewTestContext(t), query, plan, brief, domain.ContextState{})
	if m.PersonaAlignment != 1.0 {
		t.Errorf("brief answer alignment = %v, want 1.0", m.PersonaAlignment)
	}
}

func TestContextAwarenessRewardsPersonaContinuity(t *testing.T) {
	e := New(nil, nil)
	query := testutil.NewTestQuery("And how about last month?")
	plan := testutil.NewTestPlan(domain.IntentAnalytical, domain.ComplexityModerate)
	plan.Persona = domain.PersonaSalesManager

	prior := testutil.NewTestPlan(domain.IntentDataQuery, domain.ComplexitySimple)
	prior.Persona = domain.PersonaSalesManager
	state := domain.ContextState{History: []domain.Interaction{{Plan: prior}}}

	answer := domain.Answer{Text: "Last month the team closed 18 deals."}
	m := e.Evaluate(testutil.NewTestContext(t), query, plan, answer, state)
	if m.ContextAwareness != 1.0 {
		t.Errorf("context awareness = %v, want 1.0", m.ContextAwareness)
	}

	plan.Persona = domain.PersonaDataEngineer
	m = e.Evaluate(testutil.NewTestContext(t), query, plan, answer, state)
	if m.ContextAwareness != 0.5 {
		t.Errorf("context awareness = %v, want 0.5", m.ContextAwareness)
	}
}
