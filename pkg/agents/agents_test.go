package agents

import (
	"errors"
	"strings"
	"testing"

	"github.com/revintel/insight-agent/internal/testutil"
	"github.com/revintel/insight-agent/pkg/dataexec"
	"github.com/revintel/insight-agent/pkg/domain"
	"github.com/revintel/insight-agent/pkg/modeltier"
)

func newDataRegistry(t *testing.T, sources ...domain.DataSource) *dataexec.Registry {
	t.Helper()
	registry := dataexec.NewRegistry()
	for _, source := range sources {
		if err := registry.Register(testutil.NewMockDataExecutor(source)); err != nil {
			t.Fatalf("register %s: %v", source, err)
		}
	}
	return registry
}

func TestRegistryResolvesByCategory(t *testing.T) {
	registry := NewRegistry()
	data := newDataRegistry(t, domain.SourceCRM)

	if err := registry.Register(NewDataFetchExecutor(data)); err != nil {
		t.Fatalf("register: %v", err)
	}

	exec, err := registry.Get(domain.CategoryDataFetch)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if exec.Category() != domain.CategoryDataFetch {
		t.Errorf("category = %s, want data_fetch", exec.Category())
	}

	if _, err := registry.Get(domain.CategoryNarration); err == nil {
		t.Error("expected error for unregistered category")
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	registry := NewRegistry()
	data := newDataRegistry(t, domain.SourceCRM)

	if err := registry.Register(NewDataFetchExecutor(data)); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := registry.Register(NewDataFetchExecutor(data)); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}

func TestFetchExecutorRoutesBySource(t *testing.T) {
	data := newDataRegistry(t, domain.SourceCRM, domain.SourceWarehouse)
	exec := NewDataFetchExecutor(data)

	task := &domain.AgentTask{ID: "fetch_crm", Category: domain.CategoryDataFetch, Source: domain.SourceCRM}
	in := domain.NodeInput{
		Query: testutil.NewTestQuery("What's our win rate?"),
		Plan:  testutil.NewTestPlan(domain.IntentDataQuery, domain.ComplexitySimple),
	}

	result, err := exec.Execute(testutil.NewTestContext(t), task, in)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Source != domain.SourceCRM {
		t.Errorf("source = %s, want crm", result.Source)
	}
	rows, ok := result.Payload.([]map[string]interface{})
	if !ok || len(rows) == 0 {
		t.Errorf("expected row payload, got %T", result.Payload)
	}
}

func TestFetchExecutorRejectsMissingSource(t *testing.T) {
	exec := NewDataFetchExecutor(newDataRegistry(t, domain.SourceCRM))

	task := &domain.AgentTask{ID: "fetch", Category: domain.CategoryDataFetch}
	_, err := exec.Execute(testutil.NewTestContext(t), task, domain.NodeInput{})
	if !errors.Is(err, domain.ErrQueryInvalid) {
		t.Errorf("expected ErrQueryInvalid, got %v", err)
	}
}

func TestCorrelationWithoutUpstreamSucceeds(t *testing.T) {
	llm := testutil.NewMockReasoningClient()
	exec := NewCorrelationExecutor(llm, modeltier.NewSelector(modeltier.EnvDevelopment))

	task := &domain.AgentTask{ID: "correlate", Category: domain.CategoryCorrelation}
	result, err := exec.Execute(testutil.NewTestContext(t), task, domain.NodeInput{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if llm.Calls() != 0 {
		t.Errorf("expected no model call with empty upstream, got %d", llm.Calls())
	}
	if result.Summary == "" {
		t.Error("expected explanatory summary")
	}
}

func TestCorrelationUsesAccurateTier(t *testing.T) {
	llm := testutil.NewMockReasoningClient()
	exec := NewCorrelationExecutor(llm, modeltier.NewSelector(modeltier.EnvDevelopment))

	in := domain.NodeInput{
		Query: testutil.NewTestQuery("Why is win rate declining?"),
		Upstream: map[string]*domain.TaskResult{
			"fetch_crm":       {Summary: "34 deals closed", Source: domain.SourceCRM},
			"fetch_warehouse": {Summary: "win rate down 6 points", Source: domain.SourceWarehouse},
		},
	}

	task := &domain.AgentTask{ID: "correlate", Category: domain.CategoryCorrelation}
	if _, err := exec.Execute(testutil.NewTestContext(t), task, in); err != nil {
		t.Fatalf("execute: %v", err)
	}

	if llm.LastTier != domain.TierAccurate {
		t.Errorf("tier = %s, want accurate", llm.LastTier)
	}
	for _, want := range []string{"fetch_crm", "fetch_warehouse", "win rate down 6 points"} {
		if !strings.Contains(llm.LastPrompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestNarrationFramesPersona(t *testing.T) {
	llm := testutil.NewMockReasoningClient()
	exec := NewNarrationExecutor(llm, modeltier.NewSelector(modeltier.EnvDevelopment))

	plan := testutil.NewTestPlan(domain.IntentDataQuery, domain.ComplexitySimple)
	plan.Persona = domain.PersonaVPSales

	in := domain.NodeInput{
		Query: testutil.NewTestQuery("What's our win rate?"),
		Plan:  plan,
		Upstream: map[string]*domain.TaskResult{
			"fetch_crm": {Summary: "win rate 34%", Source: domain.SourceCRM},
		},
	}

	task := &domain.AgentTask{ID: "narration", Category: domain.CategoryNarration}
	result, err := exec.Execute(testutil.NewTestContext(t), task, in)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if !strings.Contains(llm.LastPrompt, "executive") {
		t.Errorf("prompt missing persona framing: %q", llm.LastPrompt)
	}
	if result.Summary != "Mock completion" {
		t.Errorf("summary = %q", result.Summary)
	}
}

func TestNarrationAcknowledgesMissingUpstream(t *testing.T) {
	llm := testutil.NewMockReasoningClient()
	exec := NewNarrationExecutor(llm, modeltier.NewSelector(modeltier.EnvDevelopment))

	in := domain.NodeInput{
		Query: testutil.NewTestQuery("How healthy is the pipeline?"),
		Plan:  testutil.NewTestPlan(domain.IntentMultiSource, domain.ComplexityComplex),
		Upstream: map[string]*domain.TaskResult{
			"fetch_crm": {Summary: "212 open deals", Source: domain.SourceCRM},
		},
		MissingUpstream: []string{"fetch_warehouse"},
	}

	task := &domain.AgentTask{ID: "narration", Category: domain.CategoryNarration}
	if _, err := exec.Execute(testutil.NewTestContext(t), task, in); err != nil {
		t.Fatalf("execute: %v", err)
	}

	if !strings.Contains(llm.LastPrompt, "fetch_warehouse") {
		t.Error("prompt should name the missing dependency")
	}
}

func TestNarrationUnsupportedPlanSkipsModel(t *testing.T) {
	llm := testutil.NewMockReasoningClient()
	exec := NewNarrationExecutor(llm, modeltier.NewSelector(modeltier.EnvDevelopment))

	task := &domain.AgentTask{
		ID:       "narration",
		Category: domain.CategoryNarration,
		Marker:   domain.MarkerUnsupportedPlan,
	}

	result, err := exec.Execute(testutil.NewTestContext(t), task, domain.NodeInput{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if llm.Calls() != 0 {
		t.Errorf("expected no model call, got %d", llm.Calls())
	}
	if !strings.Contains(result.Summary, "supported") {
		t.Errorf("unexpected fallback text: %q", result.Summary)
	}
}

func TestNarrationPropagatesModelError(t *testing.T) {
	llm := testutil.NewMockReasoningClient()
	llm.ShouldError = true
	llm.Err = domain.ErrTimeout
	exec := NewNarrationExecutor(llm, modeltier.NewSelector(modeltier.EnvDevelopment))

	task := &domain.AgentTask{ID: "narration", Category: domain.CategoryNarration}
	in := domain.NodeInput{Query: testutil.NewTestQuery("What changed?")}

	_, err := exec.Execute(testutil.NewTestContext(t), task, in)
	if !errors.Is(err, domain.ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
}
