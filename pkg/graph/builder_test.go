package graph_test

import (
	"context"
	"testing"

	"github.com/revintel/insight-agent/internal/testutil"
	"github.com/revintel/insight-agent/pkg/domain"
	"github.com/revintel/insight-agent/pkg/graph"
)

func TestSimpleDataQueryIsSingleFetch(t *testing.T) {
	b := graph.NewBuilder(nil, nil)
	plan := testutil.NewTestPlan(domain.IntentDataQuery, domain.ComplexitySimple)

	dag, err := b.Build(context.Background(), plan)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(dag.Nodes) != 2 {
		t.Fatalf("nodes = %d, want 2 (fetch + narration)", len(dag.Nodes))
	}
	fetch, ok := dag.Nodes["fetch_crm"]
	if !ok {
		t.Fatal("fetch_crm node missing")
	}
	if fetch.Category != domain.CategoryDataFetch || fetch.Source != domain.SourceCRM {
		t.Errorf("fetch node = %+v", fetch)
	}
	narration := dag.Nodes["narration"]
	if narration == nil || !narration.Critical {
		t.Error("narration node must exist and be critical")
	}
}

func TestReasoningPlanHasCorrelationNode(t *testing.T) {
	b := graph.NewBuilder(nil, nil)
	plan := testutil.NewTestPlan(domain.IntentReasoning, domain.ComplexityComplex)

	dag, err := b.Build(context.Background(), plan)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	correlate, ok := dag.Nodes["correlate"]
	if !ok {
		t.Fatal("correlate node missing")
	}
	if len(correlate.DependsOn) != 2 {
		t.Errorf("correlate deps = %v, want two parallel fetches", correlate.DependsOn)
	}
	narration := dag.Nodes["narration"]
	if len(narration.DependsOn) != 1 || narration.DependsOn[0] != "correlate" {
		t.Errorf("narration deps = %v, want [correlate]", narration.DependsOn)
	}
}

func TestAllRoutesAreAcyclic(t *testing.T) {
	b := graph.NewBuilder(nil, nil)

	for _, intent := range domain.KnownIntents {
		for _, c := range []domain.Complexity{domain.ComplexitySimple, domain.ComplexityModerate, domain.ComplexityComplex, domain.ComplexityAdvanced} {
			plan := testutil.NewTestPlan(intent, c)
			dag, err := b.Build(context.Background(), plan)
			if err != nil {
				t.Fatalf("Build(%s/%s): %v", intent, c, err)
			}
			if err := graph.ValidateAcyclic(dag); err != nil {
				t.Errorf("route %s/%s: %v", intent, c, err)
			}
			if _, ok := dag.Nodes["narration"]; !ok {
				t.Errorf("route %s/%s has no narration node", intent, c)
			}
		}
	}
}

func TestUnknownPlanFailsClosed(t *testing.T) {
	b := graph.NewBuilder(graph.RoutingTable{}, nil)
	plan := testutil.NewTestPlan(domain.IntentDataQuery, domain.ComplexitySimple)

	dag, err := b.Build(context.Background(), plan)
	if err != nil {
		t.Fatalf("Build must not error on a routing gap: %v", err)
	}

	if len(dag.Nodes) != 1 {
		t.Fatalf("nodes = %d, want single narration node", len(dag.Nodes))
	}
	node := dag.Nodes["narration"]
	if node == nil {
		t.Fatal("narration node missing")
	}
	if node.Marker != domain.MarkerUnsupportedPlan {
		t.Errorf("marker = %q, want %q", node.Marker, domain.MarkerUnsupportedPlan)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	b := graph.NewBuilder(nil, nil)
	plan := testutil.NewTestPlan(domain.IntentMultiSource, domain.ComplexityAdvanced)

	first, err := b.Build(context.Background(), plan)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	second, err := b.Build(context.Background(), plan)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(first.Nodes) != len(second.Nodes) {
		t.Fatalf("node counts differ: %d vs %d", len(first.Nodes), len(second.Nodes))
	}
	for id, node := range first.Nodes {
		other, ok := second.Nodes[id]
		if !ok {
			t.Errorf("node %s missing from second build", id)
			continue
		}
		if node.Category != other.Category || node.Source != other.Source || len(node.DependsOn) != len(other.DependsOn) {
			t.Errorf("node %s differs: %+v vs %+v", id, node, other)
		}
	}
}

func TestValidateAcyclicDetectsCycle(t *testing.T) {
	dag := &domain.DAG{
		Nodes: map[string]*domain.AgentTask{
			"a": {ID: "a", DependsOn: []string{"b"}},
			"b": {ID: "b", DependsOn: []string{"a"}},
		},
	}
	if err := graph.ValidateAcyclic(dag); err == nil {
		t.Error("expected cycle error")
	}
}

func TestValidateAcyclicDetectsUnknownDependency(t *testing.T) {
	dag := &domain.DAG{
		Nodes: map[string]*domain.AgentTask{
			"a": {ID: "a", DependsOn: []string{"ghost"}},
		},
	}
	if err := graph.ValidateAcyclic(dag); err == nil {
		t.Error("expected unknown-dependency error")
	}
}
