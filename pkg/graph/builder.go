// Package graph expands a classified plan into a validated DAG of agent
// tasks for the scheduler.
package graph

import (
	"context"
	"fmt"

	"github.com/revintel/insight-agent/pkg/domain"
	"github.com/revintel/insight-agent/pkg/observability"
)

// Builder turns plans into DAGs using a declarative routing table.
type Builder struct {
	table  RoutingTable
	logger observability.Logger
}

// NewBuilder creates a builder. A nil table uses DefaultTable.
func NewBuilder(table RoutingTable, logger observability.Logger) *Builder {
	if table == nil {
		table = DefaultTable()
	}
	if logger == nil {
		logger = observability.NewStructuredLogger("graph")
	}
	return &Builder{table: table, logger: logger}
}

// Build expands a plan into a DAG. Deterministic for a given plan and
// table. A plan with no routing entry degrades to a single narration
// node carrying the unsupported-plan marker; the only error is a cyclic
// route, which indicates a corrupt table and aborts the run.
func (b *Builder) Build(ctx context.Context, plan domain.Plan) (*domain.DAG, error) {
	templates, ok := b.table[RouteKey{plan.Intent, plan.Complexity}]
	if !ok {
		b.logger.Warn(ctx, "no route for plan, degrading to direct narration", map[string]interface{}{
			"intent":     string(plan.Intent),
			"complexity": plan.Complexity.String(),
			"error":      domain.ErrRoutingGap.Error(),
		})
		return &domain.DAG{
			Nodes: map[string]*domain.AgentTask{
				"narration": {
					ID:       "narration",
					Category: domain.CategoryNarration,
					Critical: true,
					Marker:   domain.MarkerUnsupportedPlan,
				},
			},
		}, nil
	}

	dag := &domain.DAG{Nodes: make(map[string]*domain.AgentTask, len(templates))}
	for _, tmpl := range templates {
		dag.Nodes[tmpl.ID] = &domain.AgentTask{
			ID:        tmpl.ID,
			Category:  tmpl.Category,
			Source:    tmpl.Source,
			DependsOn: append([]string(nil), tmpl.DependsOn...),
			Critical:  tmpl.Critical,
		}
	}

	if err := ValidateAcyclic(dag); err != nil {
		return nil, fmt.Errorf("routing table produced an invalid graph for %s/%s: %w",
			plan.Intent, plan.Complexity, err)
	}

	return dag, nil
}

// ValidateAcyclic confirms every dependency id exists and the edge set
// has no cycle, using Kahn's algorithm.
func ValidateAcyclic(dag *domain.DAG) error {
	indegree := make(map[string]int, len(dag.Nodes))
	dependents := make(map[string][]string, len(dag.Nodes))

	for id, node := range dag.Nodes {
		if _, ok := indegree[id]; !ok {
			indegree[id] = 0
		}
		for _, dep := range node.DependsOn {
			if _, ok := dag.Nodes[dep]; !ok {
				return fmt.Errorf("node %s depends on unknown node %s", id, dep)
			}
			indegree[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	queue := make([]string, 0, len(dag.Nodes))
	for id, deg := range indegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}

	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, dependent := range dependents[id] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if visited != len(dag.Nodes) {
		return fmt.Errorf("graph contains a cycle (%d of %d nodes reachable)", visited, len(dag.Nodes))
	}
	return nil
}
