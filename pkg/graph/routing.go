package graph

import (
	"github.com/revintel/insight-agent/pkg/domain"
)

// NodeTemplate is one node in a route before plan-specific expansion.
type NodeTemplate struct {
	ID        string
	Category  domain.TaskCategory
	Source    domain.DataSource
	DependsOn []string
	Critical  bool
}

// RouteKey addresses the routing table by what the plan asks for.
type RouteKey struct {
	Intent     domain.IntentKind
	Complexity domain.Complexity
}

// RoutingTable maps (intent, complexity) pairs to node template lists.
// New intent/complexity combinations are a data change here, not a
// control-flow change in the builder.
type RoutingTable map[RouteKey][]NodeTemplate

// narrationNode is the terminal template every route converges on.
func narrationNode(deps ...string) NodeTemplate {
	return NodeTemplate{
		ID:        "narration",
		Category:  domain.CategoryNarration,
		DependsOn: deps,
		Critical:  true,
	}
}

// DefaultTable returns the built-in routing table.
func DefaultTable() RoutingTable {
	table := RoutingTable{}

	// Direct answers skip data fetching entirely.
	for _, c := range []domain.Complexity{domain.ComplexitySimple, domain.ComplexityModerate, domain.ComplexityComplex, domain.ComplexityAdvanced} {
		table[RouteKey{domain.IntentDirectAnswer, c}] = []NodeTemplate{
			narrationNode(),
		}
	}

	// Data queries: single fetch from the CRM, widening to the plan's
	// sources at higher complexity.
	table[RouteKey{domain.IntentDataQuery, domain.ComplexitySimple}] = []NodeTemplate{
		{ID: "fetch_crm", Category: domain.CategoryDataFetch, Source: domain.SourceCRM},
		narrationNode("fetch_crm"),
	}
	for _, c := range []domain.Complexity{domain.ComplexityModerate, domain.ComplexityComplex, domain.ComplexityAdvanced} {
		table[RouteKey{domain.IntentDataQuery, c}] = []NodeTemplate{
			{ID: "fetch_crm", Category: domain.CategoryDataFetch, Source: domain.SourceCRM},
			{ID: "fetch_warehouse", Category: domain.CategoryAnalyticsFetch, Source: domain.SourceWarehouse},
			narrationNode("fetch_crm", "fetch_warehouse"),
		}
	}

	// Analytical queries read the warehouse; complex ones add CRM
	// context and a correlation pass.
	for _, c := range []domain.Complexity{domain.ComplexitySimple, domain.ComplexityModerate} {
		table[RouteKey{domain.IntentAnalytical, c}] = []NodeTemplate{
			{ID: "fetch_warehouse", Category: domain.CategoryAnalyticsFetch, Source: domain.SourceWarehouse},
			narrationNode("fetch_warehouse"),
		}
	}
	for _, c := range []domain.Complexity{domain.ComplexityComplex, domain.ComplexityAdvanced} {
		table[RouteKey{domain.IntentAnalytical, c}] = []NodeTemplate{
			{ID: "fetch_crm", Category: domain.CategoryDataFetch, Source: domain.SourceCRM},
			{ID: "fetch_warehouse", Category: domain.CategoryAnalyticsFetch, Source: domain.SourceWarehouse},
			{ID: "correlate", Category: domain.CategoryCorrelation, DependsOn: []string{"fetch_crm", "fetch_warehouse"}},
			narrationNode("correlate"),
		}
	}

	// Multi-source and reasoning plans always fan out in parallel and
	// converge on a correlation node.
	for _, intent := range []domain.IntentKind{domain.IntentMultiSource, domain.IntentReasoning} {
		for _, c := range []domain.Complexity{domain.ComplexitySimple, domain.ComplexityModerate, domain.ComplexityComplex, domain.ComplexityAdvanced} {
			table[RouteKey{intent, c}] = []NodeTemplate{
				{ID: "fetch_crm", Category: domain.CategoryDataFetch, Source: domain.SourceCRM},
				{ID: "fetch_warehouse", Category: domain.CategoryAnalyticsFetch, Source: domain.SourceWarehouse},
				{ID: "correlate", Category: domain.CategoryCorrelation, DependsOn: []string{"fetch_crm", "fetch_warehouse"}},
				narrationNode("correlate"),
			}
		}
	}

	// Digests sweep both primary sources, no correlation pass.
	for _, c := range []domain.Complexity{domain.ComplexitySimple, domain.ComplexityModerate, domain.ComplexityComplex, domain.ComplexityAdvanced} {
		table[RouteKey{domain.IntentScheduledDigest, c}] = []NodeTemplate{
			{ID: "fetch_crm", Category: domain.CategoryDataFetch, Source: domain.SourceCRM},
			{ID: "fetch_warehouse", Category: domain.CategoryAnalyticsFetch, Source: domain.SourceWarehouse},
			narrationNode("fetch_crm", "fetch_warehouse"),
		}
	}

	return table
}
