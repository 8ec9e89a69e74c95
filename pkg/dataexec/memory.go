package dataexec

import (
	"context"
	"fmt"
	"strings"

	"github.com/revintel/insight-agent/pkg/domain"
)

// MemoryExecutor is an in-process executor backed by seeded row sets,
// used when a gateway is disabled and in local development.
type MemoryExecutor struct {
	source   domain.DataSource
	datasets map[string][]map[string]interface{}
}

// NewMemoryExecutor creates an executor over static datasets keyed by
// topic. Run matches the request text against topic keys.
func NewMemoryExecutor(source domain.DataSource, datasets map[string][]map[string]interface{}) *MemoryExecutor {
	if datasets == nil {
		datasets = defaultDatasets(source)
	}
	return &MemoryExecutor{
		source:   source,
		datasets: datasets,
	}
}

// Source returns the data source this executor serves
func (e *MemoryExecutor) Source() domain.DataSource {
	return e.source
}

// Run resolves a request against the seeded datasets.
func (e *MemoryExecutor) Run(ctx context.Context, req domain.DataRequest) (*domain.DataResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Source != e.source {
		return nil, fmt.Errorf("%w: executor serves %s, request targets %s", domain.ErrQueryInvalid, e.source, req.Source)
	}
	if strings.TrimSpace(req.Request) == "" {
		return nil, fmt.Errorf("%w: empty request", domain.ErrQueryInvalid)
	}

	request := strings.ToLower(req.Request)
	for topic, rows := range e.datasets {
		if strings.Contains(request, topic) {
			return &domain.DataResult{
				Rows:    rows,
				Summary: fmt.Sprintf("%d rows from %s (%s)", len(rows), e.source, topic),
			}, nil
		}
	}

	// Unknown topics return an empty result set, not an error.
	return &domain.DataResult{
		Rows:    []map[string]interface{}{},
		Summary: fmt.Sprintf("0 rows from %s", e.source),
	}, nil
}

func defaultDatasets(source domain.DataSource) map[string][]map[string]interface{} {
	switch source {
	case domain.SourceCRM:
		return map[string][]map[string]interface{}{
			"win rate": {
				{"quarter": "Q1", "won": 42, "lost": 78, "win_rate": 0.35},
				{"quarter": "Q2", "won": 38, "lost": 85, "win_rate": 0.31},
			},
			"pipeline": {
				{"stage": "prospecting", "count": 120, "value": 2_400_000},
				{"stage": "negotiation", "count": 35, "value": 1_800_000},
				{"stage": "closed_won", "count": 42, "value": 950_000},
			},
			"deals": {
				{"name": "Acme expansion", "amount": 250_000, "stage": "negotiation"},
				{"name": "Globex renewal", "amount": 120_000, "stage": "closed_won"},
			},
		}
	case domain.SourceWarehouse:
		return map[string][]map[string]interface{}{
			"win rate": {
				{"month": "2026-05", "win_rate": 0.36, "cycle_days": 41},
				{"month": "2026-06", "win_rate": 0.33, "cycle_days": 45},
				{"month": "2026-07", "win_rate": 0.30, "cycle_days": 49},
			},
			"revenue": {
				{"month": "2026-06", "revenue": 1_150_000},
				{"month": "2026-07", "revenue": 1_050_000},
			},
		}
	case domain.SourceTransforms:
		return map[string][]map[string]interface{}{
			"win rate": {
				{"model": "fct_opportunity_outcomes", "freshness": "4h", "rows": 18234},
			},
			"health": {
				{"model": "dim_accounts", "tests_passed": 34, "tests_failed": 0},
			},
		}
	default:
		return map[string][]map[string]interface{}{}
	}
}
