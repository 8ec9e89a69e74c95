package agents

import (
	"context"
	"fmt"

	"github.com/revintel/insight-agent/pkg/dataexec"
	"github.com/revintel/insight-agent/pkg/domain"
)

// FetchExecutor runs fetch-category nodes by routing the query to the
// data executor bound to the node's source. The same implementation
// serves both fetch categories; the node's Source field picks the target.
type FetchExecutor struct {
	category domain.TaskCategory
	data     *dataexec.Registry
}

// NewDataFetchExecutor serves data_fetch nodes (operational CRM reads).
func NewDataFetchExecutor(data *dataexec.Registry) *FetchExecutor {
	return &FetchExecutor{category: domain.CategoryDataFetch, data: data}
}

// NewAnalyticsFetchExecutor serves analytics_fetch nodes (warehouse and
// transform-layer reads).
func NewAnalyticsFetchExecutor(data *dataexec.Registry) *FetchExecutor {
	return &FetchExecutor{category: domain.CategoryAnalyticsFetch, data: data}
}

// Category returns the task category this executor serves
func (e *FetchExecutor) Category() domain.TaskCategory {
	return e.category
}

// Execute fetches rows for the node's source.
func (e *FetchExecutor) Execute(ctx context.Context, task *domain.AgentTask, in domain.NodeInput) (*domain.TaskResult, error) {
	if task.Source == "" {
		return nil, fmt.Errorf("%w: fetch node %s has no source", domain.ErrQueryInvalid, task.ID)
	}

	req := domain.DataRequest{
		Source:  task.Source,
		Request: in.Query.Text,
		Params: map[string]interface{}{
			"intent":     string(in.Plan.Intent),
			"complexity": in.Plan.Complexity.String(),
		},
	}

	result, err := e.data.Run(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetch from %s: %w", task.Source, err)
	}

	return &domain.TaskResult{
		Payload: result.Rows,
		Summary: result.Summary,
		Source:  task.Source,
	}, nil
}
