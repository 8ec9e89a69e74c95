// Package agents provides the node executors the scheduler dispatches:
// data fetchers backed by the source registry and reasoning executors
// backed by the tiered model client.
package agents

import (
	"fmt"
	"sort"
	"sync"

	"github.com/revintel/insight-agent/pkg/domain"
)

// Registry resolves node executors by task category
type Registry struct {
	mu        sync.RWMutex
	executors map[domain.TaskCategory]domain.NodeExecutor
}

// NewRegistry creates an empty node executor registry
func NewRegistry() *Registry {
	return &Registry{
		executors: make(map[domain.TaskCategory]domain.NodeExecutor),
	}
}

// Register registers an executor for its category
func (r *Registry) Register(exec domain.NodeExecutor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if exec == nil {
		return fmt.Errorf("executor cannot be nil")
	}

	category := exec.Category()
	if category == "" {
		return fmt.Errorf("executor category cannot be empty")
	}

	if _, exists := r.executors[category]; exists {
		return fmt.Errorf("executor for %s already registered", category)
	}

	r.executors[category] = exec
	return nil
}

// Get retrieves an executor by category
func (r *Registry) Get(category domain.TaskCategory) (domain.NodeExecutor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exec, exists := r.executors[category]
	if !exists {
		return nil, fmt.Errorf("no executor for category %s", category)
	}

	return exec, nil
}

// Categories returns the registered categories in sorted order
func (r *Registry) Categories() []domain.TaskCategory {
	r.mu.RLock()
	defer r.mu.RUnlock()

	categories := make([]domain.TaskCategory, 0, len(r.executors))
	for category := range r.executors {
		categories = append(categories, category)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })

	return categories
}
