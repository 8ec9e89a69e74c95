package domain

import (
	"context"
)

// ReasoningClient is the external LLM executor. Implementations must map
// transport failures onto the executor failure kinds (ErrTimeout,
// ErrRateLimited, ErrAuth, ErrMalformedResponse) so callers can decide
// whether to retry or fall back.
type ReasoningClient interface {
	// Complete sends a prompt to the reasoning model for the given tier
	// and returns the raw completion. Output is unstructured; callers
	// parse and validate.
	Complete(ctx context.Context, prompt string, tier Tier) (*Completion, error)
}

// DataExecutor runs structured sub-queries against one external data
// system (CRM, warehouse, or transform layer).
type DataExecutor interface {
	// Run executes a data request, failing with ErrConnectionFailed,
	// ErrQueryInvalid or ErrTimeout.
	Run(ctx context.Context, req DataRequest) (*DataResult, error)
}

// NodeInput is everything a node executor may read: the originating
// query and plan, a read-only context snapshot, and the write-once
// results of every upstream dependency that terminated successfully.
type NodeInput struct {
	Query    Query
	Plan     Plan
	Context  ContextState
	Upstream map[string]*TaskResult
	// MissingUpstream names dependencies that failed or were degraded.
	// A non-empty list means the node runs in degraded mode.
	MissingUpstream []string
}

// NodeExecutor runs one category of DAG node. Implementations are
// resolved by category at dispatch time.
type NodeExecutor interface {
	Category() TaskCategory
	Execute(ctx context.Context, task *AgentTask, in NodeInput) (*TaskResult, error)
}

// ExecutorRegistry resolves node executors by task category.
type ExecutorRegistry interface {
	Register(exec NodeExecutor) error
	Get(category TaskCategory) (NodeExecutor, error)
	Categories() []TaskCategory
}

// Classifier turns a raw query plus optional session context into a Plan.
// It never returns an error to the caller; internal failures degrade
// through the fallback chain.
type Classifier interface {
	Classify(ctx context.Context, query Query, state *ContextState) Plan
}

// ContextStore manages per-user session state with per-key mutual
// exclusion. Cross-user access is independent and unordered.
type ContextStore interface {
	// Get returns a snapshot of the user's state, creating an empty one
	// on first access.
	Get(ctx context.Context, userID string) (ContextState, error)
	// Append records a completed interaction, evicting the oldest entry
	// when the bounded window overflows.
	Append(ctx context.Context, userID string, in Interaction) error
	// Preferences returns the accumulated preference weights.
	Preferences(ctx context.Context, userID string) (Preferences, error)
}

// KVStore is the abstract session persistence layer. Only get/put
// semantics are required; Get returns ErrKeyNotFound for absent keys.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// TierSelector maps a task category to a reasoning tier for the current
// environment. Pure; always returns a usable tier.
type TierSelector interface {
	Select(category TaskCategory) Tier
}
