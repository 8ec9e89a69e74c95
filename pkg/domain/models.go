package domain

import (
	"time"
)

// IntentKind classifies what a query is asking the system to do.
type IntentKind string

const (
	IntentDirectAnswer    IntentKind = "direct_answer"
	IntentDataQuery       IntentKind = "data_query"
	IntentAnalytical      IntentKind = "analytical"
	IntentMultiSource     IntentKind = "multi_source"
	IntentReasoning       IntentKind = "reasoning"
	IntentScheduledDigest IntentKind = "scheduled_digest"
)

// KnownIntents lists every intent kind in declaration order. The catalog
// classifier uses this order to break score ties.
var KnownIntents = []IntentKind{
	IntentDirectAnswer,
	IntentDataQuery,
	IntentAnalytical,
	IntentMultiSource,
	IntentReasoning,
	IntentScheduledDigest,
}

// Valid reports whether the intent kind is one of the known variants.
func (k IntentKind) Valid() bool {
	for _, known := range KnownIntents {
		if k == known {
			return true
		}
	}
	return false
}

// Complexity is an ordered estimate of how much work a query requires.
type Complexity int

const (
	ComplexitySimple Complexity = iota
	ComplexityModerate
	ComplexityComplex
	ComplexityAdvanced
)

// String returns the wire representation of the complexity level.
func (c Complexity) String() string {
	switch c {
	case ComplexitySimple:
		return "simple"
	case ComplexityModerate:
		return "moderate"
	case ComplexityComplex:
		return "complex"
	case ComplexityAdvanced:
		return "advanced"
	default:
		return "unknown"
	}
}

// ParseComplexity converts a wire string into a Complexity level.
func ParseComplexity(s string) (Complexity, bool) {
	switch s {
	case "simple":
		return ComplexitySimple, true
	case "moderate":
		return ComplexityModerate, true
	case "complex":
		return ComplexityComplex, true
	case "advanced":
		return ComplexityAdvanced, true
	default:
		return ComplexitySimple, false
	}
}

// Persona identifies the audience a response should be framed for.
type Persona string

const (
	PersonaVPSales          Persona = "vp_sales"
	PersonaAccountExecutive Persona = "account_executive"
	PersonaSalesManager     Persona = "sales_manager"
	PersonaCDO              Persona = "cdo"
	PersonaDataEngineer     Persona = "data_engineer"
	PersonaSalesOperations  Persona = "sales_operations"
	PersonaCustomerSuccess  Persona = "customer_success"
	PersonaGeneral          Persona = "general"
)

// DataSource identifies an external data system a task reads from.
type DataSource string

const (
	SourceCRM        DataSource = "crm"
	SourceWarehouse  DataSource = "warehouse"
	SourceTransforms DataSource = "transforms"
)

// KnownSources lists every data source the router can target.
var KnownSources = []DataSource{SourceCRM, SourceWarehouse, SourceTransforms}

// Query is an immutable incoming request.
type Query struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
	// Synthetic marks queries generated by the digest scheduler rather
	// than typed by a user.
	Synthetic bool `json:"synthetic,omitempty"`
}

// ClassifierTier records which layer of the fallback chain produced a Plan.
type ClassifierTier int

const (
	TierModel ClassifierTier = iota + 1
	TierCatalog
	TierHeuristic
)

// String returns a short label for the classifier tier.
func (t ClassifierTier) String() string {
	switch t {
	case TierModel:
		return "model"
	case TierCatalog:
		return "catalog"
	case TierHeuristic:
		return "heuristic"
	default:
		return "unknown"
	}
}

// Plan is the classifier's structured output and drives graph construction.
// Intent is always set, even when every classification tier degraded.
type Plan struct {
	Intent      IntentKind     `json:"intent"`
	Complexity  Complexity     `json:"complexity"`
	Persona     Persona        `json:"persona"`
	Confidence  float64        `json:"confidence"`
	DataSources []DataSource   `json:"data_sources,omitempty"`
	Tier        ClassifierTier `json:"tier"`
	Explanation string         `json:"explanation,omitempty"`
}

// TaskCategory maps a DAG node to the executor capability it needs and,
// through the tier selector, to a reasoning tier.
type TaskCategory string

const (
	CategoryDataFetch      TaskCategory = "data_fetch"
	CategoryAnalyticsFetch TaskCategory = "analytics_fetch"
	CategoryCorrelation    TaskCategory = "correlation"
	CategoryNarration      TaskCategory = "narration"
)

// TaskState is the execution state of a DAG node.
type TaskState string

const (
	TaskPending   TaskState = "pending"
	TaskRunning   TaskState = "running"
	TaskSucceeded TaskState = "succeeded"
	TaskFailed    TaskState = "failed"
	TaskDegraded  TaskState = "degraded"
)

// Terminal reports whether the state is final.
func (s TaskState) Terminal() bool {
	return s == TaskSucceeded || s == TaskFailed || s == TaskDegraded
}

// AgentTask is a single unit of work in the dependency graph.
type AgentTask struct {
	ID       string       `json:"id"`
	Category TaskCategory `json:"category"`
	// Source is set on fetch-category nodes to select a data executor
	// target; empty for reasoning nodes.
	Source    DataSource `json:"source,omitempty"`
	DependsOn []string   `json:"depends_on,omitempty"`
	// Critical nodes abort the whole run when they fail; non-critical
	// failures degrade downstream nodes instead.
	Critical bool `json:"critical,omitempty"`
	// Marker carries routing annotations, e.g. MarkerUnsupportedPlan
	// when the builder had no route for the plan.
	Marker string `json:"marker,omitempty"`
}

// MarkerUnsupportedPlan flags a fallback narration node built for a
// plan with no routing-table entry.
const MarkerUnsupportedPlan = "unsupported-plan"

// DAG is a validated, acyclic set of agent tasks keyed by node id.
type DAG struct {
	Nodes map[string]*AgentTask `json:"nodes"`
}

// TokenUsage tracks reasoning-model token consumption.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// TaskResult is the write-once output of a terminated node. The scheduler
// treats Payload as opaque.
type TaskResult struct {
	Payload interface{} `json:"payload,omitempty"`
	Summary string      `json:"summary,omitempty"`
	Source  DataSource  `json:"source,omitempty"`
	Usage   TokenUsage  `json:"usage,omitempty"`
}

// NodeOutcome records how a single node terminated within a run.
type NodeOutcome struct {
	State           TaskState   `json:"state"`
	Result          *TaskResult `json:"result,omitempty"`
	Err             string      `json:"error,omitempty"`
	MissingUpstream []string    `json:"missing_upstream,omitempty"`
	Attempts        int         `json:"attempts"`
	StartedAt       time.Time   `json:"started_at"`
	FinishedAt      time.Time   `json:"finished_at"`
}

// RunStatus is the aggregate status of a DAG run.
type RunStatus string

const (
	RunSuccess RunStatus = "success"
	RunPartial RunStatus = "partial"
	RunFailed  RunStatus = "failed"
)

// ExecutionResult is the full outcome of one DAG run.
type ExecutionResult struct {
	RunID       string                 `json:"run_id"`
	Status      RunStatus              `json:"status"`
	Nodes       map[string]NodeOutcome `json:"nodes"`
	Errors      []string               `json:"errors,omitempty"`
	StartedAt   time.Time              `json:"started_at"`
	CompletedAt time.Time              `json:"completed_at"`
}

// Answer is the final response returned to the caller. Callers always get
// an Answer; degradation shows up in Caveats, never as a bare error.
type Answer struct {
	ID          string                 `json:"id"`
	QueryID     string                 `json:"query_id"`
	Text        string                 `json:"text"`
	Caveats     []string               `json:"caveats,omitempty"`
	SourcesUsed []DataSource           `json:"sources_used,omitempty"`
	Degraded    bool                   `json:"degraded,omitempty"`
	TokensUsed  int                    `json:"tokens_used,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	GeneratedAt time.Time              `json:"generated_at"`
}

// QualityMetrics scores an answer on fixed rubric dimensions, each in
// [0,1]. Advisory only; nothing at runtime enforces the gate.
type QualityMetrics struct {
	Completeness     float64 `json:"completeness"`
	Relevance        float64 `json:"relevance"`
	Actionability    float64 `json:"actionability"`
	PersonaAlignment float64 `json:"persona_alignment"`
	ContextAwareness float64 `json:"context_awareness"`
	Passed           bool    `json:"passed"`
}

// Interaction is one completed (query, plan, result) triple in a user's
// session history.
type Interaction struct {
	Query         Query          `json:"query"`
	Plan          Plan           `json:"plan"`
	Status        RunStatus      `json:"status"`
	AnswerSummary string         `json:"answer_summary,omitempty"`
	Quality       QualityMetrics `json:"quality,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
}

// Preferences holds weights accumulated from a user's history.
type Preferences struct {
	SourceAffinity map[DataSource]float64 `json:"source_affinity,omitempty"`
	PersonaWeights map[Persona]float64    `json:"persona_weights,omitempty"`
}

// ContextState is a per-user session snapshot. The store owns the
// authoritative copy; consumers receive value copies and must not expect
// later mutations to be visible.
type ContextState struct {
	UserID       string        `json:"user_id"`
	History      []Interaction `json:"history,omitempty"`
	Preferences  Preferences   `json:"preferences"`
	SessionStart time.Time     `json:"session_start"`
}

// LastPersona returns the persona of the most recent interaction, or
// PersonaGeneral for an empty history.
func (c *ContextState) LastPersona() Persona {
	if c == nil || len(c.History) == 0 {
		return PersonaGeneral
	}
	return c.History[len(c.History)-1].Plan.Persona
}

// Tier is a cost/quality level of reasoning capability.
type Tier string

const (
	TierUltraFast Tier = "ultra_fast"
	TierFast      Tier = "fast"
	TierBalanced  Tier = "balanced"
	TierAccurate  Tier = "accurate"
)

// Completion is a reasoning executor response.
type Completion struct {
	Content string     `json:"content"`
	Model   string     `json:"model"`
	Usage   TokenUsage `json:"usage"`
}

// DataRequest is a structured sub-query handed to a data executor. The
// translation from natural language to request text is delegated to the
// external query-builder capability.
type DataRequest struct {
	Source  DataSource             `json:"source"`
	Request string                 `json:"request"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// DataResult is the row set returned by a data executor.
type DataResult struct {
	Rows    []map[string]interface{} `json:"rows"`
	Summary string                   `json:"summary,omitempty"`
}
