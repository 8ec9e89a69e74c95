// Package modeltier maps task categories to reasoning model tiers based
// on the deployment environment, trading cost against quality.
package modeltier

import (
	"github.com/revintel/insight-agent/pkg/domain"
)

// Environment selects which column of the model table applies.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// ParseEnvironment normalizes a config string, defaulting to development.
func ParseEnvironment(s string) Environment {
	if Environment(s) == EnvProduction {
		return EnvProduction
	}
	return EnvDevelopment
}

// modelTable maps environment and tier to a concrete model identifier.
// Development uses cheaper models across the board.
var modelTable = map[Environment]map[domain.Tier]string{
	EnvDevelopment: {
		domain.TierUltraFast: "gpt-4o-mini",
		domain.TierFast:      "gpt-3.5-turbo",
		domain.TierBalanced:  "gpt-4o",
		domain.TierAccurate:  "gpt-4-turbo",
	},
	EnvProduction: {
		domain.TierUltraFast: "gpt-4o-mini",
		domain.TierFast:      "gpt-4o",
		domain.TierBalanced:  "gpt-4-turbo",
		domain.TierAccurate:  "gpt-4",
	},
}

// pricing is per 1K tokens in USD.
var pricing = map[string]struct{ input, output float64 }{
	"gpt-4o-mini":   {0.00015, 0.0006},
	"gpt-3.5-turbo": {0.0015, 0.002},
	"gpt-4o":        {0.005, 0.015},
	"gpt-4-turbo":   {0.01, 0.03},
	"gpt-4":         {0.03, 0.06},
}

// categoryTiers assigns each task category the cheapest tier that still
// produces acceptable output for it.
var categoryTiers = map[domain.TaskCategory]domain.Tier{
	domain.CategoryDataFetch:      domain.TierFast,
	domain.CategoryAnalyticsFetch: domain.TierBalanced,
	domain.CategoryCorrelation:    domain.TierAccurate,
	domain.CategoryNarration:      domain.TierAccurate,
}

// Selector implements domain.TierSelector for a fixed environment.
type Selector struct {
	env Environment
}

// NewSelector creates a tier selector for the given environment.
func NewSelector(env Environment) *Selector {
	if _, ok := modelTable[env]; !ok {
		env = EnvDevelopment
	}
	return &Selector{env: env}
}

// Environment returns the environment the selector was built for.
func (s *Selector) Environment() Environment {
	return s.env
}

// Select returns the reasoning tier for a task category. Unknown
// categories get the cheapest tier rather than an error.
func (s *Selector) Select(category domain.TaskCategory) domain.Tier {
	if tier, ok := categoryTiers[category]; ok {
		return tier
	}
	return domain.TierUltraFast
}

// ClassificationTier is the tier used for intent classification. It is
// always the cheapest tier regardless of environment.
func (s *Selector) ClassificationTier() domain.Tier {
	return domain.TierUltraFast
}

// Model resolves a tier to the concrete model identifier for the
// selector's environment.
func (s *Selector) Model(tier domain.Tier) string {
	table := modelTable[s.env]
	if m, ok := table[tier]; ok {
		return m
	}
	return table[domain.TierUltraFast]
}

// EstimateCost returns the estimated USD cost of a completion, or zero
// for unknown models.
func EstimateCost(usage domain.TokenUsage, model string) float64 {
	p, ok := pricing[model]
	if !ok {
		return 0
	}
	return (float64(usage.PromptTokens)*p.input + float64(usage.CompletionTokens)*p.output) / 1000
}
