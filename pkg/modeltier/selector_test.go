package modeltier

import (
	"testing"

	"github.com/revintel/insight-agent/pkg/domain"
)

func TestSelectKnownCategories(t *testing.T) {
	s := NewSelector(EnvProduction)

	cases := map[domain.TaskCategory]domain.Tier{
		domain.CategoryDataFetch:      domain.TierFast,
		domain.CategoryAnalyticsFetch: domain.TierBalanced,
		domain.CategoryCorrelation:    domain.TierAccurate,
		domain.CategoryNarration:      domain.TierAccurate,
	}
	for category, want := range cases {
		if got := s.Select(category); got != want {
			t.Errorf("Select(%s) = %s, want %s", category, got, want)
		}
	}
}

func TestSelectUnknownCategoryIsCheapest(t *testing.T) {
	s := NewSelector(EnvDevelopment)
	if got := s.Select(domain.TaskCategory("telepathy")); got != domain.TierUltraFast {
		t.Errorf("unknown category: got %s, want %s", got, domain.TierUltraFast)
	}
}

func TestModelPerEnvironment(t *testing.T) {
	dev := NewSelector(EnvDevelopment)
	prod := NewSelector(EnvProduction)

	if got := dev.Model(domain.TierAccurate); got != "gpt-4-turbo" {
		t.Errorf("dev accurate model = %q", got)
	}
	if got := prod.Model(domain.TierAccurate); got != "gpt-4" {
		t.Errorf("prod accurate model = %q", got)
	}
	if dev.Model(domain.TierUltraFast) != prod.Model(domain.TierUltraFast) {
		t.Error("ultra_fast model should match across environments")
	}
}

func TestModelUnknownTierFallsBack(t *testing.T) {
	s := NewSelector(EnvProduction)
	if got := s.Model(domain.Tier("quantum")); got != "gpt-4o-mini" {
		t.Errorf("unknown tier model = %q, want cheapest", got)
	}
}

func TestParseEnvironment(t *testing.T) {
	if ParseEnvironment("production") != EnvProduction {
		t.Error("production should parse")
	}
	if ParseEnvironment("staging") != EnvDevelopment {
		t.Error("unknown environment should default to development")
	}
}

func TestEstimateCost(t *testing.T) {
	usage := domain.TokenUsage{PromptTokens: 1000, CompletionTokens: 1000, TotalTokens: 2000}
	got := EstimateCost(usage, "gpt-4")
	want := 0.03 + 0.06
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("EstimateCost = %f, want %f", got, want)
	}
	if EstimateCost(usage, "unknown-model") != 0 {
		t.Error("unknown model should cost zero")
	}
}
