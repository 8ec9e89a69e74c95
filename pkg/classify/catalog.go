package classify

import (
	"strings"

	"github.com/revintel/insight-agent/pkg/domain"
)

// CatalogEntry describes one intent kind for catalog-driven scoring:
// its trigger patterns, the complexity it typically carries, and the
// data sources a plan with this intent needs.
type CatalogEntry struct {
	Intent   domain.IntentKind
	Patterns []string
	Typical  domain.Complexity
	Sources  []domain.DataSource
}

// DefaultCatalog returns the built-in intent catalog. Declaration order
// matters: ties during scoring resolve to the earlier entry.
func DefaultCatalog() []CatalogEntry {
	return []CatalogEntry{
		{
			Intent:   domain.IntentDirectAnswer,
			Patterns: []string{"what is", "define", "explain what", "help", "status"},
			Typical:  domain.ComplexitySimple,
		},
		{
			Intent:   domain.IntentDataQuery,
			Patterns: []string{"show", "list", "how many", "win rate", "pipeline", "deals", "revenue", "accounts"},
			Typical:  domain.ComplexitySimple,
			Sources:  []domain.DataSource{domain.SourceCRM},
		},
		{
			Intent:   domain.IntentAnalytical,
			Patterns: []string{"analyze", "analysis", "trend", "compare", "insight", "performance", "breakdown"},
			Typical:  domain.ComplexityModerate,
			Sources:  []domain.DataSource{domain.SourceWarehouse},
		},
		{
			Intent:   domain.IntentMultiSource,
			Patterns: []string{"correlate", "correlation", "across", "impact", "combine", "together with"},
			Typical:  domain.ComplexityComplex,
			Sources:  []domain.DataSource{domain.SourceCRM, domain.SourceWarehouse},
		},
		{
			Intent:   domain.IntentReasoning,
			Patterns: []string{"why", "how should", "what should", "predict", "recommend", "root cause"},
			Typical:  domain.ComplexityComplex,
			Sources:  []domain.DataSource{domain.SourceCRM, domain.SourceWarehouse},
		},
		{
			Intent:   domain.IntentScheduledDigest,
			Patterns: []string{"briefing", "digest", "daily summary", "weekly summary"},
			Typical:  domain.ComplexityModerate,
			Sources:  []domain.DataSource{domain.SourceCRM, domain.SourceWarehouse},
		},
	}
}

// personaVocab maps personas to terms that signal them. Ordered slice,
// not a map, so scoring stays deterministic.
var personaVocab = []struct {
	Persona domain.Persona
	Terms   []string
}{
	{domain.PersonaVPSales, []string{"strategic", "revenue", "forecast", "board", "territory", "quota attainment"}},
	{domain.PersonaAccountExecutive, []string{"my deals", "my accounts", "call prep", "next steps", "my quota"}},
	{domain.PersonaSalesManager, []string{"team", "coaching", "rep performance", "one on one", "pipeline review"}},
	{domain.PersonaCDO, []string{"data strategy", "governance", "data quality", "analytics roi"}},
	{domain.PersonaDataEngineer, []string{"pipeline health", "dbt", "model run", "schema", "freshness", "warehouse"}},
	{domain.PersonaSalesOperations, []string{"process", "reporting", "attribution", "commission", "crm hygiene"}},
	{domain.PersonaCustomerSuccess, []string{"churn", "renewal", "adoption", "health score", "onboarding"}},
}

// InferPersona scans the query for persona vocabulary, falling back to
// the persona of the user's most recent interaction.
func InferPersona(text string, state *domain.ContextState) domain.Persona {
	lower := strings.ToLower(text)

	best := domain.PersonaGeneral
	bestHits := 0
	for _, entry := range personaVocab {
		hits := 0
		for _, term := range entry.Terms {
			if strings.Contains(lower, term) {
				hits++
			}
		}
		if hits > bestHits {
			best = entry.Persona
			bestHits = hits
		}
	}

	if bestHits == 0 && state != nil {
		return state.LastPersona()
	}
	return best
}

// personaOverlap reports whether the query carries any vocabulary for
// the given persona.
func personaOverlap(text string, persona domain.Persona) bool {
	lower := strings.ToLower(text)
	for _, entry := range personaVocab {
		if entry.Persona != persona {
			continue
		}
		for _, term := range entry.Terms {
			if strings.Contains(lower, term) {
				return true
			}
		}
	}
	return false
}
