package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/revintel/insight-agent/pkg/domain"
)

// TestTimeout provides a standard timeout for test contexts
const TestTimeout = 5 * time.Second

// NewTestContext creates a context with standard test timeout
func NewTestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	t.Cleanup(cancel)
	return ctx
}

// NewTestQuery creates a test query
func NewTestQuery(text string) domain.Query {
	return domain.Query{
		ID:        "test-query-1",
		Text:      text,
		UserID:    "user-1",
		Timestamp: time.Now(),
	}
}

// NewTestPlan creates a test plan for the given intent and complexity
func NewTestPlan(intent domain.IntentKind, complexity domain.Complexity) domain.Plan {
	return domain.Plan{
		Intent:      intent,
		Complexity:  complexity,
		Persona:     domain.PersonaGeneral,
		Confidence:  0.8,
		DataSources: []domain.DataSource{domain.SourceCRM},
		Tier:        domain.TierCatalog,
	}
}

// AssertEqual checks if two values are equal
func AssertEqual(t *testing.T, expected, actual interface{}, msg string) {
	t.Helper()
	if expected != actual {
		t.Errorf("%s: expected %v, got %v", msg, expected, actual)
	}
}

// AssertNoError checks if error is nil
func AssertNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Errorf("%s: unexpected error: %v", msg, err)
	}
}

// AssertError checks if error is not nil
func AssertError(t *testing.T, err error, msg string) {
	t.Helper()
	if err == nil {
		t.Errorf("%s: expected error but got nil", msg)
	}
}
