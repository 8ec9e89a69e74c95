package domain

import (
	"errors"
	"testing"
)

func TestIntentKindValid(t *testing.T) {
	for _, k := range KnownIntents {
		if !k.Valid() {
			t.Errorf("expected %q to be valid", k)
		}
	}
	if IntentKind("weather_report").Valid() {
		t.Error("unknown intent reported valid")
	}
}

func TestComplexityRoundTrip(t *testing.T) {
	for _, c := range []Complexity{ComplexitySimple, ComplexityModerate, ComplexityComplex, ComplexityAdvanced} {
		got, ok := ParseComplexity(c.String())
		if !ok {
			t.Fatalf("ParseComplexity(%q) not recognized", c.String())
		}
		if got != c {
			t.Errorf("round trip: got %v, want %v", got, c)
		}
	}
	if _, ok := ParseComplexity("gnarly"); ok {
		t.Error("unknown complexity should not parse")
	}
}

func TestTaskStateTerminal(t *testing.T) {
	cases := map[TaskState]bool{
		TaskPending:   false,
		TaskRunning:   false,
		TaskSucceeded: true,
		TaskFailed:    true,
		TaskDegraded:  true,
	}
	for state, want := range cases {
		if got := state.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", state, got, want)
		}
	}
}

func TestIsTransient(t *testing.T) {
	transient := []error{ErrTimeout, ErrRateLimited, ErrConnectionFailed}
	for _, err := range transient {
		if !IsTransient(err) {
			t.Errorf("expected %v to be transient", err)
		}
		wrapped := errors.Join(errors.New("node data_fetch_crm"), err)
		if !IsTransient(wrapped) {
			t.Errorf("expected wrapped %v to be transient", err)
		}
	}
	for _, err := range []error{ErrAuth, ErrQueryInvalid, ErrMalformedResponse, nil} {
		if IsTransient(err) {
			t.Errorf("expected %v to be permanent", err)
		}
	}
}

func TestContextStateLastPersona(t *testing.T) {
	var cs ContextState
	if got := cs.LastPersona(); got != PersonaGeneral {
		t.Errorf("empty history: got %q, want %q", got, PersonaGeneral)
	}
	cs.History = append(cs.History,
		Interaction{Plan: Plan{Persona: PersonaVPSales}},
		Interaction{Plan: Plan{Persona: PersonaCDO}},
	)
	if got := cs.LastPersona(); got != PersonaCDO {
		t.Errorf("got %q, want %q", got, PersonaCDO)
	}
}
