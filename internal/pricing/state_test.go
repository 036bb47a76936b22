package pricing

import (
	"errors"
	"testing"
)

func TestStateMachine_LegalFlow(t *testing.T) {
	m := NewStateMachine()

	if m.Current() != StateDraft {
		t.Fatalf("new machine should start in %s, got %s", StateDraft, m.Current())
	}

	steps := []CalculationState{StatePendingParams, StateReady, StateCalculated, StateSaved}
	for _, next := range steps {
		if err := m.Transition(next); err != nil {
			t.Fatalf("transition to %s failed: %v", next, err)
		}
	}

	if !m.IsTerminal() {
		t.Error("SAVED should be terminal")
	}

	history := m.History()
	if len(history) != 5 {
		t.Errorf("expected 5 states in history, got %d: %v", len(history), history)
	}
}

func TestStateMachine_DirectReady(t *testing.T) {
	m := NewStateMachine()

	if err := m.Transition(StateReady); err != nil {
		t.Fatalf("DRAFT → READY should be legal: %v", err)
	}
}

func TestStateMachine_IllegalTransitions(t *testing.T) {
	illegal := []struct {
		from CalculationState
		to   CalculationState
	}{
		{StateDraft, StateCalculated},
		{StateDraft, StateSaved},
		{StatePendingParams, StateCalculated},
		{StateReady, StateSaved},
		{StateCalculated, StateReady},
		{StateSaved, StateReady},
		{StateError, StateReady},
	}

	for _, tc := range illegal {
		m := &StateMachine{current: tc.from, history: []CalculationState{tc.from}}
		err := m.Transition(tc.to)
		if err == nil {
			t.Errorf("%s → %s should be illegal", tc.from, tc.to)
			continue
		}
		if !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("%s → %s: expected ErrInvalidTransition, got %v", tc.from, tc.to, err)
		}
		if m.Current() != tc.from {
			t.Errorf("illegal transition must not mutate state, got %s", m.Current())
		}
	}
}

func TestStateMachine_FailFromAnyNonTerminal(t *testing.T) {
	for _, from := range []CalculationState{StateDraft, StatePendingParams, StateReady, StateCalculated} {
		m := &StateMachine{current: from, history: []CalculationState{from}}
		if err := m.Fail(); err != nil {
			t.Errorf("Fail from %s should be legal: %v", from, err)
		}
		if m.Current() != StateError {
			t.Errorf("Fail from %s: expected %s, got %s", from, StateError, m.Current())
		}
	}
}

func TestStateMachine_FailFromTerminal(t *testing.T) {
	for _, from := range []CalculationState{StateSaved, StateError} {
		m := &StateMachine{current: from, history: []CalculationState{from}}
		if err := m.Fail(); err == nil {
			t.Errorf("Fail from terminal %s should be rejected", from)
		}
	}
}
