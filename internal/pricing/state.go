package pricing

import "fmt"

// CalculationState is the lifecycle state of one calculation. Values
// double as the user-facing Russian labels shown in the bot.
type CalculationState string

const (
	StateDraft         CalculationState = "Черновик"
	StatePendingParams CalculationState = "Требуются параметры"
	StateReady         CalculationState = "Готов к расчёту"
	StateCalculated    CalculationState = "Рассчитан"
	StateSaved         CalculationState = "Сохранён"
	StateError         CalculationState = "Ошибка"
)

// legal transitions; StateError is additionally reachable from any
// non-terminal state via Fail.
var transitions = map[CalculationState][]CalculationState{
	StateDraft:         {StateReady, StatePendingParams},
	StatePendingParams: {StateReady},
	StateReady:         {StateCalculated},
	StateCalculated:    {StateSaved},
	StateSaved:         {},
	StateError:         {},
}

// StateMachine tracks the current calculation state and the history of
// states it went through.
type StateMachine struct {
	current CalculationState
	history []CalculationState
}

func NewStateMachine() *StateMachine {
	return &StateMachine{
		current: StateDraft,
		history: []CalculationState{StateDraft},
	}
}

func (m *StateMachine) Current() CalculationState {
	return m.current
}

// History returns every state visited, starting with DRAFT.
func (m *StateMachine) History() []CalculationState {
	out := make([]CalculationState, len(m.history))
	copy(out, m.history)
	return out
}

// Transition moves to the target state if the edge is legal. Illegal
// edges leave the machine untouched and return an error.
func (m *StateMachine) Transition(to CalculationState) error {
	for _, allowed := range transitions[m.current] {
		if allowed == to {
			m.current = to
			m.history = append(m.history, to)
			return nil
		}
	}
	return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, m.current, to)
}

// Fail moves the machine to ERROR from any non-terminal state.
func (m *StateMachine) Fail() error {
	if m.current == StateSaved || m.current == StateError {
		return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, m.current, StateError)
	}
	m.current = StateError
	m.history = append(m.history, StateError)
	return nil
}

func (m *StateMachine) IsTerminal() bool {
	return m.current == StateSaved || m.current == StateError
}
