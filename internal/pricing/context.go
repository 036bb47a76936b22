package pricing

import "fmt"

// CalculationContext owns one in-flight calculation: the resolved
// category and strategy, the user's parameters, the state machine and
// the result. One context serves exactly one calculation and is never
// shared between concurrent requests.
type CalculationContext struct {
	category Category
	strategy CategoryStrategy
	machine  *StateMachine

	base   BaseParams
	custom CustomLogistics

	result  *CalculationResult
	savedID int64
	lastErr string
}

func NewCalculationContext() *CalculationContext {
	return &CalculationContext{machine: NewStateMachine()}
}

func (c *CalculationContext) State() CalculationState {
	return c.machine.Current()
}

func (c *CalculationContext) StateHistory() []CalculationState {
	return c.machine.History()
}

func (c *CalculationContext) Category() Category {
	return c.category
}

func (c *CalculationContext) BaseParams() BaseParams {
	return c.base
}

func (c *CalculationContext) CustomLogistics() CustomLogistics {
	return c.custom
}

func (c *CalculationContext) Result() *CalculationResult {
	return c.result
}

func (c *CalculationContext) SavedID() int64 {
	return c.savedID
}

func (c *CalculationContext) LastError() string {
	return c.lastErr
}

// SetCategory binds the category and base parameters and moves the
// context out of DRAFT. The strategy is resolved here, once, from the
// category's requirement flags. Calling on a non-DRAFT context is a
// usage error.
func (c *CalculationContext) SetCategory(category Category, params BaseParams) error {
	if c.machine.Current() != StateDraft {
		return fmt.Errorf("%w: set category allowed only in %s, context is in %s",
			ErrInvalidState, StateDraft, c.machine.Current())
	}

	c.category = category
	c.strategy = strategyFor(category)
	c.base = params

	next := StatePendingParams
	if c.strategy.IsReady(category, params, c.custom) {
		next = StateReady
	}
	return c.machine.Transition(next)
}

// NeedsUserInput reports whether the calculation is blocked on custom
// logistics parameters.
func (c *CalculationContext) NeedsUserInput() bool {
	return c.machine.Current() == StatePendingParams
}

// RequiredParams lists the custom fields the user still has to supply.
func (c *CalculationContext) RequiredParams() []string {
	if c.strategy == nil {
		return nil
	}
	return c.strategy.RequiredParams(c.category)
}

// ProvideCustomLogistics validates and stores user-supplied overrides.
// An invalid payload leaves the context untouched and returns the
// validation messages. Calling outside PENDING_PARAMS is a usage error.
func (c *CalculationContext) ProvideCustomLogistics(payload CustomLogistics) (bool, []string, error) {
	if c.machine.Current() != StatePendingParams {
		return false, nil, fmt.Errorf("%w: custom logistics accepted only in %s, context is in %s",
			ErrInvalidState, StatePendingParams, c.machine.Current())
	}

	valid, errs := c.strategy.ValidateCustom(c.category, payload)
	if !valid {
		return false, errs, nil
	}

	c.custom = payload
	if err := c.machine.Transition(StateReady); err != nil {
		return false, nil, err
	}
	return true, nil, nil
}

// CanCalculate reports whether Calculate may run right now, with a
// human-readable reason when it may not. Only READY qualifies.
func (c *CalculationContext) CanCalculate() (bool, string) {
	switch c.machine.Current() {
	case StateReady:
		return true, "OK"
	case StateDraft:
		return false, "расчёт не начат"
	case StatePendingParams:
		return false, "не заполнены параметры логистики"
	case StateCalculated:
		return false, "расчёт уже выполнен"
	case StateSaved:
		return false, "расчёт уже сохранён"
	case StateError:
		return false, "расчёт завершился ошибкой: " + c.lastErr
	}
	return false, "неизвестное состояние"
}

// PrepareParams assembles the calculator input. The resolved category
// is pinned into the params so the calculator never re-detects it.
func (c *CalculationContext) PrepareParams(rates ExchangeRates) (CalcParams, error) {
	if ok, reason := c.CanCalculate(); !ok {
		return CalcParams{}, fmt.Errorf("%w: %s", ErrInvalidState, reason)
	}

	params := CalcParams{
		Category: c.category,
		Base:     c.base,
		Rates:    rates,
	}
	if len(c.custom) > 0 {
		params.Custom = c.custom
	}
	return params, nil
}

// MarkCalculated stores the result and moves READY → CALCULATED.
func (c *CalculationContext) MarkCalculated(result *CalculationResult) error {
	if err := c.machine.Transition(StateCalculated); err != nil {
		return err
	}
	c.result = result
	return nil
}

// MarkSaved records the persisted id and moves CALCULATED → SAVED.
func (c *CalculationContext) MarkSaved(id int64) error {
	if err := c.machine.Transition(StateSaved); err != nil {
		return err
	}
	c.savedID = id
	return nil
}

// MarkError moves the context to ERROR from any non-terminal state.
func (c *CalculationContext) MarkError(message string) error {
	if err := c.machine.Fail(); err != nil {
		return err
	}
	c.lastErr = message
	return nil
}

// Reset clears everything and returns the context to a fresh DRAFT.
func (c *CalculationContext) Reset() {
	*c = CalculationContext{machine: NewStateMachine()}
}
