package pricing

import "fmt"

// RateSource hands the orchestrator already-resolved exchange-rate
// factors. Implementations must not block: any fetching or caching
// happens outside the core.
type RateSource interface {
	Rates() (ExchangeRates, error)
}

// StaticRates is a RateSource with fixed factors, used in tests and as
// a configuration fallback.
type StaticRates ExchangeRates

func (s StaticRates) Rates() (ExchangeRates, error) {
	return ExchangeRates(s), nil
}

// StartStatus describes a freshly started calculation.
type StartStatus struct {
	Category       string           `json:"category"`
	State          CalculationState `json:"state"`
	NeedsUserInput bool             `json:"needs_user_input"`
	RequiredParams []string         `json:"required_params"`
}

// ProvideStatus is the outcome of submitting custom logistics.
type ProvideStatus struct {
	Valid  bool             `json:"valid"`
	Errors []string         `json:"errors,omitempty"`
	State  CalculationState `json:"state"`
}

// CalcStatus is the outcome of running the calculator. Computation
// faults land here as Error, never as a panic or escaped error.
type CalcStatus struct {
	Success bool               `json:"success"`
	Result  *CalculationResult `json:"result,omitempty"`
	Error   string             `json:"error,omitempty"`
	State   CalculationState   `json:"state"`
}

// ContextInfo is a read-only snapshot of the current context.
type ContextInfo struct {
	Category       string             `json:"category"`
	State          CalculationState   `json:"state"`
	History        []CalculationState `json:"history"`
	NeedsUserInput bool               `json:"needs_user_input"`
	HasResult      bool               `json:"has_result"`
	SavedID        int64              `json:"saved_id,omitempty"`
}

// Orchestrator is the public façade over category resolution, the
// calculation context and the route calculator. One orchestrator owns
// one context at a time; callers needing parallel calculations build
// one orchestrator each.
type Orchestrator struct {
	registry   *Registry
	calculator *RouteCalculator
	rates      RateSource
	context    *CalculationContext
}

func NewOrchestrator(registry *Registry, rates RateSource) *Orchestrator {
	return &Orchestrator{
		registry:   registry,
		calculator: NewRouteCalculator(),
		rates:      rates,
	}
}

// StartCalculation resolves the category and opens a fresh context.
// An unknown forced category fails eagerly, before any context exists.
func (o *Orchestrator) StartCalculation(params BaseParams, forcedCategory string) (*StartStatus, error) {
	category, err := o.registry.DetectCategory(params.ProductName, forcedCategory)
	if err != nil {
		return nil, fmt.Errorf("detect category: %w", err)
	}

	ctx := NewCalculationContext()
	if err := ctx.SetCategory(category, params); err != nil {
		return nil, fmt.Errorf("set category: %w", err)
	}
	o.context = ctx

	return &StartStatus{
		Category:       category.Name,
		State:          ctx.State(),
		NeedsUserInput: ctx.NeedsUserInput(),
		RequiredParams: ctx.RequiredParams(),
	}, nil
}

// ProvideCustomParams forwards user-supplied logistics overrides to the
// live context. Validation problems come back as data, not errors.
func (o *Orchestrator) ProvideCustomParams(payload CustomLogistics) (*ProvideStatus, error) {
	if o.context == nil {
		return nil, fmt.Errorf("%w: no calculation in progress", ErrInvalidState)
	}

	valid, errs, err := o.context.ProvideCustomLogistics(payload)
	if err != nil {
		return nil, err
	}
	return &ProvideStatus{
		Valid:  valid,
		Errors: errs,
		State:  o.context.State(),
	}, nil
}

// Calculate runs the route calculator on a READY context. Any fault
// from the calculator is caught here: the context is moved to ERROR and
// the failure is returned as data. Only wrong-state usage surfaces as
// an error.
func (o *Orchestrator) Calculate() (*CalcStatus, error) {
	if o.context == nil {
		return nil, fmt.Errorf("%w: no calculation in progress", ErrInvalidState)
	}
	if ok, reason := o.context.CanCalculate(); !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidState, reason)
	}

	rates, err := o.rates.Rates()
	if err != nil {
		return o.fail(fmt.Sprintf("курсы валют недоступны: %v", err)), nil
	}

	params, err := o.context.PrepareParams(rates)
	if err != nil {
		return nil, err
	}

	result, err := o.calculator.Calculate(params)
	if err != nil {
		return o.fail(err.Error()), nil
	}

	if err := o.context.MarkCalculated(result); err != nil {
		return nil, err
	}
	return &CalcStatus{
		Success: true,
		Result:  result,
		State:   o.context.State(),
	}, nil
}

func (o *Orchestrator) fail(message string) *CalcStatus {
	_ = o.context.MarkError(message)
	return &CalcStatus{
		Success: false,
		Error:   message,
		State:   o.context.State(),
	}
}

// MarkSaved records the id the caller persisted the calculation under.
func (o *Orchestrator) MarkSaved(id int64) error {
	if o.context == nil {
		return fmt.Errorf("%w: no calculation in progress", ErrInvalidState)
	}
	return o.context.MarkSaved(id)
}

// Reset drops the current context.
func (o *Orchestrator) Reset() {
	o.context = nil
}

// Context exposes the live context for callers that persist results.
func (o *Orchestrator) Context() *CalculationContext {
	return o.context
}

// ContextInfo snapshots the current context; nil when none is live.
func (o *Orchestrator) ContextInfo() *ContextInfo {
	if o.context == nil {
		return nil
	}
	return &ContextInfo{
		Category:       o.context.Category().Name,
		State:          o.context.State(),
		History:        o.context.StateHistory(),
		NeedsUserInput: o.context.NeedsUserInput(),
		HasResult:      o.context.Result() != nil,
		SavedID:        o.context.SavedID(),
	}
}
