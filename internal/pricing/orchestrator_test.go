package pricing

import (
	"errors"
	"fmt"
	"testing"
)

type failingRates struct{}

func (failingRates) Rates() (ExchangeRates, error) {
	return ExchangeRates{}, fmt.Errorf("rate source down")
}

func newTestOrchestrator() *Orchestrator {
	return NewOrchestrator(testRegistry(), StaticRates(testRates))
}

func TestOrchestrator_StandardFlow(t *testing.T) {
	o := newTestOrchestrator()

	status, err := o.StartCalculation(validBase(), "")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if status.Category != "Футболки" {
		t.Errorf("expected Футболки, got %s", status.Category)
	}
	if status.State != StateReady {
		t.Errorf("expected state %q, got %q", StateReady, status.State)
	}
	if status.NeedsUserInput {
		t.Error("standard category should not need user input")
	}

	calc, err := o.Calculate()
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	if !calc.Success {
		t.Fatalf("expected success, got error %q", calc.Error)
	}
	if calc.Result == nil || len(calc.Result.Routes) == 0 {
		t.Fatal("expected a non-empty per-route breakdown")
	}
	if calc.State != StateCalculated {
		t.Errorf("expected %s, got %s", StateCalculated, calc.State)
	}

	if err := o.MarkSaved(7); err != nil {
		t.Fatalf("mark saved failed: %v", err)
	}
	info := o.ContextInfo()
	if info.State != StateSaved || info.SavedID != 7 {
		t.Errorf("unexpected context info: %+v", info)
	}
}

func TestOrchestrator_UnknownProductFallsBackToGeneric(t *testing.T) {
	o := newTestOrchestrator()

	base := validBase()
	base.ProductName = "неизвестный гаджет"
	status, err := o.StartCalculation(base, "")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if status.Category != GenericCategoryName {
		t.Errorf("expected %s, got %s", GenericCategoryName, status.Category)
	}
	if status.State != StatePendingParams {
		t.Errorf("expected %s, got %s", StatePendingParams, status.State)
	}
	if !status.NeedsUserInput {
		t.Error("generic category should need user input")
	}
	if len(status.RequiredParams) == 0 {
		t.Error("generic category should list required params")
	}
}

func TestOrchestrator_UnknownForcedCategory(t *testing.T) {
	o := newTestOrchestrator()

	_, err := o.StartCalculation(validBase(), "Несуществующая")
	if !errors.Is(err, ErrCategoryNotFound) {
		t.Fatalf("expected ErrCategoryNotFound, got %v", err)
	}
	if o.ContextInfo() != nil {
		t.Error("failed start must not leave a live context behind")
	}
}

func TestOrchestrator_CalculateBeforeReady(t *testing.T) {
	o := newTestOrchestrator()

	if _, err := o.Calculate(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("calculate without a context: expected ErrInvalidState, got %v", err)
	}

	base := validBase()
	base.ProductName = "неизвестный гаджет"
	if _, err := o.StartCalculation(base, ""); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if _, err := o.Calculate(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("calculate in PENDING_PARAMS: expected ErrInvalidState, got %v", err)
	}
}

func TestOrchestrator_PendingToReadyFlow(t *testing.T) {
	o := newTestOrchestrator()

	base := validBase()
	base.ProductName = "неизвестный гаджет"
	if _, err := o.StartCalculation(base, ""); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	status, err := o.ProvideCustomParams(CustomLogistics{RouteHighwayRail: {}})
	if err != nil {
		t.Fatalf("provide failed: %v", err)
	}
	if status.Valid {
		t.Error("empty override should be invalid")
	}
	if status.State != StatePendingParams {
		t.Errorf("invalid payload must keep %s, got %s", StatePendingParams, status.State)
	}

	status, err = o.ProvideCustomParams(CustomLogistics{
		RouteHighwayRail: {CustomRate: ptr(8.5), DutyRate: ptr(10.0), VATRate: ptr(20.0)},
	})
	if err != nil {
		t.Fatalf("provide failed: %v", err)
	}
	if !status.Valid {
		t.Fatalf("payload should be valid, errors: %v", status.Errors)
	}
	if status.State != StateReady {
		t.Errorf("expected %s, got %s", StateReady, status.State)
	}

	calc, err := o.Calculate()
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	if !calc.Success || len(calc.Result.Routes) != 1 {
		t.Errorf("expected one-route success, got %+v", calc)
	}
}

func TestOrchestrator_CalculatorFaultBecomesError(t *testing.T) {
	o := NewOrchestrator(testRegistry(), failingRates{})

	if _, err := o.StartCalculation(validBase(), ""); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	calc, err := o.Calculate()
	if err != nil {
		t.Fatalf("faults must come back as data, got error: %v", err)
	}
	if calc.Success {
		t.Fatal("expected a structured failure")
	}
	if calc.Error == "" {
		t.Error("failure must carry an error message")
	}
	if calc.State != StateError {
		t.Errorf("expected %s, got %s", StateError, calc.State)
	}
}

func TestOrchestrator_ProvideWithoutContext(t *testing.T) {
	o := newTestOrchestrator()

	_, err := o.ProvideCustomParams(CustomLogistics{})
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
}

func TestOrchestrator_Reset(t *testing.T) {
	o := newTestOrchestrator()

	if _, err := o.StartCalculation(validBase(), ""); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	o.Reset()

	if o.ContextInfo() != nil {
		t.Error("reset should drop the context")
	}
}
