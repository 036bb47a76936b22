package pricing

import (
	"errors"
	"testing"
)

func readyContext(t *testing.T) *CalculationContext {
	t.Helper()
	ctx := NewCalculationContext()
	if err := ctx.SetCategory(tshirtCategory(), validBase()); err != nil {
		t.Fatalf("set category failed: %v", err)
	}
	return ctx
}

func pendingContext(t *testing.T) *CalculationContext {
	t.Helper()
	ctx := NewCalculationContext()
	if err := ctx.SetCategory(customCategory(), validBase()); err != nil {
		t.Fatalf("set category failed: %v", err)
	}
	return ctx
}

func TestContext_StandardCategoryGoesReady(t *testing.T) {
	ctx := readyContext(t)

	if ctx.State() != StateReady {
		t.Errorf("expected %s, got %s", StateReady, ctx.State())
	}
	if ctx.NeedsUserInput() {
		t.Error("standard category should not need user input")
	}
	if params := ctx.RequiredParams(); len(params) != 0 {
		t.Errorf("standard category should require nothing, got %v", params)
	}
}

func TestContext_CustomCategoryGoesPending(t *testing.T) {
	ctx := pendingContext(t)

	if ctx.State() != StatePendingParams {
		t.Errorf("expected %s, got %s", StatePendingParams, ctx.State())
	}
	if !ctx.NeedsUserInput() {
		t.Error("custom category should need user input")
	}
	if params := ctx.RequiredParams(); len(params) == 0 {
		t.Error("custom category should list required params")
	}
}

func TestContext_SetCategoryTwiceIsUsageError(t *testing.T) {
	ctx := readyContext(t)

	err := ctx.SetCategory(tshirtCategory(), validBase())
	if err == nil {
		t.Fatal("set category on a non-DRAFT context should fail")
	}
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
}

func TestContext_InvalidCustomLeavesStateUntouched(t *testing.T) {
	ctx := pendingContext(t)

	valid, errs, err := ctx.ProvideCustomLogistics(CustomLogistics{})
	if err != nil {
		t.Fatalf("unexpected usage error: %v", err)
	}
	if valid {
		t.Error("empty payload should be invalid")
	}
	if len(errs) == 0 {
		t.Error("expected validation errors")
	}
	if ctx.State() != StatePendingParams {
		t.Errorf("invalid payload must not change state, got %s", ctx.State())
	}

	// Repeat: state idempotence under invalid input.
	_, _, _ = ctx.ProvideCustomLogistics(CustomLogistics{RouteHighwayRail: {}})
	if ctx.State() != StatePendingParams {
		t.Errorf("invalid payload must not change state, got %s", ctx.State())
	}
}

func TestContext_ValidCustomTransitionsToReady(t *testing.T) {
	ctx := pendingContext(t)

	valid, errs, err := ctx.ProvideCustomLogistics(CustomLogistics{
		RouteHighwayRail: {CustomRate: ptr(8.5), DutyRate: ptr(10.0), VATRate: ptr(20.0)},
	})
	if err != nil {
		t.Fatalf("unexpected usage error: %v", err)
	}
	if !valid {
		t.Fatalf("payload should be valid, errors: %v", errs)
	}
	if ctx.State() != StateReady {
		t.Errorf("expected %s, got %s", StateReady, ctx.State())
	}

	// READY is not reversible without Reset.
	if _, _, err := ctx.ProvideCustomLogistics(CustomLogistics{}); err == nil {
		t.Error("providing params on a READY context should be a usage error")
	}
	if ctx.State() != StateReady {
		t.Errorf("state must stay %s, got %s", StateReady, ctx.State())
	}
}

func TestContext_CanCalculate(t *testing.T) {
	draft := NewCalculationContext()
	if ok, reason := draft.CanCalculate(); ok || reason == "" {
		t.Error("DRAFT context must not be calculable and must give a reason")
	}

	pending := pendingContext(t)
	if ok, _ := pending.CanCalculate(); ok {
		t.Error("PENDING_PARAMS context must not be calculable")
	}

	ready := readyContext(t)
	ok, reason := ready.CanCalculate()
	if !ok {
		t.Errorf("READY context must be calculable, reason: %s", reason)
	}
	if reason != "OK" {
		t.Errorf("expected OK, got %q", reason)
	}
}

func TestContext_PrepareParams(t *testing.T) {
	rates := ExchangeRates{CNYToRUB: 12.5, CNYToUSD: 0.14}

	draft := NewCalculationContext()
	if _, err := draft.PrepareParams(rates); err == nil {
		t.Error("prepare on DRAFT should fail")
	}

	ready := readyContext(t)
	params, err := ready.PrepareParams(rates)
	if err != nil {
		t.Fatalf("prepare failed: %v", err)
	}
	if params.Category.Name != "Футболки" {
		t.Errorf("prepared params must pin the resolved category, got %s", params.Category.Name)
	}
	if params.Custom != nil {
		t.Error("standard calculation must not carry custom logistics")
	}

	pending := pendingContext(t)
	_, _, _ = pending.ProvideCustomLogistics(CustomLogistics{
		RouteHighwayRail: {CustomRate: ptr(8.5), DutyRate: ptr(10.0), VATRate: ptr(20.0)},
	})
	params, err = pending.PrepareParams(rates)
	if err != nil {
		t.Fatalf("prepare failed: %v", err)
	}
	if len(params.Custom) != 1 {
		t.Errorf("custom calculation must carry its overrides, got %v", params.Custom)
	}
}

func TestContext_MarkFlowAndResultRoundTrip(t *testing.T) {
	ctx := readyContext(t)

	result := &CalculationResult{Category: "Футболки", Quantity: 100}
	if err := ctx.MarkCalculated(result); err != nil {
		t.Fatalf("mark calculated failed: %v", err)
	}
	if ctx.Result() != result {
		t.Error("Result must return the exact object passed to MarkCalculated")
	}
	if ctx.State() != StateCalculated {
		t.Errorf("expected %s, got %s", StateCalculated, ctx.State())
	}

	if err := ctx.MarkSaved(42); err != nil {
		t.Fatalf("mark saved failed: %v", err)
	}
	if ctx.SavedID() != 42 {
		t.Errorf("expected saved id 42, got %d", ctx.SavedID())
	}
	if ctx.State() != StateSaved {
		t.Errorf("expected %s, got %s", StateSaved, ctx.State())
	}
}

func TestContext_MarkError(t *testing.T) {
	ctx := readyContext(t)

	if err := ctx.MarkError("деление на ноль"); err != nil {
		t.Fatalf("mark error failed: %v", err)
	}
	if ctx.State() != StateError {
		t.Errorf("expected %s, got %s", StateError, ctx.State())
	}
	if ctx.LastError() != "деление на ноль" {
		t.Errorf("unexpected last error: %q", ctx.LastError())
	}
}

func TestContext_Reset(t *testing.T) {
	ctx := pendingContext(t)
	ctx.Reset()

	if ctx.State() != StateDraft {
		t.Errorf("reset should return to %s, got %s", StateDraft, ctx.State())
	}
	if ctx.Category().Name != "" {
		t.Error("reset should clear the category")
	}
	if ctx.Result() != nil {
		t.Error("reset should clear the result")
	}

	// A reset context accepts a category again.
	if err := ctx.SetCategory(tshirtCategory(), validBase()); err != nil {
		t.Errorf("set category after reset failed: %v", err)
	}
}
