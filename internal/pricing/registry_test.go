package pricing

import (
	"errors"
	"testing"
)

func testRegistry() *Registry {
	return NewRegistry([]Category{
		tshirtCategory(),
		{
			Name:     "Обувь",
			RailBase: 6.0,
			AirBase:  8.2,
			DutyRate: 15.0,
			VATRate:  20.0,
			Keywords: []string{"кроссовк", "обувь"},
		},
	})
}

func TestRegistry_GenericAppended(t *testing.T) {
	r := testRegistry()

	generic := r.Generic()
	if generic.Name != GenericCategoryName {
		t.Fatalf("expected generic category %q, got %q", GenericCategoryName, generic.Name)
	}
	if !generic.Requirements.RequiresLogisticsRate {
		t.Error("generic category must require a logistics rate")
	}
}

func TestDetectCategory_Forced(t *testing.T) {
	r := testRegistry()

	cat, err := r.DetectCategory("что угодно", "Обувь")
	if err != nil {
		t.Fatalf("forced lookup failed: %v", err)
	}
	if cat.Name != "Обувь" {
		t.Errorf("expected Обувь, got %s", cat.Name)
	}
}

func TestDetectCategory_ForcedUnknown(t *testing.T) {
	r := testRegistry()

	_, err := r.DetectCategory("футболки", "Несуществующая")
	if err == nil {
		t.Fatal("unknown forced category should fail")
	}
	if !errors.Is(err, ErrCategoryNotFound) {
		t.Errorf("expected ErrCategoryNotFound, got %v", err)
	}
}

func TestDetectCategory_KeywordMatch(t *testing.T) {
	r := testRegistry()

	cat, err := r.DetectCategory("ФУТБОЛКИ с принтом", "")
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if cat.Name != "Футболки" {
		t.Errorf("expected Футболки, got %s", cat.Name)
	}
}

func TestDetectCategory_FirstMatchWins(t *testing.T) {
	// Both categories carry the same keyword: registration order decides.
	r := NewRegistry([]Category{
		{Name: "Первая", RailBase: 1, AirBase: 1, Keywords: []string{"товар"}},
		{Name: "Вторая", RailBase: 2, AirBase: 2, Keywords: []string{"товар"}},
	})

	cat, err := r.DetectCategory("товар обычный", "")
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if cat.Name != "Первая" {
		t.Errorf("first registered category should win, got %s", cat.Name)
	}
}

func TestDetectCategory_FallbackToGeneric(t *testing.T) {
	r := testRegistry()

	cat, err := r.DetectCategory("неизвестный гаджет", "")
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if cat.Name != GenericCategoryName {
		t.Errorf("expected fallback to %s, got %s", GenericCategoryName, cat.Name)
	}
}
