package bot

import (
	"strings"
	"testing"

	"cargocalc-bot/internal/pricing"
)

func TestParseBaseParams(t *testing.T) {
	params, err := ParseBaseParams("футболки", "100 0.2 30 1.7")
	if err != nil {
		t.Fatalf("ParseBaseParams failed: %v", err)
	}

	if params.Quantity != 100 {
		t.Errorf("quantity: got %d, want 100", params.Quantity)
	}
	if params.WeightKg != 0.2 {
		t.Errorf("weight: got %f, want 0.2", params.WeightKg)
	}
	if params.UnitPriceYuan != 30 {
		t.Errorf("price: got %f, want 30", params.UnitPriceYuan)
	}
	if params.Markup != 1.7 {
		t.Errorf("markup: got %f, want 1.7", params.Markup)
	}
	if params.ProductName != "футболки" {
		t.Errorf("product: got %q", params.ProductName)
	}
}

func TestParseBaseParams_DecimalComma(t *testing.T) {
	params, err := ParseBaseParams("футболки", "100 0,2 30 1,7")
	if err != nil {
		t.Fatalf("ParseBaseParams failed: %v", err)
	}
	if params.WeightKg != 0.2 || params.Markup != 1.7 {
		t.Errorf("decimal comma not accepted: %+v", params)
	}
}

func TestParseBaseParams_Invalid(t *testing.T) {
	cases := []string{
		"",
		"100 0.2 30",
		"сто 0.2 30 1.7",
		"0 0.2 30 1.7",
		"100 -1 30 1.7",
		"100 0.2 0 1.7",
	}
	for _, input := range cases {
		if _, err := ParseBaseParams("футболки", input); err == nil {
			t.Errorf("input %q should be rejected", input)
		}
	}
}

func TestParseCustomLogistics(t *testing.T) {
	payload, err := ParseCustomLogistics("жд 8.5 10 20\nавиа 9,5 10 20")
	if err != nil {
		t.Fatalf("ParseCustomLogistics failed: %v", err)
	}

	rail, ok := payload[pricing.RouteHighwayRail]
	if !ok {
		t.Fatal("rail route missing")
	}
	if rail.CustomRate == nil || *rail.CustomRate != 8.5 {
		t.Errorf("rail custom rate: got %v, want 8.5", rail.CustomRate)
	}
	if rail.DutyRate == nil || *rail.DutyRate != 10 {
		t.Errorf("rail duty rate: got %v, want 10", rail.DutyRate)
	}

	air, ok := payload[pricing.RouteHighwayAir]
	if !ok {
		t.Fatal("air route missing")
	}
	if air.CustomRate == nil || *air.CustomRate != 9.5 {
		t.Errorf("air custom rate: got %v, want 9.5", air.CustomRate)
	}
}

func TestParseCustomLogistics_Invalid(t *testing.T) {
	cases := []string{
		"",
		"жд 8.5 10",
		"морем 8.5 10 20",
		"жд ставка 10 20",
	}
	for _, input := range cases {
		if _, err := ParseCustomLogistics(input); err == nil {
			t.Errorf("input %q should be rejected", input)
		}
	}
}

func TestFormatRouteBreakdown(t *testing.T) {
	result := &pricing.CalculationResult{
		ProductName: "футболки",
		Category:    "Футболки",
		Quantity:    100,
		Rates:       pricing.ExchangeRates{CNYToRUB: 12.5, CNYToUSD: 0.14},
		Routes: []pricing.RouteCost{
			{
				Route:             pricing.RouteHighwayRail,
				Quantity:          100,
				RatePerKgYuan:     5.0,
				LogisticsUnitYuan: 1.0,
				DutyUnitYuan:      3.1,
				VATUnitYuan:       6.82,
				CostUnitYuan:      40.92,
				CostUnitUSD:       5.7288,
				CostUnitRUB:       511.5,
				SellUnitRUB:       869.55,
				TotalCostRUB:      51150,
				TotalSellRUB:      86955,
				ProfitRUB:         35805,
				MarginPercent:     41.17647058823529,
			},
		},
	}

	text := FormatRouteBreakdown(result)

	for _, fragment := range []string{
		"футболки",
		"100 шт",
		"🚂 Авто + ЖД",
		"511.50₽",
		"869.55₽/шт",
		"маржа 41.2%",
	} {
		if !strings.Contains(text, fragment) {
			t.Errorf("breakdown should contain %q, got:\n%s", fragment, text)
		}
	}
}
