package pricing

import (
	"fmt"
	"sort"
)

// ExchangeRates carries the conversion factors injected at calculation
// time. The calculator never fetches them itself.
type ExchangeRates struct {
	CNYToRUB float64 `json:"cny_to_rub"`
	CNYToUSD float64 `json:"cny_to_usd"`
}

// CalcParams is the fully resolved input of one calculation run.
type CalcParams struct {
	Category Category
	Base     BaseParams
	Custom   CustomLogistics
	Rates    ExchangeRates
}

// RouteCost is the landed-cost breakdown for one shipping route. All
// per-unit figures are unrounded; rounding happens at presentation.
type RouteCost struct {
	Route    string `json:"route"`
	Quantity int    `json:"quantity"`

	RatePerKgYuan     float64 `json:"rate_per_kg_yuan"`
	LogisticsUnitYuan float64 `json:"logistics_unit_yuan"`
	DutyUnitYuan      float64 `json:"duty_unit_yuan"`
	VATUnitYuan       float64 `json:"vat_unit_yuan"`

	CostUnitYuan float64 `json:"cost_unit_yuan"`
	CostUnitUSD  float64 `json:"cost_unit_usd"`
	CostUnitRUB  float64 `json:"cost_unit_rub"`

	SellUnitRUB   float64 `json:"sell_unit_rub"`
	TotalCostRUB  float64 `json:"total_cost_rub"`
	TotalSellRUB  float64 `json:"total_sell_rub"`
	ProfitRUB     float64 `json:"profit_rub"`
	MarginPercent float64 `json:"margin_percent"`
}

// CalculationResult is the per-route breakdown of one calculation.
type CalculationResult struct {
	ProductName string      `json:"product_name"`
	Category    string      `json:"category"`
	Quantity    int         `json:"quantity"`
	Rates       ExchangeRates `json:"rates"`
	Routes      []RouteCost `json:"routes"`
}

// RouteCalculator turns resolved parameters into per-route landed
// costs. It is stateless and safe for concurrent use.
type RouteCalculator struct{}

func NewRouteCalculator() *RouteCalculator {
	return &RouteCalculator{}
}

// Calculate computes the landed cost and sell price for every
// applicable route. Routes come from the custom overrides when present,
// otherwise from the category defaults.
func (c *RouteCalculator) Calculate(params CalcParams) (*CalculationResult, error) {
	base := params.Base
	if base.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidQuantity, base.Quantity)
	}
	if base.WeightKg <= 0 {
		return nil, fmt.Errorf("%w: weight must be positive, got %.3f", ErrInvalidQuantity, base.WeightKg)
	}
	if base.UnitPriceYuan <= 0 {
		return nil, fmt.Errorf("%w: unit price must be positive, got %.2f", ErrInvalidQuantity, base.UnitPriceYuan)
	}
	if base.Markup <= 0 {
		return nil, fmt.Errorf("%w: markup must be positive, got %.2f", ErrInvalidQuantity, base.Markup)
	}
	if params.Rates.CNYToRUB <= 0 || params.Rates.CNYToUSD <= 0 {
		return nil, fmt.Errorf("%w: exchange rates not provided", ErrMissingRate)
	}

	result := &CalculationResult{
		ProductName: base.ProductName,
		Category:    params.Category.Name,
		Quantity:    base.Quantity,
		Rates:       params.Rates,
	}

	for _, route := range c.applicableRoutes(params) {
		cost, err := c.calculateRoute(route, params)
		if err != nil {
			return nil, err
		}
		result.Routes = append(result.Routes, cost)
	}

	if len(result.Routes) == 0 {
		return nil, fmt.Errorf("%w: no routes to calculate", ErrMissingRate)
	}
	return result, nil
}

// applicableRoutes picks the route set: custom override keys when any
// were supplied, the category's default routes otherwise. Rail sorts
// before air, extra custom routes follow alphabetically.
func (c *RouteCalculator) applicableRoutes(params CalcParams) []string {
	if len(params.Custom) == 0 {
		return params.Category.Routes()
	}
	routes := make([]string, 0, len(params.Custom))
	for route := range params.Custom {
		routes = append(routes, route)
	}
	sort.Slice(routes, func(i, j int) bool {
		order := func(r string) int {
			switch r {
			case RouteHighwayRail:
				return 0
			case RouteHighwayAir:
				return 1
			}
			return 2
		}
		if a, b := order(routes[i]), order(routes[j]); a != b {
			return a < b
		}
		return routes[i] < routes[j]
	})
	return routes
}

func (c *RouteCalculator) calculateRoute(route string, params CalcParams) (RouteCost, error) {
	base := params.Base
	category := params.Category

	rate := category.BaseRate(route)
	dutyRate := category.DutyRate
	vatRate := category.VATRate

	if override, ok := params.Custom[route]; ok {
		if override.CustomRate != nil {
			rate = *override.CustomRate
		}
		if override.DutyRate != nil {
			dutyRate = *override.DutyRate
		}
		if override.VATRate != nil {
			vatRate = *override.VATRate
		}
	}
	if rate <= 0 {
		return RouteCost{}, fmt.Errorf("%w: no logistics rate for route %s", ErrMissingRate, route)
	}

	logistics := base.WeightKg * rate
	duty := (base.UnitPriceYuan + logistics) * dutyRate / 100
	vat := (base.UnitPriceYuan + logistics + duty) * vatRate / 100
	costYuan := base.UnitPriceYuan + logistics + duty + vat

	costRUB := costYuan * params.Rates.CNYToRUB
	sellRUB := costRUB * base.Markup

	qty := float64(base.Quantity)
	return RouteCost{
		Route:             route,
		Quantity:          base.Quantity,
		RatePerKgYuan:     rate,
		LogisticsUnitYuan: logistics,
		DutyUnitYuan:      duty,
		VATUnitYuan:       vat,
		CostUnitYuan:      costYuan,
		CostUnitUSD:       costYuan * params.Rates.CNYToUSD,
		CostUnitRUB:       costRUB,
		SellUnitRUB:       sellRUB,
		TotalCostRUB:      costRUB * qty,
		TotalSellRUB:      sellRUB * qty,
		ProfitRUB:         (sellRUB - costRUB) * qty,
		MarginPercent:     (sellRUB - costRUB) / sellRUB * 100,
	}, nil
}
