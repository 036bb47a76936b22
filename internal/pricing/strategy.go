package pricing

import (
	"fmt"
	"sort"
)

// BaseParams are the inputs every calculation starts with.
type BaseParams struct {
	ProductName   string  `json:"product_name"`
	Quantity      int     `json:"quantity"`
	WeightKg      float64 `json:"weight_kg"`
	UnitPriceYuan float64 `json:"unit_price_yuan"`
	Markup        float64 `json:"markup"`
}

// RouteOverride carries user-supplied logistics values for one route
// when the category does not predefine them. Rates are per-kg yuan,
// duty/VAT in percent.
type RouteOverride struct {
	CustomRate *float64 `json:"custom_rate,omitempty"`
	DutyRate   *float64 `json:"duty_rate,omitempty"`
	VATRate    *float64 `json:"vat_rate,omitempty"`
}

// CustomLogistics maps route key → overrides for that route.
type CustomLogistics map[string]RouteOverride

// CategoryStrategy decides whether a calculation has everything it
// needs and validates user-supplied overrides. The strategy is picked
// once per context from the category's requirement flags.
type CategoryStrategy interface {
	// IsReady reports whether the calculation can run with only the
	// category defaults and the supplied custom logistics.
	IsReady(category Category, params BaseParams, custom CustomLogistics) bool

	// RequiredParams lists the field names the user still has to supply.
	RequiredParams(category Category) []string

	// ValidateCustom checks a custom-logistics payload. User-input
	// problems are reported in the returned slice, never as an error.
	ValidateCustom(category Category, payload CustomLogistics) (bool, []string)
}

func strategyFor(category Category) CategoryStrategy {
	if category.Requirements.Any() {
		return &CustomCategoryStrategy{}
	}
	return &StandardCategoryStrategy{}
}

func validBaseParams(params BaseParams) bool {
	return params.Quantity > 0 && params.WeightKg > 0 && params.UnitPriceYuan > 0 && params.Markup > 0
}

// StandardCategoryStrategy serves categories with fully predefined
// rates. No user input beyond the base params is ever needed.
type StandardCategoryStrategy struct{}

func (s *StandardCategoryStrategy) IsReady(category Category, params BaseParams, _ CustomLogistics) bool {
	return validBaseParams(params)
}

func (s *StandardCategoryStrategy) RequiredParams(Category) []string {
	return nil
}

func (s *StandardCategoryStrategy) ValidateCustom(Category, CustomLogistics) (bool, []string) {
	return true, nil
}

// CustomCategoryStrategy serves categories with at least one
// requirement flag: the calculation stays pending until every flagged
// field is supplied for every route.
type CustomCategoryStrategy struct{}

func (s *CustomCategoryStrategy) IsReady(category Category, params BaseParams, custom CustomLogistics) bool {
	if !validBaseParams(params) {
		return false
	}
	// The routes a custom calculation runs over are exactly the routes
	// the user supplied overrides for.
	if len(custom) == 0 {
		return false
	}
	for _, override := range custom {
		if !s.routeComplete(category.Requirements, override) {
			return false
		}
	}
	return true
}

func (s *CustomCategoryStrategy) routeComplete(req Requirements, o RouteOverride) bool {
	if req.RequiresLogisticsRate && o.CustomRate == nil {
		return false
	}
	if req.RequiresDutyRate && o.DutyRate == nil {
		return false
	}
	if req.RequiresVATRate && o.VATRate == nil {
		return false
	}
	return true
}

func (s *CustomCategoryStrategy) RequiredParams(category Category) []string {
	var params []string
	if category.Requirements.RequiresLogisticsRate {
		params = append(params, "custom_rate")
	}
	if category.Requirements.RequiresDutyRate {
		params = append(params, "duty_rate")
	}
	if category.Requirements.RequiresVATRate {
		params = append(params, "vat_rate")
	}
	return params
}

func (s *CustomCategoryStrategy) ValidateCustom(category Category, payload CustomLogistics) (bool, []string) {
	var errs []string

	if len(payload) == 0 {
		return false, []string{"не переданы параметры логистики"}
	}

	routes := make([]string, 0, len(payload))
	for route := range payload {
		routes = append(routes, route)
	}
	sort.Strings(routes)

	for _, route := range routes {
		errs = append(errs, s.validateRoute(category.Requirements, route, payload[route])...)
	}
	return len(errs) == 0, errs
}

func (s *CustomCategoryStrategy) validateRoute(req Requirements, route string, o RouteOverride) []string {
	var errs []string
	if req.RequiresLogisticsRate {
		switch {
		case o.CustomRate == nil:
			errs = append(errs, fmt.Sprintf("%s: не указан custom_rate", route))
		case *o.CustomRate <= 0:
			errs = append(errs, fmt.Sprintf("%s: custom_rate должен быть больше 0", route))
		}
	}
	if req.RequiresDutyRate {
		switch {
		case o.DutyRate == nil:
			errs = append(errs, fmt.Sprintf("%s: не указан duty_rate", route))
		case *o.DutyRate < 0 || *o.DutyRate > 100:
			errs = append(errs, fmt.Sprintf("%s: duty_rate должен быть в пределах 0-100", route))
		}
	}
	if req.RequiresVATRate {
		switch {
		case o.VATRate == nil:
			errs = append(errs, fmt.Sprintf("%s: не указан vat_rate", route))
		case *o.VATRate < 0 || *o.VATRate > 100:
			errs = append(errs, fmt.Sprintf("%s: vat_rate должен быть в пределах 0-100", route))
		}
	}
	return errs
}
