package pricing

// Route keys used across the calculator and custom logistics payloads.
const (
	RouteHighwayRail = "highway_rail"
	RouteHighwayAir  = "highway_air"
)

// Requirements flags which logistics fields a category does NOT predefine.
// Any true flag means the category rates are not authoritative and the
// user must supply overrides before a calculation can run.
type Requirements struct {
	RequiresLogisticsRate bool `json:"requires_logistics_rate"`
	RequiresDutyRate      bool `json:"requires_duty_rate"`
	RequiresVATRate       bool `json:"requires_vat_rate"`
}

func (r Requirements) Any() bool {
	return r.RequiresLogisticsRate || r.RequiresDutyRate || r.RequiresVATRate
}

// Category describes one product category with its default logistics,
// duty and VAT rules. Rates are per-kg in yuan, duty/VAT in percent.
type Category struct {
	Name         string       `json:"name"`
	RailBase     float64      `json:"rail_base"`
	AirBase      float64      `json:"air_base"`
	DutyRate     float64      `json:"duty_rate"`
	VATRate      float64      `json:"vat_rate"`
	Keywords     []string     `json:"keywords"`
	Requirements Requirements `json:"requirements"`
}

// BaseRate returns the category's predefined per-kg rate for a route,
// 0 when the route is unknown or the rate is not defined.
func (c *Category) BaseRate(route string) float64 {
	switch route {
	case RouteHighwayRail:
		return c.RailBase
	case RouteHighwayAir:
		return c.AirBase
	}
	return 0
}

// Routes returns the route keys this category calculates over.
func (c *Category) Routes() []string {
	return []string{RouteHighwayRail, RouteHighwayAir}
}
