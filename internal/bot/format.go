package bot

import (
	"fmt"
	"strconv"
	"strings"

	"cargocalc-bot/internal/pricing"
)

var routeAliases = map[string]string{
	"жд":   pricing.RouteHighwayRail,
	"ж/д":  pricing.RouteHighwayRail,
	"rail": pricing.RouteHighwayRail,
	"авиа": pricing.RouteHighwayAir,
	"air":  pricing.RouteHighwayAir,
}

var routeTitles = map[string]string{
	pricing.RouteHighwayRail: "🚂 Авто + ЖД",
	pricing.RouteHighwayAir:  "✈️ Авто + Авиа",
}

// ParseBaseParams parses "количество вес цена наценка", e.g.
// "100 0.2 30 1.7". Decimal commas are accepted.
func ParseBaseParams(productName, text string) (pricing.BaseParams, error) {
	fields := strings.Fields(text)
	if len(fields) != 4 {
		return pricing.BaseParams{}, fmt.Errorf(
			"нужно 4 числа через пробел: количество вес_кг цена_юань наценка (например: 100 0.2 30 1.7)")
	}

	quantity, err := strconv.Atoi(fields[0])
	if err != nil || quantity <= 0 {
		return pricing.BaseParams{}, fmt.Errorf("количество должно быть целым числом больше 0")
	}

	weight, err := parseNumber(fields[1])
	if err != nil || weight <= 0 {
		return pricing.BaseParams{}, fmt.Errorf("вес должен быть числом больше 0 (кг за единицу)")
	}

	price, err := parseNumber(fields[2])
	if err != nil || price <= 0 {
		return pricing.BaseParams{}, fmt.Errorf("цена должна быть числом больше 0 (юаней за единицу)")
	}

	markup, err := parseNumber(fields[3])
	if err != nil || markup <= 0 {
		return pricing.BaseParams{}, fmt.Errorf("наценка должна быть числом больше 0 (например 1.7)")
	}

	return pricing.BaseParams{
		ProductName:   productName,
		Quantity:      quantity,
		WeightKg:      weight,
		UnitPriceYuan: price,
		Markup:        markup,
	}, nil
}

// ParseCustomLogistics parses route override lines like
//
//	жд 8.5 10 20
//	авиа 9.5 10 20
//
// into a custom logistics payload: ставка ¥/кг, пошлина %, НДС %.
func ParseCustomLogistics(text string) (pricing.CustomLogistics, error) {
	payload := make(pricing.CustomLogistics)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 4 {
			return nil, fmt.Errorf(
				"строка %q: нужен формат «маршрут ставка пошлина ндс» (например: жд 8.5 10 20)", line)
		}

		route, ok := routeAliases[strings.ToLower(fields[0])]
		if !ok {
			return nil, fmt.Errorf("строка %q: неизвестный маршрут, используйте «жд» или «авиа»", line)
		}

		rate, err := parseNumber(fields[1])
		if err != nil {
			return nil, fmt.Errorf("строка %q: ставка должна быть числом", line)
		}
		duty, err := parseNumber(fields[2])
		if err != nil {
			return nil, fmt.Errorf("строка %q: пошлина должна быть числом", line)
		}
		vat, err := parseNumber(fields[3])
		if err != nil {
			return nil, fmt.Errorf("строка %q: НДС должен быть числом", line)
		}

		payload[route] = pricing.RouteOverride{
			CustomRate: &rate,
			DutyRate:   &duty,
			VATRate:    &vat,
		}
	}

	if len(payload) == 0 {
		return nil, fmt.Errorf("не удалось разобрать параметры логистики")
	}
	return payload, nil
}

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
}

// FormatPendingParams explains which custom fields the category needs
// and the expected input format.
func FormatPendingParams(status *pricing.StartStatus) string {
	return fmt.Sprintf(
		"Категория: %s\nСтатус: %s\n\n"+
			"Для этой категории нет готовых ставок (%s).\n"+
			"Введите параметры маршрутов, по одному на строку:\n"+
			"маршрут ставка_юань/кг пошлина%% ндс%%\n\n"+
			"Например:\nжд 8.5 10 20\nавиа 9.5 10 20",
		status.Category,
		status.State,
		strings.Join(status.RequiredParams, ", "),
	)
}

// FormatRouteBreakdown renders the calculation result. This is the
// presentation boundary: all rounding happens here.
func FormatRouteBreakdown(result *pricing.CalculationResult) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "📦 %s (%s), %d шт\n", result.ProductName, result.Category, result.Quantity)
	fmt.Fprintf(&sb, "Курс: 1¥ = %.2f₽\n", result.Rates.CNYToRUB)

	for _, route := range result.Routes {
		title, ok := routeTitles[route.Route]
		if !ok {
			title = route.Route
		}

		fmt.Fprintf(&sb,
			"\n%s\n"+
				"─────────────────\n"+
				"Логистика: %.2f¥/шт (ставка %.2f¥/кг)\n"+
				"Пошлина: %.2f¥/шт\n"+
				"НДС: %.2f¥/шт\n"+
				"Себестоимость: %.2f¥ / $%.2f / %.2f₽\n"+
				"Цена продажи: %.2f₽/шт\n"+
				"Итого закуп: %.2f₽\n"+
				"Итого продажа: %.2f₽\n"+
				"Прибыль: %.2f₽ (маржа %.1f%%)\n",
			title,
			route.LogisticsUnitYuan,
			route.RatePerKgYuan,
			route.DutyUnitYuan,
			route.VATUnitYuan,
			route.CostUnitYuan,
			route.CostUnitUSD,
			route.CostUnitRUB,
			route.SellUnitRUB,
			route.TotalCostRUB,
			route.TotalSellRUB,
			route.ProfitRUB,
			route.MarginPercent,
		)
	}

	return sb.String()
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
