package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"cargocalc-bot/internal/pricing"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ExportCalculationsToExcel writes every saved calculation into an
// xlsx report, one row per route, and returns the file path.
func (s *PostgresStorage) ExportCalculationsToExcel(ctx context.Context, filename string) (string, error) {
	const query = `SELECT * FROM calculations ORDER BY created_at DESC`
	var calcs []Calculation
	if err := s.db.SelectContext(ctx, &calcs, query); err != nil {
		return "", fmt.Errorf("failed to fetch calculations: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet("Calculations")
	if err != nil {
		return "", fmt.Errorf("failed to create sheet: %w", err)
	}

	headers := []string{
		"ID", "Position ID", "Category", "Quantity", "Weight (kg)",
		"Unit Price (¥)", "Markup", "Route", "Rate (¥/kg)",
		"Cost/Unit (¥)", "Cost/Unit ($)", "Cost/Unit (₽)",
		"Sell/Unit (₽)", "Total Cost (₽)", "Total Sell (₽)",
		"Profit (₽)", "Margin (%)", "State", "Created At",
	}
	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue("Calculations", cell, header)
	}

	row := 2
	for _, calc := range calcs {
		var result pricing.CalculationResult
		if len(calc.Result) > 0 {
			if err := json.Unmarshal(calc.Result, &result); err != nil {
				s.logger.Warn("Skipping calculation with bad result payload",
					zap.Int64("id", calc.ID),
					zap.Error(err))
				continue
			}
		}

		for _, route := range result.Routes {
			data := []interface{}{
				calc.ID,
				calc.PositionID,
				calc.Category,
				calc.Quantity,
				calc.WeightKg,
				calc.UnitPriceYuan,
				calc.Markup,
				route.Route,
				route.RatePerKgYuan,
				route.CostUnitYuan,
				route.CostUnitUSD,
				route.CostUnitRUB,
				route.SellUnitRUB,
				route.TotalCostRUB,
				route.TotalSellRUB,
				route.ProfitRUB,
				route.MarginPercent,
				calc.State,
				calc.CreatedAt.Format("2006-01-02 15:04"),
			}
			for col, value := range data {
				cell, _ := excelize.CoordinatesToCellName(col+1, row)
				f.SetCellValue("Calculations", cell, value)
			}
			row++
		}
	}

	style, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	f.SetCellStyle("Calculations", "A1", "S1", style)

	f.SetActiveSheet(index)

	if err := os.MkdirAll("reports", 0755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}

	filepath := fmt.Sprintf("reports/%s.xlsx", filename)
	if err := f.SaveAs(filepath); err != nil {
		return "", fmt.Errorf("failed to save Excel file: %w", err)
	}

	return filepath, nil
}
