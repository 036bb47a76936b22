package bot

import (
	"context"
	"fmt"

	"cargocalc-bot/internal/pricing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// notifyCalculationSaved sends a short summary of a saved calculation
// to every configured admin.
func (b *Bot) notifyCalculationSaved(ctx context.Context, id int64, calcCtx *pricing.CalculationContext) {
	if len(b.cfg.AdminIDs) == 0 {
		b.logger.Warn("Admin notifications disabled - no admin IDs configured")
		return
	}

	base := calcCtx.BaseParams()
	text := fmt.Sprintf(
		"💾 Новый расчёт #%d\n\n"+
			"Товар: %s\n"+
			"Категория: %s\n"+
			"Количество: %d шт\n"+
			"Цена закупки: %.2f ¥/шт\n"+
			"Наценка: ×%.2f",
		id,
		base.ProductName,
		calcCtx.Category().Name,
		base.Quantity,
		base.UnitPriceYuan,
		base.Markup,
	)

	for _, adminID := range b.cfg.AdminIDs {
		msg := tgbotapi.NewMessage(adminID, text)
		if _, err := b.bot.Send(msg); err != nil {
			b.logger.Error("Failed to send admin notification",
				zap.Int64("admin_id", adminID),
				zap.Int64("calculation_id", id),
				zap.Error(err))
		}
	}
}
