package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

func (b *Bot) handleCommand(ctx context.Context, chatID int64, command, args string) {
	switch command {
	case "start":
		b.handleStart(ctx, chatID)
	case "help":
		b.handleHelp(ctx, chatID)
	case "reset":
		b.handleReset(ctx, chatID)
	case "history":
		b.handleHistory(ctx, chatID)
	case "factories":
		b.handleFactories(ctx, chatID)
	case "addfactory":
		b.handleAddFactory(ctx, chatID, args)
	case "stats":
		b.handleStats(ctx, chatID)
	case "export":
		b.handleExport(ctx, chatID)
	default:
		b.handleUnknownCommand(ctx, chatID)
	}
}

func (b *Bot) handleDefault(ctx context.Context, chatID int64) {
	b.sendError(chatID, "Я не понимаю это сообщение. Используйте /start чтобы начать расчёт.")
}

func (b *Bot) handleUnknownCommand(ctx context.Context, chatID int64) {
	b.sendError(chatID, "Неизвестная команда. Используйте /start для начала работы.")
}

func (b *Bot) handleHelp(ctx context.Context, chatID int64) {
	helpText := `Доступные команды:
	/start - Начать новый расчёт себестоимости
	/reset - Сбросить текущий расчёт
	/history - Показать последние расчёты
	/factories - Список известных заводов
	/help - Показать эту справку

	Бот считает себестоимость и цену продажи товара из Китая
	по маршрутам автодоставки (ЖД и авиа) с учётом пошлин и НДС.`
	b.sendMessage(tgbotapi.NewMessage(chatID, helpText))
}

func (b *Bot) handleStart(ctx context.Context, chatID int64) {
	limited, err := b.storage.CheckRateLimit(ctx, chatID, "start_calc", 30, time.Hour)
	if err != nil {
		b.logger.Warn("Rate limit check failed",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}
	if limited {
		b.sendError(chatID, "Слишком много расчётов. Попробуйте позже.")
		return
	}

	b.dropOrchestrator(chatID)

	text := `Привет! 👋

	Я помогу рассчитать себестоимость товара из Китая.

	Введите название товара (например: футболки с принтом):`

	b.sendMessage(tgbotapi.NewMessage(chatID, text))
	if err := b.sessions.SetStep(ctx, chatID, StepProductName); err != nil {
		b.logger.Error("Failed to set product name step",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}
}

func (b *Bot) handleReset(ctx context.Context, chatID int64) {
	b.dropOrchestrator(chatID)

	if err := b.sessions.Clear(ctx, chatID); err != nil {
		b.logger.Error("Failed to clear session",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}

	b.sendMessage(tgbotapi.NewMessage(chatID, "🔄 Расчёт сброшен. Используйте /start для нового расчёта."))
}

func (b *Bot) handleHistory(ctx context.Context, chatID int64) {
	calcs, err := b.storage.ListCalculationsByUser(ctx, chatID, 10)
	if err != nil {
		b.logger.Error("Failed to list calculations",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		b.sendError(chatID, "Не удалось получить историю расчётов")
		return
	}

	if len(calcs) == 0 {
		b.sendMessage(tgbotapi.NewMessage(chatID, "История пуста. Используйте /start для первого расчёта."))
		return
	}

	text := "📋 Последние расчёты:\n"
	for _, calc := range calcs {
		text += fmt.Sprintf("\n#%d — %s, %d шт, %.2f ¥/шт (%s)",
			calc.ID,
			calc.Category,
			calc.Quantity,
			calc.UnitPriceYuan,
			calc.CreatedAt.Format("02.01.2006"))
	}
	b.sendMessage(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) handleFactories(ctx context.Context, chatID int64) {
	factories, err := b.storage.ListFactories(ctx)
	if err != nil {
		b.logger.Error("Failed to list factories", zap.Error(err))
		b.sendError(chatID, "Не удалось получить список заводов")
		return
	}

	if len(factories) == 0 {
		b.sendMessage(tgbotapi.NewMessage(chatID, "Заводы ещё не добавлены."))
		return
	}

	text := "🏭 Известные заводы:\n"
	for _, f := range factories {
		text += fmt.Sprintf("\n#%d %s", f.ID, f.Name)
		if f.Contact != "" {
			text += " — " + f.Contact
		}
	}
	b.sendMessage(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) handleAddFactory(ctx context.Context, chatID int64, args string) {
	if !b.isAdmin(chatID) {
		b.sendError(chatID, "Команда доступна только администраторам")
		return
	}

	name, contact, _ := strings.Cut(strings.TrimSpace(args), ";")
	name = strings.TrimSpace(name)
	if name == "" {
		b.sendError(chatID, "Формат: /addfactory название; контакт")
		return
	}

	id, err := b.storage.CreateFactory(ctx, name, strings.TrimSpace(contact))
	if err != nil {
		b.logger.Error("Failed to create factory", zap.Error(err))
		b.sendError(chatID, "Не удалось добавить завод")
		return
	}

	b.sendMessage(tgbotapi.NewMessage(chatID, fmt.Sprintf("🏭 Завод #%d добавлен", id)))
}

func (b *Bot) handleStats(ctx context.Context, chatID int64) {
	if !b.isAdmin(chatID) {
		b.sendError(chatID, "Команда доступна только администраторам")
		return
	}

	stats, err := b.storage.GetStatistics(ctx)
	if err != nil {
		b.logger.Error("Failed to get statistics", zap.Error(err))
		b.sendError(chatID, "Не удалось получить статистику")
		return
	}

	text := fmt.Sprintf(
		"📊 Статистика:\n\n"+
			"Всего расчётов: %d\n"+
			"Всего позиций: %d\n"+
			"Сегодня: %d\n"+
			"За неделю: %d\n",
		stats.TotalCalculations,
		stats.TotalPositions,
		stats.TodayCalculations,
		stats.WeekCalculations,
	)
	for category, count := range stats.CategoryCounts {
		text += fmt.Sprintf("- %s: %d\n", category, count)
	}
	b.sendMessage(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) handleExport(ctx context.Context, chatID int64) {
	if !b.isAdmin(chatID) {
		b.sendError(chatID, "Команда доступна только администраторам")
		return
	}

	filename := fmt.Sprintf("calculations_%s", time.Now().Format("20060102_1504"))
	path, err := b.storage.ExportCalculationsToExcel(ctx, filename)
	if err != nil {
		b.logger.Error("Failed to export calculations", zap.Error(err))
		b.sendError(chatID, "Не удалось выгрузить расчёты")
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	if _, err := b.bot.Send(doc); err != nil {
		b.logger.Error("Failed to send export file",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		b.sendError(chatID, "Не удалось отправить файл")
	}
}
