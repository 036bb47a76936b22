package bot

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"cargocalc-bot/internal/pricing"
	"cargocalc-bot/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

func (b *Bot) handleProductName(ctx context.Context, chatID int64, text string) {
	name := strings.TrimSpace(text)
	if name == "" {
		b.sendError(chatID, "Название товара не может быть пустым")
		return
	}

	if err := b.sessions.SetProductName(ctx, chatID, name); err != nil {
		b.logger.Error("Failed to save product name",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		b.sendError(chatID, "Ошибка при сохранении товара")
		return
	}

	msg := tgbotapi.NewMessage(chatID,
		"Введите параметры через пробел:\n"+
			"количество вес_кг цена_юань наценка\n\n"+
			"Например: 100 0.2 30 1.7")
	b.sendMessage(msg)

	if err := b.sessions.SetStep(ctx, chatID, StepBaseParams); err != nil {
		b.logger.Error("Failed to set base params step",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}
}

func (b *Bot) handleBaseParams(ctx context.Context, chatID int64, text string) {
	session, err := b.sessions.Get(ctx, chatID)
	if err != nil || session.ProductName == "" {
		b.sendError(chatID, "Сессия потеряна. Начните заново: /start")
		return
	}

	params, err := ParseBaseParams(session.ProductName, text)
	if err != nil {
		b.sendError(chatID, err.Error())
		return
	}

	status, err := b.orchestrator(chatID).StartCalculation(params, "")
	if err != nil {
		b.logger.Error("Failed to start calculation",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		b.sendError(chatID, "Не удалось начать расчёт")
		return
	}

	b.logger.Info("Calculation started",
		zap.Int64("chat_id", chatID),
		zap.String("category", status.Category),
		zap.String("state", string(status.State)))

	if status.NeedsUserInput {
		msg := tgbotapi.NewMessage(chatID, FormatPendingParams(status))
		b.sendMessage(msg)
		if err := b.sessions.SetStep(ctx, chatID, StepCustomLogistics); err != nil {
			b.logger.Error("Failed to set custom logistics step",
				zap.Int64("chat_id", chatID),
				zap.Error(err))
		}
		return
	}

	b.sendMessage(tgbotapi.NewMessage(chatID,
		"Категория: "+status.Category+"\nСтатус: "+string(status.State)))
	b.runCalculation(ctx, chatID)
}

func (b *Bot) handleCustomLogistics(ctx context.Context, chatID int64, text string) {
	payload, err := ParseCustomLogistics(text)
	if err != nil {
		b.sendError(chatID, err.Error())
		return
	}

	status, err := b.orchestrator(chatID).ProvideCustomParams(payload)
	if err != nil {
		b.logger.Warn("Custom params rejected",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		b.sendError(chatID, "Расчёт не ожидает параметры. Начните заново: /start")
		return
	}

	if !status.Valid {
		b.sendError(chatID, "Параметры не приняты:\n- "+strings.Join(status.Errors, "\n- "))
		return
	}

	b.runCalculation(ctx, chatID)
}

func (b *Bot) runCalculation(ctx context.Context, chatID int64) {
	status, err := b.orchestrator(chatID).Calculate()
	if err != nil {
		b.logger.Error("Calculate rejected",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		b.sendError(chatID, "Расчёт не готов. Начните заново: /start")
		return
	}

	if !status.Success {
		b.logger.Warn("Calculation failed",
			zap.Int64("chat_id", chatID),
			zap.String("error", status.Error))
		b.dropOrchestrator(chatID)
		b.sendError(chatID, "Расчёт завершился ошибкой: "+status.Error+"\nНачните заново: /start")
		return
	}

	msg := tgbotapi.NewMessage(chatID, FormatRouteBreakdown(status.Result))
	msg.ReplyMarkup = saveKeyboard()
	b.sendMessage(msg)

	if err := b.sessions.SetStep(ctx, chatID, StepSaveConfirm); err != nil {
		b.logger.Error("Failed to set save confirm step",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}
}

func (b *Bot) handleSaveConfirm(ctx context.Context, chatID int64, text string) {
	switch text {
	case ButtonSave:
		msg := tgbotapi.NewMessage(chatID,
			"Укажите завод-поставщик (название) или отправьте «-», если завод не известен:")
		msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
		b.sendMessage(msg)
		if err := b.sessions.SetStep(ctx, chatID, StepFactory); err != nil {
			b.logger.Error("Failed to set factory step",
				zap.Int64("chat_id", chatID),
				zap.Error(err))
		}
	case ButtonNewCalculation:
		b.handleStart(ctx, chatID)
	default:
		b.sendError(chatID, "Используйте кнопки ниже")
	}
}

func (b *Bot) handleFactory(ctx context.Context, chatID int64, text string) {
	calcCtx := b.orchestrator(chatID).Context()
	if calcCtx == nil || calcCtx.Result() == nil {
		b.sendError(chatID, "Расчёт не найден. Начните заново: /start")
		return
	}

	factoryID, factoryName := b.resolveFactory(ctx, strings.TrimSpace(text))

	positionID, err := b.storage.GetOrCreatePosition(ctx, chatID, calcCtx.BaseParams().ProductName)
	if err != nil {
		b.logger.Error("Failed to resolve position",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		b.sendError(chatID, "Не удалось сохранить расчёт")
		return
	}

	record, err := buildCalculationRecord(positionID, factoryID, factoryName, calcCtx)
	if err != nil {
		b.logger.Error("Failed to build calculation record",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		b.sendError(chatID, "Не удалось сохранить расчёт")
		return
	}

	id, err := b.storage.SaveCalculation(ctx, record)
	if err != nil {
		b.logger.Error("Failed to save calculation",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		b.sendError(chatID, "Не удалось сохранить расчёт")
		return
	}

	if err := b.orchestrator(chatID).MarkSaved(id); err != nil {
		b.logger.Error("Failed to mark calculation saved",
			zap.Int64("chat_id", chatID),
			zap.Int64("calculation_id", id),
			zap.Error(err))
	} else if err := b.storage.UpdateCalculationState(ctx, id, string(pricing.StateSaved)); err != nil {
		b.logger.Warn("Failed to update persisted state",
			zap.Int64("calculation_id", id),
			zap.Error(err))
	}

	b.notifyCalculationSaved(ctx, id, calcCtx)

	b.dropOrchestrator(chatID)
	if err := b.sessions.Clear(ctx, chatID); err != nil {
		b.logger.Error("Failed to clear session",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}

	msg := tgbotapi.NewMessage(chatID,
		"💾 Расчёт сохранён под номером #"+formatID(id)+"\nНовый расчёт: /start")
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	b.sendMessage(msg)
}

// resolveFactory matches the input against known factories; unmatched
// non-empty input is kept as a free-text factory name.
func (b *Bot) resolveFactory(ctx context.Context, text string) (sql.NullInt64, sql.NullString) {
	if text == "" || text == "-" {
		return sql.NullInt64{}, sql.NullString{}
	}

	factories, err := b.storage.ListFactories(ctx)
	if err != nil {
		b.logger.Warn("Failed to list factories", zap.Error(err))
	} else {
		for _, f := range factories {
			if strings.EqualFold(f.Name, text) {
				return sql.NullInt64{Int64: f.ID, Valid: true}, sql.NullString{}
			}
		}
	}
	return sql.NullInt64{}, sql.NullString{String: text, Valid: true}
}

func buildCalculationRecord(positionID int64, factoryID sql.NullInt64, factoryName sql.NullString, calcCtx *pricing.CalculationContext) (storage.Calculation, error) {
	result, err := json.Marshal(calcCtx.Result())
	if err != nil {
		return storage.Calculation{}, err
	}

	var custom json.RawMessage
	if logistics := calcCtx.CustomLogistics(); len(logistics) > 0 {
		custom, err = json.Marshal(logistics)
		if err != nil {
			return storage.Calculation{}, err
		}
	}

	base := calcCtx.BaseParams()
	record := storage.Calculation{
		PositionID:        positionID,
		FactoryID:         factoryID,
		FactoryCustomName: factoryName,
		Category:          calcCtx.Category().Name,
		Quantity:          base.Quantity,
		WeightKg:          base.WeightKg,
		UnitPriceYuan:     base.UnitPriceYuan,
		Markup:            base.Markup,
		CustomLogistics:   custom,
		Result:            result,
		State:             string(calcCtx.State()),
		CreatedAt:         time.Now(),
	}
	return record, nil
}
