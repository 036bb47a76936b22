package bot

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

const (
	ButtonSave           = "💾 Сохранить"
	ButtonNewCalculation = "🔄 Новый расчёт"
)

func saveKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(ButtonSave),
			tgbotapi.NewKeyboardButton(ButtonNewCalculation),
		),
	)
}
