package bot

import (
	"context"
	"fmt"
	"sync"

	"cargocalc-bot/internal/config"
	"cargocalc-bot/internal/pricing"
	"cargocalc-bot/internal/storage"
	"cargocalc-bot/pkg/redis"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	StepProductName     = "product_name"
	StepBaseParams      = "base_params"
	StepCustomLogistics = "custom_logistics"
	StepSaveConfirm     = "save_confirm"
	StepFactory         = "factory"
)

type Bot struct {
	bot      *tgbotapi.BotAPI
	logger   *zap.Logger
	cfg      *config.Config
	sessions *SessionStorage
	storage  *storage.PostgresStorage
	registry *pricing.Registry
	rates    pricing.RateSource

	mu    sync.Mutex
	calcs map[int64]*pricing.Orchestrator

	handlers map[string]func(context.Context, int64, string)
}

func New(
	token string,
	redisClient *redis.Client,
	pgStorage *storage.PostgresStorage,
	registry *pricing.Registry,
	rates pricing.RateSource,
	logger *zap.Logger,
	cfg *config.Config,
) (*Bot, error) {
	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	logger.Info("Bot authorized",
		zap.String("username", botAPI.Self.UserName),
		zap.Int64("id", botAPI.Self.ID))

	b := &Bot{
		bot:      botAPI,
		logger:   logger,
		cfg:      cfg,
		sessions: NewSessionStorage(redisClient),
		storage:  pgStorage,
		registry: registry,
		rates:    rates,
		calcs:    make(map[int64]*pricing.Orchestrator),
	}

	b.registerHandlers()
	return b, nil
}

func (b *Bot) registerHandlers() {
	b.handlers = map[string]func(context.Context, int64, string){
		StepProductName:     b.handleProductName,
		StepBaseParams:      b.handleBaseParams,
		StepCustomLogistics: b.handleCustomLogistics,
		StepSaveConfirm:     b.handleSaveConfirm,
		StepFactory:         b.handleFactory,
	}
}

// orchestrator returns the chat's live orchestrator, creating one when
// absent. Each chat owns exactly one calculation at a time.
func (b *Bot) orchestrator(chatID int64) *pricing.Orchestrator {
	if o, ok := b.calcs[chatID]; ok {
		return o
	}
	o := pricing.NewOrchestrator(b.registry, b.rates)
	b.calcs[chatID] = o
	return o
}

func (b *Bot) dropOrchestrator(chatID int64) {
	delete(b.calcs, chatID)
}

func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Starting bot")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Shutting down bot")
			return nil

		case update := <-updates:
			b.mu.Lock()
			if update.Message != nil {
				b.processMessage(ctx, update.Message)
			}
			b.mu.Unlock()
		}
	}
}

func (b *Bot) processMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	b.logger.Debug("Processing message",
		zap.Int64("chat_id", chatID),
		zap.String("text", msg.Text))

	if msg.IsCommand() {
		b.handleCommand(ctx, chatID, msg.Command(), msg.CommandArguments())
		return
	}

	session, err := b.sessions.Get(ctx, chatID)
	if err != nil {
		b.logger.Error("Failed to get user session",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		b.sendError(chatID, "Ошибка при обработке запроса")
		return
	}

	if handler, exists := b.handlers[session.Step]; exists {
		handler(ctx, chatID, msg.Text)
	} else {
		b.handleDefault(ctx, chatID)
	}
}

func (b *Bot) sendMessage(msg tgbotapi.MessageConfig) {
	if _, err := b.bot.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Int64("chat_id", msg.ChatID),
			zap.String("text", msg.Text),
			zap.Error(err))
	}
}

func (b *Bot) sendError(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "❌ "+text)
	b.sendMessage(msg)
}

func (b *Bot) isAdmin(chatID int64) bool {
	for _, id := range b.cfg.AdminIDs {
		if id == chatID {
			return true
		}
	}
	return false
}
