// Package bot содержит Telegram бота, который открывает Mini App магазина.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"avastore-backend/internal/common/logger"
	ordermodels "avastore-backend/internal/features/order/models"
	"avastore-backend/internal/platform/telegram"
)

const (
	pollTimeoutSeconds = 30
	errorBackoff       = time.Second

	openShopButton = "🛍️ Открыть магазин"
	welcomeText    = "Добро пожаловать в AvaStore! 🛍️\n\nНажмите кнопку ниже, чтобы открыть магазин:"
	helpText       = "📖 Помощь по AvaStore:\n\n" +
		"/start - Начать работу с ботом\n" +
		"/help - Показать эту справку\n\n" +
		"Используйте кнопку \"Открыть магазин\" для доступа к каталогу товаров."
)

var statusTitles = map[ordermodels.Status]string{
	ordermodels.StatusPending:    "ожидает обработки",
	ordermodels.StatusProcessing: "в обработке",
	ordermodels.StatusShipped:    "отправлен",
	ordermodels.StatusDelivered:  "доставлен",
	ordermodels.StatusCancelled:  "отменен",
}

// API: методы Bot API, которые нужны боту
type API interface {
	GetUpdates(ctx context.Context, offset int64, timeout int) ([]telegram.Update, error)
	SendMessage(ctx context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup) (*telegram.Message, error)
	AnswerCallbackQuery(ctx context.Context, callbackID, text string) error
}

type Bot struct {
	api       API
	webAppURL string
}

func New(api API, webAppURL string) *Bot {
	return &Bot{api: api, webAppURL: webAppURL}
}

func (b *Bot) shopKeyboard() *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{{
			{Text: openShopButton, WebApp: &telegram.WebAppInfo{URL: b.webAppURL}},
		}},
	}
}

// Run: long polling до отмены контекста
func (b *Bot) Run(ctx context.Context) {
	logger.Info().Msg("Starting Telegram bot polling...")

	var offset int64
	for {
		if ctx.Err() != nil {
			logger.Info().Msg("Stopping Telegram bot polling...")
			return
		}

		updates, err := b.api.GetUpdates(ctx, offset, pollTimeoutSeconds)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			wait := errorBackoff
			var rps *telegram.RPSError
			if errors.As(err, &rps) && rps.RetryAfter > 0 {
				wait = time.Duration(rps.RetryAfter) * time.Second
			}
			logger.Error().Err(err).Dur("backoff", wait).Msg("Failed to get updates")
			sleep(ctx, wait)
			continue
		}

		for _, update := range updates {
			offset = update.UpdateID + 1
			if err := b.HandleUpdate(ctx, update); err != nil {
				logger.Warn().Err(err).Int64("update_id", update.UpdateID).Msg("Failed to handle update")
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// HandleUpdate отвечает на /start и /help и подтверждает callback query
func (b *Bot) HandleUpdate(ctx context.Context, update telegram.Update) error {
	if q := update.CallbackQuery; q != nil {
		return b.api.AnswerCallbackQuery(ctx, q.ID, "")
	}

	msg := update.Message
	if msg == nil {
		return nil
	}

	switch command(msg.Text) {
	case "/start":
		_, err := b.api.SendMessage(ctx, msg.Chat.ID, welcomeText, b.shopKeyboard())
		return err
	case "/help":
		_, err := b.api.SendMessage(ctx, msg.Chat.ID, helpText, nil)
		return err
	}
	return nil
}

// command выделяет команду из "/start payload" и "/start@shop_bot"
func command(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return ""
	}
	cmd, _, _ := strings.Cut(fields[0], "@")
	return strings.ToLower(cmd)
}

// NotifyOrder сообщает покупателю о новом заказе или смене статуса
func (b *Bot) NotifyOrder(ctx context.Context, chatID int64, event ordermodels.Event) error {
	var text string
	switch event.Type {
	case ordermodels.EventOrderCreated:
		text = fmt.Sprintf("✅ Заказ #%d оформлен\n\nТоваров: %d\nСумма: %s ₽",
			event.OrderID, event.ItemsCount, event.TotalAmount.StringFixed(2))
	case ordermodels.EventOrderStatusChanged:
		title, ok := statusTitles[event.Status]
		if !ok {
			title = string(event.Status)
		}
		text = fmt.Sprintf("📦 Заказ #%d: %s", event.OrderID, title)
	default:
		return nil
	}

	_, err := b.api.SendMessage(ctx, chatID, text, b.shopKeyboard())
	return err
}
