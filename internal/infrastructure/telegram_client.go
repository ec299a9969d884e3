package infrastructure

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// TelegramNotifier pushes operational messages (daily digests, alerts) to a
// fixed Telegram chat. It is optional: with an empty token Notify is a no-op,
// so the rest of the service never has to nil-check the ops channel.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *logrus.Logger
}

func NewTelegramNotifier(token string, chatID int64, logger *logrus.Logger) *TelegramNotifier {
	if token == "" || chatID == 0 {
		return &TelegramNotifier{logger: logger}
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		logger.WithError(err).Warn("Telegram ops channel disabled: invalid token")
		return &TelegramNotifier{logger: logger}
	}
	return &TelegramNotifier{bot: bot, chatID: chatID, logger: logger}
}

func (t *TelegramNotifier) Enabled() bool {
	return t.bot != nil
}

func (t *TelegramNotifier) Notify(text string) error {
	if t.bot == nil {
		return nil
	}
	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
