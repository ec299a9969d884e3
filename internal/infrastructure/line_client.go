package infrastructure

import (
	"context"
	"fmt"
	"net/http"

	"github.com/line/line-bot-sdk-go/v7/linebot"
	"github.com/sirupsen/logrus"
)

// LineClient wraps the LINE Messaging API for replies, pushes and webhook
// parsing. Transient send failures are retried with capped backoff.
type LineClient struct {
	bot    *linebot.Client
	logger *logrus.Logger
}

func NewLineClient(channelSecret, channelToken string, logger *logrus.Logger) (*LineClient, error) {
	bot, err := linebot.New(channelSecret, channelToken)
	if err != nil {
		return nil, fmt.Errorf("create linebot client: %w", err)
	}
	return &LineClient{bot: bot, logger: logger}, nil
}

// ParseWebhook validates the X-Line-Signature header and decodes events.
// Returns linebot.ErrInvalidSignature when verification fails.
func (l *LineClient) ParseWebhook(req *http.Request) ([]*linebot.Event, error) {
	return l.bot.ParseRequest(req)
}

func (l *LineClient) Reply(ctx context.Context, replyToken, text string) error {
	return withRetry(ctx, l.logger, "line reply", func() error {
		_, err := l.bot.ReplyMessage(replyToken, linebot.NewTextMessage(text)).WithContext(ctx).Do()
		return err
	})
}

func (l *LineClient) Push(ctx context.Context, to, text string) error {
	return withRetry(ctx, l.logger, "line push", func() error {
		_, err := l.bot.PushMessage(to, linebot.NewTextMessage(text)).WithContext(ctx).Do()
		return err
	})
}
