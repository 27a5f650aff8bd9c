// Package notify sends run summaries to the curation team's Telegram
// channel. Notifications are best-effort; a delivery failure never fails
// the run that produced it.
package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bfsi-insights/curation-cli/internal/pipeline"
)

// Notifier delivers pipeline run summaries.
type Notifier interface {
	RunSummary(stage string, res pipeline.Result)
}

// Telegram posts run summaries to a chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram validates the token against the API and returns a notifier.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, eris.Wrap(err, "notify: telegram auth")
	}
	return &Telegram{bot: bot, chatID: chatID}, nil
}

func (t *Telegram) RunSummary(stage string, res pipeline.Result) {
	text := fmt.Sprintf(
		"%s run finished\nprocessed: %d\nsucceeded: %d\nfailed: %d\nrejected: %d\nskipped: %d",
		stage, res.Processed, res.Succeeded, res.Failed, res.Rejected, res.Skipped,
	)
	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		zap.L().Warn("telegram notification failed", zap.String("stage", stage), zap.Error(err))
	}
}

// Noop is used when no Telegram credentials are configured.
type Noop struct{}

func (Noop) RunSummary(string, pipeline.Result) {}
