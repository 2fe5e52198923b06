package notify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"kimi-assistant/internal/bot"
	"kimi-assistant/internal/updater"
)

// Sender is the part of *tgbotapi.BotAPI used here.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram delivers update reports to a single chat.
type Telegram struct {
	tg     Sender
	chatID int64
	log    *zap.Logger
}

// NewTelegram connects to the bot API with token.
func NewTelegram(token string, chatID int64, log *zap.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	log.Info("✅ Connected to Telegram bot", zap.String("username", api.Self.UserName))
	return New(api, chatID, log), nil
}

func New(tg Sender, chatID int64, log *zap.Logger) *Telegram {
	return &Telegram{tg: tg, chatID: chatID, log: log}
}

// SendUpdate posts the summary and then every generated file. A file
// that is missing or fails to upload is logged and skipped.
func (t *Telegram) SendUpdate(ctx context.Context, r *updater.Report) error {
	msg := tgbotapi.NewMessage(t.chatID, bot.FormatUpdate(r))
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.DisableWebPagePreview = true
	if _, err := t.tg.Send(msg); err != nil {
		return fmt.Errorf("send update message: %w", err)
	}
	t.log.Info("✅ Message sent to Telegram")

	for _, f := range r.Files {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := filepath.Base(f.Path)
		if _, err := os.Stat(f.Path); err != nil {
			t.log.Warn("⚠️ File not found", zap.String("file", f.Path))
			continue
		}

		doc := tgbotapi.NewDocument(t.chatID, tgbotapi.FilePath(f.Path))
		doc.Caption = bot.FileCaption(f.Kind)
		if _, err := t.tg.Send(doc); err != nil {
			t.log.Error("❌ Failed to send file", zap.String("file", name), zap.Error(err))
			continue
		}
		t.log.Info("✅ File sent to Telegram", zap.String("file", name))
	}
	return nil
}
