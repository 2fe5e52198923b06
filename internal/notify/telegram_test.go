package notify

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kimi-assistant/internal/updater"
)

type fakeSender struct {
	sent   []tgbotapi.Chattable
	failOn func(tgbotapi.Chattable) error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	if f.failOn != nil {
		if err := f.failOn(c); err != nil {
			return tgbotapi.Message{}, err
		}
	}
	return tgbotapi.Message{}, nil
}

func report(t *testing.T) *updater.Report {
	t.Helper()
	dir := t.TempDir()
	pro := filepath.Join(dir, "pro.json")
	friend := filepath.Join(dir, "friend.json")
	require.NoError(t, os.WriteFile(pro, []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(friend, []byte("{}"), 0o644))

	return &updater.Report{
		Version: "subscription_20250601_083000",
		At:      time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC),
		Files: []updater.Output{
			{Kind: updater.KindPro, Path: pro},
			{Kind: updater.KindPersonal, Path: filepath.Join(dir, "missing.json")},
			{Kind: updater.KindFriend, Path: friend},
		},
	}
}

func TestSendUpdate(t *testing.T) {
	s := &fakeSender{}
	r := report(t)

	require.NoError(t, New(s, 42, zap.NewNop()).SendUpdate(context.Background(), r))

	require.Len(t, s.sent, 3, "message plus the two existing files")

	msg, ok := s.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeMarkdownV2, msg.ParseMode)
	assert.Contains(t, msg.Text, "subscription_20250601_083000")

	doc, ok := s.sent[1].(tgbotapi.DocumentConfig)
	require.True(t, ok)
	assert.Equal(t, tgbotapi.FilePath(r.Files[0].Path), doc.File)
	assert.Contains(t, doc.Caption, "Pro V5.9")

	doc, ok = s.sent[2].(tgbotapi.DocumentConfig)
	require.True(t, ok)
	assert.Contains(t, doc.Caption, "Air V7.8")
}

func TestSendUpdate_FileFailureContinues(t *testing.T) {
	s := &fakeSender{failOn: func(c tgbotapi.Chattable) error {
		if _, ok := c.(tgbotapi.DocumentConfig); ok {
			return errors.New("too large")
		}
		return nil
	}}

	err := New(s, 42, zap.NewNop()).SendUpdate(context.Background(), report(t))
	require.NoError(t, err)
	assert.Len(t, s.sent, 3)
}

func TestSendUpdate_MessageFailure(t *testing.T) {
	s := &fakeSender{failOn: func(tgbotapi.Chattable) error { return errors.New("unauthorized") }}

	err := New(s, 42, zap.NewNop()).SendUpdate(context.Background(), report(t))
	assert.ErrorContains(t, err, "unauthorized")
	assert.Len(t, s.sent, 1, "files are not sent without the summary")
}
