package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Updater holds the settings of the sing-box subscription updater.
// Values come from a YAML file and are overridden by SINGBOX_*
// environment variables.
type Updater struct {
	SubscriptionURL  string   `yaml:"subscription_url"`
	BaseConfigPath   string   `yaml:"base_config_path"`
	HistoryDir       string   `yaml:"subscription_history_dir"`
	OutputDir        string   `yaml:"output_dir"`
	LogLevel         string   `yaml:"log_level"`
	EnableTelegram   bool     `yaml:"enable_telegram_notification"`
	TelegramBotToken string   `yaml:"telegram_bot_token"`
	TelegramChatID   int64    `yaml:"telegram_chat_id"`
	CustomServers    []string `yaml:"custom_servers"`

	// FromEnv lists the settings taken from the environment.
	FromEnv []string `yaml:"-"`
}

func LoadUpdater(path string) (*Updater, error) {
	_ = godotenv.Load()

	cfg := &Updater{
		BaseConfigPath: "config/Singbox_Pro_V5_9.json",
		HistoryDir:     "subscription_history",
		OutputDir:      "output",
		LogLevel:       "info",
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read settings: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse settings %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if cfg.SubscriptionURL == "" {
		return nil, fmt.Errorf("subscription_url is not set")
	}

	base := "."
	if path != "" {
		base = filepath.Dir(path)
	}
	cfg.BaseConfigPath = resolve(base, cfg.BaseConfigPath)
	cfg.HistoryDir = resolve(base, cfg.HistoryDir)
	cfg.OutputDir = resolve(base, cfg.OutputDir)

	return cfg, nil
}

// TelegramReady reports whether notifications are enabled and have
// credentials to go with them.
func (u *Updater) TelegramReady() bool {
	return u.EnableTelegram && u.TelegramBotToken != "" && u.TelegramChatID != 0
}

func (u *Updater) applyEnv() error {
	if v, ok := os.LookupEnv("SINGBOX_SUBSCRIPTION_URL"); ok {
		u.SubscriptionURL = v
		u.FromEnv = append(u.FromEnv, "subscription_url")
	}
	if v, ok := os.LookupEnv("SINGBOX_TELEGRAM_BOT_TOKEN"); ok {
		u.TelegramBotToken = v
		u.FromEnv = append(u.FromEnv, "telegram_bot_token")
	}
	if v, ok := os.LookupEnv("SINGBOX_TELEGRAM_CHAT_ID"); ok {
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid SINGBOX_TELEGRAM_CHAT_ID: %w", err)
		}
		u.TelegramChatID = id
		u.FromEnv = append(u.FromEnv, "telegram_chat_id")
	}
	if v, ok := os.LookupEnv("SINGBOX_LOG_LEVEL"); ok {
		u.LogLevel = v
		u.FromEnv = append(u.FromEnv, "log_level")
	}
	if v, ok := os.LookupEnv("SINGBOX_ENABLE_TELEGRAM"); ok {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes", "on":
			u.EnableTelegram = true
		default:
			u.EnableTelegram = false
		}
		u.FromEnv = append(u.FromEnv, "enable_telegram_notification")
	}
	return nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
