package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kimi-assistant/internal/config"
	"kimi-assistant/internal/logging"
	"kimi-assistant/internal/notify"
	"kimi-assistant/internal/singbox"
	"kimi-assistant/internal/subscription"
	"kimi-assistant/internal/updater"
)

var (
	singboxSettings string
	singboxOutDir   string
)

var singboxCmd = &cobra.Command{
	Use:   "singbox",
	Short: "Rebuild sing-box configurations from the proxy subscription",
}

var singboxUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Check the subscription once and regenerate the configs if it changed",
	Long: `Downloads the subscription bundle and compares it with the latest
snapshot. When the servers changed, the Pro configuration is rebuilt
and both Air variants are derived from it. With Telegram enabled the
summary and the files are sent to the configured chat.`,
	Args: cobra.NoArgs,
	RunE: runSingboxUpdate,
}

var singboxAirCmd = &cobra.Command{
	Use:   "air <pro-config>",
	Short: "Derive the personal and shareable Air configs from a Pro config",
	Args:  cobra.ExactArgs(1),
	RunE:  runSingboxAir,
}

func init() {
	singboxUpdateCmd.Flags().StringVar(&singboxSettings, "settings", "config/settings.yaml", "Updater settings file")
	singboxAirCmd.Flags().StringVar(&singboxOutDir, "out", "output", "Directory for the generated files")

	singboxCmd.AddCommand(singboxUpdateCmd)
	singboxCmd.AddCommand(singboxAirCmd)
}

func runSingboxUpdate(cmd *cobra.Command, args []string) error {
	u, err := config.LoadUpdater(singboxSettings)
	if err != nil {
		return err
	}

	log := logger
	if logLevel == "" {
		if log, err = logging.New(u.LogLevel); err != nil {
			return err
		}
	}

	log.Info("📋 Configuration loaded", zap.String("settings", singboxSettings))
	if len(u.FromEnv) > 0 {
		log.Info("   From environment variables: " + strings.Join(u.FromEnv, ", "))
	}

	history, err := subscription.NewHistory(u.HistoryDir)
	if err != nil {
		return err
	}
	checker := subscription.NewChecker(subscription.NewFetcher(u.SubscriptionURL), history, log)

	rules := singbox.DefaultRules()
	if len(u.CustomServers) > 0 {
		rules.CustomServers = u.CustomServers
	}

	var notifier updater.Notifier
	if u.TelegramReady() {
		tg, err := notify.NewTelegram(u.TelegramBotToken, u.TelegramChatID, log)
		if err != nil {
			log.Warn("⚠️ Telegram disabled", zap.Error(err))
		} else {
			notifier = tg
		}
	}

	report, err := updater.New(checker, rules, u.BaseConfigPath, u.OutputDir, notifier, log).Run(cmd.Context())
	if err != nil {
		log.Error("❌ Update failed", zap.Error(err))
		return err
	}
	if report == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "✅ No updates needed")
		return nil
	}
	for _, f := range report.Files {
		fmt.Fprintf(cmd.OutOrStdout(), "%-13s %s (%d outbounds)\n", f.Kind, f.Path, f.Outbounds)
	}
	return nil
}

func runSingboxAir(cmd *cobra.Command, args []string) error {
	pro, err := singbox.Load(args[0])
	if err != nil {
		return err
	}
	rules := singbox.DefaultRules()

	outputs := []struct {
		name string
		doc  singbox.Document
	}{
		{updater.PersonalFile(filepath.Base(args[0])), rules.AirPersonal(pro)},
		{updater.FriendFile, rules.AirFriend(pro)},
	}
	for _, o := range outputs {
		path := filepath.Join(singboxOutDir, o.name)
		if err := singbox.Save(path, o.doc); err != nil {
			return err
		}
		logger.Info("📁 Generated", zap.String("file", path), zap.Int("outbounds", len(o.doc.Outbounds())))
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}
	return nil
}
