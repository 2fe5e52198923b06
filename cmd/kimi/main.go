package main

import (
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kimi-assistant/internal/config"
	"kimi-assistant/internal/logging"
)

var (
	logger   *zap.Logger
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "kimi",
	Short: "Family calendar assistant and sing-box subscription updater",
	Long: `kimi turns model replies into calendar events for the family calendars,
keeps per-user timezone state, and rebuilds sing-box configurations when
the proxy subscription changes.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if logger != nil {
			return nil
		}
		level := logLevel
		if level == "" {
			level = os.Getenv("LOG_LEVEL")
		}
		if level == "" {
			level = "info"
		}
		l, err := logging.New(level)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); defaults to LOG_LEVEL")

	rootCmd.AddCommand(eventCmd)
	rootCmd.AddCommand(tzCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(calendarCmd)
	rootCmd.AddCommand(singboxCmd)
}

// loadConfig reads the calendar side configuration and rejects users
// outside the allow list when one is configured.
func loadConfig(userID int64) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if userID != 0 && len(cfg.AllowedUserIDs) > 0 && !cfg.IsAllowed(userID) {
		return nil, fmt.Errorf("user %d is not allowed", userID)
	}
	return cfg, nil
}

func main() {
	err := rootCmd.Execute()
	if logger != nil {
		_ = logger.Sync()
	}
	if err != nil {
		os.Exit(1)
	}
}
