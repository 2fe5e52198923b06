package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"kimi-assistant/internal/eventtime"
	"kimi-assistant/internal/store"
)

var tzUser int64

var tzCmd = &cobra.Command{
	Use:   "tz",
	Short: "Show or change a user's current timezone",
}

var tzTravelCmd = &cobra.Command{
	Use:   "travel <city-or-zone>",
	Short: "Switch to a travel timezone (London, Tokyo, HK, CN, SG or an IANA name)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		zone, err := eventtime.TravelZone(args[0])
		if err != nil {
			return err
		}
		return setZone(cmd, zone, fmt.Sprintf("✈️ 已切换时区: %s", eventtime.DisplayName(zone)))
	},
}

var tzHomeCmd = &cobra.Command{
	Use:   "home",
	Short: "Switch back to the home timezone",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(tzUser)
		if err != nil {
			return err
		}
		return setZone(cmd, cfg.DefaultZone, fmt.Sprintf("🏠 已回到: %s", eventtime.DisplayName(cfg.DefaultZone)))
	},
}

var tzShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the user's current timezone",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(tzUser)
		if err != nil {
			return err
		}
		defer st.Close()

		zone, err := st.UserZone(cmd.Context(), tzUser)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "🌍 当前时区: %s (%s)\n", eventtime.DisplayName(zone), zone)
		return nil
	},
}

func init() {
	tzCmd.PersistentFlags().Int64Var(&tzUser, "user", 0, "Telegram user ID")
	cobra.CheckErr(tzCmd.MarkPersistentFlagRequired("user"))

	tzCmd.AddCommand(tzTravelCmd)
	tzCmd.AddCommand(tzHomeCmd)
	tzCmd.AddCommand(tzShowCmd)
}

func setZone(cmd *cobra.Command, zone, message string) error {
	st, err := openStore(tzUser)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.SetUserZone(cmd.Context(), tzUser, zone); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), message)
	return nil
}

func openStore(userID int64) (*store.Store, error) {
	cfg, err := loadConfig(userID)
	if err != nil {
		return nil, err
	}
	return store.Open(cfg.DatabasePath, cfg.DefaultZone, logger)
}
