package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"kimi-assistant/internal/bot"
	"kimi-assistant/internal/calendar"
	"kimi-assistant/internal/eventtime"
	"kimi-assistant/internal/store"
)

var calendarUser int64

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Read the iCal feed",
}

var calendarTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "Print today's schedule from ICAL_URL",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(calendarUser)
		if err != nil {
			return err
		}
		if cfg.ICalURL == "" {
			return fmt.Errorf("ICAL_URL is not set")
		}

		zone := cfg.DefaultZone
		if calendarUser != 0 {
			st, err := store.Open(cfg.DatabasePath, cfg.DefaultZone, logger)
			if err != nil {
				return err
			}
			zone, err = st.UserZone(cmd.Context(), calendarUser)
			st.Close()
			if err != nil {
				return err
			}
		}

		res, err := eventtime.ResolveZone(zone, cfg.DefaultZone)
		if err != nil {
			return err
		}

		events, err := calendar.NewFeed(cfg.ICalURL, res.Location).Today(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), bot.FormatDaySchedule(events, time.Now().In(res.Location)))
		return nil
	},
}

func init() {
	calendarCmd.PersistentFlags().Int64Var(&calendarUser, "user", 0, "Telegram user ID whose timezone applies")
	calendarCmd.AddCommand(calendarTodayCmd)
}
