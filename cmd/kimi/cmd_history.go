package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"kimi-assistant/internal/store"
)

var (
	historyUser     int64
	historyCalendar string
	historyEventID  string
	historySummary  string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Record and look up created calendar events",
}

var historyRecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record an event created in a calendar",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(historyUser)
		if err != nil {
			return err
		}
		defer st.Close()

		id, err := st.SaveEvent(cmd.Context(), store.EventRecord{
			UserID:        historyUser,
			CalendarID:    historyCalendar,
			GoogleEventID: historyEventID,
			Summary:       historySummary,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a recorded event, e.g. to undo it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid record id %q: %w", args[0], err)
		}
		st, err := openStore(historyUser)
		if err != nil {
			return err
		}
		defer st.Close()

		rec, err := st.Event(cmd.Context(), id)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		// Other users' records are reported as missing.
		if rec == nil || rec.UserID != historyUser {
			return fmt.Errorf("⚠️ 记录不存在: %d", id)
		}
		printRecord(cmd, rec)
		return nil
	},
}

var historyLastCmd = &cobra.Command{
	Use:   "last",
	Short: "Show the user's most recently created event",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(historyUser)
		if err != nil {
			return err
		}
		defer st.Close()

		rec, err := st.LastEvent(cmd.Context(), historyUser)
		if errors.Is(err, store.ErrNotFound) {
			fmt.Fprintln(cmd.OutOrStdout(), "📝 最近: 无")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "📝 最近: %s (%s)\n", rec.Summary, rec.CreatedAt.Format("2006-01-02 15:04:05"))
		return nil
	},
}

func init() {
	historyCmd.PersistentFlags().Int64Var(&historyUser, "user", 0, "Telegram user ID")

	historyRecordCmd.Flags().StringVar(&historyCalendar, "calendar", "", "Calendar ID the event was created in")
	historyRecordCmd.Flags().StringVar(&historyEventID, "event-id", "", "Event ID returned by the calendar")
	historyRecordCmd.Flags().StringVar(&historySummary, "summary", "", "Event title")
	cobra.CheckErr(historyCmd.MarkPersistentFlagRequired("user"))
	cobra.CheckErr(historyRecordCmd.MarkFlagRequired("calendar"))
	cobra.CheckErr(historyRecordCmd.MarkFlagRequired("event-id"))

	historyCmd.AddCommand(historyRecordCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyLastCmd)
}

func printRecord(cmd *cobra.Command, rec *store.EventRecord) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "id:        %d\n", rec.ID)
	fmt.Fprintf(out, "user:      %d\n", rec.UserID)
	fmt.Fprintf(out, "calendar:  %s\n", rec.CalendarID)
	fmt.Fprintf(out, "event:     %s\n", rec.GoogleEventID)
	fmt.Fprintf(out, "summary:   %s\n", rec.Summary)
	fmt.Fprintf(out, "created:   %s\n", rec.CreatedAt.Format("2006-01-02 15:04:05"))
}
