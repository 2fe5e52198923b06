package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	gcal "google.golang.org/api/calendar/v3"

	"kimi-assistant/internal/bot"
	"kimi-assistant/internal/calendar"
	"kimi-assistant/internal/config"
	"kimi-assistant/internal/event"
	"kimi-assistant/internal/eventtime"
	"kimi-assistant/internal/store"
)

var (
	eventUser     int64
	eventZone     string
	eventPreview  bool
	eventExplicit bool
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Turn model replies into calendar events",
}

var eventNormalizeCmd = &cobra.Command{
	Use:   "normalize [reply-file]",
	Short: "Validate a model reply and print the calendar request",
	Long: `Reads a model reply from a file or stdin. Replies that carry an event
are validated, their dates and timezones repaired, and the resulting
calendar request is printed as JSON. Anything else is echoed back as
chat text.

The user's current timezone comes from --zone, or from the database when
--user is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEventNormalize,
}

var eventPromptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the system prompt for the current time and family",
	RunE:  runEventPrompt,
}

func init() {
	eventNormalizeCmd.Flags().Int64Var(&eventUser, "user", 0, "Telegram user ID whose timezone applies")
	eventNormalizeCmd.Flags().StringVar(&eventZone, "zone", "", "User timezone (overrides the stored one)")
	eventNormalizeCmd.Flags().BoolVar(&eventPreview, "preview", false, "Print the confirmation message instead of JSON")

	eventPromptCmd.Flags().Int64Var(&eventUser, "user", 0, "Telegram user ID whose timezone applies")
	eventPromptCmd.Flags().StringVar(&eventZone, "zone", "", "User timezone (overrides the stored one)")
	eventPromptCmd.Flags().BoolVar(&eventExplicit, "explicit", false, "The user asked for an event explicitly")

	eventCmd.AddCommand(eventNormalizeCmd)
	eventCmd.AddCommand(eventPromptCmd)
}

type normalizeOutput struct {
	CalendarID string      `json:"calendar_id"`
	Category   string      `json:"category"`
	AllDay     bool        `json:"all_day"`
	Event      *gcal.Event `json:"event"`
	Conflicts  []string    `json:"conflicts,omitempty"`
	Warning    string      `json:"warning,omitempty"`
}

func runEventNormalize(cmd *cobra.Command, args []string) error {
	raw, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(eventUser)
	if err != nil {
		return err
	}

	reply := event.ParseReply(string(raw))
	if !reply.IsEvent() {
		fmt.Fprintln(cmd.OutOrStdout(), reply.Text)
		return nil
	}

	userZone, err := currentZone(cmd, cfg)
	if err != nil {
		return err
	}

	validator := event.NewValidator(cfg.Categories(), logger)
	norm, err := event.NewNormalizer(validator, cfg.DefaultCategory(), logger).Normalize(reply.Event, userZone)
	if err != nil {
		return err
	}

	var conflicts []string
	if cfg.ICalURL != "" && !norm.AllDay {
		feed := calendar.NewFeed(cfg.ICalURL, norm.Start.Location())
		events, err := feed.Window(cmd.Context(), norm.Start, norm.End)
		if err != nil {
			logger.Warn("⚠️ Conflict check skipped", zap.Error(err))
		} else {
			conflicts = calendar.Conflicts(events, norm.Start, norm.End)
		}
	}

	out := cmd.OutOrStdout()
	if eventPreview {
		res, err := eventtime.ResolveZone(userZone, cfg.DefaultZone)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, bot.FormatCreated(bot.Confirmation{
			Event:     norm,
			Icon:      cfg.Icon(norm.Category),
			UserZone:  res.Location,
			Conflicts: conflicts,
			Model:     cfg.ModelName,
		}))
		return nil
	}

	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(normalizeOutput{
		CalendarID: cfg.CalendarID(norm.Category),
		Category:   norm.Category,
		AllDay:     norm.AllDay,
		Event:      norm.Body,
		Conflicts:  conflicts,
		Warning:    norm.FallbackNote,
	})
}

func runEventPrompt(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(eventUser)
	if err != nil {
		return err
	}
	zone, err := currentZone(cmd, cfg)
	if err != nil {
		return err
	}
	res, err := eventtime.ResolveZone(zone, cfg.DefaultZone)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), event.SystemPrompt(event.PromptInput{
		Zone:     res.Name,
		Now:      time.Now().In(res.Location),
		Members:  cfg.Family,
		Explicit: eventExplicit,
	}))
	return nil
}

// currentZone picks --zone, then the stored zone of --user, then the
// configured home zone.
func currentZone(cmd *cobra.Command, cfg *config.Config) (string, error) {
	if eventZone != "" {
		return eventZone, nil
	}
	if eventUser == 0 {
		return cfg.DefaultZone, nil
	}

	st, err := store.Open(cfg.DatabasePath, cfg.DefaultZone, logger)
	if err != nil {
		return "", err
	}
	defer st.Close()
	return st.UserZone(cmd.Context(), eventUser)
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(args[0])
}
