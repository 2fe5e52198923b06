package event

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/calendar/v3"

	"kimi-assistant/internal/eventtime"
)

const (
	createdByTag  = "\n\n[Created by CalendarBot]"
	allDayColorID = "11"
	isoWallClock  = "2006-01-02T15:04:05"
)

// Normalized is a draft that has been validated and repaired, ready to
// be inserted into a calendar.
type Normalized struct {
	Body     *calendar.Event
	Category string
	AllDay   bool
	// Start and End are in their own zones; for all-day events they
	// are midnight UTC of the start date and the following day.
	Start time.Time
	End   time.Time
	// FallbackNote is non-empty when a zone from the draft was unknown.
	FallbackNote string
}

type Normalizer struct {
	validator       *Validator
	defaultCategory string
	now             func() time.Time
	log             *zap.Logger
}

func NewNormalizer(v *Validator, defaultCategory string, log *zap.Logger) *Normalizer {
	return &Normalizer{
		validator:       v,
		defaultCategory: defaultCategory,
		now:             time.Now,
		log:             log,
	}
}

// Normalize validates d and converts it into a calendar request body.
// userZone is the zone of the sender and the fallback for every zone
// the draft leaves out or gets wrong.
func (n *Normalizer) Normalize(d *Draft, userZone string) (*Normalized, error) {
	if err := n.validator.Validate(d, n.defaultCategory); err != nil {
		return nil, err
	}

	out := &Normalized{
		Category: d.Category,
		AllDay:   d.IsAllDay,
		Body: &calendar.Event{
			Summary:     d.Summary,
			Description: d.Description + createdByTag,
			Location:    d.Location,
		},
	}

	if d.IsAllDay {
		n.allDay(d, out)
	} else if err := n.timed(d, userZone, out); err != nil {
		return nil, err
	}

	if rules := NormalizeRecurrence(d.Recurrence); rules != nil {
		out.Body.Recurrence = rules
	}
	return out, nil
}

func (n *Normalizer) allDay(d *Draft, out *Normalized) {
	// Validate already checked the layout.
	start, _ := time.Parse(DateLayout, d.StartTime)
	end := start.AddDate(0, 0, 1)

	out.Body.Start = &calendar.EventDateTime{Date: start.Format(DateLayout)}
	out.Body.End = &calendar.EventDateTime{Date: end.Format(DateLayout)}
	out.Body.ColorId = allDayColorID
	out.Start = start
	out.End = end
}

func (n *Normalizer) timed(d *Draft, userZone string, out *Normalized) error {
	rawStartZone := d.StartTimezone
	if rawStartZone == "" {
		rawStartZone = d.EventTimezone
	}
	rawEndZone := d.EndTimezone
	if rawEndZone == "" {
		rawEndZone = rawStartZone
	}

	startZone, err := eventtime.ResolveZone(rawStartZone, userZone)
	if err != nil {
		return fmt.Errorf("resolve start zone: %w", err)
	}
	endZone, err := eventtime.ResolveZone(rawEndZone, userZone)
	if err != nil {
		return fmt.Errorf("resolve end zone: %w", err)
	}

	if startZone.FellBack || endZone.FellBack {
		n.log.Warn("⚠️ Unknown timezone in draft, using user zone",
			zap.String("start_zone", rawStartZone),
			zap.String("end_zone", rawEndZone),
			zap.String("user_zone", userZone))
		out.FallbackNote = fmt.Sprintf("\n⚠️ AI未识别时区，已按 %s 安排。", userZone)
	}

	naiveStart, _ := time.Parse(DateTimeLayout, d.StartTime)
	start := eventtime.FixYear(naiveStart, startZone.Location, n.now())

	var end time.Time
	if d.EndTime != "" {
		naiveEnd, _ := time.Parse(DateTimeLayout, d.EndTime)
		end = eventtime.FixEnd(start, naiveEnd, endZone.Location)
	} else {
		end = start.Add(time.Hour)
		endZone = startZone
	}

	out.Body.Start = &calendar.EventDateTime{
		DateTime: start.Format(isoWallClock),
		TimeZone: startZone.Name,
	}
	out.Body.End = &calendar.EventDateTime{
		DateTime: end.Format(isoWallClock),
		TimeZone: endZone.Name,
	}
	out.Start = start
	out.End = end
	return nil
}
