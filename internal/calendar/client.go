package calendar

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/apognu/gocal"
)

type Event struct {
	ID          string
	Title       string
	Start       time.Time
	End         time.Time
	AllDay      bool
	Description string
	Location    string
	MeetLink    string
}

// Feed reads events from an iCal URL.
type Feed struct {
	url    string
	loc    *time.Location
	client *http.Client
}

func NewFeed(url string, loc *time.Location) *Feed {
	return &Feed{
		url:    url,
		loc:    loc,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Window returns the events overlapping [from, to].
func (f *Feed) Window(ctx context.Context, from, to time.Time) ([]*Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build calendar request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download calendar: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("calendar returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read calendar: %w", err)
	}

	return Parse(body, from, to, f.loc)
}

// Today returns the events of the current day in the feed's zone.
func (f *Feed) Today(ctx context.Context) ([]*Event, error) {
	now := time.Now().In(f.loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, f.loc)
	return f.Window(ctx, start, start.AddDate(0, 0, 1))
}

// Parse reads an iCal document and expands the events of [from, to].
func Parse(ics []byte, from, to time.Time, loc *time.Location) ([]*Event, error) {
	parser := gocal.NewParser(bytes.NewReader(ics))
	parser.Start = &from
	parser.End = &to

	if err := parser.Parse(); err != nil {
		return nil, fmt.Errorf("parse ics: %w", err)
	}

	events := make([]*Event, 0, len(parser.Events))
	for _, e := range parser.Events {
		events = append(events, convertEvent(e, loc))
	}
	return events, nil
}

func convertEvent(e gocal.Event, loc *time.Location) *Event {
	ev := &Event{
		ID:          e.Uid,
		Title:       e.Summary,
		Description: e.Description,
		Location:    e.Location,
		// DTSTART;VALUE=DATE:20250601
		AllDay: len(e.RawStart.Value) == len("20060102"),
	}

	if e.Start != nil {
		ev.Start = e.Start.In(loc)
	}
	if e.End != nil {
		ev.End = e.End.In(loc)
	}

	for _, text := range []string{e.Description, e.Location} {
		if link := findMeetLink(text); link != "" {
			ev.MeetLink = link
			break
		}
	}

	return ev
}

func findMeetLink(text string) string {
	for _, word := range splitWords(text) {
		if strings.Contains(word, "meet.google.com") {
			return trimLinkSuffix(word)
		}
	}
	return ""
}

func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(c rune) bool {
		switch c {
		case ' ', '\n', '\t', '\r', '<', '>', '"', '\\':
			return true
		}
		return false
	})
}

func trimLinkSuffix(s string) string {
	return strings.TrimRight(s, ".,;:!?)\"'")
}
