package calendar

import (
	"sort"
	"time"
)

const untitled = "无标题"

// Conflicts returns the titles of timed events that overlap
// [start, end), earliest first. All-day events never conflict.
func Conflicts(events []*Event, start, end time.Time) []string {
	var hits []*Event
	for _, ev := range events {
		if ev.AllDay || ev.Start.IsZero() {
			continue
		}
		evEnd := ev.End
		if evEnd.IsZero() {
			evEnd = ev.Start
		}
		if ev.Start.Before(end) && evEnd.After(start) {
			hits = append(hits, ev)
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Start.Before(hits[j].Start)
	})

	titles := make([]string, 0, len(hits))
	for _, ev := range hits {
		title := ev.Title
		if title == "" {
			title = untitled
		}
		titles = append(titles, title)
	}
	return titles
}
