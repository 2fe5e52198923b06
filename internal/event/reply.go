package event

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

var objectPattern = regexp.MustCompile(`\{[\s\S]*\}`)

// Reply is a classified model answer: either an event draft or plain
// chat text.
type Reply struct {
	Event *Draft
	Text  string
}

func (r Reply) IsEvent() bool {
	return r.Event != nil
}

// ParseReply looks for a JSON object in content, either the whole text
// or its outermost braces once markdown fences are stripped. Only an
// object with a truthy is_event becomes an event; anything else is
// returned as text, unchanged.
func ParseReply(content string) Reply {
	clean := strings.ReplaceAll(content, "```json", "")
	clean = strings.ReplaceAll(clean, "```", "")
	clean = strings.TrimSpace(clean)

	raw := extractObject(clean)
	if raw == nil || !truthy(raw["is_event"]) {
		return Reply{Text: content}
	}
	d := draftFrom(raw)
	return Reply{Event: &d}
}

// extractObject returns nil when the text is valid JSON of another
// kind, such as an array.
func extractObject(text string) map[string]any {
	var obj map[string]any
	if json.Valid([]byte(text)) {
		if err := json.Unmarshal([]byte(text), &obj); err != nil {
			return nil
		}
		return obj
	}
	if m := objectPattern.FindString(text); m != "" {
		if err := json.Unmarshal([]byte(m), &obj); err == nil {
			return obj
		}
	}
	return nil
}

// draftFrom reads the fields leniently: the model does not always send
// booleans as booleans or strings as strings.
func draftFrom(raw map[string]any) Draft {
	return Draft{
		IsEvent:       true,
		IsAllDay:      flag(raw["is_all_day"]),
		Category:      text(raw["category"]),
		Summary:       text(raw["summary"]),
		StartTime:     text(raw["start_time"]),
		StartTimezone: text(raw["start_timezone"]),
		EventTimezone: text(raw["event_timezone"]),
		EndTime:       text(raw["end_time"]),
		EndTimezone:   text(raw["end_timezone"]),
		Location:      text(raw["location"]),
		Description:   text(raw["description"]),
		Recurrence:    rules(raw["recurrence"]),
	}
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func rules(v any) RecurrenceList {
	switch x := v.(type) {
	case string:
		if x == "" {
			return nil
		}
		return RecurrenceList{x}
	case []any:
		var out RecurrenceList
		for _, item := range x {
			if s := text(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// flag is truthy, except that strings spelling false are false.
func flag(v any) bool {
	if s, ok := v.(string); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "", "false", "0", "no":
			return false
		}
		return true
	}
	return truthy(v)
}

func truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	}
	return false
}
