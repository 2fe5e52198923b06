package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

var ErrInvalidDraft = errors.New("invalid event draft")

// Draft is the event object produced by the language model.
type Draft struct {
	IsEvent       bool           `json:"is_event"`
	IsAllDay      bool           `json:"is_all_day"`
	Category      string         `json:"category"`
	Summary       string         `json:"summary"`
	StartTime     string         `json:"start_time"`
	StartTimezone string         `json:"start_timezone,omitempty"`
	EventTimezone string         `json:"event_timezone,omitempty"`
	EndTime       string         `json:"end_time,omitempty"`
	EndTimezone   string         `json:"end_timezone,omitempty"`
	Location      string         `json:"location,omitempty"`
	Description   string         `json:"description,omitempty"`
	Recurrence    RecurrenceList `json:"recurrence,omitempty"`
}

// RecurrenceList accepts either a single rule string or a list of them.
type RecurrenceList []string

func (r *RecurrenceList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		if one == "" {
			*r = nil
		} else {
			*r = RecurrenceList{one}
		}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("recurrence: %w", err)
	}
	*r = many
	return nil
}

// NormalizeRecurrence trims the rules, drops empty ones and makes sure
// each starts with RRULE:. It returns nil when nothing is left.
func NormalizeRecurrence(rules RecurrenceList) []string {
	var out []string
	for _, rule := range rules {
		rule = strings.TrimSpace(rule)
		if rule == "" {
			continue
		}
		if !strings.HasPrefix(strings.ToUpper(rule), "RRULE:") {
			rule = "RRULE:" + rule
		}
		out = append(out, rule)
	}
	return out
}

// Validator checks drafts against the configured categories.
type Validator struct {
	categories map[string]bool
	log        *zap.Logger
}

func NewValidator(categories []string, log *zap.Logger) *Validator {
	set := make(map[string]bool, len(categories))
	for _, c := range categories {
		set[c] = true
	}
	return &Validator{categories: set, log: log}
}

// Validate rejects drafts without a summary, a start or with times in
// the wrong layout. An unknown category is replaced by
// defaultCategory in place.
func (v *Validator) Validate(d *Draft, defaultCategory string) error {
	if d.Summary == "" {
		return fmt.Errorf("%w: 缺少事件标题 (summary)", ErrInvalidDraft)
	}
	if d.StartTime == "" {
		return fmt.Errorf("%w: 缺少开始时间 (start_time)", ErrInvalidDraft)
	}

	if !v.categories[d.Category] {
		v.log.Warn("⚠️ Unknown category, using default",
			zap.String("category", d.Category),
			zap.String("default", defaultCategory))
		d.Category = defaultCategory
	}

	layout := DateTimeLayout
	if d.IsAllDay {
		layout = DateLayout
	}
	if _, err := time.Parse(layout, d.StartTime); err != nil {
		return fmt.Errorf("%w: 时间格式错误: %v", ErrInvalidDraft, err)
	}
	if d.EndTime != "" {
		if _, err := time.Parse(layout, d.EndTime); err != nil {
			return fmt.Errorf("%w: 时间格式错误: %v", ErrInvalidDraft, err)
		}
	}
	return nil
}
