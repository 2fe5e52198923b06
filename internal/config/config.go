package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// FamilyCategory is the shared category every configuration carries in
// addition to its members.
const FamilyCategory = "Family"

type FamilyMember struct {
	Name   string `json:"name"`
	Role   string `json:"role"`
	EnvVar string `json:"env_var"`
	Icon   string `json:"icon"`
}

type Config struct {
	AllowedUserIDs []int64
	DefaultZone    string
	DatabasePath   string
	ModelName      string
	ICalURL        string
	LogLevel       string
	Family         []FamilyMember

	primaryCalendar string
	calendars       map[string]string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	zone := getEnv("DEFAULT_HOME_TZ", "Asia/Singapore")
	if _, err := time.LoadLocation(zone); err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_HOME_TZ: %w", err)
	}

	allowed, err := parseIDs(os.Getenv("ALLOWED_USER_IDS"))
	if err != nil {
		return nil, fmt.Errorf("invalid ALLOWED_USER_IDS: %w", err)
	}

	family, err := parseFamily(os.Getenv("FAMILY_CONFIG"))
	if err != nil {
		return nil, fmt.Errorf("invalid FAMILY_CONFIG: %w", err)
	}

	cfg := &Config{
		AllowedUserIDs:  allowed,
		DefaultZone:     zone,
		DatabasePath:    getEnv("DB_PATH", "data/calendar_bot_v2.db"),
		ModelName:       getEnv("LLM_MODEL_NAME", "google/gemini-3-flash-preview"),
		ICalURL:         os.Getenv("ICAL_URL"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Family:          family,
		primaryCalendar: os.Getenv("GOOGLE_CALENDAR_ID"),
		calendars:       make(map[string]string),
	}

	for _, m := range family {
		if m.EnvVar != "" {
			cfg.calendars[m.Name] = os.Getenv(m.EnvVar)
		}
	}
	cfg.calendars[FamilyCategory] = os.Getenv("GOOGLE_CALENDAR_ID_FAMILY")

	return cfg, nil
}

// DefaultFamily is used when FAMILY_CONFIG is not set.
func DefaultFamily() []FamilyMember {
	return []FamilyMember{
		{Name: "Kimi", Role: "Default / Father", EnvVar: "GOOGLE_CALENDAR_ID", Icon: "👱‍♂️"},
		{Name: "Kiki", Role: "Daughter", EnvVar: "GOOGLE_CALENDAR_ID_KIKI", Icon: "👧"},
		{Name: "Jason", Role: "Son", EnvVar: "GOOGLE_CALENDAR_ID_JASON", Icon: "👦"},
		{Name: "Janet", Role: "Wife", EnvVar: "GOOGLE_CALENDAR_ID_JANET", Icon: "👩‍🎨"},
	}
}

// DefaultCategory is the first family member, the owner of the primary
// calendar.
func (c *Config) DefaultCategory() string {
	return c.Family[0].Name
}

// Categories lists every member plus the shared Family category.
func (c *Config) Categories() []string {
	out := make([]string, 0, len(c.Family)+1)
	for _, m := range c.Family {
		out = append(out, m.Name)
	}
	return append(out, FamilyCategory)
}

func (c *Config) Icon(category string) string {
	if category == FamilyCategory {
		return "🏠"
	}
	for _, m := range c.Family {
		if m.Name == category && m.Icon != "" {
			return m.Icon
		}
	}
	return "📅"
}

// CalendarID routes a category to its calendar. Categories without a
// configured calendar land on the primary one, or "primary" if even
// that is missing.
func (c *Config) CalendarID(category string) string {
	if id := c.calendars[category]; id != "" {
		return id
	}
	if c.primaryCalendar != "" {
		return c.primaryCalendar
	}
	return "primary"
}

func (c *Config) IsAllowed(userID int64) bool {
	for _, id := range c.AllowedUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func parseFamily(raw string) ([]FamilyMember, error) {
	if strings.TrimSpace(raw) == "" {
		return DefaultFamily(), nil
	}
	var members []FamilyMember
	if err := json.Unmarshal([]byte(raw), &members); err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("no family members")
	}
	for i, m := range members {
		if m.Name == "" {
			return nil, fmt.Errorf("member %d has no name", i)
		}
	}
	return members, nil
}

func parseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
