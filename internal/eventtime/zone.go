package eventtime

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata"
)

// UserContext is the placeholder the model writes when it wants the
// user's own zone.
const UserContext = "UserContext"

// Names the model tends to invent, mapped to real IANA zones.
var corrections = map[string]string{
	"Asia/Beijing":          "Asia/Shanghai",
	"Asia/Osaka":            "Asia/Tokyo",
	"Asia/Kyoto":            "Asia/Tokyo",
	"America/Washington":    "America/New_York",
	"America/San_Francisco": "America/Los_Angeles",
	"US/Pacific":            "America/Los_Angeles",
	"US/Eastern":            "America/New_York",
}

var travelAliases = map[string]string{
	"London": "Europe/London",
	"Tokyo":  "Asia/Tokyo",
	"HK":     "Asia/Hong_Kong",
	"CN":     "Asia/Shanghai",
	"SG":     "Asia/Singapore",
}

var displayNames = map[string]string{
	"Asia/Singapore":      "新加坡",
	"Asia/Shanghai":       "上海",
	"Asia/Tokyo":          "东京",
	"Asia/Hong_Kong":      "香港",
	"Europe/London":       "伦敦",
	"America/New_York":    "纽约",
	"America/Los_Angeles": "洛杉矶",
}

// Resolution is the outcome of ResolveZone.
type Resolution struct {
	Name     string
	Location *time.Location
	// FellBack is set when the requested zone was unknown and the
	// fallback zone was used instead.
	FellBack bool
}

// ResolveZone turns a zone name from the model into a location.
// Empty names and UserContext select fallback silently, unknown names
// select it with FellBack set. Only an unloadable fallback is an error.
func ResolveZone(name, fallback string) (Resolution, error) {
	if name == "" || name == UserContext {
		return loadFallback(fallback, false)
	}

	candidate := name
	if fixed, ok := corrections[name]; ok {
		candidate = fixed
	}

	if candidate != "Local" {
		if loc, err := time.LoadLocation(candidate); err == nil {
			return Resolution{Name: candidate, Location: loc}, nil
		}
	}
	return loadFallback(fallback, true)
}

func loadFallback(fallback string, fellBack bool) (Resolution, error) {
	if fallback == "" {
		return Resolution{}, errors.New("fallback timezone is empty")
	}
	loc, err := time.LoadLocation(fallback)
	if err != nil {
		return Resolution{}, fmt.Errorf("invalid fallback timezone %q: %w", fallback, err)
	}
	return Resolution{Name: fallback, Location: loc, FellBack: fellBack}, nil
}

// TravelZone maps a short travel alias (London, HK, …) or a full IANA
// name to a loadable zone name.
func TravelZone(alias string) (string, error) {
	zone := alias
	if full, ok := travelAliases[alias]; ok {
		zone = full
	}
	if zone == "" || zone == "Local" {
		return "", fmt.Errorf("invalid timezone %q", alias)
	}
	if _, err := time.LoadLocation(zone); err != nil {
		return "", fmt.Errorf("invalid timezone %q: %w", alias, err)
	}
	return zone, nil
}

// DisplayName returns the short Chinese label for well-known zones.
func DisplayName(zone string) string {
	if name, ok := displayNames[zone]; ok {
		return name
	}
	return zone
}

// Weekday returns the Chinese weekday label used in confirmations.
func Weekday(t time.Time) string {
	days := []string{"周日", "周一", "周二", "周三", "周四", "周五", "周六"}
	return days[t.Weekday()]
}
