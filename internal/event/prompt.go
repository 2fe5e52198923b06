package event

import (
	"fmt"
	"strings"
	"time"

	"kimi-assistant/internal/config"
)

type PromptInput struct {
	Zone    string
	Now     time.Time
	Members []config.FamilyMember
	// Explicit is set for /event requests, where chat replies are not
	// an option.
	Explicit bool
}

// SystemPrompt builds the instructions that make the model answer with
// a Draft.
func SystemPrompt(in PromptInput) string {
	chat := "If input is clearly NOT an event/task (e.g. casual chat), reply naturally in plain text. DO NOT output JSON."
	if in.Explicit {
		chat = "User explicitly requested an event. You MUST return JSON."
	}

	var roles strings.Builder
	roles.WriteString("Classify based on WHO:\n")
	names := make([]string, 0, len(in.Members)+1)
	for _, m := range in.Members {
		fmt.Fprintf(&roles, "    - **%s**: %s\n", m.Name, m.Role)
		names = append(names, m.Name)
	}
	roles.WriteString("    - **Family**: Shared events for everyone.")
	names = append(names, config.FamilyCategory)

	current := in.Now.Format(DateTimeLayout)

	return fmt.Sprintf(`
    Current User Context: %[1]s (Timezone: %[2]s).

    【Task】Parse request into Google Calendar Event JSON.
    %[3]s

    【RULE 1: Family Categories】
    %[4]s

    【RULE 2: Tasks vs Events】
    - **Normal Event**: Specific time (e.g. "Meeting at 3pm").
      -> Set "is_all_day": false, "start_time": "YYYY-MM-DD HH:MM:SS".
    - **Task/Todo**: No specific time (e.g. "Buy milk", "Call Mom today").
      -> Set "is_all_day": true.
      -> Set "start_time": "YYYY-MM-DD" (Date ONLY, no time).
      -> No need for timezones or end_time.

    【RULE 3: Date Logic】
    - Missing year? Assume UPCOMING relative to Now (%[1]s).
    - Validate Weekday.

    【Output JSON】
    {
        "is_event": true,
        "is_all_day": boolean,
        "category": "%[5]s",
        "summary": "Title",
        "start_time": "YYYY-MM-DD HH:MM:SS" OR "YYYY-MM-DD",
        "start_timezone": "IANA_TZ" (Optional if all_day),
        "end_time": "...",
        "end_timezone": "...",
        "location": "...",
        "description": "...",
        "recurrence": []
    }
    `, current, in.Zone, chat, roles.String(), strings.Join(names, "|"))
}
