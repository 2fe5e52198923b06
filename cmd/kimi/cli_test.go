package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testEnv points the calendar configuration at a scratch database.
func testEnv(t *testing.T) string {
	t.Helper()
	logger = zap.NewNop()

	dir := t.TempDir()
	t.Setenv("DB_PATH", filepath.Join(dir, "bot.db"))
	t.Setenv("DEFAULT_HOME_TZ", "Asia/Singapore")
	t.Setenv("ALLOWED_USER_IDS", "")
	t.Setenv("FAMILY_CONFIG", "")
	t.Setenv("GOOGLE_CALENDAR_ID", "kimi@example.com")
	t.Setenv("GOOGLE_CALENDAR_ID_FAMILY", "family@example.com")
	t.Setenv("ICAL_URL", "")
	return dir
}

func newCmd() (*cobra.Command, *bytes.Buffer) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	cmd.SetContext(context.Background())
	return cmd, &buf
}

func TestTzCommands(t *testing.T) {
	testEnv(t)
	tzUser = 42
	defer func() { tzUser = 0 }()

	cmd, out := newCmd()
	require.NoError(t, tzShowCmd.RunE(cmd, nil))
	assert.Contains(t, out.String(), "Asia/Singapore")

	cmd, out = newCmd()
	require.NoError(t, tzTravelCmd.RunE(cmd, []string{"Tokyo"}))
	assert.Contains(t, out.String(), "东京")

	cmd, out = newCmd()
	require.NoError(t, tzShowCmd.RunE(cmd, nil))
	assert.Contains(t, out.String(), "Asia/Tokyo")

	cmd, _ = newCmd()
	assert.Error(t, tzTravelCmd.RunE(cmd, []string{"Mars/Olympus"}))

	cmd, out = newCmd()
	require.NoError(t, tzHomeCmd.RunE(cmd, nil))
	assert.Contains(t, out.String(), "新加坡")
}

func TestLoadConfig_AllowList(t *testing.T) {
	testEnv(t)
	t.Setenv("ALLOWED_USER_IDS", "1,2")

	_, err := loadConfig(1)
	assert.NoError(t, err)
	_, err = loadConfig(3)
	assert.ErrorContains(t, err, "not allowed")
}

func TestEventNormalize(t *testing.T) {
	dir := testEnv(t)
	eventZone, eventUser, eventPreview = "Asia/Singapore", 0, false
	defer func() { eventZone, eventPreview = "", false }()

	reply := "```json\n" + `{"is_event": "true", "category": "Family", "summary": "Dinner",
		"start_time": "2031-05-01 19:00:00", "start_timezone": "Asia/Tokyo", "recurrence": "RRULE:FREQ=WEEKLY"}` + "\n```"
	path := filepath.Join(dir, "reply.txt")
	require.NoError(t, os.WriteFile(path, []byte(reply), 0o644))

	cmd, out := newCmd()
	require.NoError(t, runEventNormalize(cmd, []string{path}))

	var got struct {
		CalendarID string `json:"calendar_id"`
		Category   string `json:"category"`
		Event      struct {
			Summary string `json:"summary"`
			Start   struct {
				DateTime string `json:"dateTime"`
				TimeZone string `json:"timeZone"`
			} `json:"start"`
			End struct {
				DateTime string `json:"dateTime"`
			} `json:"end"`
			Recurrence []string `json:"recurrence"`
		} `json:"event"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))

	assert.Equal(t, "family@example.com", got.CalendarID)
	assert.Equal(t, "Family", got.Category)
	assert.Equal(t, "Dinner", got.Event.Summary)
	assert.Equal(t, "2031-05-01T19:00:00", got.Event.Start.DateTime)
	assert.Equal(t, "Asia/Tokyo", got.Event.Start.TimeZone)
	assert.Equal(t, "2031-05-01T20:00:00", got.Event.End.DateTime, "one hour by default")
	assert.Equal(t, []string{"RRULE:FREQ=WEEKLY"}, got.Event.Recurrence)
}

func TestEventNormalize_Preview(t *testing.T) {
	dir := testEnv(t)
	eventZone, eventUser, eventPreview = "Asia/Singapore", 0, true
	defer func() { eventZone, eventPreview = "", false }()

	path := filepath.Join(dir, "reply.txt")
	require.NoError(t, os.WriteFile(path, []byte(
		`{"is_event": true, "is_all_day": true, "category": "Kiki", "summary": "Buy milk", "start_time": "2031-05-01"}`), 0o644))

	cmd, out := newCmd()
	require.NoError(t, runEventNormalize(cmd, []string{path}))
	assert.Contains(t, out.String(), "✅ 已添加")
	assert.Contains(t, out.String(), "Buy milk")
	assert.Contains(t, out.String(), "全天待办")
}

func TestEventNormalize_ChatReply(t *testing.T) {
	testEnv(t)
	eventZone = "Asia/Singapore"
	defer func() { eventZone = "" }()

	cmd, out := newCmd()
	cmd.SetIn(strings.NewReader("Hi! How can I help?"))
	require.NoError(t, runEventNormalize(cmd, nil))
	assert.Equal(t, "Hi! How can I help?\n", out.String())
}

func TestEventPrompt(t *testing.T) {
	testEnv(t)
	eventZone, eventExplicit = "Asia/Tokyo", true
	defer func() { eventZone, eventExplicit = "", false }()

	cmd, out := newCmd()
	require.NoError(t, runEventPrompt(cmd, nil))
	assert.Contains(t, out.String(), "Timezone: Asia/Tokyo")
	assert.Contains(t, out.String(), "You MUST return JSON")
	assert.Contains(t, out.String(), "**Kiki**")
}

func TestHistoryCommands(t *testing.T) {
	testEnv(t)
	historyUser, historyCalendar, historyEventID, historySummary = 42, "kimi@example.com", "ev1", "Dentist"
	defer func() { historyUser, historyCalendar, historyEventID, historySummary = 0, "", "", "" }()

	cmd, out := newCmd()
	require.NoError(t, historyLastCmd.RunE(cmd, nil))
	assert.Contains(t, out.String(), "最近: 无")

	cmd, out = newCmd()
	require.NoError(t, historyRecordCmd.RunE(cmd, nil))
	id := strings.TrimSpace(out.String())
	assert.Equal(t, "1", id)

	cmd, out = newCmd()
	require.NoError(t, historyShowCmd.RunE(cmd, []string{id}))
	assert.Contains(t, out.String(), "event:     ev1")

	cmd, out = newCmd()
	require.NoError(t, historyLastCmd.RunE(cmd, nil))
	assert.Contains(t, out.String(), "最近: Dentist")

	cmd, _ = newCmd()
	assert.ErrorContains(t, historyShowCmd.RunE(cmd, []string{"99"}), "记录不存在")

	historyUser = 7
	cmd, out = newCmd()
	assert.ErrorContains(t, historyShowCmd.RunE(cmd, []string{id}), "记录不存在")
	assert.Empty(t, out.String())
}

func TestHistoryCommands_UserRequired(t *testing.T) {
	testEnv(t)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		historyUser, historyCalendar, historyEventID = 0, "", ""
	}()

	for _, args := range [][]string{
		{"history", "record", "--calendar", "kimi@example.com", "--event-id", "ev1"},
		{"history", "last"},
		{"history", "show", "1"},
	} {
		t.Run(args[1], func(t *testing.T) {
			var buf bytes.Buffer
			rootCmd.SetOut(&buf)
			rootCmd.SetErr(&buf)
			rootCmd.SetArgs(args)
			assert.ErrorContains(t, rootCmd.Execute(), `required flag(s) "user" not set`)
		})
	}
}

func TestSingboxAir(t *testing.T) {
	logger = zap.NewNop()
	dir := t.TempDir()
	singboxOutDir = filepath.Join(dir, "out")
	defer func() { singboxOutDir = "output" }()

	pro := filepath.Join(dir, "Singbox_Pro_V6_1.json")
	require.NoError(t, os.WriteFile(pro, []byte(`{"outbounds": [
		{"type": "selector", "tag": "Proxy", "outbounds": ["HKonly", "YouTube", "AllServer"]},
		{"type": "urltest", "tag": "HKonly", "outbounds": ["SGoffice"]},
		{"type": "urltest", "tag": "AllServer", "outbounds": []},
		{"type": "selector", "tag": "YouTube", "outbounds": ["HKonly"]},
		{"type": "vless", "tag": "SGoffice", "server": "office.example", "server_port": 8443}
	]}`), 0o644))

	cmd, out := newCmd()
	require.NoError(t, runSingboxAir(cmd, []string{pro}))

	assert.Contains(t, out.String(), "Singbox_Air_V6_1_Generated.json")
	assert.Contains(t, out.String(), "Singbox_Air_V7_8_Generated.json")

	raw, err := os.ReadFile(filepath.Join(singboxOutDir, "Singbox_Air_V7_8_Generated.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "SGoffice")
}
