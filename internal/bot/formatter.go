package bot

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"kimi-assistant/internal/calendar"
	"kimi-assistant/internal/event"
	"kimi-assistant/internal/eventtime"
	"kimi-assistant/internal/updater"
)

// Confirmation is everything shown after an event was added.
type Confirmation struct {
	Event     *event.Normalized
	Icon      string
	UserZone  *time.Location
	Conflicts []string
	Link      string
	Model     string
}

func FormatCreated(c Confirmation) string {
	ev := c.Event
	var sb strings.Builder
	sb.WriteString("✅ 已添加\n\n")

	icon := c.Icon
	if ev.AllDay {
		icon = "✅"
	}
	sb.WriteString(fmt.Sprintf("%s *%s*\n", icon, EscMD(ev.Body.Summary)))
	sb.WriteString(fmt.Sprintf("📅 %s \\(%s\\)\n",
		EscMD(ev.Start.Format("2006-01-02")), eventtime.Weekday(ev.Start)))
	sb.WriteString(fmt.Sprintf("🕒 %s\n", formatSpan(ev, c.UserZone)))

	if ev.Body.Location != "" {
		sb.WriteString(fmt.Sprintf("📍 %s\n", EscMD(ev.Body.Location)))
	}
	if len(c.Conflicts) > 0 {
		sb.WriteString(fmt.Sprintf("\n⚠️ *冲突*: %s\n", EscMD(strings.Join(c.Conflicts, "; "))))
	}
	if ev.FallbackNote != "" {
		sb.WriteString(EscMD(ev.FallbackNote) + "\n")
	}
	if c.Link != "" {
		sb.WriteString(fmt.Sprintf("🔗 [查看日历](%s)\n", escLink(c.Link)))
	}
	if c.Model != "" {
		sb.WriteString(fmt.Sprintf("\n🧠 %s", EscMD(c.Model)))
	}
	return sb.String()
}

func formatSpan(ev *event.Normalized, user *time.Location) string {
	if ev.AllDay {
		return "📝 全天待办 / 任务"
	}

	startZone := ev.Start.Location().String()
	endZone := ev.End.Location().String()

	var span string
	if startZone == endZone {
		span = fmt.Sprintf("%s - %s (%s)",
			ev.Start.Format("15:04"), ev.End.Format("15:04"), eventtime.DisplayName(startZone))
	} else {
		span = fmt.Sprintf("%s (%s) - %s (%s)",
			ev.Start.Format("15:04"), eventtime.DisplayName(startZone),
			ev.End.Format("15:04"), eventtime.DisplayName(endZone))
	}
	span = EscMD(span)

	if user != nil && (startZone != user.String() || endZone != user.String()) {
		span += fmt.Sprintf("\n🕒 *我的时间*: %s",
			EscMD(ev.Start.In(user).Format("15:04")+" - "+ev.End.In(user).Format("15:04")))
	}
	return span
}

// FormatUpdate renders the notification for a subscription update.
func FormatUpdate(r *updater.Report) string {
	var sb strings.Builder
	sb.WriteString("🔄 *Singbox配置更新通知*\n\n")
	sb.WriteString(fmt.Sprintf("📦 *版本*: `%s`\n", r.Version))
	sb.WriteString(fmt.Sprintf("⏰ *时间*: %s\n\n", EscMD(r.At.Format("2006-01-02 15:04:05"))))

	if ch := r.Changes; ch != nil {
		sb.WriteString("📊 *变更摘要*:\n")
		sb.WriteString(fmt.Sprintf("• 新增服务器: %d 个\n", len(ch.Added)))
		sb.WriteString(fmt.Sprintf("• 移除服务器: %d 个\n", len(ch.Removed)))
		sb.WriteString(fmt.Sprintf("• 配置更新: %d 个\n", len(ch.Modified)))
		sb.WriteString(fmt.Sprintf("• 服务器总数: %d → %d\n\n", ch.TotalOld, ch.TotalNew))
	}

	sb.WriteString("📁 *生成的配置文件*:\n")
	for i, f := range r.Files {
		sb.WriteString(fmt.Sprintf("%d\\. %s\n", i+1, EscMD(filepath.Base(f.Path))))
	}
	sb.WriteString("\n⬇️ 正在发送配置文件\\.\\.\\.")
	return sb.String()
}

// FileCaption describes a generated file. Captions are sent as plain text.
func FileCaption(kind string) string {
	switch kind {
	case updater.KindPro:
		return "📋 Pro V5.9 Updated\n完整功能版，包含所有订阅服务器和自定义服务器"
	case updater.KindPersonal:
		return "📱 Air V5.9\n个人简化版，保留AllServer组和自定义服务器"
	case updater.KindFriend:
		return "👥 Air V7.8\n朋友分享版，已移除自定义服务器，可安全分享"
	}
	return kind
}

func FormatDaySchedule(events []*calendar.Event, now time.Time) string {
	dateStr := fmt.Sprintf("%s (%s)", now.Format("2006-01-02"), eventtime.Weekday(now))

	if len(events) == 0 {
		return fmt.Sprintf("📅 *%s*\n\n今天没有安排 🎉", EscMD(dateStr))
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📅 *%s* 日程\n\n", EscMD(dateStr)))

	for i, ev := range events {
		sb.WriteString(formatShort(i+1, ev))
	}

	sb.WriteString(fmt.Sprintf("\n_共 %d 项_", len(events)))
	return sb.String()
}

func formatShort(num int, ev *calendar.Event) string {
	var sb strings.Builder

	timeStr := "全天"
	if !ev.AllDay {
		timeStr = ev.Start.Format("15:04")
		if !ev.End.IsZero() {
			timeStr += "–" + ev.End.Format("15:04")
		}
	}

	sb.WriteString(fmt.Sprintf("%d\\. *%s* \\(%s\\)\n", num, EscMD(ev.Title), EscMD(timeStr)))
	if ev.Location != "" {
		sb.WriteString(fmt.Sprintf("   📍 %s\n", EscMD(ev.Location)))
	}
	if ev.MeetLink != "" {
		sb.WriteString(fmt.Sprintf("   📹 [加入 Meet](%s)\n", escLink(ev.MeetLink)))
	}
	if desc := stripHTML(ev.Description); desc != "" {
		if len([]rune(desc)) > 100 {
			desc = string([]rune(desc)[:100]) + "…"
		}
		sb.WriteString(fmt.Sprintf("   _%s_\n", EscMD(desc)))
	}
	sb.WriteString("\n")
	return sb.String()
}

// EscMD escapes the MarkdownV2 special characters.
func EscMD(s string) string {
	r := strings.NewReplacer(
		"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]",
		"(", "\\(", ")", "\\)", "~", "\\~", "`", "\\`",
		">", "\\>", "#", "\\#", "+", "\\+", "-", "\\-",
		"=", "\\=", "|", "\\|", "{", "\\{", "}", "\\}",
		".", "\\.", "!", "\\!",
	)
	return r.Replace(s)
}

// Inside a link target only ')' and '\' need escaping.
func escLink(s string) string {
	return strings.NewReplacer("\\", "\\\\", ")", "\\)").Replace(s)
}

func stripHTML(s string) string {
	var out strings.Builder
	inTag := false
	for _, c := range s {
		if c == '<' {
			inTag = true
		} else if c == '>' {
			inTag = false
			out.WriteRune(' ')
		} else if !inTag {
			out.WriteRune(c)
		}
	}
	return strings.Join(strings.Fields(out.String()), " ")
}
