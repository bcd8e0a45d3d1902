package notifier

import (
	"fmt"
	"strings"
	"time"

	"wheelhouse/internal/alert"
	"wheelhouse/internal/lifecycle"
)

const maxStructuredMessageLen = 3800

// MessageSection 表示通知中的一个段落。
type MessageSection struct {
	Title string
	Lines []string
}

// StructuredMessage 描述统一格式的推送消息。
type StructuredMessage struct {
	Icon      string
	Title     string
	Sections  []MessageSection
	Footer    string
	Timestamp time.Time
}

// RenderMarkdown 生成 Markdown 文本，自动裁剪长度。
func (m StructuredMessage) RenderMarkdown() string {
	var b strings.Builder
	header := strings.TrimSpace(strings.TrimSpace(m.Icon + " " + m.Title))
	if header != "" {
		b.WriteString(header + "\n\n")
	}
	if block := renderSections(m.Sections); block != "" {
		b.WriteString(block)
	}
	if footer := strings.TrimSpace(m.Footer); footer != "" {
		b.WriteString(sanitize(footer))
		b.WriteString("\n")
	}
	if !m.Timestamp.IsZero() {
		b.WriteString("时间：" + m.Timestamp.Format("2006-01-02 15:04:05 MST"))
	}
	body := strings.TrimSpace(b.String())
	if len(body) > maxStructuredMessageLen {
		body = body[:maxStructuredMessageLen] + "..."
	}
	return body
}

// FromAlert 把一条逻辑告警渲染成统一推送格式。
func FromAlert(a alert.Alert, at time.Time) StructuredMessage {
	lines := []string{
		"级别: " + string(a.Severity),
		"原因: " + a.ReasonCode,
	}
	if a.Symbol != "" {
		lines = append(lines, "标的: "+a.Symbol)
	}
	if a.Stage != "" {
		lines = append(lines, "阶段: "+a.Stage)
	}
	sections := []MessageSection{{Title: a.Summary, Lines: lines}}
	if a.ActionHint != "" {
		sections = append(sections, MessageSection{Title: "建议动作", Lines: []string{a.ActionHint}})
	}
	return StructuredMessage{
		Icon:      severityIcon(a.Severity),
		Title:     a.Type,
		Sections:  sections,
		Timestamp: at,
	}
}

// FromLifecycleEvent 渲染生命周期指令。
func FromLifecycleEvent(ev lifecycle.Event, at time.Time) StructuredMessage {
	return StructuredMessage{
		Icon:  "⚠️",
		Title: fmt.Sprintf("%s %s", ev.Symbol, ev.Directive),
		Sections: []MessageSection{{
			Lines: []string{
				"动作: " + string(ev.Action),
				"原因: " + ev.Reason,
				ev.Detail,
			},
		}},
		Timestamp: at,
	}
}

func severityIcon(s alert.Severity) string {
	switch s {
	case alert.SeverityCritical:
		return "🚨"
	case alert.SeverityWarning:
		return "⚠️"
	default:
		return "ℹ️"
	}
}

func renderSections(secs []MessageSection) string {
	hasContent := false
	for _, sec := range secs {
		if len(sanitizeLines(sec.Lines)) > 0 {
			hasContent = true
			break
		}
	}
	if !hasContent {
		return ""
	}
	var b strings.Builder
	b.WriteString("```\n")
	for idx, sec := range secs {
		lines := sanitizeLines(sec.Lines)
		if len(lines) == 0 {
			continue
		}
		title := strings.TrimSpace(sec.Title)
		if title != "" {
			b.WriteString(sanitize(title))
			b.WriteString("\n")
		}
		for _, line := range lines {
			b.WriteString("- ")
			b.WriteString(sanitize(line))
			b.WriteString("\n")
		}
		if idx != len(secs)-1 {
			b.WriteString("\n")
		}
	}
	b.WriteString("```\n\n")
	return b.String()
}

func sanitizeLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if text := strings.TrimSpace(line); text != "" {
			out = append(out, text)
		}
	}
	return out
}

func sanitize(s string) string {
	s = strings.ReplaceAll(s, "```", "'''")
	return s
}
