package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/zpdzap/swop/internal/sandbox"
)

const barWidth = 20

func (m model) View() string {
	if m.quitting || m.launch != "" {
		return ""
	}

	header := headerStyle.Width(m.width).Render("swop — codex accounts")

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")

	if len(m.accounts) == 0 {
		b.WriteString(emptyStyle.Render("No accounts yet. Add one with swop add <label>."))
		b.WriteString("\n\n")
		b.WriteString(hotkeysStyle.Render("[q] quit"))
		b.WriteString("\n")
		return b.String()
	}

	for i, a := range m.accounts {
		b.WriteString(m.renderAccount(i, a))
		b.WriteString("\n")
	}

	b.WriteString(dividerStyle.Render(strings.Repeat("─", m.width)))
	b.WriteString("\n")
	b.WriteString(hotkeysStyle.Render("[↑↓] select  [enter] run codex  [r] refresh  [q] quit"))
	b.WriteString("\n")

	if m.message != "" {
		switch {
		case m.isError:
			b.WriteString(errorStyle.Render(m.message))
		case m.refreshing > 0:
			b.WriteString("  " + m.spin.View() + messageStyle.Render(m.message))
		default:
			b.WriteString(messageStyle.Render(m.message))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func (m model) renderAccount(index int, a sandbox.Meta) string {
	cursor := "  "
	nStyle := nameStyle
	if index == m.cursor {
		cursor = "▸ "
		nStyle = selectedNameStyle
	}

	icon, iStyle := m.accountIcon(a.LabelKey)
	parts := []string{fmt.Sprintf("  %s%s %s", cursor, iStyle.Render(icon), nStyle.Render(a.LabelKey))}

	if err, ok := m.errs[a.LabelKey]; ok {
		parts = append(parts, errorStyle.Render(fmt.Sprintf("usage unavailable: %v", err)))
		return strings.Join(parts, "  ")
	}

	res, ok := m.results[a.LabelKey]
	if !ok {
		parts = append(parts, m.spin.View()+planStyle.Render("loading"))
		return strings.Join(parts, "  ")
	}

	if res.Usage.PlanType != "" {
		parts = append(parts, planStyle.Render(res.Usage.PlanType))
	}

	rl := res.Usage.RateLimit
	if rl == nil {
		parts = append(parts, planStyle.Render("no quota data"))
	} else if !rl.Allowed || rl.LimitReached {
		parts = append(parts, barBlocked.Render("BLOCKED"))
	} else {
		remaining := 100 - rl.PrimaryWindow.UsedPercent
		if remaining < 0 {
			remaining = 0
		}
		parts = append(parts, renderBar(remaining), planStyle.Render(fmt.Sprintf("%.0f%% left", remaining)))
		if rl.SecondaryWindow.ResetAt != "" {
			parts = append(parts, resetStyle.Render("resets "+rl.SecondaryWindow.ResetAt))
		}
	}

	if res.Freshness.Stale {
		parts = append(parts, staleStyle.Render("stale"))
	}

	return strings.Join(parts, "  ")
}

func renderBar(remainingPercent float64) string {
	filled := int(math.Round(remainingPercent / 100 * barWidth))
	if filled < 0 {
		filled = 0
	}
	if filled > barWidth {
		filled = barWidth
	}
	style := barBlocked
	switch {
	case remainingPercent > 50:
		style = barHealthy
	case remainingPercent > 20:
		style = barLow
	}
	return "[" +
		style.Render(strings.Repeat("█", filled)) +
		barEmptyFg.Render(strings.Repeat("░", barWidth-filled)) +
		"]"
}

// accountIcon reflects quota health at a glance.
func (m model) accountIcon(label string) (string, lipgloss.Style) {
	res, ok := m.results[label]
	if !ok || res.Usage.RateLimit == nil {
		return "◌", iconUnknown
	}
	rl := res.Usage.RateLimit
	if !rl.Allowed || rl.LimitReached {
		return "○", iconBlocked
	}
	switch remaining := 100 - rl.PrimaryWindow.UsedPercent; {
	case remaining > 20:
		return "●", iconHealthy
	default:
		return "◎", iconLow
	}
}
