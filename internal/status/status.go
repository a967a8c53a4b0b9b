// Package status renders the per-account quota overview for `swop status`.
package status

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/zpdzap/swop/internal/config"
	"github.com/zpdzap/swop/internal/sandbox"
	"github.com/zpdzap/swop/internal/usage"
)

const barWidth = 20

var (
	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF"))

	planStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	windowNameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5599FF"))

	resetStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	blockedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF4444"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAA00"))

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF4444"))

	barHealthy  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))
	barLow      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAA00"))
	barCritical = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4444"))
	barEmpty    = lipgloss.NewStyle().Foreground(lipgloss.Color("#333333"))
)

// Deps are the status command's collaborators, injectable for tests.
type Deps struct {
	Cfg      config.Config
	List     func(config.Config) ([]sandbox.Meta, error)
	GetUsage func(labelText string, forceRefresh bool) (*usage.Result, error)
	Now      func() time.Time
}

// New wires the status renderer against the real account store and usage
// client.
func New(cfg config.Config) Deps {
	client := usage.NewClient(cfg)
	return Deps{
		Cfg:      cfg,
		List:     sandbox.List,
		GetUsage: client.Get,
		Now:      time.Now,
	}
}

// Render produces one card per account, sorted by label. With refresh set,
// every account's usage is re-fetched regardless of cache age.
func (d Deps) Render(refresh bool) (string, error) {
	metas, err := d.List(d.Cfg)
	if err != nil {
		return "", err
	}
	if len(metas) == 0 {
		return planStyle.Render("No accounts. Add one with swop add <label>.") + "\n", nil
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].LabelKey < metas[j].LabelKey })

	results := make([]*usage.Result, len(metas))
	errs := make([]error, len(metas))
	var wg sync.WaitGroup
	for i, m := range metas {
		wg.Add(1)
		go func(i int, label string) {
			defer wg.Done()
			results[i], errs[i] = d.GetUsage(label, refresh)
		}(i, m.LabelKey)
	}
	wg.Wait()

	now := d.Now()
	var b strings.Builder
	for i, m := range metas {
		b.WriteString(d.renderCard(m, results[i], errs[i], now))
		b.WriteString("\n")
	}
	return b.String(), nil
}

func (d Deps) renderCard(m sandbox.Meta, res *usage.Result, err error, now time.Time) string {
	var b strings.Builder
	b.WriteString(labelStyle.Render(m.LabelKey))

	if err != nil {
		b.WriteString("\n  ")
		b.WriteString(errStyle.Render(fmt.Sprintf("usage unavailable: %v", err)))
		b.WriteString("\n")
		return b.String()
	}

	if res.Usage.PlanType != "" {
		b.WriteString("  ")
		b.WriteString(planStyle.Render("(" + res.Usage.PlanType + ")"))
	}

	rl := res.Usage.RateLimit
	if rl == nil {
		b.WriteString("\n  ")
		b.WriteString(planStyle.Render("no quota data"))
		b.WriteString("\n")
		return b.String()
	}

	if !rl.Allowed || rl.LimitReached {
		b.WriteString("  ")
		b.WriteString(blockedStyle.Render("BLOCKED"))
	}
	b.WriteString("\n")

	b.WriteString(renderWindow("5h", rl.PrimaryWindow, now))
	if !sameWindow(rl.PrimaryWindow, rl.SecondaryWindow) {
		b.WriteString(renderWindow("weekly", rl.SecondaryWindow, now))
	}

	if res.Freshness.Stale {
		b.WriteString("  ")
		b.WriteString(warnStyle.Render(fmt.Sprintf("stale: fetched %s ago", humanAge(res.Freshness.AgeSeconds))))
		b.WriteString("\n")
	}
	if res.Warning != nil {
		b.WriteString("  ")
		b.WriteString(warnStyle.Render(fmt.Sprintf("last refresh failed (%s)", res.Warning.Kind)))
		b.WriteString("\n")
	}
	return b.String()
}

func renderWindow(name string, w usage.Window, now time.Time) string {
	remaining := 100 - w.UsedPercent
	if remaining < 0 {
		remaining = 0
	}
	line := fmt.Sprintf("  %s %s %3.0f%% left",
		windowNameStyle.Render(fmt.Sprintf("%-6s", name)),
		renderBar(remaining),
		remaining)
	if rel := relativeReset(w.ResetAt, now); rel != "" {
		line += "   " + resetStyle.Render("resets in "+rel)
	}
	return line + "\n"
}

// renderBar draws remaining quota, so a heavily used account shows a short
// bar.
func renderBar(remainingPercent float64) string {
	filled := int(math.Round(remainingPercent / 100 * barWidth))
	if filled < 0 {
		filled = 0
	}
	if filled > barWidth {
		filled = barWidth
	}
	style := barCritical
	switch {
	case remainingPercent > 50:
		style = barHealthy
	case remainingPercent > 20:
		style = barLow
	}
	return "[" +
		style.Render(strings.Repeat("█", filled)) +
		barEmpty.Render(strings.Repeat("░", barWidth-filled)) +
		"]"
}

func sameWindow(a, b usage.Window) bool {
	return a.UsedPercent == b.UsedPercent && a.ResetAt == b.ResetAt
}

// relativeReset renders a reset timestamp as a coarse duration from now.
// Unparseable or past timestamps render as nothing.
func relativeReset(resetAt string, now time.Time) string {
	t, err := time.Parse(time.RFC3339, resetAt)
	if err != nil {
		return ""
	}
	d := t.Sub(now)
	if d <= 0 {
		return ""
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}

func humanAge(seconds int) string {
	d := time.Duration(seconds) * time.Second
	switch {
	case d >= 24*time.Hour:
		return fmt.Sprintf("%dd", int(d.Hours())/24)
	case d >= time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	case d >= time.Minute:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
