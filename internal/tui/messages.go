package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zpdzap/swop/internal/sandbox"
	"github.com/zpdzap/swop/internal/usage"
)

// accountsLoadedMsg carries a fresh account listing.
type accountsLoadedMsg struct {
	accounts []sandbox.Meta
	err      error
}

// usageLoadedMsg is sent when one account's usage lookup finishes.
type usageLoadedMsg struct {
	label  string
	result *usage.Result
	err    error
}

// refreshTickMsg triggers a periodic cache re-read.
type refreshTickMsg time.Time

// tickCmd returns a command that sends a tick every 30 seconds.
func tickCmd() tea.Cmd {
	return tea.Tick(30*time.Second, func(t time.Time) tea.Msg {
		return refreshTickMsg(t)
	})
}
