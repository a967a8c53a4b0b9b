package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// loadAccountsCmd lists accounts off the Bubble Tea event loop.
func (m model) loadAccountsCmd() tea.Cmd {
	return func() tea.Msg {
		accounts, err := m.deps.List(m.deps.Cfg)
		return accountsLoadedMsg{accounts: accounts, err: err}
	}
}

// loadUsageCmd fetches one account's usage. With force set the cache TTL is
// bypassed, so the command may block on the network for a couple of seconds.
func (m model) loadUsageCmd(label string, force bool) tea.Cmd {
	return func() tea.Msg {
		res, err := m.deps.GetUsage(label, force)
		return usageLoadedMsg{label: label, result: res, err: err}
	}
}

// loadAllUsageCmd fans out one usage command per account.
func (m model) loadAllUsageCmd(force bool) tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(m.accounts))
	for _, a := range m.accounts {
		cmds = append(cmds, m.loadUsageCmd(a.LabelKey, force))
	}
	return tea.Batch(cmds...)
}
