package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case accountsLoadedMsg:
		if msg.err != nil {
			m.message = fmt.Sprintf("Error: %v", msg.err)
			m.isError = true
			return m, tickCmd()
		}
		m.accounts = msg.accounts
		if m.cursor >= len(m.accounts) && m.cursor > 0 {
			m.cursor = len(m.accounts) - 1
		}
		return m, m.loadAllUsageCmd(false)

	case usageLoadedMsg:
		if msg.err != nil {
			m.errs[msg.label] = msg.err
			delete(m.results, msg.label)
		} else {
			m.results[msg.label] = msg.result
			delete(m.errs, msg.label)
		}
		if m.refreshing > 0 {
			m.refreshing--
			if m.refreshing == 0 {
				m.message = "Usage refreshed"
				m.isError = false
			}
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case refreshTickMsg:
		// Re-list and re-read caches so external adds and removals show up.
		return m, tea.Batch(m.loadAccountsCmd(), tickCmd())

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "down", "j":
		if m.cursor < len(m.accounts)-1 {
			m.cursor++
		}
		return m, nil

	case "r":
		if len(m.accounts) == 0 {
			return m, nil
		}
		m.message = "Refreshing usage..."
		m.isError = false
		m.refreshing = len(m.accounts)
		return m, m.loadAllUsageCmd(true)

	case "enter":
		if m.cursor >= len(m.accounts) {
			return m, nil
		}
		m.launch = m.accounts[m.cursor].LabelKey
		return m, tea.Quit
	}

	return m, nil
}
