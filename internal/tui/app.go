package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zpdzap/swop/internal/config"
	"github.com/zpdzap/swop/internal/sandbox"
	"github.com/zpdzap/swop/internal/usage"
	"github.com/zpdzap/swop/internal/wrapper"
)

// Run starts the dashboard loop. It cycles between the Bubble Tea view and
// interactive codex sessions until the user quits.
func Run(cfg config.Config) error {
	client := usage.NewClient(cfg)
	deps := Deps{
		Cfg:      cfg,
		List:     sandbox.List,
		GetUsage: client.Get,
		Now:      time.Now,
	}

	for {
		m := newModel(deps)
		p := tea.NewProgram(m, tea.WithAltScreen())
		result, err := p.Run()
		if err != nil {
			return fmt.Errorf("TUI error: %w", err)
		}

		final := result.(model)

		if final.quitting {
			return nil
		}

		if final.launch != "" {
			fmt.Printf("Launching codex as %s...\n", final.launch)

			w := wrapper.New(cfg, true)
			if _, err := w.Execute([]string{"--account", final.launch}); err != nil {
				fmt.Printf("codex failed: %v\n", err)
			}

			// Reset terminal after the session so Bubble Tea starts clean
			fmt.Print("\033c") // full terminal reset (RIS)
		}
	}
}
