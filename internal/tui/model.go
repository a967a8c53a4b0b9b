package tui

import (
	"os"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/zpdzap/swop/internal/config"
	"github.com/zpdzap/swop/internal/sandbox"
	"github.com/zpdzap/swop/internal/usage"
)

// Deps are the dashboard's collaborators, injectable for tests.
type Deps struct {
	Cfg      config.Config
	List     func(config.Config) ([]sandbox.Meta, error)
	GetUsage func(labelText string, forceRefresh bool) (*usage.Result, error)
	Now      func() time.Time
}

// model is the Bubble Tea model for the swop account dashboard.
type model struct {
	deps     Deps
	accounts []sandbox.Meta
	results  map[string]*usage.Result
	errs     map[string]error
	cursor   int
	spin     spinner.Model
	message  string
	isError  bool
	quitting bool
	launch   string // account label to run codex with after tea quits
	width    int
	height   int

	refreshing int // in-flight usage loads from the last r press
}

func newModel(deps Deps) model {
	// Get initial terminal size so the first render isn't at width=0
	w, h, _ := term.GetSize(int(os.Stdout.Fd()))
	if w == 0 {
		w = 80
	}
	if h == 0 {
		h = 24
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700"))

	return model{
		deps:    deps,
		spin:    sp,
		results: make(map[string]*usage.Result),
		errs:    make(map[string]error),
		width:   w,
		height:  h,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.loadAccountsCmd(), m.spin.Tick, tickCmd())
}
