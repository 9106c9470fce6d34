package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// HealthView is one health check result for display.
type HealthView struct {
	Status    string
	Latency   time.Duration
	Uptime    time.Duration
	Issues    []string
	CheckedAt time.Time
	Wallet    string
	Address   string
	Chain     string
	ErrMsg    string
}

// HealthModel is the Bubble Tea model for the live health dashboard. Fetch
// runs a health check and is invoked off the UI goroutine on every refresh.
type HealthModel struct {
	Fetch    func() HealthView
	Interval time.Duration

	view     HealthView
	history  []HealthView
	frame    int
	fetching bool
	Quitting bool
}

type healthTickMsg struct{}
type healthSpinMsg struct{}
type healthResultMsg HealthView

func healthSpinTick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(time.Time) tea.Msg {
		return healthSpinMsg{}
	})
}

func (m HealthModel) refreshAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return healthTickMsg{}
	})
}

func (m HealthModel) fetchCmd() tea.Cmd {
	return func() tea.Msg {
		return healthResultMsg(m.Fetch())
	}
}

func (m HealthModel) Init() tea.Cmd {
	return tea.Batch(healthSpinTick(), m.fetchCmd())
}

func (m HealthModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.Quitting = true
			return m, tea.Quit

		case "r":
			if !m.fetching {
				m.fetching = true
				return m, m.fetchCmd()
			}
		}

	case healthSpinMsg:
		m.frame = (m.frame + 1) % len(spinnerFrames)
		return m, healthSpinTick()

	case healthTickMsg:
		if !m.fetching {
			m.fetching = true
			return m, m.fetchCmd()
		}

	case healthResultMsg:
		m.fetching = false
		m.view = HealthView(msg)
		// Newest first, capped at 10 checks.
		m.history = append([]HealthView{m.view}, m.history...)
		if len(m.history) > 10 {
			m.history = m.history[:10]
		}
		return m, m.refreshAfter(m.Interval)
	}

	return m, nil
}

func (m HealthModel) View() string {
	if m.Quitting {
		return ""
	}

	var sb strings.Builder
	spin := spinnerFrames[m.frame]

	title := "Connection Health"
	if m.view.Wallet != "" {
		title = fmt.Sprintf("Connection Health  ·  %s  ·  %s",
			m.view.Wallet, TruncateAddr(m.view.Address))
	}
	sb.WriteString(StyleHeader.Render(title) + "\n\n")

	if m.fetching {
		sb.WriteString(StyleChain.Render(spin) + StyleMeta.Render(" checking…") + "\n\n")
	} else if !m.view.CheckedAt.IsZero() {
		sb.WriteString(StyleMeta.Render(fmt.Sprintf("  last check: %s",
			m.view.CheckedAt.Format("15:04:05"))) + "\n\n")
	} else {
		sb.WriteString(StyleMeta.Render("  waiting for first check…") + "\n\n")
	}

	if m.view.ErrMsg != "" {
		sb.WriteString(Err(m.view.ErrMsg) + "\n")
		sb.WriteString("\n" + healthControls() + "\n")
		return sb.String()
	}

	if m.view.Status != "" {
		sb.WriteString(fmt.Sprintf("  %-10s %s\n", "status", StatusBadge(m.view.Status)))
		if m.view.Chain != "" {
			sb.WriteString(fmt.Sprintf("  %-10s %s\n", "chain", ChainName(m.view.Chain)))
		}
		sb.WriteString(fmt.Sprintf("  %-10s %s\n", "latency",
			Val(fmt.Sprintf("%dms", m.view.Latency.Milliseconds()))))
		sb.WriteString(fmt.Sprintf("  %-10s %s\n", "uptime",
			Meta(m.view.Uptime.Round(time.Second).String())))

		if len(m.view.Issues) > 0 {
			sb.WriteString("\n")
			for _, issue := range m.view.Issues {
				sb.WriteString("  " + Warn(issue) + "\n")
			}
		}
	}

	if len(m.history) > 1 {
		sb.WriteString("\n" + StyleMeta.Render("  history") + "\n")
		for _, h := range m.history {
			sb.WriteString(fmt.Sprintf("  %s  %s  %s\n",
				Meta(h.CheckedAt.Format("15:04:05")),
				StatusBadge(h.Status),
				Meta(fmt.Sprintf("%dms", h.Latency.Milliseconds()))))
		}
	}

	sb.WriteString("\n" + healthControls() + "\n")
	return sb.String()
}

func healthControls() string {
	sep := StyleMeta.Render("   ")
	var sb strings.Builder
	sb.WriteString(StyleChain.Render("[ r ]"))
	sb.WriteString(StyleMeta.Render(" check now"))
	sb.WriteString(sep)
	sb.WriteString(StyleMeta.Render("[ q ]"))
	sb.WriteString(StyleMeta.Render(" quit"))
	return sb.String()
}
