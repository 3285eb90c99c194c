// Package watch is the live terminal view of the tracker: the entry in
// progress with a running clock, today's completed entries and the day
// session.
package watch

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Tiliavir/boat-time-tracker/internal/model"
	"github.com/Tiliavir/boat-time-tracker/internal/timecalc"
	"github.com/Tiliavir/boat-time-tracker/internal/tracker"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Padding(0, 1)

	activeStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 2).
			Width(44)

	clockStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	docStyle   = lipgloss.NewStyle().Padding(1, 2)
)

// Messages delivered from tracker streams and timers.
type (
	currentMsg  struct{ entry *model.Entry }
	entriesMsg  []model.Entry
	sessionMsg  struct{ session *model.DaySession }
	elapsedMsg  time.Duration
	reloadTick  time.Time
	reloadedMsg struct{ err error }
)

// Model renders tracker state. It never mutates the tracker; reloads go
// through a command so they run off the event loop.
type Model struct {
	tr          *tracker.Tracker
	now         func() time.Time
	reloadEvery time.Duration

	current *model.Entry
	entries []model.Entry
	session *model.DaySession
	elapsed time.Duration
	err     error

	keys   keyMap
	help   help.Model
	width  int
	height int
}

// Options tunes the view. Zero values pick defaults.
type Options struct {
	ReloadEvery time.Duration
	Now         func() time.Time
}

// New seeds the view with the tracker's current values.
func New(tr *tracker.Tracker, opts Options) Model {
	if opts.ReloadEvery <= 0 {
		opts.ReloadEvery = 5 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return Model{
		tr:          tr,
		now:         opts.Now,
		reloadEvery: opts.ReloadEvery,
		current:     tr.Current().Value(),
		entries:     tr.Entries().Value(),
		session:     tr.DaySession().Value(),
		keys:        defaultKeyMap(),
		help:        help.New(),
	}
}

func (m Model) scheduleReload() tea.Cmd {
	return tea.Tick(m.reloadEvery, func(t time.Time) tea.Msg {
		return reloadTick(t)
	})
}

func (m Model) reload() tea.Cmd {
	tr := m.tr
	return func() tea.Msg {
		return reloadedMsg{err: tr.Reload()}
	}
}

func (m Model) Init() tea.Cmd {
	return m.scheduleReload()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Reload):
			return m, m.reload()
		}
	case currentMsg:
		m.current = msg.entry
		if m.current == nil {
			m.elapsed = 0
		}
	case entriesMsg:
		m.entries = msg
	case sessionMsg:
		m.session = msg.session
	case elapsedMsg:
		m.elapsed = time.Duration(msg)
	case reloadTick:
		return m, m.reload()
	case reloadedMsg:
		m.err = msg.err
		return m, m.scheduleReload()
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Boat time tracker"))
	b.WriteString("\n")
	b.WriteString(m.sessionLine())
	b.WriteString("\n\n")
	b.WriteString(activeStyle.Render(m.activeBlock()))
	b.WriteString("\n\n")
	b.WriteString(m.todayBlock())
	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("reload failed: " + m.err.Error()))
	}
	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys))
	return docStyle.Render(b.String())
}

func (m Model) sessionLine() string {
	if m.session == nil {
		return dimStyle.Render("No day session")
	}
	line := fmt.Sprintf("Day %s started %s", m.session.Date, timecalc.ClockString(m.session.DayStart))
	if m.session.DayEnd != nil {
		line += fmt.Sprintf(", ends %s (not finalized)", timecalc.ClockString(*m.session.DayEnd))
	}
	return line
}

func (m Model) activeBlock() string {
	if m.current == nil {
		return dimStyle.Render("Idle")
	}
	lines := []string{
		fmt.Sprintf("%s since %s", m.current.Resource, timecalc.ClockString(m.current.Start)),
		clockStyle.Render(timecalc.FormatDurationHHMMSS(int64(m.elapsed.Seconds()))),
	}
	if m.current.Description != "" {
		lines = append(lines, dimStyle.Render(m.current.Description))
	}
	return strings.Join(lines, "\n")
}

func (m Model) todayBlock() string {
	now := m.now()
	var rows []string
	var total time.Duration
	for _, e := range m.entries {
		if e.End == nil || !timecalc.SameDay(e.Start, now) {
			continue
		}
		total += e.Duration()
		rows = append(rows, fmt.Sprintf("%s-%s  %-10s %-8s %s",
			timecalc.ClockString(e.Start), timecalc.ClockString(*e.End),
			e.Resource, timecalc.FormatDuration(int64(e.Duration().Seconds())), e.Description))
	}
	if len(rows) == 0 {
		return dimStyle.Render("No entries today")
	}
	rows = append(rows, dimStyle.Render("Total "+timecalc.FormatDuration(int64(total.Seconds()))))
	return strings.Join(rows, "\n")
}
