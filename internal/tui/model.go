// Package tui provides the BubbleTea-based terminal user interface.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jeertmans/jinglebox/internal/config"
	"github.com/jeertmans/jinglebox/internal/daemon"
	"github.com/jeertmans/jinglebox/internal/history"
	"github.com/jeertmans/jinglebox/internal/model"
	"github.com/jeertmans/jinglebox/internal/schedule"
)

// Mode represents the current UI mode.
type Mode int

const (
	ModeSchedule Mode = iota
	ModeHelp
)

// Model is the main TUI model.
type Model struct {
	engine *daemon.Engine

	configPath  string
	jinglesPath string

	mode Mode

	list list.Model
	help help.Model
	keys KeyMap

	width  int
	height int
	ready  bool

	statusMsg string
	statusErr bool

	eventCh   <-chan schedule.Event
	historyCh <-chan history.ChangeEvent
}

// jingleItem wraps a planned jingle for the list component. length is the
// decoded playback time, zero when the file could not be decoded yet.
type jingleItem struct {
	entry  model.PlannedJingle
	length time.Duration
}

func (i jingleItem) Title() string {
	return fmt.Sprintf("%s  %s",
		i.entry.FireTime.Format("15:04:05"),
		i.entry.Jingle.DisplayName())
}

func (i jingleItem) Description() string {
	desc := fmt.Sprintf("%s · game %s · %s%s",
		humanize.Time(i.entry.FireTime),
		i.entry.Game.Start.Format("15:04"),
		i.entry.Jingle.Anchor,
		i.entry.Jingle.OffsetLabel())
	if i.length > 0 {
		desc += " · " + i.length.Round(time.Second).String()
	}
	return desc
}

func (i jingleItem) FilterValue() string {
	return i.entry.Jingle.DisplayName()
}

// New creates a new TUI model. The paths are re-read on reload.
func New(engine *daemon.Engine, configPath, jinglesPath string) Model {
	delegate := list.NewDefaultDelegate()
	l := list.New(nil, delegate, 0, 0)
	l.Title = "Planned Jingles"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)
	l.DisableQuitKeybindings()

	m := Model{
		engine:      engine,
		configPath:  configPath,
		jinglesPath: jinglesPath,
		mode:        ModeSchedule,
		list:        l,
		help:        help.New(),
		keys:        DefaultKeyMap(),
	}

	m.eventCh = engine.Scheduler().Subscribe()
	m.historyCh = engine.History().Subscribe()

	return m
}

type tickMsg time.Time

type schedulerEventMsg schedule.Event

type historyChangedMsg struct{}

type statusUpdateMsg struct {
	text  string
	isErr bool
}

type clearStatusMsg struct{}

// jinglesFileChangedMsg is sent by the fsnotify watcher when jingles.toml
// changes on disk.
type jinglesFileChangedMsg struct{}

type reloadDoneMsg struct {
	jingles int
	err     error
}

// Init initializes the TUI.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.tick(),
		m.watchScheduler,
		m.watchHistory,
	)
}

// tick refreshes countdowns once a second.
func (m Model) tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// watchScheduler waits for the next scheduler event.
func (m Model) watchScheduler() tea.Msg {
	event, ok := <-m.eventCh
	if !ok {
		return nil
	}
	return schedulerEventMsg(event)
}

// watchHistory waits for the next play-history change.
func (m Model) watchHistory() tea.Msg {
	_, ok := <-m.historyCh
	if !ok {
		return nil
	}
	return historyChangedMsg{}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.list.SetSize(msg.Width, msg.Height-7)
		return m, nil

	case tickMsg:
		m.list.SetItems(m.buildListItems())
		return m, m.tick()

	case schedulerEventMsg:
		m.list.SetItems(m.buildListItems())
		event := schedule.Event(msg)
		var cmd tea.Cmd
		switch event.Type {
		case schedule.EventFired:
			cmd = status("Playing "+event.Entry.Jingle.DisplayName(), false)
		case schedule.EventMissed:
			cmd = status("Missed "+event.Entry.Jingle.DisplayName(), true)
		}
		return m, tea.Batch(m.watchScheduler, cmd)

	case historyChangedMsg:
		return m, m.watchHistory

	case jinglesFileChangedMsg:
		return m, m.reloadCmd()

	case reloadDoneMsg:
		if msg.err != nil {
			return m, status("Reload failed: "+msg.err.Error(), true)
		}
		m.list.SetItems(m.buildListItems())
		return m, status(fmt.Sprintf("Reloaded %d jingles", msg.jingles), false)

	case statusUpdateMsg:
		m.statusMsg = msg.text
		m.statusErr = msg.isErr
		return m, tea.Tick(3*time.Second, func(t time.Time) tea.Msg {
			return clearStatusMsg{}
		})

	case clearStatusMsg:
		m.statusMsg = ""
		m.statusErr = false
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// status wraps a status bar update in a command.
func status(text string, isErr bool) tea.Cmd {
	return func() tea.Msg {
		return statusUpdateMsg{text: text, isErr: isErr}
	}
}

// handleKey handles key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		if m.mode == ModeHelp {
			m.mode = ModeSchedule
		} else {
			m.mode = ModeHelp
		}
		return m, nil
	}

	if m.mode == ModeHelp {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.PlayNow):
		item, ok := m.list.SelectedItem().(jingleItem)
		if !ok {
			return m, nil
		}
		name := item.entry.Jingle.DisplayName()
		return m, func() tea.Msg {
			if err := m.engine.PlayNow(context.Background(), name); err != nil {
				return statusUpdateMsg{text: "Play failed: " + err.Error(), isErr: true}
			}
			return statusUpdateMsg{text: "Playing " + name}
		}

	case key.Matches(msg, m.keys.Skip):
		skipped := m.engine.Skip()
		if skipped == nil {
			return m, status("Nothing to skip", false)
		}
		m.list.SetItems(m.buildListItems())
		return m, status("Skipped "+skipped.Jingle.DisplayName(), false)

	case key.Matches(msg, m.keys.Pause):
		if m.engine.Scheduler().Paused() {
			m.engine.Scheduler().Resume()
			return m, status("Scheduler resumed", false)
		}
		m.engine.Scheduler().Pause()
		return m, status("Scheduler paused", false)

	case key.Matches(msg, m.keys.Reload):
		return m, m.reloadCmd()
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// reloadCmd reloads both config files and applies them to the engine.
func (m Model) reloadCmd() tea.Cmd {
	return func() tea.Msg {
		cfg, err := config.LoadConfig(m.configPath)
		if err != nil {
			return reloadDoneMsg{err: err}
		}
		jingles, err := config.LoadJingles(m.jinglesPath)
		if err != nil {
			return reloadDoneMsg{err: err}
		}
		m.engine.Reload(cfg, jingles)
		return reloadDoneMsg{jingles: len(jingles)}
	}
}

// buildListItems creates list items from the pending plan.
func (m Model) buildListItems() []list.Item {
	pending := m.engine.Scheduler().Pending()
	items := make([]list.Item, len(pending))
	for i, entry := range pending {
		length, _ := m.engine.JingleDuration(entry.Jingle.File)
		items[i] = jingleItem{entry: entry, length: length}
	}
	return items
}

// View renders the TUI.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if m.mode == ModeHelp {
		return m.viewHelp()
	}
	return m.viewSchedule()
}

func (m Model) viewSchedule() string {
	s := m.viewHeader() + "\n"
	s += m.list.View()
	s += "\n" + m.viewRecent()

	if m.statusMsg != "" {
		statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
		if m.statusErr {
			statusStyle = statusStyle.Foreground(lipgloss.Color("9"))
		}
		s += "\n" + statusStyle.Render(m.statusMsg)
	} else {
		s += "\n" + m.viewKeybindBar()
	}

	return s
}

// viewHeader shows the next game and next jingle at a glance.
func (m Model) viewHeader() string {
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	valueStyle := lipgloss.NewStyle().Bold(true)

	var parts []string

	if m.engine.Scheduler().Paused() {
		parts = append(parts, lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).Bold(true).Render("PAUSED"))
	}

	if game := schedule.NextGame(m.engine.Games()); game != nil {
		parts = append(parts, labelStyle.Render("next game ")+
			valueStyle.Render(game.Start.Format("15:04")))
	}

	if next := m.engine.Scheduler().Next(); next != nil {
		parts = append(parts, labelStyle.Render("next jingle ")+
			valueStyle.Render(fmt.Sprintf("%s %s",
				next.Jingle.DisplayName(), humanize.Time(next.FireTime))))
	} else {
		parts = append(parts, labelStyle.Render("no jingles pending"))
	}

	line := ""
	for i, p := range parts {
		if i > 0 {
			line += labelStyle.Render("  ·  ")
		}
		line += p
	}
	return line
}

// viewRecent shows the last few play-history entries.
func (m Model) viewRecent() string {
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9"))

	records := m.engine.History().Recent(3)
	if len(records) == 0 {
		return labelStyle.Render("no plays yet")
	}

	s := labelStyle.Render("recent:")
	for _, r := range records {
		line := fmt.Sprintf(" %s %s (%s)",
			r.PlayedAtTime().Format("15:04:05"), r.Name, r.Outcome)
		if r.Outcome == model.OutcomePlayed {
			s += labelStyle.Render(line)
		} else {
			s += errStyle.Render(line)
		}
	}
	return s
}

func (m Model) viewKeybindBar() string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	keyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

	binds := []struct {
		key  string
		desc string
	}{
		{"q", "quit"},
		{"enter", "play now"},
		{"s", "skip"},
		{"space", "pause"},
		{"r", "reload"},
		{"?", "help"},
	}

	const separator = "  "
	result := ""
	for _, b := range binds {
		if result != "" {
			result += separator
		}
		result += keyStyle.Render(b.key) + " " + b.desc
	}
	return style.Render(result)
}

func (m Model) viewHelp() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		MarginBottom(1)

	sectionStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	keyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

	s := titleStyle.Render("Keyboard Shortcuts") + "\n\n"

	s += sectionStyle.Render("Navigation") + "\n"
	s += keyStyle.Render("  j/k, ↑/↓") + "     Move up/down\n"
	s += keyStyle.Render("  g/G") + "          Go to top/bottom\n"
	s += keyStyle.Render("  pgup/pgdn") + "    Page up/down\n"
	s += "\n"

	s += sectionStyle.Render("Actions") + "\n"
	s += keyStyle.Render("  enter/p") + "      Play selected jingle now\n"
	s += keyStyle.Render("  s") + "            Skip next jingle\n"
	s += keyStyle.Render("  space") + "        Pause/resume scheduler\n"
	s += keyStyle.Render("  r") + "            Reload config and jingles\n"
	s += keyStyle.Render("  /") + "            Filter by name\n"
	s += "\n"

	s += sectionStyle.Render("General") + "\n"
	s += keyStyle.Render("  ?") + "            Toggle this help\n"
	s += keyStyle.Render("  q") + "            Quit\n"

	s += "\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(
		"Press ? to return")

	return s
}

// Run starts the TUI against a running engine. The jingles file is
// watched so edits apply without leaving the interface.
func Run(engine *daemon.Engine, configPath, jinglesPath string) error {
	m := New(engine, configPath, jinglesPath)
	p := tea.NewProgram(m, tea.WithAltScreen())

	watcher, err := NewJinglesWatcher(jinglesPath, func() {
		p.Send(jinglesFileChangedMsg{})
	})
	if err == nil {
		if startErr := watcher.Start(); startErr != nil {
			watcher = nil
		}
	} else {
		watcher = nil
	}

	_, runErr := p.Run()

	if watcher != nil {
		watcher.Stop()
	}
	return runErr
}
