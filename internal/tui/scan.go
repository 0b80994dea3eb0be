package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/blescan/internal/pipeline"
	"github.com/muurk/blescan/internal/ui"
)

// Controller is the part of the scan pipeline the screen drives.
// *pipeline.Pipeline satisfies it.
type Controller interface {
	Start()
	Stop()
	SubscribeStatus() *pipeline.StatusSubscription
	SubscribeRecords() *pipeline.RecordSubscription
}

// Messages delivered from the pipeline subscriptions
type statusMsg pipeline.Status
type changeMsg pipeline.Change

// scanKeyMap defines key bindings for the scan screen
type scanKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Restart key.Binding
	Stop    key.Binding
	Quit    key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k scanKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Restart, k.Stop, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k scanKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Restart, k.Stop, k.Quit},
	}
}

func newScanKeyMap() scanKeyMap {
	return scanKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "move down"),
		),
		Restart: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "restart"),
		),
		Stop: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "stop"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// recordItem wraps a Record for use with bubbles/list
type recordItem struct {
	record pipeline.Record
}

func (r recordItem) FilterValue() string {
	return r.record.Label + " " + r.record.Identity
}

// recordDelegate renders one record per line
type recordDelegate struct{}

func (d recordDelegate) Height() int { return 1 }

func (d recordDelegate) Spacing() int { return 0 }

func (d recordDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d recordDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ri, ok := item.(recordItem)
	if !ok {
		return
	}
	line := ui.RenderRecord(ri.record)
	if index == m.Index() {
		line = SelectedRecordStyle.Render(">") + strings.TrimPrefix(line, " ")
	}
	_, _ = fmt.Fprint(w, line)
}

// ScanModel is the live scan screen. It starts the pipeline on Init, shows
// the status line and the de-duplicated records as they arrive, and stops
// the pipeline when the user quits.
type ScanModel struct {
	ctrl      Controller
	statusSub *pipeline.StatusSubscription
	recordSub *pipeline.RecordSubscription

	Backend string
	Status  pipeline.Status
	Records list.Model

	Width   int
	Height  int
	Spinner spinner.Model
	Help    help.Model
	Keys    scanKeyMap

	quitting bool
}

// NewScanModel creates a scan screen for ctrl. backend names the discovery
// backend in the header.
func NewScanModel(ctrl Controller, backend string) ScanModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	records := list.New([]list.Item{}, recordDelegate{}, 0, 0)
	records.SetShowTitle(false)
	records.SetShowStatusBar(false)
	records.SetShowHelp(false)
	records.SetFilteringEnabled(false)
	records.DisableQuitKeybindings()

	return ScanModel{
		ctrl:      ctrl,
		statusSub: ctrl.SubscribeStatus(),
		recordSub: ctrl.SubscribeRecords(),
		Backend:   backend,
		Records:   records,
		Spinner:   s,
		Help:      help.New(),
		Keys:      newScanKeyMap(),
	}
}

// Init starts a fresh scan and begins listening to the pipeline
func (m ScanModel) Init() tea.Cmd {
	return tea.Batch(
		startCmd(m.ctrl),
		waitForStatus(m.statusSub),
		waitForChange(m.recordSub),
		m.Spinner.Tick,
	)
}

func startCmd(ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		ctrl.Start()
		return nil
	}
}

// restartCmd stops any running activation so Start begins a fresh one
func restartCmd(ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		ctrl.Stop()
		ctrl.Start()
		return nil
	}
}

func stopCmd(ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		ctrl.Stop()
		return nil
	}
}

func waitForStatus(sub *pipeline.StatusSubscription) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-sub.C()
		if !ok {
			return nil
		}
		return statusMsg(st)
	}
}

func waitForChange(sub *pipeline.RecordSubscription) tea.Cmd {
	return func() tea.Msg {
		c, ok := <-sub.C()
		if !ok {
			return nil
		}
		return changeMsg(c)
	}
}

// Update handles messages and updates the model
func (m ScanModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.Keys.Quit):
			m.quitting = true
			m.ctrl.Stop()
			m.statusSub.Close()
			m.recordSub.Close()
			return m, tea.Quit
		case key.Matches(msg, m.Keys.Restart):
			return m, restartCmd(m.ctrl)
		case key.Matches(msg, m.Keys.Stop):
			return m, stopCmd(m.ctrl)
		}
		var cmd tea.Cmd
		m.Records, cmd = m.Records.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Records.SetWidth(msg.Width)
		m.Records.SetHeight(max(msg.Height-10, 3)) // header and footer

	case statusMsg:
		m.Status = pipeline.Status(msg)
		return m, waitForStatus(m.statusSub)

	case changeMsg:
		c := pipeline.Change(msg)
		var cmd tea.Cmd
		if c.Kind == pipeline.RecordsCleared {
			cmd = m.Records.SetItems(nil)
		} else {
			cmd = m.Records.InsertItem(len(m.Records.Items()), recordItem{record: c.Record})
		}
		return m, tea.Batch(cmd, waitForChange(m.recordSub))

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the screen
func (m ScanModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(TitleStyle.Render(fmt.Sprintf("%s %s", AppName, AppVersion())))
	b.WriteString("\n")
	b.WriteString(SubtitleStyle.Render("Live scan via " + m.Backend))
	b.WriteString("\n\n")

	b.WriteString(m.statusLine())
	b.WriteString("\n\n")

	if n := len(m.Records.Items()); n > 0 {
		b.WriteString(m.Records.View())
		b.WriteString("\n")
		b.WriteString(StoppedStyle.Render(fmt.Sprintf("%d device(s)", n)))
	} else if !m.Status.Phase.Active() {
		b.WriteString(StoppedStyle.Render("No devices"))
	}

	b.WriteString("\n")
	b.WriteString(HelpStyle.Render(m.Help.View(m.Keys)))
	return b.String()
}

func (m ScanModel) statusLine() string {
	switch m.Status.Phase {
	case pipeline.AwaitingPermission, pipeline.Scanning:
		msg := m.Status.Message
		if msg == "" {
			msg = fmt.Sprintf("Scanning... %d found", len(m.Records.Items()))
		}
		return StatusStyle.Render(m.Spinner.View() + " " + msg)
	case pipeline.Failed:
		return lipgloss.JoinVertical(lipgloss.Left,
			ErrorStyle.Render(m.Status.Message),
			StoppedStyle.Render("Press r to try again"),
		)
	case pipeline.Stopped:
		return StoppedStyle.Render("Stopped")
	default:
		return StoppedStyle.Render("Starting...")
	}
}

// Run shows the scan screen until the user quits
func Run(ctrl Controller, backend string) error {
	program := tea.NewProgram(NewScanModel(ctrl, backend), tea.WithAltScreen())
	_, err := program.Run()
	return err
}
