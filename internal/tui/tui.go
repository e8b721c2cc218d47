// Package tui provides a Bubble Tea terminal user interface for neko-downloader.
package tui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/handiism/neko-downloader/internal/config"
	"github.com/handiism/neko-downloader/internal/download"
	"github.com/handiism/neko-downloader/internal/source"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)

	seriesStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500"))
)

const (
	maxLogLines   = 12
	eventBuffer   = 256
	tickInterval  = 200 * time.Millisecond
	cancelledText = "cancelled by user"
)

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateInitializing
	StateDownloading
	StateComplete
	StateError
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   download.ProgressLevel
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state     State
	textInput textinput.Model
	spinner   spinner.Model
	progress  progress.Model
	settings  *config.Settings
	profiles  []string
	logs      []LogEntry
	summary   *download.Summary
	err       error

	// Download context
	ctx    context.Context
	cancel context.CancelFunc

	// Download manager reference and its event stream
	manager *download.Manager
	events  chan download.ProgressEvent

	// Download progress
	unitsDone  int32
	unitsTotal int32
	assets     int32

	// Options
	verbose bool

	width  int
	height int
}

// NewModel creates a new TUI model over settings.
func NewModel(settings *config.Settings) Model {
	if settings == nil {
		settings = config.DefaultSettings()
	}

	ti := textinput.New()
	ti.Placeholder = "https://nettruyen.example/truyen/one-piece"
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	ctx, cancel := context.WithCancel(context.Background())

	profiles := source.Names(source.Config{})
	if srcCfg, err := settings.ToSourceConfig(); err == nil {
		profiles = source.Names(srcCfg)
	}

	return Model{
		state:     StateInput,
		textInput: ti,
		spinner:   sp,
		progress:  prog,
		settings:  settings,
		profiles:  profiles,
		logs:      make([]LogEntry, 0),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Message types
type (
	// ProgressMsg is sent for every progress event of the manager.
	ProgressMsg struct {
		Event download.ProgressEvent
	}

	// InitDoneMsg is sent when the manager has been created.
	InitDoneMsg struct {
		Manager *download.Manager
		Events  chan download.ProgressEvent
		Err     error
	}

	// DownloadDoneMsg is sent when the run returns.
	DownloadDoneMsg struct {
		Summary *download.Summary
		Err     error
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(max(msg.Width-20, 20), 80)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit

		case "esc":
			if m.state == StateInput {
				return m, tea.Quit
			}
			if m.state == StateDownloading || m.state == StateInitializing {
				// The run stops at the next unit or asset boundary and
				// reports back through DownloadDoneMsg.
				m.cancel()
				m.logs = appendLog(m.logs, LogEntry{Message: "Cancelling...", Level: download.LevelWarning})
			}

		case "enter":
			if m.state == StateInput && strings.TrimSpace(m.textInput.Value()) != "" {
				m.state = StateInitializing
				return m, tea.Batch(m.initializeDownload(), m.spinner.Tick)
			}

		case "tab":
			if m.state == StateInput {
				m.settings.Profile = nextProfile(m.profiles, m.settings.Profile)
				return m, nil
			}

		case "ctrl+s":
			if m.state == StateInput {
				m.settings.SeriesFolder = !m.settings.SeriesFolder
			}

		case "ctrl+v":
			if m.state == StateInput {
				m.verbose = !m.verbose
			}

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "r":
			if m.state == StateComplete || m.state == StateError {
				// Reset for new download
				m.state = StateInput
				m.logs = nil
				m.summary = nil
				m.err = nil
				m.unitsDone, m.unitsTotal, m.assets = 0, 0, 0
				m.manager = nil
				m.events = nil
				m.ctx, m.cancel = context.WithCancel(context.Background())
				m.textInput.SetValue("")
				m.textInput.Focus()
				return m, nil
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case ProgressMsg:
		if msg.Event.Level != download.LevelVerbose || m.verbose {
			m.logs = appendLog(m.logs, LogEntry{Message: msg.Event.Message, Level: msg.Event.Level})
		}
		cmds = append(cmds, waitForEvent(m.events))

	case InitDoneMsg:
		if msg.Err != nil {
			m.state = StateError
			m.err = msg.Err
		} else {
			m.manager = msg.Manager
			m.events = msg.Events
			m.state = StateDownloading
			cmds = append(cmds, m.startDownload(), waitForEvent(m.events), m.tickProgress())
		}

	case DownloadDoneMsg:
		m.summary = msg.Summary
		if m.manager != nil {
			m.unitsDone, m.unitsTotal, m.assets = m.manager.GetProgress()
		}
		switch {
		case m.ctx.Err() != nil:
			m.state = StateError
			m.err = errors.New(cancelledText)
		case msg.Err != nil:
			m.state = StateError
			m.err = msg.Err
		default:
			m.state = StateComplete
		}

	case TickMsg:
		if m.manager != nil && m.state == StateDownloading {
			m.unitsDone, m.unitsTotal, m.assets = m.manager.GetProgress()

			var percent float64
			if m.unitsTotal > 0 {
				percent = float64(m.unitsDone) / float64(m.unitsTotal)
			}
			cmds = append(cmds, m.progress.SetPercent(percent), m.tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	// Update text input
	if m.state == StateInput {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func appendLog(logs []LogEntry, entry LogEntry) []LogEntry {
	logs = append(logs, entry)
	if len(logs) > maxLogLines {
		logs = logs[len(logs)-maxLogLines:]
	}
	return logs
}

func nextProfile(profiles []string, current string) string {
	if len(profiles) == 0 {
		return current
	}
	i := slices.Index(profiles, current)
	return profiles[(i+1)%len(profiles)]
}

// waitForEvent delivers the next progress event. The channel is closed
// once the run has returned.
func waitForEvent(events chan download.ProgressEvent) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return nil
		}
		return ProgressMsg{Event: event}
	}
}

// tickProgress returns a command to tick progress updates.
func (m Model) tickProgress() tea.Cmd {
	return tea.Tick(tickInterval, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	// Header
	b.WriteString(titleStyle.Render("🐱 Neko Downloader"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Download manga and light novels chapter by chapter"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StateInitializing:
		b.WriteString(m.viewInitializing())
	case StateDownloading:
		b.WriteString(m.viewDownloading())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	// Footer
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.getHelpText()))

	return b.String()
}

func (m Model) viewInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Enter series URL:"))
	b.WriteString("\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n\n")

	seriesCheck := "[ ]"
	if m.settings.SeriesFolder {
		seriesCheck = "[×]"
	}
	verboseCheck := "[ ]"
	if m.verbose {
		verboseCheck = "[×]"
	}

	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  Site profile: %s (tab)\n", seriesStyle.Render(m.settings.Profile)))
	b.WriteString(fmt.Sprintf("  %s Series folder (ctrl+s)\n", seriesCheck))
	b.WriteString(fmt.Sprintf("  %s Verbose/debug output (ctrl+v)\n", verboseCheck))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Output directory: %s", m.settings.OutputDir)))
	b.WriteString("\n")
	if len(m.settings.Proxies) > 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("Proxies: %d", len(m.settings.Proxies))))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) viewInitializing() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render("Preparing download..."))
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewDownloading() string {
	var b strings.Builder

	var percent float64
	if m.unitsTotal > 0 {
		percent = float64(m.unitsDone) / float64(m.unitsTotal)
	}
	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(seriesStyle.Render(m.textInput.Value()))
	b.WriteString("\n\n")
	b.WriteString(m.progress.ViewAs(percent))
	b.WriteString("\n")

	b.WriteString(infoStyle.Render(fmt.Sprintf(
		"Units: %d/%d | Files downloaded: %d",
		m.unitsDone,
		m.unitsTotal,
		m.assets,
	)))
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	var b strings.Builder

	s := m.summary
	if s == nil {
		s = &download.Summary{}
	}
	box := boxStyle.Render(fmt.Sprintf(
		"✨ Download Complete!\n\n"+
			"Series: %s\n"+
			"Completed: %d\n"+
			"Skipped: %d\n"+
			"Incomplete: %d\n"+
			"Failed: %d\n"+
			"Files: %d",
		s.Series,
		s.Completed,
		s.Skipped,
		s.Incomplete,
		s.Failed,
		m.assets,
	))
	b.WriteString(box)
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("❌ Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
	}
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch log.Level {
		case download.LevelError:
			style = errorStyle
			prefix = "✗"
		case download.LevelWarning:
			style = warningStyle
			prefix = "!"
		case download.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case download.LevelInfo:
			style = infoStyle
			prefix = "›"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) getHelpText() string {
	switch m.state {
	case StateInput:
		return "enter: start • tab: profile • ctrl+s: series folder • ctrl+v: verbose • esc: quit"
	case StateInitializing, StateDownloading:
		return "esc: cancel"
	case StateComplete, StateError:
		return "r: new download • q: quit"
	}
	return ""
}

// initializeDownload creates the manager with a progress channel.
func (m *Model) initializeDownload() tea.Cmd {
	settings := *m.settings
	return func() tea.Msg {
		events := make(chan download.ProgressEvent, eventBuffer)

		manager, err := download.NewManager(&settings, func(event download.ProgressEvent) {
			select {
			case events <- event:
			default:
				// UI is behind, drop the line.
			}
		})
		if err != nil {
			return InitDoneMsg{Err: err}
		}

		return InitDoneMsg{Manager: manager, Events: events}
	}
}

// startDownload runs the manager in the background.
func (m *Model) startDownload() tea.Cmd {
	manager, events, ctx := m.manager, m.events, m.ctx
	url := strings.TrimSpace(m.textInput.Value())
	return func() tea.Msg {
		if manager == nil {
			return DownloadDoneMsg{Err: fmt.Errorf("no manager")}
		}
		defer close(events)
		defer manager.Close()

		summary, err := manager.Run(ctx, url)
		return DownloadDoneMsg{Summary: summary, Err: err}
	}
}

// Run starts the TUI application.
func Run(settings *config.Settings) error {
	p := tea.NewProgram(NewModel(settings), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
