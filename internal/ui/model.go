// ABOUTME: Bubbletea model for the output TUI
// ABOUTME: Defines playback state, rendering and key handling
package ui

import (
	"fmt"
	"strings"

	"github.com/Resonate-Protocol/resonate-out/internal/player"
	tea "github.com/charmbracelet/bubbletea"
)

// Model represents the TUI state
type Model struct {
	// Device
	device  string
	backend string

	// Stream
	title  string
	format string

	// Playback
	state  player.State
	volume int

	// Stats
	written   uint64
	published uint64
	consumed  uint64
	dropped   uint64
	stopped   uint64
	skipped   uint64

	// Debug
	showDebug  bool
	goroutines int
	memAlloc   uint64
	memSys     uint64

	lastErr string

	control Commander

	// Dimensions
	width  int
	height int
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderStreamInfo()
	s += m.renderControls()
	s += m.renderStats()

	if m.showDebug {
		s += m.renderDebug()
	}

	s += m.renderHelp()

	return s
}

// renderHeader renders device and playback state
func (m Model) renderHeader() string {
	device := "No device"
	if m.device != "" {
		device = fmt.Sprintf("%s (%s)", m.device, m.backend)
	}

	stateIcon := "■"
	switch m.state {
	case player.StatePlaying:
		stateIcon = "▶"
	case player.StatePaused:
		stateIcon = "⏸"
	}

	return fmt.Sprintf(`┌─ Resonate Out ───────────────────────────────────────┐
│ Device: %-44s │
│ State:  %s %-42s │
├──────────────────────────────────────────────────────┤
`, truncate(device, 44), stateIcon, m.state)
}

// renderStreamInfo renders the source and negotiated format
func (m Model) renderStreamInfo() string {
	if m.format == "" {
		return "│ No stream                                            │\n"
	}

	s := "│ Now Playing:                                         │\n"
	if m.title != "" {
		s += fmt.Sprintf("│   %-50s │\n", truncate(m.title, 50))
	} else {
		s += "│   (Untitled)                                         │\n"
	}

	s += "│                                                      │\n"
	s += fmt.Sprintf("│ Format: %-44s │\n", truncate(m.format, 44))

	return s
}

// renderControls renders the volume bar
func (m Model) renderControls() string {
	if m.volume < 0 {
		return "│                                                      │\n" +
			"│ Volume: (no mixer)                                   │\n"
	}

	volumeBar := renderBar(m.volume, 100, 10)

	return fmt.Sprintf("│                                                      │\n"+
		"│ Volume: [%s] %3d%%%-25s │\n",
		volumeBar, m.volume, "")
}

// renderStats renders handoff statistics
func (m Model) renderStats() string {
	s := fmt.Sprintf(`├──────────────────────────────────────────────────────┤
│ Cycles: %-44s │
│ Slots:  %-44s │
│ Sent:   %-44s │
`,
		fmt.Sprintf("%d published, %d skipped", m.published, m.skipped),
		fmt.Sprintf("%d filled, %d dropped, %d silenced", m.consumed, m.dropped, m.stopped),
		formatBytes(m.written))

	if m.lastErr != "" {
		s += fmt.Sprintf("│ Error:  %-44s │\n", truncate(m.lastErr, 44))
	}
	return s + "│                                                      │\n"
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return `│ space:Pause  d:Drop  ↑/↓:Volume  v:Debug  q:Quit     │
└──────────────────────────────────────────────────────┘
`
}

// renderDebug renders runtime information
func (m Model) renderDebug() string {
	return fmt.Sprintf(`│ DEBUG:                                               │
│   Goroutines: %-38d │
│   Heap: %-44s │
`, m.goroutines, formatBytes(m.memAlloc)+" / "+formatBytes(m.memSys))
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.send(player.CmdQuit)
		return m, tea.Quit
	case " ":
		m.send(player.CmdTogglePause)
	case "d":
		m.send(player.CmdDrop)
	case "up":
		m.send(player.CmdVolumeUp)
	case "down":
		m.send(player.CmdVolumeDown)
	case "v":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

func (m Model) send(cmd player.Command) {
	if m.control != nil {
		m.control.Send(cmd)
	}
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Device != "" {
		m.device = msg.Device
		m.backend = msg.Backend
	}
	if msg.Format != "" {
		m.format = msg.Format
	}
	if msg.Title != "" {
		m.title = msg.Title
	}
	if msg.Player != nil {
		p := msg.Player
		m.state = p.State
		m.volume = p.Volume
		m.written = p.Written
		m.published = p.Stats.Published
		m.consumed = p.Stats.Consumed
		m.dropped = p.Stats.Dropped
		m.stopped = p.Stats.Stopped
		m.skipped = p.Stats.Skipped
	}
	if msg.Goroutines != 0 {
		m.goroutines = msg.Goroutines
		m.memAlloc = msg.MemAlloc
		m.memSys = msg.MemSys
	}
	if msg.Err != nil {
		m.lastErr = msg.Err.Error()
	}
}

// StatusMsg updates TUI state. Zero fields leave the model unchanged.
type StatusMsg struct {
	Device     string
	Backend    string
	Title      string
	Format     string
	Player     *player.Status
	Goroutines int
	MemAlloc   uint64
	MemSys     uint64
	Err        error
}

// Utility functions
func renderBar(value, max, width int) string {
	if value < 0 {
		value = 0
	}
	if value > max {
		value = max
	}
	filled := (value * width) / max
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
