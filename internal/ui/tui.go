// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program driving a player
package ui

import (
	"github.com/Resonate-Protocol/resonate-out/internal/player"
	tea "github.com/charmbracelet/bubbletea"
)

// Commander receives the commands bound to keys. *player.Player
// implements it.
type Commander interface {
	Send(cmd player.Command) bool
}

// NewModel creates a new TUI model
func NewModel(control Commander) Model {
	return Model{
		volume:  -1,
		state:   player.StateStopped,
		control: control,
	}
}

// Run creates the TUI program; the caller starts it
func Run(control Commander) (*tea.Program, error) {
	p := tea.NewProgram(NewModel(control), tea.WithAltScreen())
	return p, nil
}
