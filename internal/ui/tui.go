// ABOUTME: TUI initialization and control channels
// ABOUTME: Wraps the bubbletea program for the chat UI
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Controls holds channels carrying user actions out of the TUI
type Controls struct {
	Submits chan string
	Stops   chan struct{}
	Unlocks chan struct{}
	Volumes chan int
	Mutes   chan struct{}
	Quit    chan struct{}
}

// NewControls creates the control channel set
func NewControls() *Controls {
	return &Controls{
		Submits: make(chan string, 4),
		Stops:   make(chan struct{}, 1),
		Unlocks: make(chan struct{}, 1),
		Volumes: make(chan int, 4),
		Mutes:   make(chan struct{}, 1),
		Quit:    make(chan struct{}, 1),
	}
}

// NewModel creates a new TUI model
func NewModel(controls *Controls) Model {
	return Model{
		state:    "idle",
		volume:   100,
		controls: controls,
	}
}

// Run starts the TUI
func Run(controls *Controls) (*tea.Program, error) {
	p := tea.NewProgram(NewModel(controls), tea.WithAltScreen())
	return p, nil
}
