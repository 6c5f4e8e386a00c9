// ABOUTME: Bubbletea model for the chat TUI
// ABOUTME: Defines application state, key handling, and rendering
package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// chatLine is one rendered row of conversation history
type chatLine struct {
	speaker string
	text    string
}

// Model represents the TUI state
type Model struct {
	// Conversation
	history []chatLine
	input   string

	// Playback
	state     string
	backend   string
	scheduled int64
	active    int
	stale     int64
	volume    int
	muted     bool

	// Status
	busy    bool
	lastErr string

	// Dimensions
	width  int
	height int

	controls *Controls
}

// StatusMsg updates playback and pipeline state
type StatusMsg struct {
	State     string
	Backend   string
	Scheduled int64
	Active    int
	Stale     int64
	Volume    *int
	Muted     *bool
	Err       string
}

// ReplyMsg appends an assistant reply to the history
type ReplyMsg struct {
	Text string
}

// BusyMsg marks whether a chat request is in flight
type BusyMsg struct {
	Busy bool
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
	case ReplyMsg:
		m.history = append(m.history, chatLine{speaker: "voxchat", text: msg.Text})
		m.busy = false
	case BusyMsg:
		m.busy = msg.Busy
	}

	return m, nil
}

// handleKey processes keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		if m.controls != nil {
			select {
			case m.controls.Quit <- struct{}{}:
			default:
			}
		}
		return m, tea.Quit

	case "ctrl+s":
		if m.controls != nil {
			select {
			case m.controls.Stops <- struct{}{}:
			default:
			}
		}
		return m, nil

	case "ctrl+u":
		// Device unlock must originate from a direct key press
		if m.controls != nil {
			select {
			case m.controls.Unlocks <- struct{}{}:
			default:
			}
		}
		return m, nil

	case "up":
		if m.controls != nil {
			select {
			case m.controls.Volumes <- 5:
			default:
			}
		}
		return m, nil

	case "down":
		if m.controls != nil {
			select {
			case m.controls.Volumes <- -5:
			default:
			}
		}
		return m, nil

	case "ctrl+t":
		if m.controls != nil {
			select {
			case m.controls.Mutes <- struct{}{}:
			default:
			}
		}
		return m, nil

	case "enter":
		text := strings.TrimSpace(m.input)
		if text == "" || m.busy {
			return m, nil
		}
		m.history = append(m.history, chatLine{speaker: "you", text: text})
		m.input = ""
		m.busy = true
		if m.controls != nil {
			select {
			case m.controls.Submits <- text:
			default:
			}
		}
		return m, nil

	case "backspace":
		if len(m.input) > 0 {
			runes := []rune(m.input)
			m.input = string(runes[:len(runes)-1])
		}
		return m, nil

	default:
		if msg.Type == tea.KeyRunes {
			m.input += string(msg.Runes)
		} else if msg.Type == tea.KeySpace {
			m.input += " "
		}
		return m, nil
	}
}

// applyStatus merges a status update
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.State != "" {
		m.state = msg.State
	}
	if msg.Backend != "" {
		m.backend = msg.Backend
	}
	if msg.Scheduled > 0 {
		m.scheduled = msg.Scheduled
	}
	m.active = msg.Active
	if msg.Stale > 0 {
		m.stale = msg.Stale
	}
	if msg.Volume != nil {
		m.volume = *msg.Volume
	}
	if msg.Muted != nil {
		m.muted = *msg.Muted
	}
	if msg.Err != "" {
		m.lastErr = msg.Err
	}
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderHistory()
	s += m.renderInput()
	s += m.renderHelp()

	return s
}

// renderHeader renders backend and playback status
func (m Model) renderHeader() string {
	state := m.state
	if state == "" {
		state = "idle"
	}

	vol := fmt.Sprintf("vol %d", m.volume)
	if m.muted {
		vol = "muted"
	}

	status := fmt.Sprintf("%s | playback: %s | units: %d | %s", m.backend, state, m.active, vol)
	if m.lastErr != "" {
		status = fmt.Sprintf("%s | error: %s", status, m.lastErr)
	}

	return fmt.Sprintf(`┌─ VoxChat ────────────────────────────────────────────┐
│ %-52s │
├──────────────────────────────────────────────────────┤
`, clip(status, 52))
}

// renderHistory renders the most recent conversation lines
func (m Model) renderHistory() string {
	rows := m.height - 8
	if rows < 3 {
		rows = 3
	}

	start := 0
	if len(m.history) > rows {
		start = len(m.history) - rows
	}

	s := ""
	for _, line := range m.history[start:] {
		s += fmt.Sprintf("│ %-52s │\n", clip(fmt.Sprintf("%s: %s", line.speaker, line.text), 52))
	}
	for i := len(m.history) - start; i < rows; i++ {
		s += fmt.Sprintf("│ %-52s │\n", "")
	}

	return s
}

// renderInput renders the prompt line
func (m Model) renderInput() string {
	prompt := "> " + m.input
	if m.busy {
		prompt = "… thinking"
	}

	return fmt.Sprintf(`├──────────────────────────────────────────────────────┤
│ %-52s │
`, clip(prompt, 52))
}

// renderHelp renders key bindings
func (m Model) renderHelp() string {
	help := "enter send · ctrl+s stop · ctrl+u unlock · ↑↓ vol · ctrl+t mute"
	return fmt.Sprintf(`│ %-52s │
└──────────────────────────────────────────────────────┘
`, clip(help, 52))
}

// clip truncates a string to fit a fixed-width cell
func clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
