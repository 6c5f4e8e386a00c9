// ABOUTME: Tests for the chat TUI model
// ABOUTME: Exercises message handling and key-driven input
package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestStatusUpdates(t *testing.T) {
	m := NewModel(nil)

	updated, _ := m.Update(StatusMsg{State: "streaming", Backend: "cosyvoice", Active: 3})
	m = updated.(Model)

	if m.state != "streaming" {
		t.Errorf("expected streaming state, got %q", m.state)
	}
	if m.backend != "cosyvoice" {
		t.Errorf("expected cosyvoice backend, got %q", m.backend)
	}
	if m.active != 3 {
		t.Errorf("expected 3 active units, got %d", m.active)
	}
}

func TestEnterSubmitsInput(t *testing.T) {
	controls := NewControls()
	m := NewModel(controls)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("hi")})
	m = updated.(Model)
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)

	select {
	case got := <-controls.Submits:
		if got != "hi" {
			t.Errorf("expected submitted text \"hi\", got %q", got)
		}
	default:
		t.Fatal("no text submitted")
	}

	if m.input != "" {
		t.Errorf("expected cleared input, got %q", m.input)
	}
	if len(m.history) != 1 || m.history[0].speaker != "you" {
		t.Errorf("expected user line in history, got %+v", m.history)
	}
}

func TestEnterIgnoredWhileBusy(t *testing.T) {
	controls := NewControls()
	m := NewModel(controls)
	m.busy = true
	m.input = "hello"

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)

	select {
	case <-controls.Submits:
		t.Error("submit sent while busy")
	default:
	}
}

func TestReplyAppendsHistory(t *testing.T) {
	m := NewModel(nil)
	m.busy = true

	updated, _ := m.Update(ReplyMsg{Text: "hello there"})
	m = updated.(Model)

	if len(m.history) != 1 || m.history[0].speaker != "voxchat" {
		t.Errorf("expected assistant line, got %+v", m.history)
	}
	if m.busy {
		t.Error("expected busy cleared after reply")
	}
}

func TestViewRendersAfterResize(t *testing.T) {
	m := NewModel(nil)

	if got := m.View(); got != "Loading..." {
		t.Errorf("expected loading placeholder, got %q", got)
	}

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = updated.(Model)

	view := m.View()
	if !strings.Contains(view, "VoxChat") {
		t.Error("expected header in rendered view")
	}
	if !strings.Contains(view, "ctrl+s stop") {
		t.Error("expected help line in rendered view")
	}
}

func TestVolumeKeysEmitDeltas(t *testing.T) {
	controls := NewControls()
	m := NewModel(controls)

	m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m.Update(tea.KeyMsg{Type: tea.KeyDown})

	if got := <-controls.Volumes; got != 5 {
		t.Errorf("expected +5 delta, got %d", got)
	}
	if got := <-controls.Volumes; got != -5 {
		t.Errorf("expected -5 delta, got %d", got)
	}
}

func TestMuteKeySignalsAndStatusRenders(t *testing.T) {
	controls := NewControls()
	m := NewModel(controls)

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlT})

	select {
	case <-controls.Mutes:
	default:
		t.Fatal("no mute signal sent")
	}

	muted := true
	updated, _ := m.Update(StatusMsg{Muted: &muted})
	m = updated.(Model)
	updated, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = updated.(Model)

	if !strings.Contains(m.View(), "muted") {
		t.Error("expected muted indicator in header")
	}
}
