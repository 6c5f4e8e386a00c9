// ABOUTME: Main application orchestration
// ABOUTME: Wires config, LLM, TTS, playback session, and TUI together
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/voxchat/voxchat-go/internal/config"
	"github.com/voxchat/voxchat-go/internal/llm"
	"github.com/voxchat/voxchat-go/internal/player"
	"github.com/voxchat/voxchat-go/internal/session"
	"github.com/voxchat/voxchat-go/internal/tts"
	"github.com/voxchat/voxchat-go/internal/ui"
)

// App coordinates all components
type App struct {
	cfg       config.Config
	backend   tts.Backend
	chat      *llm.Client
	device    *player.OtoDevice
	scheduler *player.Scheduler
	sessions  *session.Manager
	controls  *ui.Controls
	tuiProg   *tea.Program
	history   []llm.Message
	volume    int
	muted     bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// New builds the application from configuration
func New(cfg config.Config) (*App, error) {
	backend, err := tts.ParseBackend(cfg.Backend)
	if err != nil {
		return nil, err
	}

	vendor := cfg.CosyVoice
	if backend == tts.BackendCartesia {
		vendor = cfg.Cartesia
	}

	synth, err := tts.New(tts.Config{
		Backend:    backend,
		URL:        vendor.URL,
		APIKey:     vendor.APIKey,
		Model:      vendor.Model,
		Voice:      vendor.Voice,
		SampleRate: vendor.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("tts setup failed: %w", err)
	}

	device := player.NewOtoDevice(cfg.Audio.DeviceSampleRate)
	device.SetVolume(cfg.Audio.Volume)
	scheduler := player.NewScheduler(device)

	ctx, cancel := context.WithCancel(context.Background())

	return &App{
		cfg:       cfg,
		backend:   backend,
		chat:      llm.New(llm.Config(cfg.LLM)),
		device:    device,
		scheduler: scheduler,
		sessions:  session.NewManager(scheduler, synth),
		volume:    cfg.Audio.Volume,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Run starts the TUI and blocks until the user quits
func (a *App) Run() error {
	a.controls = ui.NewControls()

	tuiProg, err := ui.Run(a.controls)
	if err != nil {
		return fmt.Errorf("failed to start TUI: %w", err)
	}
	a.tuiProg = tuiProg

	go a.tuiProg.Run()
	go a.handleControls()
	go a.statusLoop()

	a.updateTUI(ui.StatusMsg{Backend: a.backend.String(), State: "idle"})
	a.sendAudioStatus()

	select {
	case <-a.controls.Quit:
		log.Printf("Quit requested from TUI")
	case <-a.ctx.Done():
	}

	return nil
}

// Stop tears everything down
func (a *App) Stop() {
	a.cancel()
	a.sessions.Stop()
	a.device.Close()

	if a.tuiProg != nil {
		a.tuiProg.Quit()
	}
}

// handleControls processes user actions from the TUI
func (a *App) handleControls() {
	for {
		select {
		case text := <-a.controls.Submits:
			// The submit key press doubles as the device unlock gesture
			if err := a.sessions.Unlock(); err != nil {
				log.Printf("Device unlock failed: %v", err)
				a.updateTUI(ui.StatusMsg{Err: err.Error()})
			}
			go a.handleChat(text)

		case <-a.controls.Stops:
			a.sessions.Stop()

		case <-a.controls.Unlocks:
			if err := a.sessions.Unlock(); err != nil {
				a.updateTUI(ui.StatusMsg{Err: err.Error()})
			}

		case delta := <-a.controls.Volumes:
			a.volume += delta
			if a.volume < 0 {
				a.volume = 0
			}
			if a.volume > 100 {
				a.volume = 100
			}
			a.device.SetVolume(a.volume)
			a.sendAudioStatus()

		case <-a.controls.Mutes:
			a.muted = !a.muted
			a.device.SetMuted(a.muted)
			a.sendAudioStatus()

		case <-a.ctx.Done():
			return
		}
	}
}

// handleChat runs one request/reply/speak cycle
func (a *App) handleChat(text string) {
	a.history = append(a.history, llm.Message{Role: llm.RoleUser, Content: text})

	reply, err := a.chat.Complete(a.ctx, a.history)
	if err != nil {
		log.Printf("Chat failed: %v", err)
		a.updateTUI(ui.StatusMsg{Err: err.Error()})
		a.tuiProg.Send(ui.BusyMsg{Busy: false})
		return
	}

	a.history = append(a.history, llm.Message{Role: llm.RoleAssistant, Content: reply})
	a.tuiProg.Send(ui.ReplyMsg{Text: reply})

	if err := a.sessions.Speak(a.ctx, reply); err != nil {
		log.Printf("Playback failed: %v", err)
		a.updateTUI(ui.StatusMsg{Err: err.Error()})
	}
}

// statusLoop periodically pushes pipeline stats to the TUI
func (a *App) statusLoop() {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stats := a.scheduler.Stats()
			a.updateTUI(ui.StatusMsg{
				State:     a.sessions.State().String(),
				Scheduled: stats.Scheduled,
				Active:    a.scheduler.Active(),
				Stale:     stats.Stale,
			})

		case <-a.ctx.Done():
			return
		}
	}
}

// sendAudioStatus pushes the current volume and mute state to the TUI
func (a *App) sendAudioStatus() {
	vol := a.volume
	muted := a.muted
	a.updateTUI(ui.StatusMsg{Volume: &vol, Muted: &muted})
}

// updateTUI sends a status message if the TUI is running
func (a *App) updateTUI(msg ui.StatusMsg) {
	if a.tuiProg != nil {
		a.tuiProg.Send(msg)
	}
}
