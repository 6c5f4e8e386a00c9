// ABOUTME: Playback session lifecycle management
// ABOUTME: Runs the stream read loop and owns stop/replace semantics
package session

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/voxchat/voxchat-go/internal/player"
	"github.com/voxchat/voxchat-go/internal/tts"
	"github.com/voxchat/voxchat-go/pkg/audio/ingest"
)

// State tracks one playback session's lifecycle
type State int

const (
	StateIdle State = iota
	StateResuming
	StateStreaming
	StateCompleted
	StateStopped
)

// String returns a display name for the state
func (s State) String() string {
	switch s {
	case StateResuming:
		return "resuming"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateStopped:
		return "stopped"
	default:
		return "idle"
	}
}

// Manager owns at most one active playback session. Starting a new one
// tears down the prior one; Stop is safe from any goroutine at any time.
type Manager struct {
	mu        sync.Mutex
	scheduler *player.Scheduler
	synth     tts.Synthesizer
	state     State
	token     uint64
	cancel    context.CancelFunc
}

// NewManager creates a session manager
func NewManager(scheduler *player.Scheduler, synth tts.Synthesizer) *Manager {
	return &Manager{
		scheduler: scheduler,
		synth:     synth,
	}
}

// Unlock acquires or resumes the output device. Must be driven by a
// direct user action so host audio permission checks pass. Idempotent.
func (m *Manager) Unlock() error {
	return m.scheduler.Resume()
}

// Speak stops any prior session and starts speaking text. It returns
// once streaming has started, not once playback finishes.
func (m *Manager) Speak(ctx context.Context, text string) error {
	m.stopCurrent()

	m.setState(StateResuming)
	if err := m.scheduler.Resume(); err != nil {
		m.setState(StateIdle)
		return err
	}

	// The stream outlives the caller's request context
	streamCtx, cancel := context.WithCancel(context.Background())

	stream, err := m.synth.Synthesize(ctx, tts.Request{Text: text})
	if err != nil {
		cancel()
		m.setState(StateIdle)
		return fmt.Errorf("playback failed: %w", err)
	}

	m.mu.Lock()
	m.cancel = cancel
	m.token = m.scheduler.StartSession(stream.Format())
	token := m.token
	m.mu.Unlock()

	id := uuid.NewString()[:8]
	format := stream.Format()
	log.Printf("Session %s: speaking %d chars (%dHz %s)",
		id, len(text), format.SampleRate, format.Encoding)

	go m.readLoop(streamCtx, stream, token, id)

	return nil
}

// Stop silences all pending and in-flight audio and cancels the read
// loop. Safe to call with no active session.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.state == StateResuming || m.state == StateStreaming {
		m.state = StateStopped
	}
	m.mu.Unlock()

	m.scheduler.Stop()
}

// State returns the current session state
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// readLoop pulls chunks until end-of-stream, aligning and scheduling
// each one. Exactly one read loop exists per session; cancellation goes
// through the context and the scheduler's session token.
func (m *Manager) readLoop(ctx context.Context, stream tts.Stream, token uint64, id string) {
	defer stream.Close()

	assembler := ingest.New(stream.Format().Encoding)

	for {
		chunk, err := stream.Next(ctx)
		if err == io.EOF {
			if dropped := assembler.Pending(); dropped > 0 {
				// Normal network granularity, not a protocol violation
				log.Printf("Session %s: dropping %d dangling bytes at end of stream", id, dropped)
			}
			assembler.Reset()
			m.scheduler.NotifyDrain(token, func() { m.complete(token, id) })
			return
		}
		if err != nil {
			if ctx.Err() == nil {
				// Audio already scheduled keeps playing; the session
				// still finishes once the last unit drains.
				log.Printf("Session %s: stream read failed: %v", id, err)
				m.scheduler.NotifyDrain(token, func() { m.complete(token, id) })
			}
			return
		}

		samples := assembler.Push(chunk)
		if samples == nil {
			continue
		}

		m.markStreaming(token)
		if err := m.scheduler.ScheduleChunk(token, samples); err != nil {
			log.Printf("Session %s: schedule failed: %v", id, err)
			return
		}
	}
}

// markStreaming enters Streaming on the first scheduled chunk
func (m *Manager) markStreaming(token uint64) {
	m.mu.Lock()
	if m.token == token && m.state == StateResuming {
		m.state = StateStreaming
	}
	m.mu.Unlock()
}

// complete marks the session finished once its last unit played out
func (m *Manager) complete(token uint64, id string) {
	m.mu.Lock()
	if m.token == token && m.state != StateStopped {
		m.state = StateCompleted
		m.cancel = nil
		log.Printf("Session %s: completed", id)
	}
	m.mu.Unlock()
}

// stopCurrent cancels any in-flight session before starting a new one
func (m *Manager) stopCurrent() {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.mu.Unlock()

	m.scheduler.Stop()
}

// setState transitions the lifecycle state
func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}
