// ABOUTME: Gapless playback scheduler
// ABOUTME: Places decoded buffers on a contiguous timeline against the device clock
package player

import (
	"fmt"
	"log"
	"sync"

	"github.com/voxchat/voxchat-go/pkg/audio"
	"github.com/voxchat/voxchat-go/pkg/audio/resample"
)

// Scheduler owns the output device and the active-unit registry. Each
// buffer is scheduled to start exactly when the previous one ends, so
// irregular network chunks produce continuous audio. At most one session
// is active; starting a new one tears down the prior one.
type Scheduler struct {
	mu        sync.Mutex
	device    Device
	session   uint64
	nextStart float64
	resampler *resample.Resampler
	units     map[uint64]Voice
	nextUnit  uint64
	drain     func()

	stats SchedulerStats
}

// SchedulerStats tracks scheduler metrics
type SchedulerStats struct {
	Scheduled int64
	Completed int64
	Stale     int64
}

// NewScheduler creates a playback scheduler for the given device
func NewScheduler(device Device) *Scheduler {
	return &Scheduler{
		device: device,
		units:  make(map[uint64]Voice),
	}
}

// Resume acquires the output device. Idempotent.
func (s *Scheduler) Resume() error {
	return s.device.Resume()
}

// StartSession stops any prior session and returns the token for a new
// one. Chunks carrying a superseded token are silently discarded, which
// keeps a stale read loop from scheduling audio after a stop.
func (s *Scheduler) StartSession(format audio.Format) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.resampler = resample.New(format.SampleRate, s.device.SampleRate())

	return s.session
}

// ScheduleChunk places decoded samples on the timeline. The unit starts
// at max(device clock, nextStart): back-to-back when the consumer keeps
// up, immediately (with an audible gap) when the network stalled long
// enough for the clock to overtake the timeline.
func (s *Scheduler) ScheduleChunk(session uint64, samples []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A nil resampler means no session was ever started; the initial
	// token value must not schedule anything either.
	if session != s.session || s.resampler == nil {
		s.stats.Stale++
		return nil
	}
	if len(samples) == 0 {
		return nil
	}

	out := s.resampler.Resample(samples)
	if len(out) == 0 {
		return nil
	}

	start := s.nextStart
	if now := s.device.Now(); now > start {
		if s.stats.Scheduled > 0 {
			log.Printf("Consumer behind by %.3fs, scheduling immediately", now-start)
		}
		start = now
	}

	id := s.nextUnit
	s.nextUnit++

	// A fast completion blocks in unitDone on the lock held here, so the
	// unit is always registered before the callback can remove it.
	voice, err := s.device.PlayAt(out, start, func() { s.unitDone(session, id) })
	if err != nil {
		return fmt.Errorf("schedule chunk: %w", err)
	}
	s.units[id] = voice

	s.nextStart = start + float64(len(out))/float64(s.device.SampleRate())
	s.stats.Scheduled++

	return nil
}

// NotifyDrain registers fn to run when the session's last unit finishes
// naturally. Fires immediately if nothing is scheduled. A stop or a new
// session discards the pending notification.
func (s *Scheduler) NotifyDrain(session uint64, fn func()) {
	s.mu.Lock()

	if session != s.session {
		s.mu.Unlock()
		return
	}
	if len(s.units) > 0 {
		s.drain = fn
		s.mu.Unlock()
		return
	}

	s.mu.Unlock()
	fn()
}

// unitDone removes a naturally-finished unit from the registry
func (s *Scheduler) unitDone(session, id uint64) {
	s.mu.Lock()

	if session != s.session {
		s.mu.Unlock()
		return
	}

	delete(s.units, id)
	s.stats.Completed++

	var fn func()
	if len(s.units) == 0 && s.drain != nil {
		fn = s.drain
		s.drain = nil
	}
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Stop halts every registered unit, clears the registry, and resets the
// timeline. Safe to call at any time, including with no active session,
// and from a different goroutine than the read loop.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	for id, voice := range s.units {
		voice.Stop()
		delete(s.units, id)
	}
	s.nextStart = 0
	s.drain = nil
	s.session++
}

// Active returns the number of registered units
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.units)
}

// NextStart returns the current end of the scheduled timeline in seconds
func (s *Scheduler) NextStart() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextStart
}

// Stats returns scheduler statistics
func (s *Scheduler) Stats() SchedulerStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
