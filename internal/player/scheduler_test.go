// ABOUTME: Tests for the gapless playback scheduler
// ABOUTME: Uses a fake device with a manually-advanced clock
package player

import (
	"errors"
	"sync"
	"testing"

	"github.com/voxchat/voxchat-go/pkg/audio"
)

// fakeDevice records scheduled plays against a manual clock
type fakeDevice struct {
	mu        sync.Mutex
	now       float64
	rate      int
	resumeErr error
	resumed   bool
	voices    []*fakeVoice
	plays     []fakePlay
}

type fakePlay struct {
	when    float64
	samples int
}

func newFakeDevice(rate int) *fakeDevice {
	return &fakeDevice{rate: rate}
}

func (d *fakeDevice) Resume() error {
	if d.resumeErr != nil {
		return d.resumeErr
	}
	d.resumed = true
	return nil
}

func (d *fakeDevice) Suspend() {}

func (d *fakeDevice) Now() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.now
}

func (d *fakeDevice) SampleRate() int { return d.rate }

func (d *fakeDevice) PlayAt(samples []float32, when float64, onDone func()) (Voice, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	v := &fakeVoice{onDone: onDone}
	d.voices = append(d.voices, v)
	d.plays = append(d.plays, fakePlay{when: when, samples: len(samples)})
	return v, nil
}

func (d *fakeDevice) Close() error { return nil }

func (d *fakeDevice) advance(seconds float64) {
	d.mu.Lock()
	d.now += seconds
	d.mu.Unlock()
}

// fakeVoice lets tests trigger natural completion explicitly
type fakeVoice struct {
	mu       sync.Mutex
	stopped  bool
	stops    int
	finished bool
	onDone   func()
}

func (v *fakeVoice) Stop() {
	v.mu.Lock()
	v.stopped = true
	v.stops++
	v.mu.Unlock()
}

func (v *fakeVoice) finish() {
	v.mu.Lock()
	if v.stopped || v.finished {
		v.mu.Unlock()
		return
	}
	v.finished = true
	fn := v.onDone
	v.mu.Unlock()

	if fn != nil {
		fn()
	}
}

func TestContiguousStartTimes(t *testing.T) {
	device := newFakeDevice(48000)
	s := NewScheduler(device)

	token := s.StartSession(audio.Format{SampleRate: 48000, Encoding: audio.Float32LE})

	chunks := []int{4800, 2400, 9600}
	for _, n := range chunks {
		if err := s.ScheduleChunk(token, make([]float32, n)); err != nil {
			t.Fatalf("schedule failed: %v", err)
		}
	}

	want := []float64{0, 0.1, 0.15}
	if len(device.plays) != len(want) {
		t.Fatalf("expected %d plays, got %d", len(want), len(device.plays))
	}
	for i, w := range want {
		got := device.plays[i].when
		if got < w-1e-9 || got > w+1e-9 {
			t.Errorf("unit %d starts at %f, want %f", i, got, w)
		}
	}

	end := 0.15 + 9600.0/48000.0
	if got := s.NextStart(); got < end-1e-9 || got > end+1e-9 {
		t.Errorf("nextStart = %f, want %f", got, end)
	}
}

func TestConsumerBehindStartsImmediately(t *testing.T) {
	device := newFakeDevice(48000)
	s := NewScheduler(device)

	token := s.StartSession(audio.Format{SampleRate: 48000})
	if err := s.ScheduleChunk(token, make([]float32, 480)); err != nil {
		t.Fatalf("schedule failed: %v", err)
	}

	// Network stall: device clock overtakes the timeline
	device.advance(5.0)

	if err := s.ScheduleChunk(token, make([]float32, 480)); err != nil {
		t.Fatalf("schedule failed: %v", err)
	}

	if got := device.plays[1].when; got != 5.0 {
		t.Errorf("late unit starts at %f, want 5.0 (immediately)", got)
	}
}

func TestStopHaltsUnitsAndDropsLateChunks(t *testing.T) {
	device := newFakeDevice(48000)
	s := NewScheduler(device)

	token := s.StartSession(audio.Format{SampleRate: 48000})
	s.ScheduleChunk(token, make([]float32, 480))
	s.ScheduleChunk(token, make([]float32, 480))

	s.Stop()

	for i, v := range device.voices {
		if !v.stopped {
			t.Errorf("unit %d not stopped", i)
		}
	}
	if s.Active() != 0 {
		t.Errorf("expected empty registry, got %d units", s.Active())
	}
	if s.NextStart() != 0 {
		t.Errorf("expected nextStart reset to 0, got %f", s.NextStart())
	}

	// Stray chunks from the superseded stream schedule nothing audible
	s.ScheduleChunk(token, make([]float32, 480))
	s.ScheduleChunk(token, make([]float32, 480))

	if len(device.plays) != 2 {
		t.Errorf("stale chunks were scheduled: %d plays", len(device.plays))
	}
	if s.Stats().Stale != 2 {
		t.Errorf("expected 2 stale chunks, got %d", s.Stats().Stale)
	}
}

func TestStopWithNoSession(t *testing.T) {
	s := NewScheduler(newFakeDevice(48000))

	// Must be a no-op, never an error
	s.Stop()
	s.Stop()
}

func TestStopToleratesFinishedUnits(t *testing.T) {
	device := newFakeDevice(48000)
	s := NewScheduler(device)

	token := s.StartSession(audio.Format{SampleRate: 48000})
	s.ScheduleChunk(token, make([]float32, 480))

	device.voices[0].finish()

	// Unit already removed itself; stop must still be safe
	s.Stop()
}

func TestFinishedUnitsLeaveRegistry(t *testing.T) {
	device := newFakeDevice(48000)
	s := NewScheduler(device)

	token := s.StartSession(audio.Format{SampleRate: 48000})
	s.ScheduleChunk(token, make([]float32, 480))
	s.ScheduleChunk(token, make([]float32, 480))

	if s.Active() != 2 {
		t.Fatalf("expected 2 active units, got %d", s.Active())
	}

	device.voices[0].finish()
	device.voices[1].finish()

	if s.Active() != 0 {
		t.Errorf("expected empty registry, got %d units", s.Active())
	}
	if s.Stats().Completed != 2 {
		t.Errorf("expected 2 completed, got %d", s.Stats().Completed)
	}
}

func TestCompletionCallbackArmedAtPlayTime(t *testing.T) {
	device := newFakeDevice(48000)
	s := NewScheduler(device)

	token := s.StartSession(audio.Format{SampleRate: 48000})
	s.ScheduleChunk(token, make([]float32, 480))

	// A very short unit can finish the moment it is handed to the
	// device; the callback must already be in place by then.
	if device.voices[0].onDone == nil {
		t.Fatal("unit handed to the device without a completion callback")
	}

	device.voices[0].finish()
	if s.Active() != 0 {
		t.Errorf("expected empty registry after immediate finish, got %d", s.Active())
	}
}

func TestScheduleChunkBeforeAnySession(t *testing.T) {
	device := newFakeDevice(48000)
	s := NewScheduler(device)

	// The initial token value must not be schedulable
	if err := s.ScheduleChunk(0, make([]float32, 480)); err != nil {
		t.Fatalf("expected silent drop, got %v", err)
	}
	if len(device.plays) != 0 {
		t.Error("chunk scheduled with no session started")
	}
	if s.Stats().Stale != 1 {
		t.Errorf("expected 1 stale chunk, got %d", s.Stats().Stale)
	}
}

func TestNotifyDrain(t *testing.T) {
	device := newFakeDevice(48000)
	s := NewScheduler(device)

	token := s.StartSession(audio.Format{SampleRate: 48000})
	s.ScheduleChunk(token, make([]float32, 480))

	drained := false
	s.NotifyDrain(token, func() { drained = true })

	if drained {
		t.Fatal("drain fired with a unit still active")
	}

	device.voices[0].finish()
	if !drained {
		t.Error("drain did not fire after last unit finished")
	}
}

func TestNotifyDrainImmediateWhenIdle(t *testing.T) {
	s := NewScheduler(newFakeDevice(48000))
	token := s.StartSession(audio.Format{SampleRate: 48000})

	drained := false
	s.NotifyDrain(token, func() { drained = true })

	if !drained {
		t.Error("expected immediate drain with nothing scheduled")
	}
}

func TestNewSessionInvalidatesOldToken(t *testing.T) {
	device := newFakeDevice(48000)
	s := NewScheduler(device)

	old := s.StartSession(audio.Format{SampleRate: 48000})
	current := s.StartSession(audio.Format{SampleRate: 48000})

	s.ScheduleChunk(old, make([]float32, 480))
	if len(device.plays) != 0 {
		t.Error("chunk from superseded session was scheduled")
	}

	s.ScheduleChunk(current, make([]float32, 480))
	if len(device.plays) != 1 {
		t.Error("chunk from current session was not scheduled")
	}
}

func TestSessionRateResampledToDeviceRate(t *testing.T) {
	device := newFakeDevice(48000)
	s := NewScheduler(device)

	token := s.StartSession(audio.Format{SampleRate: 24000, Encoding: audio.Int16LE})
	s.ScheduleChunk(token, make([]float32, 2400))

	if len(device.plays) != 1 {
		t.Fatalf("expected 1 play, got %d", len(device.plays))
	}

	// 0.1s at 24kHz becomes ~0.1s at 48kHz, modulo interpolation edges
	n := device.plays[0].samples
	if n < 4790 || n > 4800 {
		t.Errorf("expected ~4800 device samples, got %d", n)
	}
}

func TestResumeSurfacesDeviceUnavailable(t *testing.T) {
	device := newFakeDevice(48000)
	device.resumeErr = ErrDeviceUnavailable
	s := NewScheduler(device)

	if err := s.Resume(); !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("expected ErrDeviceUnavailable, got %v", err)
	}
}
