// ABOUTME: Audio output device abstraction over oto
// ABOUTME: Owns the hardware context, device clock, and per-unit voices
package player

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// ErrDeviceUnavailable indicates the output device could not be acquired
var ErrDeviceUnavailable = errors.New("audio output device unavailable")

// Voice is a handle to one scheduled unit of audio on the device.
// Stop is safe on units that already finished or never started.
type Voice interface {
	Stop()
}

// Device is the audio output owned by the Scheduler. Now returns seconds
// on the device's own clock, which starts running at the first Resume.
// onDone fires on natural completion, from a device goroutine; it is
// armed before playback can start so even a zero-delay unit reports back.
type Device interface {
	Resume() error
	Suspend()
	Now() float64
	SampleRate() int
	PlayAt(samples []float32, when float64, onDone func()) (Voice, error)
	Close() error
}

// OtoDevice implements Device using the oto library. oto allows only one
// context per process, so the context is created once at a fixed sample
// rate and later sessions are resampled onto it.
type OtoDevice struct {
	mu         sync.Mutex
	otoCtx     *oto.Context
	sampleRate int
	epoch      time.Time
	suspended  bool
	volume     int
	muted      bool
}

// NewOtoDevice creates an output device at the given mono sample rate
func NewOtoDevice(sampleRate int) *OtoDevice {
	return &OtoDevice{
		sampleRate: sampleRate,
		volume:     100,
	}
}

// Resume acquires or reactivates the device. Idempotent: resuming an
// already-active device is a no-op. Must be driven by a user action so
// host audio permission checks are satisfied.
func (d *OtoDevice) Resume() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.otoCtx == nil {
		op := &oto.NewContextOptions{
			SampleRate:   d.sampleRate,
			ChannelCount: 1,
			Format:       oto.FormatFloat32LE,
		}

		ctx, readyChan, err := oto.NewContext(op)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
		}

		<-readyChan

		d.otoCtx = ctx
		d.epoch = time.Now()

		log.Printf("Audio output initialized: %dHz mono float32", d.sampleRate)
		return nil
	}

	if d.suspended {
		if err := d.otoCtx.Resume(); err != nil {
			return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
		}
		d.suspended = false
	}

	return nil
}

// Suspend pauses the hardware context
func (d *OtoDevice) Suspend() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.otoCtx != nil && !d.suspended {
		if err := d.otoCtx.Suspend(); err != nil {
			log.Printf("Suspend failed: %v", err)
			return
		}
		d.suspended = true
	}
}

// Now returns seconds elapsed on the device clock
func (d *OtoDevice) Now() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.epoch.IsZero() {
		return 0
	}
	return time.Since(d.epoch).Seconds()
}

// SampleRate returns the device output rate
func (d *OtoDevice) SampleRate() int {
	return d.sampleRate
}

// PlayAt registers samples to start playing at the given device time and
// returns immediately; rendering is driven by the device's own clock.
func (d *OtoDevice) PlayAt(samples []float32, when float64, onDone func()) (Voice, error) {
	d.mu.Lock()
	if d.otoCtx == nil {
		d.mu.Unlock()
		return nil, ErrDeviceUnavailable
	}
	otoCtx := d.otoCtx
	elapsed := time.Since(d.epoch).Seconds()
	d.mu.Unlock()

	pcm := floatBytes(samples)
	duration := time.Duration(float64(len(samples)) / float64(d.sampleRate) * float64(time.Second))

	delay := time.Duration((when - elapsed) * float64(time.Second))
	if delay < 0 {
		delay = 0
	}

	v := &otoVoice{onDone: onDone}
	v.start = time.AfterFunc(delay, func() {
		v.mu.Lock()
		if v.stopped {
			v.mu.Unlock()
			return
		}
		p := otoCtx.NewPlayer(bytes.NewReader(pcm))
		p.SetVolume(d.volumeMultiplier())
		p.Play()
		v.player = p
		v.done = time.AfterFunc(duration, v.finish)
		v.mu.Unlock()
	})

	return v, nil
}

// Close releases the device
func (d *OtoDevice) Close() error {
	d.Suspend()
	return nil
}

// SetVolume sets the volume (0-100)
func (d *OtoDevice) SetVolume(volume int) {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}

	d.mu.Lock()
	d.volume = volume
	d.mu.Unlock()

	log.Printf("Volume set to %d", volume)
}

// SetMuted sets mute state
func (d *OtoDevice) SetMuted(muted bool) {
	d.mu.Lock()
	d.muted = muted
	d.mu.Unlock()

	log.Printf("Muted: %v", muted)
}

// volumeMultiplier calculates the player gain
func (d *OtoDevice) volumeMultiplier() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.muted {
		return 0.0
	}
	return float64(d.volume) / 100.0
}

// otoVoice tracks one pending or playing unit
type otoVoice struct {
	mu      sync.Mutex
	start   *time.Timer
	done    *time.Timer
	player  *oto.Player
	stopped bool
	onDone  func()
}

// Stop halts the voice. No-op on finished or never-started voices.
func (v *otoVoice) Stop() {
	v.mu.Lock()
	if v.stopped {
		v.mu.Unlock()
		return
	}
	v.stopped = true
	if v.start != nil {
		v.start.Stop()
	}
	if v.done != nil {
		v.done.Stop()
	}
	p := v.player
	v.player = nil
	v.mu.Unlock()

	if p != nil {
		// The underlying resource may already be released by the device
		_ = p.Close()
	}
}

// finish handles natural completion
func (v *otoVoice) finish() {
	v.mu.Lock()
	if v.stopped {
		v.mu.Unlock()
		return
	}
	v.stopped = true
	p := v.player
	v.player = nil
	fn := v.onDone
	v.mu.Unlock()

	if p != nil {
		_ = p.Close()
	}
	if fn != nil {
		fn()
	}
}

// floatBytes converts normalized samples to float32 little-endian PCM
func floatBytes(samples []float32) []byte {
	output := make([]byte, len(samples)*4)
	for i, sample := range samples {
		binary.LittleEndian.PutUint32(output[i*4:], math.Float32bits(sample))
	}
	return output
}
