// ABOUTME: TTS backend types and interfaces
// ABOUTME: Defines the closed backend variant and the raw PCM stream contract
package tts

import (
	"context"
	"fmt"

	"github.com/voxchat/voxchat-go/pkg/audio"
)

// Backend identifies a TTS vendor. The set is closed so dispatch is
// exhaustive at compile time.
type Backend int

const (
	// BackendCosyVoice streams 24kHz Int16LE PCM over a duplex websocket
	BackendCosyVoice Backend = iota
	// BackendCartesia streams 44.1kHz Float32LE PCM over chunked HTTP
	BackendCartesia
)

// String returns the config tag for the backend
func (b Backend) String() string {
	if b == BackendCartesia {
		return "cartesia"
	}
	return "cosyvoice"
}

// ParseBackend converts a config tag to a Backend
func ParseBackend(tag string) (Backend, error) {
	switch tag {
	case "cosyvoice":
		return BackendCosyVoice, nil
	case "cartesia":
		return BackendCartesia, nil
	default:
		return 0, fmt.Errorf("unsupported tts backend: %q", tag)
	}
}

// Request carries one utterance to synthesize
type Request struct {
	Text  string
	Voice string
}

// Stream delivers one synthesis result as raw PCM byte chunks. Chunk
// boundaries are a network artifact and carry no sample alignment; the
// declared format is fixed for the stream's lifetime. Next returns
// io.EOF when the backend has sent all audio.
type Stream interface {
	Format() audio.Format
	Next(ctx context.Context) ([]byte, error)
	Close() error
}

// Synthesizer produces an audio stream for a piece of text
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (Stream, error)
}

// Config selects and parameterizes a backend
type Config struct {
	Backend    Backend
	URL        string
	APIKey     string
	Model      string
	Voice      string
	SampleRate int
}

// New creates a synthesizer for the configured backend
func New(cfg Config) (Synthesizer, error) {
	switch cfg.Backend {
	case BackendCosyVoice:
		return NewCosyVoice(cfg)
	case BackendCartesia:
		return NewCartesia(cfg)
	default:
		return nil, fmt.Errorf("unsupported tts backend: %d", cfg.Backend)
	}
}
