// ABOUTME: Audio type definitions
// ABOUTME: Defines sample encodings, stream formats, and conversion helpers
package audio

import "fmt"

// Encoding identifies the wire format of one PCM sample.
type Encoding int

const (
	// Int16LE is 16-bit signed little-endian PCM (2 bytes per sample)
	Int16LE Encoding = iota
	// Float32LE is 32-bit IEEE float little-endian PCM (4 bytes per sample)
	Float32LE
)

// BytesPerSample returns the byte width of one sample
func (e Encoding) BytesPerSample() int {
	if e == Float32LE {
		return 4
	}
	return 2
}

// String returns the wire tag for the encoding
func (e Encoding) String() string {
	if e == Float32LE {
		return "float32"
	}
	return "int16"
}

// ParseEncoding converts a wire tag to an Encoding
func ParseEncoding(tag string) (Encoding, error) {
	switch tag {
	case "int16":
		return Int16LE, nil
	case "float32":
		return Float32LE, nil
	default:
		return 0, fmt.Errorf("unsupported encoding: %q", tag)
	}
}

// Format describes a PCM stream: mono samples at a fixed rate
type Format struct {
	SampleRate int
	Encoding   Encoding
}

// SampleFromInt16 normalizes an int16 sample into [-1.0, 1.0)
func SampleFromInt16(sample int16) float32 {
	return float32(sample) / 32768.0
}

// SampleToInt16 converts a normalized sample back to int16 with clamping
func SampleToInt16(sample float32) int16 {
	scaled := sample * 32768.0
	if scaled > 32767 {
		return 32767
	}
	if scaled < -32768 {
		return -32768
	}
	return int16(scaled)
}
