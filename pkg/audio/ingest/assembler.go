// ABOUTME: Sample-aligned chunk assembler for streaming PCM
// ABOUTME: Buffers partial samples across network chunk boundaries
package ingest

import (
	"encoding/binary"
	"math"

	"github.com/voxchat/voxchat-go/pkg/audio"
)

// Assembler converts raw byte chunks of arbitrary length into buffers of
// whole, decoded samples. Bytes that do not complete a sample are carried
// over to the next chunk; the carry is always shorter than one sample.
type Assembler struct {
	encoding audio.Encoding
	carry    []byte
}

// New creates an assembler for the given sample encoding
func New(encoding audio.Encoding) *Assembler {
	return &Assembler{encoding: encoding}
}

// Push ingests the next chunk and returns the decoded samples, or nil when
// the chunk plus carry-over still holds less than one whole sample.
func (a *Assembler) Push(chunk []byte) []float32 {
	combined := chunk
	if len(a.carry) > 0 {
		combined = make([]byte, 0, len(a.carry)+len(chunk))
		combined = append(combined, a.carry...)
		combined = append(combined, chunk...)
	}

	width := a.encoding.BytesPerSample()
	processable := (len(combined) / width) * width

	remainder := combined[processable:]
	if len(remainder) > 0 {
		a.carry = append(a.carry[:0], remainder...)
	} else {
		a.carry = a.carry[:0]
	}

	if processable == 0 {
		return nil
	}

	return decode(combined[:processable], a.encoding)
}

// Pending returns the number of carried-over bytes awaiting completion
func (a *Assembler) Pending() int {
	return len(a.carry)
}

// Reset discards any carried-over bytes. Called at end-of-stream: a
// dangling partial sample can never be decoded and must not reach the
// scheduler.
func (a *Assembler) Reset() {
	a.carry = a.carry[:0]
}

// decode converts whole-sample bytes to normalized float32 samples
func decode(data []byte, encoding audio.Encoding) []float32 {
	if encoding == audio.Float32LE {
		samples := make([]float32, len(data)/4)
		for i := range samples {
			samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		}
		return samples
	}

	samples := make([]float32, len(data)/2)
	for i := range samples {
		samples[i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(data[i*2:])))
	}
	return samples
}
