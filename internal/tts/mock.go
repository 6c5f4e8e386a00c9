// ABOUTME: Mock synthesizer replaying canned PCM payloads
// ABOUTME: Used by tests and offline development
package tts

import (
	"context"
	"io"

	"github.com/voxchat/voxchat-go/pkg/audio"
)

// MockSynthesizer replays a fixed payload split at the given chunk sizes.
// Chunk sizes may be zero or misaligned with sample boundaries, which is
// exactly what a real network delivers.
type MockSynthesizer struct {
	Payload      []byte
	ChunkSizes   []int
	StreamFormat audio.Format
	Err          error
}

// Synthesize returns a stream over the canned payload
func (m *MockSynthesizer) Synthesize(ctx context.Context, req Request) (Stream, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	sizes := m.ChunkSizes
	if len(sizes) == 0 {
		sizes = []int{len(m.Payload)}
	}

	return &mockStream{payload: m.Payload, sizes: sizes, format: m.StreamFormat}, nil
}

type mockStream struct {
	payload []byte
	sizes   []int
	format  audio.Format
	pos     int
	idx     int
}

func (s *mockStream) Format() audio.Format {
	return s.format
}

func (s *mockStream) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.idx >= len(s.sizes) {
		return nil, io.EOF
	}

	n := s.sizes[s.idx]
	s.idx++

	chunk := s.payload[s.pos : s.pos+n]
	s.pos += n
	return chunk, nil
}

func (s *mockStream) Close() error {
	return nil
}
