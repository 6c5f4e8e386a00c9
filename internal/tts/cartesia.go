// ABOUTME: Cartesia TTS backend over chunked HTTP
// ABOUTME: Streams raw pcm_f32le bytes from the /tts/bytes endpoint
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/voxchat/voxchat-go/pkg/audio"
)

const (
	cartesiaURL          = "https://api.cartesia.ai/tts/bytes"
	cartesiaVersion      = "2024-06-10"
	cartesiaDefaultModel = "sonic-english"
	cartesiaSampleRate   = 44100
	cartesiaReadSize     = 4096
)

// cartesiaRequest is the /tts/bytes request body
type cartesiaRequest struct {
	ModelID      string          `json:"model_id"`
	Transcript   string          `json:"transcript"`
	Voice        cartesiaVoice   `json:"voice"`
	OutputFormat cartesiaOutput  `json:"output_format"`
	Language     string          `json:"language,omitempty"`
}

type cartesiaVoice struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

type cartesiaOutput struct {
	Container  string `json:"container"`
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
}

// Cartesia synthesizes speech through Cartesia's streaming bytes API
type Cartesia struct {
	url    string
	apiKey string
	model  string
	voice  string
	format audio.Format
	client *http.Client
}

// NewCartesia creates a Cartesia synthesizer
func NewCartesia(cfg Config) (*Cartesia, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("cartesia: api key is required")
	}

	c := &Cartesia{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		model:  cfg.Model,
		voice:  cfg.Voice,
		format: audio.Format{SampleRate: cfg.SampleRate, Encoding: audio.Float32LE},
		client: &http.Client{},
	}
	if c.url == "" {
		c.url = cartesiaURL
	}
	if c.model == "" {
		c.model = cartesiaDefaultModel
	}
	if c.format.SampleRate == 0 {
		c.format.SampleRate = cartesiaSampleRate
	}

	return c, nil
}

// Synthesize issues the request and returns once the response headers
// arrive; the body is consumed chunk by chunk through the stream.
func (c *Cartesia) Synthesize(ctx context.Context, req Request) (Stream, error) {
	voice := req.Voice
	if voice == "" {
		voice = c.voice
	}

	body, err := json.Marshal(cartesiaRequest{
		ModelID:    c.model,
		Transcript: req.Text,
		Voice:      cartesiaVoice{Mode: "id", ID: voice},
		OutputFormat: cartesiaOutput{
			Container:  "raw",
			Encoding:   "pcm_f32le",
			SampleRate: c.format.SampleRate,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("cartesia request encode failed: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("cartesia request failed: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-Key", c.apiKey)
	httpReq.Header.Set("Cartesia-Version", cartesiaVersion)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("cartesia request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("cartesia synthesis failed: HTTP %d: %s", resp.StatusCode, detail)
	}

	return &cartesiaStream{body: resp.Body, format: c.format}, nil
}

// cartesiaStream reads the chunked response body
type cartesiaStream struct {
	body   io.ReadCloser
	format audio.Format
}

func (s *cartesiaStream) Format() audio.Format {
	return s.format
}

// Next reads the next chunk of raw PCM from the response body
func (s *cartesiaStream) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	buf := make([]byte, cartesiaReadSize)
	n, err := s.body.Read(buf)
	if n > 0 {
		// Deliver the data first; io.EOF surfaces on the next call
		return buf[:n], nil
	}
	if err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *cartesiaStream) Close() error {
	return s.body.Close()
}
