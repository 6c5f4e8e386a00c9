// ABOUTME: CosyVoice TTS backend over the DashScope duplex websocket
// ABOUTME: Text frames carry task events, binary frames carry raw PCM
package tts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/voxchat/voxchat-go/pkg/audio"
	"golang.org/x/sync/errgroup"
)

const (
	cosyVoiceURL        = "wss://dashscope.aliyuncs.com/api-ws/v1/inference/"
	cosyDefaultModel    = "cosyvoice-v2"
	cosyDefaultVoice    = "longxiaochun_v2"
	cosySampleRate      = 24000
	cosyStartTimeout    = 10 * time.Second
	cosyHandshakeWindow = 5 * time.Second
)

const (
	eventTaskStarted     = "task-started"
	eventTaskFinished    = "task-finished"
	eventTaskFailed      = "task-failed"
	eventResultGenerated = "result-generated"
)

// wsHeader is the common header of every DashScope websocket text frame
type wsHeader struct {
	Action       string `json:"action,omitempty"`
	TaskID       string `json:"task_id"`
	Streaming    string `json:"streaming,omitempty"`
	Event        string `json:"event,omitempty"`
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type wsParameters struct {
	TextType   string `json:"text_type"`
	Voice      string `json:"voice"`
	Format     string `json:"format"`
	SampleRate int    `json:"sample_rate"`
}

type wsInput struct {
	Text string `json:"text,omitempty"`
}

type wsPayload struct {
	TaskGroup  string        `json:"task_group,omitempty"`
	Task       string        `json:"task,omitempty"`
	Function   string        `json:"function,omitempty"`
	Model      string        `json:"model,omitempty"`
	Parameters *wsParameters `json:"parameters,omitempty"`
	Input      *wsInput      `json:"input,omitempty"`
}

type wsMessage struct {
	Header  wsHeader  `json:"header"`
	Payload wsPayload `json:"payload"`
}

// CosyVoice synthesizes speech through the DashScope streaming API
type CosyVoice struct {
	url    string
	apiKey string
	model  string
	voice  string
	format audio.Format
	dialer *websocket.Dialer
}

// NewCosyVoice creates a CosyVoice synthesizer
func NewCosyVoice(cfg Config) (*CosyVoice, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("cosyvoice: api key is required")
	}

	c := &CosyVoice{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		model:  cfg.Model,
		voice:  cfg.Voice,
		format: audio.Format{SampleRate: cfg.SampleRate, Encoding: audio.Int16LE},
		dialer: &websocket.Dialer{HandshakeTimeout: cosyHandshakeWindow},
	}
	if c.url == "" {
		c.url = cosyVoiceURL
	}
	if c.model == "" {
		c.model = cosyDefaultModel
	}
	if c.voice == "" {
		c.voice = cosyDefaultVoice
	}
	if c.format.SampleRate == 0 {
		c.format.SampleRate = cosySampleRate
	}

	return c, nil
}

// Synthesize opens a websocket session and returns once the task has
// started and all text is submitted; audio arrives through the stream.
func (c *CosyVoice) Synthesize(ctx context.Context, req Request) (Stream, error) {
	header := http.Header{}
	header.Set("Authorization", "bearer "+c.apiKey)

	conn, _, err := c.dialer.DialContext(ctx, c.url, header)
	if err != nil {
		return nil, fmt.Errorf("cosyvoice dial failed: %w", err)
	}

	taskID := uuid.NewString()
	voice := req.Voice
	if voice == "" {
		voice = c.voice
	}

	s := &cosyStream{
		conn:    conn,
		format:  c.format,
		chunks:  make(chan []byte, 64),
		started: make(chan struct{}),
		failed:  make(chan error, 1),
		done:    make(chan struct{}),
	}
	s.group.Go(s.readLoop)

	start := wsMessage{
		Header: wsHeader{Action: "run-task", TaskID: taskID, Streaming: "duplex"},
		Payload: wsPayload{
			TaskGroup: "audio",
			Task:      "tts",
			Function:  "SpeechSynthesizer",
			Model:     c.model,
			Parameters: &wsParameters{
				TextType:   "PlainText",
				Voice:      voice,
				Format:     "pcm",
				SampleRate: c.format.SampleRate,
			},
			Input: &wsInput{},
		},
	}
	if err := s.send(start); err != nil {
		s.Close()
		return nil, fmt.Errorf("cosyvoice start failed: %w", err)
	}

	select {
	case <-s.started:
	case err := <-s.failed:
		s.Close()
		return nil, fmt.Errorf("cosyvoice task failed: %w", err)
	case <-ctx.Done():
		s.Close()
		return nil, ctx.Err()
	case <-time.After(cosyStartTimeout):
		s.Close()
		return nil, errors.New("cosyvoice: task start timeout")
	}

	cont := wsMessage{
		Header:  wsHeader{Action: "continue-task", TaskID: taskID, Streaming: "duplex"},
		Payload: wsPayload{Input: &wsInput{Text: req.Text}},
	}
	if err := s.send(cont); err != nil {
		s.Close()
		return nil, fmt.Errorf("cosyvoice submit failed: %w", err)
	}

	finish := wsMessage{
		Header:  wsHeader{Action: "finish-task", TaskID: taskID, Streaming: "duplex"},
		Payload: wsPayload{Input: &wsInput{}},
	}
	if err := s.send(finish); err != nil {
		s.Close()
		return nil, fmt.Errorf("cosyvoice finish failed: %w", err)
	}

	return s, nil
}

// cosyStream adapts the websocket session to the Stream interface
type cosyStream struct {
	conn      *websocket.Conn
	format    audio.Format
	chunks    chan []byte
	started   chan struct{}
	failed    chan error
	done      chan struct{}
	group     errgroup.Group
	sendMu    sync.Mutex
	closeOnce sync.Once
}

func (s *cosyStream) Format() audio.Format {
	return s.format
}

// Next returns the next raw PCM chunk, or io.EOF once the task finishes
func (s *cosyStream) Next(ctx context.Context) ([]byte, error) {
	select {
	case chunk, ok := <-s.chunks:
		if !ok {
			// A failure may have closed the channel; report it over EOF
			select {
			case err := <-s.failed:
				return nil, err
			default:
				return nil, io.EOF
			}
		}
		return chunk, nil
	case err := <-s.failed:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close tears down the websocket, waits for the read loop to exit, and
// reports any stream failure it saw. Safe to call more than once.
func (s *cosyStream) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
	return s.group.Wait()
}

func (s *cosyStream) send(msg wsMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop routes text frames to events and binary frames to audio chunks
func (s *cosyStream) readLoop() error {
	defer close(s.chunks)

	startSeen := false
	for {
		messageType, payload, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
				// Torn down by Close, not a stream failure
				return nil
			default:
			}
			return s.fail(fmt.Errorf("cosyvoice read failed: %w", err))
		}

		switch messageType {
		case websocket.TextMessage:
			var msg wsMessage
			if err := json.Unmarshal(payload, &msg); err != nil {
				return s.fail(fmt.Errorf("cosyvoice bad frame: %w", err))
			}

			switch msg.Header.Event {
			case eventTaskStarted:
				if !startSeen {
					startSeen = true
					close(s.started)
				}
			case eventTaskFinished:
				return nil
			case eventTaskFailed:
				return s.fail(fmt.Errorf("%s: %s", msg.Header.ErrorCode, msg.Header.ErrorMessage))
			case eventResultGenerated:
				// Timing metadata only, no audio
			default:
				log.Printf("CosyVoice: unhandled event %q", msg.Header.Event)
			}

		case websocket.BinaryMessage:
			select {
			case s.chunks <- payload:
			case <-s.done:
				return nil
			}
		}
	}
}

// fail records err for both the consumer and the errgroup
func (s *cosyStream) fail(err error) error {
	select {
	case s.failed <- err:
	default:
	}
	return err
}
