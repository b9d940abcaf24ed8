package audio

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/stfuassistant/stfu/internal/observability"
)

// Sink receives decoded agent audio in place of a speaker.
// Calls come from a single goroutine.
type Sink interface {
	Output(pcm []int16, sampleRate int)
	Interrupt()
	Close() error
}

// DiscardSink mutes the agent by dropping every buffer
type DiscardSink struct {
	mu      sync.Mutex
	samples int64
}

// NewDiscardSink creates a sink that drops all audio
func NewDiscardSink() *DiscardSink {
	return &DiscardSink{}
}

func (s *DiscardSink) Output(pcm []int16, sampleRate int) {
	s.mu.Lock()
	s.samples += int64(len(pcm))
	s.mu.Unlock()
	observability.RecordAudioBytes("discarded", int64(len(pcm)*2))
}

func (s *DiscardSink) Interrupt() {}

func (s *DiscardSink) Close() error { return nil }

// Discarded returns how many samples were dropped
func (s *DiscardSink) Discarded() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.samples
}

// TranscribeFunc turns a WAV file into text
type TranscribeFunc func(ctx context.Context, path string) (string, error)

// TranscribingSinkConfig configures a TranscribingSink
type TranscribingSinkConfig struct {
	SampleRate int           // rate the accumulated audio is stored and encoded at
	Window     time.Duration // audio held before a transcription is forced
	MinSamples int           // shorter buffers are dropped without a request
	Timeout    time.Duration // per-request transcription timeout
	TempDir    string        // "" uses the system temp dir
}

// TranscribingSink mutes playback but transcribes what the agent would have said.
// Audio accumulates until the window fills, the agent is interrupted or the sink closes.
type TranscribingSink struct {
	cfg        TranscribingSinkConfig
	buffer     *RingBuffer
	transcribe TranscribeFunc
	onText     func(string)
	logger     zerolog.Logger

	mu     sync.Mutex
	closed bool
}

// NewTranscribingSink creates a sink that hands agent speech to transcribe and
// passes every non-empty result to onText
func NewTranscribingSink(cfg TranscribingSinkConfig, transcribe TranscribeFunc, onText func(string), logger zerolog.Logger) *TranscribingSink {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultAgentFormat.SampleRate
	}
	if cfg.Window <= 0 {
		cfg.Window = 3 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	capacity := int(float64(cfg.SampleRate) * cfg.Window.Seconds())

	return &TranscribingSink{
		cfg:        cfg,
		buffer:     NewRingBuffer(capacity),
		transcribe: transcribe,
		onText:     onText,
		logger:     observability.Component(logger, "transcribing_sink"),
	}
}

func (s *TranscribingSink) Output(pcm []int16, sampleRate int) {
	if s.isClosed() {
		return
	}

	samples := Resample(pcm, sampleRate, s.cfg.SampleRate)
	for len(samples) > 0 {
		n := s.buffer.Write(samples)
		samples = samples[n:]
		if s.buffer.IsFull() {
			s.flush()
		}
	}
}

// Interrupt transcribes whatever the agent said before it was cut off
func (s *TranscribingSink) Interrupt() {
	if s.isClosed() {
		return
	}
	s.flush()
}

// Close transcribes any remaining audio. Later calls are no-ops.
func (s *TranscribingSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.flush()
	return nil
}

func (s *TranscribingSink) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *TranscribingSink) flush() {
	if s.buffer.IsEmpty() {
		return
	}
	samples := s.buffer.Drain()
	if len(samples) < s.cfg.MinSamples {
		s.logger.Debug().Int("samples", len(samples)).Msg("Agent audio too short, dropped")
		return
	}

	path, err := CreateTempWAV(s.cfg.TempDir, samples, s.cfg.SampleRate, 1)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to write agent audio")
		return
	}
	defer os.Remove(path)

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()

	text, err := s.transcribe(ctx, path)
	if err != nil {
		s.logger.Error().Err(err).Msg("Agent audio transcription failed")
		return
	}

	text = strings.TrimSpace(text)
	if text == "" || s.onText == nil {
		return
	}
	s.onText(text)
}
