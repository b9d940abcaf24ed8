// Package mic captures microphone audio through PortAudio.
package mic

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/stfuassistant/stfu/internal/audio"
)

// Initialize must be called once before opening streams; Terminate releases PortAudio
func Initialize() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio init failed: %w", err)
	}
	return nil
}

// Terminate releases PortAudio
func Terminate() error {
	return portaudio.Terminate()
}

// Capturer opens the default input device
type Capturer struct {
	SampleRate      int
	Channels        int
	FramesPerBuffer int
}

// NewCapturer creates a capturer for the default input device
func NewCapturer(sampleRate, channels, framesPerBuffer int) *Capturer {
	return &Capturer{
		SampleRate:      sampleRate,
		Channels:        channels,
		FramesPerBuffer: framesPerBuffer,
	}
}

// Open starts a new blocking input stream
func (c *Capturer) Open() (audio.Stream, error) {
	in := make([]int16, c.FramesPerBuffer*c.Channels)

	stream, err := portaudio.OpenDefaultStream(c.Channels, 0, float64(c.SampleRate), c.FramesPerBuffer, in)
	if err != nil {
		return nil, fmt.Errorf("open stream failed: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("start stream failed: %w", err)
	}

	return &Stream{stream: stream, in: in}, nil
}

// Stream wraps a started PortAudio input stream
type Stream struct {
	stream *portaudio.Stream
	in     []int16

	mu     sync.Mutex
	closed bool
}

// Read blocks until one buffer has been captured. Close waits for a pending Read.
func (s *Stream) Read() ([]int16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, audio.ErrStreamClosed
	}
	if err := s.stream.Read(); err != nil {
		return nil, err
	}
	return s.in, nil
}

// Close stops and closes the stream. Safe to call more than once.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	stopErr := s.stream.Stop()
	if err := s.stream.Close(); err != nil {
		return err
	}
	return stopErr
}

// Open initializes PortAudio and returns a capturer for the default input
// device along with the func that terminates PortAudio again
func Open(sampleRate, channels, framesPerBuffer int) (audio.Capturer, func(), error) {
	if err := Initialize(); err != nil {
		return nil, nil, err
	}
	release := func() {
		Terminate()
	}
	return NewCapturer(sampleRate, channels, framesPerBuffer), release, nil
}
