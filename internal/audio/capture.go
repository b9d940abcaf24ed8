package audio

import "errors"

// ErrStreamClosed is returned by Read after a stream has been closed
var ErrStreamClosed = errors.New("audio stream closed")

// Capturer opens microphone streams.
// The portaudio implementation lives in the mic subpackage.
type Capturer interface {
	Open() (Stream, error)
}

// Stream delivers fixed-size buffers of 16-bit PCM samples
type Stream interface {
	// Read blocks until the next buffer is captured.
	// The returned slice is only valid until the next call.
	Read() ([]int16, error)
	Close() error
}
