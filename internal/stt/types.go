package stt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrEmptyAudio is returned when the audio file to transcribe is empty
var ErrEmptyAudio = errors.New("audio file is empty")

// Transcription is the text recognized in one audio file
type Transcription struct {
	// Text is the transcribed text, possibly empty when no speech was found
	Text string

	// LanguageCode is the detected or requested language
	LanguageCode string

	// LanguageProbability is the detection confidence (0.0 to 1.0) if available
	LanguageProbability float64

	// Provider names the backend that produced the result
	Provider string
}

// Transcriber is the interface for batch speech-to-text backends
type Transcriber interface {
	// Transcribe uploads the audio file at audioPath and returns the recognized text
	Transcribe(ctx context.Context, audioPath string) (*Transcription, error)

	// Name identifies the backend in logs and metrics
	Name() string
}

// APIError is a non-2xx response from a transcription service
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: HTTP %d %s", e.Provider, e.StatusCode, http.StatusText(e.StatusCode))
}

// Temporary reports whether the request may succeed if repeated
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}
