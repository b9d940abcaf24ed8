package stt

import (
	"context"
	"errors"
	"testing"

	dgresp "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	"github.com/rs/zerolog"
)

type fakePrerecorded struct {
	response *dgresp.PreRecordedResponse
	err      error
	options  *interfaces.PreRecordedTranscriptionOptions
	file     string
}

func (f *fakePrerecorded) FromFile(ctx context.Context, file string, req *interfaces.PreRecordedTranscriptionOptions) (*dgresp.PreRecordedResponse, error) {
	f.file = file
	f.options = req
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func responseWith(channels ...dgresp.Channel) *dgresp.PreRecordedResponse {
	return &dgresp.PreRecordedResponse{Results: &dgresp.Result{Channels: channels}}
}

func TestDeepgramClient_Transcribe(t *testing.T) {
	fake := &fakePrerecorded{response: responseWith(dgresp.Channel{
		Alternatives: []dgresp.Alternative{{Transcript: " testing one two ", Confidence: 0.91}},
	})}
	client := newDeepgramClient(DeepgramConfig{Model: "nova-2", Language: "en"}, fake, zerolog.Nop())

	path := writeAudioFile(t, []byte("RIFF"))
	result, err := client.Transcribe(context.Background(), path)
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}

	if result.Text != "testing one two" {
		t.Errorf("Expected trimmed transcript, got %q", result.Text)
	}
	if result.LanguageCode != "en" || result.Provider != "deepgram" {
		t.Errorf("Unexpected result: %+v", result)
	}
	if fake.file != path {
		t.Errorf("Expected file %s, got %s", path, fake.file)
	}
	if fake.options.Model != "nova-2" || !fake.options.Punctuate {
		t.Errorf("Unexpected options: %+v", fake.options)
	}
}

func TestDeepgramClient_NoAlternatives(t *testing.T) {
	tests := []struct {
		name     string
		response *dgresp.PreRecordedResponse
	}{
		{"nil response", nil},
		{"nil results", &dgresp.PreRecordedResponse{RequestID: "req_1"}},
		{"no channels", responseWith()},
		{"no alternatives", responseWith(dgresp.Channel{})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakePrerecorded{response: tt.response}
			client := newDeepgramClient(DeepgramConfig{Language: "en"}, fake, zerolog.Nop())

			result, err := client.Transcribe(context.Background(), writeAudioFile(t, []byte("RIFF")))
			if err != nil {
				t.Fatalf("Transcribe failed: %v", err)
			}
			if result.Text != "" || result.LanguageCode != "en" {
				t.Errorf("Expected empty text in en, got %+v", result)
			}
		})
	}
}

func TestDeepgramClient_DetectedLanguage(t *testing.T) {
	fake := &fakePrerecorded{response: responseWith(dgresp.Channel{
		DetectedLanguage:   "de",
		LanguageConfidence: 0.87,
		Alternatives:       []dgresp.Alternative{{Transcript: "hallo"}},
	})}
	client := newDeepgramClient(DeepgramConfig{Language: "en"}, fake, zerolog.Nop())

	result, err := client.Transcribe(context.Background(), writeAudioFile(t, []byte("RIFF")))
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if result.Text != "hallo" || result.LanguageCode != "de" || result.LanguageProbability != 0.87 {
		t.Errorf("Unexpected result: %+v", result)
	}
}

func TestDeepgramClient_Error(t *testing.T) {
	fake := &fakePrerecorded{err: errors.New("connection reset by peer")}
	client := newDeepgramClient(DeepgramConfig{}, fake, zerolog.Nop())

	_, err := client.Transcribe(context.Background(), writeAudioFile(t, []byte("RIFF")))
	if err == nil {
		t.Fatal("Expected error")
	}
	if !IsRetryable(err) {
		t.Errorf("Expected wrapped network error to be retryable: %v", err)
	}
}

func TestDeepgramClient_EmptyFile(t *testing.T) {
	fake := &fakePrerecorded{}
	client := newDeepgramClient(DeepgramConfig{}, fake, zerolog.Nop())

	_, err := client.Transcribe(context.Background(), writeAudioFile(t, nil))
	if !errors.Is(err, ErrEmptyAudio) {
		t.Errorf("Expected ErrEmptyAudio, got %v", err)
	}
	if fake.file != "" {
		t.Error("Expected no request for an empty file")
	}
}
