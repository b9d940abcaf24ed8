package stt

import (
	"context"
	"fmt"
	"os"
	"strings"

	api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest"
	dgresp "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
	"github.com/rs/zerolog"

	"github.com/stfuassistant/stfu/internal/observability"
)

// prerecordedAPI is the part of the Deepgram REST client used here
type prerecordedAPI interface {
	FromFile(ctx context.Context, file string, req *interfaces.PreRecordedTranscriptionOptions) (*dgresp.PreRecordedResponse, error)
}

// DeepgramConfig configures the Deepgram prerecorded client
type DeepgramConfig struct {
	APIKey   string
	Model    string
	Language string
}

// DeepgramClient implements Transcriber using Deepgram's prerecorded API
type DeepgramClient struct {
	config DeepgramConfig
	client prerecordedAPI
	logger zerolog.Logger
}

// NewDeepgramClient creates a new Deepgram prerecorded client
func NewDeepgramClient(cfg DeepgramConfig, logger zerolog.Logger) *DeepgramClient {
	c := listenClient.NewREST(cfg.APIKey, &interfaces.ClientOptions{})
	return newDeepgramClient(cfg, api.New(c), logger)
}

func newDeepgramClient(cfg DeepgramConfig, client prerecordedAPI, logger zerolog.Logger) *DeepgramClient {
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	return &DeepgramClient{
		config: cfg,
		client: client,
		logger: observability.Component(logger, "deepgram_stt"),
	}
}

// Name returns the provider name
func (d *DeepgramClient) Name() string {
	return "deepgram"
}

// Transcribe sends one audio file to Deepgram
func (d *DeepgramClient) Transcribe(ctx context.Context, audioPath string) (*Transcription, error) {
	info, err := os.Stat(audioPath)
	if err != nil {
		return nil, fmt.Errorf("stat audio file: %w", err)
	}
	if info.Size() == 0 {
		return nil, ErrEmptyAudio
	}

	options := &interfaces.PreRecordedTranscriptionOptions{
		Model:       d.config.Model,
		Language:    d.config.Language,
		Punctuate:   true,
		SmartFormat: true,
	}

	res, err := d.client.FromFile(ctx, audioPath, options)
	if err != nil {
		return nil, fmt.Errorf("deepgram transcription failed: %w", err)
	}

	observability.RecordAudioBytes("uploaded", info.Size())
	return d.parseResponse(res)
}

// parseResponse takes the first alternative of the first channel
func (d *DeepgramClient) parseResponse(res *dgresp.PreRecordedResponse) (*Transcription, error) {
	out := &Transcription{
		LanguageCode: d.config.Language,
		Provider:     d.Name(),
	}
	if res == nil || res.Results == nil || len(res.Results.Channels) == 0 {
		return out, nil
	}
	channel := res.Results.Channels[0]
	if channel.DetectedLanguage != "" {
		out.LanguageCode = channel.DetectedLanguage
		out.LanguageProbability = channel.LanguageConfidence
	}
	if len(channel.Alternatives) == 0 {
		return out, nil
	}

	alt := channel.Alternatives[0]
	out.Text = strings.TrimSpace(alt.Transcript)
	d.logger.Debug().Float64("confidence", alt.Confidence).Msg("Deepgram transcription received")
	return out, nil
}
