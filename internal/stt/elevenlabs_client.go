package stt

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/stfuassistant/stfu/internal/observability"
	"github.com/stfuassistant/stfu/internal/resilience"
)

const elevenLabsTranscribePath = "/v1/speech-to-text"

// ElevenLabsConfig configures the ElevenLabs batch transcription client
type ElevenLabsConfig struct {
	APIKey       string
	BaseURL      string
	ModelID      string
	LanguageCode string
	Timeout      time.Duration
}

// ElevenLabsClient implements Transcriber with the ElevenLabs speech-to-text endpoint
type ElevenLabsClient struct {
	config ElevenLabsConfig
	http   *resty.Client
	logger zerolog.Logger
}

type elevenLabsResponse struct {
	Text                string  `json:"text"`
	LanguageCode        string  `json:"language_code"`
	LanguageProbability float64 `json:"language_probability"`
}

// NewElevenLabsClient creates a new ElevenLabs transcription client
func NewElevenLabsClient(cfg ElevenLabsConfig, logger zerolog.Logger) *ElevenLabsClient {
	if cfg.ModelID == "" {
		cfg.ModelID = "scribe_v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("xi-api-key", cfg.APIKey).
		SetHeader("Accept", "application/json").
		SetTimeout(cfg.Timeout)

	return &ElevenLabsClient{
		config: cfg,
		http:   httpClient,
		logger: observability.Component(logger, "elevenlabs_stt"),
	}
}

// Name returns the provider name
func (c *ElevenLabsClient) Name() string {
	return "elevenlabs"
}

// Transcribe uploads one audio file as multipart form data
func (c *ElevenLabsClient) Transcribe(ctx context.Context, audioPath string) (*Transcription, error) {
	info, err := os.Stat(audioPath)
	if err != nil {
		return nil, fmt.Errorf("stat audio file: %w", err)
	}
	if info.Size() == 0 {
		return nil, ErrEmptyAudio
	}

	form := map[string]string{"model_id": c.config.ModelID}
	if c.config.LanguageCode != "" {
		form["language_code"] = c.config.LanguageCode
	}

	var result elevenLabsResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetFile("file", audioPath).
		SetFormData(form).
		SetResult(&result).
		Post(elevenLabsTranscribePath)
	if err != nil {
		err = fmt.Errorf("elevenlabs transcription request failed: %w", err)
		if ctx.Err() != nil {
			return nil, err
		}
		// transport failure without an HTTP response
		return nil, resilience.NewRetryableError(err)
	}

	if resp.IsError() {
		return nil, &APIError{
			Provider:   c.Name(),
			StatusCode: resp.StatusCode(),
			Body:       resp.String(),
		}
	}

	observability.RecordAudioBytes("uploaded", info.Size())
	c.logger.Debug().
		Int64("bytes", info.Size()).
		Dur("latency", resp.Time()).
		Str("language", result.LanguageCode).
		Msg("Transcription received")

	return &Transcription{
		Text:                result.Text,
		LanguageCode:        result.LanguageCode,
		LanguageProbability: result.LanguageProbability,
		Provider:            c.Name(),
	}, nil
}
