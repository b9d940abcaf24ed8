package stt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/stfuassistant/stfu/internal/config"
	"github.com/stfuassistant/stfu/internal/observability"
	"github.com/stfuassistant/stfu/internal/resilience"
)

// Guarded runs a Transcriber behind a circuit breaker with optional retries
type Guarded struct {
	inner   Transcriber
	breaker *resilience.CircuitBreaker
	retry   *resilience.RetryConfig
	logger  zerolog.Logger
}

// NewGuarded wraps inner. A nil retry config means a single attempt.
func NewGuarded(inner Transcriber, breaker *resilience.CircuitBreaker, retry *resilience.RetryConfig, logger zerolog.Logger) *Guarded {
	if retry == nil {
		retry = &resilience.RetryConfig{MaxAttempts: 1}
	}
	return &Guarded{
		inner:   inner,
		breaker: breaker,
		retry:   retry,
		logger:  observability.Component(logger, "stt"),
	}
}

// Name returns the wrapped provider's name
func (g *Guarded) Name() string {
	return g.inner.Name()
}

// Transcribe calls the wrapped transcriber, retrying transient failures
func (g *Guarded) Transcribe(ctx context.Context, audioPath string) (*Transcription, error) {
	var result *Transcription
	attempt := 0

	err := resilience.Retry(ctx, func() error {
		attempt++
		return g.breaker.Call(func() error {
			start := time.Now()
			r, err := g.inner.Transcribe(ctx, audioPath)
			observability.ObserveSTTRequest(g.inner.Name(), err == nil, time.Since(start))
			if err != nil {
				if attempt < g.retry.MaxAttempts && IsRetryable(err) {
					g.logger.Warn().Err(err).Str("breaker", g.breaker.Name()).Int("attempt", attempt).Msg("Transcription failed, retrying")
				}
				return err
			}
			result = r
			return nil
		})
	}, g.retry, IsRetryable)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// HealthCheck reports unhealthy while the breaker is open
func (g *Guarded) HealthCheck(ctx context.Context) (bool, error) {
	if g.breaker.GetState() == resilience.StateOpen {
		_, requests, failures, _ := g.breaker.GetStats()
		return false, fmt.Errorf("%w: %d of %d requests failed", resilience.ErrCircuitOpen, failures, requests)
	}
	return true, nil
}

// IsRetryable reports whether a transcription error is worth repeating:
// network failures, HTTP 429 and 5xx responses
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, ErrEmptyAudio) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return resilience.IsRetryableNetworkError(err)
}

// New builds the configured transcription backend wrapped in a Guarded
func New(cfg *config.Config, logger zerolog.Logger) (*Guarded, error) {
	var backend Transcriber
	switch cfg.STTProvider {
	case config.ProviderElevenLabs, "":
		backend = NewElevenLabsClient(ElevenLabsConfig{
			APIKey:       cfg.ElevenLabsAPIKey,
			BaseURL:      cfg.ElevenLabsBaseURL,
			ModelID:      cfg.STTModelID,
			LanguageCode: cfg.STTLanguageCode,
			Timeout:      cfg.STTTimeout(),
		}, logger)
	case config.ProviderDeepgram:
		backend = NewDeepgramClient(DeepgramConfig{
			APIKey:   cfg.DeepgramAPIKey,
			Model:    cfg.DeepgramModel,
			Language: cfg.STTLanguageCode,
		}, logger)
	default:
		return nil, errors.New("unknown STT provider: " + cfg.STTProvider)
	}

	breaker := resilience.NewCircuitBreaker(
		backend.Name(),
		cfg.CircuitBreakerMaxFailures,
		time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
	)
	retry := &resilience.RetryConfig{
		MaxAttempts:       cfg.RetryMaxAttempts,
		InitialBackoff:    time.Duration(cfg.RetryInitialBackoff) * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}

	return NewGuarded(backend, breaker, retry, logger), nil
}
