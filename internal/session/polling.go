// Package session runs the two monitoring modes: fixed recording windows sent
// to batch speech-to-text, and a long-lived muted agent conversation.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stfuassistant/stfu/internal/audio"
	"github.com/stfuassistant/stfu/internal/config"
	"github.com/stfuassistant/stfu/internal/observability"
	"github.com/stfuassistant/stfu/internal/stt"
	"github.com/stfuassistant/stfu/internal/transcript"
)

// Outcome is the result of one recording window
type Outcome int

const (
	OutcomeTranscribed Outcome = iota
	OutcomeSkipped
	OutcomeSilent
	OutcomeFailed
	OutcomeInterrupted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeTranscribed:
		return "transcribed"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeSilent:
		return "silent"
	case OutcomeFailed:
		return "failed"
	case OutcomeInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// PollingConfig sizes the recording windows
type PollingConfig struct {
	SampleRate       int
	Channels         int
	FramesPerWindow  int
	MinAudioBytes    int
	SilenceThreshold float64 // RMS below which a window is silent; 0 disables the gate
	IterationPause   time.Duration
	TempDir          string
	ServiceName      string // shown in console messages
}

// PollingConfigFrom derives the window settings from cfg
func PollingConfigFrom(cfg *config.Config) PollingConfig {
	return PollingConfig{
		SampleRate:       cfg.SampleRate,
		Channels:         cfg.Channels,
		FramesPerWindow:  cfg.FramesPerWindow(),
		MinAudioBytes:    cfg.MinAudioBytes(),
		SilenceThreshold: cfg.SilenceRMSThreshold,
		IterationPause:   cfg.IterationPause(),
		ServiceName:      serviceName(cfg.STTProvider),
	}
}

func serviceName(provider string) string {
	switch provider {
	case config.ProviderDeepgram:
		return "Deepgram"
	default:
		return "ElevenLabs"
	}
}

// PollingDriver records a window, transcribes it and repeats until cancelled.
// Each iteration is strictly sequential.
type PollingDriver struct {
	cfg         PollingConfig
	capturer    audio.Capturer
	transcriber stt.Transcriber
	log         *transcript.Logger
	metrics     *observability.RunMetrics
	out         io.Writer
	logger      zerolog.Logger
}

// NewPollingDriver creates a polling driver writing console output to out
func NewPollingDriver(cfg PollingConfig, capturer audio.Capturer, transcriber stt.Transcriber, log *transcript.Logger, metrics *observability.RunMetrics, out io.Writer, logger zerolog.Logger) *PollingDriver {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "ElevenLabs"
	}
	if metrics == nil {
		metrics = observability.NewRunMetrics(config.ModePolling.String())
	}
	return &PollingDriver{
		cfg:         cfg,
		capturer:    capturer,
		transcriber: transcriber,
		log:         log,
		metrics:     metrics,
		out:         out,
		logger:      observability.Component(logger, "polling"),
	}
}

// Run processes windows until ctx is cancelled. Interruption is a normal stop.
func (d *PollingDriver) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		outcome, err := d.ProcessWindow(ctx)
		if outcome == OutcomeInterrupted || ctx.Err() != nil {
			return nil
		}
		if err != nil {
			d.logger.Debug().Err(err).Str("outcome", outcome.String()).Msg("Window failed")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(d.cfg.IterationPause):
		}
	}
}

// ProcessWindow records and transcribes one window. The returned error
// explains an OutcomeFailed or OutcomeInterrupted result.
func (d *PollingDriver) ProcessWindow(ctx context.Context) (outcome Outcome, err error) {
	defer func() {
		d.metrics.RecordWindow(outcome.String())
	}()

	samples, frames, err := d.record(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return OutcomeInterrupted, ctx.Err()
		}
		fmt.Fprintf(d.out, "❌ Error in speech processing: %v\n", err)
		d.metrics.RecordError("audio_open", "polling")
		return OutcomeFailed, err
	}

	if frames == 0 || frames < d.cfg.FramesPerWindow/2 {
		fmt.Fprintln(d.out, "🔇 Insufficient audio data, skipping...")
		return OutcomeSkipped, nil
	}
	if len(samples)*2 < d.cfg.MinAudioBytes {
		fmt.Fprintln(d.out, "🔇 Audio segment too short, skipping...")
		return OutcomeSkipped, nil
	}
	if d.cfg.SilenceThreshold > 0 {
		vad := audio.NewVADDetector(audio.VADConfigFor(d.cfg.SilenceThreshold, d.cfg.SampleRate))
		if !vad.ContainsSpeech(samples) {
			fmt.Fprintln(d.out, "🔇 Silence detected, skipping...")
			return OutcomeSilent, nil
		}
	}

	path, err := audio.CreateTempWAV(d.cfg.TempDir, samples, d.cfg.SampleRate, d.cfg.Channels)
	if err != nil {
		fmt.Fprintf(d.out, "❌ Error in speech processing: %v\n", err)
		return OutcomeFailed, err
	}
	defer os.Remove(path)

	if _, err := audio.VerifyWAV(path); err != nil {
		fmt.Fprintln(d.out, "❌ Generated WAV file is empty")
		return OutcomeFailed, err
	}
	d.logger.Debug().
		Int("frames", frames).
		Int("duration_ms", audio.DurationMillis(samples, d.cfg.SampleRate, d.cfg.Channels)).
		Msg("Window captured")

	return d.transcribe(ctx, path)
}

// record opens a stream and reads one window of buffers. Read errors are
// reported and skipped; cancellation discards the window.
func (d *PollingDriver) record(ctx context.Context) ([]int16, int, error) {
	stream, err := d.capturer.Open()
	if err != nil {
		return nil, 0, err
	}
	defer stream.Close()

	fmt.Fprintln(d.out, "🎤 Listening...")

	var samples []int16
	frames := 0
	for i := 0; i < d.cfg.FramesPerWindow; i++ {
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}

		buf, err := stream.Read()
		if err != nil {
			if errors.Is(err, audio.ErrStreamClosed) {
				break
			}
			fmt.Fprintf(d.out, "⚠️ Audio input error: %v\n", err)
			d.metrics.RecordError("audio_read", "polling")
			continue
		}
		samples = append(samples, buf...)
		frames++
	}

	if ctx.Err() != nil {
		return nil, 0, ctx.Err()
	}
	d.metrics.RecordAudioBytes("captured", int64(len(samples)*2))
	return samples, frames, nil
}

func (d *PollingDriver) transcribe(ctx context.Context, path string) (Outcome, error) {
	fmt.Fprintf(d.out, "🔄 Converting speech to text with %s...\n", d.cfg.ServiceName)

	result, err := d.transcriber.Transcribe(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return OutcomeInterrupted, ctx.Err()
		}
		fmt.Fprintf(d.out, "❌ %s STT Error: %v\n", d.cfg.ServiceName, err)
		var apiErr *stt.APIError
		if errors.As(err, &apiErr) {
			if apiErr.Body != "" {
				fmt.Fprintf(d.out, "   Response: %s\n", apiErr.Body)
			}
			fmt.Fprintf(d.out, "   Status Code: %d\n", apiErr.StatusCode)
		}
		d.metrics.RecordError("transcription", d.transcriber.Name())
		return OutcomeFailed, err
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		fmt.Fprintln(d.out, "🔇 No speech detected in this segment")
		return OutcomeSilent, nil
	}

	entry := d.log.Record(transcript.KindUserSpeech, text)
	d.metrics.RecordEntry(transcript.KindUserSpeech.String())
	fmt.Fprintf(d.out, "📝 [%s] You said: \"%s\"\n", entry.Clock(), text)
	d.logger.Debug().Str("provider", result.Provider).Int("chars", len(text)).Msg("Transcribed window")
	return OutcomeTranscribed, nil
}
