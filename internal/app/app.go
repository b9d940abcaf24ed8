// Package app wires configuration, transcription, the speech log and a
// session driver into one monitoring run. The cmd binaries only add a
// signal-aware context and the microphone.
package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/stfuassistant/stfu/internal/audio"
	"github.com/stfuassistant/stfu/internal/config"
	"github.com/stfuassistant/stfu/internal/convai"
	"github.com/stfuassistant/stfu/internal/notify"
	"github.com/stfuassistant/stfu/internal/observability"
	"github.com/stfuassistant/stfu/internal/resilience"
	"github.com/stfuassistant/stfu/internal/session"
	"github.com/stfuassistant/stfu/internal/stt"
	"github.com/stfuassistant/stfu/internal/transcript"
)

// CapturerFactory opens the audio input. The returned release func is
// called once the run is over.
type CapturerFactory func(sampleRate, channels, framesPerBuffer int) (audio.Capturer, func(), error)

// Deps are the pieces a binary provides. LoadConfig defaults to config.Load.
type Deps struct {
	NewCapturer CapturerFactory
	LoadConfig  func(mode config.Mode) (*config.Config, error)
}

// Run executes one monitoring session and returns the process exit code.
// Console output goes to out; fatal setup errors go to errOut as well.
func Run(ctx context.Context, mode config.Mode, deps Deps, out, errOut io.Writer) int {
	load := deps.LoadConfig
	if load == nil {
		load = config.Load
	}

	if mode == config.ModeConversational {
		printSetupHelp(out)
	}

	cfg, err := load(mode)
	if err != nil {
		printConfigError(out, mode, err)
		return 1
	}

	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.WithRunID("").With().Str("mode", mode.String()).Logger()

	transcriber, err := stt.New(cfg, logger)
	if err != nil {
		fmt.Fprintf(errOut, "❌ Error: %v\n", err)
		return 1
	}

	if deps.NewCapturer == nil {
		fmt.Fprintln(errOut, "❌ Error: no audio input configured")
		return 1
	}
	capturer, release, err := deps.NewCapturer(cfg.SampleRate, cfg.Channels, cfg.FramesPerBuffer)
	if err != nil {
		fmt.Fprintf(out, "⚠️ Audio input error: %v\n", err)
		return 1
	}
	if release != nil {
		defer release()
	}

	if cfg.MetricsEnabled {
		checks := map[string]observability.HealthCheckFunc{"stt": transcriber.HealthCheck}
		observability.StartMetricsServer(ctx, cfg.MetricsAddr, mode.String(), checks, logger)
	}

	metrics := observability.NewRunMetrics(mode.String())
	metrics.RecordSessionStart()
	defer metrics.RecordSessionEnd()

	logger.Info().
		Str("stt_provider", transcriber.Name()).
		Str("log_dir", cfg.LogDir).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("STFU assistant starting")

	speechLog := transcript.NewLogger(logOptions(mode, cfg, out))

	switch mode {
	case config.ModePolling:
		runPolling(ctx, cfg, capturer, transcriber, speechLog, metrics, out, logger)
	case config.ModeConversational:
		runConversational(ctx, cfg, capturer, transcriber, speechLog, metrics, out, logger)
	}

	path, err := speechLog.Flush()
	if err != nil {
		fmt.Fprintf(errOut, "❌ Error saving speech log: %v\n", err)
		logger.Error().Err(err).Msg("Failed to save speech log")
		return 1
	}
	logger.Info().Int("entries", speechLog.Len()).Str("path", path).Msg("STFU assistant stopped")
	return 0
}

func logOptions(mode config.Mode, cfg *config.Config, out io.Writer) transcript.Options {
	var opts transcript.Options
	if mode == config.ModeConversational {
		opts = transcript.ConversationalOptions(cfg.LogDir)
	} else {
		opts = transcript.PollingOptions(cfg.LogDir)
	}
	opts.Spacing = cfg.LogEntrySpacing
	opts.Out = out
	return opts
}

func runPolling(ctx context.Context, cfg *config.Config, capturer audio.Capturer, transcriber stt.Transcriber, speechLog *transcript.Logger, metrics *observability.RunMetrics, out io.Writer, logger zerolog.Logger) {
	fmt.Fprintln(out, "🛡️ STFU Assistant - ElevenLabs Real-time STT")
	fmt.Fprintln(out, "Using ONLY ElevenLabs Speech-to-Text API")
	fmt.Fprintln(out, "⚠️  ElevenLabs STT requires file uploads, optimized for best real-time performance")
	fmt.Fprintln(out, "\n🤖 Hello! I am ready to listen and log everything you say.")
	fmt.Fprintln(out, "🎤 Starting ElevenLabs STT monitoring...")
	fmt.Fprintln(out, "🗣️  Speak naturally - I'll convert your speech to text")
	fmt.Fprintf(out, "⏱️  Processing in %d-second segments for optimal balance\n", cfg.RecordSeconds)
	fmt.Fprintln(out, "🛑 Press Ctrl+C to stop")
	fmt.Fprintln(out)

	driver := session.NewPollingDriver(session.PollingConfigFrom(cfg), capturer, transcriber, speechLog, metrics, out, logger)
	if err := driver.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("Polling stopped")
	}
	if ctx.Err() != nil {
		fmt.Fprintln(out, "\n🛑 Stopping speech monitoring...")
	}
}

func runConversational(ctx context.Context, cfg *config.Config, capturer audio.Capturer, transcriber stt.Transcriber, speechLog *transcript.Logger, metrics *observability.RunMetrics, out io.Writer, logger zerolog.Logger) {
	fmt.Fprintln(out, "🛡️ STFU Assistant - Conversational AI Speech-to-Text")
	fmt.Fprintln(out, "Using ElevenLabs Conversational AI for real-time transcription")
	fmt.Fprintln(out, "🔇 Agent voice output is muted - only capturing your speech")
	fmt.Fprintln(out, "\n🤖 Hello! I am ready to listen and log everything you say.")
	fmt.Fprintln(out, "🎤 Starting Conversational AI speech monitoring...")
	fmt.Fprintln(out, "🗣️  Speak naturally - I'll capture your speech in real-time")
	fmt.Fprintln(out, "🔇 The AI agent won't speak back - this is speech-to-text only")
	fmt.Fprintln(out, "🛑 Press Ctrl+C to stop")
	fmt.Fprintln(out)

	var driver *session.ConversationalDriver

	var sink audio.Sink
	var discard *audio.DiscardSink
	if cfg.TranscribeMutedAudio {
		sink = audio.NewTranscribingSink(audio.TranscribingSinkConfig{
			SampleRate: cfg.SampleRate,
			Window:     cfg.RecordWindow(),
			MinSamples: cfg.MinAudioBytes() / 2,
			Timeout:    cfg.STTTimeout(),
		}, func(ctx context.Context, path string) (string, error) {
			result, err := transcriber.Transcribe(ctx, path)
			if err != nil {
				return "", err
			}
			return result.Text, nil
		}, func(text string) {
			driver.RecordAnalysis(context.Background(), text)
		}, logger)
	} else {
		discard = audio.NewDiscardSink()
		sink = discard
	}
	fmt.Fprintln(out, "🔇 Initialized silent audio interface - agent voice is muted")

	var notifier notify.Notifier = notify.Nop{}
	if cfg.AlertsEnabled() {
		notifier = notify.NewTelegramNotifier(notify.TelegramConfig{
			BotToken: cfg.TelegramBotToken,
			ChatID:   cfg.TelegramUserID,
			BaseURL:  cfg.TelegramBaseURL,
		}, logger)
	}

	conv, err := convai.NewConversation(convai.Config{
		APIKey:       cfg.ElevenLabsAPIKey,
		AgentID:      cfg.ElevenLabsAgentID,
		BaseURL:      cfg.ElevenLabsBaseURL,
		WSURL:        cfg.ElevenLabsWSURL,
		RequiresAuth: cfg.RequiresAuth,
		HTTPTimeout:  cfg.STTTimeout(),
		SampleRate:   cfg.SampleRate,
		Reconnect:    reconnectConfig(cfg),
	}, capturer, sink, logger)
	if err != nil {
		fmt.Fprintf(out, "❌ Error starting Conversational AI: %v\n", err)
		sink.Close()
		return
	}

	driver = session.NewConversationalDriver(session.ConversationalConfigFrom(cfg), conv, speechLog, notifier, metrics, out, logger)
	if err := driver.Run(ctx); err != nil {
		logger.Debug().Err(err).Msg("Conversation ended with error")
	}
	if discard != nil {
		logger.Info().Int64("discarded_samples", discard.Discarded()).Msg("Muted agent audio dropped")
	}
}

func reconnectConfig(cfg *config.Config) *resilience.ReconnectConfig {
	rc := resilience.DefaultReconnectConfig()
	rc.MaxAttempts = cfg.ReconnectMaxAttempts
	if cfg.ReconnectBackoff > 0 {
		rc.Backoff = time.Duration(cfg.ReconnectBackoff) * time.Millisecond
	}
	return rc
}

func printSetupHelp(out io.Writer) {
	fmt.Fprintln(out, "🔧 Setting up ElevenLabs Conversational AI for speech-to-text...")
	fmt.Fprintln(out, "💡 Make sure you have:")
	fmt.Fprintln(out, "   1. ELEVENLABS_API_KEY in your .env file")
	fmt.Fprintln(out, "   2. ELEVENLABS_AGENT_ID in your .env file (create an agent first)")
	fmt.Fprintln(out)
}

func printConfigError(out io.Writer, mode config.Mode, err error) {
	missing, ok := config.AsMissingCredential(err)
	if !ok {
		fmt.Fprintf(out, "❌ Error: %v\n", err)
		return
	}

	fmt.Fprintf(out, "❌ Error: %s\n", missing.Error())
	if missing.Hint != "" {
		fmt.Fprintf(out, "💡 %s\n", missing.Hint)
	}
	if mode == config.ModeConversational {
		fmt.Fprintln(out, "\n❌ Missing required environment variables")
		fmt.Fprintln(out, "📖 Please check the ElevenLabs Conversational AI documentation:")
		fmt.Fprintln(out, "   https://elevenlabs.io/docs/conversational-ai/quickstart")
	}
}
