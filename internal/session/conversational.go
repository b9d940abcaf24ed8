package session

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/stfuassistant/stfu/internal/config"
	"github.com/stfuassistant/stfu/internal/convai"
	"github.com/stfuassistant/stfu/internal/notify"
	"github.com/stfuassistant/stfu/internal/observability"
	"github.com/stfuassistant/stfu/internal/transcript"
)

// Conversation is an agent session that reports what it hears as events
type Conversation interface {
	Start(ctx context.Context) error
	Events() <-chan convai.Event
	End()
	Wait(ctx context.Context) (string, error)
	Close() error
}

// ConversationalConfig selects which agent events are logged
type ConversationalConfig struct {
	LogAgentResponses bool
	LogCorrections    bool
	AlertThreshold    float64
	EndTimeout        time.Duration
}

// ConversationalConfigFrom derives the driver settings from cfg
func ConversationalConfigFrom(cfg *config.Config) ConversationalConfig {
	return ConversationalConfig{
		LogAgentResponses: cfg.LogAgentResponses,
		LogCorrections:    cfg.LogCorrections,
		AlertThreshold:    cfg.AlertRiskThreshold,
		EndTimeout:        cfg.SessionEndTimeout(),
	}
}

// lockedWriter serialises console lines from the event loop and the
// agent-audio sink, which write from different goroutines
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// ConversationalDriver logs the user's speech from a muted agent session
type ConversationalDriver struct {
	cfg      ConversationalConfig
	conv     Conversation
	log      *transcript.Logger
	notifier notify.Notifier
	metrics  *observability.RunMetrics
	out      io.Writer
	logger   zerolog.Logger
}

// NewConversationalDriver creates a driver for conv. A nil notifier disables alerts.
func NewConversationalDriver(cfg ConversationalConfig, conv Conversation, log *transcript.Logger, notifier notify.Notifier, metrics *observability.RunMetrics, out io.Writer, logger zerolog.Logger) *ConversationalDriver {
	if cfg.EndTimeout <= 0 {
		cfg.EndTimeout = 5 * time.Second
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if metrics == nil {
		metrics = observability.NewRunMetrics(config.ModeConversational.String())
	}
	return &ConversationalDriver{
		cfg:      cfg,
		conv:     conv,
		log:      log,
		notifier: notifier,
		metrics:  metrics,
		out:      &lockedWriter{w: out},
		logger:   observability.Component(logger, "conversational"),
	}
}

// Run holds the session until the service ends it or ctx is cancelled.
// Cleanup errors are logged and never returned.
func (d *ConversationalDriver) Run(ctx context.Context) error {
	defer func() {
		if err := d.conv.Close(); err != nil {
			d.logger.Debug().Err(err).Msg("Error closing conversation")
		}
	}()

	fmt.Fprintln(d.out, "🔄 Starting Conversational AI session...")
	if err := d.conv.Start(ctx); err != nil {
		fmt.Fprintf(d.out, "❌ Error starting Conversational AI: %v\n", err)
		d.metrics.RecordError("session_start", "conversational")
		return err
	}

	events := d.conv.Events()
	interrupted := false

loop:
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				break loop
			}
			d.handle(ctx, ev)
		case <-ctx.Done():
			interrupted = true
			break loop
		}
	}

	if interrupted {
		fmt.Fprintln(d.out, "\n🛑 Received stop signal...")
		d.conv.End()
		d.drain(events)
	}

	waitCtx, cancel := context.WithTimeout(context.Background(), d.cfg.EndTimeout)
	defer cancel()
	id, err := d.conv.Wait(waitCtx)
	if err != nil {
		d.logger.Debug().Err(err).Msg("Conversation did not end cleanly")
	}
	if id != "" {
		fmt.Fprintf(d.out, "\n📋 Conversation ID: %s\n", id)
	}
	return nil
}

// drain handles events still in flight after End until the stream closes or
// the end timeout passes
func (d *ConversationalDriver) drain(events <-chan convai.Event) {
	timeout := time.NewTimer(d.cfg.EndTimeout)
	defer timeout.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			d.handle(context.Background(), ev)
		case <-timeout.C:
			d.logger.Warn().Dur("timeout", d.cfg.EndTimeout).Msg("Timed out waiting for session to end")
			return
		}
	}
}

func (d *ConversationalDriver) handle(ctx context.Context, ev convai.Event) {
	d.metrics.RecordEvent(ev.Kind.String())

	switch ev.Kind {
	case convai.EventConversationStarted:
		d.logger.Debug().Str("conversation_id", ev.ConversationID).Msg("Conversation started")
		fmt.Fprintf(d.out, "🎙️ Conversation started: %s\n", ev.ConversationID)

	case convai.EventUserTranscript:
		d.recordUserSpeech(ev.Text)

	case convai.EventAgentResponse:
		if d.cfg.LogAgentResponses {
			d.RecordAnalysis(ctx, ev.Text)
		}

	case convai.EventAgentResponseCorrection:
		if d.cfg.LogCorrections {
			d.log.RecordCorrection(ev.Original, ev.Text)
			d.metrics.RecordEntry(transcript.KindCorrection.String())
		}

	case convai.EventInterruption:
		d.logger.Debug().Msg("Agent interrupted")

	case convai.EventError:
		fmt.Fprintf(d.out, "❌ %v\n", ev.Err)
		d.metrics.RecordError("session", "conversational")
	}
}

func (d *ConversationalDriver) recordUserSpeech(text string) {
	if text == "" {
		return
	}
	entry := d.log.Record(transcript.KindUserSpeech, text)
	d.metrics.RecordEntry(transcript.KindUserSpeech.String())
	fmt.Fprintf(d.out, "📝 [%s] You said: \"%s\"\n", entry.Clock(), text)
}

// RecordAnalysis logs agent analysis text and alerts when its risk reaches
// the threshold. Muted-audio transcription feeds this from the sink goroutine.
func (d *ConversationalDriver) RecordAnalysis(ctx context.Context, text string) {
	analysis := notify.ParseAnalysis(text, d.cfg.AlertThreshold)
	if analysis.Message == "" {
		return
	}

	entry := d.log.Record(transcript.KindAnalysis, analysis.Message)
	d.metrics.RecordEntry(transcript.KindAnalysis.String())
	if analysis.HasRisk {
		fmt.Fprintf(d.out, "🧠 [%s] Analysis (risk %.0f): %s\n", entry.Clock(), analysis.Risk, analysis.Message)
	} else {
		fmt.Fprintf(d.out, "🧠 [%s] Analysis: %s\n", entry.Clock(), analysis.Message)
	}

	if !analysis.Critical {
		return
	}
	if err := d.notifier.Notify(ctx, analysis.Message); err != nil {
		d.logger.Warn().Err(err).Msg("Failed to send alert")
		d.metrics.RecordAlert(false)
		return
	}
	d.metrics.RecordAlert(true)
}
