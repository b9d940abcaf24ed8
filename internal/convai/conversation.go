package convai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/stfuassistant/stfu/internal/audio"
	"github.com/stfuassistant/stfu/internal/observability"
	"github.com/stfuassistant/stfu/internal/resilience"
)

// Config configures a Conversation
type Config struct {
	APIKey       string
	AgentID      string
	BaseURL      string // REST endpoint, used for signed URLs
	WSURL        string // websocket endpoint, used when RequiresAuth is false
	RequiresAuth bool
	HTTPTimeout  time.Duration
	SampleRate   int // rate of the microphone audio sent to the agent
	Reconnect    *resilience.ReconnectConfig
}

type outputItem struct {
	pcm       []int16
	rate      int
	interrupt bool
}

// Conversation is one agent session over a websocket.
//
// Three goroutines run after Start: the read loop decodes server messages,
// the output loop feeds agent audio to the sink one buffer at a time and the
// microphone pump streams captured audio to the agent. Events is closed when
// the read loop exits.
type Conversation struct {
	cfg      Config
	capturer audio.Capturer
	sink     audio.Sink
	http     *resty.Client
	dialer   *websocket.Dialer
	logger   zerolog.Logger

	conn    *websocket.Conn
	stream  audio.Stream
	writeMu sync.Mutex

	events     chan Event
	output     chan outputItem
	done       chan struct{} // read loop exited
	outputDone chan struct{}
	micDone    chan struct{}
	stopMic    chan struct{}
	closing    chan struct{}

	mu             sync.Mutex
	started        bool
	ending         bool
	conversationID string
	format         audio.Format

	endOnce   sync.Once
	closeOnce sync.Once
	closeErr  error
}

// NewConversation creates a conversation that captures from capturer and
// plays agent audio into sink
func NewConversation(cfg Config, capturer audio.Capturer, sink audio.Sink, logger zerolog.Logger) (*Conversation, error) {
	if strings.TrimSpace(cfg.AgentID) == "" {
		return nil, errors.New("agent id is required")
	}
	if capturer == nil || sink == nil {
		return nil, errors.New("capturer and sink are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.elevenlabs.io"
	}
	if cfg.WSURL == "" {
		cfg.WSURL = "wss://api.elevenlabs.io"
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = cfg.HTTPTimeout

	return &Conversation{
		cfg:      cfg,
		capturer: capturer,
		sink:     sink,
		http: resty.New().
			SetBaseURL(cfg.BaseURL).
			SetHeader("xi-api-key", cfg.APIKey).
			SetTimeout(cfg.HTTPTimeout),
		dialer:     &dialer,
		logger:     observability.Component(logger, "convai"),
		events:     make(chan Event, 64),
		output:     make(chan outputItem, 256),
		done:       make(chan struct{}),
		outputDone: make(chan struct{}),
		micDone:    make(chan struct{}),
		stopMic:    make(chan struct{}),
		closing:    make(chan struct{}),
		format:     audio.DefaultAgentFormat,
	}, nil
}

// Events returns the session's event stream
func (c *Conversation) Events() <-chan Event {
	return c.events
}

// ConversationID returns the id assigned by the service, or "" before the
// session metadata arrives
func (c *Conversation) ConversationID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conversationID
}

// Start connects to the agent and begins streaming
func (c *Conversation) Start(ctx context.Context) error {
	select {
	case <-c.closing:
		return ErrSessionClosed
	default:
	}

	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return errors.New("conversation already started")
	}
	c.mu.Unlock()

	endpoint, err := c.sessionURL(ctx)
	if err != nil {
		return err
	}

	var conn *websocket.Conn
	err = resilience.Reconnect(ctx, func() error {
		ws, resp, err := c.dialer.DialContext(ctx, endpoint, nil)
		if err != nil {
			if resp != nil {
				return fmt.Errorf("dial agent websocket: HTTP %d: %w", resp.StatusCode, err)
			}
			return fmt.Errorf("dial agent websocket: %w", err)
		}
		conn = ws
		return nil
	}, c.cfg.Reconnect, c.logger)
	if err != nil {
		return err
	}

	if err := conn.WriteJSON(initiationMessage{Type: "conversation_initiation_client_data"}); err != nil {
		conn.Close()
		return fmt.Errorf("send initiation: %w", err)
	}

	stream, err := c.capturer.Open()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open microphone: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.stream = stream
	c.started = true
	c.mu.Unlock()

	c.logger.Info().Str("agent_id", c.cfg.AgentID).Msg("Agent session connected")

	go c.readLoop()
	go c.outputLoop()
	go c.micPump(stream)
	return nil
}

// sessionURL resolves the websocket endpoint, fetching a signed URL when the
// agent requires authentication
func (c *Conversation) sessionURL(ctx context.Context) (string, error) {
	if !c.cfg.RequiresAuth {
		return fmt.Sprintf("%s/v1/convai/conversation?agent_id=%s",
			strings.TrimRight(c.cfg.WSURL, "/"), url.QueryEscape(c.cfg.AgentID)), nil
	}

	var result signedURLResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("agent_id", c.cfg.AgentID).
		SetResult(&result).
		Get("/v1/convai/conversation/get_signed_url")
	if err != nil {
		return "", fmt.Errorf("get signed url: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("get signed url: HTTP %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	if result.SignedURL == "" {
		return "", errors.New("get signed url: empty signed_url in response")
	}
	return result.SignedURL, nil
}

func (c *Conversation) readLoop() {
	defer func() {
		close(c.output)
		close(c.events)
		close(c.done)
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to parse agent message")
			continue
		}
		c.handleMessage(&msg)
	}
}

func (c *Conversation) handleReadError(err error) {
	c.mu.Lock()
	ending := c.ending
	c.mu.Unlock()

	select {
	case <-c.closing:
		return
	default:
	}

	if ending || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		c.logger.Debug().Err(err).Msg("Agent session closed")
		return
	}

	c.logger.Warn().Err(err).Msg("Agent websocket read error")
	c.emit(Event{Kind: EventError, Err: fmt.Errorf("agent session: %w", err)})
}

func (c *Conversation) handleMessage(msg *inboundMessage) {
	switch msg.Type {
	case typeInitiationMetadata:
		if msg.InitiationMetadata == nil {
			return
		}
		meta := msg.InitiationMetadata
		format, err := audio.ParseFormat(meta.AgentOutputAudioFormat)
		if err != nil {
			c.logger.Warn().Err(err).Str("format", meta.AgentOutputAudioFormat).Msg("Unsupported agent audio format, assuming default")
			format = audio.DefaultAgentFormat
		}
		c.mu.Lock()
		c.conversationID = meta.ConversationID
		c.format = format
		c.mu.Unlock()

		c.logger.Info().
			Str("conversation_id", meta.ConversationID).
			Str("agent_format", format.String()).
			Msg("Conversation started")
		c.emit(Event{Kind: EventConversationStarted, ConversationID: meta.ConversationID})

	case typeUserTranscript:
		if msg.UserTranscription == nil {
			return
		}
		c.emit(Event{Kind: EventUserTranscript, Text: msg.UserTranscription.UserTranscript})

	case typeAgentResponse:
		if msg.AgentResponse == nil {
			return
		}
		c.emit(Event{Kind: EventAgentResponse, Text: msg.AgentResponse.AgentResponse})

	case typeAgentResponseCorrected:
		if msg.Correction == nil {
			return
		}
		c.emit(Event{
			Kind:     EventAgentResponseCorrection,
			Text:     msg.Correction.CorrectedAgentResponse,
			Original: msg.Correction.OriginalAgentResponse,
		})

	case typeAudio:
		if msg.Audio != nil {
			c.handleAudio(msg.Audio)
		}

	case typeInterruption:
		c.enqueue(outputItem{interrupt: true})
		c.emit(Event{Kind: EventInterruption})

	case typePing:
		if msg.Ping != nil {
			c.schedulePong(msg.Ping)
		}

	case typeVADScore, typeTentativeResponse:

	default:
		c.logger.Debug().Str("type", msg.Type).Msg("Ignoring unknown agent message")
	}
}

func (c *Conversation) handleAudio(ev *audioEvent) {
	data, err := base64.StdEncoding.DecodeString(ev.AudioBase64)
	if err != nil {
		c.logger.Warn().Err(err).Int("event_id", ev.EventID).Msg("Failed to decode agent audio")
		return
	}

	c.mu.Lock()
	format := c.format
	c.mu.Unlock()

	pcm, err := format.Decode(data)
	if err != nil {
		c.logger.Warn().Err(err).Int("event_id", ev.EventID).Msg("Failed to decode agent audio")
		return
	}
	observability.RecordAudioBytes("received", int64(len(data)))
	c.enqueue(outputItem{pcm: pcm, rate: format.SampleRate})
}

func (c *Conversation) schedulePong(ev *pingEvent) {
	delay := time.Duration(ev.PingMs) * time.Millisecond
	eventID := ev.EventID
	time.AfterFunc(delay, func() {
		select {
		case <-c.done:
			return
		default:
		}
		if err := c.writeJSON(pongMessage{Type: "pong", EventID: eventID}); err != nil {
			c.logger.Debug().Err(err).Int("event_id", eventID).Msg("Failed to send pong")
		}
	})
}

// emit delivers an event unless the conversation is being closed
func (c *Conversation) emit(ev Event) {
	select {
	case c.events <- ev:
	case <-c.closing:
	}
}

func (c *Conversation) enqueue(item outputItem) {
	select {
	case c.output <- item:
	case <-c.closing:
	}
}

func (c *Conversation) outputLoop() {
	defer close(c.outputDone)
	for item := range c.output {
		if item.interrupt {
			c.sink.Interrupt()
			continue
		}
		c.sink.Output(item.pcm, item.rate)
	}
}

func (c *Conversation) micPump(stream audio.Stream) {
	defer close(c.micDone)
	defer stream.Close()

	for {
		select {
		case <-c.stopMic:
			return
		case <-c.done:
			return
		default:
		}

		samples, err := stream.Read()
		if err != nil {
			if errors.Is(err, audio.ErrStreamClosed) {
				return
			}
			c.logger.Warn().Err(err).Msg("Microphone read error")
			continue
		}
		if len(samples) == 0 {
			continue
		}

		chunk := audio.SamplesToBytes(samples)
		msg := userAudioMessage{UserAudioChunk: base64.StdEncoding.EncodeToString(chunk)}
		if err := c.writeJSON(msg); err != nil {
			c.logger.Debug().Err(err).Msg("Stopping microphone pump")
			return
		}
		observability.RecordAudioBytes("sent", int64(len(chunk)))
	}
}

func (c *Conversation) writeJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

// End asks the service to finish the session. It stops the microphone and
// sends a normal closure; the read loop exits once the service closes too.
func (c *Conversation) End() {
	c.endOnce.Do(func() {
		c.mu.Lock()
		c.ending = true
		started := c.started
		c.mu.Unlock()

		close(c.stopMic)
		if !started {
			return
		}

		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
			c.logger.Debug().Err(err).Msg("Failed to send close frame")
		}
	})
}

// Wait blocks until the session is over or ctx is done and returns the
// conversation id
func (c *Conversation) Wait(ctx context.Context) (string, error) {
	c.mu.Lock()
	started := c.started
	c.mu.Unlock()
	if !started {
		return c.ConversationID(), ErrSessionClosed
	}

	select {
	case <-c.done:
		return c.ConversationID(), nil
	case <-ctx.Done():
		return c.ConversationID(), ctx.Err()
	}
}

// Close tears down the socket, the sink and the microphone stream.
// Safe to call more than once.
func (c *Conversation) Close() error {
	c.closeOnce.Do(func() {
		c.End()
		close(c.closing)

		c.mu.Lock()
		started := c.started
		c.mu.Unlock()

		var errs []error
		if started {
			if err := c.conn.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close websocket: %w", err))
			}
			<-c.done
			<-c.outputDone
			if err := c.stream.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close microphone: %w", err))
			}
			<-c.micDone
		}
		if err := c.sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close sink: %w", err))
		}
		c.closeErr = errors.Join(errs...)
	})
	return c.closeErr
}
