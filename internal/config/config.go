package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Mode selects which session driver a binary runs
type Mode int

const (
	// ModePolling records fixed windows and uploads each one for transcription
	ModePolling Mode = iota
	// ModeConversational holds one long-lived agent session with muted playback
	ModeConversational
)

func (m Mode) String() string {
	switch m {
	case ModePolling:
		return "polling"
	case ModeConversational:
		return "conversational"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

const (
	ProviderElevenLabs = "elevenlabs"
	ProviderDeepgram   = "deepgram"
)

// Config holds all configuration for the STFU assistant
type Config struct {
	// ElevenLabs credentials and endpoints
	ElevenLabsAPIKey  string `envconfig:"ELEVENLABS_API_KEY"`
	ElevenLabsAgentID string `envconfig:"ELEVENLABS_AGENT_ID"`
	ElevenLabsBaseURL string `envconfig:"ELEVENLABS_BASE_URL" default:"https://api.elevenlabs.io"`
	ElevenLabsWSURL   string `envconfig:"ELEVENLABS_WS_URL" default:"wss://api.elevenlabs.io"`
	RequiresAuth      bool   `envconfig:"ELEVENLABS_REQUIRES_AUTH" default:"true"` // Use a signed URL for the agent session

	// Speech-to-text configuration
	STTProvider       string `envconfig:"STT_PROVIDER" default:"elevenlabs"` // elevenlabs, deepgram
	STTModelID        string `envconfig:"STT_MODEL_ID" default:"scribe_v1"`
	STTLanguageCode   string `envconfig:"STT_LANGUAGE_CODE" default:"en"`
	STTTimeoutSeconds int    `envconfig:"STT_TIMEOUT" default:"30"`

	// Deepgram prerecorded backend (only used when STT_PROVIDER=deepgram)
	DeepgramAPIKey string `envconfig:"DEEPGRAM_API_KEY"`
	DeepgramModel  string `envconfig:"DEEPGRAM_MODEL" default:"nova-2"`

	// Audio capture configuration
	SampleRate           int     `envconfig:"AUDIO_SAMPLE_RATE" default:"16000"`
	Channels             int     `envconfig:"AUDIO_CHANNELS" default:"1"`
	FramesPerBuffer      int     `envconfig:"AUDIO_FRAMES_PER_BUFFER" default:"4096"`
	RecordSeconds        int     `envconfig:"RECORD_DURATION" default:"3"`
	MinAudioMillis       int     `envconfig:"MIN_AUDIO_MS" default:"1000"`
	SilenceRMSThreshold  float64 `envconfig:"SILENCE_RMS_THRESHOLD" default:"0"` // 0 disables the energy gate
	IterationPauseMillis int     `envconfig:"ITERATION_PAUSE_MS" default:"100"`

	// Variant behaviour
	TranscribeMutedAudio bool `envconfig:"TRANSCRIBE_MUTED_AUDIO" default:"false"`
	LogAgentResponses    bool `envconfig:"LOG_AGENT_RESPONSES" default:"false"`
	LogCorrections       bool `envconfig:"LOG_CORRECTIONS" default:"false"`

	// Speech log output
	LogDir          string `envconfig:"SPEECH_LOG_DIR" default:"."`
	LogEntrySpacing bool   `envconfig:"SPEECH_LOG_SPACING" default:"false"`

	// Session lifecycle
	SessionEndTimeoutSeconds int `envconfig:"SESSION_END_TIMEOUT" default:"5"`

	// Resilience configuration
	RetryMaxAttempts           int `envconfig:"RETRY_MAX_ATTEMPTS" default:"1"`             // 1 disables retries
	RetryInitialBackoff        int `envconfig:"RETRY_INITIAL_BACKOFF" default:"250"`        // milliseconds
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`   // Failures before opening circuit
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery
	ReconnectMaxAttempts       int `envconfig:"RECONNECT_MAX_ATTEMPTS" default:"3"`
	ReconnectBackoff           int `envconfig:"RECONNECT_BACKOFF" default:"1000"` // milliseconds

	// Telegram alerts for high-risk analysis text
	TelegramBotToken   string  `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramUserID     string  `envconfig:"TELEGRAM_USER_ID"`
	TelegramBaseURL    string  `envconfig:"TELEGRAM_BASE_URL" default:"https://api.telegram.org"`
	AlertRiskThreshold float64 `envconfig:"ALERT_RISK_THRESHOLD" default:"80"`

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"true"`
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"false"`
	MetricsAddr    string `envconfig:"METRICS_ADDR" default:":9090"`
}

// MissingCredentialError reports a required credential that is absent
type MissingCredentialError struct {
	Name string
	Hint string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("%s not found in .env file", e.Name)
}

// AsMissingCredential unwraps a MissingCredentialError from err
func AsMissingCredential(err error) (*MissingCredentialError, bool) {
	var missing *MissingCredentialError
	if errors.As(err, &missing) {
		return missing, true
	}
	return nil, false
}

// Load reads configuration for the given mode.
// It first attempts to load from .env file if it exists, then from environment
func Load(mode Mode) (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()
	return LoadFromEnv(mode)
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file
func LoadFromEnv(mode Mode) (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the credentials and values the given mode needs
func (c *Config) Validate(mode Mode) error {
	if strings.TrimSpace(c.ElevenLabsAPIKey) == "" {
		return &MissingCredentialError{Name: "ELEVENLABS_API_KEY"}
	}
	if mode == ModeConversational && strings.TrimSpace(c.ElevenLabsAgentID) == "" {
		return &MissingCredentialError{
			Name: "ELEVENLABS_AGENT_ID",
			Hint: "You need to create a Conversational AI agent and add its ID to your .env file",
		}
	}

	switch strings.ToLower(strings.TrimSpace(c.STTProvider)) {
	case ProviderElevenLabs, "":
		c.STTProvider = ProviderElevenLabs
	case ProviderDeepgram:
		c.STTProvider = ProviderDeepgram
		if strings.TrimSpace(c.DeepgramAPIKey) == "" {
			return &MissingCredentialError{Name: "DEEPGRAM_API_KEY"}
		}
	default:
		return fmt.Errorf("unknown STT_PROVIDER %q (want %s or %s)", c.STTProvider, ProviderElevenLabs, ProviderDeepgram)
	}

	if c.SampleRate <= 0 || c.Channels <= 0 || c.FramesPerBuffer <= 0 {
		return fmt.Errorf("audio sample rate, channels and frames per buffer must be positive")
	}
	if c.RecordSeconds <= 0 {
		return fmt.Errorf("RECORD_DURATION must be positive, got %d", c.RecordSeconds)
	}

	return nil
}

// AlertsEnabled reports whether Telegram alerts are configured
func (c *Config) AlertsEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramUserID != ""
}

// RecordWindow returns the duration of one polling window
func (c *Config) RecordWindow() time.Duration {
	return time.Duration(c.RecordSeconds) * time.Second
}

// FramesPerWindow returns how many capture buffers make up one window
func (c *Config) FramesPerWindow() int {
	return int(float64(c.SampleRate) / float64(c.FramesPerBuffer) * float64(c.RecordSeconds))
}

// MinAudioBytes returns the shortest 16-bit PCM payload worth transcribing
func (c *Config) MinAudioBytes() int {
	return c.SampleRate * 2 * c.Channels * c.MinAudioMillis / 1000
}

// IterationPause returns the pause between polling iterations
func (c *Config) IterationPause() time.Duration {
	return time.Duration(c.IterationPauseMillis) * time.Millisecond
}

// STTTimeout returns the per-request transcription timeout
func (c *Config) STTTimeout() time.Duration {
	return time.Duration(c.STTTimeoutSeconds) * time.Second
}

// SessionEndTimeout bounds how long shutdown waits for the agent session to close
func (c *Config) SessionEndTimeout() time.Duration {
	return time.Duration(c.SessionEndTimeoutSeconds) * time.Second
}
