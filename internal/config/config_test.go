package config

import (
	"errors"
	"os"
	"testing"
	"time"
)

func clearCredentials(t *testing.T) {
	t.Helper()
	t.Setenv("ELEVENLABS_API_KEY", "")
	t.Setenv("ELEVENLABS_AGENT_ID", "")
	t.Setenv("STT_PROVIDER", "")
	t.Setenv("DEEPGRAM_API_KEY", "")
}

func TestLoadFromEnv_Polling(t *testing.T) {
	clearCredentials(t)
	t.Setenv("ELEVENLABS_API_KEY", "test-elevenlabs-key")

	cfg, err := LoadFromEnv(ModePolling)
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}

	if cfg.ElevenLabsAPIKey != "test-elevenlabs-key" {
		t.Errorf("Expected ElevenLabsAPIKey 'test-elevenlabs-key', got '%s'", cfg.ElevenLabsAPIKey)
	}
}

func TestLoadFromEnv_PollingIgnoresAgentID(t *testing.T) {
	clearCredentials(t)
	t.Setenv("ELEVENLABS_API_KEY", "k")

	if _, err := LoadFromEnv(ModePolling); err != nil {
		t.Errorf("Polling mode must not require an agent id, got %v", err)
	}
}

func TestLoadFromEnv_MissingAPIKey(t *testing.T) {
	clearCredentials(t)

	_, err := LoadFromEnv(ModePolling)
	if err == nil {
		t.Fatal("Expected error when ELEVENLABS_API_KEY is missing")
	}

	var missing *MissingCredentialError
	if !errors.As(err, &missing) {
		t.Fatalf("Expected MissingCredentialError, got %T", err)
	}
	if missing.Name != "ELEVENLABS_API_KEY" {
		t.Errorf("Expected missing ELEVENLABS_API_KEY, got %s", missing.Name)
	}
	if err.Error() != "ELEVENLABS_API_KEY not found in .env file" {
		t.Errorf("Unexpected diagnostic: %q", err.Error())
	}
}

func TestLoadFromEnv_WhitespaceAPIKeyIsMissing(t *testing.T) {
	clearCredentials(t)
	t.Setenv("ELEVENLABS_API_KEY", "   ")

	_, err := LoadFromEnv(ModeConversational)
	missing, ok := AsMissingCredential(err)
	if !ok || missing.Name != "ELEVENLABS_API_KEY" {
		t.Errorf("Expected missing ELEVENLABS_API_KEY, got %v", err)
	}
}

func TestLoadFromEnv_ConversationalMissingAgentID(t *testing.T) {
	clearCredentials(t)
	t.Setenv("ELEVENLABS_API_KEY", "k")

	_, err := LoadFromEnv(ModeConversational)

	var missing *MissingCredentialError
	if !errors.As(err, &missing) {
		t.Fatalf("Expected MissingCredentialError, got %v", err)
	}
	if missing.Name != "ELEVENLABS_AGENT_ID" {
		t.Errorf("Expected missing ELEVENLABS_AGENT_ID, got %s", missing.Name)
	}
	if missing.Hint == "" {
		t.Error("Expected a hint for the missing agent id")
	}
}

func TestLoadFromEnv_Conversational(t *testing.T) {
	clearCredentials(t)
	t.Setenv("ELEVENLABS_API_KEY", "k")
	t.Setenv("ELEVENLABS_AGENT_ID", "agent-123")

	cfg, err := LoadFromEnv(ModeConversational)
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}
	if cfg.ElevenLabsAgentID != "agent-123" {
		t.Errorf("Expected agent id 'agent-123', got '%s'", cfg.ElevenLabsAgentID)
	}
}

func TestLoadFromEnv_DeepgramRequiresKey(t *testing.T) {
	clearCredentials(t)
	t.Setenv("ELEVENLABS_API_KEY", "k")
	t.Setenv("STT_PROVIDER", "deepgram")

	_, err := LoadFromEnv(ModePolling)

	var missing *MissingCredentialError
	if !errors.As(err, &missing) || missing.Name != "DEEPGRAM_API_KEY" {
		t.Errorf("Expected missing DEEPGRAM_API_KEY, got %v", err)
	}

	t.Setenv("DEEPGRAM_API_KEY", "dg")
	if _, err := LoadFromEnv(ModePolling); err != nil {
		t.Errorf("Expected deepgram config to load, got %v", err)
	}
}

func TestLoadFromEnv_UnknownProvider(t *testing.T) {
	clearCredentials(t)
	t.Setenv("ELEVENLABS_API_KEY", "k")
	t.Setenv("STT_PROVIDER", "whisper")

	_, err := LoadFromEnv(ModePolling)
	if err == nil {
		t.Fatal("Expected error for unknown provider")
	}
	if _, ok := AsMissingCredential(err); ok {
		t.Error("Unknown provider must not be reported as a missing credential")
	}
}

func TestLoadFromEnv_ProviderNormalised(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"empty", "", ProviderElevenLabs},
		{"blank", "  ", ProviderElevenLabs},
		{"upper case", "ElevenLabs", ProviderElevenLabs},
		{"padded deepgram", " Deepgram ", ProviderDeepgram},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearCredentials(t)
			t.Setenv("ELEVENLABS_API_KEY", "k")
			t.Setenv("DEEPGRAM_API_KEY", "dg")
			t.Setenv("STT_PROVIDER", tt.value)

			cfg, err := LoadFromEnv(ModePolling)
			if err != nil {
				t.Fatalf("Expected config to load, got %v", err)
			}
			if cfg.STTProvider != tt.want {
				t.Errorf("Expected provider %q, got %q", tt.want, cfg.STTProvider)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearCredentials(t)
	t.Setenv("ELEVENLABS_API_KEY", "k")

	cfg, err := Load(ModePolling)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.STTProvider != ProviderElevenLabs {
		t.Errorf("Expected default STTProvider 'elevenlabs', got '%s'", cfg.STTProvider)
	}
	if cfg.STTModelID != "scribe_v1" {
		t.Errorf("Expected default STTModelID 'scribe_v1', got '%s'", cfg.STTModelID)
	}
	if cfg.STTLanguageCode != "en" {
		t.Errorf("Expected default STTLanguageCode 'en', got '%s'", cfg.STTLanguageCode)
	}
	if cfg.SampleRate != 16000 {
		t.Errorf("Expected default SampleRate 16000, got %d", cfg.SampleRate)
	}
	if cfg.FramesPerBuffer != 4096 {
		t.Errorf("Expected default FramesPerBuffer 4096, got %d", cfg.FramesPerBuffer)
	}
	if cfg.RecordSeconds != 3 {
		t.Errorf("Expected default RecordSeconds 3, got %d", cfg.RecordSeconds)
	}
	if cfg.LogDir != "." {
		t.Errorf("Expected default LogDir '.', got '%s'", cfg.LogDir)
	}
	if !cfg.RequiresAuth {
		t.Error("Expected RequiresAuth to default to true")
	}
	if cfg.TranscribeMutedAudio || cfg.LogAgentResponses || cfg.LogCorrections {
		t.Error("Expected variant flags to default to false")
	}
}

func TestConfig_ResilienceDefaults(t *testing.T) {
	clearCredentials(t)
	t.Setenv("ELEVENLABS_API_KEY", "k")

	cfg, err := LoadFromEnv(ModePolling)
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}

	if cfg.CircuitBreakerMaxFailures != 5 {
		t.Errorf("Expected default CircuitBreakerMaxFailures 5, got %d", cfg.CircuitBreakerMaxFailures)
	}
	if cfg.CircuitBreakerResetTimeout != 30 {
		t.Errorf("Expected default CircuitBreakerResetTimeout 30, got %d", cfg.CircuitBreakerResetTimeout)
	}
	if cfg.RetryMaxAttempts != 1 {
		t.Errorf("Expected default RetryMaxAttempts 1, got %d", cfg.RetryMaxAttempts)
	}
	if cfg.ReconnectMaxAttempts != 3 {
		t.Errorf("Expected default ReconnectMaxAttempts 3, got %d", cfg.ReconnectMaxAttempts)
	}
}

func TestConfig_ObservabilityDefaults(t *testing.T) {
	clearCredentials(t)
	t.Setenv("ELEVENLABS_API_KEY", "k")
	os.Unsetenv("LOG_LEVEL")

	cfg, err := LoadFromEnv(ModePolling)
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("Expected default LogLevel 'info', got '%s'", cfg.LogLevel)
	}
	if !cfg.LogPretty {
		t.Error("Expected default LogPretty true, got false")
	}
	if cfg.MetricsEnabled {
		t.Error("Expected default MetricsEnabled false, got true")
	}
}

func TestConfig_DerivedValues(t *testing.T) {
	cfg := &Config{
		SampleRate:               16000,
		Channels:                 1,
		FramesPerBuffer:          4096,
		RecordSeconds:            3,
		MinAudioMillis:           1000,
		SessionEndTimeoutSeconds: 5,
	}

	if got := cfg.FramesPerWindow(); got != 11 {
		t.Errorf("Expected 11 buffers per window, got %d", got)
	}
	if got := cfg.MinAudioBytes(); got != 32000 {
		t.Errorf("Expected 32000 minimum bytes, got %d", got)
	}
	if got := cfg.RecordWindow(); got != 3*time.Second {
		t.Errorf("Expected 3s window, got %v", got)
	}
	if got := cfg.SessionEndTimeout(); got != 5*time.Second {
		t.Errorf("Expected 5s session end timeout, got %v", got)
	}
}

func TestConfig_AlertsEnabled(t *testing.T) {
	cfg := &Config{TelegramBotToken: "token"}
	if cfg.AlertsEnabled() {
		t.Error("Expected alerts disabled without a user id")
	}
	cfg.TelegramUserID = "42"
	if !cfg.AlertsEnabled() {
		t.Error("Expected alerts enabled with token and user id")
	}
}

func TestMode_String(t *testing.T) {
	if ModePolling.String() != "polling" {
		t.Errorf("Expected 'polling', got %s", ModePolling.String())
	}
	if ModeConversational.String() != "conversational" {
		t.Errorf("Expected 'conversational', got %s", ModeConversational.String())
	}
}
