package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestHealthCheckHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthCheckHandler("polling")(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var status HealthStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if status.Status != "healthy" || status.Mode != "polling" {
		t.Errorf("Unexpected status: %+v", status)
	}
}

func TestReadinessHandler(t *testing.T) {
	ok := func(ctx context.Context) (bool, error) { return true, nil }
	failing := func(ctx context.Context) (bool, error) { return false, errors.New("circuit open") }

	tests := []struct {
		name       string
		checks     map[string]HealthCheckFunc
		wantCode   int
		wantStatus string
	}{
		{"no checks", nil, http.StatusOK, "ready"},
		{"all healthy", map[string]HealthCheckFunc{"stt": ok, "alerts": ok}, http.StatusOK, "ready"},
		{"one unhealthy", map[string]HealthCheckFunc{"stt": failing, "alerts": ok}, http.StatusServiceUnavailable, "not_ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			ReadinessHandler("conversational", tt.checks)(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("Expected %d, got %d", tt.wantCode, rec.Code)
			}

			var status HealthStatus
			if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
				t.Fatalf("Invalid JSON: %v", err)
			}
			if status.Status != tt.wantStatus {
				t.Errorf("Expected status %s, got %s", tt.wantStatus, status.Status)
			}
			if dep, found := status.Dependencies["stt"]; found && tt.wantCode != http.StatusOK {
				if dep.Message != "circuit open" {
					t.Errorf("Expected failure message, got %q", dep.Message)
				}
			}
		})
	}
}

func TestNewMetricsMux_ServesMetrics(t *testing.T) {
	RecordAudioBytes("captured", 10)

	server := httptest.NewServer(NewMetricsMux("polling", nil))
	defer server.Close()

	resp, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer resp.Body.Close()

	var body bytes.Buffer
	body.ReadFrom(resp.Body)
	if !strings.Contains(body.String(), "stfu_audio_bytes_total") {
		t.Error("Expected stfu_audio_bytes_total in metrics output")
	}
}

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn", false)
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("Info message should be filtered at warn level")
	}
	if !strings.Contains(out, "shown") {
		t.Error("Warn message should be logged")
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("debug") != zerolog.DebugLevel {
		t.Error("Expected debug level")
	}
	if ParseLevel("nonsense") != zerolog.InfoLevel {
		t.Error("Unknown level should fall back to info")
	}
}

func TestRunMetrics_SessionEndOnce(t *testing.T) {
	m := NewRunMetrics("polling")
	m.RecordSessionStart()
	m.RecordSessionEnd()
	m.RecordSessionEnd()

	if !m.ended {
		t.Error("Expected session to be marked ended")
	}
}
