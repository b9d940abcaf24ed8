package notify

import (
	"encoding/json"
	"strings"
)

// Analysis is the display form of an agent response
type Analysis struct {
	Message  string
	Risk     float64
	HasRisk  bool
	Critical bool
}

type analysisPayload struct {
	Message *string  `json:"message"`
	Risk    *float64 `json:"risk"`
}

// ParseAnalysis reads an agent response. A JSON object with "message" and a
// numeric "risk" is unpacked; anything else is shown verbatim and never critical.
func ParseAnalysis(text string, threshold float64) Analysis {
	trimmed := strings.TrimSpace(text)
	out := Analysis{Message: trimmed}

	if !strings.HasPrefix(trimmed, "{") {
		return out
	}

	var payload analysisPayload
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return out
	}
	if payload.Message != nil {
		out.Message = strings.TrimSpace(*payload.Message)
	}
	if payload.Risk != nil {
		out.Risk = *payload.Risk
		out.HasRisk = true
		out.Critical = out.Risk >= threshold
	}
	return out
}
