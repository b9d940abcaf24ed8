// Package convai is a client for the ElevenLabs Conversational AI websocket.
// Microphone audio is streamed to the agent, agent audio is handed to an
// audio.Sink and everything the session reports is surfaced as Events.
package convai

import "errors"

// ErrSessionClosed is returned when using a conversation after Close
var ErrSessionClosed = errors.New("conversation closed")

// EventKind identifies what happened in the session
type EventKind int

const (
	EventConversationStarted EventKind = iota
	EventUserTranscript
	EventAgentResponse
	EventAgentResponseCorrection
	EventInterruption
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventConversationStarted:
		return "conversation_started"
	case EventUserTranscript:
		return "user_transcript"
	case EventAgentResponse:
		return "agent_response"
	case EventAgentResponseCorrection:
		return "agent_response_correction"
	case EventInterruption:
		return "interruption"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one notification from the agent session.
// Original is set for corrections, ConversationID for the start event and
// Err for EventError.
type Event struct {
	Kind           EventKind
	Text           string
	Original       string
	ConversationID string
	Err            error
}
