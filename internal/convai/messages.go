package convai

// Inbound message types
const (
	typeInitiationMetadata     = "conversation_initiation_metadata"
	typeUserTranscript         = "user_transcript"
	typeAgentResponse          = "agent_response"
	typeAgentResponseCorrected = "agent_response_correction"
	typeAudio                  = "audio"
	typeInterruption           = "interruption"
	typePing                   = "ping"
	typeVADScore               = "vad_score"
	typeTentativeResponse      = "internal_tentative_agent_response"
)

// inboundMessage is the envelope for every server message. Only the event
// matching Type is populated.
type inboundMessage struct {
	Type string `json:"type"`

	InitiationMetadata *initiationMetadataEvent `json:"conversation_initiation_metadata_event,omitempty"`
	UserTranscription  *userTranscriptionEvent  `json:"user_transcription_event,omitempty"`
	AgentResponse      *agentResponseEvent      `json:"agent_response_event,omitempty"`
	Correction         *correctionEvent         `json:"agent_response_correction_event,omitempty"`
	Audio              *audioEvent              `json:"audio_event,omitempty"`
	Interruption       *interruptionEvent       `json:"interruption_event,omitempty"`
	Ping               *pingEvent               `json:"ping_event,omitempty"`
	VADScore           *vadScoreEvent           `json:"vad_score_event,omitempty"`
}

type initiationMetadataEvent struct {
	ConversationID         string `json:"conversation_id"`
	AgentOutputAudioFormat string `json:"agent_output_audio_format"`
	UserInputAudioFormat   string `json:"user_input_audio_format,omitempty"`
}

type userTranscriptionEvent struct {
	UserTranscript string `json:"user_transcript"`
}

type agentResponseEvent struct {
	AgentResponse string `json:"agent_response"`
}

type correctionEvent struct {
	OriginalAgentResponse  string `json:"original_agent_response"`
	CorrectedAgentResponse string `json:"corrected_agent_response"`
}

type audioEvent struct {
	AudioBase64 string `json:"audio_base_64"`
	EventID     int    `json:"event_id"`
}

type interruptionEvent struct {
	EventID int `json:"event_id"`
}

type pingEvent struct {
	EventID int `json:"event_id"`
	PingMs  int `json:"ping_ms"`
}

type vadScoreEvent struct {
	VADScore float64 `json:"vad_score"`
}

// Outbound messages

type initiationMessage struct {
	Type string `json:"type"`
}

type userAudioMessage struct {
	UserAudioChunk string `json:"user_audio_chunk"`
}

type pongMessage struct {
	Type    string `json:"type"`
	EventID int    `json:"event_id"`
}

type signedURLResponse struct {
	SignedURL string `json:"signed_url"`
}
