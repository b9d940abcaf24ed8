package audio

// VADConfig holds configuration for Voice Activity Detection
type VADConfig struct {
	EnergyThreshold float64 // RMS energy threshold for speech detection
	FrameSize       int     // Samples per frame (320 for 20ms at 16kHz)
	MinSpeechFrames int     // Speech frames a window needs before it counts as speech
}

// DefaultVADConfig returns a default VAD configuration for 16kHz capture
func DefaultVADConfig() *VADConfig {
	return &VADConfig{
		EnergyThreshold: 500.0,
		FrameSize:       320, // 20ms at 16kHz
		MinSpeechFrames: 3,
	}
}

// VADConfigFor returns a detector configuration with 20ms frames at sampleRate
func VADConfigFor(threshold float64, sampleRate int) *VADConfig {
	cfg := DefaultVADConfig()
	cfg.EnergyThreshold = threshold
	if frame := sampleRate / 50; frame > 0 {
		cfg.FrameSize = frame
	}
	return cfg
}

// VADDetector performs Voice Activity Detection on recorded windows
type VADDetector struct {
	config *VADConfig
}

// NewVADDetector creates a new VAD detector
func NewVADDetector(config *VADConfig) *VADDetector {
	if config == nil {
		config = DefaultVADConfig()
	}
	return &VADDetector{
		config: config,
	}
}

// ContainsSpeech splits a recorded window into frames and reports whether
// at least MinSpeechFrames of them are above the energy threshold.
func (v *VADDetector) ContainsSpeech(samples []int16) bool {
	frameSize := v.config.FrameSize
	if frameSize <= 0 {
		frameSize = len(samples)
	}
	need := v.config.MinSpeechFrames
	if need < 1 {
		need = 1
	}

	speechFrames := 0
	for start := 0; start < len(samples); start += frameSize {
		end := start + frameSize
		if end > len(samples) {
			end = len(samples)
		}
		if CalculateRMS(samples[start:end]) > v.config.EnergyThreshold {
			speechFrames++
			if speechFrames >= need {
				return true
			}
		}
	}
	return false
}
