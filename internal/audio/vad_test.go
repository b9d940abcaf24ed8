package audio

import (
	"testing"
)

func constantFrame(n int, value int16) []int16 {
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = value
	}
	return samples
}

func testVADConfig() *VADConfig {
	return &VADConfig{
		EnergyThreshold: 500.0,
		FrameSize:       320,
		MinSpeechFrames: 3,
	}
}

func TestVADDetector_Threshold(t *testing.T) {
	low := NewVADDetector(&VADConfig{EnergyThreshold: 100.0, FrameSize: 320, MinSpeechFrames: 1})
	high := NewVADDetector(&VADConfig{EnergyThreshold: 5000.0, FrameSize: 320, MinSpeechFrames: 1})
	samples := constantFrame(320, 1000)

	if !low.ContainsSpeech(samples) {
		t.Error("Expected low threshold to detect speech")
	}
	if high.ContainsSpeech(samples) {
		t.Error("Expected high threshold to not detect speech")
	}
}

func TestVADDetector_ContainsSpeech(t *testing.T) {
	vad := NewVADDetector(testVADConfig())

	silence := constantFrame(320*10, 10)
	if vad.ContainsSpeech(silence) {
		t.Error("Expected silent window to contain no speech")
	}

	// Two loud frames are below MinSpeechFrames
	blip := append(constantFrame(640, 5000), constantFrame(320*8, 10)...)
	if vad.ContainsSpeech(blip) {
		t.Error("Expected short blip to be rejected")
	}

	speech := append(constantFrame(320*4, 10), constantFrame(320*4, 5000)...)
	if !vad.ContainsSpeech(speech) {
		t.Error("Expected window with sustained energy to contain speech")
	}

	if vad.ContainsSpeech(nil) {
		t.Error("Expected empty window to contain no speech")
	}
}

func TestVADDetector_NilConfig(t *testing.T) {
	vad := NewVADDetector(nil)
	if !vad.ContainsSpeech(constantFrame(320*3, 5000)) {
		t.Error("Expected default detector to accept three loud frames")
	}
}

func TestVADConfigFor(t *testing.T) {
	cfg := VADConfigFor(800, 16000)
	if cfg.EnergyThreshold != 800 {
		t.Errorf("Expected threshold 800, got %f", cfg.EnergyThreshold)
	}
	if cfg.FrameSize != 320 {
		t.Errorf("Expected 20ms frames of 320 samples, got %d", cfg.FrameSize)
	}
}

func TestDefaultVADConfig(t *testing.T) {
	config := DefaultVADConfig()
	if config.EnergyThreshold != 500.0 {
		t.Errorf("Expected default EnergyThreshold 500.0, got %f", config.EnergyThreshold)
	}
	if config.FrameSize != 320 {
		t.Errorf("Expected default FrameSize 320, got %d", config.FrameSize)
	}
	if config.MinSpeechFrames != 3 {
		t.Errorf("Expected default MinSpeechFrames 3, got %d", config.MinSpeechFrames)
	}
}
