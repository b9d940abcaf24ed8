package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// TempWAVPattern names the temporary chunk files handed to transcription
const TempWAVPattern = "stfu-chunk-*.wav"

// ErrNoFrames is returned when a WAV file holds no PCM frames
var ErrNoFrames = errors.New("wav file contains no audio frames")

// WriteWAV encodes samples as a 16-bit PCM WAV stream
func WriteWAV(w io.WriteSeeker, samples []int16, sampleRate, channels int) error {
	enc := wav.NewEncoder(w, sampleRate, 16, channels, 1)
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: channels,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, len(samples)),
		SourceBitDepth: 16,
	}
	for i, s := range samples {
		buf.Data[i] = int(s)
	}

	if err := enc.Write(buf); err != nil {
		enc.Close()
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}

// CreateTempWAV writes samples to a new temporary WAV file in dir and returns its path.
// The caller owns the file and must remove it.
func CreateTempWAV(dir string, samples []int16, sampleRate, channels int) (string, error) {
	f, err := os.CreateTemp(dir, TempWAVPattern)
	if err != nil {
		return "", fmt.Errorf("create temp wav: %w", err)
	}
	path := f.Name()

	if err := WriteWAV(f, samples, sampleRate, channels); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close temp wav: %w", err)
	}
	return path, nil
}

// WAVInfo summarizes a decoded WAV file
type WAVInfo struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Frames     int
}

// VerifyWAV decodes path and reports its format, failing when it holds no frames
func VerifyWAV(path string) (WAVInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return WAVInfo{}, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return WAVInfo{}, fmt.Errorf("decode wav %s: %w", path, err)
	}

	info := WAVInfo{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
	}
	if info.Channels > 0 {
		info.Frames = len(buf.Data) / info.Channels
	}
	if info.Frames == 0 {
		return info, ErrNoFrames
	}
	return info, nil
}
