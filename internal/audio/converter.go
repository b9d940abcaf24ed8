package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Encoding names the sample encoding of agent output audio
type Encoding string

const (
	EncodingPCM  Encoding = "pcm"
	EncodingULaw Encoding = "ulaw"
)

// Format describes agent output audio, e.g. "pcm_16000" or "ulaw_8000"
type Format struct {
	Encoding   Encoding
	SampleRate int
}

func (f Format) String() string {
	return fmt.Sprintf("%s_%d", f.Encoding, f.SampleRate)
}

// DefaultAgentFormat is assumed until the service announces its output format
var DefaultAgentFormat = Format{Encoding: EncodingPCM, SampleRate: 16000}

// ParseFormat parses an output format name such as "pcm_22050"
func ParseFormat(name string) (Format, error) {
	enc, rate, ok := strings.Cut(strings.ToLower(strings.TrimSpace(name)), "_")
	if !ok {
		return Format{}, fmt.Errorf("invalid audio format %q", name)
	}

	sampleRate, err := strconv.Atoi(rate)
	if err != nil || sampleRate <= 0 {
		return Format{}, fmt.Errorf("invalid sample rate in audio format %q", name)
	}

	switch Encoding(enc) {
	case EncodingPCM, EncodingULaw:
		return Format{Encoding: Encoding(enc), SampleRate: sampleRate}, nil
	default:
		return Format{}, fmt.Errorf("unsupported audio encoding %q", enc)
	}
}

// Decode converts raw agent audio in this format to 16-bit linear PCM samples
func (f Format) Decode(data []byte) ([]int16, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty audio data")
	}

	switch f.Encoding {
	case EncodingPCM:
		return BytesToSamples(data)
	case EncodingULaw:
		return DecodeMulaw(data), nil
	default:
		return nil, fmt.Errorf("unsupported audio encoding %q", f.Encoding)
	}
}

// SamplesToBytes encodes samples as 16-bit little-endian PCM
func SamplesToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// BytesToSamples decodes 16-bit little-endian PCM
func BytesToSamples(data []byte) ([]int16, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("PCM data length must be even (16-bit samples)")
	}

	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return samples, nil
}

// Resample performs simple linear interpolation resampling
func Resample(samples []int16, inputRate, outputRate int) []int16 {
	if inputRate == outputRate || len(samples) == 0 || inputRate <= 0 || outputRate <= 0 {
		return samples
	}

	ratio := float64(outputRate) / float64(inputRate)
	outputLength := int(float64(len(samples)) * ratio)
	output := make([]int16, outputLength)

	for i := 0; i < outputLength; i++ {
		srcPos := float64(i) / ratio

		idx0 := int(srcPos)
		if idx0 >= len(samples) {
			idx0 = len(samples) - 1
		}
		idx1 := idx0 + 1
		if idx1 >= len(samples) {
			idx1 = len(samples) - 1
		}

		fraction := srcPos - float64(idx0)
		output[i] = int16(float64(samples[idx0])*(1.0-fraction) + float64(samples[idx1])*fraction)
	}

	return output
}

// DecodeMulaw converts G.711 μ-law bytes to 16-bit linear PCM samples
func DecodeMulaw(data []byte) []int16 {
	samples := make([]int16, len(data))
	for i, b := range data {
		samples[i] = mulawToLinear(b)
	}
	return samples
}

// mulawToLinear converts an 8-bit μ-law sample to 16-bit linear PCM (ITU-T G.711)
func mulawToLinear(mulawByte byte) int16 {
	const bias = 0x84

	// μ-law stores every bit inverted
	mulawByte = ^mulawByte

	sign := mulawByte & 0x80
	exponent := int32((mulawByte >> 4) & 0x07)
	mantissa := int32(mulawByte & 0x0F)

	magnitude := ((mantissa << 3) + bias) << exponent
	magnitude -= bias

	if sign != 0 {
		return int16(-magnitude)
	}
	return int16(magnitude)
}

// CalculateRMS calculates the root mean square (RMS) of audio samples
func CalculateRMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, sample := range samples {
		sum += float64(sample) * float64(sample)
	}

	return math.Sqrt(sum / float64(len(samples)))
}

// DurationMillis returns the playback length of a sample slice
func DurationMillis(samples []int16, sampleRate, channels int) int {
	if sampleRate <= 0 || channels <= 0 {
		return 0
	}
	return len(samples) * 1000 / (sampleRate * channels)
}
