package audiocapture

import (
	"fmt"
	"strings"
)

// SampleFormat is the numeric representation of one audio sample.
type SampleFormat int

// Supported sample formats. The zero value is not a valid format.
const (
	FormatInt8 SampleFormat = iota + 1
	FormatInt16
	FormatInt32
	FormatFloat32
)

// BitsPerSample returns the width of one sample, or 0 for an unknown format.
func (f SampleFormat) BitsPerSample() int {
	switch f {
	case FormatInt8:
		return 8
	case FormatInt16:
		return 16
	case FormatInt32, FormatFloat32:
		return 32
	}
	return 0
}

// IsFloat reports whether samples are IEEE floats.
func (f SampleFormat) IsFloat() bool {
	return f == FormatFloat32
}

// Valid reports whether f is one of the four supported formats.
func (f SampleFormat) Valid() bool {
	return f.BitsPerSample() != 0
}

func (f SampleFormat) String() string {
	switch f {
	case FormatInt8:
		return "i8"
	case FormatInt16:
		return "i16"
	case FormatInt32:
		return "i32"
	case FormatFloat32:
		return "f32"
	}
	return fmt.Sprintf("SampleFormat(%d)", int(f))
}

// ParseSampleFormat parses the String form of a sample format.
func ParseSampleFormat(s string) (SampleFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "i8":
		return FormatInt8, nil
	case "i16":
		return FormatInt16, nil
	case "i32":
		return FormatInt32, nil
	case "f32":
		return FormatFloat32, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// StreamConfig is the stream configuration negotiated with a device.
type StreamConfig struct {
	Channels   int          `json:"channels"`
	SampleRate int          `json:"sampleRate"`
	Format     SampleFormat `json:"format"`
}

func (c StreamConfig) String() string {
	return fmt.Sprintf("%dch %dHz %s", c.Channels, c.SampleRate, c.Format)
}

// Encoding is the numeric encoding stored in the WAV format tag.
type Encoding int

const (
	EncodingInt Encoding = iota
	EncodingFloat
)

func (e Encoding) String() string {
	if e == EncodingFloat {
		return "float"
	}
	return "int"
}

// wavFormatTag returns the RIFF WAVE format code for e.
func (e Encoding) wavFormatTag() int {
	if e == EncodingFloat {
		return 3 // WAVE_FORMAT_IEEE_FLOAT
	}
	return 1 // WAVE_FORMAT_PCM
}

// WavSpec describes the container written for a stream.
type WavSpec struct {
	Channels      int      `json:"channels"`
	SampleRate    int      `json:"sampleRate"`
	BitsPerSample int      `json:"bitsPerSample"`
	Encoding      Encoding `json:"encoding"`
}

// BlockAlign returns the size in bytes of one interleaved frame.
func (s WavSpec) BlockAlign() int {
	return s.Channels * s.BitsPerSample / 8
}

// ResolveSpec derives the WAV container spec for a stream configuration.
func ResolveSpec(cfg StreamConfig) WavSpec {
	enc := EncodingInt
	if cfg.Format.IsFloat() {
		enc = EncodingFloat
	}
	return WavSpec{
		Channels:      cfg.Channels,
		SampleRate:    cfg.SampleRate,
		BitsPerSample: cfg.Format.BitsPerSample(),
		Encoding:      enc,
	}
}
