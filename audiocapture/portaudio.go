//go:build portaudio

package audiocapture

import (
	"fmt"
	"runtime"

	"github.com/gordonklaus/portaudio"
)

func init() {
	registerBackend("portaudio", func() (Host, error) { return PortAudioHost{}, nil })
	if runtime.GOOS != "linux" {
		DefaultBackend = "portaudio"
	}
}

// PortAudioHost captures from the default PortAudio input device. On
// Windows and macOS that is whatever loopback or input device the user has
// made default.
type PortAudioHost struct{}

func (PortAudioHost) DefaultDevice() (Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}
	info, err := portaudio.DefaultInputDevice()
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("default input device: %w", err)
	}
	if info == nil {
		portaudio.Terminate()
		return nil, nil
	}
	return &paDevice{info: info}, nil
}

type paDevice struct {
	info *portaudio.DeviceInfo
}

func (d *paDevice) Name() string { return d.info.Name }

func (d *paDevice) DefaultConfig() (StreamConfig, error) {
	ch, rate := d.info.MaxInputChannels, int(d.info.DefaultSampleRate)
	if ch < 1 || rate < 1 {
		return StreamConfig{}, fmt.Errorf("device %s reports %d input channels at %d Hz", d.info.Name, ch, rate)
	}
	return StreamConfig{Channels: min(ch, 2), SampleRate: rate, Format: FormatFloat32}, nil
}

func (d *paDevice) OpenStream(cfg StreamConfig, h Handler, _ func(error)) (Stream, error) {
	if !h.Accepts(cfg.Format) {
		return nil, fmt.Errorf("handler has no %v callback", cfg.Format)
	}

	p := portaudio.HighLatencyParameters(d.info, nil)
	p.Input.Channels = cfg.Channels
	p.SampleRate = float64(cfg.SampleRate)

	var cb any
	switch cfg.Format {
	case FormatInt8:
		cb = func(in []int8) { h.Int8(in) }
	case FormatInt16:
		cb = func(in []int16) { h.Int16(in) }
	case FormatInt32:
		cb = func(in []int32) { h.Int32(in) }
	case FormatFloat32:
		cb = func(in []float32) { h.Float32(in) }
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, cfg.Format)
	}

	s, err := portaudio.OpenStream(p, cb)
	if err != nil {
		return nil, fmt.Errorf("open portaudio stream: %w", err)
	}
	return &paStream{s: s}, nil
}

func (d *paDevice) Close() error {
	return portaudio.Terminate()
}

type paStream struct {
	s *portaudio.Stream
}

func (p *paStream) Start() error {
	return p.s.Start()
}

func (p *paStream) Close() error {
	stopErr := p.s.Stop()
	if err := p.s.Close(); err != nil {
		return err
	}
	return stopErr
}
