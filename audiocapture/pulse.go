package audiocapture

import (
	"fmt"

	"github.com/jfreymuth/pulse"
)

// DefaultBackend is the backend OpenHost uses for an empty name.
var DefaultBackend = "pulse"

func init() {
	registerBackend("pulse", func() (Host, error) { return PulseHost{}, nil })
}

// PulseHost captures the monitor source of the default PulseAudio (or
// PipeWire-Pulse) sink, which carries everything the system is playing.
type PulseHost struct{}

func (PulseHost) DefaultDevice() (Device, error) {
	c, err := pulse.NewClient(pulse.ClientApplicationName("acap"))
	if err != nil {
		return nil, fmt.Errorf("connect pulseaudio: %w", err)
	}
	sink, err := c.DefaultSink()
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("get default sink: %w", err)
	}
	if sink == nil {
		c.Close()
		return nil, nil
	}
	return &pulseDevice{client: c, sink: sink}, nil
}

type pulseDevice struct {
	client *pulse.Client
	sink   *pulse.Sink
}

func (d *pulseDevice) Name() string {
	return d.sink.Name() + " (monitor)"
}

// DefaultConfig offers the sink's rate as f32.
func (d *pulseDevice) DefaultConfig() (StreamConfig, error) {
	cfg, err := monitorConfig(len(d.sink.Channels()), d.sink.SampleRate())
	if err != nil {
		return StreamConfig{}, fmt.Errorf("sink %s: %w", d.sink.ID(), err)
	}
	return cfg, nil
}

// monitorConfig derives the record config for a sink with the given channel
// count and rate. The server converts, so f32 is always available; record
// streams are opened mono or stereo.
func monitorConfig(channels, rate int) (StreamConfig, error) {
	if channels < 1 || rate < 1 {
		return StreamConfig{}, fmt.Errorf("reports %d channels at %d Hz", channels, rate)
	}
	return StreamConfig{Channels: min(channels, 2), SampleRate: rate, Format: FormatFloat32}, nil
}

func (d *pulseDevice) OpenStream(cfg StreamConfig, h Handler, onErr func(error)) (Stream, error) {
	w, err := pulseWriter(cfg.Format, h)
	if err != nil {
		return nil, err
	}

	opts := []pulse.RecordOption{
		pulse.RecordMonitor(d.sink),
		pulse.RecordSampleRate(cfg.SampleRate),
		pulse.RecordMediaName("acap recording"),
	}
	switch cfg.Channels {
	case 1:
		opts = append(opts, pulse.RecordMono)
	case 2:
		opts = append(opts, pulse.RecordStereo)
	default:
		return nil, fmt.Errorf("pulse record stream: %d channels", cfg.Channels)
	}

	s, err := d.client.NewRecord(w, opts...)
	if err != nil {
		return nil, fmt.Errorf("new record stream: %w", err)
	}
	return &pulseStream{s: s, onErr: onErr}, nil
}

func (d *pulseDevice) Close() error {
	d.client.Close()
	return nil
}

func pulseWriter(f SampleFormat, h Handler) (pulse.Writer, error) {
	if !h.Accepts(f) {
		return nil, fmt.Errorf("handler has no %v callback", f)
	}
	switch f {
	case FormatFloat32:
		return pulse.Float32Writer(func(p []float32) (int, error) {
			h.Float32(p)
			return len(p), nil
		}), nil
	case FormatInt16:
		return pulse.Int16Writer(func(p []int16) (int, error) {
			h.Int16(p)
			return len(p), nil
		}), nil
	case FormatInt32:
		return pulse.Int32Writer(func(p []int32) (int, error) {
			h.Int32(p)
			return len(p), nil
		}), nil
	case FormatInt8:
		// PulseAudio has no signed 8-bit format; recenter unsigned samples.
		var buf []int8
		return pulse.Uint8Writer(func(p []byte) (int, error) {
			if cap(buf) < len(p) {
				buf = make([]int8, len(p))
			}
			buf = buf[:len(p)]
			for i, b := range p {
				buf[i] = int8(int16(b) - 128)
			}
			h.Int8(buf)
			return len(p), nil
		}), nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, f)
}

type pulseStream struct {
	s     *pulse.RecordStream
	onErr func(error)
}

func (p *pulseStream) Start() error {
	p.s.Start()
	return p.s.Error()
}

func (p *pulseStream) Close() error {
	p.s.Stop()
	err := p.s.Error()
	p.s.Close()
	if err != nil && p.onErr != nil {
		p.onErr(err)
	}
	return nil
}
