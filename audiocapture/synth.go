package audiocapture

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

func init() {
	registerBackend("synthetic", func() (Host, error) {
		return NewSynthHost(SynthConfig{}), nil
	})
}

// SynthConfig configures a host whose only device plays a generated signal.
type SynthConfig struct {
	// Config is what the device offers. Defaults to 2ch 48000 Hz f32.
	Config StreamConfig

	// FramesPerBuffer defaults to a tenth of a second.
	FramesPerBuffer int

	// TotalFrames stops delivery after that many frames. Zero never stops.
	TotalFrames int

	// Signal returns the sample for a frame and channel in [-1, 1].
	// Defaults to a 440 Hz sine at half amplitude.
	Signal func(frame, channel int) float64
}

// SynthHost is a Host backed by a signal generator. Buffers are delivered at
// real-time pace from a goroutine, like a hardware callback thread.
type SynthHost struct {
	cfg SynthConfig
}

// NewSynthHost fills defaults into cfg and returns the host.
func NewSynthHost(cfg SynthConfig) *SynthHost {
	if cfg.Config == (StreamConfig{}) {
		cfg.Config = StreamConfig{Channels: 2, SampleRate: 48000, Format: FormatFloat32}
	}
	if cfg.FramesPerBuffer <= 0 && cfg.Config.SampleRate > 0 {
		cfg.FramesPerBuffer = max(cfg.Config.SampleRate/10, 1)
	}
	if cfg.Signal == nil {
		rate := float64(max(cfg.Config.SampleRate, 1))
		cfg.Signal = func(frame, _ int) float64 {
			return 0.5 * math.Sin(2*math.Pi*440*float64(frame)/rate)
		}
	}
	return &SynthHost{cfg: cfg}
}

func (h *SynthHost) DefaultDevice() (Device, error) {
	return &synthDevice{cfg: h.cfg}, nil
}

type synthDevice struct {
	cfg SynthConfig
}

func (d *synthDevice) Name() string { return "synthetic" }

func (d *synthDevice) DefaultConfig() (StreamConfig, error) {
	return d.cfg.Config, nil
}

func (d *synthDevice) OpenStream(cfg StreamConfig, h Handler, _ func(error)) (Stream, error) {
	if !h.Accepts(cfg.Format) {
		return nil, fmt.Errorf("handler has no %v callback", cfg.Format)
	}
	if cfg.SampleRate < 1 || cfg.Channels < 1 {
		return nil, fmt.Errorf("invalid stream config %v", cfg)
	}
	return &synthStream{cfg: cfg, synth: d.cfg, handler: h}, nil
}

func (d *synthDevice) Close() error { return nil }

type synthStream struct {
	cfg     StreamConfig
	synth   SynthConfig
	handler Handler

	mu      sync.Mutex
	stop    chan struct{}
	wg      sync.WaitGroup
	started bool
}

func (s *synthStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.New("stream already started")
	}
	s.started = true
	s.stop = make(chan struct{})
	s.wg.Add(1)
	go s.run()
	return nil
}

func (s *synthStream) Close() error {
	s.mu.Lock()
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

func (s *synthStream) run() {
	defer s.wg.Done()

	s.mu.Lock()
	stop := s.stop
	s.mu.Unlock()

	per := s.synth.FramesPerBuffer
	interval := time.Duration(float64(per) / float64(s.cfg.SampleRate) * float64(time.Second))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	frame := 0
	for {
		n := per
		if s.synth.TotalFrames > 0 {
			n = min(n, s.synth.TotalFrames-frame)
			if n <= 0 {
				return
			}
		}

		buf := make([]float32, n*s.cfg.Channels)
		for i := 0; i < n; i++ {
			for c := 0; c < s.cfg.Channels; c++ {
				buf[i*s.cfg.Channels+c] = float32(s.synth.Signal(frame+i, c))
			}
		}
		frame += n
		s.deliver(buf)

		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}

func (s *synthStream) deliver(buf []float32) {
	h := s.handler
	switch s.cfg.Format {
	case FormatInt8:
		h.Int8(synthBuffer[int8](buf))
	case FormatInt16:
		h.Int16(synthBuffer[int16](buf))
	case FormatInt32:
		h.Int32(synthBuffer[int32](buf))
	case FormatFloat32:
		h.Float32(buf)
	}
}

func synthBuffer[U Sample](src []float32) []U {
	out := make([]U, len(src))
	convertSlice(out, src)
	return out
}
