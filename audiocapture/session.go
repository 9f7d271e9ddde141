package audiocapture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ErrSessionUsed is returned when Run is called more than once.
var ErrSessionUsed = errors.New("audiocapture: session already run")

// State is a step of the capture session lifecycle.
type State int

const (
	StateIdle State = iota
	StateDeviceResolved
	StateStreamConfigured
	StateWriterOpen
	StateStreaming
	StateFinalizing
	StateComplete
	StateFailed
)

var stateNames = [...]string{
	StateIdle:             "idle",
	StateDeviceResolved:   "device-resolved",
	StateStreamConfigured: "stream-configured",
	StateWriterOpen:       "writer-open",
	StateStreaming:        "streaming",
	StateFinalizing:       "finalizing",
	StateComplete:         "complete",
	StateFailed:           "failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateFailed
}

// Options configures a Session.
type Options struct {
	Host Host

	// Path is the absolute path of the WAV file to write.
	Path string

	// Duration is how long to stream. Zero streams until the context passed
	// to Run is done.
	Duration time.Duration

	Writer WriterOptions

	// OnState, if set, is called after every transition on the goroutine
	// running Run.
	OnState func(State)

	Logger *slog.Logger
}

// Result describes a completed recording.
type Result struct {
	ID      string        `json:"id"`
	Path    string        `json:"path"`
	Device  string        `json:"device"`
	Config  StreamConfig  `json:"config"`
	Spec    WavSpec       `json:"spec"`
	Started time.Time     `json:"started"`
	Elapsed time.Duration `json:"elapsed"`
	Stats   WriterStats   `json:"stats"`
}

// Session records one WAV file from the default device of a Host.
type Session struct {
	id   string
	opts Options
	log  *slog.Logger

	mu    sync.Mutex
	state State
	ran   atomic.Bool
}

// NewSession creates an idle session.
func NewSession(opts Options) *Session {
	id := uuid.NewString()
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		id:   id,
		opts: opts,
		log:  logger.With("session", id),
	}
}

// ID returns the session identifier used in logs and results.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()

	s.log.Debug("session state", "state", st)
	if s.opts.OnState != nil {
		s.opts.OnState(st)
	}
}

// fail moves the session to StateFailed and returns err wrapped in kind.
func (s *Session) fail(kind, cause error) error {
	err := kind
	switch {
	case cause == nil:
	case errors.Is(cause, kind):
		err = cause
	default:
		err = fmt.Errorf("%w: %w", kind, cause)
	}
	s.setState(StateFailed)
	s.log.Error("recording failed", "kind", Kind(err), "error", err)
	return err
}

// Run records until the configured duration elapses or ctx is done,
// whichever comes first, then finalizes the file. It blocks the calling
// goroutine for the whole recording. Every failure is terminal.
func (s *Session) Run(ctx context.Context) (*Result, error) {
	if !s.ran.CompareAndSwap(false, true) {
		return nil, ErrSessionUsed
	}
	if s.opts.Host == nil {
		return nil, s.fail(ErrDeviceUnavailable, errors.New("no audio host"))
	}

	dev, err := s.opts.Host.DefaultDevice()
	if err != nil {
		return nil, s.fail(ErrDeviceUnavailable, err)
	}
	if dev == nil {
		return nil, s.fail(ErrDeviceUnavailable, nil)
	}
	defer func() {
		if err := dev.Close(); err != nil {
			s.log.Warn("close device", "error", err)
		}
	}()
	s.log.Info("capture device", "name", dev.Name())
	s.setState(StateDeviceResolved)

	cfg, err := dev.DefaultConfig()
	if err != nil {
		return nil, s.fail(ErrStreamConfigUnavailable, err)
	}
	if cfg.Channels < 1 || cfg.SampleRate < 1 {
		return nil, s.fail(ErrStreamConfigUnavailable, fmt.Errorf("device offered %v", cfg))
	}
	s.log.Info("stream config", "config", cfg.String())
	s.setState(StateStreamConfigured)

	// The format decides the header, so reject it before creating a file.
	if !cfg.Format.Valid() {
		return nil, s.fail(ErrUnsupportedFormat, fmt.Errorf("device format %v", cfg.Format))
	}

	spec := ResolveSpec(cfg)
	w, err := CreateWriter(s.opts.Path, spec, s.opts.Writer)
	if err != nil {
		return nil, s.fail(ErrFileCreate, err)
	}
	s.setState(StateWriterOpen)

	discard := func() {
		if err := w.Finalize(); err != nil {
			s.log.Warn("discard writer", "error", err)
		}
		if err := os.Remove(s.opts.Path); err != nil {
			s.log.Warn("remove partial recording", "path", s.opts.Path, "error", err)
		}
	}

	h, err := handlerFor(cfg.Format, w)
	if err != nil {
		discard()
		return nil, s.fail(ErrUnsupportedFormat, err)
	}

	stream, err := dev.OpenStream(cfg, h, func(err error) {
		s.log.Warn("input stream error", "error", err)
	})
	if err != nil {
		discard()
		return nil, s.fail(ErrStreamStart, fmt.Errorf("build stream: %w", err))
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		discard()
		return nil, s.fail(ErrStreamStart, err)
	}

	started := time.Now()
	s.setState(StateStreaming)
	s.log.Info("recording started", "path", s.opts.Path, "duration", s.opts.Duration)

	var elapsed <-chan time.Time
	if s.opts.Duration > 0 {
		timer := time.NewTimer(s.opts.Duration)
		defer timer.Stop()
		elapsed = timer.C
	}
	select {
	case <-elapsed:
	case <-ctx.Done():
		s.log.Info("recording stopped early", "reason", context.Cause(ctx))
	}

	s.setState(StateFinalizing)
	if err := stream.Close(); err != nil {
		s.log.Warn("close input stream", "error", err)
	}
	if err := w.Finalize(); err != nil {
		return nil, s.fail(ErrFinalize, err)
	}

	res := &Result{
		ID:      s.id,
		Path:    s.opts.Path,
		Device:  dev.Name(),
		Config:  cfg,
		Spec:    spec,
		Started: started,
		Elapsed: time.Since(started),
		Stats:   w.Stats(),
	}
	s.setState(StateComplete)
	if res.Stats.Frames > 0 && res.Stats.Silent() {
		s.log.Warn("recording is silent", "path", res.Path, "peak", res.Stats.Peak)
	}
	s.log.Info("recording complete",
		"path", res.Path,
		"frames", res.Stats.Frames,
		"dropped", res.Stats.Dropped,
		"rms", res.Stats.RMS,
		"elapsed", res.Elapsed)
	return res, nil
}
