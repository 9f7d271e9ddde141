// Package audiocapture records system audio to WAV files.
//
// A Session resolves the default capture device of a Host, negotiates its
// preferred stream configuration, and streams every buffer the device
// delivers into a Writer until the recording duration elapses.
package audiocapture

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Session failure kinds. Every error returned by Session.Run wraps exactly
// one of these.
var (
	ErrDeviceUnavailable       = errors.New("audiocapture: no default capture device")
	ErrStreamConfigUnavailable = errors.New("audiocapture: no usable stream configuration")
	ErrUnsupportedFormat       = errors.New("audiocapture: unsupported sample format")
	ErrFileCreate              = errors.New("audiocapture: create recording file")
	ErrStreamStart             = errors.New("audiocapture: start input stream")
	ErrFinalize                = errors.New("audiocapture: finalize recording")
)

// ErrUnsupported is returned when a backend is not available on this platform
// or build.
var ErrUnsupported = errors.New("audiocapture: backend not supported on this platform")

// ErrUnknownBackend is returned by OpenHost for an unregistered name.
var ErrUnknownBackend = errors.New("audiocapture: unknown backend")

var kinds = []struct {
	err   error
	label string
}{
	{ErrDeviceUnavailable, "DeviceUnavailable"},
	{ErrStreamConfigUnavailable, "StreamConfigUnavailable"},
	{ErrUnsupportedFormat, "UnsupportedSampleFormat"},
	{ErrFileCreate, "FileCreateFailure"},
	{ErrStreamStart, "StreamStartFailure"},
	{ErrFinalize, "FinalizeFailure"},
}

// Kind returns the label of the failure kind wrapped by err, or "" if err is
// not a session failure.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.label
		}
	}
	return ""
}

// Host is a platform audio subsystem.
type Host interface {
	// DefaultDevice returns the default capture-capable device.
	// A nil device with a nil error means there is none.
	DefaultDevice() (Device, error)
}

// Device is a capture-capable audio device.
type Device interface {
	Name() string

	// DefaultConfig returns the device's preferred stream configuration.
	DefaultConfig() (StreamConfig, error)

	// OpenStream builds an input stream for cfg. Buffers are delivered to the
	// Handler callback matching cfg.Format on a goroutine owned by the device.
	// Asynchronous stream errors are reported to onErr.
	OpenStream(cfg StreamConfig, h Handler, onErr func(error)) (Stream, error)

	// Close releases the device.
	Close() error
}

// Stream is an open input stream.
type Stream interface {
	Start() error
	// Close stops delivery. No callback runs after Close returns.
	Close() error
}

// Handler holds one callback per sample type. Only the callback matching the
// negotiated format is set.
type Handler struct {
	Int8    func([]int8)
	Int16   func([]int16)
	Int32   func([]int32)
	Float32 func([]float32)
}

// Accepts reports whether h has a callback for f.
func (h Handler) Accepts(f SampleFormat) bool {
	switch f {
	case FormatInt8:
		return h.Int8 != nil
	case FormatInt16:
		return h.Int16 != nil
	case FormatInt32:
		return h.Int32 != nil
	case FormatFloat32:
		return h.Float32 != nil
	}
	return false
}

// handlerFor selects the write path for the negotiated sample format.
func handlerFor(f SampleFormat, w *Writer) (Handler, error) {
	switch f {
	case FormatInt8:
		return Handler{Int8: func(b []int8) { writeInput[int8, int8](w, b) }}, nil
	case FormatInt16:
		return Handler{Int16: func(b []int16) { writeInput[int16, int16](w, b) }}, nil
	case FormatInt32:
		return Handler{Int32: func(b []int32) { writeInput[int32, int32](w, b) }}, nil
	case FormatFloat32:
		return Handler{Float32: func(b []float32) { writeInput[float32, float32](w, b) }}, nil
	}
	return Handler{}, fmt.Errorf("%w: %v", ErrUnsupportedFormat, f)
}

// ─────────────────────────────────────────────────────────────────────────────
// Backend registry
// ─────────────────────────────────────────────────────────────────────────────

var (
	backendsMu sync.RWMutex
	backends   = map[string]func() (Host, error){}
)

func registerBackend(name string, open func() (Host, error)) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[name] = open
}

// Backends returns the registered backend names.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OpenHost opens the named backend. An empty name selects DefaultBackend.
func OpenHost(name string) (Host, error) {
	if name == "" {
		name = DefaultBackend
	}
	backendsMu.RLock()
	open, ok := backends[name]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
	return open()
}
