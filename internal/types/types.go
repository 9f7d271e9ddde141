// Package types provides shared type definitions for the application.
package types

import "time"

// Recording is a finished recording as shown in the recordings list.
type Recording struct {
	Name    string         `json:"name"`
	Path    string         `json:"path"`
	Size    int64          `json:"size"`
	ModTime time.Time      `json:"modTime"`
	Info    *RecordingInfo `json:"info,omitempty"` // nil for files recorded elsewhere
}

// RecordingInfo is the metadata stored for a recording this app made.
type RecordingInfo struct {
	Name       string    `json:"name"` // file name, the catalog key
	SessionID  string    `json:"sessionId"`
	Device     string    `json:"device"`
	Format     string    `json:"format"` // i8, i16, i32, f32
	Channels   int       `json:"channels"`
	SampleRate int       `json:"sampleRate"`
	Frames     uint64    `json:"frames"`
	Dropped    uint64    `json:"dropped"`
	Peak       float64   `json:"peak"`
	RMS        float64   `json:"rms"`
	Silent     bool      `json:"silent"`
	StartedAt  time.Time `json:"startedAt"`
	ElapsedMs  int64     `json:"elapsedMs"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Event payloads
// ─────────────────────────────────────────────────────────────────────────────

// RecordingStarted is emitted when a session begins streaming.
type RecordingStarted struct {
	Path string `json:"path"`
	Main bool   `json:"main"`
}

// RecordingFailed is emitted when a session ends in failure.
type RecordingFailed struct {
	Path  string `json:"path"`
	Kind  string `json:"kind"` // e.g. "DeviceUnavailable"
	Error string `json:"error"`
}

// HotkeyPressed is emitted for every function-key press.
type HotkeyPressed struct {
	Category string `json:"category"`
	Label    string `json:"label"`
}

// HotkeyStatus reports whether the global hotkey hook is installed.
type HotkeyStatus struct {
	Active bool   `json:"active"`
	Hotkey string `json:"hotkey"` // configured start key, "" if disabled
}
