// Package hotkey listens for global function-key presses and fans them out to
// subscribers.
//
// The OS binding lives in hotkey/oshook so this package stays free of cgo.
package hotkey

import (
	"errors"
	"strconv"
	"strings"
)

// ErrListenerInstall is returned when the OS hook cannot be installed. The
// process keeps running without hotkeys.
var ErrListenerInstall = errors.New("hotkey: install listener")

// ErrRunning is returned by Start when the listener is already running.
var ErrRunning = errors.New("hotkey: listener already running")

// CategoryKeyPress is the category of every event the listener publishes.
const CategoryKeyPress = "KeyPress"

// Event is a recognized hotkey press.
type Event struct {
	Category string `json:"category"`
	Label    string `json:"label"`
}

// Kind classifies a raw key event.
type Kind int

const (
	KindOther Kind = iota
	KindDown
	KindUp
)

// KeyEvent is a raw keyboard event from a Hook. Key is the lowercase key
// name, e.g. "f9" or "a".
type KeyEvent struct {
	Kind Kind
	Key  string
}

// Hook is a source of global keyboard events.
type Hook interface {
	// Start installs the hook. The channel is closed when the hook stops.
	Start() (<-chan KeyEvent, error)
	Stop()
}

// FunctionKey returns the label ("F1".."F12") of a lowercase key name.
func FunctionKey(key string) (string, bool) {
	rest, ok := strings.CutPrefix(key, "f")
	if !ok {
		return "", false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 || n > 12 || rest[0] < '1' || rest[0] > '9' {
		return "", false
	}
	return "F" + rest, true
}

// ValidLabel reports whether label is one of "F1".."F12".
func ValidLabel(label string) bool {
	if !strings.HasPrefix(label, "F") {
		return false
	}
	_, ok := FunctionKey(strings.ToLower(label))
	return ok
}

// Labels returns "F1".."F12" in order.
func Labels() []string {
	out := make([]string, 12)
	for i := range out {
		out[i] = "F" + strconv.Itoa(i+1)
	}
	return out
}
