// Package oshook installs a global keyboard hook with gohook (libuiohook).
package oshook

import (
	"errors"
	"strconv"
	"sync"
	"time"

	hook "github.com/robotn/gohook"

	"go.aimuz.me/acap/hotkey"
)

// installTimeout bounds the wait for libuiohook to report it is enabled. A
// missing display server or permission never does.
const installTimeout = 3 * time.Second

var errTimeout = errors.New("oshook: timed out waiting for hook")

// keyNames maps gohook keycodes of the function keys to their names. Other
// keys are reported with an empty name.
var keyNames = func() map[uint16]string {
	m := make(map[uint16]string, 12)
	for i := 1; i <= 12; i++ {
		name := "f" + strconv.Itoa(i)
		if code, ok := hook.Keycode[name]; ok {
			m[code] = name
		}
	}
	return m
}()

// Hook is a hotkey.Hook backed by the OS.
type Hook struct {
	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

var _ hotkey.Hook = (*Hook)(nil)

// New returns an uninstalled hook.
func New() *Hook {
	return &Hook{}
}

func (h *Hook) Start() (<-chan hotkey.KeyEvent, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		return nil, errors.New("oshook: already started")
	}

	raw := hook.Start()
	if err := waitEnabled(raw); err != nil {
		hook.End()
		return nil, err
	}

	out := make(chan hotkey.KeyEvent, 64)
	h.stop = make(chan struct{})
	h.done = make(chan struct{})
	h.running = true

	go func(stop, done chan struct{}) {
		defer close(done)
		defer close(out)
		for {
			select {
			case <-stop:
				return
			case ev, ok := <-raw:
				if !ok {
					return
				}
				ke, ok := translate(ev)
				if !ok {
					continue
				}
				select {
				case out <- ke:
				case <-stop:
					return
				}
			}
		}
	}(h.stop, h.done)

	return out, nil
}

func (h *Hook) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.running {
		return
	}
	h.running = false
	close(h.stop)
	hook.End()
	<-h.done
}

func waitEnabled(raw chan hook.Event) error {
	timer := time.NewTimer(installTimeout)
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-raw:
			if !ok {
				return errors.New("oshook: hook closed before enabled")
			}
			if ev.Kind == hook.HookEnabled {
				return nil
			}
		case <-timer.C:
			return errTimeout
		}
	}
}

// translate maps a gohook event. KeyHold is libuiohook's key-pressed event;
// KeyDown is its key-typed event and carries no release.
func translate(ev hook.Event) (hotkey.KeyEvent, bool) {
	var kind hotkey.Kind
	switch ev.Kind {
	case hook.KeyHold:
		kind = hotkey.KindDown
	case hook.KeyUp:
		kind = hotkey.KindUp
	default:
		return hotkey.KeyEvent{}, false
	}
	return hotkey.KeyEvent{Kind: kind, Key: keyNames[ev.Keycode]}, true
}
