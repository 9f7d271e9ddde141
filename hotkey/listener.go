package hotkey

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Listener turns raw key events from a Hook into function-key Events on a
// Broker.
type Listener struct {
	hook   Hook
	broker *Broker

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	starting bool // Start is installing the hook
	active   bool
	onStatus func(active bool)
}

// NewListener creates a listener that publishes to b.
func NewListener(hook Hook, b *Broker) *Listener {
	return &Listener{hook: hook, broker: b}
}

// SetStatusCallback sets a func called whenever the hook becomes active or
// inactive.
func (l *Listener) SetStatusCallback(fn func(active bool)) {
	l.mu.Lock()
	l.onStatus = fn
	l.mu.Unlock()
}

// Active reports whether the hook is installed.
func (l *Listener) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

func (l *Listener) setActive(v bool) {
	l.mu.Lock()
	changed := l.active != v
	l.active = v
	fn := l.onStatus
	l.mu.Unlock()

	if changed && fn != nil {
		fn(v)
	}
}

func (l *Listener) install() (<-chan KeyEvent, error) {
	events, err := l.hook.Start()
	if err != nil {
		slog.Error("install hotkey hook", "error", err)
		l.setActive(false)
		return nil, fmt.Errorf("%w: %w", ErrListenerInstall, err)
	}
	l.setActive(true)
	return events, nil
}

// Run installs the hook and publishes function-key presses until ctx is done
// or the hook stops.
func (l *Listener) Run(ctx context.Context) error {
	events, err := l.install()
	if err != nil {
		return err
	}
	l.loop(ctx, events)
	return nil
}

func (l *Listener) loop(ctx context.Context, events <-chan KeyEvent) {
	defer l.setActive(false)
	defer l.hook.Stop()

	// Keys currently held down. OS auto-repeat sends repeated downs, and only
	// the first one fires.
	held := make(map[string]bool)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				slog.Warn("hotkey hook closed")
				return
			}
			l.handle(ev, held)
		}
	}
}

func (l *Listener) handle(ev KeyEvent, held map[string]bool) {
	label, ok := FunctionKey(ev.Key)
	if !ok {
		return
	}
	switch ev.Kind {
	case KindDown:
		if held[label] {
			return
		}
		held[label] = true
		l.broker.Publish(Event{Category: CategoryKeyPress, Label: label})
		slog.Debug("hotkey pressed", "key", label)
	case KindUp:
		delete(held, label)
	}
}

// Start installs the hook and runs the listener on its own goroutine until
// Stop is called.
func (l *Listener) Start() error {
	l.mu.Lock()
	if l.done != nil || l.starting {
		l.mu.Unlock()
		return ErrRunning
	}
	l.starting = true
	l.mu.Unlock()

	events, err := l.install()
	if err != nil {
		l.mu.Lock()
		l.starting = false
		l.mu.Unlock()
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	l.mu.Lock()
	l.starting = false
	l.cancel = cancel
	l.done = done
	l.mu.Unlock()

	go func() {
		defer close(done)
		l.loop(ctx, events)
	}()
	return nil
}

// Stop stops a listener started with Start and waits for it to exit.
func (l *Listener) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
