package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"go.aimuz.me/acap/audiocapture"
	"go.aimuz.me/acap/catalog"
	"go.aimuz.me/acap/internal/types"
	"go.aimuz.me/acap/recordings"
)

var (
	// ErrBusy is returned when a recording is requested while one is running.
	ErrBusy = errors.New("app: a recording is already running")
	// ErrNotRecording is returned by StopMain when no main recording runs.
	ErrNotRecording = errors.New("app: main recording is not running")
)

// RecordRequest describes one recording.
type RecordRequest struct {
	Dir      string
	Backend  string
	Duration time.Duration // ignored for the main recording
	Main     bool
}

// recording is the session currently owned by a Recorder.
type recording struct {
	path   string
	main   bool
	cancel context.CancelFunc
	done   chan struct{}

	res *audiocapture.Result
	err error
}

// Recorder runs at most one capture session at a time.
type Recorder struct {
	mu     sync.Mutex
	active *recording

	openHost func(name string) (audiocapture.Host, error)
	emit     func(name string, data any)
	onDone   func(*audiocapture.Result)
}

// NewRecorder creates a recorder. emit and onDone may be nil.
func NewRecorder(openHost func(string) (audiocapture.Host, error), emit func(string, any), onDone func(*audiocapture.Result)) *Recorder {
	if openHost == nil {
		openHost = audiocapture.OpenHost
	}
	if emit == nil {
		emit = func(string, any) {}
	}
	return &Recorder{openHost: openHost, emit: emit, onDone: onDone}
}

// Start begins a recording in the background and returns its target path.
func (r *Recorder) Start(req RecordRequest) (string, error) {
	rec, err := r.start(req)
	if err != nil {
		return "", err
	}
	return rec.path, nil
}

// Record runs a recording to completion.
func (r *Recorder) Record(ctx context.Context, req RecordRequest) (*audiocapture.Result, error) {
	rec, err := r.start(req)
	if err != nil {
		return nil, err
	}
	select {
	case <-rec.done:
	case <-ctx.Done():
		rec.cancel()
		<-rec.done
	}
	return rec.res, rec.err
}

func (r *Recorder) start(req RecordRequest) (*recording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		return nil, ErrBusy
	}

	dir, err := recordings.EnsureDir(req.Dir)
	if err != nil {
		return nil, err
	}

	var path string
	if req.Main {
		path, err = audiocapture.MainTarget(dir)
	} else {
		path, err = audiocapture.AdHocTarget(dir, time.Now())
	}
	if err != nil {
		return nil, err
	}

	host, err := r.openHost(req.Backend)
	if err != nil {
		return nil, fmt.Errorf("open audio backend: %w", err)
	}

	duration := req.Duration
	if req.Main {
		duration = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	rec := &recording{
		path:   path,
		main:   req.Main,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	sess := audiocapture.NewSession(audiocapture.Options{
		Host:     host,
		Path:     path,
		Duration: duration,
		OnState: func(st audiocapture.State) {
			if st == audiocapture.StateStreaming {
				r.emit(EventRecordingStarted, types.RecordingStarted{Path: path, Main: req.Main})
			}
		},
	})

	r.active = rec
	go r.run(ctx, sess, rec)
	return rec, nil
}

func (r *Recorder) run(ctx context.Context, sess *audiocapture.Session, rec *recording) {
	defer close(rec.done)
	defer rec.cancel()

	rec.res, rec.err = sess.Run(ctx)

	r.mu.Lock()
	r.active = nil
	r.mu.Unlock()

	if rec.err != nil {
		r.emit(EventRecordingFailed, types.RecordingFailed{
			Path:  rec.path,
			Kind:  audiocapture.Kind(rec.err),
			Error: rec.err.Error(),
		})
	} else {
		if r.onDone != nil {
			r.onDone(rec.res)
		}
		r.emit(EventRecordingComplete, recordingFromResult(rec.res))
	}
}

// StopMain stops the main recording and waits until its file is finalized.
func (r *Recorder) StopMain() error {
	r.mu.Lock()
	rec := r.active
	r.mu.Unlock()

	if rec == nil || !rec.main {
		return ErrNotRecording
	}
	rec.cancel()
	<-rec.done
	return rec.err
}

// Stop stops any running recording and waits for it.
func (r *Recorder) Stop() {
	r.mu.Lock()
	rec := r.active
	r.mu.Unlock()

	if rec == nil {
		return
	}
	rec.cancel()
	<-rec.done
	slog.Info("recording stopped", "path", rec.path)
}

// Status reports whether a recording runs and whether it is the main one.
func (r *Recorder) Status() (running, main bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return false, false
	}
	return true, r.active.main
}

func recordingFromResult(res *audiocapture.Result) types.Recording {
	info := catalog.InfoFromResult(res)
	return types.Recording{
		Name: filepath.Base(res.Path),
		Path: res.Path,
		Info: &info,
	}
}
