// Package app provides the core application service for Wails bindings.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/wailsapp/wails/v3/pkg/application"

	"go.aimuz.me/acap/audiocapture"
	"go.aimuz.me/acap/catalog"
	"go.aimuz.me/acap/clipboard"
	"go.aimuz.me/acap/config"
	"go.aimuz.me/acap/hotkey"
	"go.aimuz.me/acap/internal/types"
	"go.aimuz.me/acap/recordings"
)

// Service provides application functionality bound to Wails.
// This struct focuses on orchestration; capture logic lives in audiocapture.
type Service struct {
	store   *config.Store
	catalog *catalog.Catalog

	hook        hotkey.Hook
	broker      *hotkey.Broker
	listener    *hotkey.Listener
	stopHotkeys context.CancelFunc

	// UI references - set via Init
	app    *application.App
	window application.Window

	recorder     *Recorder
	shutdownOnce sync.Once

	// Version info (set by caller)
	version string
}

// New creates a new Service. hook may be nil to run without global hotkeys.
// Call Init() after Wails app is created.
func New(version string, hook hotkey.Hook) *Service {
	return &Service{version: version, hook: hook}
}

// GetVersion returns the application version.
func (s *Service) GetVersion() string {
	return s.version
}

// Init initializes the service with app and window references.
// Must be called after Wails application is created.
func (s *Service) Init(app *application.App, window application.Window) {
	s.app = app
	s.window = window

	store, err := config.Open()
	if err != nil {
		slog.Error("open config", "error", err)
		store = config.NewStore(filepath.Join(os.TempDir(), "acap", "config.toml"))
	}

	s.setup(store, openCatalog(), nil)
	s.setupHotkey()
}

// setup wires the stateful components. openHost nil selects the registered
// audio backends.
func (s *Service) setup(store *config.Store, cat *catalog.Catalog, openHost func(string) (audiocapture.Host, error)) {
	s.store = store
	s.catalog = cat
	s.recorder = NewRecorder(openHost, s.emit, s.saveInfo)

	cfg := s.store.Get()
	slog.Info("config loaded", "path", cfg.ConfigFilePath, "savePath", cfg.SavePath)
}

// Shutdown cleans up resources. Only the first call does anything.
func (s *Service) Shutdown() {
	s.shutdownOnce.Do(s.shutdown)
}

func (s *Service) shutdown() {
	if s.stopHotkeys != nil {
		s.stopHotkeys()
	}
	if s.listener != nil {
		s.listener.Stop()
	}
	if s.broker != nil {
		s.broker.Close()
	}
	if s.recorder != nil {
		s.recorder.Stop()
	}
	if s.catalog != nil {
		if err := s.catalog.Close(); err != nil {
			slog.Error("close catalog", "error", err)
		}
	}
}

func openCatalog() *catalog.Catalog {
	configDir, err := os.UserConfigDir()
	if err != nil {
		slog.Error("get config dir for catalog", "error", err)
		return nil
	}

	path := filepath.Join(configDir, "acap", "catalog")
	c, err := catalog.Open(path)
	if err != nil {
		slog.Error("open catalog", "path", path, "error", err)
		return nil
	}
	slog.Info("catalog opened", "path", path)
	return c
}

func (s *Service) setupHotkey() {
	if s.hook == nil {
		slog.Info("global hotkeys disabled")
		return
	}

	s.broker = hotkey.NewBroker()
	s.listener = hotkey.NewListener(s.hook, s.broker)
	s.listener.SetStatusCallback(func(active bool) {
		s.emit(EventHotkeyStatus, s.hotkeyStatus(active))
		if active {
			slog.Info("hotkey listener active")
		} else {
			slog.Warn("hotkey listener inactive")
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.stopHotkeys = cancel
	sub, unsubscribe := s.broker.Subscribe(16)
	go func() {
		defer unsubscribe()
		hotkey.Forward(ctx, sub, s.onHotkey)
	}()

	if err := s.listener.Start(); err != nil {
		slog.Error("start hotkey", "error", err)
	}
}

// onHotkey forwards every function-key press to the UI and starts a
// recording for the configured key.
func (s *Service) onHotkey(category, label string) {
	s.emit(EventHotkey, types.HotkeyPressed{Category: category, Label: label})

	if label != s.store.Get().StartRecordingHotkey {
		return
	}
	path, err := s.startAdHoc()
	switch {
	case errors.Is(err, ErrBusy):
		slog.Info("hotkey ignored, recording in progress", "key", label)
	case err != nil:
		slog.Error("start recording from hotkey", "key", label, "error", err)
	default:
		slog.Info("recording from hotkey", "key", label, "path", path)
	}
}

// emit is a safe wrapper around app.Event.Emit
func (s *Service) emit(name string, data any) {
	if s.app != nil {
		s.app.Event.Emit(name, data)
	}
}

func (s *Service) saveInfo(res *audiocapture.Result) {
	if s.catalog == nil {
		return
	}
	if err := s.catalog.Put(catalog.InfoFromResult(res)); err != nil {
		slog.Warn("save recording info", "path", res.Path, "error", err)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Recording
// ─────────────────────────────────────────────────────────────────────────────

// RecordAudio records the system output for the configured duration and
// returns the finished recording.
func (s *Service) RecordAudio() (types.Recording, error) {
	cfg := s.store.Get()
	res, err := s.recorder.Record(context.Background(), RecordRequest{
		Dir:      cfg.SavePath,
		Backend:  cfg.Backend,
		Duration: cfg.Duration(),
	})
	if err != nil {
		return types.Recording{}, err
	}
	return recordingFromResult(res), nil
}

func (s *Service) startAdHoc() (string, error) {
	cfg := s.store.Get()
	return s.recorder.Start(RecordRequest{
		Dir:      cfg.SavePath,
		Backend:  cfg.Backend,
		Duration: cfg.Duration(),
	})
}

// StartMainRecording starts the continuous main.wav recording and returns its
// path.
func (s *Service) StartMainRecording() (string, error) {
	cfg := s.store.Get()
	return s.recorder.Start(RecordRequest{
		Dir:     cfg.SavePath,
		Backend: cfg.Backend,
		Main:    true,
	})
}

// StopMainRecording stops the main recording once its file is finalized.
func (s *Service) StopMainRecording() error {
	return s.recorder.StopMain()
}

// IsRecording reports whether any recording is running.
func (s *Service) IsRecording() bool {
	running, _ := s.recorder.Status()
	return running
}

// IsMainRecording reports whether the main recording is running.
func (s *Service) IsMainRecording() bool {
	_, main := s.recorder.Status()
	return main
}

// GetRecordings lists the recordings in the save directory, oldest first.
func (s *Service) GetRecordings() ([]types.Recording, error) {
	dir, err := s.GetSaveDir()
	if err != nil {
		return nil, err
	}
	files, err := recordings.List(dir)
	if err != nil {
		return nil, err
	}

	var infos map[string]types.RecordingInfo
	if s.catalog != nil {
		if infos, err = s.catalog.All(); err != nil {
			slog.Warn("load recording info", "error", err)
		}
	}

	out := make([]types.Recording, 0, len(files))
	for _, f := range files {
		r := types.Recording{Name: f.Name, Path: f.Path, Size: f.Size, ModTime: f.ModTime}
		if info, ok := infos[f.Name]; ok {
			r.Info = &info
		}
		out = append(out, r)
	}
	return out, nil
}

// GetSaveDir returns the absolute save directory, creating it if needed.
func (s *Service) GetSaveDir() (string, error) {
	return recordings.EnsureDir(s.store.Get().SavePath)
}

// CopyRecordingPath copies the absolute path of a recording to the clipboard.
func (s *Service) CopyRecordingPath(name string) (string, error) {
	dir, err := s.GetSaveDir()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, filepath.Base(name))
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("stat recording: %w", err)
	}
	if err := clipboard.SetText(s.app, path); err != nil {
		return "", err
	}
	return path, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Configuration
// ─────────────────────────────────────────────────────────────────────────────

// GetConfig returns the current configuration.
func (s *Service) GetConfig() config.Config {
	return s.store.Get()
}

func (s *Service) update(fn func(*config.Config)) (config.Config, error) {
	cfg, err := s.store.Update(fn)
	if err != nil {
		return cfg, err
	}
	s.emit(EventConfigChanged, cfg)
	return cfg, nil
}

// UpdateSavePath sets the directory recordings are written to.
func (s *Service) UpdateSavePath(path string) (config.Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return s.store.Get(), fmt.Errorf("%w: save path: %w", config.ErrInvalid, err)
	}
	return s.update(func(c *config.Config) { c.SavePath = abs })
}

// UpdateRecordingDuration sets the ad-hoc recording length in seconds.
func (s *Service) UpdateRecordingDuration(secs int) (config.Config, error) {
	return s.update(func(c *config.Config) { c.RecordingDurationInSecs = secs })
}

// UpdateStartRecordingHotkey sets the function key that starts a recording.
// An empty label disables it.
func (s *Service) UpdateStartRecordingHotkey(label string) (config.Config, error) {
	cfg, err := s.update(func(c *config.Config) { c.StartRecordingHotkey = label })
	if err == nil {
		s.emit(EventHotkeyStatus, s.GetHotkeyStatus())
	}
	return cfg, err
}

// UpdateTheme sets the UI theme.
func (s *Service) UpdateTheme(theme string) (config.Config, error) {
	return s.update(func(c *config.Config) { c.Theme = config.Theme(theme) })
}

// GetHotkeyStatus reports whether global hotkeys work and which key starts a
// recording.
func (s *Service) GetHotkeyStatus() types.HotkeyStatus {
	active := s.listener != nil && s.listener.Active()
	return s.hotkeyStatus(active)
}

func (s *Service) hotkeyStatus(active bool) types.HotkeyStatus {
	return types.HotkeyStatus{Active: active, Hotkey: s.store.Get().StartRecordingHotkey}
}

// ─────────────────────────────────────────────────────────────────────────────
// Window
// ─────────────────────────────────────────────────────────────────────────────

// ShowWindow brings the main window to the front.
func (s *Service) ShowWindow() {
	if s.window != nil {
		s.window.Show()
		s.window.Focus()
	}
}
