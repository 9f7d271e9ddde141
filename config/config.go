// Package config handles application configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"

	"go.aimuz.me/acap/audiocapture"
	"go.aimuz.me/acap/hotkey"
)

const (
	appName        = "acap"
	configFileName = "config.toml"
)

// Recording duration bounds, in seconds.
const (
	MinDurationSecs     = 1
	MaxDurationSecs     = 600
	DefaultDurationSecs = 30
)

// DefaultHotkey starts a recording unless the user picks another key.
const DefaultHotkey = "F9"

var (
	// ErrInvalid wraps every validation failure. Nothing is written.
	ErrInvalid = errors.New("config: invalid value")
	// ErrStore wraps failures reading or writing the config file.
	ErrStore = errors.New("config: store")
)

// Theme is the UI color scheme.
type Theme string

const (
	ThemeSystem Theme = "system"
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
)

// Config represents the application configuration.
type Config struct {
	ConfigFilePath          string `toml:"configFilePath" json:"configFilePath"`
	SavePath                string `toml:"savePath" json:"savePath"`
	RecordingDurationInSecs int    `toml:"recordingDurationInSecs" json:"recordingDurationInSecs"`
	StartRecordingHotkey    string `toml:"startRecordingHotkey" json:"startRecordingHotkey"` // "" disables
	Theme                   Theme  `toml:"theme" json:"theme"`
	Backend                 string `toml:"backend" json:"backend"` // "" = platform default
}

// Duration returns the ad-hoc recording length.
func (c Config) Duration() time.Duration {
	return time.Duration(c.RecordingDurationInSecs) * time.Second
}

// Validate checks every field.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.SavePath) == "" {
		errs = append(errs, errors.New("savePath is empty"))
	}
	if c.RecordingDurationInSecs < MinDurationSecs || c.RecordingDurationInSecs > MaxDurationSecs {
		errs = append(errs, fmt.Errorf("recordingDurationInSecs %d not in %d..%d",
			c.RecordingDurationInSecs, MinDurationSecs, MaxDurationSecs))
	}
	if c.StartRecordingHotkey != "" && !hotkey.ValidLabel(c.StartRecordingHotkey) {
		errs = append(errs, fmt.Errorf("startRecordingHotkey %q is not F1..F12", c.StartRecordingHotkey))
	}
	switch c.Theme {
	case ThemeSystem, ThemeLight, ThemeDark:
	default:
		errs = append(errs, fmt.Errorf("theme %q is not system, light or dark", c.Theme))
	}
	if c.Backend != "" && !slices.Contains(audiocapture.Backends(), c.Backend) {
		errs = append(errs, fmt.Errorf("backend %q is not one of %v", c.Backend, audiocapture.Backends()))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Default returns the default configuration stored at path.
func Default(path string) Config {
	return Config{
		ConfigFilePath:          path,
		SavePath:                defaultSavePath(),
		RecordingDurationInSecs: DefaultDurationSecs,
		StartRecordingHotkey:    DefaultHotkey,
		Theme:                   ThemeSystem,
	}
}

func defaultSavePath() string {
	if docs := xdg.UserDirs.Documents; docs != "" {
		return filepath.Join(docs, appName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, appName)
	}
	return appName
}

// DefaultPath returns the config file location under the user config dir.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config dir: %w", err)
	}
	return filepath.Join(dir, appName, configFileName), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Store
// ─────────────────────────────────────────────────────────────────────────────

// Store reads and writes the config file. The file is read on every Get so
// edits made outside the app are picked up.
type Store struct {
	mu   sync.Mutex
	path string
}

// Open returns a store at DefaultPath.
func Open() (*Store, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	return NewStore(path), nil
}

// NewStore returns a store for the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the config file location.
func (s *Store) Path() string { return s.path }

// Get returns the current configuration. It never fails: a missing file is
// created with defaults, and an unreadable or invalid one is replaced by them.
func (s *Store) Get() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() Config {
	def := Default(s.path)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("read config", "path", s.path, "error", err)
		}
		s.reset(def)
		return def
	}

	cfg := def
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		slog.Warn("decode config, using defaults", "path", s.path, "error", err)
		s.reset(def)
		return def
	}
	cfg.ConfigFilePath = s.path

	if err := cfg.Validate(); err != nil {
		slog.Warn("invalid config, using defaults", "path", s.path, "error", err)
		s.reset(def)
		return def
	}
	return cfg
}

func (s *Store) reset(def Config) {
	if err := s.write(def); err != nil {
		slog.Error("write default config", "path", s.path, "error", err)
	}
}

// Update applies fn to the current configuration, validates the result and
// saves it.
func (s *Store) Update(fn func(*Config)) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.load()
	cfg := prev
	fn(&cfg)
	cfg.ConfigFilePath = s.path

	if err := cfg.Validate(); err != nil {
		return prev, err
	}
	if err := s.write(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save validates and writes cfg.
func (s *Store) Save(cfg Config) error {
	cfg.ConfigFilePath = s.path
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(cfg)
}

func (s *Store) write(cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("%w: create config dir: %w", ErrStore, err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("%w: encode config: %w", ErrStore, err)
	}

	if err := os.WriteFile(s.path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("%w: write config: %w", ErrStore, err)
	}
	return nil
}
