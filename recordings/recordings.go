// Package recordings lists the WAV files in the save directory.
package recordings

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"go.aimuz.me/acap/audiocapture"
)

var (
	ErrCreateDir = errors.New("recordings: create save directory")
	ErrListDir   = errors.New("recordings: list save directory")
)

// File is one finished recording.
type File struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

// EnsureDir creates dir and its parents and returns its absolute path.
func EnsureDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCreateDir, err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return "", fmt.Errorf("%w: %w", ErrCreateDir, err)
	}
	return abs, nil
}

// List returns the .wav files directly in dir, excluding the main recording.
// The extension must be lowercase.
// Names sort numerically, so timestamp names come out oldest first.
func List(dir string) ([]File, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrListDir, err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrListDir, err)
	}

	files := make([]File, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		// Case-sensitive, like the main recording name.
		if filepath.Ext(name) != ".wav" || name == audiocapture.MainRecordingName {
			continue
		}
		info, err := e.Info()
		if err != nil {
			slog.Warn("stat recording", "name", name, "error", err)
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		files = append(files, File{
			Name:    name,
			Path:    filepath.Join(abs, name),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	c := collate.New(language.Und, collate.Numeric)
	slices.SortFunc(files, func(a, b File) int {
		return c.CompareString(a.Name, b.Name)
	})
	return files, nil
}
