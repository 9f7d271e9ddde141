package audiocapture

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// MainRecordingName is the file name reserved for the continuous main
// recording. Ad-hoc recordings never use it.
const MainRecordingName = "main.wav"

// MainTarget returns the path of the main recording in dir.
func MainTarget(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve save dir: %w", err)
	}
	return filepath.Join(abs, MainRecordingName), nil
}

// TimestampName returns the ad-hoc recording name for t: "<unix seconds>.wav".
func TimestampName(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10) + ".wav"
}

// AdHocTarget returns a path in dir named after t. If that name is taken,
// "<unix>_<n>.wav" with the smallest free n is used instead.
func AdHocTarget(dir string, t time.Time) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve save dir: %w", err)
	}

	base := strconv.FormatInt(t.Unix(), 10)
	name := base + ".wav"
	for n := 1; ; n++ {
		path := filepath.Join(abs, name)
		_, err := os.Lstat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return path, nil
		}
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", name, err)
		}
		name = base + "_" + strconv.Itoa(n) + ".wav"
	}
}
