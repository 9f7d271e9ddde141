package audiocapture

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestMainTarget(t *testing.T) {
	dir := t.TempDir()
	got, err := MainTarget(dir)
	if err != nil {
		t.Fatalf("MainTarget: %v", err)
	}
	if got != filepath.Join(dir, "main.wav") {
		t.Errorf("MainTarget() = %q", got)
	}
	if !filepath.IsAbs(got) {
		t.Errorf("MainTarget() not absolute: %q", got)
	}
}

func TestTimestampName(t *testing.T) {
	ts := time.Unix(1700000000, 999)
	if got := TimestampName(ts); got != "1700000000.wav" {
		t.Errorf("TimestampName() = %q", got)
	}
}

func TestAdHocTarget(t *testing.T) {
	dir := t.TempDir()
	ts := time.Unix(1700000000, 0)

	first, err := AdHocTarget(dir, ts)
	if err != nil {
		t.Fatalf("AdHocTarget: %v", err)
	}
	if first != filepath.Join(dir, "1700000000.wav") {
		t.Fatalf("AdHocTarget() = %q", first)
	}

	if err := os.WriteFile(first, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	second, err := AdHocTarget(dir, ts)
	if err != nil {
		t.Fatalf("AdHocTarget: %v", err)
	}
	if second != filepath.Join(dir, "1700000000_1.wav") {
		t.Errorf("collision target = %q", second)
	}

	if err := os.WriteFile(second, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	third, _ := AdHocTarget(dir, ts)
	if third != filepath.Join(dir, "1700000000_2.wav") {
		t.Errorf("second collision target = %q", third)
	}
}
