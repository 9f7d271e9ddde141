package recordings

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"1700000010.wav",
		"1700000002_10.wav",
		"1700000002_2.wav",
		"10.wav",
		"9.wav",
		"main.wav",
		"notes.txt",
		"clip.WAV",
		"MAIN.WAV",
		"take.Wav",
	} {
		touch(t, filepath.Join(dir, name))
	}
	if err := os.Mkdir(filepath.Join(dir, "folder.wav"), 0755); err != nil {
		t.Fatal(err)
	}

	files, err := List(dir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	var names []string
	for _, f := range files {
		names = append(names, f.Name)
		if f.Path != filepath.Join(dir, f.Name) {
			t.Errorf("path = %q", f.Path)
		}
		if f.Size != 1 {
			t.Errorf("%s size = %d", f.Name, f.Size)
		}
	}

	want := []string{
		"9.wav",
		"10.wav",
		"1700000002_2.wav",
		"1700000002_10.wav",
		"1700000010.wav",
	}
	if !slices.Equal(names, want) {
		t.Errorf("List() = %v, want %v", names, want)
	}
}

func TestListEmpty(t *testing.T) {
	files, err := List(t.TempDir())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("List() = %v, want empty", files)
	}
}

func TestListMissingDir(t *testing.T) {
	_, err := List(filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, ErrListDir) {
		t.Fatalf("List() error = %v, want ErrListDir", err)
	}
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	got, err := EnsureDir(dir)
	if err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}
	if got != dir {
		t.Errorf("EnsureDir() = %q, want %q", got, dir)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("dir not created: %v", err)
	}
	if _, err := EnsureDir(dir); err != nil {
		t.Errorf("EnsureDir on existing dir: %v", err)
	}

	blocker := filepath.Join(t.TempDir(), "file")
	touch(t, blocker)
	if _, err := EnsureDir(filepath.Join(blocker, "sub")); !errors.Is(err, ErrCreateDir) {
		t.Errorf("EnsureDir() error = %v, want ErrCreateDir", err)
	}
}
