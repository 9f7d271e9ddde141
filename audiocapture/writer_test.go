package audiocapture

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-audio/wav"
)

type wavHeader struct {
	channels   int
	sampleRate int
	bits       int
	format     int
	pcmLen     int64
}

func readWavHeader(t *testing.T, path string) wavHeader {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	d.ReadInfo()
	if err := d.Err(); err != nil {
		t.Fatalf("read wav info: %v", err)
	}
	if err := d.FwdToPCM(); err != nil {
		t.Fatalf("forward to pcm: %v", err)
	}
	return wavHeader{
		channels:   int(d.NumChans),
		sampleRate: int(d.SampleRate),
		bits:       int(d.BitDepth),
		format:     int(d.WavAudioFormat),
		pcmLen:     d.PCMLen(),
	}
}

func TestWriterHeader(t *testing.T) {
	tests := []struct {
		name   string
		cfg    StreamConfig
		format int
	}{
		{"f32_stereo", StreamConfig{2, 48000, FormatFloat32}, 3},
		{"i16_mono", StreamConfig{1, 44100, FormatInt16}, 1},
		{"i32_stereo", StreamConfig{2, 96000, FormatInt32}, 1},
		{"i8_mono", StreamConfig{1, 8000, FormatInt8}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out.wav")
			spec := ResolveSpec(tt.cfg)

			w, err := CreateWriter(path, spec, WriterOptions{})
			if err != nil {
				t.Fatalf("CreateWriter: %v", err)
			}
			h, err := handlerFor(tt.cfg.Format, w)
			if err != nil {
				t.Fatalf("handlerFor: %v", err)
			}

			n := 100 * tt.cfg.Channels
			switch tt.cfg.Format {
			case FormatInt8:
				h.Int8(make([]int8, n))
			case FormatInt16:
				h.Int16(make([]int16, n))
			case FormatInt32:
				h.Int32(make([]int32, n))
			case FormatFloat32:
				h.Float32(make([]float32, n))
			}

			if err := w.Finalize(); err != nil {
				t.Fatalf("Finalize: %v", err)
			}

			got := readWavHeader(t, path)
			want := wavHeader{
				channels:   tt.cfg.Channels,
				sampleRate: tt.cfg.SampleRate,
				bits:       spec.BitsPerSample,
				format:     tt.format,
				pcmLen:     int64(100 * spec.BlockAlign()),
			}
			if got != want {
				t.Errorf("header = %+v, want %+v", got, want)
			}
			if s := w.Stats(); s.Frames != 100 || s.Dropped != 0 {
				t.Errorf("stats = %+v", s)
			}
		})
	}
}

func TestWriterEmptyRecordingIsValid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.wav")
	w, err := CreateWriter(path, ResolveSpec(StreamConfig{2, 48000, FormatFloat32}), WriterOptions{})
	if err != nil {
		t.Fatalf("CreateWriter: %v", err)
	}
	if err := w.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if got := readWavHeader(t, path); got.pcmLen != 0 || got.channels != 2 {
		t.Errorf("header = %+v", got)
	}
}

func TestWriterFinalizeIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.wav")
	w, err := CreateWriter(path, ResolveSpec(StreamConfig{1, 8000, FormatInt16}), WriterOptions{})
	if err != nil {
		t.Fatalf("CreateWriter: %v", err)
	}
	writeInput[int16, int16](w, []int16{1, 2, 3})

	if err := w.Finalize(); err != nil {
		t.Fatalf("first Finalize: %v", err)
	}
	if err := w.Finalize(); err != nil {
		t.Fatalf("second Finalize: %v", err)
	}

	// Buffers after finalize are dropped, not written.
	writeInput[int16, int16](w, []int16{4, 5})
	if s := w.Stats(); s.Frames != 3 || s.Dropped != 2 {
		t.Errorf("stats = %+v", s)
	}
	if got := readWavHeader(t, path); got.pcmLen != 6 {
		t.Errorf("pcmLen = %d, want 6", got.pcmLen)
	}
}

func TestWriterPartialFrameDropped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.wav")
	w, err := CreateWriter(path, ResolveSpec(StreamConfig{2, 8000, FormatInt16}), WriterOptions{})
	if err != nil {
		t.Fatalf("CreateWriter: %v", err)
	}
	writeInput[int16, int16](w, []int16{1, 2, 3, 4, 5})
	if err := w.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if s := w.Stats(); s.Frames != 2 || s.Dropped != 1 {
		t.Errorf("stats = %+v", s)
	}
}

func TestWriterInt8Unsigned(t *testing.T) {
	path := filepath.Join(t.TempDir(), "u8.wav")
	w, err := CreateWriter(path, ResolveSpec(StreamConfig{1, 8000, FormatInt8}), WriterOptions{})
	if err != nil {
		t.Fatalf("CreateWriter: %v", err)
	}
	writeInput[int8, int8](w, []int8{-128, 0, 127})
	if err := w.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	tail := data[len(data)-3:]
	if tail[0] != 0 || tail[1] != 128 || tail[2] != 255 {
		t.Errorf("pcm bytes = %v, want [0 128 255]", tail)
	}
}

func TestCreateWriterErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := CreateWriter(filepath.Join(dir, "missing", "x.wav"), ResolveSpec(StreamConfig{1, 8000, FormatInt16}), WriterOptions{})
	if !errors.Is(err, ErrFileCreate) {
		t.Errorf("missing dir: expected ErrFileCreate, got %v", err)
	}

	_, err = CreateWriter(filepath.Join(dir, "y.wav"), WavSpec{Channels: 1, SampleRate: 8000, BitsPerSample: 24}, WriterOptions{})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("24 bit: expected ErrUnsupportedFormat, got %v", err)
	}

	_, err = CreateWriter(filepath.Join(dir, "z.wav"), WavSpec{Channels: 0, SampleRate: 8000, BitsPerSample: 16}, WriterOptions{})
	if !errors.Is(err, ErrFileCreate) {
		t.Errorf("zero channels: expected ErrFileCreate, got %v", err)
	}
}

func TestWriterConcurrentInput(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping pressure test in short mode")
	}

	for _, queue := range []int{0, 8} {
		t.Run(map[int]string{0: "trylock", 8: "queued"}[queue], func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "pressure.wav")
			spec := ResolveSpec(StreamConfig{2, 48000, FormatFloat32})
			w, err := CreateWriter(path, spec, WriterOptions{QueueSize: queue})
			if err != nil {
				t.Fatalf("CreateWriter: %v", err)
			}

			const (
				workers = 4
				buffers = 200
				size    = 480 * 2
			)
			var wg sync.WaitGroup
			for range workers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					buf := make([]float32, size)
					for range buffers {
						writeInput[float32, float32](w, buf)
					}
				}()
			}
			wg.Wait()

			if err := w.Finalize(); err != nil {
				t.Fatalf("Finalize: %v", err)
			}

			s := w.Stats()
			total := uint64(workers * buffers * size)
			if s.Frames*2+s.Dropped != total {
				t.Errorf("frames*2 + dropped = %d, want %d (%+v)", s.Frames*2+s.Dropped, total, s)
			}
			if s.Failed != 0 {
				t.Errorf("failed = %d", s.Failed)
			}
			if got := readWavHeader(t, path); got.pcmLen != int64(s.Frames)*int64(spec.BlockAlign()) {
				t.Errorf("pcmLen = %d, frames = %d", got.pcmLen, s.Frames)
			}
		})
	}
}

func TestWriterFinalizeUnderInput(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping pressure test in short mode")
	}

	for _, queue := range []int{0, 4} {
		t.Run(map[int]string{0: "trylock", 4: "queued"}[queue], func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "finalize.wav")
			spec := ResolveSpec(StreamConfig{1, 8000, FormatInt16})
			w, err := CreateWriter(path, spec, WriterOptions{QueueSize: queue})
			if err != nil {
				t.Fatalf("CreateWriter: %v", err)
			}
			h, err := handlerFor(FormatInt16, w)
			if err != nil {
				t.Fatal(err)
			}

			const (
				workers = 8
				size    = 64
			)
			var (
				wg        sync.WaitGroup
				quit      atomic.Bool
				delivered atomic.Uint64
			)
			for range workers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					buf := make([]int16, size)
					for i := range buf {
						buf[i] = 7
					}
					for !quit.Load() {
						h.Int16(buf)
						delivered.Add(size)
					}
				}()
			}

			time.Sleep(20 * time.Millisecond)
			finalized := make(chan error, 1)
			go func() { finalized <- w.Finalize() }()
			select {
			case err := <-finalized:
				if err != nil {
					t.Fatalf("Finalize: %v", err)
				}
			case <-time.After(5 * time.Second):
				t.Fatal("Finalize blocked while input was arriving")
			}

			// Keep delivering after finalize, then stop.
			time.Sleep(5 * time.Millisecond)
			quit.Store(true)
			wg.Wait()

			s := w.Stats()
			if s.Frames+s.Dropped+s.Failed != delivered.Load() {
				t.Errorf("frames + dropped + failed = %d, delivered %d (%+v)",
					s.Frames+s.Dropped+s.Failed, delivered.Load(), s)
			}

			hdr := readWavHeader(t, path)
			if hdr.pcmLen != int64(s.Frames)*int64(spec.BlockAlign()) {
				t.Fatalf("pcmLen = %d, frames = %d", hdr.pcmLen, s.Frames)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			pcm := data[len(data)-int(hdr.pcmLen):]
			for i := 0; i+1 < len(pcm); i += 2 {
				if v := int16(binary.LittleEndian.Uint16(pcm[i:])); v != 7 {
					t.Fatalf("sample %d = %d, want 7", i/2, v)
				}
			}
		})
	}
}

func TestWriterQueuedConverts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queued.wav")
	w, err := CreateWriter(path, ResolveSpec(StreamConfig{1, 8000, FormatInt16}), WriterOptions{QueueSize: 4})
	if err != nil {
		t.Fatalf("CreateWriter: %v", err)
	}

	buf := []int16{10, 20, 30, 40}
	writeInput[int16, int16](w, buf)
	// The queued path copies, so reusing the buffer must not change output.
	buf[0] = 99

	if err := w.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if err := w.Finalize(); err != nil {
		t.Fatalf("second Finalize: %v", err)
	}

	s := w.Stats()
	if s.Frames+s.Dropped != 4 {
		t.Fatalf("stats = %+v", s)
	}
	if s.Frames == 4 {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if first := int16(data[len(data)-8]) | int16(data[len(data)-7])<<8; first != 10 {
			t.Errorf("first sample = %d, want 10", first)
		}
	}
}
