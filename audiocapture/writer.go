package audiocapture

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WriterOptions tunes a Writer.
type WriterOptions struct {
	// QueueSize switches the Writer to the queued write path: device buffers
	// are converted, copied into a bounded queue of QueueSize entries and
	// encoded by a dedicated goroutine. A full queue drops the buffer.
	// Zero writes inline under a try-lock and drops on contention.
	QueueSize int
}

// WriterStats counts what happened to delivered samples.
type WriterStats struct {
	Frames  uint64 `json:"frames"`  // interleaved frames encoded
	Dropped uint64 `json:"dropped"` // samples dropped on contention, full queue or partial frame
	Failed  uint64 `json:"failed"`  // samples whose encode failed

	Peak float64 `json:"peak"` // highest absolute encoded sample, 0..1
	RMS  float64 `json:"rms"`  // root mean square of encoded samples, 0..1
}

// Writer streams sample frames into a WAV file. It is safe to feed from a
// real-time callback: the callback never blocks on the Writer.
type Writer struct {
	mu   sync.Mutex
	file *wavFile // nil once finalized

	spec WavSpec
	path string

	frames  atomic.Uint64
	dropped atomic.Uint64
	failed  atomic.Uint64
	level   levelMeter

	// queued write path
	queue    chan func(*wavFile)
	stop     chan struct{}
	done     chan struct{}
	sendMu   sync.RWMutex // held for reading across a send, for writing to set stopped
	stopped  bool
	stopOnce sync.Once
}

// CreateWriter creates the file at path and commits the WAV header for spec.
func CreateWriter(path string, spec WavSpec, opts WriterOptions) (*Writer, error) {
	if spec.Channels < 1 || spec.SampleRate < 1 {
		return nil, fmt.Errorf("%w: invalid wav spec %+v", ErrFileCreate, spec)
	}
	switch spec.BitsPerSample {
	case 8, 16, 32:
	default:
		return nil, fmt.Errorf("%w: %d bits per sample", ErrUnsupportedFormat, spec.BitsPerSample)
	}

	wf, err := createWavFile(path, spec)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFileCreate, err)
	}

	w := &Writer{file: wf, spec: spec, path: path}
	if opts.QueueSize > 0 {
		w.queue = make(chan func(*wavFile), opts.QueueSize)
		w.stop = make(chan struct{})
		w.done = make(chan struct{})
		go w.drain()
	}
	return w, nil
}

// Path returns the file the Writer encodes into.
func (w *Writer) Path() string { return w.path }

// Spec returns the container spec committed to the header.
func (w *Writer) Spec() WavSpec { return w.spec }

// Stats returns a snapshot of the write counters.
func (w *Writer) Stats() WriterStats {
	return WriterStats{
		Frames:  w.frames.Load(),
		Dropped: w.dropped.Load(),
		Failed:  w.failed.Load(),
		Peak:    w.level.Peak(),
		RMS:     w.level.RMS(),
	}
}

// Finalize patches the header sizes, flushes and closes the file. Only the
// first call does any work; later calls return nil.
func (w *Writer) Finalize() error {
	if w.queue != nil {
		w.stopOnce.Do(func() {
			// After this no send is in flight, so drain sees every queued buffer.
			w.sendMu.Lock()
			w.stopped = true
			w.sendMu.Unlock()
			close(w.stop)
		})
		<-w.done
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	wf := w.file
	if wf == nil {
		return nil
	}
	w.file = nil

	if err := wf.close(); err != nil {
		return fmt.Errorf("%w: %w", ErrFinalize, err)
	}
	return nil
}

// writeInput converts one device buffer of T samples into the Writer's
// output representation U and appends it.
func writeInput[T, U Sample](w *Writer, in []T) {
	if len(in) == 0 {
		return
	}
	if w.queue != nil {
		enqueueInput[T, U](w, in)
		return
	}

	if !w.mu.TryLock() {
		w.dropped.Add(uint64(len(in)))
		return
	}
	defer w.mu.Unlock()

	if w.file == nil {
		w.dropped.Add(uint64(len(in)))
		return
	}
	writeFrames[T, U](w, w.file, in)
}

func enqueueInput[T, U Sample](w *Writer, in []T) {
	// Finalize holds the write lock only to flip stopped; count that as
	// contention rather than wait.
	if !w.sendMu.TryRLock() {
		w.dropped.Add(uint64(len(in)))
		return
	}
	defer w.sendMu.RUnlock()

	if w.stopped {
		w.dropped.Add(uint64(len(in)))
		return
	}

	// Devices reuse their buffers, so convert into a private copy now.
	out := make([]U, len(in))
	convertSlice(out, in)

	select {
	case w.queue <- func(wf *wavFile) { writeFrames[U, U](w, wf, out) }:
	default:
		w.dropped.Add(uint64(len(in)))
	}
}

func (w *Writer) drain() {
	defer close(w.done)

	run := func(task func(*wavFile)) {
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.file != nil {
			task(w.file)
		}
	}

	for {
		select {
		case task := <-w.queue:
			run(task)
		case <-w.stop:
			for {
				select {
				case task := <-w.queue:
					run(task)
				default:
					return
				}
			}
		}
	}
}

// writeFrames encodes whole interleaved frames of in. Must be called with
// w.mu held.
func writeFrames[T, U Sample](w *Writer, wf *wavFile, in []T) {
	ch := w.spec.Channels
	whole := len(in) - len(in)%ch
	frame := make([]U, ch)

	var peak, sumSq float64
	var n int
	for i := 0; i < whole; i += ch {
		convertSlice(frame, in[i:i+ch])
		if err := wf.writeFrame(frame); err != nil {
			w.failed.Add(uint64(ch))
			continue
		}
		w.frames.Add(1)

		p, sq := measure(frame)
		peak = max(peak, p)
		sumSq += sq
		n += ch
	}
	w.level.add(peak, sumSq, n)
	if rest := len(in) - whole; rest > 0 {
		w.dropped.Add(uint64(rest))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// WAV file
// ─────────────────────────────────────────────────────────────────────────────

// wavFile is a go-audio/wav encoder over a buffered file. The encoder needs
// an io.WriteSeeker, so Seek flushes pending writes before moving.
type wavFile struct {
	f   *os.File
	bw  *bufio.Writer
	enc *wav.Encoder
	u8  []uint8
}

var _ io.WriteSeeker = (*wavFile)(nil)

func createWavFile(path string, spec WavSpec) (*wavFile, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	wf := &wavFile{f: f, bw: bufio.NewWriterSize(f, 64<<10)}
	wf.enc = wav.NewEncoder(wf, spec.SampleRate, spec.BitsPerSample, spec.Channels, spec.Encoding.wavFormatTag())

	// An empty buffer commits the RIFF, fmt and data chunk headers.
	header := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: spec.Channels, SampleRate: spec.SampleRate},
		SourceBitDepth: spec.BitsPerSample,
	}
	if err := wf.enc.Write(header); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("write header: %w", err)
	}
	if err := wf.bw.Flush(); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("write header: %w", err)
	}
	return wf, nil
}

func (wf *wavFile) Write(p []byte) (int, error) {
	return wf.bw.Write(p)
}

func (wf *wavFile) Seek(offset int64, whence int) (int64, error) {
	if err := wf.bw.Flush(); err != nil {
		return 0, err
	}
	return wf.f.Seek(offset, whence)
}

// writeFrame appends one interleaved frame. 8-bit WAV data is unsigned, so
// signed 8-bit samples are offset by 128.
func (wf *wavFile) writeFrame(frame any) error {
	if s8, ok := frame.([]int8); ok {
		if cap(wf.u8) < len(s8) {
			wf.u8 = make([]uint8, len(s8))
		}
		wf.u8 = wf.u8[:len(s8)]
		for i, v := range s8 {
			wf.u8[i] = uint8(int16(v) + 128)
		}
		return wf.enc.WriteFrame(wf.u8)
	}
	return wf.enc.WriteFrame(frame)
}

func (wf *wavFile) close() error {
	encErr := wf.enc.Close()
	flushErr := wf.bw.Flush()
	syncErr := wf.f.Sync()
	closeErr := wf.f.Close()
	return errors.Join(encErr, flushErr, syncErr, closeErr)
}
