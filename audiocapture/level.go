package audiocapture

import (
	"math"
	"sync/atomic"
)

// SilenceThreshold is the peak level, on a [0, 1] scale, below which a
// recording is reported as silent. A muted or idle output device still
// delivers buffers, they are just all zero.
const SilenceThreshold = 1.0 / 1024

// levelMeter tracks the peak and RMS level of encoded samples. add runs with
// the Writer lock held; the getters may run on any goroutine.
type levelMeter struct {
	peak  atomic.Uint64 // math.Float64bits
	sumSq atomic.Uint64 // math.Float64bits
	count atomic.Uint64
}

func (m *levelMeter) add(peak, sumSq float64, n int) {
	if n == 0 {
		return
	}
	if peak > math.Float64frombits(m.peak.Load()) {
		m.peak.Store(math.Float64bits(peak))
	}
	m.sumSq.Store(math.Float64bits(math.Float64frombits(m.sumSq.Load()) + sumSq))
	m.count.Add(uint64(n))
}

func (m *levelMeter) Peak() float64 {
	return math.Float64frombits(m.peak.Load())
}

func (m *levelMeter) RMS() float64 {
	n := m.count.Load()
	if n == 0 {
		return 0
	}
	return math.Sqrt(math.Float64frombits(m.sumSq.Load()) / float64(n))
}

// measure returns the absolute peak and the sum of squares of samples,
// normalized to [0, 1].
func measure[U Sample](samples []U) (peak, sumSq float64) {
	for _, s := range samples {
		v := math.Abs(float64(Convert[U, float32](s)))
		if math.IsNaN(v) {
			continue
		}
		if v > 1 {
			v = 1
		}
		if v > peak {
			peak = v
		}
		sumSq += v * v
	}
	return peak, sumSq
}

// Silent reports whether no encoded sample reached SilenceThreshold.
func (s WriterStats) Silent() bool {
	return s.Peak < SilenceThreshold
}
