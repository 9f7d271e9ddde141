package audiocapture

import "math"

// Sample is the set of in-memory sample types a device can deliver.
type Sample interface {
	int8 | int16 | int32 | float32
}

func sampleKind[T Sample]() (bits int, float bool) {
	var zero T
	switch any(zero).(type) {
	case int8:
		return 8, false
	case int16:
		return 16, false
	case int32:
		return 32, false
	}
	return 32, true
}

// Convert maps one sample from representation T to representation U.
//
// Integer widths scale by bit shifting, integers map to floats in [-1, 1),
// and floats are clamped to [-1, 1] before scaling to an integer range.
// Converting a type to itself returns v unchanged.
func Convert[T, U Sample](v T) U {
	srcBits, srcFloat := sampleKind[T]()
	dstBits, dstFloat := sampleKind[U]()

	switch {
	case srcFloat && dstFloat:
		return U(v)
	case !srcFloat && !dstFloat:
		iv := int64(v)
		if dstBits >= srcBits {
			return U(iv << (dstBits - srcBits))
		}
		return U(iv >> (srcBits - dstBits))
	case !srcFloat:
		return U(float64(v) / float64(int64(1)<<(srcBits-1)))
	}

	f := float64(v)
	if math.IsNaN(f) {
		return 0
	}
	scale := float64(int64(1) << (dstBits - 1))
	x := math.Round(math.Max(-1, math.Min(1, f)) * scale)
	if x > scale-1 {
		x = scale - 1
	}
	return U(int64(x))
}

// convertSlice converts in into out, which must be at least as long.
func convertSlice[T, U Sample](out []U, in []T) {
	for i, s := range in {
		out[i] = Convert[T, U](s)
	}
}
