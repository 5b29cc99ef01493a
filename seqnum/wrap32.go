// Package seqnum implements the isomorphism between 32-bit wrapping TCP
// sequence numbers and 64-bit absolute stream indices.
package seqnum

// Wrap32 is a 32-bit wrapping sequence number, immutable once constructed.
type Wrap32 uint32

// Wrap computes the 32-bit sequence number for absolute index n relative to
// zeroPoint: zeroPoint + (n mod 2^32), performed in 32-bit arithmetic.
func Wrap(n uint64, zeroPoint Wrap32) Wrap32 {
	return zeroPoint + Wrap32(uint32(n))
}

// Unwrap returns the absolute 64-bit index x such that Wrap(x, zeroPoint)
// equals w, choosing the x closest to checkpoint (ties broken toward the
// smaller x).
func (w Wrap32) Unwrap(zeroPoint Wrap32, checkpoint uint64) uint64 {
	d := uint64(uint32(w - zeroPoint))

	const wrapSpan = uint64(1) << 32
	base := checkpoint &^ (wrapSpan - 1)
	candidate := base | d

	best := candidate
	bestDist := absDiff(candidate, checkpoint)

	// A smaller x is preferred on ties, so accept "down" with <= but "up" only
	// with strict improvement.
	if candidate >= wrapSpan {
		down := candidate - wrapSpan
		if d := absDiff(down, checkpoint); d <= bestDist {
			best, bestDist = down, d
		}
	}
	if up := candidate + wrapSpan; up > candidate { // guard 64-bit overflow
		if d := absDiff(up, checkpoint); d < bestDist {
			best, bestDist = up, d
		}
	}
	return best
}

func absDiff(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}
