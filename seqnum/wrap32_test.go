package seqnum

import "testing"

func TestWrapBasic(t *testing.T) {
	const zero = Wrap32(0x80000000)
	got := Wrap(uint64(1)<<32+7, zero)
	if want := Wrap32(0x80000007); got != want {
		t.Fatalf("Wrap = %#x, want %#x", uint32(got), uint32(want))
	}
}

func TestUnwrapRoundTrip(t *testing.T) {
	const zero = Wrap32(0x80000000)
	got := Wrap32(0x80000007).Unwrap(zero, uint64(1)<<32)
	if want := uint64(1)<<32 + 7; got != want {
		t.Fatalf("Unwrap = %d, want %d", got, want)
	}
}

func TestUnwrapClosestToCheckpoint(t *testing.T) {
	tests := []struct {
		name       string
		n          Wrap32
		zero       Wrap32
		checkpoint uint64
		want       uint64
	}{
		{"zero checkpoint", 0, 0, 0, 0},
		{"small n near zero checkpoint", 17, 0, 0, 17},
		{"wraps forward from near top of window", 4, ^Wrap32(0), 0, 5},
		{"stays put when checkpoint already close", 0x10, 0, 0x10, 0x10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.n.Unwrap(tt.zero, tt.checkpoint); got != tt.want {
				t.Fatalf("Unwrap = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestUnwrapRoundTripProperty(t *testing.T) {
	const zero = Wrap32(1000)
	checkpoints := []uint64{0, 1, 1 << 16, 1 << 30, 1<<32 - 1, 1 << 32, 1<<32 + 1<<20}
	offsets := []int64{0, 1, -1, 1 << 20, -(1 << 20), 1<<31 - 1, -(1<<31 - 1)}
	for _, c := range checkpoints {
		for _, off := range offsets {
			n := int64(c) + off
			if n < 0 {
				continue
			}
			w := Wrap(uint64(n), zero)
			if got := w.Unwrap(zero, c); got != uint64(n) {
				t.Fatalf("Unwrap(Wrap(%d), checkpoint=%d) = %d, want %d", n, c, got, n)
			}
		}
	}
}

func TestTieBreaksTowardSmaller(t *testing.T) {
	// checkpoint exactly halfway between two candidates differing by 2^32:
	// the smaller one must win.
	const zero = Wrap32(0)
	w := Wrap32(0) // d = 0
	checkpoint := uint64(1) << 31
	got := w.Unwrap(zero, checkpoint)
	if got != 0 {
		t.Fatalf("Unwrap = %d, want 0 (tie should favor smaller x)", got)
	}
}
