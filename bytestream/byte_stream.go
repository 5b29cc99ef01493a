// Package bytestream implements a capacity-bounded byte FIFO shared between
// a single writer and a single reader, the foundation the TCP sender and
// receiver read from and write into.
package bytestream

// ByteStream is a bounded producer/consumer byte buffer. It has exactly one
// writer role and one reader role, obtained via Writer and Reader; both
// views share all state (buffered bytes, closed flag, error flag) because
// they are backed by the same struct. ByteStream is not safe for concurrent
// use without external synchronization.
type ByteStream struct {
	buf    []byte // ring buffer of length capacity
	off    int    // index of the oldest buffered byte
	length int    // number of buffered bytes

	pushed  uint64
	popped  uint64
	closed  bool
	errored bool
}

// New constructs a ByteStream with the given capacity in bytes.
func New(capacity int) *ByteStream {
	return &ByteStream{buf: make([]byte, capacity)}
}

// Writer is the producer-only view of a ByteStream.
type Writer struct{ s *ByteStream }

// Reader is the consumer-only view of a ByteStream.
type Reader struct{ s *ByteStream }

// Writer returns the producer-only handle onto bs.
func (bs *ByteStream) Writer() Writer { return Writer{bs} }

// Reader returns the consumer-only handle onto bs.
func (bs *ByteStream) Reader() Reader { return Reader{bs} }

// Push appends as many bytes of data as available capacity permits,
// silently truncating the rest. Pushing after Close is a no-op.
func (w Writer) Push(data []byte) int {
	s := w.s
	if s.closed {
		return 0
	}
	n := min(len(data), s.availableCapacity())
	for i := 0; i < n; i++ {
		s.buf[(s.off+s.length+i)%len(s.buf)] = data[i]
	}
	s.length += n
	s.pushed += uint64(n)
	return n
}

// Close marks the stream closed; idempotent.
func (w Writer) Close() { w.s.closed = true }

// SetError marks the advisory error flag; idempotent. It does not change
// buffering behavior.
func (w Writer) SetError() { w.s.errored = true }

// AvailableCapacity returns how many more bytes Push can currently accept.
func (w Writer) AvailableCapacity() int { return w.s.availableCapacity() }

// BytesPushed returns the total number of bytes ever pushed.
func (w Writer) BytesPushed() uint64 { return w.s.pushed }

// IsClosed reports whether Close has been called.
func (w Writer) IsClosed() bool { return w.s.closed }

func (s *ByteStream) availableCapacity() int {
	return len(s.buf) - s.length
}

// Peek returns a contiguous view of the currently buffered bytes. If the
// buffered region wraps around the end of the underlying ring, Peek copies
// it into a freshly allocated contiguous slice; callers that want a
// zero-copy view of the first segment only may use PeekSegments.
func (r Reader) Peek() []byte {
	s := r.s
	if s.length == 0 {
		return nil
	}
	first, second := s.peekSegments()
	if len(second) == 0 {
		return first
	}
	out := make([]byte, len(first)+len(second))
	copy(out, first)
	copy(out[len(first):], second)
	return out
}

// PeekSegments returns the buffered bytes as up to two contiguous slices
// into the underlying ring buffer, avoiding a copy. The second slice is
// non-empty only when the buffered region wraps past the end of the ring.
func (r Reader) PeekSegments() (first, second []byte) {
	return r.s.peekSegments()
}

func (s *ByteStream) peekSegments() (first, second []byte) {
	if s.length == 0 {
		return nil, nil
	}
	end := s.off + s.length
	if end <= len(s.buf) {
		return s.buf[s.off:end], nil
	}
	return s.buf[s.off:], s.buf[:end-len(s.buf)]
}

// Pop removes min(n, buffered) bytes from the front of the stream.
func (r Reader) Pop(n int) int {
	s := r.s
	n = min(n, s.length)
	if n == 0 {
		return 0
	}
	s.off = (s.off + n) % len(s.buf)
	s.length -= n
	s.popped += uint64(n)
	return n
}

// BufferedBytes returns the number of bytes currently held, pushed but not
// yet popped.
func (r Reader) BufferedBytes() int { return r.s.length }

// BytesPopped returns the total number of bytes ever popped.
func (r Reader) BytesPopped() uint64 { return r.s.popped }

// IsFinished reports whether the stream is closed and fully drained.
func (r Reader) IsFinished() bool { return r.s.closed && r.s.length == 0 }

// HasError reports whether the advisory error flag has been set.
func (r Reader) HasError() bool { return r.s.errored }
