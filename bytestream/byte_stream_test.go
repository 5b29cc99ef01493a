package bytestream

import "testing"

func TestPushTruncatesToCapacity(t *testing.T) {
	bs := New(5)
	w, r := bs.Writer(), bs.Reader()

	n := w.Push([]byte("abcdef"))
	if n != 5 {
		t.Fatalf("Push returned %d, want 5", n)
	}
	if got := w.AvailableCapacity(); got != 0 {
		t.Fatalf("AvailableCapacity = %d, want 0", got)
	}
	if got := r.BufferedBytes(); got != 5 {
		t.Fatalf("BufferedBytes = %d, want 5", got)
	}
	if got := string(r.Peek()); got != "abcde" {
		t.Fatalf("Peek = %q, want %q", got, "abcde")
	}

	r.Pop(3)
	w.Push([]byte("xy"))
	if got := string(r.Peek()); got != "dexy" {
		t.Fatalf("Peek after wraparound = %q, want %q", got, "dexy")
	}
}

func TestPushAfterCloseIsNoOp(t *testing.T) {
	bs := New(10)
	w, r := bs.Writer(), bs.Reader()

	w.Push([]byte("ab"))
	w.Close()
	if n := w.Push([]byte("cd")); n != 0 {
		t.Fatalf("Push after Close returned %d, want 0", n)
	}
	if got := r.BufferedBytes(); got != 2 {
		t.Fatalf("BufferedBytes = %d, want 2", got)
	}
}

func TestIsFinished(t *testing.T) {
	bs := New(4)
	w, r := bs.Writer(), bs.Reader()

	w.Push([]byte("ab"))
	w.Close()
	if r.IsFinished() {
		t.Fatal("IsFinished true before drain")
	}
	r.Pop(2)
	if !r.IsFinished() {
		t.Fatal("IsFinished false after close+drain")
	}
}

func TestSetErrorIsAdvisoryOnly(t *testing.T) {
	bs := New(4)
	w, r := bs.Writer(), bs.Reader()

	w.SetError()
	if !r.HasError() {
		t.Fatal("HasError false after SetError")
	}
	if n := w.Push([]byte("ab")); n != 2 {
		t.Fatalf("Push after SetError returned %d, want 2 (error flag must not affect buffering)", n)
	}
}

func TestMonotoneCounts(t *testing.T) {
	bs := New(4)
	w, r := bs.Writer(), bs.Reader()

	for i := 0; i < 3; i++ {
		w.Push([]byte("ab"))
		r.Pop(1)
	}
	if w.BytesPushed() != 6 {
		t.Fatalf("BytesPushed = %d, want 6", w.BytesPushed())
	}
	if r.BytesPopped() != 3 {
		t.Fatalf("BytesPopped = %d, want 3", r.BytesPopped())
	}
	if got := r.BufferedBytes(); got != int(w.BytesPushed()-r.BytesPopped()) {
		t.Fatalf("buffered = %d, want pushed-popped = %d", got, w.BytesPushed()-r.BytesPopped())
	}
}
