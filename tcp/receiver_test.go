package tcp

import (
	"testing"

	"tcpstack/bytestream"
	"tcpstack/seqnum"
)

func TestReceiverDropsSegmentsBeforeSyn(t *testing.T) {
	bs := bytestream.New(16)
	rc := NewReceiver()

	rc.Receive(SenderMessage{Seqno: seqnum.Wrap32(5), Payload: []byte("hi")}, bs.Writer())
	if bs.Reader().BufferedBytes() != 0 {
		t.Fatal("data arriving before SYN must be dropped")
	}
	msg := rc.Send(bs.Writer())
	if msg.HasAckno {
		t.Fatal("no ackno should be produced while still in LISTEN")
	}
}

func TestReceiverEstablishesOnSyn(t *testing.T) {
	bs := bytestream.New(16)
	rc := NewReceiver()

	rc.Receive(SenderMessage{Seqno: seqnum.Wrap32(0), SYN: true, Payload: []byte("ab")}, bs.Writer())

	msg := rc.Send(bs.Writer())
	if !msg.HasAckno {
		t.Fatal("expected an ackno once established")
	}
	if msg.Ackno != seqnum.Wrap32(3) {
		t.Fatalf("ackno = %v, want 3 (SYN + 2 bytes)", msg.Ackno)
	}
	if bs.Reader().Peek()[0] != 'a' {
		t.Fatal("payload should have been pushed into the stream")
	}
}

func TestReceiverAcknowledgesFin(t *testing.T) {
	bs := bytestream.New(16)
	rc := NewReceiver()

	rc.Receive(SenderMessage{Seqno: seqnum.Wrap32(0), SYN: true, Payload: []byte("ab"), FIN: true}, bs.Writer())
	bs.Reader().Pop(2)

	msg := rc.Send(bs.Writer())
	if msg.Ackno != seqnum.Wrap32(4) {
		t.Fatalf("ackno = %v, want 4 (SYN + 2 bytes + FIN)", msg.Ackno)
	}
}

func TestReceiverWindowSizeCapsAt65535(t *testing.T) {
	bs := bytestream.New(1 << 20)
	rc := NewReceiver()
	rc.Receive(SenderMessage{Seqno: seqnum.Wrap32(0), SYN: true}, bs.Writer())

	msg := rc.Send(bs.Writer())
	if msg.WindowSize != 65535 {
		t.Fatalf("window_size = %d, want 65535 cap", msg.WindowSize)
	}
}

func TestReceiverOutOfOrderSegmentBuffersUntilGapFills(t *testing.T) {
	bs := bytestream.New(16)
	rc := NewReceiver()
	w := bs.Writer()

	rc.Receive(SenderMessage{Seqno: seqnum.Wrap32(0), SYN: true}, w)
	rc.Receive(SenderMessage{Seqno: seqnum.Wrap32(3), Payload: []byte("cd")}, w)
	if bs.Reader().BufferedBytes() != 0 {
		t.Fatal("out-of-order payload must not be released early")
	}

	rc.Receive(SenderMessage{Seqno: seqnum.Wrap32(1), Payload: []byte("ab")}, w)
	if string(bs.Reader().Peek()) != "abcd" {
		t.Fatalf("buffered = %q, want %q once the gap fills", bs.Reader().Peek(), "abcd")
	}
}
