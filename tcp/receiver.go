package tcp

import (
	"tcpstack/bytestream"
	"tcpstack/reassembler"
	"tcpstack/seqnum"
)

// receiverState is the small state machine a Receiver walks through: it
// starts out waiting for the initial SYN, moves to established once it has
// seen one, and settles into closed once its writer has been closed by the
// reassembler.
type receiverState int

const (
	stateListen receiverState = iota
	stateEstablished
	stateClosed
)

// Receiver consumes segments from a TCPSender, translates their 32-bit
// wrapping sequence numbers into absolute stream indices, drives a
// Reassembler, and produces acknowledgement/window messages. One Receiver
// serves one inbound half-connection; it is not safe for concurrent use.
type Receiver struct {
	reassembler *reassembler.Reassembler

	state     receiverState
	zeroPoint seqnum.Wrap32
}

// NewReceiver constructs a Receiver in the LISTEN state.
func NewReceiver() *Receiver {
	return &Receiver{reassembler: reassembler.New()}
}

// Receive applies an inbound segment: if it carries SYN and no SYN has been
// seen yet, the receiver's zero point is set and it transitions out of
// LISTEN. Segments arriving before a SYN has been seen are dropped. The
// payload is handed to the Reassembler at its absolute stream index.
func (rc *Receiver) Receive(msg SenderMessage, w bytestream.Writer) {
	if msg.SYN && rc.state == stateListen {
		rc.zeroPoint = msg.Seqno
		rc.state = stateEstablished
	}
	if rc.state == stateListen {
		return
	}

	firstIndex := msg.Seqno.Unwrap(rc.zeroPoint, w.BytesPushed()) - 1
	if msg.SYN {
		firstIndex++
	}

	rc.reassembler.Insert(firstIndex, msg.Payload, msg.FIN, w)

	if w.IsClosed() {
		rc.state = stateClosed
	}
}

// Send produces the next outbound acknowledgement/window message for the
// current state of w. While in LISTEN, no SYN has been seen yet and no
// ackno can be produced.
func (rc *Receiver) Send(w bytestream.Writer) ReceiverMessage {
	windowSize := w.AvailableCapacity()
	if windowSize > 65535 {
		windowSize = 65535
	}

	if rc.state == stateListen {
		return ReceiverMessage{WindowSize: uint16(windowSize)}
	}

	ackDelta := uint64(1)
	if w.IsClosed() {
		ackDelta++
	}
	ackno := seqnum.Wrap(w.BytesPushed()+ackDelta, rc.zeroPoint)
	return ReceiverMessage{Ackno: ackno, HasAckno: true, WindowSize: uint16(windowSize)}
}
