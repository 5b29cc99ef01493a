package tcp

import (
	"container/heap"

	"tcpstack/bytestream"
	"tcpstack/seqnum"
)

// MaxPayloadSize bounds how many bytes of data a single emitted segment may
// carry. It is an implementation detail, never visible on the wire.
const MaxPayloadSize = 1452

// Sender reads from a bytestream.Reader, emits segments respecting the
// peer's advertised window, tracks outstanding segments for retransmission,
// and backs off its retransmission timer exponentially. One Sender serves
// one outbound half-connection; it is not safe for concurrent use.
type Sender struct {
	isn         seqnum.Wrap32
	initialRTO  uint64
	currentRTO  uint64
	consecutive int

	windowLeft uint64 // absolute seqno of the first unacknowledged byte/flag
	nextSeqno  uint64 // absolute seqno of the next byte/flag to send
	windowSize uint16 // last value advertised by the peer

	synPushed bool
	finPushed bool

	outstanding map[uint64]*outstandingSegment
	heap        outstandingHeap

	sendQueue []SenderMessage

	timerRunning   bool
	timerRemaining int64 // ms remaining until expiry; meaningful only while running
}

// NewSender constructs a Sender with the given initial sequence number and
// initial retransmission timeout, in milliseconds.
func NewSender(isn seqnum.Wrap32, initialRTOMillis uint64) *Sender {
	return &Sender{
		isn:         isn,
		initialRTO:  initialRTOMillis,
		currentRTO:  initialRTOMillis,
		windowSize:  1, // so a SYN can be sent before any window has been advertised
		outstanding: make(map[uint64]*outstandingSegment),
	}
}

// Push draws as much as the peer's window permits from r and enqueues the
// resulting segments, tracking each for retransmission. A zero advertised
// window is treated as a window of one, for probing.
func (s *Sender) Push(r bytestream.Reader) {
	if !s.synPushed {
		fin := r.IsFinished() && r.BufferedBytes() == 0
		s.enqueueAndTrack(SenderMessage{Seqno: seqnum.Wrap(s.nextSeqno, s.isn), SYN: true, FIN: fin})
		s.synPushed = true
		if fin {
			s.finPushed = true
		}
	}

	windowRight := s.windowLeft + max(uint64(s.windowSize), 1)
	for !s.finPushed && s.nextSeqno < windowRight {
		avail := windowRight - s.nextSeqno
		n := min(uint64(MaxPayloadSize), avail)

		peeked := r.Peek()
		take := min(n, uint64(len(peeked)))
		payload := append([]byte(nil), peeked[:take]...)
		r.Pop(int(take))

		fin := r.IsFinished() && r.BufferedBytes() == 0 && s.nextSeqno+take+1 <= windowRight
		if len(payload) == 0 && !fin {
			break
		}

		s.enqueueAndTrack(SenderMessage{Seqno: seqnum.Wrap(s.nextSeqno, s.isn), Payload: payload, FIN: fin})
		if fin {
			s.finPushed = true
		}
	}
}

func (s *Sender) enqueueAndTrack(msg SenderMessage) {
	seg := &outstandingSegment{seqno: s.nextSeqno, msg: msg}
	s.outstanding[seg.seqno] = seg
	heap.Push(&s.heap, seg)
	s.nextSeqno += seg.length()
	s.sendQueue = append(s.sendQueue, msg)
}

// MaybeSend pops the oldest queued-but-not-yet-handed-to-the-host segment,
// if any. The first segment popped while the retransmission timer is
// stopped starts it.
func (s *Sender) MaybeSend() (SenderMessage, bool) {
	if len(s.sendQueue) == 0 {
		return SenderMessage{}, false
	}
	msg := s.sendQueue[0]
	s.sendQueue = s.sendQueue[1:]
	if !s.timerRunning {
		s.timerRunning = true
		s.timerRemaining = int64(s.currentRTO)
	}
	return msg, true
}

// Receive applies an inbound acknowledgement/window message.
func (s *Sender) Receive(msg ReceiverMessage) {
	if !msg.HasAckno {
		s.windowSize = msg.WindowSize
		return
	}

	absoluteAckno := msg.Ackno.Unwrap(s.isn, s.windowLeft)
	if absoluteAckno > s.nextSeqno {
		return // impossibly-high ack
	}

	removedAny := false
	for s.heap.Len() > 0 && s.heap[0].tail() <= absoluteAckno {
		seg := heap.Pop(&s.heap).(*outstandingSegment)
		delete(s.outstanding, seg.seqno)
		removedAny = true
	}

	if removedAny {
		s.windowLeft = absoluteAckno
		s.currentRTO = s.initialRTO
		s.consecutive = 0
		if s.heap.Len() > 0 {
			s.timerRunning = true
			s.timerRemaining = int64(s.currentRTO)
		} else {
			s.timerRunning = false
		}
	}

	s.windowSize = msg.WindowSize
}

// Tick advances the retransmission timer by ms milliseconds. On expiry, the
// earliest outstanding segment is re-enqueued, and current_RTO is doubled
// unless the last-advertised window was zero (a zero-window probe does not
// trigger backoff).
func (s *Sender) Tick(ms uint64) {
	if !s.timerRunning {
		return
	}
	s.timerRemaining -= int64(ms)
	if s.timerRemaining > 0 {
		return
	}

	if s.heap.Len() > 0 {
		s.sendQueue = append(s.sendQueue, s.heap[0].msg)
	}
	if s.windowSize > 0 {
		s.currentRTO *= 2
		s.consecutive++
	}
	s.timerRemaining = int64(s.currentRTO)
}

// SendEmptyMessage returns a bare TCPSenderMessage carrying only the
// current sequence number, used by the host to piggyback an ACK when
// nothing is outstanding. It is not tracked for retransmission and does not
// touch the timer.
func (s *Sender) SendEmptyMessage() SenderMessage {
	return SenderMessage{Seqno: seqnum.Wrap(s.nextSeqno, s.isn)}
}

// ConsecutiveRetransmissions returns how many back-to-back timeouts have
// fired since the last ack that advanced window_left.
func (s *Sender) ConsecutiveRetransmissions() int { return s.consecutive }

// CurrentRTO returns the current retransmission timeout, in milliseconds.
func (s *Sender) CurrentRTO() uint64 { return s.currentRTO }

// SequenceNumbersInFlight returns next_seqno - window_left: the span
// covered by outstanding segments.
func (s *Sender) SequenceNumbersInFlight() uint64 { return s.nextSeqno - s.windowLeft }

// TimerRunning reports whether the retransmission timer is currently armed.
func (s *Sender) TimerRunning() bool { return s.timerRunning }
