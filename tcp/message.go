// Package tcp implements the TCP receiver and sender half-connections: the
// pieces that translate a reliable byte stream into windowed, acknowledged,
// retransmitted segments.
package tcp

import "tcpstack/seqnum"

// SenderMessage is the logical shape of a segment emitted by a TCPSender.
// Wire encoding (into header.TCPFields and onward into an IPv4 datagram) is
// the host's responsibility; this type only carries what the sender and
// receiver state machines need to agree on.
type SenderMessage struct {
	Seqno   seqnum.Wrap32
	SYN     bool
	Payload []byte
	FIN     bool
}

// SequenceLength is the number of sequence numbers this segment consumes:
// one per payload byte, plus one each for SYN and FIN.
func (m SenderMessage) SequenceLength() uint64 {
	n := uint64(len(m.Payload))
	if m.SYN {
		n++
	}
	if m.FIN {
		n++
	}
	return n
}

// ReceiverMessage is the logical shape of an acknowledgement/window
// advertisement emitted by a TCPReceiver.
type ReceiverMessage struct {
	Ackno      seqnum.Wrap32
	HasAckno   bool
	WindowSize uint16
}
