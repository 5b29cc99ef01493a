package netiface

// AsyncNetworkInterface composes a plain NetworkInterface with an
// inbound-datagram queue. It is composition, not inheritance (per §9):
// RecvFrame calls through to the wrapped interface and enqueues whatever
// datagram comes back; MaybeReceive drains that queue in FIFO order. This
// is the shape a Router drives.
type AsyncNetworkInterface struct {
	*NetworkInterface
	inbound [][]byte
}

// NewAsync wraps an existing NetworkInterface with an inbound queue.
func NewAsync(ni *NetworkInterface) *AsyncNetworkInterface {
	return &AsyncNetworkInterface{NetworkInterface: ni}
}

// RecvFrame parses frame via the wrapped interface and, if it yields an
// IPv4 datagram, enqueues it for MaybeReceive.
func (a *AsyncNetworkInterface) RecvFrame(frame []byte) {
	if dgram, ok := a.NetworkInterface.RecvFrame(frame); ok {
		a.inbound = append(a.inbound, dgram)
	}
}

// MaybeReceive pops the oldest queued inbound datagram, if any.
func (a *AsyncNetworkInterface) MaybeReceive() ([]byte, bool) {
	if len(a.inbound) == 0 {
		return nil, false
	}
	dgram := a.inbound[0]
	a.inbound = a.inbound[1:]
	return dgram, true
}
