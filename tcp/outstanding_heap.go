package tcp

// outstandingSegment is a segment the sender has emitted and is holding
// onto until an ACK covers its tail, in case it must be retransmitted.
type outstandingSegment struct {
	seqno    uint64 // absolute sequence number of the first byte/flag
	msg      SenderMessage
	heapIdx  int
}

func (s outstandingSegment) length() uint64 { return s.msg.SequenceLength() }
func (s outstandingSegment) tail() uint64   { return s.seqno + s.length() }

// outstandingHeap is a binary min-heap over outstanding segments ordered by
// absolute sequence number, adapted from an early-arrival priority queue
// design: it gives the sender O(log n) access to "the earliest outstanding
// segment" when a retransmission timeout fires, rather than a linear scan
// over a map.
type outstandingHeap []*outstandingSegment

func (h outstandingHeap) Len() int { return len(h) }

func (h outstandingHeap) Less(i, j int) bool { return h[i].seqno < h[j].seqno }

func (h outstandingHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIdx = i
	h[j].heapIdx = j
}

func (h *outstandingHeap) Push(x any) {
	seg := x.(*outstandingSegment)
	seg.heapIdx = len(*h)
	*h = append(*h, seg)
}

func (h *outstandingHeap) Pop() any {
	old := *h
	n := len(old)
	seg := old[n-1]
	old[n-1] = nil
	seg.heapIdx = -1
	*h = old[:n-1]
	return seg
}
