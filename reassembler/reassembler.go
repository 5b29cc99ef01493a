// Package reassembler orders and coalesces overlapping substrings arriving
// at arbitrary stream offsets, flushing the contiguous prefix into a
// bytestream.Writer as it becomes available.
package reassembler

import (
	"github.com/google/btree"

	"tcpstack/bytestream"
)

// pendingSegment is one non-overlapping run of not-yet-flushed bytes,
// anchored at an absolute stream offset.
type pendingSegment struct {
	start uint64
	data  []byte
}

func lessSegment(a, b pendingSegment) bool { return a.start < b.start }

// Reassembler accepts (offset, bytes, is_last) triples in any order,
// possibly overlapping or duplicated, and flushes the contiguous prefix of
// the byte stream they describe into a bytestream.Writer as soon as it is
// known. It holds no reference to the writer beyond the scope of a single
// Insert call and is not safe for concurrent use.
type Reassembler struct {
	pending      *btree.BTreeG[pendingSegment]
	pendingBytes int

	streamEnd    uint64
	streamEndSet bool
}

// New constructs an empty Reassembler.
func New() *Reassembler {
	return &Reassembler{pending: btree.NewG(32, lessSegment)}
}

// Insert merges data, which starts at the absolute stream offset
// firstIndex, into the pending set, then flushes whatever contiguous prefix
// is now available into w. If isLast, firstIndex+len(data) is recorded as
// the stream's final length, even if data ends up entirely clipped away;
// once w has received bytes up to that length, w is closed.
func (re *Reassembler) Insert(firstIndex uint64, data []byte, isLast bool, w bytestream.Writer) {
	if isLast {
		re.streamEnd = firstIndex + uint64(len(data))
		re.streamEndSet = true
	}

	windowStart := w.BytesPushed()
	windowEnd := windowStart + uint64(w.AvailableCapacity())
	start, clipped := clipToWindow(firstIndex, data, windowStart, windowEnd)
	if len(clipped) > 0 {
		re.insertNonOverlapping(start, clipped)
	}

	re.flush(w)

	if re.streamEndSet && w.BytesPushed() == re.streamEnd {
		w.Close()
	}
}

// PendingBytes returns the number of bytes currently held pending flush.
func (re *Reassembler) PendingBytes() int { return re.pendingBytes }

// clipToWindow restricts [first, first+len(data)) to [lo, hi), returning the
// (possibly adjusted) start offset and the surviving slice of data. Either
// may come back empty if there is no overlap.
func clipToWindow(first uint64, data []byte, lo, hi uint64) (uint64, []byte) {
	if hi <= lo {
		return 0, nil
	}
	end := first + uint64(len(data))
	if end <= lo || first >= hi {
		return 0, nil
	}
	if first < lo {
		data = data[lo-first:]
		first = lo
	}
	if end := first + uint64(len(data)); end > hi {
		data = data[:hi-first]
	}
	return first, data
}

// insertNonOverlapping carves [start, start+len(data)) against the existing
// pending segments, keeping the existing bytes at any overlap
// (first-writer-wins) and storing only the surviving gaps of data as new
// segments.
func (re *Reassembler) insertNonOverlapping(start uint64, data []byte) {
	end := start + uint64(len(data))
	cursor := start

	absorb := func(segStart, segEnd uint64) {
		if segEnd > cursor {
			cursor = segEnd
		}
		_ = segStart
	}

	// A segment starting at or before `start` may still extend past it.
	re.pending.DescendLessOrEqual(pendingSegment{start: start}, func(seg pendingSegment) bool {
		absorb(seg.start, seg.start+uint64(len(seg.data)))
		return false
	})

	var fragments []pendingSegment
	re.pending.AscendGreaterOrEqual(pendingSegment{start: cursor}, func(seg pendingSegment) bool {
		if seg.start >= end {
			return false
		}
		if seg.start > cursor {
			fragments = append(fragments, pendingSegment{
				start: cursor,
				data:  data[cursor-start : seg.start-start],
			})
		}
		absorb(seg.start, seg.start+uint64(len(seg.data)))
		return true
	})
	if cursor < end {
		fragments = append(fragments, pendingSegment{
			start: cursor,
			data:  data[cursor-start : end-start],
		})
	}

	for _, f := range fragments {
		re.pending.ReplaceOrInsert(f)
		re.pendingBytes += len(f.data)
	}
}

// flush pushes every pending segment that forms a contiguous run starting
// at w's current write position.
func (re *Reassembler) flush(w bytestream.Writer) {
	for {
		min, ok := re.pending.Min()
		if !ok || min.start != w.BytesPushed() {
			return
		}
		re.pending.DeleteMin()
		re.pendingBytes -= len(min.data)
		w.Push(min.data)
	}
}
