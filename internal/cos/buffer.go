package cos

import "sync"

// Buffer is an owned, length-carrying byte slice passed through the Stage-A
// and Stage-B queues. Ownership transfers on dequeue: the consuming worker
// calls Free exactly once, after which the buffer must not be read again.
//
// Adapted from the teacher's memsys slab-pool idiom (MMSA.Alloc/Slab.Free)
// but stripped down to a single fixed pool sized for whole-mesh and
// whole-texture buffers -- texopt has no per-mountpath SGL concept to share
// across xactions, so a single sync.Pool-backed slab is enough.
type Buffer struct {
	b []byte
}

var slab = sync.Pool{
	New: func() any { return make([]byte, 0, 64*1024) },
}

// NewBuffer takes ownership of b directly (used when bytes are already
// materialized, e.g. read from a file or extracted from an archive).
func NewBuffer(b []byte) *Buffer { return &Buffer{b: b} }

// AllocBuffer borrows a scratch slice from the shared slab pool, sized (and
// grown if needed) to hold n bytes.
func AllocBuffer(n int) *Buffer {
	raw, _ := slab.Get().([]byte)
	if cap(raw) < n {
		raw = make([]byte, n)
	} else {
		raw = raw[:n]
	}
	return &Buffer{b: raw}
}

func (buf *Buffer) Bytes() []byte { return buf.b }
func (buf *Buffer) Len() int      { return len(buf.b) }
func (buf *Buffer) Empty() bool   { return buf == nil || len(buf.b) == 0 }

// Free releases the buffer back to the slab pool. It is the consuming
// worker's responsibility to call this exactly once, before pulling its next
// item off the queue -- this is what keeps resident bytes bounded across a
// run (spec.md §8 invariant 8).
func (buf *Buffer) Free() {
	if buf == nil || buf.b == nil {
		return
	}
	//nolint:staticcheck // intentionally returning a potentially-resized slice to the pool
	slab.Put(buf.b[:0])
	buf.b = nil
}
