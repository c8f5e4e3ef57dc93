package txn

import "bytes"

// scratchSlots mirrors fsl_cx::scratchpads' fixed size in
// original_source/include/fossil-scm/fossil-internal.h: "anything
// beyond 8, maybe 10, seems a bit extreme."
const scratchSlots = 8

// ScratchPool is a small fixed pool of reusable buffers for short-lived
// encoding work — filename canonicalization, hash formatting, and the
// like. Never for large content; pkg/content owns that.
type ScratchPool struct {
	bufs [scratchSlots]bytes.Buffer
	used [scratchSlots]bool
	next int
}

// Acquire returns the next free scratch buffer, reset to empty. The
// caller must eventually pass it to Yield.
func (p *ScratchPool) Acquire() *bytes.Buffer {
	for i := 0; i < scratchSlots; i++ {
		idx := (p.next + i) % scratchSlots
		if !p.used[idx] {
			p.used[idx] = true
			p.next = (idx + 1) % scratchSlots
			p.bufs[idx].Reset()
			return &p.bufs[idx]
		}
	}
	scratchMisuse("scratch pool exhausted")
	return &p.bufs[0]
}

// Yield returns b to the pool. Yielding a buffer twice, or one this
// pool did not hand out, is misuse.
func (p *ScratchPool) Yield(b *bytes.Buffer) {
	for i := range p.bufs {
		if &p.bufs[i] == b {
			if !p.used[i] {
				scratchMisuse("double-yield of scratch buffer")
				return
			}
			p.used[i] = false
			return
		}
	}
	scratchMisuse("yield of a buffer this pool did not hand out")
}
