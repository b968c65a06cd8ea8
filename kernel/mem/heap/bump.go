// Package heap implements the two stages of the kernel heap: a single-shot
// Bump allocator used only while VMM.Init is building the real address
// space, and a Linked-List allocator used afterward, unified behind a
// Kernel Allocator Facade. The Bump allocator is grounded directly on
// original_source/kernel/src/mem/allocator/bump.rs's BumpAllocator (the
// same start/end/next/allocations fields and align-then-bump alloc); the
// Linked-List allocator is grounded directly on
// original_source/kernel/src/mem/allocator/linked_list.rs's
// LinkedListAllocator/ListNode (the same first-fit scan and excess-size
// split rule physical_page.rs also uses). The Facade's two-phase handoff
// is grounded on original_source/kernel/src/mem/allocator.rs's
// BootstrapAllocator/ALLOCATOR pair and on gopheros's
// kernel/mem/pmm/allocator package for the split-by-lifecycle shape,
// generalized per spec.md §4.2-§4.4 to add the PageSource top-up path
// neither original needs.
package heap

import (
	"vellum/kernel/mem"
)

// Bump is a single-shot linear allocator over a fixed virtual range, used
// exclusively during VMM.Init before the real kernel heap exists.
type Bump struct {
	start      mem.VirtAddr
	end        mem.VirtAddr
	watermark  mem.VirtAddr
	live       uint64
	initialize bool
}

// Init installs [start, end) as the bump range. It is one-shot: calling it
// twice panics.
func (b *Bump) Init(start, end mem.VirtAddr) {
	if b.initialize {
		panic("heap: bump allocator already initialized")
	}
	b.start = start
	b.end = end
	b.watermark = start
	b.live = 0
	b.initialize = true
}

// Alloc rounds the watermark up to layout.Align and returns the bumped
// pointer. Returns (0, false) when the range is exhausted.
func (b *Bump) Alloc(layout mem.Layout) (mem.VirtAddr, bool) {
	if !b.initialize {
		panic("heap: bump allocator not initialized")
	}

	aligned := b.watermark.AlignUp(layout.Align)
	next := aligned.Add(layout.Size)
	if next > b.end || next < aligned {
		return 0, false
	}

	b.watermark = next
	b.live++
	return aligned, true
}

// Dealloc decrements the live allocation count; when it reaches zero the
// watermark resets to start. This accommodates scoped allocations but does
// not reclaim individual blocks.
func (b *Bump) Dealloc() {
	if !b.initialize {
		panic("heap: bump allocator not initialized")
	}
	if b.live == 0 {
		return
	}
	b.live--
	if b.live == 0 {
		b.watermark = b.start
	}
}

// Used returns the current watermark displacement from start.
func (b *Bump) Used() mem.Size {
	return b.watermark.Sub(b.start)
}
