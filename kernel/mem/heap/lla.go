package heap

import (
	"unsafe"

	"vellum/kernel/mem"
)

// llaNode is the in-place free-list header used by the Linked-List
// Allocator. Unlike pmm's node it is addressed directly by virtual address,
// since the heap is already mapped by the time this allocator is in use.
type llaNode struct {
	size uint64
	next *llaNode
}

const llaNodeSize = mem.Size(unsafe.Sizeof(llaNode{}))
const llaNodeAlign = mem.Size(unsafe.Alignof(llaNode{}))

// LinkedList is the general-purpose kernel heap allocator: a free list over
// one or more virtual memory regions, with no coalescing of neighbors on
// free.
type LinkedList struct {
	head *llaNode
}

// AddRegion prepends a new free node describing [virtStart, virtStart+size).
func (l *LinkedList) AddRegion(virtStart mem.VirtAddr, size mem.Size) {
	if size < llaNodeSize {
		return
	}
	n := (*llaNode)(unsafe.Pointer(uintptr(virtStart)))
	n.size = uint64(size)
	n.next = l.head
	l.head = n
}

// Alloc finds the first free region able to satisfy layout: its start,
// after alignment to max(layout.Align, node alignment), must have at least
// max(layout.Size, sizeof(node)) bytes available, with any remainder either
// zero or at least sizeof(node). Returns (0, false) if no region fits.
func (l *LinkedList) Alloc(layout mem.Layout) (mem.VirtAddr, bool) {
	align := layout.Align
	if llaNodeAlign > align {
		align = llaNodeAlign
	}
	need := layout.Size
	if llaNodeSize > need {
		need = llaNodeSize
	}

	pp := &l.head
	for *pp != nil {
		cur := *pp
		curStart := mem.VirtAddr(uintptr(unsafe.Pointer(cur)))
		curSize := mem.Size(cur.size)
		curEnd := curStart.Add(curSize)

		allocStart := curStart.AlignUp(align)
		if allocStart >= curEnd {
			pp = &cur.next
			continue
		}
		available := curEnd.Sub(allocStart)
		if available < need {
			pp = &cur.next
			continue
		}

		remainder := available - need
		next := cur.next

		// Bytes lost to alignment padding ahead of allocStart are not
		// recovered into a separate node; they are leaked for the
		// lifetime of this region, matching the no-coalescing,
		// no-splitting-on-the-left simplicity of the reference design.
		if remainder == 0 {
			*pp = next
			return allocStart, true
		}
		if remainder >= llaNodeSize {
			tail := (*llaNode)(unsafe.Pointer(uintptr(allocStart.Add(need))))
			tail.size = uint64(remainder)
			tail.next = next
			*pp = tail
			return allocStart, true
		}

		// remainder nonzero but too small to host a node: this
		// region cannot satisfy the request without losing track of
		// the leftover bytes, so skip it.
		pp = &cur.next
	}

	return 0, false
}

// Dealloc reinserts the released block as a free node at the head of the
// list. No coalescing with neighboring free blocks is performed.
func (l *LinkedList) Dealloc(ptr mem.VirtAddr, layout mem.Layout) {
	size := layout.Size
	if llaNodeSize > size {
		size = llaNodeSize
	}
	l.AddRegion(ptr, size)
}

// FreeBytes returns the sum of every free node's size.
func (l *LinkedList) FreeBytes() mem.Size {
	var total mem.Size
	for n := l.head; n != nil; n = n.next {
		total += mem.Size(n.size)
	}
	return total
}
