// Package pmm implements the kernel's physical page allocator: a singly
// linked free list whose nodes live inside the free memory itself,
// addressed through the bootloader's higher-half direct map. Grounded
// directly on original_source/kernel/src/mem/allocator/physical_page.rs's
// PhysicalPageAllocator/ListNode for the first-fit-over-a-free-list scan
// and the excess-size split rule, and on gopheros's
// kernel/mem/pfn/bootmem_allocator.go for the overall shape (a single
// early allocator consulted by the VMM, no deallocation path), since
// gopheros's own allocation policy is a linear frame-index scan rather
// than a free list.
package pmm

import (
	"unsafe"

	"vellum/kernel"
	"vellum/kernel/mem"
)

// node is the in-place free-list header. Every free region begins with one
// of these, written at its direct-mapped virtual address.
type node struct {
	size uint64
	next *node
}

const nodeSize = mem.Size(unsafe.Sizeof(node{}))

var (
	errRegionTooSmall   = &kernel.Error{Module: "pmm", Message: "region smaller than a free-list node"}
	errRegionMisaligned = &kernel.Error{Module: "pmm", Message: "region start is not page-aligned"}
)

// Allocator is the physical page allocator. It must be seeded with the
// direct-map offset D (virt(p) = p + D) before any region is added, since
// every node access dereferences the region through that mapping.
type Allocator struct {
	directMapOffset mem.Size
	head            *node
}

// New returns an allocator that will access free regions through the
// direct map at offset d.
func New(d mem.Size) *Allocator {
	return &Allocator{directMapOffset: d}
}

// AddRegion prepends a new free node describing [physStart, physStart+size).
// physStart must be page-aligned and size must be at least large enough to
// hold a node header; the region must not overlap one already tracked by
// this allocator (unchecked — the caller, the VMM parsing the boot memory
// map in ascending order, is trusted to pass disjoint regions).
func (a *Allocator) AddRegion(physStart mem.PhysAddr, size mem.Size) *kernel.Error {
	if !physStart.Aligned(mem.PageSize) {
		return errRegionMisaligned
	}
	if size < nodeSize {
		return errRegionTooSmall
	}

	n := a.nodeAt(physStart)
	n.size = uint64(size)
	n.next = a.head
	a.head = n

	return nil
}

// Allocate finds the first free region (in list order) able to carve off a
// page-aligned extent of exactly size bytes and returns its physical
// address. The caller (the VMM) is responsible for rounding size up to a
// multiple of the page size before calling. Returns ok=false if no region
// can satisfy the request.
//
// If a region is larger than size, the remainder is kept as a new free node
// only when it is at least large enough to hold a node header; otherwise
// the region is skipped (it cannot be split without losing track of the
// leftover bytes) and the search continues.
func (a *Allocator) Allocate(size mem.Size) (mem.PhysAddr, bool) {
	pp := &a.head
	for *pp != nil {
		cur := *pp
		curSize := mem.Size(cur.size)

		if curSize >= size {
			remainder := curSize - size
			switch {
			case remainder == 0:
				*pp = cur.next
				return a.physAddrOf(cur), true
			case remainder >= nodeSize:
				addr := a.physAddrOf(cur)
				next := cur.next
				newNode := a.nodeAt(addr.Add(size))
				newNode.size = uint64(remainder)
				newNode.next = next
				*pp = newNode
				return addr, true
			}
			// remainder is nonzero but too small to host a node
			// header; this region cannot satisfy the request.
		}

		pp = &cur.next
	}

	return 0, false
}

// FreeBytes returns the sum of every free node's size, used by tests to
// check the conservation invariant (spec.md §8 property 1).
func (a *Allocator) FreeBytes() mem.Size {
	var total mem.Size
	for n := a.head; n != nil; n = n.next {
		total += mem.Size(n.size)
	}
	return total
}

func (a *Allocator) nodeAt(p mem.PhysAddr) *node {
	v := p.DirectMap(a.directMapOffset)
	return (*node)(unsafe.Pointer(uintptr(v)))
}

func (a *Allocator) physAddrOf(n *node) mem.PhysAddr {
	virt := uintptr(unsafe.Pointer(n))
	return mem.PhysAddr(virt - uintptr(a.directMapOffset))
}
