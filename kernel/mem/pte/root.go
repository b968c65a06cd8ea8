package pte

import (
	"unsafe"

	"vellum/kernel/mem"
)

// VaRange selects which TTBR a RootPageTable is intended for.
type VaRange int

const (
	// Lower covers the bottom of the virtual address space, used with
	// TTBR0.
	Lower VaRange = iota
	// Upper covers the top of the virtual address space, used with
	// TTBR1.
	Upper
)

// PageAllocator supplies and reclaims page-table pages. *heap.Facade
// satisfies this interface directly.
type PageAllocator interface {
	Alloc(layout mem.Layout) (mem.VirtAddr, bool)
	Dealloc(ptr mem.VirtAddr, layout mem.Layout)
}

// AddressRangeError reports that a MapRange virtual address fell outside
// the range a table's VaRange can represent.
type AddressRangeError struct {
	VA mem.VirtAddr
}

func (e *AddressRangeError) Error() string {
	return "pte: address out of range for this table's VA range"
}

// RegionBackwardsError reports that MapRange was asked to map a region
// whose end precedes its start.
type RegionBackwardsError struct {
	Region mem.Region
}

func (e *RegionBackwardsError) Error() string {
	return "pte: region end precedes region start"
}

// RootPageTable owns a complete stage-1 translation hierarchy rooted at a
// level-0 table. Table pages are allocated from, and returned to, a
// PageAllocator; their physical addresses are assumed reachable through the
// direct map, matching the VMM's directPageSource, which hands out table
// pages from the PPA through the direct map.
type RootPageTable struct {
	allocator       PageAllocator
	directMapOffset mem.Size
	directMapLimit  mem.Size // 0 disables the bounds assertion

	asid    uint16
	vaRange VaRange

	root     *PageTable
	rootPhys mem.PhysAddr

	active    bool
	hasSaved  bool
	savedTTBR uint64
}

// New allocates and zeroes a level-0 table for the given ASID and VA range.
// directMapOffset is the bootloader's D (virt = phys + D); directMapLimit,
// if nonzero, bounds how far above 0 a table's physical address may be
// before physToVirt refuses to trust the direct map.
func New(allocator PageAllocator, directMapOffset, directMapLimit mem.Size, asid uint16, vaRange VaRange) *RootPageTable {
	t := &RootPageTable{
		allocator:       allocator,
		directMapOffset: directMapOffset,
		directMapLimit:  directMapLimit,
		asid:            asid,
		vaRange:         vaRange,
	}
	t.rootPhys, t.root = t.allocateTable()
	return t
}

// addressableSize returns the size of the VA window a root table covers:
// the granularity of one root-level entry, times the number of entries in
// a table.
func (t *RootPageTable) addressableSize() mem.Size {
	return granularityAtLevel(0) << mem.BitsPerLevel
}

// PhysicalBase returns the physical address of the root table, for writing
// into TTBRn.
func (t *RootPageTable) PhysicalBase() mem.PhysAddr {
	return t.rootPhys
}

// MapRange recursively populates descriptors so that region maps to
// [phys, phys+region.Len()) with flags. Returns a *RegionBackwardsError if
// region.End precedes region.Start, or an *AddressRangeError if region
// falls outside the table's configured VA range.
func (t *RootPageTable) MapRange(region mem.Region, phys mem.PhysAddr, flags Attributes) error {
	if region.Backwards() {
		return &RegionBackwardsError{Region: region}
	}

	size := t.addressableSize()
	switch t.vaRange {
	case Lower:
		if int64(region.Start) < 0 {
			return &AddressRangeError{VA: region.Start}
		}
		if mem.Size(region.End) > size {
			return &AddressRangeError{VA: region.End}
		}
	case Upper:
		signedStart := int64(region.Start)
		if signedStart >= 0 || mem.Size(-signedStart) > size {
			return &AddressRangeError{VA: region.Start}
		}
	}

	t.mapRange(t.root, 0, region, phys, flags)
	dsbISHSTFn()
	return nil
}

// mapRange is the recursive core: it walks region in granule-aligned
// chunks at level, writing page mappings at the leaf level, block mappings
// where an entire granule is free to take one, and descending into (or
// creating) subtables otherwise. When a subtable must be created to
// replace an existing block mapping, the old block's full granule-aligned
// extent is re-materialized inside the new subtable first so no mapping is
// ever silently dropped.
func (t *RootPageTable) mapRange(table *PageTable, level int, region mem.Region, phys mem.PhysAddr, flags Attributes) {
	granularity := granularityAtLevel(level)
	start := region.Start

	for start < region.End {
		chunkEnd := mem.VirtAddr((uintptr(start) | (uintptr(granularity) - 1)) + 1)
		if chunkEnd > region.End {
			chunkEnd = region.End
		}
		chunk := mem.Region{Start: start, End: chunkEnd}

		idx := descriptorIndex(start, level)
		entry := &table.entries[idx]

		switch {
		case level == mem.LeafLevel:
			entry.set(phys, flags|Accessed|TableOrPage)

		case isBlockAligned(chunk, level) && !entry.isTableOrPage() && phys.Aligned(granularity):
			entry.set(phys, flags|Accessed)

		default:
			subtable := t.subtableOrCreate(entry, level, chunk, granularity)
			t.mapRange(subtable, level+1, chunk, phys, flags)
		}

		phys = phys.Add(chunk.Len())
		start = chunkEnd
	}
}

// Translate walks the hierarchy for va and reports the physical address it
// currently maps to along with the descriptor's flags (VALID, ACCESSED and
// TABLE_OR_PAGE included, exactly as MapRange wrote them). ok is false if no
// valid mapping covers va.
func (t *RootPageTable) Translate(va mem.VirtAddr) (mem.PhysAddr, Attributes, bool) {
	table := t.root
	for level := 0; ; level++ {
		idx := descriptorIndex(va, level)
		entry := &table.entries[idx]
		if !entry.isValid() {
			return 0, 0, false
		}

		if level == mem.LeafLevel || !entry.isTableOrPage() {
			base, _ := entry.outputAddress()
			flags, _ := entry.flags()
			offset := mem.Size(va) % granularityAtLevel(level)
			return base.Add(offset), flags, true
		}

		sub, ok := t.subtableFor(entry, level)
		if !ok {
			return 0, 0, false
		}
		table = sub
	}
}

// subtableOrCreate returns the subtable a non-leaf entry already points to,
// or allocates a fresh one. If the entry previously held a valid block
// mapping, that block's entire granule-aligned window is re-mapped inside
// the new subtable before the entry is repointed, so the region outside
// the chunk being split keeps its old mapping and flags.
func (t *RootPageTable) subtableOrCreate(entry *descriptor, level int, chunk mem.Region, granularity mem.Size) *PageTable {
	if sub, ok := t.subtableFor(entry, level); ok {
		return sub
	}

	oldFlags, hadOld := entry.flags()
	oldPhys, _ := entry.outputAddress()

	subPhys, subtable := t.allocateTable()

	if hadOld {
		a := chunk.Start.AlignDown(granularity)
		b := chunk.End.AlignUp(granularity)
		t.mapRange(subtable, level+1, mem.Region{Start: a, End: b}, oldPhys, oldFlags)
	}

	entry.set(subPhys, TableOrPage)
	return subtable
}

func (t *RootPageTable) subtableFor(entry *descriptor, level int) (*PageTable, bool) {
	if level >= mem.LeafLevel || !entry.isTableOrPage() {
		return nil, false
	}
	phys, ok := entry.outputAddress()
	if !ok {
		return nil, false
	}
	return t.physToVirt(phys), true
}

func (t *RootPageTable) allocateTable() (mem.PhysAddr, *PageTable) {
	virt, ok := t.allocator.Alloc(tableLayout)
	if !ok {
		panic("pte: out of memory allocating a page table")
	}
	mem.Memset(virt, 0, mem.PageSize)
	return t.virtToPhys(virt), (*PageTable)(unsafe.Pointer(uintptr(virt)))
}

func (t *RootPageTable) physToVirt(p mem.PhysAddr) *PageTable {
	if t.directMapLimit != 0 && mem.Size(p) >= t.directMapLimit {
		panic("pte: table physical address outside the direct-map window")
	}
	v := p.DirectMap(t.directMapOffset)
	return (*PageTable)(unsafe.Pointer(uintptr(v)))
}

func (t *RootPageTable) virtToPhys(v mem.VirtAddr) mem.PhysAddr {
	return mem.PhysAddr(uintptr(v) - uintptr(t.directMapOffset))
}
