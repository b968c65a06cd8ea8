package pte

import "vellum/kernel/mem"

// PageTable is a single level of the stage-1 hierarchy: 512 entries,
// spanning exactly one page. Table pages are always allocated through a
// PageAllocator so that they land on a page boundary.
type PageTable struct {
	entries [1 << mem.BitsPerLevel]descriptor
}

var tableLayout = mem.NewLayout(mem.PageSize, mem.PageSize)

// granularityAtLevel returns the size in bytes of the address space covered
// by a single entry at table level L.
func granularityAtLevel(level int) mem.Size {
	return mem.PageSize << uint((mem.LeafLevel-level)*mem.BitsPerLevel)
}

// descriptorIndex returns the index into a level-`level` table's entries
// array for virtual address va.
func descriptorIndex(va mem.VirtAddr, level int) int {
	shift := uint(mem.PageShift + (mem.LeafLevel-level)*mem.BitsPerLevel)
	return int((uintptr(va) >> shift) % (1 << mem.BitsPerLevel))
}

// isBlockAligned reports whether region can be mapped at level using a
// single block entry: both endpoints must land on a granule boundary.
func isBlockAligned(region mem.Region, level int) bool {
	gran := uintptr(granularityAtLevel(level))
	return (uintptr(region.Start)|uintptr(region.End))&(gran-1) == 0
}
