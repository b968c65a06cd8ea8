// Package mem contains the shared address and size primitives used by the
// physical and virtual memory bootstrap: page-sized constants, the
// PhysAddr/VirtAddr wrappers and the Region type.
package mem

const (
	// PageShift is log2(PageSize). Used to convert a byte address to a
	// page index (shift right by PageShift) and back (shift left).
	PageShift = 12

	// PageSize is the translation granule used throughout the kernel: 4 KiB.
	PageSize = Size(1 << PageShift)

	// BitsPerLevel is the number of VA bits consumed by one level of the
	// stage-1 translation table walk (512 entries per table).
	BitsPerLevel = 9

	// LeafLevel is the table level that holds page (not block) descriptors.
	LeafLevel = 3
)

// Size represents a memory block size in bytes.
type Size uint64

// Common memory block sizes.
const (
	Byte Size = 1
	Kb        = 1024 * Byte
	Mb        = 1024 * Kb
	Gb        = 1024 * Mb
)

// Pages returns the number of PageSize pages required to hold a block of
// this size, rounding up.
func (s Size) Pages() uint64 {
	pageSizeMinus1 := PageSize - 1
	return uint64((s+pageSizeMinus1) &^ pageSizeMinus1 >> PageShift)
}

// AlignUp rounds s up to the next multiple of align, which must be a power
// of two.
func (s Size) AlignUp(align Size) Size {
	return (s + align - 1) &^ (align - 1)
}

// AlignDown rounds s down to the previous multiple of align, which must be
// a power of two.
func (s Size) AlignDown(align Size) Size {
	return s &^ (align - 1)
}
