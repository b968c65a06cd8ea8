// Package pte implements the AArch64 stage-1 page-table engine: four-level
// translation with a 4 KiB granule, 48-bit input address, and a level-0
// root. Grounded on original_source/kernel/src/mem/vm/paging.rs (itself
// derived from the google/aarch64-paging crate) for the descriptor layout
// and the block-to-table promotion algorithm, translated into Go idiom —
// mockable register-access fn vars in the style of gopheros's
// kernel/mem/vmm/pdt.go's activePDTFn/switchPDTFn — rather than the
// original's generic Translation trait.
package pte

import "vellum/kernel/mem"

// Attributes are the per-mapping bits a caller supplies to MapRange. VALID
// and ACCESSED are added automatically by the engine and never need to be
// passed in.
type Attributes uint64

const (
	Valid       Attributes = 1 << 0
	TableOrPage Attributes = 1 << 1

	// Memory types: AttrIndx 0 for Device-nGnRnE, 1 for Normal. MAIR_EL1
	// must hold matching attributes at these indices; no code in this
	// repository writes MAIR_EL1.
	DeviceNGnRnE Attributes = 0 << 2
	Normal       Attributes = 1<<2 | 3<<8

	User         Attributes = 1 << 6
	ReadOnly     Attributes = 1 << 7
	Accessed     Attributes = 1 << 10
	NonGlobal    Attributes = 1 << 11
	ExecuteNever Attributes = 3 << 53
)

const (
	outputAddressMask = ^(uint64(mem.PageSize) - 1) & ^(uint64(0xffff) << 48)
	flagsMask         = (uint64(mem.PageSize) - 1) | (uint64(0xffff) << 48)
)

// descriptor is a single stage-1 table entry: either invalid, a page
// mapping (leaf level only), a block mapping (non-leaf levels only), or a
// pointer to a finer subtable (non-leaf levels only).
type descriptor uint64

func (d descriptor) isValid() bool {
	return uint64(d)&uint64(Valid) != 0
}

func (d descriptor) flags() (Attributes, bool) {
	if !d.isValid() {
		return 0, false
	}
	return Attributes(uint64(d) & flagsMask), true
}

func (d descriptor) isTableOrPage() bool {
	flags, ok := d.flags()
	return ok && flags&TableOrPage != 0
}

func (d descriptor) outputAddress() (mem.PhysAddr, bool) {
	if !d.isValid() {
		return 0, false
	}
	return mem.PhysAddr(uint64(d) & outputAddressMask), true
}

// set writes phys and flags into the descriptor. VALID is always implied.
func (d *descriptor) set(phys mem.PhysAddr, flags Attributes) {
	*d = descriptor(uint64(phys) | uint64(flags|Valid))
}
