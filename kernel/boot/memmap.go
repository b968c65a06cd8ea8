// Package boot holds the bootloader handoff types the VMM consumes: the
// higher-half direct-map offset and the physical memory map, both supplied
// by a Limine-compatible bootloader. Grounded on
// original_source/kernel/src/mem/allocator.rs, which matches Limine's
// memmap entries (LimineMemmapEntry/LimineMemoryMapEntryType) against the
// HHDM offset, and on gopheros's kernel/hal/multiboot package for the
// overall "parse what the bootloader handed us into a flat Go slice" shape.
package boot

import "vellum/kernel/mem"

// RegionKind classifies one memory-map entry.
type RegionKind int

const (
	// Usable is general-purpose RAM available for the PPA.
	Usable RegionKind = iota
	// KernelAndModules holds the loaded kernel image and any modules;
	// never added to the PPA.
	KernelAndModules
	// Other covers every reserved, ACPI, framebuffer or bad-memory kind
	// the bootloader reports; never added to the PPA.
	Other
)

// String implements fmt.Stringer-like formatting without importing fmt,
// matching kfmt's allocation-free style.
func (k RegionKind) String() string {
	switch k {
	case Usable:
		return "usable"
	case KernelAndModules:
		return "kernel+modules"
	default:
		return "other"
	}
}

// MemoryMapEntry describes one contiguous physical region as reported by
// the bootloader.
type MemoryMapEntry struct {
	Base   mem.PhysAddr
	Length mem.Size
	Kind   RegionKind
}

// End returns the exclusive end address of the entry.
func (e MemoryMapEntry) End() mem.PhysAddr {
	return e.Base.Add(e.Length)
}

// Info is everything the VMM needs from the bootloader: the memory map and
// the higher-half direct-map offset D, where virt(p) = p + D for any
// physical address the bootloader has mapped.
type Info struct {
	DirectMapOffset mem.Size
	MemoryMap       []MemoryMapEntry
}
