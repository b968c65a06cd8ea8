package boot

import (
	"unsafe"

	"vellum/kernel/mem"
)

// The types below mirror the wire layout the Limine boot protocol uses for
// requests and responses: a bootloader, scanning the kernel image for
// 8-byte-aligned magic/ID sequences, overwrites a request's Response pointer
// in place. Grounded on original_source/kernel/src/mem.rs and
// original_source/kernel/src/boot.rs, which declare LimineHhdmRequest and
// LimineMemmapRequest as static values the bootloader finds the same way;
// this package expresses the same contract without the limine-rs crate's
// generics, since Limine's own Go bindings are not part of this repo's
// dependency pack.
var limineCommonMagic = [2]uint64{0xc7b1dd30df4c8b88, 0x0a82e883a194f07b}

// hhdmRequest is the wire layout of LIMINE_HHDM_REQUEST.
type hhdmRequest struct {
	id       [4]uint64
	revision uint64
	response *hhdmResponse
}

type hhdmResponse struct {
	revision uint64
	// Offset is the higher-half direct-map offset D: virt(p) = p + D.
	Offset uint64
}

var bootloaderHHDMRequest = hhdmRequest{
	id: [4]uint64{limineCommonMagic[0], limineCommonMagic[1], 0x48dcf1cb8ad2b852, 0x63984e959a98244b},
}

// memmapEntryKind mirrors Limine's LIMINE_MEMMAP_* constants.
type memmapEntryKind uint64

const (
	memmapUsable                memmapEntryKind = 0
	memmapReserved              memmapEntryKind = 1
	memmapACPIReclaimable       memmapEntryKind = 2
	memmapACPINVS               memmapEntryKind = 3
	memmapBadMemory             memmapEntryKind = 4
	memmapBootloaderReclaimable memmapEntryKind = 5
	memmapKernelAndModules      memmapEntryKind = 6
	memmapFramebuffer           memmapEntryKind = 7
)

func (k memmapEntryKind) toRegionKind() RegionKind {
	switch k {
	case memmapUsable:
		return Usable
	case memmapKernelAndModules:
		return KernelAndModules
	default:
		return Other
	}
}

type limineMemmapEntry struct {
	Base   uint64
	Length uint64
	Kind   memmapEntryKind
}

// memmapRequest is the wire layout of LIMINE_MEMMAP_REQUEST.
type memmapRequest struct {
	id       [4]uint64
	revision uint64
	response *memmapResponse
}

type memmapResponse struct {
	revision   uint64
	EntryCount uint64
	Entries    **limineMemmapEntry
}

var bootloaderMemmapRequest = memmapRequest{
	id: [4]uint64{limineCommonMagic[0], limineCommonMagic[1], 0x67cf3d9d378a806f, 0xe304acdfc50c3c62},
}

// Collect reads both bootloader responses and returns the parsed Info. It
// panics if either request was not answered, which means the kernel was not
// booted through a Limine-compatible loader.
func Collect() Info {
	if bootloaderHHDMRequest.response == nil {
		panic("boot: bootloader did not answer the HHDM request")
	}
	if bootloaderMemmapRequest.response == nil {
		panic("boot: bootloader did not answer the memory map request")
	}

	offset := bootloaderHHDMRequest.response.Offset

	resp := bootloaderMemmapRequest.response
	entries := make([]MemoryMapEntry, 0, resp.EntryCount)
	base := uintptr(unsafe.Pointer(resp.Entries))
	for i := uint64(0); i < resp.EntryCount; i++ {
		ptr := *(**limineMemmapEntry)(unsafe.Pointer(base + uintptr(i)*unsafe.Sizeof(uintptr(0))))
		entries = append(entries, MemoryMapEntry{
			Base:   mem.PhysAddr(ptr.Base),
			Length: mem.Size(ptr.Length),
			Kind:   ptr.Kind.toRegionKind(),
		})
	}

	return Info{
		DirectMapOffset: mem.Size(offset),
		MemoryMap:       entries,
	}
}
