// Package qemuvirt holds the board-specific constants for the QEMU "virt"
// machine: the fixed kernel virtual layout, the PL011 and GICv2 MMIO bases,
// and the TCR_EL1 encoding the VMM writes during bootstrap. Grounded on
// original_source/kernel/src/bsp/qemu/mem.rs for the layout constants and
// original_source/kernel/src/bsp/qemu/driver.rs for the device bases.
package qemuvirt

import "vellum/kernel/mem"

// PL011Base is the MMIO base address of the QEMU virt machine's primary
// PL011 UART, used as the kernel console.
const PL011Base uintptr = 0x0900_0000

// GICv2 distributor and CPU interface bases on the QEMU virt machine.
const (
	GICDistributorBase uintptr = 0x0800_0000
	GICCPUBase         uintptr = 0x0801_0000
)

// Fixed kernel virtual layout (spec.md §6).
const (
	KernelHeapStart  = mem.VirtAddr(0xFFFF_FFFF_8000_0000)
	KernelHeapEnd    = mem.VirtAddr(0xFFFF_FFFF_FAFF_FFFF)
	KernelStackStart = mem.VirtAddr(0xFFFF_FFFF_FB00_0000)
	KernelStackEnd   = mem.VirtAddr(0xFFFF_FFFF_FBFF_FFFF)
	KernelCodeStart  = mem.VirtAddr(0xFFFF_FFFF_FC00_0000)
	KernelCodeEnd    = mem.VirtAddr(0xFFFF_FFFF_FFFF_FFFF)
)

// InitialAllocSize is the size of the first physical region handed to the
// Bump allocator during VMM.Init.
const InitialAllocSize = 64 * mem.Kb

// BootCoreID is the value MPIDR_EL1 & 0b11 must equal for a core to
// continue past _start instead of parking in a WFE loop.
const BootCoreID = 0

// TCREL1 encodes TCR_EL1 for the canonical configuration: 48-bit IPS, 4 KiB
// granule for both TTBRs, T0SZ=T1SZ=16, inner-shareable, write-back
// read/write-allocate cacheability, ASID in TTBR0. When ttbr0Enabled is
// false, TTBR0 walks are disabled (EPD0 set) — used for the real kernel
// table, which has no lower-half mappings to preserve.
func TCREL1(ttbr0Enabled bool) uint64 {
	const (
		t0sz   = 16 << 0
		t1sz   = 16 << 16
		irgn0  = 1 << 8  // write-back read-allocate write-allocate, inner
		orgn0  = 1 << 10 // write-back read-allocate write-allocate, outer
		sh0    = 3 << 12 // inner shareable
		tg0_4k = 0 << 14
		irgn1  = 1 << 24
		orgn1  = 1 << 26
		sh1    = 3 << 28
		tg1_4k = 2 << 30 // TG1 encodes 4 KiB differently from TG0
		as     = 1 << 36 // 16-bit ASIDs; A1 (bit 22) stays 0, so the ASID comes from TTBR0
		ips48  = 5 << 32
		epd0   = 1 << 7
	)

	tcr := uint64(t0sz | t1sz | irgn0 | orgn0 | sh0 | tg0_4k | irgn1 | orgn1 | sh1 | tg1_4k | as | ips48)
	if !ttbr0Enabled {
		tcr |= epd0
	}
	return tcr
}
