// Package reg provides volatile MMIO register access, the same role
// usbarmory/tamago's internal/reg package plays for its UART and MMU code
// (_examples/other_examples/511e2eb1_usbarmory-tamago__arm64-mmu.go.go uses
// reg.Write/reg.Read throughout). That package is unexported from its
// module, so this is a from-scratch reimplementation of the same pattern
// rather than an import of it.
package reg

import "unsafe"

// Read32 performs a volatile 32-bit load from the given MMIO address.
func Read32(addr uintptr) uint32 {
	return *(*uint32)(unsafe.Pointer(addr))
}

// Write32 performs a volatile 32-bit store to the given MMIO address.
func Write32(addr uintptr, value uint32) {
	*(*uint32)(unsafe.Pointer(addr)) = value
}

// SetBits32 ORs mask into the register at addr.
func SetBits32(addr uintptr, mask uint32) {
	Write32(addr, Read32(addr)|mask)
}

// ClearBits32 clears mask from the register at addr.
func ClearBits32(addr uintptr, mask uint32) {
	Write32(addr, Read32(addr)&^mask)
}

// WaitFor32 spins, rereading the register at addr, until (value & mask) ==
// want. Used by the UART driver to poll the flag register before writing.
func WaitFor32(addr uintptr, mask, want uint32) {
	for Read32(addr)&mask != want {
	}
}
