// Package console defines the kernel's console abstraction and a PL011 UART
// driver for the QEMU virt machine, grounded on
// original_source/kernel/src/console.rs and
// original_source/kernel/src/bsp/qemu/driver.rs: a single writable sink
// installed once, early, and used by kernel/kfmt and the panic path for all
// kernel output.
package console

import "vellum/kernel/cpu/reg"

// Writer is the minimal console contract the rest of the kernel depends on.
// A concrete driver (UART, or a test double) implements this.
type Writer interface {
	WriteByte(b byte)
	WriteString(s string)
}

// PL011 is a driver for the ARM PrimeCell UART (PL011) as wired up on the
// QEMU virt machine.
type PL011 struct {
	base uintptr
}

// PL011 register offsets (ARM PrimeCell UART (PL011) Technical Reference
// Manual).
const (
	regDR   = 0x00 // data register
	regFR   = 0x18 // flag register
	flagTXFF = 1 << 5
)

var (
	// waitFn and writeFn are mocked by tests to avoid touching real MMIO.
	waitFn  = reg.WaitFor32
	writeFn = reg.Write32
)

// NewPL011 returns a driver for the PL011 UART whose registers are mapped
// starting at base (0x0900_0000 on the QEMU virt machine).
func NewPL011(base uintptr) *PL011 {
	return &PL011{base: base}
}

// WriteByte blocks until the transmit FIFO has room, then writes b.
func (u *PL011) WriteByte(b byte) {
	waitFn(u.base+regFR, flagTXFF, 0)
	writeFn(u.base+regDR, uint32(b))
}

// WriteString writes every byte of s via WriteByte.
func (u *PL011) WriteString(s string) {
	for i := 0; i < len(s); i++ {
		u.WriteByte(s[i])
	}
}
