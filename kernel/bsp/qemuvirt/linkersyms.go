package qemuvirt

import "vellum/kernel/mem"

// Each of these returns the address of a symbol the linker script assigns,
// implemented in linkersyms_arm64.s. The labels themselves
// (__kernel_binary_start and friends) live in the linker script, outside
// this repository.
func kernelBinaryStartAddr() uintptr
func kernelCodeStartAddr() uintptr
func kernelCodeEndAddr() uintptr
func kernelDataStartAddr() uintptr
func kernelDataEndAddr() uintptr
func kernelHeapStartAddr() uintptr

// LinkerSymbols snapshots the addresses the linker script assigns to the
// kernel image boundaries, read once during VMM bootstrap. All of these are
// higher-half virtual addresses: the kernel image is always accessed
// through its own mapping, never through the direct map.
type LinkerSymbols struct {
	BinaryStart mem.VirtAddr
	CodeStart   mem.VirtAddr
	CodeEnd     mem.VirtAddr
	DataStart   mem.VirtAddr
	DataEnd     mem.VirtAddr
	HeapStart   mem.VirtAddr
}

// ReadLinkerSymbols reads the linker-provided symbol addresses.
func ReadLinkerSymbols() LinkerSymbols {
	return LinkerSymbols{
		BinaryStart: mem.VirtAddr(kernelBinaryStartAddr()),
		CodeStart:   mem.VirtAddr(kernelCodeStartAddr()),
		CodeEnd:     mem.VirtAddr(kernelCodeEndAddr()),
		DataStart:   mem.VirtAddr(kernelDataStartAddr()),
		DataEnd:     mem.VirtAddr(kernelDataEndAddr()),
		HeapStart:   mem.VirtAddr(kernelHeapStartAddr()),
	}
}
