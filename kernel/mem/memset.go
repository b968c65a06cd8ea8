package mem

import (
	"reflect"
	"unsafe"
)

// Memset sets size bytes starting at addr to value. Used by the page-table
// engine to zero freshly allocated table pages. The implementation is based on
// bytes.Repeat: instead of a byte-at-a-time loop it performs log2(size) copy
// calls, which is cheap insurance against a slow zeroing loop since callers
// only ever pass page-aligned, page-multiple sizes.
func Memset(addr VirtAddr, value byte, size Size) {
	if size == 0 {
		return
	}

	target := *(*[]byte)(unsafe.Pointer(&reflect.SliceHeader{
		Len:  int(size),
		Cap:  int(size),
		Data: uintptr(addr),
	}))

	target[0] = value
	for index := Size(1); index < size; index *= 2 {
		copy(target[index:], target[:index])
	}
}

// Memcopy copies size bytes from src to dst.
func Memcopy(dst, src VirtAddr, size Size) {
	if size == 0 {
		return
	}

	dstSlice := *(*[]byte)(unsafe.Pointer(&reflect.SliceHeader{Len: int(size), Cap: int(size), Data: uintptr(dst)}))
	srcSlice := *(*[]byte)(unsafe.Pointer(&reflect.SliceHeader{Len: int(size), Cap: int(size), Data: uintptr(src)}))
	copy(dstSlice, srcSlice)
}
