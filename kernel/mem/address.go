package mem

// PhysAddr is an opaque wrapper around a physical memory address. Arithmetic
// on addresses saturates instead of wrapping (Add at the maximum address,
// Sub at zero), mirroring the
// wrap-free address arithmetic the teacher's pmm.Frame/vmm.Page types rely
// on for their Address() helpers.
type PhysAddr uintptr

// VirtAddr is an opaque wrapper around a virtual memory address.
type VirtAddr uintptr

// Add returns p+delta. Saturates at the maximum representable address
// instead of wrapping around to a small value.
func (p PhysAddr) Add(delta Size) PhysAddr {
	if uintptr(delta) > ^uintptr(0)-uintptr(p) {
		return PhysAddr(^uintptr(0))
	}
	return p + PhysAddr(delta)
}

// Sub returns the byte distance from other to p (p - other). The caller is
// responsible for ensuring other <= p; like the rest of this type, the
// result saturates at zero rather than wrapping.
func (p PhysAddr) Sub(other PhysAddr) Size {
	if other > p {
		return 0
	}
	return Size(p - other)
}

// AlignDown rounds the address down to the previous multiple of align.
func (p PhysAddr) AlignDown(align Size) PhysAddr {
	return PhysAddr(Size(p).AlignDown(align))
}

// AlignUp rounds the address up to the next multiple of align.
func (p PhysAddr) AlignUp(align Size) PhysAddr {
	return PhysAddr(Size(p).AlignUp(align))
}

// Aligned reports whether p is a multiple of align.
func (p PhysAddr) Aligned(align Size) bool {
	return Size(p)%align == 0
}

// DirectMap returns the virtual address that corresponds to p inside the
// bootloader's higher-half direct map, whose offset is D: virt(p) = p + D.
func (p PhysAddr) DirectMap(d Size) VirtAddr {
	return VirtAddr(uintptr(p) + uintptr(d))
}

// Add returns v+delta, saturating at the maximum representable address.
func (v VirtAddr) Add(delta Size) VirtAddr {
	if uintptr(delta) > ^uintptr(0)-uintptr(v) {
		return VirtAddr(^uintptr(0))
	}
	return v + VirtAddr(delta)
}

// Sub returns the byte distance from other to v (v - other), saturating at
// zero rather than wrapping when other > v.
func (v VirtAddr) Sub(other VirtAddr) Size {
	if other > v {
		return 0
	}
	return Size(v - other)
}

// AlignDown rounds the address down to the previous multiple of align.
func (v VirtAddr) AlignDown(align Size) VirtAddr {
	return VirtAddr(Size(v).AlignDown(align))
}

// AlignUp rounds the address up to the next multiple of align.
func (v VirtAddr) AlignUp(align Size) VirtAddr {
	return VirtAddr(Size(v).AlignUp(align))
}

// Aligned reports whether v is a multiple of align.
func (v VirtAddr) Aligned(align Size) bool {
	return Size(v)%align == 0
}
