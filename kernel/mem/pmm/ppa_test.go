package pmm

import (
	"testing"
	"unsafe"

	"vellum/kernel/mem"
)

// backing returns a page-aligned physical address for sz bytes of real Go
// memory, usable as a fake physical region when the allocator's direct-map
// offset is zero (virt == phys). This mirrors the teacher's mem tests,
// which poke at real slices through unsafe.Pointer to stand in for raw
// physical memory.
func backing(t *testing.T, sz mem.Size) mem.PhysAddr {
	t.Helper()
	buf := make([]byte, uintptr(sz)+uintptr(mem.PageSize))
	base := uintptr(unsafe.Pointer(&buf[0]))
	aligned := (base + uintptr(mem.PageSize) - 1) &^ (uintptr(mem.PageSize) - 1)
	return mem.PhysAddr(aligned)
}

func TestAllocateExactFit(t *testing.T) {
	a := New(0)
	region := backing(t, mem.PageSize)

	if err := a.AddRegion(region, mem.PageSize); err != nil {
		t.Fatalf("AddRegion: %v", err)
	}

	got, ok := a.Allocate(mem.PageSize)
	if !ok {
		t.Fatal("expected Allocate to succeed")
	}
	if got != region {
		t.Fatalf("expected %#x, got %#x", region, got)
	}
	if a.FreeBytes() != 0 {
		t.Fatalf("expected no free bytes left, got %d", a.FreeBytes())
	}

	if _, ok := a.Allocate(mem.PageSize); ok {
		t.Fatal("expected second allocation from an exhausted allocator to fail")
	}
}

func TestAllocateSplitsRemainder(t *testing.T) {
	a := New(0)
	region := backing(t, 4*mem.PageSize)

	if err := a.AddRegion(region, 4*mem.PageSize); err != nil {
		t.Fatalf("AddRegion: %v", err)
	}

	before := a.FreeBytes()

	got, ok := a.Allocate(mem.PageSize)
	if !ok {
		t.Fatal("expected Allocate to succeed")
	}
	if got != region {
		t.Fatalf("expected allocation to come from region start %#x, got %#x", region, got)
	}

	after := a.FreeBytes()
	if before-after != mem.PageSize {
		t.Fatalf("conservation violated: before=%d after=%d", before, after)
	}

	// The remainder should still be usable.
	got2, ok := a.Allocate(3 * mem.PageSize)
	if !ok {
		t.Fatal("expected remainder allocation to succeed")
	}
	if got2 != region.Add(mem.PageSize) {
		t.Fatalf("expected remainder at %#x, got %#x", region.Add(mem.PageSize), got2)
	}
	if a.FreeBytes() != 0 {
		t.Fatalf("expected allocator to be fully drained, got %d free", a.FreeBytes())
	}
}

func TestAllocateSkipsRegionWithUnusableRemainder(t *testing.T) {
	a := New(0)
	// A region nodeSize/2 bytes larger than the request leaves a remainder
	// too small to host a node header, so it must be skipped entirely.
	tooSmallRemainder := mem.PageSize + nodeSize/2
	small := backing(t, tooSmallRemainder)
	big := backing(t, 4*mem.PageSize)

	// AddRegion prepends, so adding small last puts it at the head of the
	// list, where Allocate examines it first.
	if err := a.AddRegion(big, 4*mem.PageSize); err != nil {
		t.Fatalf("AddRegion(big): %v", err)
	}
	if err := a.AddRegion(small, tooSmallRemainder); err != nil {
		t.Fatalf("AddRegion(small): %v", err)
	}

	got, ok := a.Allocate(mem.PageSize)
	if !ok {
		t.Fatal("expected Allocate to succeed")
	}
	if got == small {
		t.Fatalf("allocator carved an unsplittable region instead of skipping it")
	}
	if got != big {
		t.Fatalf("expected allocation from the big region %#x, got %#x", big, got)
	}
}

func TestAllocateNoFitFails(t *testing.T) {
	a := New(0)
	region := backing(t, mem.PageSize)
	if err := a.AddRegion(region, mem.PageSize); err != nil {
		t.Fatalf("AddRegion: %v", err)
	}

	if _, ok := a.Allocate(2 * mem.PageSize); ok {
		t.Fatal("expected Allocate to fail when no region is large enough")
	}
}

func TestAddRegionRejectsMisalignedOrUndersizedRegions(t *testing.T) {
	a := New(0)

	misaligned := backing(t, mem.PageSize).Add(1)
	if err := a.AddRegion(misaligned, mem.PageSize); err == nil {
		t.Fatal("expected misaligned region to be rejected")
	}

	aligned := backing(t, mem.PageSize)
	if err := a.AddRegion(aligned, nodeSize-1); err == nil {
		t.Fatal("expected undersized region to be rejected")
	}
}

func TestDirectMapOffsetIsHonored(t *testing.T) {
	const offset = mem.Size(0x1000_0000)
	a := New(offset)

	// Simulate physical memory at phys = virt - offset, where virt is real
	// backing Go memory.
	virt := backing(t, mem.PageSize)
	phys := mem.PhysAddr(uintptr(virt) - uintptr(offset))

	if err := a.AddRegion(phys, mem.PageSize); err != nil {
		t.Fatalf("AddRegion: %v", err)
	}

	got, ok := a.Allocate(mem.PageSize)
	if !ok {
		t.Fatal("expected Allocate to succeed")
	}
	if got != phys {
		t.Fatalf("expected %#x, got %#x", phys, got)
	}
}
