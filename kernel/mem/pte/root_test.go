package pte

import (
	"testing"
	"unsafe"

	"vellum/kernel/mem"
)

// fakeAllocator hands out page-aligned 4 KiB chunks from a big real Go
// buffer, standing in for the kernel heap the way the PPA tests stand in
// for physical memory: real addresses, no MMU behind them.
type fakeAllocator struct {
	next  uintptr
	limit uintptr
	freed int
}

func newFakeAllocator(t *testing.T, pages int) *fakeAllocator {
	t.Helper()
	buf := make([]byte, (pages+1)*int(mem.PageSize))
	base := uintptr(unsafe.Pointer(&buf[0]))
	aligned := (base + uintptr(mem.PageSize) - 1) &^ (uintptr(mem.PageSize) - 1)
	return &fakeAllocator{next: aligned, limit: aligned + uintptr(pages)*uintptr(mem.PageSize)}
}

func (a *fakeAllocator) Alloc(layout mem.Layout) (mem.VirtAddr, bool) {
	if a.next+uintptr(layout.Size) > a.limit {
		return 0, false
	}
	addr := a.next
	a.next += uintptr(layout.Size)
	return mem.VirtAddr(addr), true
}

func (a *fakeAllocator) Dealloc(ptr mem.VirtAddr, layout mem.Layout) {
	a.freed++
}

func newTestTable(t *testing.T, vaRange VaRange) *RootPageTable {
	t.Helper()
	alloc := newFakeAllocator(t, 64)
	// directMapOffset=0 so physical == virtual for table pages, matching
	// the pmm/heap tests' convention of using real memory as its own
	// "physical" backing.
	return New(alloc, 0, 0, 0, vaRange)
}

func TestMapRangeEmptyIsNoop(t *testing.T) {
	tbl := newTestTable(t, Upper)
	before := tbl.root.entries

	region := mem.NewRegion(mem.VirtAddr(0xFFFF_FFFF_8000_1000), mem.VirtAddr(0xFFFF_FFFF_8000_1000))
	if !region.Empty() {
		t.Fatalf("expected empty region, got len=%d", region.Len())
	}

	if err := tbl.MapRange(region, 0, Normal); err != nil {
		t.Fatalf("MapRange: %v", err)
	}

	if before != tbl.root.entries {
		t.Fatal("expected no descriptors to be written for an empty region")
	}
}

func TestMapRangeOnePage(t *testing.T) {
	tbl := newTestTable(t, Upper)

	start := mem.VirtAddr(0xFFFF_FFFF_8000_1000)
	region := mem.NewRegion(start, start.Add(mem.PageSize))

	if err := tbl.MapRange(region, 0x40000, Normal|ExecuteNever); err != nil {
		t.Fatalf("MapRange: %v", err)
	}

	idx0 := descriptorIndex(start, 0)
	sub0, ok := tbl.subtableFor(&tbl.root.entries[idx0], 0)
	if !ok {
		t.Fatal("expected level-0 entry to point at a subtable")
	}
	idx1 := descriptorIndex(start, 1)
	sub1, ok := tbl.subtableFor(&sub0.entries[idx1], 1)
	if !ok {
		t.Fatal("expected level-1 entry to point at a subtable")
	}
	leafTable, ok := tbl.subtableFor(&sub1.entries[descriptorIndex(start, 2)], 2)
	if !ok {
		t.Fatal("expected level-2 entry to point at a subtable")
	}

	leaf := leafTable.entries[descriptorIndex(start, 3)]
	flags, ok := leaf.flags()
	if !ok {
		t.Fatal("expected a valid leaf descriptor")
	}
	want := Valid | Accessed | TableOrPage | Normal | ExecuteNever
	if flags != want {
		t.Fatalf("expected flags %#x, got %#x", want, flags)
	}
	output, _ := leaf.outputAddress()
	if output != 0x40000 {
		t.Fatalf("expected output address 0x40000, got %#x", output)
	}
}

func TestMapRangeBackwardsReturnsError(t *testing.T) {
	tbl := newTestTable(t, Lower)

	region := mem.Region{Start: 0x2000, End: 0x1000}
	err := tbl.MapRange(region, 0, Normal)
	if _, ok := err.(*RegionBackwardsError); !ok {
		t.Fatalf("expected *RegionBackwardsError, got %v (%T)", err, err)
	}
}

func TestMapRangeOutOfRangeForLower(t *testing.T) {
	tbl := newTestTable(t, Lower)

	start := mem.VirtAddr(0xFFFF_0000_0000_0000)
	region := mem.NewRegion(start, start.Add(mem.PageSize))
	err := tbl.MapRange(region, 0, Normal)
	if _, ok := err.(*AddressRangeError); !ok {
		t.Fatalf("expected *AddressRangeError, got %v (%T)", err, err)
	}
}

func TestMapRangeBlockSplitPreservesOutsideMapping(t *testing.T) {
	tbl := newTestTable(t, Lower)

	// Map a full 1 GiB block at level 1.
	blockRegion := mem.NewRegion(0x0, mem.VirtAddr(0x4000_0000))
	if err := tbl.MapRange(blockRegion, 0x0, Normal); err != nil {
		t.Fatalf("block MapRange: %v", err)
	}

	idx0 := descriptorIndex(0, 0)
	sub0, ok := tbl.subtableFor(&tbl.root.entries[idx0], 0)
	if !ok {
		t.Fatal("expected level-0 entry to point at a subtable")
	}
	idx1 := descriptorIndex(0, 1)
	before := sub0.entries[idx1]
	if !before.isValid() || before.isTableOrPage() {
		t.Fatal("expected a block mapping at level 1 before the split")
	}

	splitRegion := mem.NewRegion(mem.VirtAddr(0x1000), mem.VirtAddr(0x2000))
	if err := tbl.MapRange(splitRegion, 0x999000, Normal|ExecuteNever); err != nil {
		t.Fatalf("split MapRange: %v", err)
	}

	after := sub0.entries[idx1]
	if !after.isTableOrPage() {
		t.Fatal("expected level-1 entry to now point at a subtable after the split")
	}

	level2, _ := tbl.subtableFor(&after, 1)
	level3, ok := tbl.subtableFor(&level2.entries[descriptorIndex(0x1000, 2)], 2)
	if !ok {
		t.Fatal("expected level-2 entry to point at a leaf subtable")
	}

	// The split page itself reflects the new mapping and flags.
	splitLeaf := level3.entries[descriptorIndex(0x1000, 3)]
	if out, _ := splitLeaf.outputAddress(); out != 0x999000 {
		t.Fatalf("expected split region output 0x999000, got %#x", out)
	}
	if flags, _ := splitLeaf.flags(); flags&ExecuteNever == 0 {
		t.Fatal("expected split region to carry the new XN flag")
	}

	// A neighboring page inside the same 2 MiB window, but outside the
	// split chunk, must still resolve to the original block's mapping.
	neighborLeaf := level3.entries[descriptorIndex(0x3000, 3)]
	if out, _ := neighborLeaf.outputAddress(); out != 0x3000 {
		t.Fatalf("expected untouched neighbor to retain identity mapping 0x3000, got %#x", out)
	}
	if flags, _ := neighborLeaf.flags(); flags&ExecuteNever != 0 {
		t.Fatal("expected untouched neighbor to retain the original flags without XN")
	}
}

func TestMapRangeIdempotent(t *testing.T) {
	tbl := newTestTable(t, Lower)
	region := mem.NewRegion(0x1000, 0x2000)

	if err := tbl.MapRange(region, 0x40000, Normal); err != nil {
		t.Fatalf("first MapRange: %v", err)
	}
	first := tbl.root.entries

	if err := tbl.MapRange(region, 0x40000, Normal); err != nil {
		t.Fatalf("second MapRange: %v", err)
	}
	second := tbl.root.entries

	if first != second {
		t.Fatal("expected identical repeated MapRange calls to produce identical descriptors")
	}
}

func TestActivateDeactivateParity(t *testing.T) {
	var reads, writes int
	readTTBR0Fn = func() uint64 { reads++; return 0xdead }
	writeTTBR0Fn = func(v uint64) { writes++ }
	tlbiASIDE1Fn = func(asid uint16) {}
	dsbISHSTFn = func() {}
	isbFn = func() {}
	defer func() {
		readTTBR0Fn = nil
		writeTTBR0Fn = nil
		tlbiASIDE1Fn = nil
		dsbISHSTFn = nil
		isbFn = nil
	}()

	tbl := newTestTable(t, Lower)
	tbl.Activate()

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected a second Activate without Deactivate to panic")
			}
		}()
		tbl.Activate()
	}()

	tbl.Deactivate()

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected Deactivate without a matching Activate to panic")
			}
		}()
		tbl.Deactivate()
	}()
}

func TestCloseFreesWithoutRestoringWhenInvalidated(t *testing.T) {
	var wrote bool
	readTTBR1Fn = func() uint64 { return 0 }
	writeTTBR1Fn = func(v uint64) { wrote = true }
	tlbiASIDE1Fn = func(asid uint16) {}
	dsbISHSTFn = func() {}
	isbFn = func() {}
	defer func() {
		readTTBR1Fn = nil
		writeTTBR1Fn = nil
		tlbiASIDE1Fn = nil
		dsbISHSTFn = nil
		isbFn = nil
	}()

	tbl := newTestTable(t, Upper)
	alloc := tbl.allocator.(*fakeAllocator)

	region := mem.NewRegion(mem.VirtAddr(0xFFFF_FFFF_8000_0000), mem.VirtAddr(0xFFFF_FFFF_8000_1000))
	tbl.MapRange(region, 0x1000, Normal)

	tbl.Activate()
	wrote = false
	tbl.InvalidatePreviousTTBR()

	tablesBeforeClose := alloc.freed
	tbl.Close()

	if wrote {
		t.Fatal("expected Close to skip restoring TTBR1 after InvalidatePreviousTTBR")
	}
	if alloc.freed <= tablesBeforeClose {
		t.Fatal("expected Close to free at least the root table")
	}
}
