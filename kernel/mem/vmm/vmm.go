// Package vmm implements the virtual memory manager: the bootstrap
// choreography that takes the kernel from the bootloader's page tables to
// its own, and the kernel_alloc API used afterward. Grounded on
// original_source/kernel/src/mem.rs's KernelMemoryManager/init_kernel_paging
// shape, with the actual sequencing taken from spec.md §4.6/§4.7 since the
// original leaves init_kernel_paging as a todo!().
package vmm

import (
	"vellum/kernel/boot"
	"vellum/kernel/bsp/qemuvirt"
	"vellum/kernel/cpu"
	"vellum/kernel/kfmt"
	"vellum/kernel/mem"
	"vellum/kernel/mem/heap"
	"vellum/kernel/mem/pmm"
	"vellum/kernel/mem/pte"
	"vellum/kernel/sync"
)

// Digest is the result of parsing the boot memory map.
type Digest struct {
	HighestPhysicalAddress mem.PhysAddr
	KernelPhysicalAddress  mem.PhysAddr
}

// directPageSource allocates page-table pages straight from the PPA through
// the direct map, bypassing the kernel heap entirely. This is the fix
// spec.md §9's "direct-map-only table pages" note calls for: table pages
// must stay inside the direct-map window the page-table engine knows how to
// translate, which the heap's own virtual addresses (fixed at
// kernel_heap_start, outside that window) cannot guarantee once the LLA is
// live.
type directPageSource struct {
	ppa             *pmm.Allocator
	directMapOffset mem.Size
}

func (d *directPageSource) Alloc(layout mem.Layout) (mem.VirtAddr, bool) {
	phys, ok := d.ppa.Allocate(layout.Size.AlignUp(mem.PageSize))
	if !ok {
		return 0, false
	}
	return phys.DirectMap(d.directMapOffset), true
}

func (d *directPageSource) Dealloc(mem.VirtAddr, mem.Layout) {}

var _ pte.PageAllocator = (*directPageSource)(nil)

// Manager owns the PPA, the kernel heap facade, and the canonical kernel
// page table, and drives the one-shot bootstrap sequence between them.
type Manager struct {
	ppa    *pmm.Allocator
	heap   *heap.Facade
	tables directPageSource

	directMapOffset mem.Size
	digest          Digest
	linker          qemuvirt.LinkerSymbols

	heapWatermark mem.VirtAddr
	kernelTable   sync.OnceCell[*pte.RootPageTable]
}

// New returns a Manager with its heap facade constructed (itself the
// PageSource the facade calls into on LLA exhaustion) but not yet seeded;
// call Init to run the bootstrap sequence.
func New() *Manager {
	m := &Manager{}
	m.heap = heap.NewFacade(m)
	return m
}

// Heap returns the global allocation facade.
func (m *Manager) Heap() *heap.Facade {
	return m.heap
}

// Digest returns the memory-map parse result computed during Init.
func (m *Manager) Digest() Digest {
	return m.digest
}

func must(err error) {
	if err != nil {
		panic(err.Error())
	}
}

// Init runs the full bootstrap choreography (spec.md §4.6): parse the boot
// memory map, seed the bump allocator, build a transient kernel table,
// switch the heap to the linked-list allocator, build the real kernel table
// (its table pages, like the transient table's, come from the PPA through
// the direct map, not from the heap), and drop the transient one. Every step must complete before
// the next begins; any violated invariant panics.
func (m *Manager) Init(info boot.Info, linker qemuvirt.LinkerSymbols) {
	m.directMapOffset = info.DirectMapOffset
	m.linker = linker
	m.heapWatermark = linker.HeapStart

	m.ppa = pmm.New(info.DirectMapOffset)
	m.tables = directPageSource{ppa: m.ppa, directMapOffset: info.DirectMapOffset}

	// Step 1: parse the memory map.
	m.parseMemoryMap(info.MemoryMap)

	limit := linker.BinaryStart.Sub(mem.VirtAddr(info.DirectMapOffset))
	if mem.Size(m.digest.HighestPhysicalAddress) > limit {
		kfmt.Printf("vmm: highest physical address %d exceeds direct-map window of %d bytes\n", uint64(m.digest.HighestPhysicalAddress), uint64(limit))
		panic("vmm: physical memory exceeds the direct-map window")
	}
	highest := m.digest.HighestPhysicalAddress

	// Step 2: seed the bump allocator from a fresh 64 KiB PPA allocation,
	// addressed through the direct map (no kernel table exists yet).
	initialAllocPhys, ok := m.ppa.Allocate(qemuvirt.InitialAllocSize)
	if !ok {
		panic("vmm: not enough physical memory for the initial heap allocation")
	}
	bumpStart := initialAllocPhys.DirectMap(info.DirectMapOffset)
	m.heap.InitBump(bumpStart, bumpStart.Add(qemuvirt.InitialAllocSize))

	// Step 3: build the transient root table and activate it.
	transient := pte.New(&m.tables, info.DirectMapOffset, mem.Size(highest), 0, pte.Upper)
	m.mapCanonical(transient, initialAllocPhys, qemuvirt.InitialAllocSize)
	transient.Activate()
	cpu.WriteTCR(qemuvirt.TCREL1(true))
	cpu.ISB()
	transient.InvalidatePreviousTTBR()

	// Step 4: switch the heap to the linked-list allocator. From here,
	// allocations target the real kernel heap window, already mapped by
	// the transient table's canonical entry.
	used := m.heap.UseMainAllocator()
	alignedUsed := used.AlignUp(mem.PageSize)
	remainderStart := linker.HeapStart.Add(alignedUsed)
	remainderSize := qemuvirt.InitialAllocSize - alignedUsed
	m.heap.SeedMainRegion(remainderStart, remainderSize)
	m.heapWatermark = linker.HeapStart.Add(qemuvirt.InitialAllocSize)

	// Step 5: build the real kernel table; its table pages still come
	// from the direct-mapped PPA source, not the heap (see
	// directPageSource).
	real := pte.New(&m.tables, info.DirectMapOffset, mem.Size(highest), 0, pte.Upper)
	m.mapCanonical(real, initialAllocPhys, qemuvirt.InitialAllocSize)
	real.Activate()
	cpu.WriteTCR(qemuvirt.TCREL1(false))
	cpu.ISB()
	real.InvalidatePreviousTTBR()
	m.kernelTable.Set(real)

	// Step 6: drop the transient table. Its saved TTBR was discarded in
	// step 3, so this only frees its hierarchy.
	transient.Close()
}

// parseMemoryMap ingests every Usable entry into the PPA, records the base
// of the KernelAndModules entry, and tracks the highest reported physical
// address, in ascending order as the bootloader provides the map.
func (m *Manager) parseMemoryMap(entries []boot.MemoryMapEntry) {
	var highest, kernelPhys mem.PhysAddr
	for _, e := range entries {
		switch e.Kind {
		case boot.Usable:
			if err := m.ppa.AddRegion(e.Base, e.Length); err != nil {
				panic(err.Error())
			}
		case boot.KernelAndModules:
			kernelPhys = e.Base
		}
		if end := e.End(); end > highest {
			highest = end
		}
	}
	m.digest = Digest{HighestPhysicalAddress: highest, KernelPhysicalAddress: kernelPhys}
}

// mapCanonical installs the four mappings every kernel root table (both
// transient and real) must contain, per spec.md §4.7.
func (m *Manager) mapCanonical(table *pte.RootPageTable, initialAllocStart mem.PhysAddr, initialAllocSize mem.Size) {
	directMapRegion := mem.NewRegion(
		mem.VirtAddr(m.directMapOffset),
		mem.VirtAddr(m.directMapOffset).Add(mem.Size(m.digest.HighestPhysicalAddress)),
	)
	must(table.MapRange(directMapRegion, 0, pte.DeviceNGnRnE|pte.ExecuteNever))

	codeRegion := mem.NewRegion(m.linker.CodeStart, m.linker.CodeEnd)
	must(table.MapRange(codeRegion, m.digest.KernelPhysicalAddress, pte.Normal|pte.ReadOnly))

	dataOffset := m.linker.DataStart.Sub(m.linker.BinaryStart)
	dataRegion := mem.NewRegion(m.linker.DataStart, m.linker.DataEnd)
	must(table.MapRange(dataRegion, m.digest.KernelPhysicalAddress.Add(dataOffset), pte.Normal|pte.ExecuteNever))

	heapRegion := mem.NewRegion(m.linker.HeapStart, m.linker.HeapStart.Add(initialAllocSize))
	must(table.MapRange(heapRegion, initialAllocStart, pte.Normal|pte.ExecuteNever))
}

// KernelAlloc allocates ceil(size/PAGE_SIZE) pages of fresh physical memory
// and maps it into the kernel's virtual address space, returning the mapped
// virtual address. Panics if called before Init has built the real kernel
// table (step 5).
func (m *Manager) KernelAlloc(size mem.Size) mem.VirtAddr {
	if !m.kernelTable.IsSet() {
		panic("vmm: KernelAlloc called before the real kernel table exists")
	}

	pages := size.AlignUp(mem.PageSize)
	phys, allocated := m.ppa.Allocate(pages)
	if !allocated {
		panic("vmm: out of physical memory")
	}

	if m.heap.IsMainAllocator() {
		virt := m.heapWatermark
		region := mem.NewRegion(virt, virt.Add(pages))
		must(m.kernelTable.Get().MapRange(region, phys, pte.Normal|pte.ExecuteNever))
		m.heapWatermark = m.heapWatermark.Add(pages)
		return virt
	}
	return phys.DirectMap(m.directMapOffset)
}

// RequestPages implements heap.PageSource: it backs the facade's top-up
// path once the LLA runs dry, carving fresh physical pages from the PPA and
// mapping them into the next unused slice of the kernel heap window.
func (m *Manager) RequestPages(size mem.Size) (mem.VirtAddr, bool) {
	aligned := size.AlignUp(mem.PageSize)
	if m.heapWatermark.Add(aligned) > qemuvirt.KernelHeapEnd {
		panic("vmm: kernel heap virtual window exhausted")
	}

	phys, ok := m.ppa.Allocate(aligned)
	if !ok {
		return 0, false
	}

	if !m.kernelTable.IsSet() {
		return 0, false
	}

	virt := m.heapWatermark
	region := mem.NewRegion(virt, virt.Add(aligned))
	if err := m.kernelTable.Get().MapRange(region, phys, pte.Normal|pte.ExecuteNever); err != nil {
		return 0, false
	}
	m.heapWatermark = m.heapWatermark.Add(aligned)
	return virt, true
}

var _ heap.PageSource = (*Manager)(nil)
