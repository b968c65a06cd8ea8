package pte

import (
	"unsafe"

	"vellum/kernel/cpu"
	"vellum/kernel/mem"
)

var (
	// These are package-level fn vars, mocked by tests, following the
	// same seam gopheros uses for its activePDTFn/switchPDTFn pair.
	readTTBR0Fn  = cpu.ReadTTBR0
	writeTTBR0Fn = cpu.WriteTTBR0
	readTTBR1Fn  = cpu.ReadTTBR1
	writeTTBR1Fn = cpu.WriteTTBR1
	tlbiASIDE1Fn = cpu.TLBIASIDE1
	dsbISHSTFn   = cpu.DSBISHST
	isbFn        = cpu.ISB
)

// Activate installs this table's root as the live translation table for its
// VA range: TTBR0 for Lower, TTBR1 for Upper, encoding the ASID in the top
// 16 bits. The previously installed TTBR is saved so Deactivate (or Close)
// can restore it. Panics if called twice without an intervening Deactivate.
func (t *RootPageTable) Activate() {
	if t.active {
		panic("pte: Activate called twice without an intervening Deactivate")
	}

	encoded := uint64(t.asid)<<48 | uint64(t.rootPhys)

	switch t.vaRange {
	case Lower:
		t.savedTTBR = readTTBR0Fn()
		writeTTBR0Fn(encoded)
	case Upper:
		t.savedTTBR = readTTBR1Fn()
		writeTTBR1Fn(encoded)
	}
	t.hasSaved = true
	t.active = true

	isbFn()
}

// Deactivate restores the previously saved TTBR (if InvalidatePreviousTTBR
// has not discarded it), invalidates every TLB entry tagged with this
// table's ASID, and emits the barrier sequence the architecture requires
// around that invalidation.
func (t *RootPageTable) Deactivate() {
	if !t.active {
		panic("pte: Deactivate called without a matching Activate")
	}

	if t.hasSaved {
		switch t.vaRange {
		case Lower:
			writeTTBR0Fn(t.savedTTBR)
		case Upper:
			writeTTBR1Fn(t.savedTTBR)
		}
	}

	tlbiASIDE1Fn(t.asid)
	dsbISHSTFn()
	isbFn()

	t.hasSaved = false
	t.active = false
}

// InvalidatePreviousTTBR discards the saved TTBR so that Close does not
// restore it. Used when the previous table is the bootloader's, which is
// about to become invalid.
func (t *RootPageTable) InvalidatePreviousTTBR() {
	t.hasSaved = false
}

// Close tears down the table: if a saved TTBR remains, it is deactivated
// first (restoring that TTBR); a table whose saved TTBR was discarded by
// InvalidatePreviousTTBR is not deactivated. Then every owned table page, at every
// level, is walked and freed. The table must not be used after Close.
func (t *RootPageTable) Close() {
	if t.hasSaved {
		t.Deactivate()
	}
	t.free(t.root, 0)
}

func (t *RootPageTable) free(table *PageTable, level int) {
	if level < mem.LeafLevel {
		for i := range table.entries {
			if sub, ok := t.subtableFor(&table.entries[i], level); ok {
				t.free(sub, level+1)
			}
		}
	}
	virt := mem.VirtAddr(uintptr(unsafe.Pointer(table)))
	t.allocator.Dealloc(virt, tableLayout)
}
