// Package cpu exposes the privileged AArch64 instructions the memory
// bootstrap needs: barriers, TTBR/TCR access, TLB invalidation and the WFE
// halt loop. Each function is declared here and implemented in the
// accompanying assembly file, following the same split the teacher uses for
// its TLB/PDT-switch primitives (kernel/mem/vmm/tlb.go in gopheros).
package cpu

// Halt parks the core in a WFE loop forever. Never returns.
func Halt()

// WaitForEvent issues a single WFE instruction.
func WaitForEvent()

// DisableIRQs masks IRQs (sets DAIF.I) and returns the previous DAIF value
// so the caller can restore it later.
func DisableIRQs() (previousDAIF uint64)

// RestoreIRQs writes previousDAIF back to DAIF, as returned by a prior call
// to DisableIRQs.
func RestoreIRQs(previousDAIF uint64)

// ReadMPIDR returns the value of MPIDR_EL1.
func ReadMPIDR() uint64

// ReadTTBR0 returns the current value of TTBR0_EL1.
func ReadTTBR0() uint64

// WriteTTBR0 writes TTBR0_EL1.
func WriteTTBR0(value uint64)

// ReadTTBR1 returns the current value of TTBR1_EL1.
func ReadTTBR1() uint64

// WriteTTBR1 writes TTBR1_EL1.
func WriteTTBR1(value uint64)

// ReadTCR returns the current value of TCR_EL1.
func ReadTCR() uint64

// WriteTCR writes TCR_EL1.
func WriteTCR(value uint64)

// TLBIASIDE1 invalidates all TLB entries tagged with the given ASID
// (TLBI ASIDE1, <asid>) and follows it with the DSB NSH; ISB barrier
// sequence required before the invalidation is guaranteed visible.
func TLBIASIDE1(asid uint16)

// DSBISHST emits a DSB ISHST barrier: waits for prior stores (including
// page-table writes) to become visible to inner-shareable observers before
// any subsequent instruction executes.
func DSBISHST()

// ISB emits an instruction synchronization barrier.
func ISB()

// ReadCNTPCT returns the current value of CNTPCT_EL0, the physical count
// register backing the architectural timer.
func ReadCNTPCT() uint64

// ReadCNTFRQ returns the frequency (Hz) of the counter read by ReadCNTPCT.
func ReadCNTFRQ() uint64
