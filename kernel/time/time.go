// Package time provides the kernel's only notion of elapsed time: a read of
// the AArch64 architectural timer, grounded on
// original_source/kernel/src/arch/aarch64/time.rs. There is no scheduler or
// timer interrupt here (spec.md's Non-goals exclude preemption), only a
// counter read (Now, used for the panic path's timestamp) and a busy-wait
// (SpinFor) for callers that need to pace a hardware poll.
package time

import "vellum/kernel/cpu"

var (
	// readCounterFn and readFreqFn are mocked by tests.
	readCounterFn = cpu.ReadCNTPCT
	readFreqFn    = cpu.ReadCNTFRQ
)

// Duration is a span of time expressed in nanoseconds.
type Duration uint64

const nanosPerSecond = 1_000_000_000

// Now returns the current architectural timer count, in the same units
// SpinFor compares against — not wall-clock nanoseconds, since converting
// requires CNTFRQ_EL0, which SpinFor reads internally.
func Now() uint64 {
	return readCounterFn()
}

// SpinFor busy-waits until at least d has elapsed, as measured by the
// architectural counter.
func SpinFor(d Duration) {
	freq := readFreqFn()
	if freq == 0 {
		return
	}

	ticks := (uint64(d) * freq) / nanosPerSecond
	start := readCounterFn()
	for readCounterFn()-start < ticks {
	}
}
