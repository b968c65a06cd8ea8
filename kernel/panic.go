package kernel

import (
	"sync/atomic"

	"vellum/kernel/cpu"
	"vellum/kernel/kfmt"
	"vellum/kernel/time"
)

var (
	// cpuHaltFn and nowFn are mocked by tests.
	cpuHaltFn = cpu.Halt
	nowFn     = time.Now

	errRuntimePanic = &Error{Module: "rt", Message: "unknown cause"}

	// panicking guards against re-entrant panics: a fault while already
	// printing a panic message (for example a broken console driver)
	// must not recurse into Printf again.
	panicking atomic.Bool
)

// Panic prints the supplied error (if not nil) to the console, with a
// timestamp, and halts the CPU. Calls to Panic never return. A second call
// made while the first is still in flight halts immediately without
// attempting to print anything.
func Panic(e interface{}) {
	if !panicking.CompareAndSwap(false, true) {
		cpuHaltFn()
		return
	}

	var err *Error
	switch t := e.(type) {
	case *Error:
		err = t
	case string:
		errRuntimePanic.Message = t
		err = errRuntimePanic
	case error:
		errRuntimePanic.Message = t.Error()
		err = errRuntimePanic
	}

	kfmt.Printf("\n[t=%d] -----------------------------------\n", nowFn())
	if err != nil {
		kfmt.Printf("[%s] unrecoverable error: %s\n", err.Module, err.Message)
	}
	kfmt.Printf("*** kernel panic: system halted ***")
	kfmt.Printf("\n-----------------------------------\n")

	cpuHaltFn()
}
