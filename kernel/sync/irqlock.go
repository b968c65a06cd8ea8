// Package sync provides the kernel's single-core synchronization
// primitives: an IRQ-disable critical section standing in for a mutex, a
// one-shot cell for global singletons, and a reader/writer cell that seals
// itself after early boot. Grounded on
// original_source/kernel/src/sync/irq_safe_null.rs,
// original_source/kernel/src/sync/once_cell.rs and
// original_source/kernel/src/sync/init.rs — this spec is single-core only
// (spec.md §5), so none of these types need a real spinlock.
package sync

import "vellum/kernel/cpu"

// IRQSafeNullLock guards a single value T. It is not a mutex in the SMP
// sense: because only one core ever runs kernel code, the only re-entrancy
// hazard is an IRQ handler observed mid-update on the same core, so the
// critical section simply masks IRQs for its duration instead of spinning.
// Under SMP this type would need to become a real spinlock-with-IRQ-mask.
type IRQSafeNullLock[T any] struct {
	value T
}

// NewIRQSafeNullLock wraps value behind an IRQ-masked critical section.
func NewIRQSafeNullLock[T any](value T) *IRQSafeNullLock[T] {
	return &IRQSafeNullLock[T]{value: value}
}

// With runs fn with exclusive access to the wrapped value, masking IRQs for
// the duration and restoring the previous DAIF state afterwards.
func With[T any](l *IRQSafeNullLock[T], fn func(*T)) {
	saved := cpu.DisableIRQs()
	defer cpu.RestoreIRQs(saved)
	fn(&l.value)
}

// WithResult is like With but lets fn return a value out of the critical
// section.
func WithResult[T, R any](l *IRQSafeNullLock[T], fn func(*T) R) R {
	saved := cpu.DisableIRQs()
	defer cpu.RestoreIRQs(saved)
	return fn(&l.value)
}
