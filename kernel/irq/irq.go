// Package irq defines the IRQ manager contract the VMM and the rest of the
// kernel depend on, plus a Null implementation, grounded on
// original_source/kernel/src/exception/null_irq_manager.rs: the manager
// used before a real GICv2 driver exists. It only handles delivered IRQs;
// IRQ masking is done by kernel/sync through kernel/cpu, not through this
// package.
package irq

import "vellum/kernel/console"

// Manager routes hardware interrupts to handlers. The full GICv2-backed
// implementation is an external collaborator outside this spec's scope.
// The interface has no mask or unmask operations.
type Manager interface {
	// HandleIRQ is invoked from the IRQ vector with the pending
	// interrupt's number.
	HandleIRQ(number uint32)
}

// Null is the default Manager installed before a board-specific interrupt
// controller driver takes over. It logs unexpected IRQs and otherwise does
// nothing.
type Null struct {
	out console.Writer
}

// NewNull returns a Null manager that logs to out (which may be nil, in
// which case HandleIRQ is silent).
func NewNull(out console.Writer) *Null {
	return &Null{out: out}
}

// HandleIRQ implements Manager.
func (n *Null) HandleIRQ(number uint32) {
	if n.out == nil {
		return
	}
	n.out.WriteString("[irq] unhandled interrupt on null manager\n")
}

var _ Manager = (*Null)(nil)
