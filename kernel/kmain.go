package kernel

import (
	"vellum/kernel/boot"
	"vellum/kernel/bsp/qemuvirt"
	"vellum/kernel/console"
	"vellum/kernel/cpu"
	"vellum/kernel/driver"
	"vellum/kernel/irq"
	"vellum/kernel/kfmt"
	"vellum/kernel/mem/vmm"
)

// Kmain is the only Go symbol visible from the rt0 assembly, invoked after
// EL1 is entered and a minimal stack is live. It is not expected to return;
// if it does, the rt0 code halts the CPU.
//
//go:noinline
func Kmain() {
	defer func() {
		if r := recover(); r != nil {
			Panic(r)
		}
	}()

	uart := console.NewPL011(qemuvirt.PL011Base)
	kfmt.SetOutput(uart)
	kfmt.Printf("booting\n")

	manager := vmm.New()
	manager.Init(boot.Collect(), qemuvirt.ReadLinkerSymbols())
	kfmt.Printf("vmm: kernel page table active, highest physical address %x\n", uint64(manager.Digest().HighestPhysicalAddress))

	_ = irq.NewNull(uart)

	drivers := driver.NewRegistry()
	if err := drivers.Init(uart); err != nil {
		Panic(err.Error())
	}

	kfmt.Printf("kernel ready\n")
	for {
		cpu.WaitForEvent()
	}
}
