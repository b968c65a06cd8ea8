// Package driver defines the driver-manager contract the VMM hands off to
// once the real kernel page table is active, grounded on
// original_source/kernel/src/driver/manager.rs. Driver discovery and
// probing are outside this spec's scope; this package only gives
// kernel.Kmain a real, compilable handoff point.
package driver

import "vellum/kernel/console"

// Manager owns the set of discovered device drivers.
type Manager interface {
	// Init probes and initializes every registered driver, logging
	// progress to out.
	Init(out console.Writer) error
}

// Registry is a minimal Manager that keeps a static list of drivers that
// need no discovery, such as the console itself.
type Registry struct {
	drivers []Driver
}

// Driver is a device driver that can be brought up once the kernel table is
// active.
type Driver interface {
	Name() string
	Start() error
}

// NewRegistry returns a Registry seeded with drivers.
func NewRegistry(drivers ...Driver) *Registry {
	return &Registry{drivers: drivers}
}

// Init implements Manager.
func (r *Registry) Init(out console.Writer) error {
	for _, d := range r.drivers {
		if out != nil {
			out.WriteString("[driver] starting " + d.Name() + "\n")
		}
		if err := d.Start(); err != nil {
			return err
		}
	}
	return nil
}

var _ Manager = (*Registry)(nil)
