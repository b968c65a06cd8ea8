package heap

import (
	"vellum/kernel/mem"
	"vellum/kernel/sync"
)

// PageSource supplies additional page-backed virtual memory to the facade
// when the Linked-List allocator runs dry. The VMM implements this by
// pulling fresh physical pages from the PPA and mapping them into the
// kernel heap window.
type PageSource interface {
	RequestPages(size mem.Size) (mem.VirtAddr, bool)
}

type facadeState int

const (
	facadeBoot facadeState = iota
	facadeMain
)

type facadeInner struct {
	state  facadeState
	seeded bool
	bump   Bump
	lla    LinkedList
	pages  PageSource
}

// Facade is the kernel's single global allocation entry point. It dispatches
// to the Bump allocator before the real heap exists and to the Linked-List
// allocator afterward, growing the LLA from pages via PageSource on
// exhaustion. It is safe to call from any context because every operation
// runs with IRQs masked.
type Facade struct {
	lock *sync.IRQSafeNullLock[facadeInner]
}

// NewFacade returns a facade in the Boot state, backed by pages for heap
// growth once in the Main state.
func NewFacade(pages PageSource) *Facade {
	return &Facade{lock: sync.NewIRQSafeNullLock(facadeInner{pages: pages})}
}

// InitBump installs the bootstrap bump range. Must be called once, before
// any Alloc, while the facade is still in the Boot state.
func (f *Facade) InitBump(start, end mem.VirtAddr) {
	sync.With(f.lock, func(s *facadeInner) {
		s.bump.Init(start, end)
	})
}

// UseMainAllocator flips the facade from Boot to Main, one-way, and returns
// the number of bytes the Bump allocator had used at the moment of the
// switch. The caller (the VMM) uses this to compute the remainder of the
// initial bump region and pass it to SeedMainRegion.
func (f *Facade) UseMainAllocator() mem.Size {
	return sync.WithResult(f.lock, func(s *facadeInner) mem.Size {
		if s.state == facadeMain {
			panic("heap: facade already on the main allocator")
		}
		used := s.bump.Used()
		s.state = facadeMain
		return used
	})
}

// SeedMainRegion adds the first region to the Linked-List allocator. It may
// only be called once, immediately after UseMainAllocator transitions the
// facade to Main; any further explicit region addition is forbidden and
// panics; heap growth from then on happens exclusively through the
// alloc-failure retry path inside Alloc.
func (f *Facade) SeedMainRegion(start mem.VirtAddr, size mem.Size) {
	sync.With(f.lock, func(s *facadeInner) {
		if s.state != facadeMain {
			panic("heap: SeedMainRegion called before UseMainAllocator")
		}
		if s.seeded {
			panic("heap: heap region already seeded; further additions are forbidden")
		}
		s.lla.AddRegion(start, size)
		s.seeded = true
	})
}

// IsMainAllocator reports whether UseMainAllocator has already run.
func (f *Facade) IsMainAllocator() bool {
	return sync.WithResult(f.lock, func(s *facadeInner) bool {
		return s.state == facadeMain
	})
}

type allocResult struct {
	addr mem.VirtAddr
	ok   bool
}

// Alloc routes the request to the active backend. In Main, a failed
// allocation triggers exactly one top-up from PageSource before giving up;
// if the retry also fails, this is a fatal resource exhaustion and panics.
func (f *Facade) Alloc(layout mem.Layout) (mem.VirtAddr, bool) {
	r := sync.WithResult(f.lock, func(s *facadeInner) allocResult {
		if s.state == facadeBoot {
			addr, ok := s.bump.Alloc(layout)
			return allocResult{addr, ok}
		}

		if addr, ok := s.lla.Alloc(layout); ok {
			return allocResult{addr, true}
		}
		if s.pages == nil {
			return allocResult{0, false}
		}

		topUp := layout.Size.AlignUp(mem.PageSize)
		start, ok := s.pages.RequestPages(topUp)
		if !ok {
			panic("heap: out of physical memory for heap growth")
		}
		s.lla.AddRegion(start, topUp)

		addr, ok := s.lla.Alloc(layout)
		if !ok {
			panic("heap: linked-list allocator exhausted even after a top-up")
		}
		return allocResult{addr, true}
	})

	return r.addr, r.ok
}

// Dealloc routes the release to the active backend.
func (f *Facade) Dealloc(ptr mem.VirtAddr, layout mem.Layout) {
	sync.With(f.lock, func(s *facadeInner) {
		if s.state == facadeBoot {
			s.bump.Dealloc()
			return
		}
		s.lla.Dealloc(ptr, layout)
	})
}
