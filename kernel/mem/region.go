package mem

// Region describes a half-open range [Start, End) of virtual addresses.
// NewRegion rounds both endpoints to a page boundary (Start down, End up) so
// every Region a caller can construct is already page-aligned.
type Region struct {
	Start VirtAddr
	End   VirtAddr
}

// NewRegion builds a Region covering at least [start, end), rounding Start
// down and End up to the nearest page boundary. If end < start the rounded
// region is still returned; callers that must reject backwards ranges (the
// page-table engine's MapRange) check Len() or compare Start/End directly.
func NewRegion(start, end VirtAddr) Region {
	return Region{
		Start: start.AlignDown(PageSize),
		End:   end.AlignUp(PageSize),
	}
}

// Len returns the number of bytes covered by the region. It is zero for an
// empty region and for a backwards one.
func (r Region) Len() Size {
	if r.End <= r.Start {
		return 0
	}
	return r.End.Sub(r.Start)
}

// Empty reports whether the region covers no addresses.
func (r Region) Empty() bool {
	return r.Len() == 0
}

// Backwards reports whether End is strictly before Start.
func (r Region) Backwards() bool {
	return r.End < r.Start
}
