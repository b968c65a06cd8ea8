package mem

// Layout describes the size and alignment requirement of a single
// allocation request, mirroring the (size, align) pair the bump, free-list
// and facade allocators all key off of.
type Layout struct {
	Size  Size
	Align Size
}

// NewLayout returns a Layout for size bytes aligned to align, which must be
// a power of two.
func NewLayout(size, align Size) Layout {
	return Layout{Size: size, Align: align}
}
