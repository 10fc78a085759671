package tracker

// Handle addresses an arena slot. Handles stay valid across unrelated
// allocations and go stale when their slot is freed; a stale handle
// never resolves to a newer occupant. The zero Handle is always
// invalid.
type Handle struct {
	index uint32
	gen   uint32
}

// Valid reports whether the handle was ever issued.
func (h Handle) Valid() bool {
	return h.gen != 0
}

type slot[T any] struct {
	gen  uint32
	live bool
	val  T
}

// arena is a slab of entries addressed by generation-checked handles.
type arena[T any] struct {
	slots []slot[T]
	free  []uint32
}

func (a *arena[T]) alloc(v T) Handle {
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		s := &a.slots[idx]
		s.gen++
		s.live = true
		s.val = v
		return Handle{index: idx, gen: s.gen}
	}
	a.slots = append(a.slots, slot[T]{gen: 1, live: true, val: v})
	return Handle{index: uint32(len(a.slots) - 1), gen: 1}
}

func (a *arena[T]) get(h Handle) (*T, bool) {
	if !h.Valid() || int(h.index) >= len(a.slots) {
		return nil, false
	}
	s := &a.slots[h.index]
	if !s.live || s.gen != h.gen {
		return nil, false
	}
	return &s.val, true
}

func (a *arena[T]) release(h Handle) bool {
	if _, ok := a.get(h); !ok {
		return false
	}
	s := &a.slots[h.index]
	s.live = false
	var zero T
	s.val = zero
	a.free = append(a.free, h.index)
	return true
}
