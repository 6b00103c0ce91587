package input

// DigitAllocator maps host touch identifiers to small digits. A freed digit is
// always handed out again before any higher one, so digits stay bounded by the
// number of concurrent contacts.
type DigitAllocator struct {
	owner []int64
	live  []bool
	count int
}

// NewDigitAllocator returns an empty allocator.
func NewDigitAllocator() *DigitAllocator {
	return &DigitAllocator{}
}

// Alloc assigns the lowest free digit to identifier. An identifier that
// already holds a digit keeps it.
func (a *DigitAllocator) Alloc(identifier int64) uint32 {
	if d, ok := a.Lookup(identifier); ok {
		return d
	}
	for d, used := range a.live {
		if !used {
			a.owner[d] = identifier
			a.live[d] = true
			a.count++
			return uint32(d)
		}
	}
	a.owner = append(a.owner, identifier)
	a.live = append(a.live, true)
	a.count++
	return uint32(len(a.live) - 1)
}

// Lookup returns the digit held by identifier.
func (a *DigitAllocator) Lookup(identifier int64) (uint32, bool) {
	for d, used := range a.live {
		if used && a.owner[d] == identifier {
			return uint32(d), true
		}
	}
	return 0, false
}

// Free releases identifier's digit and returns it.
func (a *DigitAllocator) Free(identifier int64) (uint32, bool) {
	d, ok := a.Lookup(identifier)
	if !ok {
		return 0, false
	}
	a.live[d] = false
	a.count--
	return d, true
}

// Live returns the number of digits in use.
func (a *DigitAllocator) Live() int {
	return a.count
}

// Digits returns the digits in use in ascending order.
func (a *DigitAllocator) Digits() []uint32 {
	out := make([]uint32, 0, a.count)
	for d, used := range a.live {
		if used {
			out = append(out, uint32(d))
		}
	}
	return out
}

// Reset frees every digit.
func (a *DigitAllocator) Reset() {
	a.owner = a.owner[:0]
	a.live = a.live[:0]
	a.count = 0
}
