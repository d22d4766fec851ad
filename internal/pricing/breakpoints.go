package pricing

var defaultBreakpoints = []int{1, 25, 50, 100, 250, 500, 1000}

// Breakpoints is an ascending list of quantities used for comparison matrices.
type Breakpoints struct {
	quantities []int
}

// NewBreakpoints validates that quantities are positive and strictly ascending.
func NewBreakpoints(quantities []int) (Breakpoints, error) {
	if len(quantities) == 0 {
		return Breakpoints{}, configErrorf("volume breakpoints", "at least one breakpoint is required")
	}
	for i, q := range quantities {
		if q < 1 {
			return Breakpoints{}, configErrorf("volume breakpoints", "breakpoint %d must be positive", q)
		}
		if i > 0 && q <= quantities[i-1] {
			return Breakpoints{}, configErrorf("volume breakpoints", "breakpoint %d is not greater than %d", q, quantities[i-1])
		}
	}
	out := make([]int, len(quantities))
	copy(out, quantities)
	return Breakpoints{quantities: out}, nil
}

// DefaultBreakpoints returns 1, 25, 50, 100, 250, 500, 1000.
func DefaultBreakpoints() Breakpoints {
	b, _ := NewBreakpoints(defaultBreakpoints)
	return b
}

// Quantities returns a copy of the breakpoints.
func (b Breakpoints) Quantities() []int {
	out := make([]int, len(b.quantities))
	copy(out, b.quantities)
	return out
}

// Len returns the number of breakpoints.
func (b Breakpoints) Len() int { return len(b.quantities) }
