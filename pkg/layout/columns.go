package layout

import (
	"fmt"
	"math"
)

// Allocator tracks the accumulated height of each column during a single
// layout pass. A new pass starts from a fresh Allocator.
type Allocator struct {
	heights []float64
}

// NewAllocator returns an allocator with n empty columns. n < 1 is
// clamped to 1.
func NewAllocator(n int) *Allocator {
	if n < 1 {
		n = 1
	}
	return &Allocator{heights: make([]float64, n)}
}

// Len returns the number of columns.
func (a *Allocator) Len() int { return len(a.heights) }

// Shortest returns the index of the column with the smallest accumulated
// height. Ties resolve to the lowest index.
func (a *Allocator) Shortest() int {
	best := 0
	for i := 1; i < len(a.heights); i++ {
		if a.heights[i] < a.heights[best] {
			best = i
		}
	}
	return best
}

// Advance grows column i by delta. Heights saturate at math.MaxFloat64.
// A negative or NaN delta, or an index out of range, is a caller bug and
// panics.
func (a *Allocator) Advance(i int, delta float64) {
	if i < 0 || i >= len(a.heights) {
		panic(fmt.Sprintf("layout: column %d out of range [0,%d)", i, len(a.heights)))
	}
	if !(delta >= 0) || math.IsInf(delta, 1) {
		panic(fmt.Sprintf("layout: invalid advance %v for column %d", delta, i))
	}
	a.heights[i] = math.Min(a.heights[i]+delta, math.MaxFloat64)
}

// Height returns the accumulated height of column i.
func (a *Allocator) Height(i int) float64 { return a.heights[i] }

// Heights returns a copy of all column heights.
func (a *Allocator) Heights() []float64 {
	out := make([]float64, len(a.heights))
	copy(out, a.heights)
	return out
}

// Max returns the tallest column height.
func (a *Allocator) Max() float64 {
	var m float64
	for _, h := range a.heights {
		if h > m {
			m = h
		}
	}
	return m
}
