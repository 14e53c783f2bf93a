package status

import (
	"math"
	"sync/atomic"
	"unicode/utf8"
)

// Float is an atomic float64 stored as bits; the zero value reads 0
type Float struct {
	bits atomic.Uint64
}

// Set stores val
func (f *Float) Set(val float64) {
	f.bits.Store(math.Float64bits(val))
}

// Get loads the value
func (f *Float) Get() float64 {
	return math.Float64frombits(f.bits.Load())
}

// Add adds delta and returns the new value
func (f *Float) Add(delta float64) float64 {
	for {
		old := f.bits.Load()
		next := math.Float64frombits(old) + delta
		if f.bits.CompareAndSwap(old, math.Float64bits(next)) {
			return next
		}
	}
}

// Smooth blends val into the stored value with weight alpha in (0,1]
// A zero stored value takes val directly so the first sample is not damped
func (f *Float) Smooth(val, alpha float64) float64 {
	for {
		old := f.bits.Load()
		cur := math.Float64frombits(old)
		next := val
		if cur != 0 {
			next = cur + (val-cur)*alpha
		}
		if f.bits.CompareAndSwap(old, math.Float64bits(next)) {
			return next
		}
	}
}

// MaxTextLen bounds Text values so HUD lines stay on one row
const MaxTextLen = 32

// Text is an atomic string truncated to MaxTextLen runes
type Text struct {
	ptr atomic.Pointer[string]
}

// Store sets the value
func (s *Text) Store(val string) {
	if utf8.RuneCountInString(val) > MaxTextLen {
		val = string([]rune(val)[:MaxTextLen])
	}
	s.ptr.Store(&val)
}

// Load returns the value, empty when never stored
func (s *Text) Load() string {
	if p := s.ptr.Load(); p != nil {
		return *p
	}
	return ""
}
