package maze

const (
	lcgMul = 9301
	lcgInc = 49297
	lcgMod = 233280
)

// LCG is the generator's deterministic random stream
// seed' = (seed*9301 + 49297) mod 233280, value = seed'/233280
type LCG struct {
	state int64
}

// NewLCG seeds a stream; any int64 is reduced into the generator's range
func NewLCG(seed int64) *LCG {
	s := seed % lcgMod
	if s < 0 {
		s += lcgMod
	}
	return &LCG{state: s}
}

// Float64 returns the next value in [0, 1)
func (r *LCG) Float64() float64 {
	r.state = (r.state*lcgMul + lcgInc) % lcgMod
	return float64(r.state) / lcgMod
}

// Intn returns the next value in [0, n)
func (r *LCG) Intn(n int) int {
	return int(r.Float64() * float64(n))
}
