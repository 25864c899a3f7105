package pricing

import "math/rand"

// DemandSource supplies the market demand stimulus used for unsolicited
// price refreshes.
type DemandSource interface {
	Sample() float64
}

// UniformDemand samples uniformly from [Min, Max).
type UniformDemand struct {
	Min float64
	Max float64
}

// Sample implements DemandSource.
func (u UniformDemand) Sample() float64 {
	return u.Min + rand.Float64()*(u.Max-u.Min)
}

// FixedDemand always returns the same signal.
type FixedDemand float64

// Sample implements DemandSource.
func (f FixedDemand) Sample() float64 {
	return float64(f)
}
