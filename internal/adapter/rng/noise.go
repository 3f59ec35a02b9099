package rng

import (
	"math"
	"sync"

	opensimplex "github.com/ojrac/opensimplex-go"
)

const (
	defaultStep  = 0.35
	defaultLanes = 3
)

// Noise is a farm.RandomSource backed by coherent simplex noise. Successive
// calls rotate across lanes so that each consumer field (temperature,
// humidity, soil) drifts smoothly instead of jumping.
type Noise struct {
	mu    sync.Mutex
	noise opensimplex.Noise
	step  float64
	lanes int
	t     float64
	call  int
}

func NewNoise(seed int64) *Noise {
	return &Noise{
		noise: opensimplex.NewNormalized(seed),
		step:  defaultStep,
		lanes: defaultLanes,
	}
}

// WithLanes sets how many interleaved series the source serves. n < 1 is ignored.
func (n *Noise) WithLanes(lanes int) *Noise {
	if lanes >= 1 {
		n.lanes = lanes
	}
	return n
}

// Float64 returns a value in [0,1).
func (n *Noise) Float64() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	lane := n.call % n.lanes
	v := n.noise.Eval2(n.t, float64(lane)*17.0)
	n.call++
	if n.call%n.lanes == 0 {
		n.t += n.step
	}
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v >= 1:
		return math.Nextafter(1, 0)
	}
	return v
}
