package shaper

import (
	"math"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/shardops/loadshaper/internal/model"
)

// Load factors applied per mode. The single-tenant override compresses the
// burst interval by 4x to simulate one tenant running much hotter than the
// rest of the pool.
const (
	BalancedLoadFactor     = 1.0
	SingleTenantLoadFactor = 4.0
)

// Ranges bounds the randomized burst schedule
type Ranges struct {
	IntervalMin       float64 // seconds between bursts, lower bound
	IntervalMax       float64 // seconds between bursts, upper bound
	BurstMinDuration  float64 // burst length lower bound, seconds
	BurstMaxDuration  float64 // burst length upper bound, seconds
	BurstMinFactor    float64 // baseline DTU = intensity * U(min,max)
	BurstMaxFactor    float64
	DTUVarianceMin    float64 // per-burst DTU jitter
	DTUVarianceMax    float64
	DensityLoadFactor float64 // interval inflation per tracked tenant
}

// DefaultRanges returns the balanced-mode schedule bounds
func DefaultRanges() Ranges {
	return Ranges{
		IntervalMin:       100,
		IntervalMax:       360,
		BurstMinDuration:  25,
		BurstMaxDuration:  40,
		BurstMinFactor:    0.6,
		BurstMaxFactor:    1.1,
		DTUVarianceMin:    0.9,
		DTUVarianceMax:    1.1,
		DensityLoadFactor: 0.1,
	}
}

// LongerBursts widens the burst duration window and compresses the interval
// window by 10%, raising the likelihood that tenant bursts overlap.
func (r Ranges) LongerBursts() Ranges {
	r.BurstMinDuration = 30
	r.BurstMaxDuration = 52
	r.IntervalMin *= 0.9
	r.IntervalMax *= 0.9
	return r
}

// Sampler draws randomized burst parameters. Each tenant job owns its own
// Sampler; the underlying source is not safe for concurrent use.
type Sampler struct {
	src rand.Source
}

// NewSampler creates a sampler from a seed. Seed 0 derives one from the clock.
func NewSampler(seed uint64) *Sampler {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Sampler{src: rand.NewSource(seed)}
}

// Uniform draws from U[min, max)
func (s *Sampler) Uniform(min, max float64) float64 {
	if max <= min {
		return min
	}
	return distuv.Uniform{Min: min, Max: max, Src: s.src}.Rand()
}

// Pick draws a uniform index in [0, n)
func (s *Sampler) Pick(n int) int {
	if n <= 1 {
		return 0
	}
	return int(s.Uniform(0, float64(n)))
}

// BaselineDTU derives a tenant's baseline burst DTU from the session
// intensity, scattered by the burst factor window and clamped to [1,100]
func (s *Sampler) BaselineDTU(intensity int, r Ranges) int {
	return ClampDTU(int(math.Ceil(float64(intensity) * s.Uniform(r.BurstMinFactor, r.BurstMaxFactor))))
}

// Snooze computes the sleep before the next burst. The first draw comes from
// [0, max-min) so tenant jobs started in the same discovery pass do not fire
// in phase with each other.
func (s *Sampler) Snooze(first bool, loadFactor float64, tenantCount int, r Ranges) time.Duration {
	var snooze float64
	if first {
		snooze = s.Uniform(0, r.IntervalMax-r.IntervalMin)
	} else {
		snooze = s.Uniform(r.IntervalMin, r.IntervalMax)
	}
	snooze /= loadFactor
	snooze += snooze * r.DensityLoadFactor * float64(tenantCount)
	return time.Duration(snooze * float64(time.Second))
}

// Burst draws one burst: duration stretched by the load factor, DTU jittered
// around the baseline and clamped to [1,100]
func (s *Sampler) Burst(baselineDTU int, loadFactor float64, r Ranges) model.Burst {
	duration := s.Uniform(r.BurstMinDuration, r.BurstMaxDuration) + loadFactor*2
	dtu := int(math.Ceil(float64(baselineDTU) * s.Uniform(r.DTUVarianceMin, r.DTUVarianceMax)))
	return model.Burst{
		DurationSeconds: int(math.Round(duration)),
		DTU:             ClampDTU(dtu),
	}
}

// ClampDTU clamps a DTU level to the valid [1,100] scale
func ClampDTU(dtu int) int {
	if dtu < 1 {
		return 1
	}
	if dtu > 100 {
		return 100
	}
	return dtu
}
