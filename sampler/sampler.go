// Package sampler implements deterministic, seeded stochastic draws for
// AsyncFlow's RVConfig distributions: uniform, poisson, normal (truncated
// to ≥0), log-normal, and exponential. RVConfig serves both inter-arrival
// rates and network/service-time latencies.
package sampler

import (
	"fmt"
	"math"
	"math/rand"
)

// Distribution names the stochastic family an RVConfig draws from.
type Distribution string

const (
	Poisson     Distribution = "poisson"
	Normal      Distribution = "normal"
	LogNormal   Distribution = "log_normal"
	Uniform     Distribution = "uniform"
	Exponential Distribution = "exponential"
)

// RVConfig is an immutable (post-validation) description of a random
// variable: its mean, its family, and, for normal/log_normal, its
// variance (defaulting to the mean when unset).
type RVConfig struct {
	Mean         float64
	Distribution Distribution
	Variance     *float64 // nil ⇒ defaults per Distribution, resolved by Resolve()
}

// Resolve fills in the variance default for normal/log_normal (variance :=
// mean when unset) and returns a copy ready for repeated sampling. uniform
// ignores variance entirely.
func (c RVConfig) Resolve() RVConfig {
	if c.Variance == nil && (c.Distribution == Normal || c.Distribution == LogNormal) {
		v := c.Mean
		c.Variance = &v
	}
	return c
}

func (c RVConfig) variance() float64 {
	if c.Variance != nil {
		return *c.Variance
	}
	return c.Mean
}

// Validate checks an RVConfig used as a latency distribution (mean > 0).
// Callers sampling rates (e.g. avg_active_users) may permit mean == 0 and
// should not call this.
func (c RVConfig) Validate(fieldPath string) error {
	switch c.Distribution {
	case Poisson, Normal, LogNormal, Uniform, Exponential:
	default:
		return fmt.Errorf("%s: unknown distribution %q", fieldPath, c.Distribution)
	}
	if c.Mean <= 0 {
		return fmt.Errorf("%s: mean must be > 0, got %v", fieldPath, c.Mean)
	}
	if c.Variance != nil && *c.Variance < 0 {
		return fmt.Errorf("%s: variance must be ≥ 0, got %v", fieldPath, *c.Variance)
	}
	return nil
}

// Sample draws one non-negative real from rng according to c's family.
func (c RVConfig) Sample(rng *rand.Rand) float64 {
	switch c.Distribution {
	case Uniform:
		return rng.Float64()
	case Exponential:
		return sampleExponential(rng, c.Mean)
	case Poisson:
		return float64(samplePoisson(rng, c.Mean))
	case Normal:
		return sampleTruncatedNormal(rng, c.Mean, c.variance())
	case LogNormal:
		return sampleLogNormal(rng, c.Mean, c.variance())
	default:
		// Unreachable on a validated config.
		return 0
	}
}

// sampleExponential draws Exp with the given mean (scale = mean).
func sampleExponential(rng *rand.Rand, mean float64) float64 {
	return rng.ExpFloat64() * mean
}

// samplePoisson draws a Poisson(mean) count via Knuth's multiplication
// algorithm. Adequate for the simulation-scale means AsyncFlow scenarios
// use (active-user counts, request rates); for very large means this would
// want a normal approximation, which is out of scope here.
func samplePoisson(rng *rand.Rand, mean float64) int64 {
	if mean <= 0 {
		return 0
	}
	l := math.Exp(-mean)
	k := int64(0)
	p := 1.0
	for {
		k++
		p *= rng.Float64()
		if p <= l {
			return k - 1
		}
	}
}

// sampleTruncatedNormal draws Normal(mean, sqrt(variance)) and clamps
// negative draws to 0.
func sampleTruncatedNormal(rng *rand.Rand, mean, variance float64) float64 {
	val := rng.NormFloat64()*math.Sqrt(variance) + mean
	if val < 0 {
		return 0
	}
	return val
}

// sampleLogNormal draws log-normal with underlying-normal parameters
// (mean, sqrt(variance)): result = exp(Normal(mean, sqrt(variance))).
func sampleLogNormal(rng *rand.Rand, mean, variance float64) float64 {
	z := rng.NormFloat64()*math.Sqrt(variance) + mean
	return math.Exp(z)
}

// InverseCDFExponential draws Exp(rate) via inverse-CDF on u, used by the
// compound inter-arrival process so that the "draw U, then invert" step is
// explicit and independently testable against a scripted u stream.
func InverseCDFExponential(u float64, rate float64) float64 {
	const epsilon = 1e-12
	if u < epsilon {
		u = epsilon
	}
	return -math.Log(u) / rate
}
