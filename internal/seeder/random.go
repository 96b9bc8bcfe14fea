package seeder

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Random is the single source of randomness for a seeding run.
type Random struct {
	rand *rand.Rand
	seed int64
}

// NewRandom returns a Random seeded with seed, or with the clock when seed is 0.
func NewRandom(seed int64) *Random {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Random{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

func (r *Random) Seed() int64 {
	return r.seed
}

// UniformInt returns an integer drawn uniformly from [low, high].
func (r *Random) UniformInt(low, high int) (int, error) {
	if low > high {
		return 0, fmt.Errorf("%w: [%d, %d]", ErrInvalidRange, low, high)
	}
	return low + r.rand.Intn(high-low+1), nil
}

// intn is UniformInt for literal bounds; like rand.Intn it panics on low > high.
func (r *Random) intn(low, high int) int {
	n, err := r.UniformInt(low, high)
	if err != nil {
		panic(err)
	}
	return n
}

func (r *Random) coin() bool {
	return r.rand.Intn(2) == 1
}

func (r *Random) float64() float64 {
	return r.rand.Float64()
}

func pick[T any](r *Random, values []T) T {
	return values[r.intn(0, len(values)-1)]
}

// Bucket is one outcome of a weighted draw: either the fixed Value, or, when
// Values is set, a uniform choice from Values.
type Bucket[T any] struct {
	Weight float64
	Value  T
	Values []T
}

// Weighted samples buckets by relative weight through a cumulative distribution.
// The CDF is normalized by the total weight and its last entry is pinned to 1.0,
// so every draw in [0,1) lands in a bucket.
type Weighted[T any] struct {
	buckets []Bucket[T]
	cdf     []float64
}

func NewWeighted[T any](buckets []Bucket[T]) (*Weighted[T], error) {
	if len(buckets) == 0 {
		return nil, fmt.Errorf("%w: no buckets", ErrInvalidRange)
	}

	var total float64
	for i, b := range buckets {
		if b.Weight < 0 || math.IsNaN(b.Weight) || math.IsInf(b.Weight, 0) {
			return nil, fmt.Errorf("%w: bucket %d has weight %v", ErrInvalidRange, i, b.Weight)
		}
		if b.Values != nil && len(b.Values) == 0 {
			return nil, fmt.Errorf("%w: bucket %d has an empty value set", ErrInvalidRange, i)
		}
		total += b.Weight
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: total weight is zero", ErrInvalidRange)
	}

	cdf := make([]float64, len(buckets))
	var sum float64
	for i, b := range buckets {
		sum += b.Weight
		cdf[i] = sum / total
	}
	cdf[len(cdf)-1] = 1.0

	return &Weighted[T]{buckets: buckets, cdf: cdf}, nil
}

func (w *Weighted[T]) Sample(r *Random) (T, error) {
	draw := r.float64()
	for i, c := range w.cdf {
		if c >= draw {
			b := w.buckets[i]
			if b.Values != nil {
				return pick(r, b.Values), nil
			}
			return b.Value, nil
		}
	}

	var zero T
	return zero, fmt.Errorf("%w: draw %v over cdf %v", ErrNoBucketMatched, draw, w.cdf)
}
