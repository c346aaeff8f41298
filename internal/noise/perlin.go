// Package noise provides the seeded noise sources used by realm generation.
// Field is classic 2D gradient noise driving elevation; Texture layers
// opensimplex octaves on top for small-scale terrain detail.
package noise

import (
	"math"
	"math/rand"
)

// Field is a seeded 2D Perlin noise generator. It is immutable after
// construction and safe for concurrent reads.
type Field struct {
	seed int64
	perm [512]int
}

// NewField builds the permutation table for seed. The 256 base entries are
// shuffled with Fisher-Yates and duplicated so lookups never wrap.
func NewField(seed int64) *Field {
	f := &Field{seed: seed}
	rng := rand.New(rand.NewSource(seed))

	var base [256]int
	for i := range base {
		base[i] = i
	}
	for i := len(base) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		base[i], base[j] = base[j], base[i]
	}

	for i := 0; i < 256; i++ {
		f.perm[i] = base[i]
		f.perm[i+256] = base[i]
	}
	return f
}

// Seed returns the seed the field was built from.
func (f *Field) Seed() int64 {
	return f.seed
}

// Noise returns the noise value at (x, y), in [-1, 1].
func (f *Field) Noise(x, y float64) float64 {
	fx := math.Floor(x)
	fy := math.Floor(y)
	xi := int(fx) & 255
	yi := int(fy) & 255

	xf := x - fx
	yf := y - fy

	u := fade(xf)
	v := fade(yf)

	aa := f.perm[f.perm[xi]+yi]
	ab := f.perm[f.perm[xi]+yi+1]
	ba := f.perm[f.perm[xi+1]+yi]
	bb := f.perm[f.perm[xi+1]+yi+1]

	x1 := lerp(u, grad(aa, xf, yf), grad(ba, xf-1, yf))
	x2 := lerp(u, grad(ab, xf, yf-1), grad(bb, xf-1, yf-1))
	return clamp(lerp(v, x1, x2), -1, 1)
}

// Octaves sums several frequencies of the field, normalized back to [-1, 1].
func (f *Field) Octaves(x, y float64, octaves int, lacunarity, persistence float64) float64 {
	if octaves < 1 {
		octaves = 1
	}
	total := 0.0
	amplitude := 1.0
	frequency := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += f.Noise(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= lacunarity
	}
	return total / maxVal
}

// fade is the quintic smoothstep 6t^5 - 15t^4 + 10t^3.
func fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func lerp(t, a, b float64) float64 {
	return a + t*(b-a)
}

// grad dots one of four diagonal gradients with (x, y).
func grad(hash int, x, y float64) float64 {
	switch hash & 3 {
	case 0:
		return x + y
	case 1:
		return -x + y
	case 2:
		return x - y
	default:
		return -x - y
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
