package noise

import (
	opensimplex "github.com/ojrac/opensimplex-go"
)

// Texture produces small-scale terrain detail from layered simplex noise.
// It complements Field: Field shapes the large landforms, Texture roughens them.
type Texture struct {
	noise       opensimplex.Noise
	octaves     int
	frequency   float64
	persistence float64
}

// NewTexture creates a texture source with the default octave layout.
func NewTexture(seed int64) *Texture {
	return &Texture{
		noise:       opensimplex.New(seed),
		octaves:     3,
		frequency:   0.45,
		persistence: 0.5,
	}
}

// Sample returns fractal simplex noise at (x, y), in [-1, 1].
func (t *Texture) Sample(x, y float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0
	frequency := t.frequency

	for i := 0; i < t.octaves; i++ {
		total += t.noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= t.persistence
		frequency *= 2
	}
	return clamp(total/maxVal, -1, 1)
}
