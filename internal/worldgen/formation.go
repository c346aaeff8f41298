package worldgen

import (
	"math"

	"github.com/talgya/hexrealm/internal/world"
)

// extent is the planar footprint of a realm, measured in unit-size pointy
// pixel space around the centroid of its hexes.
type extent struct {
	points []world.Point // Centroid-relative, parallel to the realm's hexes
}

func newExtent(coords []world.HexCoord) extent {
	pts := make([]world.Point, len(coords))
	var cx, cy float64
	for i, c := range coords {
		pts[i] = world.AxialToPixel(world.Pointy, 1, c)
		cx += pts[i].X
		cy += pts[i].Y
	}
	if len(pts) > 0 {
		cx /= float64(len(pts))
		cy /= float64(len(pts))
	}
	for i := range pts {
		pts[i].X -= cx
		pts[i].Y -= cy
	}
	return extent{points: pts}
}

// FormationBias returns the highland bias of every hex, parallel to coords,
// with values in [0, 1]. The second result is false for the random
// formation, whose elevation ignores bias entirely.
func FormationBias(coords []world.HexCoord, opts Options) ([]float64, bool) {
	if opts.Formation == FormationRandom {
		return nil, false
	}
	ext := newExtent(coords)

	var shape []float64
	switch opts.Formation {
	case FormationLinear:
		shape = ext.linear(opts.FormationRotation)
	case FormationCircle:
		shape = ext.circle()
	case FormationTriangle:
		shape = ext.triangle(opts.FormationRotation)
	default:
		return nil, false
	}

	for i, v := range shape {
		b := opts.FormationStrength * v
		if opts.FormationInverse {
			b = 1 - b
		}
		shape[i] = clamp01(b)
	}
	return shape, true
}

// heading converts a compass bearing in degrees (0 = north, clockwise) into
// a unit vector in screen space, where y grows downward.
func heading(deg float64) world.Point {
	rad := deg * math.Pi / 180
	return world.Point{X: math.Sin(rad), Y: -math.Cos(rad)}
}

// linear rises from 0 on the trailing edge to 1 on the leading edge along
// the rotation heading.
func (e extent) linear(rotation float64) []float64 {
	dir := heading(rotation)
	out := make([]float64, len(e.points))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, p := range e.points {
		out[i] = p.X*dir.X + p.Y*dir.Y
		lo = math.Min(lo, out[i])
		hi = math.Max(hi, out[i])
	}
	span := hi - lo
	for i := range out {
		if span < 1e-9 {
			out[i] = 0.5
			continue
		}
		out[i] = (out[i] - lo) / span
	}
	return out
}

// circle peaks at the centroid and falls to 0 at the farthest hex.
func (e extent) circle() []float64 {
	out := make([]float64, len(e.points))
	maxDist := 0.0
	for i, p := range e.points {
		out[i] = math.Hypot(p.X, p.Y)
		maxDist = math.Max(maxDist, out[i])
	}
	for i := range out {
		if maxDist < 1e-9 {
			out[i] = 1
			continue
		}
		out[i] = 1 - out[i]/maxDist
	}
	return out
}

// triangle peaks along three rays leaving the centroid 120 degrees apart and
// falls to 0 at the hex farthest from every ray.
func (e extent) triangle(rotation float64) []float64 {
	rays := [3]world.Point{
		heading(rotation),
		heading(rotation + 120),
		heading(rotation + 240),
	}
	out := make([]float64, len(e.points))
	maxDist := 0.0
	for i, p := range e.points {
		d := math.Inf(1)
		for _, r := range rays {
			d = math.Min(d, rayDistance(p, r))
		}
		out[i] = d
		maxDist = math.Max(maxDist, d)
	}
	for i := range out {
		if maxDist < 1e-9 {
			out[i] = 1
			continue
		}
		out[i] = 1 - out[i]/maxDist
	}
	return out
}

// rayDistance is the distance from p to the ray leaving the origin along the
// unit vector dir.
func rayDistance(p, dir world.Point) float64 {
	t := p.X*dir.X + p.Y*dir.Y
	if t <= 0 {
		return math.Hypot(p.X, p.Y)
	}
	return math.Abs(p.X*dir.Y - p.Y*dir.X)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
