// Package world provides the hex grid, the realm data model, and the mutation
// authority that keeps a realm internally consistent.
// Uses axial coordinates (q, r) for the hex grid.
package world

import "math"

// HexCoord represents a position on the hex grid using axial coordinates.
// The third cube coordinate s is derived: s = -q - r.
type HexCoord struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// S returns the implicit third cube coordinate.
func (h HexCoord) S() int {
	return -h.Q - h.R
}

// Add returns the component-wise sum of two coordinates.
func (h HexCoord) Add(o HexCoord) HexCoord {
	return HexCoord{Q: h.Q + o.Q, R: h.R + o.R}
}

// Edge identifies one of the six sides of a hex. Edge i faces the neighbor
// in HexNeighborDirections[i].
type Edge int

// EdgeCount is the number of sides of a hex.
const EdgeCount = 6

// Valid reports whether e is in [0, 6).
func (e Edge) Valid() bool {
	return e >= 0 && e < EdgeCount
}

// Opposite returns the edge a neighbor shares with this one.
func (e Edge) Opposite() Edge {
	return (e + 3) % EdgeCount
}

// HexNeighborDirections defines the six neighbor offsets in axial coordinates,
// clockwise on screen starting from the upper-right neighbor.
// Direction i and direction i+3 are always negations of each other.
var HexNeighborDirections = [EdgeCount]HexCoord{
	{Q: 1, R: -1},
	{Q: 1, R: 0},
	{Q: 0, R: 1},
	{Q: -1, R: 1},
	{Q: -1, R: 0},
	{Q: 0, R: -1},
}

// Neighbors returns the six adjacent hex coordinates, indexed by edge.
func (h HexCoord) Neighbors() [EdgeCount]HexCoord {
	var result [EdgeCount]HexCoord
	for i, dir := range HexNeighborDirections {
		result[i] = h.Add(dir)
	}
	return result
}

// Neighbor returns the coordinate across edge e.
func (h HexCoord) Neighbor(e Edge) HexCoord {
	return h.Add(HexNeighborDirections[e])
}

// EdgeToward returns the edge of h facing the adjacent coordinate n.
// ok is false when the two coordinates are not neighbors.
func (h HexCoord) EdgeToward(n HexCoord) (Edge, bool) {
	d := HexCoord{Q: n.Q - h.Q, R: n.R - h.R}
	for i, dir := range HexNeighborDirections {
		if dir == d {
			return Edge(i), true
		}
	}
	return 0, false
}

// Distance returns the hex distance between two coordinates.
func Distance(a, b HexCoord) int {
	dq := a.Q - b.Q
	dr := a.R - b.R
	return (abs(dq) + abs(dr) + abs(dq+dr)) / 2
}

// Orientation selects how hexes are laid out in pixel space.
type Orientation uint8

const (
	Pointy Orientation = iota // Vertex at the top; rows are offset horizontally
	Flat                      // Edge at the top; columns are offset vertically
)

// String returns the orientation name used in JSON and flags.
func (o Orientation) String() string {
	if o == Flat {
		return "flat"
	}
	return "pointy"
}

// Point is a position in pixel space. Y grows downward.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

var sqrt3 = math.Sqrt(3.0)

// AxialToPixel returns the center of hex c for hexes of the given size
// (center-to-corner distance).
func AxialToPixel(o Orientation, size float64, c HexCoord) Point {
	q := float64(c.Q)
	r := float64(c.R)
	if o == Flat {
		return Point{
			X: size * (1.5 * q),
			Y: size * (sqrt3/2*q + sqrt3*r),
		}
	}
	return Point{
		X: size * (sqrt3*q + sqrt3/2*r),
		Y: size * (1.5 * r),
	}
}

// PixelToAxial returns the hex containing pixel p.
func PixelToAxial(o Orientation, size float64, p Point) HexCoord {
	var q, r float64
	if o == Flat {
		q = (2.0 / 3.0 * p.X) / size
		r = (-1.0/3.0*p.X + sqrt3/3*p.Y) / size
	} else {
		q = (sqrt3/3*p.X - 1.0/3.0*p.Y) / size
		r = (2.0 / 3.0 * p.Y) / size
	}
	return roundAxial(q, r)
}

// roundAxial rounds fractional axial coordinates to the nearest hex,
// resetting whichever cube component drifted furthest.
func roundAxial(q, r float64) HexCoord {
	s := -q - r
	rq := math.Round(q)
	rr := math.Round(r)
	rs := math.Round(s)

	dq := math.Abs(rq - q)
	dr := math.Abs(rr - r)
	ds := math.Abs(rs - s)

	if dq > dr && dq > ds {
		rq = -rr - rs
	} else if dr > ds {
		rr = -rq - rs
	}
	return HexCoord{Q: int(rq), R: int(rr)}
}

// HexCorners returns the six corners of a hex centered at the origin.
// Corner i and corner i+1 bound edge i. scale shrinks or grows the polygon
// about its center.
func HexCorners(o Orientation, size, scale float64) [EdgeCount]Point {
	start := -60.0
	if o == Pointy {
		start -= 30
	}
	radius := size * scale

	var corners [EdgeCount]Point
	for i := range corners {
		angle := (start + 60*float64(i)) * math.Pi / 180
		corners[i] = Point{
			X: radius * math.Cos(angle),
			Y: radius * math.Sin(angle),
		}
	}
	return corners
}

// ClosestEdge returns the edge whose segment lies nearest p, where p is
// relative to the hex center. Ties go to the lower edge index.
func ClosestEdge(p Point, corners [EdgeCount]Point) Edge {
	best := Edge(0)
	bestDist := math.Inf(1)
	for i := 0; i < EdgeCount; i++ {
		d := segmentDistance(p, corners[i], corners[(i+1)%EdgeCount])
		if d < bestDist {
			bestDist = d
			best = Edge(i)
		}
	}
	return best
}

// segmentDistance is the distance from p to the closest point of segment ab.
func segmentDistance(p, a, b Point) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	lenSq := dx*dx + dy*dy
	t := 0.0
	if lenSq > 0 {
		t = ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
		if t < 0 {
			t = 0
		} else if t > 1 {
			t = 1
		}
	}
	cx := a.X + t*dx
	cy := a.Y + t*dy
	return math.Hypot(p.X-cx, p.Y-cy)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
