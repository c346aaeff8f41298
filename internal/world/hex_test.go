package world

import (
	"math"
	"testing"
)

func TestDirectionsOpposite(t *testing.T) {
	for e := Edge(0); e < EdgeCount; e++ {
		d := HexNeighborDirections[e]
		o := HexNeighborDirections[e.Opposite()]
		if d.Q != -o.Q || d.R != -o.R {
			t.Errorf("direction %d %+v is not the negation of direction %d %+v", e, d, e.Opposite(), o)
		}
	}
}

func TestEdgeZeroFacesUpperRight(t *testing.T) {
	got := HexCoord{}.Neighbor(0)
	want := HexCoord{Q: 1, R: -1}
	if got != want {
		t.Fatalf("neighbor across edge 0 = %+v, want %+v", got, want)
	}
}

func TestEdgeToward(t *testing.T) {
	c := HexCoord{Q: 2, R: -1}
	for e, n := range c.Neighbors() {
		got, ok := c.EdgeToward(n)
		if !ok || got != Edge(e) {
			t.Errorf("EdgeToward(%+v) = %d,%v want %d", n, got, ok, e)
		}
	}
	if _, ok := c.EdgeToward(HexCoord{Q: 5, R: 5}); ok {
		t.Error("EdgeToward reported a non-neighbor as adjacent")
	}
}

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b HexCoord
		want int
	}{
		{"same hex", HexCoord{0, 0}, HexCoord{0, 0}, 0},
		{"neighbor", HexCoord{0, 0}, HexCoord{1, -1}, 1},
		{"straight line", HexCoord{0, 0}, HexCoord{3, 0}, 3},
		{"diagonal", HexCoord{-2, 1}, HexCoord{1, 1}, 3},
		{"mixed", HexCoord{1, -3}, HexCoord{-2, 2}, 5},
		{"symmetric", HexCoord{-2, 2}, HexCoord{1, -3}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Distance(tt.a, tt.b); got != tt.want {
				t.Errorf("Distance(%+v,%+v) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestNeighborsAtDistanceOne(t *testing.T) {
	c := HexCoord{Q: -3, R: 4}
	for _, n := range c.Neighbors() {
		if Distance(c, n) != 1 {
			t.Errorf("neighbor %+v at distance %d", n, Distance(c, n))
		}
		if n.Q+n.R+n.S() != 0 {
			t.Errorf("neighbor %+v breaks q+r+s=0", n)
		}
	}
}

func TestPixelRoundTrip(t *testing.T) {
	for _, o := range []Orientation{Pointy, Flat} {
		for q := -4; q <= 4; q++ {
			for r := -4; r <= 4; r++ {
				c := HexCoord{Q: q, R: r}
				p := AxialToPixel(o, 20, c)
				if got := PixelToAxial(o, 20, p); got != c {
					t.Fatalf("%s: PixelToAxial(AxialToPixel(%+v)) = %+v", o, c, got)
				}
			}
		}
	}
}

func TestAxialToPixelNeighborSpacing(t *testing.T) {
	for _, o := range []Orientation{Pointy, Flat} {
		origin := AxialToPixel(o, 10, HexCoord{})
		for _, n := range (HexCoord{}).Neighbors() {
			p := AxialToPixel(o, 10, n)
			d := math.Hypot(p.X-origin.X, p.Y-origin.Y)
			if math.Abs(d-10*math.Sqrt(3)) > 1e-9 {
				t.Errorf("%s: neighbor %+v at pixel distance %v", o, n, d)
			}
		}
	}
}

func TestHexCornersScale(t *testing.T) {
	for _, o := range []Orientation{Pointy, Flat} {
		full := HexCorners(o, 10, 1)
		half := HexCorners(o, 10, 0.5)
		for i := range full {
			if math.Abs(math.Hypot(full[i].X, full[i].Y)-10) > 1e-9 {
				t.Errorf("%s corner %d not at radius 10", o, i)
			}
			if math.Abs(half[i].X*2-full[i].X) > 1e-9 || math.Abs(half[i].Y*2-full[i].Y) > 1e-9 {
				t.Errorf("%s corner %d not scaled about the center", o, i)
			}
		}
	}
}

func TestPointyCornersOffsetFromFlat(t *testing.T) {
	flat := HexCorners(Flat, 1, 1)
	pointy := HexCorners(Pointy, 1, 1)
	for i := range flat {
		fa := math.Atan2(flat[i].Y, flat[i].X)
		pa := math.Atan2(pointy[i].Y, pointy[i].X)
		diff := math.Mod(fa-pa+2*math.Pi, 2*math.Pi)
		if math.Abs(diff-math.Pi/6) > 1e-9 {
			t.Errorf("corner %d: pointy is not 30 degrees behind flat (diff %v)", i, diff)
		}
	}
}

// Edge i must face neighbor i: the midpoint of edge i points the same way as
// the pixel offset to that neighbor.
func TestEdgesFaceNeighbors(t *testing.T) {
	for _, o := range []Orientation{Pointy, Flat} {
		corners := HexCorners(o, 10, 1)
		for e := Edge(0); e < EdgeCount; e++ {
			a, b := corners[e], corners[(e+1)%EdgeCount]
			mid := Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
			n := AxialToPixel(o, 10, HexCoord{}.Neighbor(e))
			cross := mid.X*n.Y - mid.Y*n.X
			dot := mid.X*n.X + mid.Y*n.Y
			if math.Abs(cross) > 1e-6 || dot <= 0 {
				t.Errorf("%s: edge %d does not face neighbor %d", o, e, e)
			}
		}
	}
}

func TestClosestEdge(t *testing.T) {
	for _, o := range []Orientation{Pointy, Flat} {
		corners := HexCorners(o, 10, 1)
		for e := Edge(0); e < EdgeCount; e++ {
			n := AxialToPixel(o, 10, HexCoord{}.Neighbor(e))
			// A point just inside the edge, toward that neighbor.
			p := Point{X: n.X * 0.4, Y: n.Y * 0.4}
			if got := ClosestEdge(p, corners); got != e {
				t.Errorf("%s: ClosestEdge toward neighbor %d = %d", o, e, got)
			}
		}
	}
}

func TestClosestEdgeTieBreak(t *testing.T) {
	// Edges 0 and 1 are both exactly 1 away from the origin.
	corners := [EdgeCount]Point{
		{X: -1, Y: -1}, {X: 1, Y: -1}, {X: 1, Y: 1},
		{X: 0, Y: 5}, {X: -5, Y: 5}, {X: -5, Y: -5},
	}
	if got := ClosestEdge(Point{}, corners); got != 0 {
		t.Fatalf("tie resolved to edge %d, want 0", got)
	}
}
