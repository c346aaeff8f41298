package world

import (
	"fmt"
	"math/bits"
	"sort"
)

// Shape is the bounding shape of a realm's grid.
type Shape string

const (
	ShapeHex    Shape = "hex"    // All hexes within Radius of the origin
	ShapeSquare Shape = "square" // Width x Height rows of hexes, odd rows shifted
)

// Grid size limits.
const (
	MaxRadius = 64
	MaxSide   = 128
)

// ShapeSpec describes the grid a realm is built on.
type ShapeSpec struct {
	Kind   Shape `json:"shape"`
	Radius int   `json:"radius,omitempty"`
	Width  int   `json:"width,omitempty"`
	Height int   `json:"height,omitempty"`
}

// HexShape returns a hex-shaped spec of the given radius.
func HexShape(radius int) ShapeSpec {
	return ShapeSpec{Kind: ShapeHex, Radius: radius}
}

// SquareShape returns a rectangular spec.
func SquareShape(width, height int) ShapeSpec {
	return ShapeSpec{Kind: ShapeSquare, Width: width, Height: height}
}

// Validate checks the spec is buildable.
func (s ShapeSpec) Validate() error {
	switch s.Kind {
	case ShapeHex:
		if s.Radius < 0 || s.Radius > MaxRadius {
			return FieldError(CodeInvalidShape, "radius", "must be in [0, %d], got %d", MaxRadius, s.Radius)
		}
	case ShapeSquare:
		if s.Width < 1 || s.Width > MaxSide {
			return FieldError(CodeInvalidShape, "width", "must be in [1, %d], got %d", MaxSide, s.Width)
		}
		if s.Height < 1 || s.Height > MaxSide {
			return FieldError(CodeInvalidShape, "height", "must be in [1, %d], got %d", MaxSide, s.Height)
		}
	default:
		return FieldError(CodeInvalidShape, "shape", "unknown shape %q", s.Kind)
	}
	return nil
}

// Coords returns every coordinate of the grid, ordered by r then q.
func (s ShapeSpec) Coords() []HexCoord {
	var coords []HexCoord
	switch s.Kind {
	case ShapeHex:
		n := s.Radius
		for r := -n; r <= n; r++ {
			for q := -n; q <= n; q++ {
				if abs(q) <= n && abs(r) <= n && abs(q+r) <= n {
					coords = append(coords, HexCoord{Q: q, R: r})
				}
			}
		}
	case ShapeSquare:
		for row := 0; row < s.Height; row++ {
			for col := 0; col < s.Width; col++ {
				coords = append(coords, HexCoord{Q: col - (row-(row&1))/2, R: row})
			}
		}
	}
	return coords
}

// EdgeSet is the set of barred edges of a hex, one bit per edge.
type EdgeSet uint8

// Has reports whether edge e is in the set.
func (s EdgeSet) Has(e Edge) bool {
	return e.Valid() && s&(1<<uint(e)) != 0
}

// With returns the set with e added.
func (s EdgeSet) With(e Edge) EdgeSet {
	return s | 1<<uint(e)
}

// Without returns the set with e removed.
func (s EdgeSet) Without(e Edge) EdgeSet {
	return s &^ (1 << uint(e))
}

// Toggle returns the set with e flipped.
func (s EdgeSet) Toggle(e Edge) EdgeSet {
	return s ^ 1<<uint(e)
}

// Len returns the number of barred edges.
func (s EdgeSet) Len() int {
	return bits.OnesCount8(uint8(s))
}

// Edges returns the barred edges in ascending order.
func (s EdgeSet) Edges() []Edge {
	edges := make([]Edge, 0, s.Len())
	for e := Edge(0); e < EdgeCount; e++ {
		if s.Has(e) {
			edges = append(edges, e)
		}
	}
	return edges
}

// MythID identifies a myth. Zero means "no myth".
type MythID int

// Hex represents a single tile of a realm.
type Hex struct {
	Coord    HexCoord
	Terrain  TerrainID
	Barriers EdgeSet
	Holding  HoldingType  // Mutually exclusive with Landmark
	Landmark LandmarkType // Mutually exclusive with Holding
	Myth     MythID
}

// Occupied reports whether the hex carries a holding, landmark, or myth.
func (h *Hex) Occupied() bool {
	return h.Holding != HoldingNone || h.Landmark != LandmarkNone || h.Myth != 0
}

// Myth is a hidden, named point of interest.
type Myth struct {
	ID    MythID
	Name  string
	Coord HexCoord
}

// DefaultMythName returns the placeholder name for a myth.
func DefaultMythName(id MythID) string {
	return fmt.Sprintf("Myth #%d", id)
}

// Realm holds a complete authored map.
type Realm struct {
	Shape       ShapeSpec
	Hexes       []Hex // One per grid cell, ordered by r then q
	Myths       []Myth
	SeatOfPower *HexCoord // Nil until a holding is designated

	index map[HexCoord]int
}

// NewRealm builds an undecorated grid with every hex set to terrain.
func NewRealm(shape ShapeSpec, terrain TerrainID) (*Realm, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if !terrain.Valid() {
		return nil, FieldError(CodeUnknownTile, "terrain", "unknown terrain %q", terrain)
	}

	coords := shape.Coords()
	r := &Realm{
		Shape: shape,
		Hexes: make([]Hex, len(coords)),
	}
	for i, c := range coords {
		r.Hexes[i] = Hex{Coord: c, Terrain: terrain}
	}
	r.reindex()
	return r, nil
}

func (r *Realm) reindex() {
	r.index = make(map[HexCoord]int, len(r.Hexes))
	for i := range r.Hexes {
		r.index[r.Hexes[i].Coord] = i
	}
}

// Get returns the hex at the given coordinate, or nil if out of bounds.
// The pointer aliases realm storage.
func (r *Realm) Get(c HexCoord) *Hex {
	i, ok := r.index[c]
	if !ok {
		return nil
	}
	return &r.Hexes[i]
}

// Contains reports whether c is part of the grid.
func (r *Realm) Contains(c HexCoord) bool {
	_, ok := r.index[c]
	return ok
}

// Across returns the hex on the other side of edge e of c, or nil.
func (r *Realm) Across(c HexCoord, e Edge) *Hex {
	return r.Get(c.Neighbor(e))
}

// HexCount returns the total number of hexes in the realm.
func (r *Realm) HexCount() int {
	return len(r.Hexes)
}

// MythIndex returns the position of myth id in r.Myths, or -1.
func (r *Realm) MythIndex(id MythID) int {
	for i, m := range r.Myths {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// MaxMythID returns the largest myth id in the realm, or 0.
func (r *Realm) MaxMythID() MythID {
	var maxID MythID
	for _, m := range r.Myths {
		if m.ID > maxID {
			maxID = m.ID
		}
	}
	return maxID
}

// Clone returns a deep copy sharing no storage with r.
func (r *Realm) Clone() *Realm {
	c := &Realm{
		Shape: r.Shape,
		Hexes: append([]Hex(nil), r.Hexes...),
		Myths: append([]Myth(nil), r.Myths...),
	}
	if r.SeatOfPower != nil {
		seat := *r.SeatOfPower
		c.SeatOfPower = &seat
	}
	c.reindex()
	return c
}

// TerrainCounts returns a summary of terrain distribution.
func (r *Realm) TerrainCounts() map[TerrainID]int {
	counts := make(map[TerrainID]int)
	for _, h := range r.Hexes {
		counts[h.Terrain]++
	}
	return counts
}

// String returns a summary of the realm.
func (r *Realm) String() string {
	return fmt.Sprintf("Realm(shape=%s, hexes=%d, myths=%d)", r.Shape.Kind, r.HexCount(), len(r.Myths))
}

// CheckInvariants verifies every structural rule of a realm and returns the
// first violation found.
func (r *Realm) CheckInvariants() error {
	if len(r.index) != len(r.Hexes) {
		return NewError(CodeInvariant, "duplicate hex coordinates")
	}

	mythHexes := make(map[MythID]HexCoord)
	for i := range r.Hexes {
		h := &r.Hexes[i]
		field := fmt.Sprintf("hexes[%d]", i)
		if !h.Terrain.Valid() {
			return FieldError(CodeUnknownTile, field+".terrain", "unknown terrain %q", h.Terrain)
		}
		if h.Holding != HoldingNone && !h.Holding.Valid() {
			return FieldError(CodeUnknownTile, field+".holding", "unknown holding %q", h.Holding)
		}
		if h.Landmark != LandmarkNone && !h.Landmark.Valid() {
			return FieldError(CodeUnknownTile, field+".landmark", "unknown landmark %q", h.Landmark)
		}
		if h.Holding != HoldingNone && h.Landmark != LandmarkNone {
			return FieldError(CodeInvariant, field, "hex has both a holding and a landmark")
		}
		if h.Barriers>>EdgeCount != 0 {
			return FieldError(CodeInvalidEdge, field+".barrierEdges", "edge index out of range")
		}
		for _, e := range h.Barriers.Edges() {
			n := r.Across(h.Coord, e)
			if n != nil && !n.Barriers.Has(e.Opposite()) {
				return FieldError(CodeInvariant, field+".barrierEdges",
					"barrier on edge %d of (%d,%d) is not mirrored on (%d,%d)",
					e, h.Coord.Q, h.Coord.R, n.Coord.Q, n.Coord.R)
			}
		}
		if h.Myth < 0 {
			return FieldError(CodeInvariant, field+".myth", "negative myth id %d", h.Myth)
		}
		if h.Myth != 0 {
			if _, dup := mythHexes[h.Myth]; dup {
				return FieldError(CodeInvariant, field+".myth", "myth %d appears on more than one hex", h.Myth)
			}
			mythHexes[h.Myth] = h.Coord
		}
	}

	if len(r.Myths) != len(mythHexes) {
		return FieldError(CodeInvariant, "myths", "%d myth records for %d myth hexes", len(r.Myths), len(mythHexes))
	}
	recorded := make(map[MythID]bool, len(r.Myths))
	for i, m := range r.Myths {
		field := fmt.Sprintf("myths[%d]", i)
		if recorded[m.ID] {
			return FieldError(CodeInvariant, field, "duplicate record for myth %d", m.ID)
		}
		recorded[m.ID] = true
		c, ok := mythHexes[m.ID]
		if !ok || c != m.Coord {
			return FieldError(CodeInvariant, field,
				"myth %d does not match the hex at (%d,%d)", m.ID, m.Coord.Q, m.Coord.R)
		}
	}
	for i := range r.Hexes {
		if id := r.Hexes[i].Myth; id != 0 && !recorded[id] {
			return FieldError(CodeInvariant, fmt.Sprintf("hexes[%d].myth", i), "myth %d has no record", id)
		}
	}

	if r.SeatOfPower != nil {
		h := r.Get(*r.SeatOfPower)
		if h == nil || h.Holding == HoldingNone {
			return FieldError(CodeInvariant, "seatOfPower", "seat of power (%d,%d) is not a holding",
				r.SeatOfPower.Q, r.SeatOfPower.R)
		}
	}
	return nil
}

// sortMyths orders myth records by id.
func (r *Realm) sortMyths() {
	sort.Slice(r.Myths, func(i, j int) bool {
		return r.Myths[i].ID < r.Myths[j].ID
	})
}
