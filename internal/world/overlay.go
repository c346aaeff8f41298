package world

// Overlay stages the edits of one paint gesture on top of a committed realm.
// Reads see staged hexes first; the committed realm is not touched until
// Commit applies the whole batch through a Mutator.
type Overlay struct {
	base    *Realm
	pending map[HexCoord]Hex
	order   []HexCoord
}

// NewOverlay starts an empty overlay over base.
func NewOverlay(base *Realm) *Overlay {
	return &Overlay{
		base:    base,
		pending: make(map[HexCoord]Hex),
	}
}

// Get returns the hex at c as it would look after commit.
func (o *Overlay) Get(c HexCoord) (Hex, bool) {
	if h, ok := o.pending[c]; ok {
		return h, true
	}
	if h := o.base.Get(c); h != nil {
		return *h, true
	}
	return Hex{}, false
}

// Len returns the number of staged hexes.
func (o *Overlay) Len() int {
	return len(o.pending)
}

// Pending returns the staged hexes in the order they were first touched.
func (o *Overlay) Pending() []Hex {
	hexes := make([]Hex, 0, len(o.order))
	for _, c := range o.order {
		hexes = append(hexes, o.pending[c])
	}
	return hexes
}

func (o *Overlay) stage(h Hex) {
	if _, ok := o.pending[h.Coord]; !ok {
		o.order = append(o.order, h.Coord)
	}
	o.pending[h.Coord] = h
}

// Paint stages a terrain change.
func (o *Overlay) Paint(c HexCoord, t TerrainID) error {
	if !t.Valid() {
		return FieldError(CodeUnknownTile, "terrain", "unknown terrain %q", t)
	}
	h, ok := o.Get(c)
	if !ok {
		return NewError(CodeHexNotFound, "no hex at (%d,%d)", c.Q, c.R)
	}
	h.Terrain = t
	o.stage(h)
	return nil
}

// ToggleBarrier stages a barrier flip on both sides of edge e.
func (o *Overlay) ToggleBarrier(c HexCoord, e Edge) error {
	if !e.Valid() {
		return FieldError(CodeInvalidEdge, "edge", "edge must be in [0, 5], got %d", e)
	}
	h, ok := o.Get(c)
	if !ok {
		return NewError(CodeHexNotFound, "no hex at (%d,%d)", c.Q, c.R)
	}
	h.Barriers = h.Barriers.Toggle(e)
	o.stage(h)

	if n, ok := o.Get(c.Neighbor(e)); ok {
		n.Barriers = n.Barriers.Toggle(e.Opposite())
		o.stage(n)
	}
	return nil
}

// Commit applies the staged hexes as a single replacement and clears the
// overlay. On error nothing is applied and the overlay is kept.
func (o *Overlay) Commit(m *Mutator) ([]Hex, error) {
	changed, err := m.ReplaceHexes(o.Pending())
	if err != nil {
		return nil, err
	}
	o.Discard()
	return changed, nil
}

// Discard drops every staged hex.
func (o *Overlay) Discard() {
	o.pending = make(map[HexCoord]Hex)
	o.order = nil
}
