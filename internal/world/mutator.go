package world

import "strings"

// POIKind selects which point-of-interest slot SetPOI writes.
type POIKind string

const (
	POIHolding  POIKind = "holding"
	POILandmark POIKind = "landmark"
)

// Mutator is the single authority for edits to a realm after generation.
// Every method either applies its whole change and returns the hexes it
// touched, or returns an *Error and leaves the realm untouched.
// A Mutator is not safe for concurrent use; serialize callers.
type Mutator struct {
	realm    *Realm
	nextMyth MythID
}

// NewMutator takes ownership of r for editing.
func NewMutator(r *Realm) *Mutator {
	return &Mutator{
		realm:    r,
		nextMyth: r.MaxMythID() + 1,
	}
}

// Realm returns the realm being edited. Callers must not modify it directly.
func (m *Mutator) Realm() *Realm {
	return m.realm
}

func (m *Mutator) hex(c HexCoord) (*Hex, error) {
	h := m.realm.Get(c)
	if h == nil {
		return nil, NewError(CodeHexNotFound, "no hex at (%d,%d)", c.Q, c.R)
	}
	return h, nil
}

// SetTerrain overwrites the terrain of one hex.
func (m *Mutator) SetTerrain(c HexCoord, t TerrainID) ([]Hex, error) {
	if !t.Valid() {
		return nil, FieldError(CodeUnknownTile, "terrain", "unknown terrain %q", t)
	}
	h, err := m.hex(c)
	if err != nil {
		return nil, err
	}
	h.Terrain = t
	return []Hex{*h}, nil
}

// ToggleBarrier flips edge e of the hex at c and the matching edge of the
// neighbor across it, if there is one.
func (m *Mutator) ToggleBarrier(c HexCoord, e Edge) ([]Hex, error) {
	if !e.Valid() {
		return nil, FieldError(CodeInvalidEdge, "edge", "edge must be in [0, 5], got %d", e)
	}
	h, err := m.hex(c)
	if err != nil {
		return nil, err
	}

	h.Barriers = h.Barriers.Toggle(e)
	changed := []Hex{*h}
	if n := m.realm.Across(c, e); n != nil {
		n.Barriers = n.Barriers.Toggle(e.Opposite())
		changed = append(changed, *n)
	}
	return changed, nil
}

// SetPOI places or clears a holding or landmark. Placing one kind clears the
// other. Removing the holding that is the seat of power is rejected.
func (m *Mutator) SetPOI(c HexCoord, kind POIKind, value string) ([]Hex, error) {
	h, err := m.hex(c)
	if err != nil {
		return nil, err
	}

	holding, landmark := h.Holding, h.Landmark
	switch kind {
	case POIHolding:
		ht := HoldingType(value)
		if ht != HoldingNone && !ht.Valid() {
			return nil, FieldError(CodeUnknownTile, "holding", "unknown holding %q", value)
		}
		holding = ht
		if ht != HoldingNone {
			landmark = LandmarkNone
		}
	case POILandmark:
		lt := LandmarkType(value)
		if lt != LandmarkNone && !lt.Valid() {
			return nil, FieldError(CodeUnknownTile, "landmark", "unknown landmark %q", value)
		}
		landmark = lt
		if lt != LandmarkNone {
			holding = HoldingNone
		}
	default:
		return nil, FieldError(CodeUnknownTile, "kind", "unknown point of interest kind %q", kind)
	}

	if holding == HoldingNone && m.isSeat(c) {
		return nil, NewError(CodeSeatOfPowerCleared,
			"(%d,%d) is the seat of power; move the seat before removing its holding", c.Q, c.R)
	}

	h.Holding = holding
	h.Landmark = landmark
	return []Hex{*h}, nil
}

func (m *Mutator) isSeat(c HexCoord) bool {
	return m.realm.SeatOfPower != nil && *m.realm.SeatOfPower == c
}

// AddMyth creates a myth on the hex at c with a fresh id.
func (m *Mutator) AddMyth(c HexCoord) (Myth, []Hex, error) {
	h, err := m.hex(c)
	if err != nil {
		return Myth{}, nil, err
	}
	if h.Myth != 0 {
		return Myth{}, nil, NewError(CodeMythExists, "(%d,%d) already holds myth %d", c.Q, c.R, h.Myth)
	}

	myth := Myth{ID: m.nextMyth, Name: DefaultMythName(m.nextMyth), Coord: c}
	m.nextMyth++

	h.Myth = myth.ID
	m.realm.Myths = append(m.realm.Myths, myth)
	return myth, []Hex{*h}, nil
}

// RemoveMyth deletes the myth on the hex at c. Its id is never reissued.
func (m *Mutator) RemoveMyth(c HexCoord) ([]Hex, error) {
	h, err := m.hex(c)
	if err != nil {
		return nil, err
	}
	if h.Myth == 0 {
		return nil, NewError(CodeMythNotFound, "(%d,%d) holds no myth", c.Q, c.R)
	}

	if i := m.realm.MythIndex(h.Myth); i >= 0 {
		m.realm.Myths = append(m.realm.Myths[:i], m.realm.Myths[i+1:]...)
	}
	h.Myth = 0
	return []Hex{*h}, nil
}

// RelocateMyth moves myth id to the hex at c.
func (m *Mutator) RelocateMyth(id MythID, c HexCoord) ([]Hex, error) {
	i := m.realm.MythIndex(id)
	if i < 0 {
		return nil, NewError(CodeMythNotFound, "no myth with id %d", id)
	}
	target, err := m.hex(c)
	if err != nil {
		return nil, err
	}

	from := m.realm.Myths[i].Coord
	if from == c {
		return nil, nil
	}
	if target.Myth != 0 {
		return nil, NewError(CodeMythOccupied, "(%d,%d) already holds myth %d", c.Q, c.R, target.Myth)
	}

	changed := make([]Hex, 0, 2)
	if old := m.realm.Get(from); old != nil {
		old.Myth = 0
		changed = append(changed, *old)
	}
	target.Myth = id
	m.realm.Myths[i].Coord = c
	changed = append(changed, *target)
	return changed, nil
}

// RenameMyth sets the display name of myth id.
func (m *Mutator) RenameMyth(id MythID, name string) error {
	i := m.realm.MythIndex(id)
	if i < 0 {
		return NewError(CodeMythNotFound, "no myth with id %d", id)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultMythName(id)
	}
	m.realm.Myths[i].Name = name
	return nil
}

// SetSeatOfPower designates the holding at c as the realm's capital.
// The previous seat, if any, is returned alongside the new one.
func (m *Mutator) SetSeatOfPower(c HexCoord) ([]Hex, error) {
	h, err := m.hex(c)
	if err != nil {
		return nil, err
	}
	if h.Holding == HoldingNone {
		return nil, NewError(CodeNoHolding, "(%d,%d) has no holding", c.Q, c.R)
	}

	var changed []Hex
	if prev := m.realm.SeatOfPower; prev != nil && *prev != c {
		if ph := m.realm.Get(*prev); ph != nil {
			changed = append(changed, *ph)
		}
	}
	seat := c
	m.realm.SeatOfPower = &seat
	return append(changed, *h), nil
}

// ReplaceHexes swaps in a batch of hexes as one change, as produced by a
// paint gesture. The composed realm must satisfy every invariant; myth
// fields may not change through this path.
func (m *Mutator) ReplaceHexes(hexes []Hex) ([]Hex, error) {
	if len(hexes) == 0 {
		return nil, nil
	}

	next := m.realm.Clone()
	for _, h := range hexes {
		cur := next.Get(h.Coord)
		if cur == nil {
			return nil, NewError(CodeHexNotFound, "no hex at (%d,%d)", h.Coord.Q, h.Coord.R)
		}
		if cur.Myth != h.Myth {
			return nil, NewError(CodeInvariant, "myth on (%d,%d) cannot change in a hex replacement", h.Coord.Q, h.Coord.R)
		}
		if h.Holding == HoldingNone && m.isSeat(h.Coord) {
			return nil, NewError(CodeSeatOfPowerCleared, "(%d,%d) is the seat of power", h.Coord.Q, h.Coord.R)
		}
		*cur = h
	}
	if err := next.CheckInvariants(); err != nil {
		return nil, err
	}

	changed := make([]Hex, 0, len(hexes))
	for _, h := range hexes {
		*m.realm.Get(h.Coord) = h
		changed = append(changed, h)
	}
	return changed, nil
}
