package world

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

type hexJSON struct {
	Q            int          `json:"q"`
	R            int          `json:"r"`
	S            *int         `json:"s"`
	Terrain      TerrainID    `json:"terrain"`
	BarrierEdges []int        `json:"barrierEdges"`
	Holding      HoldingType  `json:"holding,omitempty"`
	Landmark     LandmarkType `json:"landmark,omitempty"`
	Myth         MythID       `json:"myth,omitempty"`
}

type mythJSON struct {
	ID   MythID `json:"id"`
	Name string `json:"name"`
	Q    int    `json:"q"`
	R    int    `json:"r"`
}

type realmJSON struct {
	Shape       Shape       `json:"shape"`
	Radius      *int        `json:"radius,omitempty"`
	Width       *int        `json:"width,omitempty"`
	Height      *int        `json:"height,omitempty"`
	Hexes       []hexJSON   `json:"hexes"`
	Myths       *[]mythJSON `json:"myths,omitempty"`
	SeatOfPower *HexCoord   `json:"seatOfPower"`
}

// MarshalJSON encodes a hex with its derived s coordinate.
func (h Hex) MarshalJSON() ([]byte, error) {
	s := h.Coord.S()
	edges := make([]int, 0, h.Barriers.Len())
	for _, e := range h.Barriers.Edges() {
		edges = append(edges, int(e))
	}
	return json.Marshal(hexJSON{
		Q:            h.Coord.Q,
		R:            h.Coord.R,
		S:            &s,
		Terrain:      h.Terrain,
		BarrierEdges: edges,
		Holding:      h.Holding,
		Landmark:     h.Landmark,
		Myth:         h.Myth,
	})
}

// MarshalJSON encodes a myth record.
func (m Myth) MarshalJSON() ([]byte, error) {
	return json.Marshal(mythJSON{ID: m.ID, Name: m.Name, Q: m.Coord.Q, R: m.Coord.R})
}

// MarshalJSON encodes the realm in its flat snapshot format.
func (r *Realm) MarshalJSON() ([]byte, error) {
	out := struct {
		Shape       Shape     `json:"shape"`
		Radius      *int      `json:"radius,omitempty"`
		Width       *int      `json:"width,omitempty"`
		Height      *int      `json:"height,omitempty"`
		Hexes       []Hex     `json:"hexes"`
		Myths       []Myth    `json:"myths"`
		SeatOfPower *HexCoord `json:"seatOfPower"`
	}{
		Shape:       r.Shape.Kind,
		Hexes:       r.Hexes,
		Myths:       r.Myths,
		SeatOfPower: r.SeatOfPower,
	}
	if out.Hexes == nil {
		out.Hexes = []Hex{}
	}
	if out.Myths == nil {
		out.Myths = []Myth{}
	}
	if r.Shape.Kind == ShapeSquare {
		out.Width = &r.Shape.Width
		out.Height = &r.Shape.Height
	} else {
		out.Radius = &r.Shape.Radius
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a snapshot, logging any import warnings.
func (r *Realm) UnmarshalJSON(data []byte) error {
	decoded, warnings, err := Decode(data)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		slog.Warn("realm import", "code", w.Code, "message", w.Message)
	}
	*r = *decoded
	return nil
}

// Encode returns the indented JSON snapshot of r.
func Encode(r *Realm) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode realm: %w", err)
	}
	return data, nil
}

// Decode parses a realm snapshot. Files without a myths array are upgraded by
// rebuilding the myth records from the hexes. A seat of power that does not
// name a holding is dropped with a warning. Anything else that breaks a realm
// invariant is rejected as MALFORMED_IMPORT.
func Decode(data []byte) (*Realm, []Warning, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, nil, &Error{Code: CodeMalformedImport, Message: "realm is not a JSON object", Cause: err}
	}
	for _, required := range []string{"hexes", "seatOfPower"} {
		if _, ok := fields[required]; !ok {
			return nil, nil, FieldError(CodeMalformedImport, required, "required field missing")
		}
	}

	var raw realmJSON
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		return nil, nil, &Error{Code: CodeMalformedImport, Message: "invalid realm JSON", Cause: err}
	}

	shape, err := decodeShape(raw)
	if err != nil {
		return nil, nil, err
	}

	r := &Realm{Shape: shape}
	r.Hexes, err = decodeHexes(shape, raw.Hexes)
	if err != nil {
		return nil, nil, err
	}
	r.reindex()

	if raw.Myths == nil {
		for _, h := range r.Hexes {
			if h.Myth != 0 {
				r.Myths = append(r.Myths, Myth{ID: h.Myth, Name: DefaultMythName(h.Myth), Coord: h.Coord})
			}
		}
	} else {
		for _, m := range *raw.Myths {
			name := m.Name
			if name == "" {
				name = DefaultMythName(m.ID)
			}
			r.Myths = append(r.Myths, Myth{ID: m.ID, Name: name, Coord: HexCoord{Q: m.Q, R: m.R}})
		}
	}
	r.sortMyths()

	var warnings []Warning
	if raw.SeatOfPower != nil {
		seat := *raw.SeatOfPower
		if h := r.Get(seat); h == nil || h.Holding == HoldingNone {
			warnings = append(warnings, Warning{
				Code:    WarnSeatDangling,
				Message: fmt.Sprintf("seat of power (%d,%d) is not a holding; cleared", seat.Q, seat.R),
			})
		} else {
			r.SeatOfPower = &seat
		}
	}

	if err := r.CheckInvariants(); err != nil {
		var werr *Error
		if errors.As(err, &werr) {
			return nil, nil, &Error{Code: CodeMalformedImport, Field: werr.Field, Message: werr.Message, Cause: err}
		}
		return nil, nil, &Error{Code: CodeMalformedImport, Message: err.Error(), Cause: err}
	}
	return r, warnings, nil
}

// decodeShape reads the shape fields. A missing shape is inferred as the
// smallest hex shape covering every hex.
func decodeShape(raw realmJSON) (ShapeSpec, error) {
	var shape ShapeSpec
	switch raw.Shape {
	case ShapeHex:
		if raw.Radius == nil {
			return shape, FieldError(CodeMalformedImport, "radius", "required for hex shape")
		}
		shape = HexShape(*raw.Radius)
	case ShapeSquare:
		if raw.Width == nil || raw.Height == nil {
			return shape, FieldError(CodeMalformedImport, "width", "width and height required for square shape")
		}
		shape = SquareShape(*raw.Width, *raw.Height)
	case "":
		radius := 0
		for _, h := range raw.Hexes {
			if d := Distance(HexCoord{}, HexCoord{Q: h.Q, R: h.R}); d > radius {
				radius = d
			}
		}
		shape = HexShape(radius)
	default:
		return shape, FieldError(CodeMalformedImport, "shape", "unknown shape %q", raw.Shape)
	}

	if err := shape.Validate(); err != nil {
		var werr *Error
		if errors.As(err, &werr) {
			return shape, &Error{Code: CodeMalformedImport, Field: werr.Field, Message: werr.Message, Cause: err}
		}
		return shape, err
	}
	return shape, nil
}

// decodeHexes validates each entry and returns them in canonical grid order.
func decodeHexes(shape ShapeSpec, entries []hexJSON) ([]Hex, error) {
	coords := shape.Coords()
	if len(entries) != len(coords) {
		return nil, FieldError(CodeMalformedImport, "hexes", "%d hexes for a grid of %d", len(entries), len(coords))
	}
	pos := make(map[HexCoord]int, len(coords))
	for i, c := range coords {
		pos[c] = i
	}

	hexes := make([]Hex, len(coords))
	seen := make([]bool, len(coords))
	for i, e := range entries {
		field := fmt.Sprintf("hexes[%d]", i)
		c := HexCoord{Q: e.Q, R: e.R}
		if e.S != nil && e.Q+e.R+*e.S != 0 {
			return nil, FieldError(CodeMalformedImport, field, "q+r+s must be 0, got %d", e.Q+e.R+*e.S)
		}
		p, ok := pos[c]
		if !ok {
			return nil, FieldError(CodeMalformedImport, field, "(%d,%d) is outside the grid", e.Q, e.R)
		}
		if seen[p] {
			return nil, FieldError(CodeMalformedImport, field, "duplicate hex (%d,%d)", e.Q, e.R)
		}
		seen[p] = true

		var edges EdgeSet
		for _, ei := range e.BarrierEdges {
			if !Edge(ei).Valid() {
				return nil, FieldError(CodeMalformedImport, field+".barrierEdges", "edge index %d out of range", ei)
			}
			edges = edges.With(Edge(ei))
		}
		hexes[p] = Hex{
			Coord:    c,
			Terrain:  e.Terrain,
			Barriers: edges,
			Holding:  e.Holding,
			Landmark: e.Landmark,
			Myth:     e.Myth,
		}
	}
	return hexes, nil
}
