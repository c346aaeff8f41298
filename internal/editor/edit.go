// Package editor serializes interactive edits to a realm. Each realm being
// edited has one Session, which owns the realm's Mutator and is its only
// writer.
package editor

import (
	"time"

	"github.com/talgya/hexrealm/internal/world"
)

// Op names an edit operation.
type Op string

const (
	OpTerrain      Op = "terrain"
	OpBarrier      Op = "barrier"
	OpPOI          Op = "poi"
	OpAddMyth      Op = "add-myth"
	OpRemoveMyth   Op = "remove-myth"
	OpRelocateMyth Op = "relocate-myth"
	OpRenameMyth   Op = "rename-myth"
	OpSeat         Op = "seat"
	OpStroke       Op = "stroke" // A drag gesture, committed as one change
)

// Edit is one request against a session. Which fields apply depends on Op.
type Edit struct {
	Op      Op              `json:"op"`
	Q       int             `json:"q"`
	R       int             `json:"r"`
	Terrain world.TerrainID `json:"terrain,omitempty"`
	Edge    world.Edge      `json:"edge,omitempty"`
	Kind    world.POIKind   `json:"kind,omitempty"`
	Value   string          `json:"value,omitempty"` // Tile id for poi; empty clears
	Myth    world.MythID    `json:"myth,omitempty"`
	Name    string          `json:"name,omitempty"`
	Steps   []Step          `json:"steps,omitempty"`
}

// Coord returns the hex the edit targets.
func (e Edit) Coord() world.HexCoord {
	return world.HexCoord{Q: e.Q, R: e.R}
}

// Step is one hex touched during a stroke: a terrain paint, a barrier
// toggle, or both.
type Step struct {
	Q       int             `json:"q"`
	R       int             `json:"r"`
	Terrain world.TerrainID `json:"terrain,omitempty"`
	Edge    *world.Edge     `json:"edge,omitempty"`
}

// Change is the committed result of an edit, as broadcast to subscribers.
type Change struct {
	Revision uint64          `json:"revision"`
	Op       Op              `json:"op"`
	Hexes    []world.Hex     `json:"hexes"`
	Myth     *world.Myth     `json:"myth,omitempty"`
	Seat     *world.HexCoord `json:"seatOfPower,omitempty"`
	At       time.Time       `json:"at"`
}

// apply dispatches e to the mutator and returns the hexes it touched.
func apply(m *world.Mutator, e Edit) ([]world.Hex, *world.Myth, error) {
	c := e.Coord()
	switch e.Op {
	case OpTerrain:
		hexes, err := m.SetTerrain(c, e.Terrain)
		return hexes, nil, err
	case OpBarrier:
		hexes, err := m.ToggleBarrier(c, e.Edge)
		return hexes, nil, err
	case OpPOI:
		hexes, err := m.SetPOI(c, e.Kind, e.Value)
		return hexes, nil, err
	case OpAddMyth:
		myth, hexes, err := m.AddMyth(c)
		if err != nil {
			return nil, nil, err
		}
		return hexes, &myth, nil
	case OpRemoveMyth:
		hexes, err := m.RemoveMyth(c)
		return hexes, nil, err
	case OpRelocateMyth:
		hexes, err := m.RelocateMyth(e.Myth, c)
		if err != nil {
			return nil, nil, err
		}
		return hexes, mythRecord(m.Realm(), e.Myth), nil
	case OpRenameMyth:
		if err := m.RenameMyth(e.Myth, e.Name); err != nil {
			return nil, nil, err
		}
		return nil, mythRecord(m.Realm(), e.Myth), nil
	case OpSeat:
		hexes, err := m.SetSeatOfPower(c)
		return hexes, nil, err
	case OpStroke:
		hexes, err := stroke(m, e.Steps)
		return hexes, nil, err
	default:
		return nil, nil, world.FieldError(world.CodeInvalidEdit, "op", "unknown edit %q", e.Op)
	}
}

// stroke stages every step on an overlay and commits them together.
func stroke(m *world.Mutator, steps []Step) ([]world.Hex, error) {
	o := world.NewOverlay(m.Realm())
	for _, s := range steps {
		c := world.HexCoord{Q: s.Q, R: s.R}
		if s.Terrain == "" && s.Edge == nil {
			return nil, world.FieldError(world.CodeInvalidEdit, "steps", "step at (%d,%d) changes nothing", s.Q, s.R)
		}
		if s.Terrain != "" {
			if err := o.Paint(c, s.Terrain); err != nil {
				return nil, err
			}
		}
		if s.Edge != nil {
			if err := o.ToggleBarrier(c, *s.Edge); err != nil {
				return nil, err
			}
		}
	}
	return o.Commit(m)
}

func mythRecord(r *world.Realm, id world.MythID) *world.Myth {
	i := r.MythIndex(id)
	if i < 0 {
		return nil
	}
	m := r.Myths[i]
	return &m
}
