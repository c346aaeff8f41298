package worldgen

import (
	"fmt"
	"math/rand"

	"github.com/talgya/hexrealm/internal/world"
)

// Attempts the myth rejection sampler may spend per requested myth.
const mythAttemptsPerMyth = 64

// placer decorates a classified realm. Every stage draws from its own seeded
// source so changing one count does not reshuffle the others.
type placer struct {
	realm    *world.Realm
	opts     Options
	seed     int64
	warnings []world.Warning
}

func (p *placer) rng(offset int64) *rand.Rand {
	return rand.New(rand.NewSource(p.seed + offset))
}

func (p *placer) warn(code world.WarningCode, requested, placed int, format string, args ...any) {
	p.warnings = append(p.warnings, world.Warning{
		Code:      code,
		Message:   fmt.Sprintf(format, args...),
		Requested: requested,
		Placed:    placed,
	})
}

// placeHoldings puts holdings on distinct random hexes and makes the first
// one placed the seat of power.
func (p *placer) placeHoldings() {
	rng := p.rng(200)
	types := world.DefaultTileSet().Holdings
	placed := 0
	for _, i := range rng.Perm(len(p.realm.Hexes)) {
		if placed >= p.opts.NumHoldings {
			break
		}
		h := &p.realm.Hexes[i]
		if h.Holding != world.HoldingNone || h.Landmark != world.LandmarkNone {
			continue
		}
		h.Holding = types[rng.Intn(len(types))]
		if p.realm.SeatOfPower == nil {
			c := h.Coord
			p.realm.SeatOfPower = &c
		}
		placed++
	}

	if placed < p.opts.NumHoldings {
		p.warn(world.WarnUnderPlacement, p.opts.NumHoldings, placed,
			"placed %d of %d holdings", placed, p.opts.NumHoldings)
	}
	if p.realm.SeatOfPower == nil {
		p.warn(world.WarnSeatUnset, 0, 0, "no holding was placed, seat of power left unset")
	}
}

// placeMyths samples random unoccupied hexes and keeps those at least
// MythMinDistance from every myth already placed. The attempt budget is
// fixed, so a crowded realm ends with fewer myths and a warning.
func (p *placer) placeMyths() {
	if p.opts.NumMyths == 0 {
		return
	}
	rng := p.rng(300)
	var placed []world.HexCoord
	budget := p.opts.NumMyths * mythAttemptsPerMyth
	next := p.realm.MaxMythID() + 1

	for attempt := 0; attempt < budget && len(placed) < p.opts.NumMyths; attempt++ {
		h := &p.realm.Hexes[rng.Intn(len(p.realm.Hexes))]
		if h.Occupied() || tooClose(h.Coord, placed, p.opts.MythMinDistance) {
			continue
		}
		h.Myth = next
		p.realm.Myths = append(p.realm.Myths, world.Myth{
			ID:    next,
			Name:  world.DefaultMythName(next),
			Coord: h.Coord,
		})
		placed = append(placed, h.Coord)
		next++
	}

	if len(placed) < p.opts.NumMyths {
		p.warn(world.WarnUnderPlacement, p.opts.NumMyths, len(placed),
			"placed %d of %d myths at minimum distance %d", len(placed), p.opts.NumMyths, p.opts.MythMinDistance)
	}
}

func tooClose(c world.HexCoord, existing []world.HexCoord, minDist int) bool {
	for _, e := range existing {
		if world.Distance(c, e) < minDist {
			return true
		}
	}
	return false
}

// placeLandmarks fills each requested landmark count from one shuffled walk
// over the realm, skipping anything already occupied.
func (p *placer) placeLandmarks() {
	rng := p.rng(400)
	order := rng.Perm(len(p.realm.Hexes))
	cursor := 0

	for _, lt := range world.DefaultTileSet().Landmarks {
		want := p.opts.Landmarks[lt]
		placed := 0
		for placed < want && cursor < len(order) {
			h := &p.realm.Hexes[order[cursor]]
			cursor++
			if h.Occupied() {
				continue
			}
			h.Landmark = lt
			placed++
		}
		if placed < want {
			p.warn(world.WarnUnderPlacement, want, placed,
				"placed %d of %d %s landmarks", placed, want, lt)
		}
	}
}

// placeBarriers visits every adjacent pair once, through edges 0-2 of each
// hex, and walls it off on both sides with BarrierChance.
func (p *placer) placeBarriers() {
	rng := p.rng(500)
	for i := range p.realm.Hexes {
		h := &p.realm.Hexes[i]
		for e := world.Edge(0); e < world.EdgeCount/2; e++ {
			n := p.realm.Across(h.Coord, e)
			if n == nil {
				continue
			}
			if rng.Float64() < BarrierChance {
				h.Barriers = h.Barriers.With(e)
				n.Barriers = n.Barriers.With(e.Opposite())
			}
		}
	}
}
