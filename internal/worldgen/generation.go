package worldgen

import (
	"log/slog"
	"time"

	"github.com/talgya/hexrealm/internal/world"
)

// Result is a freshly generated realm with the shortfalls met on the way.
type Result struct {
	Realm    *world.Realm    `json:"realm"`
	Warnings []world.Warning `json:"warnings"`
	Seed     int64           `json:"seed"`
}

// Generate builds a complete realm for shape from opts. The output is a pure
// function of (shape, opts, seed): the same inputs always yield the same
// realm. Invalid options are rejected before any work starts.
func Generate(shape world.ShapeSpec, opts Options, seed int64) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.Normalize()

	realm, err := world.NewRealm(shape, world.DefaultTerrain)
	if err != nil {
		return nil, err
	}
	start := time.Now()

	coords := make([]world.HexCoord, len(realm.Hexes))
	for i := range realm.Hexes {
		coords[i] = realm.Hexes[i].Coord
	}

	elevation := Elevations(coords, opts, seed)
	terrain := Band(coords, elevation, opts)
	terrain = Cluster(realm, terrain, opts)
	for i := range realm.Hexes {
		realm.Hexes[i].Terrain = terrain[i]
	}

	p := &placer{realm: realm, opts: opts, seed: seed}
	p.placeHoldings()
	p.placeMyths()
	p.placeLandmarks()
	if opts.GenerateBarriers {
		p.placeBarriers()
	}

	if err := realm.CheckInvariants(); err != nil {
		return nil, &world.Error{Code: world.CodeInvariant, Message: "generated realm is inconsistent", Cause: err}
	}

	slog.Debug("realm generated",
		"shape", shape.Kind,
		"hexes", realm.HexCount(),
		"myths", len(realm.Myths),
		"warnings", len(p.warnings),
		"seed", seed,
		"elapsed", time.Since(start),
	)
	return &Result{Realm: realm, Warnings: p.warnings, Seed: seed}, nil
}
