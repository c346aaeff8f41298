package world

// TerrainID names a terrain tile. The set is closed; Valid reports membership.
type TerrainID string

const (
	TerrainPlain    TerrainID = "plain"
	TerrainForest   TerrainID = "forest"
	TerrainHill     TerrainID = "hill"
	TerrainMountain TerrainID = "mountain"
	TerrainMarsh    TerrainID = "marsh"
	TerrainLake     TerrainID = "lake"
	TerrainHeath    TerrainID = "heath"
)

// DefaultTerrain is the terrain every hex starts with on a fresh grid.
const DefaultTerrain = TerrainPlain

// Valid reports whether t is a known terrain.
func (t TerrainID) Valid() bool {
	switch t {
	case TerrainPlain, TerrainForest, TerrainHill, TerrainMountain,
		TerrainMarsh, TerrainLake, TerrainHeath:
		return true
	default:
		return false
	}
}

// Name returns a human-readable name for the terrain.
func (t TerrainID) Name() string {
	switch t {
	case TerrainPlain:
		return "Plain"
	case TerrainForest:
		return "Forest"
	case TerrainHill:
		return "Hill"
	case TerrainMountain:
		return "Mountain"
	case TerrainMarsh:
		return "Marsh"
	case TerrainLake:
		return "Lake"
	case TerrainHeath:
		return "Heath"
	default:
		return "Unknown"
	}
}

// HoldingType names a holding tile. The zero value means no holding.
type HoldingType string

const (
	HoldingNone     HoldingType = ""
	HoldingCastle   HoldingType = "castle"
	HoldingFortress HoldingType = "fortress"
	HoldingTower    HoldingType = "tower"
	HoldingTown     HoldingType = "town"
)

// Valid reports whether h is a known, non-empty holding type.
func (h HoldingType) Valid() bool {
	switch h {
	case HoldingCastle, HoldingFortress, HoldingTower, HoldingTown:
		return true
	default:
		return false
	}
}

// LandmarkType names a landmark tile. The zero value means no landmark.
type LandmarkType string

const (
	LandmarkNone     LandmarkType = ""
	LandmarkDwelling LandmarkType = "dwelling"
	LandmarkSanctum  LandmarkType = "sanctum"
	LandmarkMonument LandmarkType = "monument"
	LandmarkHazard   LandmarkType = "hazard"
	LandmarkCurse    LandmarkType = "curse"
	LandmarkRuin     LandmarkType = "ruin"
)

// Valid reports whether l is a known, non-empty landmark type.
func (l LandmarkType) Valid() bool {
	switch l {
	case LandmarkDwelling, LandmarkSanctum, LandmarkMonument,
		LandmarkHazard, LandmarkCurse, LandmarkRuin:
		return true
	default:
		return false
	}
}

// TileSet lists every tile the editor can paint or place, in display order.
type TileSet struct {
	Terrains  []TerrainID    `json:"terrains"`
	Holdings  []HoldingType  `json:"holdings"`
	Landmarks []LandmarkType `json:"landmarks"`
}

// DefaultTileSet returns the full closed tile set.
func DefaultTileSet() TileSet {
	return TileSet{
		Terrains: []TerrainID{
			TerrainPlain, TerrainForest, TerrainHill, TerrainMountain,
			TerrainMarsh, TerrainLake, TerrainHeath,
		},
		Holdings: []HoldingType{
			HoldingCastle, HoldingFortress, HoldingTower, HoldingTown,
		},
		Landmarks: []LandmarkType{
			LandmarkDwelling, LandmarkSanctum, LandmarkMonument,
			LandmarkHazard, LandmarkCurse, LandmarkRuin,
		},
	}
}
