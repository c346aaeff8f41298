// Package worldgen generates realms procedurally: noise-driven elevation
// shaped by a highland formation, banded into terrain by a user-ranked height
// order, relaxed into clusters, then decorated with holdings, myths,
// landmarks, and barriers.
package worldgen

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/talgya/hexrealm/internal/world"
)

// Formation selects the large-scale shape of the highlands.
type Formation string

const (
	FormationRandom   Formation = "random"
	FormationLinear   Formation = "linear"
	FormationCircle   Formation = "circle"
	FormationTriangle Formation = "triangle"
)

// Valid reports whether f is a known formation.
func (f Formation) Valid() bool {
	switch f {
	case FormationRandom, FormationLinear, FormationCircle, FormationTriangle:
		return true
	default:
		return false
	}
}

// BarrierChance is the probability that any one shared edge gets a barrier.
const BarrierChance = 1.0 / 6.0

// ClusteringMatrix holds the symmetric affinity between terrain pairs.
// Each unordered pair needs an entry under at least one ordering; if both
// orderings are present they must agree.
type ClusteringMatrix map[world.TerrainID]map[world.TerrainID]float64

// Affinity returns the affinity between a and b, looking up either ordering.
func (m ClusteringMatrix) Affinity(a, b world.TerrainID) (float64, bool) {
	if row, ok := m[a]; ok {
		if v, ok := row[b]; ok {
			return v, true
		}
	}
	if row, ok := m[b]; ok {
		if v, ok := row[a]; ok {
			return v, true
		}
	}
	return 0, false
}

// Set records the affinity for an unordered pair.
func (m ClusteringMatrix) Set(a, b world.TerrainID, v float64) {
	if m[a] == nil {
		m[a] = make(map[world.TerrainID]float64)
	}
	m[a][b] = v
}

// Options configures one generation run.
type Options struct {
	NumHoldings      int                        `json:"numHoldings"`
	NumMyths         int                        `json:"numMyths"`
	MythMinDistance  int                        `json:"mythMinDistance"`
	Landmarks        map[world.LandmarkType]int `json:"landmarks"`
	GenerateBarriers bool                       `json:"generateBarriers"`

	Formation         Formation `json:"highlandFormation"`
	FormationStrength float64   `json:"highlandFormationStrength"`
	FormationRotation float64   `json:"highlandFormationRotation"` // Degrees, 0 = north, clockwise
	FormationInverse  bool      `json:"highlandFormationInverse"`

	Roughness   float64                     `json:"terrainRoughness"`
	Clustering  ClusteringMatrix            `json:"terrainClusteringMatrix"`
	Biases      map[world.TerrainID]float64 `json:"terrainBiases"`
	HeightOrder []world.TerrainID           `json:"terrainHeightOrder"` // Highest elevation first
}

// DefaultOptions returns a balanced configuration over the full tile set.
func DefaultOptions() Options {
	return Options{
		NumHoldings:     4,
		NumMyths:        6,
		MythMinDistance: 2,
		Landmarks: map[world.LandmarkType]int{
			world.LandmarkDwelling: 3,
			world.LandmarkSanctum:  3,
			world.LandmarkMonument: 3,
			world.LandmarkHazard:   3,
			world.LandmarkCurse:    3,
			world.LandmarkRuin:     3,
		},
		GenerateBarriers:  true,
		Formation:         FormationRandom,
		FormationStrength: 0.5,
		Roughness:         0.5,
		Clustering:        DefaultClustering(),
		Biases: map[world.TerrainID]float64{
			world.TerrainMountain: 1,
			world.TerrainHill:     1.5,
			world.TerrainHeath:    1,
			world.TerrainForest:   2,
			world.TerrainPlain:    2.5,
			world.TerrainMarsh:    1,
			world.TerrainLake:     0.75,
		},
		HeightOrder: []world.TerrainID{
			world.TerrainMountain,
			world.TerrainHill,
			world.TerrainHeath,
			world.TerrainForest,
			world.TerrainPlain,
			world.TerrainMarsh,
			world.TerrainLake,
		},
	}
}

// DefaultClustering returns an affinity matrix where every terrain clusters
// strongly with itself and loosely with terrains of similar elevation.
func DefaultClustering() ClusteringMatrix {
	order := world.DefaultTileSet().Terrains
	m := make(ClusteringMatrix)
	for i, a := range order {
		for _, b := range order[i:] {
			m.Set(a, b, 0.1)
		}
		m.Set(a, a, 1)
	}
	pairs := []struct {
		a, b world.TerrainID
		v    float64
	}{
		{world.TerrainMountain, world.TerrainHill, 0.6},
		{world.TerrainHill, world.TerrainHeath, 0.5},
		{world.TerrainHill, world.TerrainForest, 0.4},
		{world.TerrainHeath, world.TerrainPlain, 0.4},
		{world.TerrainForest, world.TerrainPlain, 0.5},
		{world.TerrainPlain, world.TerrainMarsh, 0.3},
		{world.TerrainMarsh, world.TerrainLake, 0.6},
	}
	for _, p := range pairs {
		m.Set(p.a, p.b, p.v)
		if row := m[p.b]; row != nil {
			delete(row, p.a)
		}
	}
	return m
}

// Overlay decodes the JSON object data on top of o. Map and slice fields
// present in data replace the corresponding field of o outright rather than
// merging into it, so a narrowed height order can carry its own biases.
func (o Options) Overlay(data []byte) (Options, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return o, world.FieldError(world.CodeInvalidConfig, "options", "invalid JSON: %v", err)
	}
	out := o
	if _, ok := fields["landmarks"]; ok {
		out.Landmarks = nil
	}
	if _, ok := fields["terrainClusteringMatrix"]; ok {
		out.Clustering = nil
	}
	if _, ok := fields["terrainBiases"]; ok {
		out.Biases = nil
	}
	if _, ok := fields["terrainHeightOrder"]; ok {
		out.HeightOrder = nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return o, world.FieldError(world.CodeInvalidConfig, "options", "invalid JSON: %v", err)
	}
	return out, nil
}

// Validate checks the options are internally consistent. The returned error
// names the offending field.
func (o Options) Validate() error {
	if o.NumHoldings < 0 {
		return world.FieldError(world.CodeInvalidConfig, "numHoldings", "must not be negative")
	}
	if o.NumMyths < 0 {
		return world.FieldError(world.CodeInvalidConfig, "numMyths", "must not be negative")
	}
	if o.MythMinDistance < 0 {
		return world.FieldError(world.CodeInvalidConfig, "mythMinDistance", "must not be negative")
	}
	for _, lt := range sortedLandmarks(o.Landmarks) {
		if !lt.Valid() {
			return world.FieldError(world.CodeInvalidConfig, "landmarks", "unknown landmark %q", lt)
		}
		if o.Landmarks[lt] < 0 {
			return world.FieldError(world.CodeInvalidConfig, "landmarks."+string(lt), "must not be negative")
		}
	}

	if !o.Formation.Valid() {
		return world.FieldError(world.CodeInvalidConfig, "highlandFormation", "unknown formation %q", o.Formation)
	}
	if !finite(o.FormationStrength) || o.FormationStrength < 0 || o.FormationStrength > 1 {
		return world.FieldError(world.CodeInvalidConfig, "highlandFormationStrength", "must be in [0, 1]")
	}
	if !finite(o.FormationRotation) {
		return world.FieldError(world.CodeInvalidConfig, "highlandFormationRotation", "must be a finite angle")
	}
	if !finite(o.Roughness) || o.Roughness < 0 || o.Roughness > 1 {
		return world.FieldError(world.CodeInvalidConfig, "terrainRoughness", "must be in [0, 1]")
	}

	if len(o.HeightOrder) == 0 {
		return world.FieldError(world.CodeInvalidConfig, "terrainHeightOrder", "must list at least one terrain")
	}
	seen := make(map[world.TerrainID]bool, len(o.HeightOrder))
	for i, t := range o.HeightOrder {
		field := fmt.Sprintf("terrainHeightOrder[%d]", i)
		if !t.Valid() {
			return world.FieldError(world.CodeInvalidConfig, field, "unknown terrain %q", t)
		}
		if seen[t] {
			return world.FieldError(world.CodeInvalidConfig, field, "terrain %q listed twice", t)
		}
		seen[t] = true
	}

	total := 0.0
	for _, t := range sortedTerrains(o.Biases) {
		b := o.Biases[t]
		field := "terrainBiases." + string(t)
		if !seen[t] {
			return world.FieldError(world.CodeInvalidConfig, "terrainHeightOrder", "terrain %q has a bias but no height rank", t)
		}
		if !finite(b) || b < 0 {
			return world.FieldError(world.CodeInvalidConfig, field, "must be a non-negative number")
		}
		total += b
	}
	for _, t := range o.HeightOrder {
		if _, ok := o.Biases[t]; !ok {
			return world.FieldError(world.CodeInvalidConfig, "terrainBiases."+string(t), "missing bias for ranked terrain")
		}
	}
	if total <= 0 {
		return world.FieldError(world.CodeInvalidConfig, "terrainBiases", "at least one terrain needs a positive bias")
	}

	for i, a := range o.HeightOrder {
		for _, b := range o.HeightOrder[i:] {
			field := fmt.Sprintf("terrainClusteringMatrix.%s.%s", a, b)
			v, ok := o.Clustering.Affinity(a, b)
			if !ok {
				return world.FieldError(world.CodeInvalidConfig, field, "missing affinity")
			}
			if !finite(v) || v < 0 || v > 1 {
				return world.FieldError(world.CodeInvalidConfig, field, "must be in [0, 1]")
			}
			ab, okAB := o.Clustering[a][b]
			ba, okBA := o.Clustering[b][a]
			if okAB && okBA && ab != ba {
				return world.FieldError(world.CodeInvalidConfig, field, "matrix is not symmetric (%v vs %v)", ab, ba)
			}
		}
	}
	return nil
}

// Normalize returns a copy with rotation folded into the formation's
// symmetric range: [0, 120) for triangles, [0, 360) otherwise.
func (o Options) Normalize() Options {
	period := 360.0
	if o.Formation == FormationTriangle {
		period = 120
	}
	r := math.Mod(o.FormationRotation, period)
	if r < 0 {
		r += period
	}
	o.FormationRotation = r
	return o
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func sortedTerrains(m map[world.TerrainID]float64) []world.TerrainID {
	keys := make([]world.TerrainID, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func sortedLandmarks(m map[world.LandmarkType]int) []world.LandmarkType {
	keys := make([]world.LandmarkType, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
