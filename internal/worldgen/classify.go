package worldgen

import (
	"math"
	"sort"

	"github.com/talgya/hexrealm/internal/noise"
	"github.com/talgya/hexrealm/internal/world"
)

const (
	// Elevation octave layout.
	elevationOctaves     = 4
	elevationLacunarity  = 2.0
	elevationPersistence = 0.5

	// Sample frequency in unit-size pixel space, from smooth to rough.
	minFrequency = 0.06
	maxFrequency = 0.30

	// Share of the simplex texture layered onto rough terrain.
	textureWeight = 0.35

	// Upper bound on clustering passes, reached at zero roughness.
	maxClusterPasses = 8

	// Minimum weighted affinity gain before a hex changes terrain.
	clusterThreshold = 0.05
)

// Elevations returns one elevation per coordinate, in [0, 1]. Roughness moves
// the blend from the formation bias toward noise and raises the noise
// frequency; the random formation is pure noise.
func Elevations(coords []world.HexCoord, opts Options, seed int64) []float64 {
	field := noise.NewField(seed)
	texture := noise.NewTexture(seed + 1)
	bias, shaped := FormationBias(coords, opts)

	freq := minFrequency + (maxFrequency-minFrequency)*opts.Roughness
	noiseWeight := 0.2 + 0.8*opts.Roughness

	out := make([]float64, len(coords))
	for i, c := range coords {
		p := world.AxialToPixel(world.Pointy, 1, c)
		n := field.Octaves(p.X*freq, p.Y*freq, elevationOctaves, elevationLacunarity, elevationPersistence)
		n += opts.Roughness * textureWeight * texture.Sample(p.X, p.Y)
		n = clamp01((n + 1) / 2)

		if !shaped {
			out[i] = n
			continue
		}
		out[i] = noiseWeight*n + (1-noiseWeight)*bias[i]
	}
	return out
}

// Band assigns terrain by elevation rank: hexes sorted from highest to
// lowest are split into consecutive bands, one per terrain in height order,
// each band sized in proportion to that terrain's bias.
func Band(coords []world.HexCoord, elevation []float64, opts Options) []world.TerrainID {
	n := len(coords)
	rank := make([]int, n)
	for i := range rank {
		rank[i] = i
	}
	sort.SliceStable(rank, func(a, b int) bool {
		ia, ib := rank[a], rank[b]
		if elevation[ia] != elevation[ib] {
			return elevation[ia] > elevation[ib]
		}
		if coords[ia].Q != coords[ib].Q {
			return coords[ia].Q < coords[ib].Q
		}
		return coords[ia].R < coords[ib].R
	})

	total := 0.0
	for _, t := range opts.HeightOrder {
		total += opts.Biases[t]
	}

	out := make([]world.TerrainID, n)
	start := 0
	cum := 0.0
	for k, t := range opts.HeightOrder {
		cum += opts.Biases[t]
		end := int(math.Round(cum / total * float64(n)))
		if k == len(opts.HeightOrder)-1 {
			end = n
		}
		for ; start < end; start++ {
			out[rank[start]] = t
		}
	}
	return out
}

// Cluster relaxes a banded classification into coherent regions. In each
// pass every hex looks at its neighbors' terrain, scores the terrains ranked
// next to its own in height order by mean affinity, and adopts the best one
// if the gain, weighted by smoothness, clears a fixed threshold. Passes read
// the previous pass only, so the result does not depend on visit order.
func Cluster(realm *world.Realm, terrain []world.TerrainID, opts Options) []world.TerrainID {
	pull := 1 - opts.Roughness
	passes := int(math.Ceil(maxClusterPasses * pull))

	rank := make(map[world.TerrainID]int, len(opts.HeightOrder))
	for i, t := range opts.HeightOrder {
		rank[t] = i
	}

	index := make(map[world.HexCoord]int, len(realm.Hexes))
	for i := range realm.Hexes {
		index[realm.Hexes[i].Coord] = i
	}

	cur := append([]world.TerrainID(nil), terrain...)
	next := make([]world.TerrainID, len(cur))
	for pass := 0; pass < passes; pass++ {
		changed := 0
		for i := range realm.Hexes {
			next[i] = cur[i]
			neighbors := neighborTerrains(realm.Hexes[i].Coord, index, cur)
			if len(neighbors) == 0 {
				continue
			}

			base := meanAffinity(opts.Clustering, cur[i], neighbors)
			best, bestScore := cur[i], base
			for _, cand := range heightNeighbors(opts.HeightOrder, rank[cur[i]]) {
				s := meanAffinity(opts.Clustering, cand, neighbors)
				if pull*(s-base) > clusterThreshold && s > bestScore {
					best, bestScore = cand, s
				}
			}
			if best != cur[i] {
				next[i] = best
				changed++
			}
		}
		cur, next = next, cur
		if changed == 0 {
			break
		}
	}
	return cur
}

// neighborTerrains lists the terrain of every in-bounds neighbor of c.
func neighborTerrains(c world.HexCoord, index map[world.HexCoord]int, terrain []world.TerrainID) []world.TerrainID {
	out := make([]world.TerrainID, 0, world.EdgeCount)
	for _, nc := range c.Neighbors() {
		if j, ok := index[nc]; ok {
			out = append(out, terrain[j])
		}
	}
	return out
}

// heightNeighbors returns the terrains ranked directly above and below rank,
// in lexical order.
func heightNeighbors(order []world.TerrainID, rank int) []world.TerrainID {
	var out []world.TerrainID
	if rank > 0 {
		out = append(out, order[rank-1])
	}
	if rank+1 < len(order) {
		out = append(out, order[rank+1])
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func meanAffinity(m ClusteringMatrix, t world.TerrainID, neighbors []world.TerrainID) float64 {
	sum := 0.0
	for _, n := range neighbors {
		v, _ := m.Affinity(t, n)
		sum += v
	}
	return sum / float64(len(neighbors))
}
