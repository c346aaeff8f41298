package worldgen

import (
	"sort"

	"github.com/talgya/hexrealm/internal/world"
)

// presets maps a name to a tweak of DefaultOptions.
var presets = map[string]func(*Options){
	"default": func(*Options) {},

	// A ring of high ground around a sunken, wet center.
	"caldera": func(o *Options) {
		o.Formation = FormationCircle
		o.FormationStrength = 0.9
		o.FormationInverse = true
		o.Roughness = 0.35
		o.Biases[world.TerrainLake] = 1.5
	},

	"highlands": func(o *Options) {
		o.Formation = FormationCircle
		o.FormationStrength = 0.8
		o.Roughness = 0.4
		o.Biases[world.TerrainMountain] = 1.5
		o.Biases[world.TerrainHill] = 2
	},

	// Mountains along the northern edge draining south into marsh.
	"ridge": func(o *Options) {
		o.Formation = FormationLinear
		o.FormationStrength = 1
		o.Roughness = 0.3
	},

	"three-peaks": func(o *Options) {
		o.Formation = FormationTriangle
		o.FormationStrength = 0.85
		o.Roughness = 0.45
		o.MythMinDistance = 3
	},
}

// Preset returns the named option set.
func Preset(name string) (Options, error) {
	tweak, ok := presets[name]
	if !ok {
		return Options{}, world.FieldError(world.CodeInvalidConfig, "preset", "unknown preset %q", name)
	}
	o := DefaultOptions()
	tweak(&o)
	return o, nil
}

// PresetNames lists every preset, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
