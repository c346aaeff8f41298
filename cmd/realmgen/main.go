// Command realmgen generates realms offline and upgrades legacy realm files.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/talgya/hexrealm/internal/config"
	"github.com/talgya/hexrealm/internal/entropy"
	"github.com/talgya/hexrealm/internal/world"
	"github.com/talgya/hexrealm/internal/worldgen"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	shape       string
	radius      int
	width       int
	height      int
	seed        int64
	preset      string
	optionsPath string
	out         string
	upgrade     string
	list        bool
	verbose     bool
}

func run(args []string, stdout, stderr io.Writer) error {
	var o options
	fs := flag.NewFlagSet("realmgen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.shape, "shape", string(world.ShapeHex), "grid shape (hex, square)")
	fs.IntVar(&o.radius, "radius", 8, "hex grid radius")
	fs.IntVar(&o.width, "width", 16, "square grid width")
	fs.IntVar(&o.height, "height", 12, "square grid height")
	fs.Int64Var(&o.seed, "seed", 0, "random seed for reproducibility (0 = random)")
	fs.StringVar(&o.preset, "preset", "default", "generation preset ("+strings.Join(worldgen.PresetNames(), ", ")+")")
	fs.StringVar(&o.optionsPath, "options", "", "JSON file of generation options overriding the preset")
	fs.StringVar(&o.out, "out", "-", "output file (- for stdout)")
	fs.StringVar(&o.upgrade, "upgrade", "", "legacy realm file to decode and re-encode instead of generating")
	fs.BoolVar(&o.list, "list", false, "list presets and exit")
	fs.BoolVar(&o.verbose, "v", false, "verbose output")
	if err := fs.Parse(args); err != nil {
		return err
	}

	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(config.NewLogger(stderr, level, config.FormatAuto))

	if o.list {
		fmt.Fprintln(stdout, "Available presets:")
		for _, name := range worldgen.PresetNames() {
			fmt.Fprintf(stdout, "  %s\n", name)
		}
		return nil
	}

	var (
		realm    *world.Realm
		warnings []world.Warning
		err      error
	)
	if o.upgrade != "" {
		realm, warnings, err = upgrade(o.upgrade)
	} else {
		realm, warnings, err = generate(o, stderr)
	}
	if err != nil {
		return err
	}

	data, err := world.Encode(realm)
	if err != nil {
		return fmt.Errorf("encode realm: %w", err)
	}
	if o.out == "-" {
		if _, err := stdout.Write(append(data, '\n')); err != nil {
			return err
		}
	} else if err := os.WriteFile(o.out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", o.out, err)
	}

	summarize(stderr, realm, warnings, len(data))
	return nil
}

func generate(o options, stderr io.Writer) (*world.Realm, []world.Warning, error) {
	var shape world.ShapeSpec
	switch world.Shape(o.shape) {
	case world.ShapeHex:
		shape = world.HexShape(o.radius)
	case world.ShapeSquare:
		shape = world.SquareShape(o.width, o.height)
	default:
		return nil, nil, fmt.Errorf("unknown shape %q (use hex or square)", o.shape)
	}

	opts, err := worldgen.Preset(o.preset)
	if err != nil {
		return nil, nil, err
	}
	if o.optionsPath != "" {
		raw, err := os.ReadFile(o.optionsPath)
		if err != nil {
			return nil, nil, fmt.Errorf("read options: %w", err)
		}
		if opts, err = opts.Overlay(raw); err != nil {
			return nil, nil, fmt.Errorf("parse options %s: %w", o.optionsPath, err)
		}
	}

	seed := o.seed
	if seed == 0 {
		seed = entropy.SeedFromSource(entropy.NewClient(os.Getenv("RANDOM_ORG_API_KEY")))
	}
	res, err := worldgen.Generate(shape, opts, seed)
	if err != nil {
		return nil, nil, err
	}
	fmt.Fprintf(stderr, "seed: %d\n", res.Seed)
	return res.Realm, res.Warnings, nil
}

func upgrade(path string) (*world.Realm, []world.Warning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	return world.Decode(data)
}

// summarize prints a short human-readable account of the realm.
func summarize(w io.Writer, r *world.Realm, warnings []world.Warning, size int) {
	fmt.Fprintf(w, "%s hexes, %d myths, %s\n", humanize.Comma(int64(r.HexCount())), len(r.Myths), humanize.Bytes(uint64(size)))

	counts := r.TerrainCounts()
	terrains := make([]world.TerrainID, 0, len(counts))
	for t := range counts {
		terrains = append(terrains, t)
	}
	sort.Slice(terrains, func(i, j int) bool {
		if counts[terrains[i]] != counts[terrains[j]] {
			return counts[terrains[i]] > counts[terrains[j]]
		}
		return terrains[i] < terrains[j]
	})
	for _, t := range terrains {
		fmt.Fprintf(w, "  %-10s %s\n", t.Name(), humanize.Comma(int64(counts[t])))
	}
	if r.SeatOfPower != nil {
		fmt.Fprintf(w, "seat of power: (%d, %d)\n", r.SeatOfPower.Q, r.SeatOfPower.R)
	}
	for _, warn := range warnings {
		fmt.Fprintf(w, "warning: %s: %s\n", warn.Code, warn.Message)
	}
}
