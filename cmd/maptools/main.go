package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"

	"overworld/internal/maps"
)

func main() {
	app := cli.NewApp()

	app.Name = "maptools"
	app.Usage = "inspect, validate and export overworld maps"

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "root",
			EnvVars: []string{"OVERWORLD_ASSETS_ROOT"},
			Value:   "assets",
			Usage:   "asset tree root",
		},
		&cli.StringFlag{
			Name:  "maps",
			Value: "maps",
			Usage: "maps directory, relative to root",
		},
		&cli.StringFlag{
			Name:  "layouts",
			Value: "data/layouts/layouts.json",
			Usage: "layouts file, relative to root",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:  "validate",
			Usage: "Validate all maps",
			Action: func(c *cli.Context) error {
				catalog, err := openCatalog(c)
				if err != nil {
					return err
				}
				if n := runValidate(os.Stdout, catalog); n > 0 {
					return cli.Exit(fmt.Sprintf("%d error(s) found", n), 1)
				}
				return nil
			},
		},
		{
			Name:      "viz",
			Usage:     "Draw a map's colliders, events and NPCs as ASCII",
			ArgsUsage: "MAP-ID",
			Action: func(c *cli.Context) error {
				d, err := mapArg(c)
				if err != nil {
					return err
				}
				runViz(os.Stdout, d)
				return nil
			},
		},
		{
			Name:      "stats",
			Usage:     "Show walkable share and event counts",
			ArgsUsage: "MAP-ID",
			Action: func(c *cli.Context) error {
				d, err := mapArg(c)
				if err != nil {
					return err
				}
				runStats(os.Stdout, d)
				return nil
			},
		},
		{
			Name:  "all",
			Usage: "Run validate, viz and stats for every map",
			Action: func(c *cli.Context) error {
				catalog, err := openCatalog(c)
				if err != nil {
					return err
				}
				fmt.Println("=== VALIDATE ===")
				if n := runValidate(os.Stdout, catalog); n > 0 {
					return cli.Exit(fmt.Sprintf("%d error(s) found", n), 1)
				}
				for _, id := range catalog.IDs() {
					d, _ := catalog.Get(id)
					d = withSize(catalog, d)
					fmt.Printf("\n=== VIZ: %s ===\n", id)
					runViz(os.Stdout, d)
					fmt.Printf("\n=== STATS: %s ===\n", id)
					runStats(os.Stdout, d)
				}
				return nil
			},
		},
		generateCommand(),
		renderCommand(),
		palettizeCommand(),
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func assetFs(c *cli.Context) afero.Fs {
	return afero.NewBasePathFs(afero.NewOsFs(), c.String("root"))
}

func openCatalog(c *cli.Context) (*maps.Catalog, error) {
	catalog, err := maps.LoadCatalog(assetFs(c), c.String("maps"), c.String("layouts"))
	if err != nil {
		return nil, cli.Exit(err, 1)
	}
	return catalog, nil
}

func mapArg(c *cli.Context) (*maps.Descriptor, error) {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.Name, 1)
	}
	catalog, err := openCatalog(c)
	if err != nil {
		return nil, err
	}
	d, err := catalog.Get(c.Args().First())
	if err != nil {
		return nil, cli.Exit(err, 1)
	}
	return withSize(catalog, d), nil
}

// withSize copies d with the catalog's extent, which also covers layout-only maps.
func withSize(catalog *maps.Catalog, d *maps.Descriptor) *maps.Descriptor {
	w, h, ok := catalog.Size(d.ID)
	if !ok {
		return d
	}
	cp := *d
	cp.Width, cp.Height = w, h
	return &cp
}

// --- validate ---

func runValidate(w io.Writer, catalog *maps.Catalog) int {
	errs := catalog.Validate()
	byMap := make(map[string][]error)
	for _, err := range errs {
		msg := err.Error()
		for _, id := range catalog.IDs() {
			if strings.HasPrefix(msg, fmt.Sprintf("map %q:", id)) {
				byMap[id] = append(byMap[id], err)
				break
			}
		}
	}

	for _, id := range catalog.IDs() {
		fmt.Fprintf(w, "Validating %q...\n", id)
		for _, err := range byMap[id] {
			fmt.Fprintf(w, "  ERROR: %v\n", err)
		}
		if len(byMap[id]) == 0 {
			d, _ := catalog.Get(id)
			width, height, _ := catalog.Size(id)
			fmt.Fprintf(w, "  OK (%dx%d, %d events)\n", width, height, len(d.Events))
		}
	}

	if len(errs) > 0 {
		fmt.Fprintf(w, "\n%d error(s) found\n", len(errs))
		return len(errs)
	}
	fmt.Fprintf(w, "\nAll %d maps valid\n", len(catalog.IDs()))
	return 0
}

// --- viz ---

// ansiColor returns the ANSI escape for the given code.
func ansiColor(code int) string {
	return fmt.Sprintf("\033[%dm", code)
}

type cell struct {
	ch rune
	fg int
}

var (
	cellFloor    = cell{'.', 90}
	cellCollider = cell{'#', 37}
	cellLedge    = cell{'v', 33}
	cellEvent    = cell{'E', 36}
	cellDoor     = cell{'D', 35}
	cellNPC      = cell{'N', 32}
	cellStart    = cell{'@', 31}
)

// grid lays out one cell per tile. Later marks win: colliders, ledges, events,
// NPCs, then the start tile.
func grid(d *maps.Descriptor) [][]cell {
	w, h, ok := d.Size()
	if !ok {
		return nil
	}
	g := make([][]cell, h)
	for y := range g {
		g[y] = make([]cell, w)
		for x := range g[y] {
			g[y][x] = cellFloor
		}
	}
	mark := func(x, y int, c cell) {
		if x >= 0 && y >= 0 && x < w && y < h {
			g[y][x] = c
		}
	}
	fill := func(r maps.Rect, c cell) {
		for y := r.Y; y < r.Y+r.H; y++ {
			for x := r.X; x < r.X+r.W; x++ {
				mark(x, y, c)
			}
		}
	}
	for _, r := range d.Colliders {
		fill(r, cellCollider)
	}
	for _, j := range d.Jumps {
		mark(j.X, j.Y, cellLedge)
	}
	for _, ev := range d.Events {
		if ev.Kind() == maps.KindDoor {
			fill(ev.Rect, cellDoor)
		} else {
			fill(ev.Rect, cellEvent)
		}
	}
	for _, n := range d.NPCs {
		mark(n.X, n.Y, cellNPC)
	}
	if d.Start.X != nil && d.Start.Y != nil {
		mark(*d.Start.X, *d.Start.Y, cellStart)
	}
	return g
}

func runViz(w io.Writer, d *maps.Descriptor) {
	g := grid(d)
	if g == nil {
		fmt.Fprintf(w, "%s has no size\n", d.Name)
		return
	}
	fmt.Fprintf(w, "%s (%dx%d)\n", d.Name, len(g[0]), len(g))
	for _, row := range g {
		for _, c := range row {
			fmt.Fprint(w, ansiColor(c.fg), string(c.ch), "\033[0m")
		}
		fmt.Fprintln(w)
	}

	for _, ev := range d.Events {
		door, ok := ev.Action.(maps.Door)
		if !ok {
			continue
		}
		target := door.Target.MapID
		if target == "" {
			target = d.ID
		}
		fmt.Fprintf(w, "Door %s: (%d,%d) → %s\n", ev.ID, ev.Rect.X, ev.Rect.Y, target)
	}
}

// --- stats ---

type mapStats struct {
	total    int
	walkable int
	kinds    map[maps.EventKind]int
}

func collectStats(d *maps.Descriptor) mapStats {
	s := mapStats{kinds: make(map[maps.EventKind]int)}
	for _, row := range grid(d) {
		for _, c := range row {
			s.total++
			if c != cellCollider {
				s.walkable++
			}
		}
	}
	for _, ev := range d.Events {
		s.kinds[ev.Kind()]++
	}
	return s
}

func runStats(w io.Writer, d *maps.Descriptor) {
	s := collectStats(d)
	fmt.Fprintf(w, "%s (%d tiles)\n\n", d.Name, s.total)

	kinds := make([]maps.EventKind, 0, len(s.kinds))
	for k := range s.kinds {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool {
		if s.kinds[kinds[i]] != s.kinds[kinds[j]] {
			return s.kinds[kinds[i]] > s.kinds[kinds[j]]
		}
		return kinds[i] < kinds[j]
	})
	for _, k := range kinds {
		fmt.Fprintf(w, "  %-8s %4d %s\n", k, s.kinds[k], strings.Repeat("█", s.kinds[k]))
	}

	if s.total > 0 {
		fmt.Fprintf(w, "\nWalkable: %d/%d (%.1f%%)\n", s.walkable, s.total, float64(s.walkable)/float64(s.total)*100)
	}
	fmt.Fprintf(w, "NPCs:     %d\n", len(d.NPCs))
	fmt.Fprintf(w, "Ledges:   %d\n", len(d.Jumps))
}
