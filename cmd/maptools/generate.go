package main

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"

	"overworld/internal/maps"
)

// Terrain classes of the wilderness generator.
type terrain uint8

const (
	tGrass terrain = iota
	tTallGrass
	tLedge
	tWater
	tTree
	tRock
)

func (t terrain) blocked() bool { return t >= tWater }

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "Generate a wilderness map with colliders, ledges and encounter grass",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "seed", Usage: "random seed (0 = random)"},
			&cli.StringFlag{Name: "size", Value: "40x30", Usage: "map size as WxH"},
			&cli.StringFlag{Name: "id", Value: "wilderness", Usage: "map id"},
			&cli.StringFlag{Name: "name", Value: "Wilderness", Usage: "map name"},
			&cli.StringFlag{Name: "out", Usage: "output file (default: stdout)"},
		},
		Action: func(c *cli.Context) error {
			w, h, err := parseSize(c.String("size"))
			if err != nil {
				return cli.Exit(err, 1)
			}
			seed := c.Int64("seed")
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			d := generateWilderness(c.String("id"), c.String("name"), w, h, seed)

			data, err := json.MarshalIndent(d, "", "  ")
			if err != nil {
				return cli.Exit(err, 1)
			}
			data = append(data, '\n')
			out := c.String("out")
			if out == "" {
				_, err := c.App.Writer.Write(data)
				return err
			}
			if err := afero.WriteFile(afero.NewOsFs(), out, data, 0o644); err != nil {
				return cli.Exit(err, 1)
			}
			fmt.Fprintf(c.App.ErrWriter, "Wrote %s (seed %d, %d colliders, %d events)\n", out, seed, len(d.Colliders), len(d.Events))
			return nil
		},
	}
}

func parseSize(s string) (int, int, error) {
	parts := strings.SplitN(s, "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid size %q (expected WxH)", s)
	}
	w, err := strconv.Atoi(parts[0])
	if err != nil || w < 10 {
		return 0, 0, fmt.Errorf("invalid width %q (minimum 10)", parts[0])
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil || h < 10 {
		return 0, 0, fmt.Errorf("invalid height %q (minimum 10)", parts[1])
	}
	return w, h, nil
}

// valueNoise is seeded lattice noise with smoothstep interpolation.
type valueNoise struct {
	perm [512]uint8
	vals [256]float64
}

func newValueNoise(seed int64) *valueNoise {
	r := rand.New(rand.NewSource(seed))
	n := &valueNoise{}
	for i, p := range r.Perm(256) {
		n.perm[i] = uint8(p)
		n.perm[i+256] = uint8(p)
		n.vals[i] = r.Float64()
	}
	return n
}

func (n *valueNoise) lattice(x, y int) float64 {
	return n.vals[n.perm[int(n.perm[x&255])+y&255]]
}

func (n *valueNoise) at(x, y float64) float64 {
	x0, y0 := math.Floor(x), math.Floor(y)
	fx, fy := x-x0, y-y0
	sx, sy := fx*fx*(3-2*fx), fy*fy*(3-2*fy)
	ix, iy := int(x0), int(y0)
	top := n.lattice(ix, iy) + sx*(n.lattice(ix+1, iy)-n.lattice(ix, iy))
	bottom := n.lattice(ix, iy+1) + sx*(n.lattice(ix+1, iy+1)-n.lattice(ix, iy+1))
	return top + sy*(bottom-top)
}

// fractal sums octaves of noise, normalised to [0, 1).
func (n *valueNoise) fractal(x, y, freq float64, octaves int) float64 {
	sum, amp, norm := 0.0, 1.0, 0.0
	for i := 0; i < octaves; i++ {
		sum += amp * n.at(x*freq, y*freq)
		norm += amp
		amp *= 0.5
		freq *= 2
	}
	return sum / norm
}

func classify(elev, moist float64) terrain {
	switch {
	case elev < 0.3:
		return tWater
	case elev > 0.72:
		return tRock
	case moist > 0.68:
		return tTree
	case moist > 0.55:
		return tTallGrass
	default:
		return tGrass
	}
}

// generateWilderness builds a walled map whose walkable area is one connected
// region around the start tile.
func generateWilderness(id, name string, w, h int, seed int64) *maps.Descriptor {
	elevation := newValueNoise(seed)
	moisture := newValueNoise(seed + 1)

	tiles := make([][]terrain, h)
	for y := range tiles {
		tiles[y] = make([]terrain, w)
		for x := range tiles[y] {
			if x == 0 || y == 0 || x == w-1 || y == h-1 {
				tiles[y][x] = tTree
				continue
			}
			fx, fy := float64(x), float64(y)
			tiles[y][x] = classify(elevation.fractal(fx, fy, 0.08, 4), moisture.fractal(fx, fy, 0.12, 3))
		}
	}

	sx, sy := findStart(tiles)
	tiles[sy][sx] = tGrass
	placeLedges(tiles)
	fillUnreachable(tiles, sx, sy)

	d := &maps.Descriptor{
		ID: id, Name: name, TileSize: maps.DefaultTileSize,
		Width: w, Height: h,
		Start:     *maps.At(sx, sy, maps.DirDown),
		Colliders: mergeRects(tiles, terrain.blocked),
	}
	for y := range tiles {
		for x, t := range tiles[y] {
			if t == tLedge {
				d.Jumps = append(d.Jumps, maps.Jump{X: x, Y: y, Dir: maps.DirDown})
			}
		}
	}
	for i, r := range mergeRects(tiles, func(t terrain) bool { return t == tTallGrass }) {
		d.Events = append(d.Events, maps.Event{
			ID:      fmt.Sprintf("grass-%d", i+1),
			Name:    "Tall grass",
			Rect:    r,
			Trigger: maps.TriggerEnter,
			Action:  maps.ServerCall{EventType: "battle", Payload: map[string]any{"zone": id}},
		})
	}
	return d
}

// findStart returns the walkable tile closest to the centre.
func findStart(tiles [][]terrain) (int, int) {
	h, w := len(tiles), len(tiles[0])
	cx, cy := w/2, h/2
	for r := 0; r < max(w, h)/2; r++ {
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				x, y := cx+dx, cy+dy
				if x > 0 && y > 0 && x < w-1 && y < h-1 && !tiles[y][x].blocked() {
					return x, y
				}
			}
		}
	}
	return cx, cy
}

// placeLedges turns grass beside a rock face into a drop when the tiles above
// and below are open.
func placeLedges(tiles [][]terrain) {
	for y := 1; y < len(tiles)-1; y++ {
		for x := 1; x < len(tiles[y])-1; x++ {
			if tiles[y][x] != tGrass || tiles[y-1][x].blocked() || tiles[y+1][x] != tGrass {
				continue
			}
			if tiles[y][x-1] == tRock || tiles[y][x+1] == tRock {
				tiles[y][x] = tLedge
			}
		}
	}
}

// fillUnreachable plants trees on every open tile not reachable from the
// start.
func fillUnreachable(tiles [][]terrain, sx, sy int) {
	h, w := len(tiles), len(tiles[0])
	seen := make([][]bool, h)
	for y := range seen {
		seen[y] = make([]bool, w)
	}
	type point struct{ x, y int }
	queue := []point{{sx, sy}}
	seen[sy][sx] = true
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		for _, d := range []point{{0, -1}, {0, 1}, {-1, 0}, {1, 0}} {
			x, y := p.x+d.x, p.y+d.y
			if x < 0 || y < 0 || x >= w || y >= h || seen[y][x] || tiles[y][x].blocked() {
				continue
			}
			seen[y][x] = true
			queue = append(queue, point{x, y})
		}
	}
	for y := range tiles {
		for x := range tiles[y] {
			if !seen[y][x] && !tiles[y][x].blocked() {
				tiles[y][x] = tTree
			}
		}
	}
}

// mergeRects covers the tiles matching keep with rectangles: horizontal runs
// first, then runs with identical columns on consecutive rows are joined.
func mergeRects(tiles [][]terrain, keep func(terrain) bool) []maps.Rect {
	var out []maps.Rect
	open := map[[2]int]int{} // (x, w) of a run on the previous row -> index in out
	for y := range tiles {
		next := map[[2]int]int{}
		for x := 0; x < len(tiles[y]); {
			if !keep(tiles[y][x]) {
				x++
				continue
			}
			start := x
			for x < len(tiles[y]) && keep(tiles[y][x]) {
				x++
			}
			key := [2]int{start, x - start}
			if i, ok := open[key]; ok {
				out[i].H++
				next[key] = i
				continue
			}
			out = append(out, maps.Rect{X: start, Y: y, W: x - start, H: 1})
			next[key] = len(out) - 1
		}
		open = next
	}
	return out
}
