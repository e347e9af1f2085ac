package render

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"overworld/internal/assets"
	"overworld/internal/gfx"
	"overworld/internal/tileset"
)

// AnimDef binds a range of absolute tile indices to a frame sequence.
type AnimDef struct {
	ID        string
	Tileset   string
	Kind      tileset.Kind
	Dir       string // folder under the tileset's anim directory
	Offset    int    // first absolute tile index
	Count     int    // tiles in the range
	StepTicks int
	Frames    int
	Sequence  []int // nil means 0..Frames-1
}

// Contains reports whether an absolute tile index is animated by d.
func (d *AnimDef) Contains(tile int) bool {
	return tile >= d.Offset && tile < d.Offset+d.Count
}

// FrameAt returns the frame shown at tick.
func (d *AnimDef) FrameAt(tick int) int {
	seq := d.sequence()
	if len(seq) == 0 || tick < 0 {
		return 0
	}
	step := d.StepTicks
	if step <= 0 {
		step = 1
	}
	return seq[(tick/step)%len(seq)]
}

func (d *AnimDef) sequence() []int {
	if len(d.Sequence) > 0 {
		return d.Sequence
	}
	seq := make([]int, d.Frames)
	for i := range seq {
		seq[i] = i
	}
	return seq
}

var animTable = []AnimDef{
	{ID: "general_flower", Tileset: "gTileset_General", Kind: tileset.Primary, Dir: "flower", Offset: 508, Count: 4, StepTicks: 16, Frames: 5},
	{ID: "general_water_current", Tileset: "gTileset_General", Kind: tileset.Primary, Dir: "water_current_landwatersedge", Offset: 416, Count: 48, StepTicks: 16, Frames: 8},
	{ID: "general_sand_edge", Tileset: "gTileset_General", Kind: tileset.Primary, Dir: "sandwatersedge", Offset: 464, Count: 18, StepTicks: 8, Frames: 8},
	{ID: "celadon_city_fountain", Tileset: "gTileset_CeladonCity", Kind: tileset.Secondary, Dir: "fountain", Offset: 744, Count: 8, StepTicks: 12, Frames: 5},
	{ID: "silph_co_fountain", Tileset: "gTileset_SilphCo", Kind: tileset.Secondary, Dir: "fountain", Offset: 976, Count: 8, StepTicks: 10, Frames: 4},
	{ID: "mt_ember_steam", Tileset: "gTileset_MtEmber", Kind: tileset.Secondary, Dir: "steam", Offset: 896, Count: 8, StepTicks: 16, Frames: 4},
	{ID: "vermilion_gym_door", Tileset: "gTileset_VermilionGym", Kind: tileset.Secondary, Dir: "motorizeddoor", Offset: 880, Count: 7, StepTicks: 2, Frames: 2},
	{ID: "celadon_gym_flowers", Tileset: "gTileset_CeladonGym", Kind: tileset.Secondary, Dir: "flowers", Offset: 739, Count: 4, StepTicks: 16, Frames: 3, Sequence: []int{0, 1, 2, 1}},
}

// AnimDefsFor returns the animations of a tileset pair.
func AnimDefsFor(primary, secondary string) []AnimDef {
	var out []AnimDef
	for _, d := range animTable {
		if (d.Kind == tileset.Primary && d.Tileset == primary) ||
			(d.Kind == tileset.Secondary && d.Tileset == secondary) {
			out = append(out, d)
		}
	}
	return out
}

// Anim is a loaded animation: one sheet set per frame.
type Anim struct {
	Def        AnimDef
	Frames     []*SheetSet
	FrameCols  int
	FrameTiles int
}

type animRef struct {
	anim  *Anim
	index int
}

// AnimSet is the per-map animated tile registry.
type AnimSet struct {
	anims []*Anim
	tiles map[int]animRef
}

// NewAnimSet indexes loaded animations by absolute tile index.
func NewAnimSet(anims ...*Anim) *AnimSet {
	s := &AnimSet{anims: anims, tiles: make(map[int]animRef)}
	for _, a := range anims {
		for j := 0; j < a.Def.Count; j++ {
			s.tiles[a.Def.Offset+j] = animRef{anim: a, index: j}
		}
	}
	return s
}

// Len is the number of loaded animations.
func (s *AnimSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.anims)
}

// Frame returns the sheet, column count and source cell for an animated tile
// at tick. ok is false when the tile is not animated or the frame does not
// cover it.
func (s *AnimSet) Frame(tile, pal, tick int) (sheet *gfx.Bitmap, cols, cell int, ok bool) {
	if s == nil {
		return nil, 0, 0, false
	}
	ref, found := s.tiles[tile]
	if !found {
		return nil, 0, 0, false
	}
	a := ref.anim
	f := a.Def.FrameAt(tick)
	if f < 0 || f >= len(a.Frames) || a.FrameCols == 0 || ref.index >= a.FrameTiles {
		return nil, 0, 0, false
	}
	sheet = a.Frames[f].For(pal)
	if sheet == nil {
		return nil, 0, 0, false
	}
	return sheet, a.FrameCols, ref.index, true
}

// LoadAnimations loads every frame of the pair's animations and recolours
// them through bank. An animation with any missing frame, or an empty frame,
// is dropped.
func LoadAnimations(ctx context.Context, l *assets.Loader, cache *SheetCache, root string, defs []AnimDef, bank tileset.Bank, log logrus.FieldLogger) *AnimSet {
	anims := make([]*Anim, len(defs))
	g, gctx := errgroup.WithContext(ctx)
	for i := range defs {
		i, def := i, defs[i]
		g.Go(func() error {
			paths, ok := tileset.PathsFor(root, def.Tileset, def.Kind)
			if !ok {
				return nil
			}
			imgs := make([]*gfx.DecodedImage, def.Frames)
			tasks := make([]func(context.Context) error, def.Frames)
			for f := 0; f < def.Frames; f++ {
				tasks[f] = assets.Await(l.Image(paths.AnimFramePath(def.Dir, f)), &imgs[f])
			}
			if err := assets.WaitAll(gctx, tasks...); err != nil {
				log.WithField("anim", def.ID).WithError(err).Warn("animation dropped")
				return nil
			}
			first := imgs[0].Bitmap
			cols, rows := first.W/tileset.CellSize, first.H/tileset.CellSize
			if cols == 0 || rows == 0 {
				log.WithField("anim", def.ID).Warn("animation frame too small, dropped")
				return nil
			}
			a := &Anim{Def: def, FrameCols: cols, FrameTiles: cols * rows}
			for f, img := range imgs {
				a.Frames = append(a.Frames, cache.Sheets(paths.AnimFramePath(def.Dir, f), img, bank, img.Key))
			}
			anims[i] = a
			return nil
		})
	}
	_ = g.Wait()

	var loaded []*Anim
	for _, a := range anims {
		if a != nil {
			loaded = append(loaded, a)
		}
	}
	return NewAnimSet(loaded...)
}
